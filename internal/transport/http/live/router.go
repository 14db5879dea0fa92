package livehttp

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"swarm/internal/agent"
	"swarm/internal/logger"
	"swarm/internal/store"

	"github.com/gin-gonic/gin"
)

var ErrAgentNotFound = errors.New("agent not found")

// Fleet 是 HTTP 层可见的 agent 集群。Stop/Restart 对未知 id 返回 ErrAgentNotFound。
type Fleet interface {
	Agents() []agent.Status
	Agent(id string) (agent.Status, bool)
	Stop(id string) error
	Restart(id string) error
	CacheSize() int
}

type DecisionLog interface {
	List(ctx context.Context, q store.Query) ([]store.Entry, error)
}

// Router 暴露 agent 状态、决策日志与启停接口。
type Router struct {
	Fleet Fleet
	Logs  DecisionLog
}

func NewRouter(fleet Fleet, logs DecisionLog) *Router {
	return &Router{Fleet: fleet, Logs: logs}
}

// Register 将路由挂载到给定分组下。
func (r *Router) Register(group *gin.RouterGroup) {
	if group == nil {
		return
	}
	group.GET("/agents", r.handleAgents)
	group.GET("/agents/:id", r.handleAgent)
	group.POST("/agents/:id/stop", r.handleStop)
	group.POST("/agents/:id/restart", r.handleRestart)
	group.GET("/decisions", r.handleDecisions)
}

func (r *Router) handleAgents(c *gin.Context) {
	agents := r.Fleet.Agents()
	counts := map[agent.State]int{}
	for _, a := range agents {
		counts[a.State]++
	}
	c.JSON(http.StatusOK, gin.H{
		"agents":     agents,
		"total":      len(agents),
		"states":     counts,
		"cache_size": r.Fleet.CacheSize(),
	})
}

func (r *Router) handleAgent(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	st, ok := r.Fleet.Agent(id)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": ErrAgentNotFound.Error()})
		return
	}
	c.JSON(http.StatusOK, st)
}

func (r *Router) handleStop(c *gin.Context) {
	r.control(c, "stop", r.Fleet.Stop)
}

func (r *Router) handleRestart(c *gin.Context) {
	r.control(c, "restart", r.Fleet.Restart)
}

func (r *Router) control(c *gin.Context, op string, fn func(string) error) {
	id := strings.TrimSpace(c.Param("id"))
	if err := fn(id); err != nil {
		if errors.Is(err, ErrAgentNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		logger.Errorf("[api] agent %s failed ip=%s id=%s err=%v", op, c.ClientIP(), id, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	logger.Infof("[api] agent %s ip=%s id=%s", op, c.ClientIP(), id)
	c.JSON(http.StatusAccepted, gin.H{"status": "ok", "agent_id": id, "op": op})
}

func (r *Router) handleDecisions(c *gin.Context) {
	if r.Logs == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "决策日志未启用"})
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if limit <= 0 {
		limit = 50
	}
	if limit > 500 {
		limit = 500
	}
	q := store.Query{
		AgentID: c.Query("agent_id"),
		Outcome: c.Query("outcome"),
		Limit:   limit,
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()
	entries, err := r.Logs.List(ctx, q)
	if err != nil {
		logger.Errorf("[api] decisions list failed ip=%s err=%v", c.ClientIP(), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"decisions": entries,
		"count":     len(entries),
		"limit":     limit,
	})
}
