package livehttp

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"swarm/internal/logger"

	"github.com/gin-gonic/gin"
)

// Server 提供 agent 状态查询与启停控制的 HTTP 服务。
type Server struct {
	addr   string
	router *gin.Engine

	mu    sync.Mutex
	bound string
}

const (
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 5 * time.Second
)

// ServerConfig 描述 HTTP 服务依赖。
type ServerConfig struct {
	Addr  string
	Fleet Fleet
	Logs  DecisionLog
}

// NewServer 构建 HTTP server。
func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Fleet == nil {
		return nil, errors.New("live http server requires fleet")
	}
	if cfg.Addr == "" {
		cfg.Addr = ":9991"
	}
	return &Server{addr: cfg.Addr, router: newEngine(cfg)}, nil
}

func newEngine(cfg ServerConfig) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger())
	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	NewRouter(cfg.Fleet, cfg.Logs).Register(router.Group("/api"))
	return router
}

// requestLogger 记录接口调用，便于追踪人工启停操作。健康检查不记录。
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.URL.Path == "/healthz" {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()
		target := c.Request.URL.Path
		if q := c.Request.URL.RawQuery; q != "" {
			target += "?" + q
		}
		status := c.Writer.Status()
		logf := logger.Debugf
		if status >= http.StatusInternalServerError {
			logf = logger.Warnf
		}
		logf("HTTP %s %s status=%d ip=%s dur=%s", c.Request.Method, target, status, c.ClientIP(), time.Since(start))
	}
}

// Addr 返回监听地址；Start 之后是实际绑定的地址。
func (s *Server) Addr() string {
	if s == nil {
		return ""
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.bound != "" {
		return s.bound
	}
	return s.addr
}

// Handler 暴露路由，便于测试直接驱动。
func (s *Server) Handler() http.Handler {
	if s == nil {
		return nil
	}
	return s.router
}

// Start 监听并服务，直到 ctx 取消或出现错误。端口占用在返回值里直接体现。
func (s *Server) Start(ctx context.Context) error {
	if s == nil {
		return nil
	}
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.bound = ln.Addr().String()
	s.mu.Unlock()

	srv := &http.Server{Handler: s.router, ReadHeaderTimeout: readHeaderTimeout}
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()

	select {
	case <-ctx.Done():
		shCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = srv.Shutdown(shCtx)
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
