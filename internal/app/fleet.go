package app

import (
	"context"
	"fmt"
	"sort"

	"swarm/internal/agent"
	"swarm/internal/cache"
	"swarm/internal/logger"
	livehttp "swarm/internal/transport/http/live"

	"golang.org/x/sync/errgroup"
)

// Fleet 持有同一进程内的全部 agent。只有决策缓存在 agent 之间共享。
type Fleet struct {
	agents []*agent.Agent
	byID   map[string]*agent.Agent
	cache  *cache.DecisionCache
}

var _ livehttp.Fleet = (*Fleet)(nil)

func NewFleet(agents []*agent.Agent, c *cache.DecisionCache) *Fleet {
	f := &Fleet{
		agents: agents,
		byID:   make(map[string]*agent.Agent, len(agents)),
		cache:  c,
	}
	for _, a := range agents {
		f.byID[a.ID()] = a
	}
	return f
}

func (f *Fleet) Len() int { return len(f.agents) }

// Run 每个 agent 一个 goroutine，直到 ctx 结束。
// 单个 agent 的连接失败不会拖垮整个集群，只反映在它的状态上。
func (f *Fleet) Run(ctx context.Context) error {
	if len(f.agents) == 0 {
		return fmt.Errorf("fleet is empty")
	}
	logger.Infof("starting %d agents", len(f.agents))
	group, gctx := errgroup.WithContext(ctx)
	for _, a := range f.agents {
		a := a
		group.Go(func() error { return a.Run(gctx) })
	}
	err := group.Wait()
	logger.Infof("all agents stopped")
	return err
}

func (f *Fleet) Agents() []agent.Status {
	out := make([]agent.Status, 0, len(f.agents))
	for _, a := range f.agents {
		out = append(out, a.Status())
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (f *Fleet) Agent(id string) (agent.Status, bool) {
	a, ok := f.byID[id]
	if !ok {
		return agent.Status{}, false
	}
	return a.Status(), true
}

func (f *Fleet) Stop(id string) error {
	a, ok := f.byID[id]
	if !ok {
		return fmt.Errorf("%w: %s", livehttp.ErrAgentNotFound, id)
	}
	a.Stop()
	return nil
}

func (f *Fleet) Restart(id string) error {
	a, ok := f.byID[id]
	if !ok {
		return fmt.Errorf("%w: %s", livehttp.ErrAgentNotFound, id)
	}
	a.Restart()
	return nil
}

func (f *Fleet) CacheSize() int {
	if f.cache == nil {
		return 0
	}
	return f.cache.Len()
}
