package app

import (
	"context"
	"fmt"

	"swarm/internal/config"
	"swarm/internal/logger"
	"swarm/internal/store"
	livehttp "swarm/internal/transport/http/live"

	"golang.org/x/sync/errgroup"
)

// App 负责应用级编排：加载配置→初始化依赖→启动 agent 集群与状态接口。
type App struct {
	cfg      *config.Config
	fleet    *Fleet
	liveHTTP *livehttp.Server
	journal  *store.Journal
	Summary  *StartupSummary
}

// NewApp 根据配置构建应用对象（不启动）
func NewApp(cfg *config.Config) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	return buildAppWithWire(context.Background(), cfg)
}

// Run 启动全部 agent 与 HTTP 接口，阻塞到 ctx 结束。
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.cfg == nil {
		return fmt.Errorf("app not initialized")
	}
	if a.fleet == nil {
		return fmt.Errorf("fleet not initialized")
	}
	if a.Summary != nil {
		a.Summary.Print()
	}
	defer a.Close()

	group, ctx := errgroup.WithContext(ctx)
	if a.liveHTTP != nil {
		group.Go(func() error {
			if err := a.liveHTTP.Start(ctx); err != nil {
				return fmt.Errorf("live http server error: %w", err)
			}
			return nil
		})
	}
	group.Go(func() error {
		return a.fleet.Run(ctx)
	})
	return group.Wait()
}

// Close 释放决策日志；可重复调用。
func (a *App) Close() {
	if a == nil || a.journal == nil {
		return
	}
	if err := a.journal.Close(); err != nil {
		logger.Warnf("关闭决策日志失败: %v", err)
	}
	a.journal = nil
}

// Fleet exposes the agent fleet (for tests and embedding).
func (a *App) Fleet() *Fleet {
	if a == nil {
		return nil
	}
	return a.fleet
}
