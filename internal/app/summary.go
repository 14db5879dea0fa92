package app

import (
	"fmt"
	"strings"
	"time"

	"swarm/internal/config"
)

type StartupSummary struct {
	Feed   FeedSummary
	Agents []AgentSummary
	Engine EngineSummary
}

type FeedSummary struct {
	WSURL     string
	StorePath string
	HTTPAddr  string
}

type AgentSummary struct {
	ID          string
	Name        string
	Personality string
	Capital     float64
	Interval    time.Duration
}

type EngineSummary struct {
	Classifier        bool
	External          string
	CacheTTL          time.Duration
	MinPriceChangePct float64
	NewsWindow        int
}

func newStartupSummary(cfg *config.Config, seats []seat, cacheTTL time.Duration, hasModel, hasSource bool) *StartupSummary {
	s := &StartupSummary{
		Feed: FeedSummary{
			WSURL:     cfg.Feed.WSURL,
			StorePath: cfg.Store.Path,
			HTTPAddr:  cfg.App.HTTPAddr,
		},
		Engine: EngineSummary{
			Classifier:        hasModel,
			CacheTTL:          cacheTTL,
			MinPriceChangePct: cfg.Agents.MinPriceChangePct,
			NewsWindow:        cfg.Agents.NewsWindow,
		},
	}
	if hasSource {
		s.Engine.External = cfg.LLM.Provider + "/" + cfg.LLM.Model
	}
	for _, st := range seats {
		s.Agents = append(s.Agents, AgentSummary{
			ID:          st.identity.ID,
			Name:        st.identity.Name,
			Personality: st.identity.Personality.String(),
			Capital:     st.identity.StartingCapital,
			Interval:    st.interval,
		})
	}
	return s
}

func (s *StartupSummary) Print() {
	fmt.Println(strings.Repeat("=", 80))
	fmt.Printf("%*s\n", 40+len("启动配置摘要 (STARTUP SUMMARY)")/2, "启动配置摘要 (STARTUP SUMMARY)")
	fmt.Println(strings.Repeat("=", 80))

	fmt.Println("[连接 (CONNECTIVITY)]")
	fmt.Printf("  撮合端: %s\n", orDash(s.Feed.WSURL))
	fmt.Printf("  决策日志: %s\n", orDash(s.Feed.StorePath))
	fmt.Printf("  HTTP 接口: %s\n", orDash(s.Feed.HTTPAddr))
	fmt.Println()

	fmt.Println("[决策引擎 (DECISION ENGINE)]")
	fmt.Printf("  分类器: %s\n", onOff(s.Engine.Classifier))
	fmt.Printf("  外部决策源: %s\n", orDash(s.Engine.External))
	fmt.Printf("  缓存 TTL: %s\n", s.Engine.CacheTTL)
	fmt.Printf("  最小价格变动: %.4f%%\n", s.Engine.MinPriceChangePct*100)
	fmt.Printf("  新闻窗口: %d\n", s.Engine.NewsWindow)
	fmt.Println()

	fmt.Printf("[Agent 集群 (AGENTS: %d)]\n", len(s.Agents))
	if len(s.Agents) == 0 {
		fmt.Println("  (无配置)")
	}
	for _, a := range s.Agents {
		fmt.Printf("  > %-12s %-13s 资金 %12.2f  周期 %s  (%s)\n",
			a.Name, a.Personality, a.Capital, a.Interval, shortID(a.ID))
	}
	fmt.Println(strings.Repeat("=", 80))
}

func orDash(v string) string {
	if strings.TrimSpace(v) == "" {
		return "-"
	}
	return v
}

func onOff(v bool) string {
	if v {
		return "启用"
	}
	return "关闭"
}
