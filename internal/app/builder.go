package app

import (
	"context"
	"fmt"

	"swarm/internal/agent"
	"swarm/internal/cache"
	"swarm/internal/config"
	"swarm/internal/decision"
	"swarm/internal/feed"
	"swarm/internal/gateway/provider"
	"swarm/internal/logger"
	"swarm/internal/pkg/circuit"
	"swarm/internal/store"
	"swarm/internal/strategy"
	livehttp "swarm/internal/transport/http/live"

	"golang.org/x/time/rate"
)

// Session 是一个 agent 到撮合端的连接：既是行情来源，也是下单通道。
type Session interface {
	agent.Conn
	decision.OrderGateway
}

type SessionFactory func(cfg feed.WSConfig, reg feed.Registration, st *feed.State) Session

type AppBuilder struct {
	cfg *config.Config

	sessionFn SessionFactory
	journalFn func(path string) (*store.Journal, error)
	sourceFn  func(cfg config.LLMConfig) (decision.ExternalSource, error)
	modelFn   func(path string) *strategy.Model
	httpFn    func(cfg config.AppConfig, fleet livehttp.Fleet, logs livehttp.DecisionLog) (*livehttp.Server, error)
	seed      uint64
}

type AppBuilderOption func(*AppBuilder)

func WithSessionFactory(fn SessionFactory) AppBuilderOption {
	return func(b *AppBuilder) {
		if fn != nil {
			b.sessionFn = fn
		}
	}
}

func WithSourceBuilder(fn func(config.LLMConfig) (decision.ExternalSource, error)) AppBuilderOption {
	return func(b *AppBuilder) {
		if fn != nil {
			b.sourceFn = fn
		}
	}
}

// WithSeed 固定集群规划与各 agent 的随机序列，0 表示按时间播种。
func WithSeed(seed uint64) AppBuilderOption {
	return func(b *AppBuilder) { b.seed = seed }
}

// WithoutHTTP 不启动状态接口。
func WithoutHTTP() AppBuilderOption {
	return func(b *AppBuilder) {
		b.httpFn = func(config.AppConfig, livehttp.Fleet, livehttp.DecisionLog) (*livehttp.Server, error) {
			return nil, nil
		}
	}
}

func NewAppBuilder(cfg *config.Config, opts ...AppBuilderOption) *AppBuilder {
	b := &AppBuilder{
		cfg:       cfg,
		sessionFn: newWSSession,
		journalFn: store.Open,
		sourceFn:  buildExternalSource,
		modelFn:   strategy.LoadOrTrain,
		httpFn:    buildLiveHTTPServer,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(b)
		}
	}
	return b
}

func newWSSession(cfg feed.WSConfig, reg feed.Registration, st *feed.State) Session {
	return feed.NewWSClient(cfg, reg, st)
}

func (b *AppBuilder) Build(ctx context.Context) (*App, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if b.cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	cfg := b.cfg
	logger.SetLevel(cfg.App.LogLevel)

	var journal *store.Journal
	if cfg.Store.Path != "" {
		j, err := b.journalFn(cfg.Store.Path)
		if err != nil {
			return nil, fmt.Errorf("初始化决策日志失败: %w", err)
		}
		journal = j
		logger.Infof("✓ 决策日志: %s", cfg.Store.Path)
	}

	decisionCache := cache.New(cfg.Agents.CacheTTL())

	var model *strategy.Model
	if cfg.Agents.UseMLFallback {
		model = b.modelFn(cfg.Classifier.ModelPath)
	}

	var source decision.ExternalSource
	if cfg.LLM.Enabled {
		src, err := b.sourceFn(cfg.LLM)
		if err != nil {
			closeJournal(journal)
			return nil, err
		}
		source = src
		logger.Infof("✓ 外部决策源: %s/%s", cfg.LLM.Provider, cfg.LLM.Model)
	}

	rnd := strategy.NewRand(b.seed)
	seats := planRoster(cfg.Agents, rnd)
	wsCfg := feed.WSConfig{URL: cfg.Feed.WSURL, HandshakeTimeout: cfg.Feed.HandshakeTimeout()}

	agents := make([]*agent.Agent, 0, len(seats))
	for _, s := range seats {
		agents = append(agents, b.buildAgent(s, wsCfg, journal, decisionCache, model, source))
	}
	fleet := NewFleet(agents, decisionCache)

	var logs livehttp.DecisionLog
	if journal != nil {
		logs = journal
	}
	server, err := b.httpFn(cfg.App, fleet, logs)
	if err != nil {
		closeJournal(journal)
		return nil, err
	}

	return &App{
		cfg:      cfg,
		fleet:    fleet,
		liveHTTP: server,
		journal:  journal,
		Summary:  newStartupSummary(cfg, seats, decisionCache.TTL(), model != nil, source != nil),
	}, nil
}

func (b *AppBuilder) buildAgent(s seat, wsCfg feed.WSConfig, journal *store.Journal, c *cache.DecisionCache, model *strategy.Model, source decision.ExternalSource) *agent.Agent {
	id := s.identity
	scope := logger.For(id.Name)
	rnd := strategy.NewRand(s.seed)

	st := feed.NewState(feed.WithStateLogScope(scope))
	sess := b.sessionFn(wsCfg, feed.Registration{
		AgentID:         id.ID,
		Name:            id.Name,
		Personality:     id.Personality.String(),
		StartingCapital: id.StartingCapital,
	}, st)

	ensemble := strategy.NewEnsemble(id.Personality, rnd, strategy.WithClassifier(model), strategy.WithLogScope(scope))

	var extra []decision.Option
	if journal != nil {
		extra = append(extra, decision.WithJournal(journal))
	}
	if source != nil {
		extra = append(extra, decision.WithExternalSource(source, c))
	}
	orch := decision.NewOrchestrator(id, st, ensemble, sess, decision.Options{
		Interval:          s.interval,
		MinPriceChangePct: b.cfg.Agents.MinPriceChangePct,
		NewsWindow:        b.cfg.Agents.NewsWindow,
		SourceTimeout:     b.cfg.LLM.Timeout(),
	}, extra...)

	return agent.New(agent.Params{
		Cycler:        orch,
		Market:        st,
		Conn:          sess,
		Interval:      s.interval,
		StartupJitter: b.cfg.Agents.JitterMax(),
		Rand:          rnd,
	})
}

// buildExternalSource 组装 provider + 熔断 + 限流。
func buildExternalSource(cfg config.LLMConfig) (decision.ExternalSource, error) {
	p, err := provider.BuildProvider(provider.ModelCfg{
		Provider:   cfg.Provider,
		APIURL:     cfg.APIURL,
		APIKey:     cfg.APIKey,
		Model:      cfg.Model,
		Enabled:    true,
		ExpectJSON: true,
	}, cfg.Timeout())
	if err != nil {
		return nil, fmt.Errorf("初始化外部决策源失败: %w", err)
	}
	breaker := circuit.NewCircuitBreaker(p.ID(), cfg.BreakerThreshold, cfg.BreakerCooldown())
	limiter := rate.NewLimiter(rate.Limit(cfg.RatePerSecond), cfg.Burst)
	return decision.NewProviderSource(p, breaker, limiter, cfg.Temperature), nil
}

func buildLiveHTTPServer(cfg config.AppConfig, fleet livehttp.Fleet, logs livehttp.DecisionLog) (*livehttp.Server, error) {
	if cfg.HTTPAddr == "" {
		return nil, nil
	}
	server, err := livehttp.NewServer(livehttp.ServerConfig{
		Addr:  cfg.HTTPAddr,
		Fleet: fleet,
		Logs:  logs,
	})
	if err != nil {
		return nil, fmt.Errorf("初始化 HTTP 接口失败: %w", err)
	}
	logger.Infof("✓ HTTP 接口监听 %s", server.Addr())
	return server, nil
}

func closeJournal(j *store.Journal) {
	if j != nil {
		_ = j.Close()
	}
}
