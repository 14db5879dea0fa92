package decision

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"swarm/internal/cache"
	"swarm/internal/logger"
	"swarm/internal/market"
	"swarm/internal/strategy"
)

type Stage string

const (
	StageObserve Stage = "OBSERVE"
	StageAnalyze Stage = "ANALYZE"
	StageDecide  Stage = "DECIDE"
	StageExecute Stage = "EXECUTE"
	StageSkip    Stage = "SKIP"
)

type Outcome string

const (
	OutcomeThrottled Outcome = "throttled"
	OutcomeNoData    Outcome = "no-data"
	OutcomeSkipped   Outcome = "skipped"
	OutcomeExecuted  Outcome = "executed"
	OutcomeRejected  Outcome = "rejected"
	OutcomeFailed    Outcome = "send-failed"
)

// Source 记录本周期的决策来自哪里。
type Source string

const (
	SourceEnsemble Source = "ensemble"
	SourceCache    Source = "cache"
	SourceExternal Source = "external"
	SourceGate     Source = "gate"
	SourceFallback Source = "fallback"
)

const (
	defaultNewsWindow    = 5
	defaultSourceTimeout = 15 * time.Second
)

// Identity 是 agent 的不可变身份信息。
type Identity struct {
	ID              string
	Name            string
	Personality     strategy.Personality
	StartingCapital float64
}

type Options struct {
	// Interval 是两次决策之间的最小间隔（节流）。
	Interval          time.Duration
	MinPriceChangePct float64
	NewsWindow        int
	SourceTimeout     time.Duration
}

type CycleResult struct {
	TraceID   string
	Path      []Stage
	Outcome   Outcome
	Source    Source
	Decision  *strategy.TradingDecision
	Err       error
	StartedAt time.Time
}

// Stats 是对外暴露的周期计数。
type Stats struct {
	Cycles       int64                     `json:"cycles"`
	Throttled    int64                     `json:"throttled"`
	Executed     int64                     `json:"executed"`
	Rejected     int64                     `json:"rejected"`
	Fallbacks    int64                     `json:"fallbacks"`
	CacheHits    int64                     `json:"cache_hits"`
	LastCycleAt  time.Time                 `json:"last_cycle_at"`
	LastOutcome  Outcome                   `json:"last_outcome,omitempty"`
	LastDecision *strategy.TradingDecision `json:"last_decision,omitempty"`
	Pending      []int                     `json:"pending"`
}

// Orchestrator 按 OBSERVE → ANALYZE → DECIDE → EXECUTE/SKIP 运行单个 agent 的决策周期。
// 节流检查与整个周期处于同一把锁内，同一 agent 不会有两个周期并发。
type Orchestrator struct {
	id      Identity
	opts    Options
	view    MarketView
	decider Decider
	gateway OrderGateway
	source  ExternalSource
	cache   *cache.DecisionCache
	journal Journal
	nowFn   func() time.Time
	log     logger.Scope

	mu    sync.Mutex
	state *AgentState

	// statsMu 独立于 mu，周期执行期间也能读取统计。
	statsMu sync.Mutex
	stats   Stats
}

type Option func(*Orchestrator)

// WithExternalSource 启用外部决策源；启用后才会做显著性判断。
func WithExternalSource(src ExternalSource, c *cache.DecisionCache) Option {
	return func(o *Orchestrator) {
		o.source = src
		o.cache = c
	}
}

func WithJournal(j Journal) Option {
	return func(o *Orchestrator) { o.journal = j }
}

func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) {
		if now != nil {
			o.nowFn = now
		}
	}
}

func NewOrchestrator(id Identity, view MarketView, decider Decider, gateway OrderGateway, opts Options, extra ...Option) *Orchestrator {
	if opts.NewsWindow <= 0 {
		opts.NewsWindow = defaultNewsWindow
	}
	if opts.SourceTimeout <= 0 {
		opts.SourceTimeout = defaultSourceTimeout
	}
	o := &Orchestrator{
		id:      id,
		opts:    opts,
		view:    view,
		decider: decider,
		gateway: gateway,
		nowFn:   time.Now,
		log:     logger.For(id.Name),
		state:   NewAgentState(),
	}
	for _, fn := range extra {
		fn(o)
	}
	return o
}

func (o *Orchestrator) Identity() Identity { return o.id }

func (o *Orchestrator) Stats() Stats {
	o.statsMu.Lock()
	defer o.statsMu.Unlock()
	s := o.stats
	s.Pending = append([]int(nil), o.stats.Pending...)
	return s
}

func (o *Orchestrator) updateStats(fn func(s *Stats)) {
	o.statsMu.Lock()
	fn(&o.stats)
	o.statsMu.Unlock()
}

// RunCycle 运行一个完整的决策周期。被节流的调用直接返回，不排队。
// 决策过程中的任何错误都只会体现在 CycleResult 上，不会向调度层传播。
func (o *Orchestrator) RunCycle(ctx context.Context) CycleResult {
	o.mu.Lock()
	defer o.mu.Unlock()

	now := o.nowFn()
	res := CycleResult{StartedAt: now}
	if last := o.state.LastDecisionTime; !last.IsZero() && now.Sub(last) < o.opts.Interval {
		o.updateStats(func(s *Stats) { s.Throttled++ })
		res.Outcome = OutcomeThrottled
		return res
	}
	o.state.PurgePending(now)

	// OBSERVE
	res.Path = append(res.Path, StageObserve)
	snap := o.view.Snapshot().Clone()
	if len(snap.Books) == 0 {
		o.log.Debugf("暂无盘口数据，跳过决策")
		res.Outcome = OutcomeNoData
		return res
	}
	o.state.LastDecisionTime = now
	res.TraceID = uuid.NewString()

	// ANALYZE
	res.Path = append(res.Path, StageAnalyze)
	news := o.view.News(o.opts.NewsWindow)
	mids := market.MidPrices(snap.Books)
	latestNews := ""
	if len(news) > 0 {
		latestNews = news[len(news)-1].ID
	}
	ctxs := market.Build(market.BuildInput{
		Snapshot:        snap,
		News:            news,
		LastMids:        o.state.LastMidPrices,
		StartingCapital: o.id.StartingCapital,
	})
	rendered := RenderContext(snap, news)

	// DECIDE
	res.Path = append(res.Path, StageDecide)
	res.Decision, res.Source = o.decide(ctx, rendered, ctxs, mids, latestNews, now)
	o.state.LastMidPrices = mids
	o.state.LastNewsID = latestNews

	if res.Decision == nil || res.Decision.Action == strategy.ActionHold {
		res.Path = append(res.Path, StageSkip)
		res.Outcome = OutcomeSkipped
	} else {
		res.Path = append(res.Path, StageExecute)
		res.Outcome, res.Err = o.execute(ctx, *res.Decision, ctxs, now)
	}

	o.finish(ctx, res, rendered)
	return res
}

func (o *Orchestrator) decide(ctx context.Context, rendered string, ctxs []market.Context, mids map[int]float64, latestNews string, now time.Time) (*strategy.TradingDecision, Source) {
	skip := func(id int) bool { return o.state.IsPending(id, now) }
	if o.source == nil {
		return o.decider.Scan(ctxs, skip), SourceEnsemble
	}
	if !o.significant(mids, latestNews) {
		o.log.Debugf("价格与新闻均无显著变化，跳过外部决策")
		return nil, SourceGate
	}

	key := cache.Key(rendered)
	if d, ok := o.cache.Get(key); ok {
		o.updateStats(func(s *Stats) { s.CacheHits++ })
		o.log.Debugf("命中决策缓存")
		return d, SourceCache
	}

	d, err := o.consult(ctx, rendered)
	if err != nil {
		o.updateStats(func(s *Stats) { s.Fallbacks++ })
		o.log.Warnf("外部决策失败，回退到组合策略: %v", err)
		return o.decider.Scan(ctxs, skip), SourceFallback
	}
	o.cache.Set(key, d)
	return d, SourceExternal
}

// consult 只尝试一次；调用使用独立于 agent 生命周期的超时上下文，停止 agent 不会打断它。
func (o *Orchestrator) consult(ctx context.Context, rendered string) (*strategy.TradingDecision, error) {
	callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), o.opts.SourceTimeout)
	defer cancel()
	raw, err := o.source.Consult(callCtx, Prompt{
		Agent:  o.id.Name,
		System: SystemPrompt(o.id.Name, o.id.Personality),
		User:   UserPrompt(rendered),
	})
	if err != nil {
		return nil, err
	}
	return ParseReply(raw)
}

// significant 任一标的首次出现或变动幅度达到阈值，或有新的新闻，即视为显著。
func (o *Orchestrator) significant(mids map[int]float64, latestNews string) bool {
	for id, mid := range mids {
		last, ok := o.state.LastMidPrices[id]
		if !ok || last == 0 {
			return true
		}
		change := (mid - last) / max(last, 1e-9)
		if change < 0 {
			change = -change
		}
		if change >= o.opts.MinPriceChangePct {
			return true
		}
	}
	return latestNews != "" && latestNews != o.state.LastNewsID
}

// validate 对所有来源一视同仁；外部或缓存的决策没有经过组合策略的过滤，做空能力也在这里补查。
func (o *Orchestrator) validate(d strategy.TradingDecision, ctxs []market.Context, now time.Time) error {
	switch {
	case d.Action != strategy.ActionBuy && d.Action != strategy.ActionSell:
		return fmt.Errorf("%w: unknown action %q", ErrInvalidDecision, d.Action)
	case d.InstrumentID <= 0:
		return fmt.Errorf("%w: missing instrument id", ErrInvalidDecision)
	case d.Quantity <= 0:
		return fmt.Errorf("%w: quantity %d", ErrInvalidDecision, d.Quantity)
	case d.Kind != strategy.OrderLimit && d.Kind != strategy.OrderMarket:
		return fmt.Errorf("%w: order kind %q", ErrInvalidDecision, d.Kind)
	case d.Kind == strategy.OrderLimit && d.Price <= 0:
		return fmt.Errorf("%w: limit price %.4f", ErrInvalidDecision, d.Price)
	case o.state.IsPending(d.InstrumentID, now):
		return fmt.Errorf("%w: instrument %d has a pending order", ErrInvalidDecision, d.InstrumentID)
	}
	c, ok := contextFor(ctxs, d.InstrumentID)
	if !ok {
		return fmt.Errorf("%w: instrument %d has no two-sided quote", ErrInvalidDecision, d.InstrumentID)
	}
	if d.Action == strategy.ActionSell && d.Quantity > max(c.PositionQty, 0) && !c.CanShort() {
		return fmt.Errorf("%w: sell %d exceeds position %d and cash %.2f cannot cover a short at mid %.2f",
			ErrInvalidDecision, d.Quantity, c.PositionQty, c.Cash, c.MidPrice)
	}
	return nil
}

func contextFor(ctxs []market.Context, id int) (market.Context, bool) {
	for _, c := range ctxs {
		if c.InstrumentID == id {
			return c, true
		}
	}
	return market.Context{}, false
}

func (o *Orchestrator) execute(ctx context.Context, d strategy.TradingDecision, ctxs []market.Context, now time.Time) (Outcome, error) {
	if err := o.validate(d, ctxs, now); err != nil {
		o.log.Warnf("丢弃决策 %s: %v", d, err)
		return OutcomeRejected, err
	}
	order := Order{
		AgentID:      o.id.ID,
		InstrumentID: d.InstrumentID,
		Side:         d.Action,
		Kind:         d.Kind,
		Price:        d.Price,
		Quantity:     d.Quantity,
	}
	if order.Kind == strategy.OrderMarket {
		order.Price = 0
	}
	if err := o.gateway.PlaceOrder(ctx, order); err != nil {
		o.log.Errorf("下单失败 %s: %v", d, err)
		return OutcomeFailed, err
	}
	o.state.RegisterPending(d, now)
	o.log.Infof("%s %s #%d qty=%d price=%.2f | %s", d.Action, d.Kind, d.InstrumentID, d.Quantity, order.Price, d.Reasoning)
	return OutcomeExecuted, nil
}

func (o *Orchestrator) finish(ctx context.Context, res CycleResult, rendered string) {
	pending := o.state.PendingIDs(o.nowFn())
	o.updateStats(func(s *Stats) {
		s.Cycles++
		s.LastCycleAt = res.StartedAt
		s.LastOutcome = res.Outcome
		s.Pending = pending
		switch res.Outcome {
		case OutcomeExecuted:
			s.Executed++
			s.LastDecision = res.Decision
		case OutcomeRejected, OutcomeFailed:
			s.Rejected++
		}
	})
	if o.journal == nil {
		return
	}
	rec := CycleRecord{
		TraceID:     res.TraceID,
		AgentID:     o.id.ID,
		AgentName:   o.id.Name,
		Personality: o.id.Personality.String(),
		Outcome:     res.Outcome,
		Source:      res.Source,
		Decision:    res.Decision,
		Context:     rendered,
		StartedAt:   res.StartedAt,
		Elapsed:     o.nowFn().Sub(res.StartedAt),
	}
	if res.Err != nil {
		rec.Error = res.Err.Error()
	}
	if err := o.journal.Record(context.WithoutCancel(ctx), rec); err != nil && !errors.Is(err, context.Canceled) {
		o.log.Warnf("写入决策日志失败: %v", err)
	}
}
