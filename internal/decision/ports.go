package decision

import (
	"context"
	"time"

	"swarm/internal/market"
	"swarm/internal/strategy"
)

// MarketView 是 agent 读取行情的只读视图，实现方负责并发安全。
type MarketView interface {
	Snapshot() market.Snapshot
	// News 返回最近 n 条新闻，旧的在前。
	News(n int) []market.NewsItem
}

// Order 是发往撮合端的下单请求。MARKET 单 Price 为 0。
type Order struct {
	AgentID      string
	InstrumentID int
	Side         strategy.Action
	Kind         strategy.OrderKind
	Price        float64
	Quantity     int
}

type OrderGateway interface {
	PlaceOrder(ctx context.Context, o Order) error
}

type Prompt struct {
	Agent  string
	System string
	User   string
}

// ExternalSource 是高延迟的外部决策源（通常是大模型），返回原始文本。
type ExternalSource interface {
	Consult(ctx context.Context, p Prompt) (string, error)
}

// Decider 在多个标的之间挑出最优决策，nil 表示 HOLD。
type Decider interface {
	Scan(ctxs []market.Context, skip func(instrumentID int) bool) *strategy.TradingDecision
}

// CycleRecord 是写入决策日志的一条记录。
type CycleRecord struct {
	TraceID     string
	AgentID     string
	AgentName   string
	Personality string
	Outcome     Outcome
	Source      Source
	Decision    *strategy.TradingDecision
	Context     string
	Error       string
	StartedAt   time.Time
	Elapsed     time.Duration
}

type Journal interface {
	Record(ctx context.Context, rec CycleRecord) error
}
