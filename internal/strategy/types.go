package strategy

import (
	"fmt"

	"swarm/internal/market"
)

type Action string

const (
	ActionBuy  Action = "BUY"
	ActionSell Action = "SELL"
	ActionHold Action = "HOLD"
)

type OrderKind string

const (
	OrderLimit  OrderKind = "LIMIT"
	OrderMarket OrderKind = "MARKET"
)

// Origin 标记决策出自哪一类策略，仅用于日志与落库。
type Origin string

const (
	OriginHeuristic  Origin = "heuristic"
	OriginClassifier Origin = "classifier"
	OriginExternal   Origin = "external"
)

// TradingDecision 是一次交易意图。MARKET 单的 Price 固定为 0；
// Score 只用于候选排序，不参与下单。
type TradingDecision struct {
	Action       Action
	InstrumentID int
	Kind         OrderKind
	Price        float64
	Quantity     int
	Reasoning    string
	Score        float64
	Origin       Origin
}

func (d TradingDecision) String() string {
	return fmt.Sprintf("%s %s #%d qty=%d price=%.2f score=%.3f (%s)",
		d.Action, d.Kind, d.InstrumentID, d.Quantity, d.Price, d.Score, d.Reasoning)
}

// Strategy 对单个标的给出决策；返回 nil 表示 HOLD。
type Strategy interface {
	Decide(c market.Context) (*TradingDecision, error)
}
