package strategy

import (
	"fmt"

	"github.com/shopspring/decimal"

	"swarm/internal/market"
)

// baseScore 衡量单个标的的机会强度：流动性、价差、波动与新闻各自加分。
func baseScore(c market.Context) float64 {
	score := 0.0
	if c.SpreadPct > 0 {
		score += 0.15
	}
	if c.SpreadPct > 0.001 {
		score += c.SpreadPct * 15
	}
	if c.AbsChange() > 0.005 {
		score += c.AbsChange() * 5
	}
	if c.HasRecentNews {
		score += 0.3
	}
	return score
}

// sized 按可用资金的 fraction 计算下单量，并限制在 limit 以内。
func sized(c market.Context, fraction float64, limit int) int {
	if c.MidPrice <= 0 {
		return 0
	}
	return min(limit, int(c.Cash/c.MidPrice*fraction))
}

func roundPrice(v float64) float64 {
	f, _ := decimal.NewFromFloat(v).Round(2).Float64()
	return f
}

func pct(v float64) string { return fmt.Sprintf("%.2f%%", v*100) }

func spreadPct(v float64) string { return fmt.Sprintf("%.3f%%", v*100) }

// limitOrder 构造限价单；价格四舍五入到分，非正价格或数量直接丢弃。
func limitOrder(c market.Context, action Action, price float64, qty int, score float64, reasoning string) *TradingDecision {
	price = roundPrice(price)
	if price <= 0 || qty <= 0 {
		return nil
	}
	return &TradingDecision{
		Action:       action,
		InstrumentID: c.InstrumentID,
		Kind:         OrderLimit,
		Price:        price,
		Quantity:     qty,
		Reasoning:    reasoning,
		Score:        score,
		Origin:       OriginHeuristic,
	}
}

func marketOrder(c market.Context, action Action, qty int, score float64, reasoning string) *TradingDecision {
	if qty <= 0 {
		return nil
	}
	return &TradingDecision{
		Action:       action,
		InstrumentID: c.InstrumentID,
		Kind:         OrderMarket,
		Quantity:     qty,
		Reasoning:    reasoning,
		Score:        score,
		Origin:       OriginHeuristic,
	}
}

// orderOf 以概率 pMarket 下市价单，否则按 limitPrice 下限价单。
func orderOf(c market.Context, r Rand, pMarket float64, action Action, limitPrice float64, qty int, score float64, reasoning string) *TradingDecision {
	if chance(r, pMarket) {
		return marketOrder(c, action, qty, score, reasoning)
	}
	return limitOrder(c, action, limitPrice, qty, score, reasoning)
}
