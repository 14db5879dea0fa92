package strategy

import "swarm/internal/market"

// filterFunc 返回 true 表示拒绝该决策；允许就地调整 Quantity。
type filterFunc func(d *TradingDecision, c market.Context) bool

func conservativeFilter(d *TradingDecision, _ market.Context) bool {
	if d.Score < 0.3 {
		return true
	}
	d.Quantity = min(d.Quantity, 5)
	return false
}

func aggressiveFilter(d *TradingDecision, _ market.Context) bool {
	if d.Score < 0.3 {
		return true
	}
	d.Quantity = min(d.Quantity, 50)
	return false
}

func marketMakerFilter(_ *TradingDecision, c market.Context) bool {
	return c.SpreadPct < 0.0005
}

func shortSellerFilter(d *TradingDecision, _ market.Context) bool {
	if d.Score < 0.2 {
		return true
	}
	if d.Action == ActionSell {
		d.Quantity = min(d.Quantity, 20)
	}
	return false
}

// whaleFilter 只设下限不设上限，保证每笔都足以推动价格。
func whaleFilter(d *TradingDecision, _ market.Context) bool {
	if d.Score < 0.05 {
		return true
	}
	d.Quantity = max(d.Quantity, 50)
	return false
}

func predatorFilter(d *TradingDecision, _ market.Context) bool {
	if d.Score < 0.15 {
		return true
	}
	d.Quantity = min(max(d.Quantity, 30), 200)
	return false
}

// opensShort 判断一笔 SELL 是否超出现有多头，即包含做空部分。
func opensShort(d *TradingDecision, c market.Context) bool {
	if d.Action != ActionSell {
		return false
	}
	long := max(c.PositionQty, 0)
	return d.Quantity > long
}
