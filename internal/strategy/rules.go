package strategy

import (
	"fmt"

	"swarm/internal/market"
)

// 规则按分支顺序求值，第一个产出有效订单的分支胜出。

func conservativeRules(c market.Context, score float64, r Rand) *TradingDecision {
	if c.Cash < c.MidPrice*1.5 {
		return nil
	}
	if c.PositionQty == 0 {
		switch {
		case c.PriceChange < -0.02:
			price := c.BestBid + uniform(r, 0, c.Spread*0.1)
			if d := limitOrder(c, ActionBuy, price, sized(c, 0.08, 8), score*1.3,
				"Conservative: Value buy on dip ("+pct(c.PriceChange)+")"); d != nil {
				return d
			}
		case c.PriceChange < -0.01 && c.SpreadPct > 0.0005:
			price := c.BestBid + uniform(r, 0, c.Spread*0.1)
			if d := limitOrder(c, ActionBuy, price, sized(c, 0.05, 5), score,
				"Conservative: Accumulate on dip ("+pct(c.PriceChange)+")"); d != nil {
				return d
			}
		}
	}
	if c.PositionQty > 0 {
		exit := c.BestAsk - c.Spread*0.1
		switch {
		case c.PriceChange > 0.05:
			return limitOrder(c, ActionSell, exit, min(c.PositionQty, 5), score*1.2,
				"Conservative: Take profit on gain ("+pct(c.PriceChange)+")")
		case c.PriceChange < -0.10:
			return limitOrder(c, ActionSell, exit, min(c.PositionQty, 3), score*1.5,
				"Conservative: Stop loss on severe drop ("+pct(c.PriceChange)+")")
		}
	}
	return nil
}

func aggressiveRules(c market.Context, score float64, r Rand) *TradingDecision {
	if c.Cash > c.MidPrice*1.2 {
		switch {
		case c.PriceChange > 0.002:
			if d := orderOf(c, r, 0.4, ActionBuy, c.BestBid+uniform(r, 0, c.Spread*0.1), sized(c, 0.25, 30), score*1.5,
				"Aggressive: Momentum buy ("+pct(c.PriceChange)+")"); d != nil {
				return d
			}
		case c.SpreadPct > 0.0008 && score > 0.15:
			if d := limitOrder(c, ActionBuy, c.BestBid+uniform(r, 0, c.Spread*0.15), sized(c, 0.2, 20), score,
				"Aggressive: Spread capture ("+spreadPct(c.SpreadPct)+")"); d != nil {
				return d
			}
		}
	}
	if c.PositionQty > 0 {
		switch {
		case c.PriceChange < -0.003:
			return orderOf(c, r, 0.5, ActionSell, c.BestAsk-c.Spread*0.1, min(c.PositionQty, 20), score*1.4,
				"Aggressive: Quick exit on reversal ("+pct(c.PriceChange)+")")
		case c.PriceChange > 0.01:
			return limitOrder(c, ActionSell, c.BestAsk-c.Spread*0.05, min(c.PositionQty, 15), score*1.3,
				"Aggressive: Take profit ("+pct(c.PriceChange)+")")
		}
	}
	if c.CanShort() && c.PriceChange < -0.002 {
		return orderOf(c, r, 0.3, ActionSell, c.BestAsk-uniform(r, 0, c.Spread*0.1), sized(c, 0.15, 15), score*1.3,
			"Aggressive: Short on momentum down ("+pct(c.PriceChange)+")")
	}
	return nil
}

func newsTraderRules(c market.Context, score float64, r Rand) *TradingDecision {
	if c.HasRecentNews && c.Cash > c.MidPrice*1.5 {
		if d := orderOf(c, r, 0.6, ActionBuy, c.MidPrice, sized(c, 0.18, 18), score*1.6,
			"News trader: Reacting to news event"); d != nil {
			return d
		}
	}
	if c.PositionQty > 0 && !c.HasRecentNews && c.PriceChange > 0.02 {
		return limitOrder(c, ActionSell, c.BestAsk-c.Spread*0.1, min(c.PositionQty, 12), score*1.2,
			"News trader: Exit after news priced in")
	}
	return nil
}

func marketMakerRules(c market.Context, score float64, r Rand) *TradingDecision {
	if c.SpreadPct < 0.0005 {
		return nil
	}
	if c.Cash > c.MidPrice*2 && chance(r, 0.5) {
		if d := limitOrder(c, ActionBuy, c.BestBid+uniform(r, 0, c.Spread*0.3), sized(c, 0.12, 12), score,
			"Market maker: Place bid (spread "+spreadPct(c.SpreadPct)+")"); d != nil {
			return d
		}
	}
	if c.PositionQty > 0 && c.SpreadPct > 0.0008 {
		return limitOrder(c, ActionSell, c.BestAsk-uniform(r, 0, c.Spread*0.3), min(c.PositionQty, 10), score,
			"Market maker: Place ask (spread "+spreadPct(c.SpreadPct)+")")
	}
	return nil
}

func momentumRules(c market.Context, score float64, r Rand) *TradingDecision {
	if c.PriceChange > 0.001 && c.Cash > c.MidPrice*1.3 {
		if d := limitOrder(c, ActionBuy, c.BestBid+uniform(r, 0, c.Spread*0.1), sized(c, 0.2, 20), score*1.5,
			"Momentum: Follow uptrend ("+pct(c.PriceChange)+")"); d != nil {
			return d
		}
	}
	if c.PositionQty > 0 && c.PriceChange < -0.002 {
		return limitOrder(c, ActionSell, c.BestAsk-c.Spread*0.1, min(c.PositionQty, 15), score*1.3,
			"Momentum: Exit on trend reversal ("+pct(c.PriceChange)+")")
	}
	if c.CanShort() && c.PriceChange < -0.002 {
		return limitOrder(c, ActionSell, c.BestAsk-uniform(r, 0, c.Spread*0.1), sized(c, 0.15, 15), score*1.4,
			"Momentum: Short on downtrend ("+pct(c.PriceChange)+")")
	}
	return nil
}

func shortSellerRules(c market.Context, score float64, r Rand) *TradingDecision {
	if c.PositionQty < 0 {
		short := -c.PositionQty
		switch {
		case c.PriceChange < -0.01:
			return limitOrder(c, ActionBuy, c.BestBid+c.Spread*0.1, min(short, 20), score*1.6,
				"Short seller: Cover on profit ("+pct(c.PriceChange)+")")
		case c.PriceChange > 0.005:
			return limitOrder(c, ActionBuy, c.BestBid+c.Spread*0.15, min(short, 15), score*1.5,
				"Short seller: Cover on reversal/stop loss ("+pct(c.PriceChange)+")")
		}
	}
	if c.CanShort() && c.PositionQty >= 0 {
		switch {
		case c.PriceChange > 0.003:
			return limitOrder(c, ActionSell, c.BestAsk-uniform(r, 0, c.Spread*0.1), sized(c, 0.18, 18), score*1.5,
				"Short seller: Short on uptick ("+pct(c.PriceChange)+")")
		case c.PriceChange < -0.002:
			return limitOrder(c, ActionSell, c.BestAsk-uniform(r, 0, c.Spread*0.1), sized(c, 0.15, 15), score*1.3,
				"Short seller: Short on momentum down ("+pct(c.PriceChange)+")")
		}
	}
	return nil
}

func whaleRules(c market.Context, score float64, r Rand) *TradingDecision {
	if c.Cash < c.MidPrice*2 {
		return nil
	}
	if c.PriceChange > 0.0001 || c.SpreadPct > 0.0003 {
		qty := min(200, int(c.Cash/c.MidPrice*uniform(r, 0.3, 0.5)))
		if d := orderOf(c, r, 0.8, ActionBuy, c.BestBid+uniform(r, 0, c.Spread*0.2), qty, score*2.0,
			fmt.Sprintf("Whale: Large buy to create upward movement (%d shares, %s)", qty, pct(c.PriceChange))); d != nil {
			return d
		}
	}
	if c.PositionQty > 0 && (c.PriceChange < -0.0001 || c.SpreadPct > 0.0003) {
		qty := min(c.PositionQty, 150)
		if d := orderOf(c, r, 0.8, ActionSell, c.BestAsk-c.Spread*0.1, qty, score*2.0,
			fmt.Sprintf("Whale: Large sell to create downward movement (%d shares, %s)", qty, pct(c.PriceChange))); d != nil {
			return d
		}
	}
	if c.CanShort() && (c.PriceChange < 0.0001 || (c.SpreadPct > 0.0005 && score > 0.05)) {
		qty := min(150, int(c.Cash/c.MidPrice*uniform(r, 0.25, 0.4)))
		if d := orderOf(c, r, 0.75, ActionSell, c.BestAsk-uniform(r, 0, c.Spread*0.15), qty, score*1.8,
			fmt.Sprintf("Whale: Large short to drive price down (%d shares, %s)", qty, pct(c.PriceChange))); d != nil {
			return d
		}
	}
	if chance(r, 0.1) && c.Cash > c.MidPrice*2 {
		qty := sized(c, 0.2, 100)
		action := ActionSell
		if chance(r, 0.6) {
			action = ActionBuy
		}
		return marketOrder(c, action, qty, 0.5,
			fmt.Sprintf("Whale: Random large %s to create volatility (%d shares)", action, qty))
	}
	return nil
}

func predatorRules(c market.Context, score float64, r Rand) *TradingDecision {
	if c.Cash < c.MidPrice*1.5 {
		return nil
	}
	switch {
	case c.PriceChange > 0.002:
		if c.CanShort() {
			qty := min(80, int(c.Cash/c.MidPrice*uniform(r, 0.2, 0.35)))
			if d := limitOrder(c, ActionSell, c.BestAsk-uniform(r, 0, c.Spread*0.15), qty, score*1.8,
				fmt.Sprintf("Predator: Counter-short on whale buying spike (%d shares, price up %s)", qty, pct(c.PriceChange))); d != nil {
				return d
			}
		} else if c.PositionQty > 0 {
			qty := min(c.PositionQty, 60)
			if d := limitOrder(c, ActionSell, c.BestAsk-c.Spread*0.1, qty, score*1.5,
				fmt.Sprintf("Predator: Exit position on whale buying spike (%d shares)", qty)); d != nil {
				return d
			}
		}
	case c.PriceChange < -0.002:
		qty := min(80, int(c.Cash/c.MidPrice*uniform(r, 0.2, 0.35)))
		if d := limitOrder(c, ActionBuy, c.BestBid-uniform(r, 0, c.Spread*0.2), qty, score*1.8,
			fmt.Sprintf("Predator: Counter-buy on whale selling drop (%d shares, price down %s)", qty, pct(c.PriceChange))); d != nil {
			return d
		}
	}

	imbalance := c.BidDepth - c.AskDepth
	if (imbalance > 10 || imbalance < -10) && c.AbsChange() > 0.002 {
		switch {
		case c.BidDepth > c.AskDepth+15 && c.PriceChange > 0.001:
			if c.CanShort() {
				if d := limitOrder(c, ActionSell, c.BestAsk-c.Spread*0.1, sized(c, 0.25, 70), score*1.6,
					fmt.Sprintf("Predator: Short on orderbook imbalance (bids:%d vs asks:%d)", c.BidDepth, c.AskDepth)); d != nil {
					return d
				}
			}
		case c.AskDepth > c.BidDepth+15 && c.PriceChange < -0.001:
			if d := limitOrder(c, ActionBuy, c.BestBid+c.Spread*0.1, sized(c, 0.25, 70), score*1.6,
				fmt.Sprintf("Predator: Buy on orderbook imbalance (asks:%d vs bids:%d)", c.AskDepth, c.BidDepth)); d != nil {
				return d
			}
		}
	}

	if c.PositionQty > 0 && c.PriceChange > 0.003 {
		qty := min(c.PositionQty, 50)
		if d := limitOrder(c, ActionSell, c.BestAsk-c.Spread*0.05, qty, score*1.4,
			fmt.Sprintf("Predator: Take profit on whale-induced spike (%d shares)", qty)); d != nil {
			return d
		}
	}

	switch {
	case c.PriceChange > 0.005 && c.CanShort():
		qty := sized(c, 0.2, 60)
		return limitOrder(c, ActionSell, c.BestAsk-c.Spread*0.1, qty, score*1.5,
			fmt.Sprintf("Predator: Fade extreme upward move (%d shares, %s)", qty, pct(c.PriceChange)))
	case c.PriceChange < -0.005:
		qty := sized(c, 0.2, 60)
		return limitOrder(c, ActionBuy, c.BestBid+c.Spread*0.1, qty, score*1.5,
			fmt.Sprintf("Predator: Fade extreme downward move (%d shares, %s)", qty, pct(c.PriceChange)))
	}
	return nil
}

func neutralRules(c market.Context, score float64, r Rand) *TradingDecision {
	if c.Cash > c.MidPrice*2 {
		if c.SpreadPct > 0.0005 {
			if d := limitOrder(c, ActionBuy, c.BestBid+uniform(r, 0, c.Spread*0.1), sized(c, 0.12, 12), score,
				"Neutral: Balanced trade (spread "+spreadPct(c.SpreadPct)+")"); d != nil {
				return d
			}
		}
		if c.PriceChange < -0.005 {
			if d := limitOrder(c, ActionBuy, c.BestBid+uniform(r, 0, c.Spread*0.15), sized(c, 0.1, 10), score*1.1,
				"Neutral: Value buy on dip ("+pct(c.PriceChange)+")"); d != nil {
				return d
			}
		}
	}
	if c.PositionQty > 0 && c.PriceChange > 0.01 {
		return limitOrder(c, ActionSell, c.BestAsk-c.Spread*0.1, min(c.PositionQty, 8), score*1.1,
			"Neutral: Take profit on gain ("+pct(c.PriceChange)+")")
	}
	return nil
}
