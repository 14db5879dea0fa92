package strategy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHeuristicRules(t *testing.T) {
	cases := []struct {
		name      string
		p         Personality
		bid, ask  float64
		change    float64
		cash      float64
		pos       int
		news      bool
		action    Action
		kind      OrderKind
		price     float64
		qty       int
		reasoning string
	}{
		{name: "conservative stop loss", p: Conservative, bid: 99, ask: 101, change: -0.15, cash: 10000, pos: 10,
			action: ActionSell, kind: OrderLimit, price: 100.8, qty: 3, reasoning: "Stop loss"},
		{name: "conservative take profit", p: Conservative, bid: 99, ask: 101, change: 0.06, cash: 10000, pos: 10,
			action: ActionSell, kind: OrderLimit, price: 100.8, qty: 5, reasoning: "Take profit"},
		{name: "aggressive momentum market buy", p: Aggressive, bid: 99, ask: 101, change: 0.01, cash: 10000,
			action: ActionBuy, kind: OrderMarket, qty: 25, reasoning: "Momentum buy"},
		{name: "news trader reacts", p: NewsTrader, bid: 99, ask: 101, cash: 10000, news: true,
			action: ActionBuy, kind: OrderMarket, qty: 18, reasoning: "news event"},
		{name: "market maker bids inside spread", p: MarketMaker, bid: 99, ask: 101, cash: 100000,
			action: ActionBuy, kind: OrderLimit, price: 99, qty: 12, reasoning: "Place bid"},
		{name: "momentum follows uptrend", p: Momentum, bid: 99, ask: 101, change: 0.004, cash: 10000,
			action: ActionBuy, kind: OrderLimit, price: 99, qty: 20, reasoning: "uptrend"},
		{name: "short seller covers on profit", p: ShortSeller, bid: 99, ask: 101, change: -0.02, cash: 10000, pos: -30,
			action: ActionBuy, kind: OrderLimit, price: 99.2, qty: 20, reasoning: "Cover on profit"},
		{name: "whale large buy", p: Whale, bid: 99, ask: 101, change: 0.01, cash: 100000,
			action: ActionBuy, kind: OrderMarket, qty: 200, reasoning: "Large buy"},
		{name: "whale random trade", p: Whale, bid: 99.995, ask: 100.005, change: 0.0001, cash: 100000,
			action: ActionBuy, kind: OrderMarket, qty: 100, reasoning: "Random large BUY"},
		{name: "predator counter buy", p: Predator, bid: 99, ask: 101, change: -0.01, cash: 1000,
			action: ActionBuy, kind: OrderLimit, price: 99, qty: 2, reasoning: "Counter-buy"},
		{name: "neutral spread trade", p: Neutral, bid: 99, ask: 101, cash: 10000,
			action: ActionBuy, kind: OrderLimit, price: 99, qty: 12, reasoning: "Balanced trade (spread 2.000%)"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := ctxOf(1, tc.bid, tc.ask, tc.change, tc.cash, tc.pos)
			c.HasRecentNews = tc.news
			d, err := NewHeuristicStrategy(tc.p, fixedRand{}).Decide(c)
			require.NoError(t, err)
			require.NotNil(t, d)
			assert.Equal(t, tc.action, d.Action)
			assert.Equal(t, tc.kind, d.Kind)
			assert.InDelta(t, tc.price, d.Price, 1e-9)
			assert.Equal(t, tc.qty, d.Quantity)
			assert.Contains(t, d.Reasoning, tc.reasoning)
			assert.Equal(t, OriginHeuristic, d.Origin)
		})
	}
}

func TestHeuristicRulesHold(t *testing.T) {
	cases := []struct {
		name   string
		p      Personality
		bid    float64
		ask    float64
		change float64
		cash   float64
		pos    int
	}{
		{"conservative moderate loss keeps position", Conservative, 99, 101, -0.05, 10000, 10},
		{"conservative short of cash", Conservative, 99, 101, -0.05, 100, 0},
		{"neutral tight spread", Neutral, 99.995, 100.005, 0, 10000, 0},
		{"market maker tight spread", MarketMaker, 99.985, 100.015, 0.01, 100000, 10},
		{"whale short of cash", Whale, 99, 101, 0.01, 150, 0},
		{"momentum cannot short", Momentum, 99, 101, -0.01, 200, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d, err := NewHeuristicStrategy(tc.p, fixedRand{}).Decide(ctxOf(1, tc.bid, tc.ask, tc.change, tc.cash, tc.pos))
			require.NoError(t, err)
			assert.Nil(t, d)
		})
	}
}

func TestBaseScore(t *testing.T) {
	c := ctxOf(1, 99, 101, -0.03, 0, 0)
	c.HasRecentNews = true
	assert.InDelta(t, 0.15+0.02*15+0.03*5+0.3, baseScore(c), 1e-9)

	c = ctxOf(1, 99.995, 100.005, 0.001, 0, 0)
	assert.InDelta(t, 0.15, baseScore(c), 1e-9)
}

func TestRoundPrice(t *testing.T) {
	assert.Equal(t, 99.13, roundPrice(99.125000001))
	assert.Equal(t, 0.0, roundPrice(0.004))
	assert.Nil(t, limitOrder(ctxOf(1, 0.01, 0.02, 0, 100, 0), ActionBuy, 0.004, 1, 1, ""))
}
