package decision

import (
	"fmt"
	"strconv"
	"strings"

	"swarm/internal/market"
	"swarm/internal/pkg/text"
	"swarm/internal/strategy"
)

const (
	promptNewsItems  = 3
	promptNewsLength = 100
)

const basePrompt = `You are %s, a trading agent with a %s personality.
Your goal is to maximize profit through intelligent trading decisions.
You have access to real-time orderbook data, news, and your portfolio.
Make decisions based on market conditions, news, and your risk tolerance.`

var personalityPrompts = map[strategy.Personality]string{
	strategy.Conservative: "You are risk-averse. Prefer small positions, limit orders, and wait for clear opportunities.",
	strategy.Aggressive:   "You are risk-seeking. Take larger positions, use market orders when needed, and act quickly.",
	strategy.NewsTrader:   "You react strongly to news. When news breaks, analyze its impact and trade accordingly.",
	strategy.MarketMaker:  "You provide liquidity. Place limit orders on both sides to capture spreads.",
	strategy.Momentum:     "You follow trends. Buy when prices are rising, sell when falling.",
	strategy.Neutral:      "You balance risk and reward. Make rational decisions based on available information.",
}

const replyContract = `Decide: BUY/SELL/HOLD. Respond ONLY with JSON:
{
    "action": "BUY|SELL|HOLD",
    "symbol_id": <id>,
    "order_type": "LIMIT|MARKET",
    "price": <price>,
    "quantity": <qty>,
    "reasoning": "<brief>"
}`

// SystemPrompt 没有专属描述的人格使用 neutral 的描述。
func SystemPrompt(name string, p strategy.Personality) string {
	extra, ok := personalityPrompts[p]
	if !ok {
		extra = personalityPrompts[strategy.Neutral]
	}
	return fmt.Sprintf(basePrompt, name, p) + "\n\n" + extra
}

func UserPrompt(context string) string {
	return "Market: " + context + "\n\n" + replyContract
}

// RenderContext 渲染决策上下文，既是外部决策源的输入，也是缓存 key 的原文。
// 同样的行情必须渲染出逐字节相同的文本，因此标的按 id 升序输出。
func RenderContext(snap market.Snapshot, news []market.NewsItem) string {
	var parts []string
	if p := snap.Portfolio; p.Populated() {
		parts = append(parts, fmt.Sprintf("Portfolio: Cash=$%.2f, Total Value=$%.2f, P&L=$%.2f", p.Cash, p.TotalValue, p.PnL))
	}
	for _, id := range snap.InstrumentIDs() {
		book := snap.Books[id]
		bid, okBid := book.BestBid()
		ask, okAsk := book.BestAsk()
		if !okBid || !okAsk {
			continue
		}
		parts = append(parts, fmt.Sprintf("Instrument %d: Bid=%s, Ask=%s, Spread=%.2f",
			id, formatPrice(bid), formatPrice(ask), ask-bid))
	}
	if len(news) > 0 {
		parts = append(parts, fmt.Sprintf("Recent news: %d items", len(news)))
		for _, n := range market.Latest(news, promptNewsItems) {
			parts = append(parts, "  - "+text.Head(n.Content, promptNewsLength))
		}
	}
	return strings.Join(parts, "\n")
}

func formatPrice(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
