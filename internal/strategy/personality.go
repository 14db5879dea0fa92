package strategy

import "strings"

// Personality 是 agent 的固定交易人格，决定启用哪套规则、权重与过滤条件。
type Personality int

const (
	Neutral Personality = iota
	Conservative
	Aggressive
	NewsTrader
	MarketMaker
	Momentum
	ShortSeller
	Whale
	Predator
)

var personalityNames = [...]string{
	Neutral:      "neutral",
	Conservative: "conservative",
	Aggressive:   "aggressive",
	NewsTrader:   "news_trader",
	MarketMaker:  "market_maker",
	Momentum:     "momentum",
	ShortSeller:  "short_seller",
	Whale:        "whale",
	Predator:     "predator",
}

func (p Personality) String() string {
	if p < 0 || int(p) >= len(personalityNames) {
		return personalityNames[Neutral]
	}
	return personalityNames[p]
}

func (p Personality) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

func lookupPersonality(name string) (Personality, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	for i, n := range personalityNames {
		if n == name {
			return Personality(i), true
		}
	}
	return Neutral, false
}

// ParsePersonality 不认识的名字一律按 neutral 处理。
func ParsePersonality(name string) Personality {
	p, _ := lookupPersonality(name)
	return p
}

func IsKnownPersonality(name string) bool {
	_, ok := lookupPersonality(name)
	return ok
}

func AllPersonalities() []Personality {
	out := make([]Personality, len(personalityNames))
	for i := range personalityNames {
		out[i] = Personality(i)
	}
	return out
}

// profile 汇总一个人格在组合层面的全部参数。
type profile struct {
	weight          float64
	confidenceFloor float64
	rules           heuristicFunc
	filter          filterFunc
}

var profiles = [...]profile{
	Neutral:      {weight: 0.5, confidenceFloor: 0.4, rules: neutralRules},
	Conservative: {weight: 0.3, confidenceFloor: 0.3, rules: conservativeRules, filter: conservativeFilter},
	Aggressive:   {weight: 0.7, confidenceFloor: 0.4, rules: aggressiveRules, filter: aggressiveFilter},
	NewsTrader:   {weight: 0.5, confidenceFloor: 0.4, rules: newsTraderRules},
	MarketMaker:  {weight: 0.2, confidenceFloor: 0.4, rules: marketMakerRules, filter: marketMakerFilter},
	Momentum:     {weight: 0.6, confidenceFloor: 0.4, rules: momentumRules},
	ShortSeller:  {weight: 0.4, confidenceFloor: 0.4, rules: shortSellerRules, filter: shortSellerFilter},
	Whale:        {weight: 0.3, confidenceFloor: 0.4, rules: whaleRules, filter: whaleFilter},
	Predator:     {weight: 0.4, confidenceFloor: 0.4, rules: predatorRules, filter: predatorFilter},
}

func (p Personality) profile() profile {
	if p < 0 || int(p) >= len(profiles) {
		return profiles[Neutral]
	}
	return profiles[p]
}

// Weight 是学习型分类器在组合中的权重 w；启发式分数乘以 (1 - w/2)。
func (p Personality) Weight() float64 { return p.profile().weight }

// ConfidenceFloor 分类器置信度低于该值时视为 HOLD。
func (p Personality) ConfidenceFloor() float64 { return p.profile().confidenceFloor }
