package strategy

import "swarm/internal/market"

// heuristicFunc 是单个人格的规则集，score 为基础机会分。
type heuristicFunc func(c market.Context, score float64, r Rand) *TradingDecision

// HeuristicStrategy 按人格规则给出决策，所有随机性来自注入的 Rand。
type HeuristicStrategy struct {
	personality Personality
	rules       heuristicFunc
	rnd         Rand
}

func NewHeuristicStrategy(p Personality, r Rand) *HeuristicStrategy {
	return &HeuristicStrategy{personality: p, rules: p.profile().rules, rnd: r}
}

func (s *HeuristicStrategy) Decide(c market.Context) (*TradingDecision, error) {
	if c.MidPrice <= 0 {
		return nil, nil
	}
	score := baseScore(c)
	if score <= 0 {
		return nil, nil
	}
	return s.rules(c, score, s.rnd), nil
}
