package strategy

import (
	"fmt"

	"swarm/internal/logger"
	"swarm/internal/market"
)

// Ensemble 组合启发式与分类器两路投票，按人格加权后取最高分，再做人格过滤。
type Ensemble struct {
	personality Personality
	heuristic   Strategy
	classifier  Strategy
	rnd         Rand
	log         logger.Scope
}

type EnsembleOption func(*Ensemble)

// WithClassifier 启用分类器投票；m 为 nil 时等价于不启用。
func WithClassifier(m *Model) EnsembleOption {
	return func(e *Ensemble) {
		if m != nil {
			e.classifier = NewClassifierStrategy(m, e.personality.ConfidenceFloor())
		}
	}
}

// WithStrategies 覆盖两路投票的实现，主要用于测试。
func WithStrategies(heuristic, classifier Strategy) EnsembleOption {
	return func(e *Ensemble) {
		e.heuristic = heuristic
		e.classifier = classifier
	}
}

func WithLogScope(s logger.Scope) EnsembleOption {
	return func(e *Ensemble) { e.log = s }
}

func NewEnsemble(p Personality, r Rand, opts ...EnsembleOption) *Ensemble {
	e := &Ensemble{
		personality: p,
		heuristic:   NewHeuristicStrategy(p, r),
		rnd:         r,
		log:         logger.For(p.String()),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Ensemble) Personality() Personality { return e.personality }

// Decide 对单个标的给出最终决策；任何一路投票出错只丢弃该票。
func (e *Ensemble) Decide(c market.Context) *TradingDecision {
	w := e.personality.Weight()

	var best *TradingDecision
	if e.classifier != nil {
		if d := e.vote("classifier", e.classifier, c); d != nil {
			d.Score *= w
			best = d
		}
	}
	if d := e.vote("heuristic", e.heuristic, c); d != nil {
		d.Score *= 1 - w/2
		if best == nil || d.Score > best.Score {
			best = d
		}
	}
	if best == nil {
		return nil
	}
	if f := e.personality.profile().filter; f != nil && f(best, c) {
		e.log.Debugf("#%d %s 被人格过滤 (score=%.3f)", c.InstrumentID, best.Action, best.Score)
		return nil
	}
	if opensShort(best, c) && !c.CanShort() {
		e.log.Debugf("#%d 做空被拒: cash=%.2f mid=%.2f", c.InstrumentID, c.Cash, c.MidPrice)
		return nil
	}
	return best
}

func (e *Ensemble) vote(name string, s Strategy, c market.Context) (d *TradingDecision) {
	if s == nil {
		return nil
	}
	defer func() {
		if r := recover(); r != nil {
			e.log.Warnf("%s 策略 panic，丢弃本票: %v", name, r)
			d = nil
		}
	}()
	out, err := s.Decide(c)
	if err != nil {
		e.log.Debugf("%s 策略失败: %v", name, err)
		return nil
	}
	if out == nil || out.Action == ActionHold {
		return nil
	}
	cp := *out
	return &cp
}

// Scan 打乱标的顺序后逐个求值，跳过 skip 返回 true 的标的，返回分数最高的决策。
// 打乱顺序保证同分时不会总偏向同一个标的。
func (e *Ensemble) Scan(ctxs []market.Context, skip func(id int) bool) *TradingDecision {
	order := make([]market.Context, len(ctxs))
	copy(order, ctxs)
	e.rnd.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })

	var best *TradingDecision
	bestScore := 0.0
	for _, c := range order {
		if skip != nil && skip(c.InstrumentID) {
			continue
		}
		d := e.Decide(c)
		if d == nil {
			continue
		}
		if d.Score > bestScore {
			best, bestScore = d, d.Score
		}
	}
	if best != nil {
		e.log.Debugf("选中 %s", best)
	}
	return best
}

func (e *Ensemble) String() string {
	return fmt.Sprintf("ensemble(%s, w=%.1f, classifier=%t)", e.personality, e.personality.Weight(), e.classifier != nil)
}
