package strategy

import (
	"fmt"

	"swarm/internal/market"
)

// ClassifierStrategy 把模型输出转换成小额限价单。
type ClassifierStrategy struct {
	model *Model
	floor float64
}

func NewClassifierStrategy(m *Model, confidenceFloor float64) *ClassifierStrategy {
	return &ClassifierStrategy{model: m, floor: confidenceFloor}
}

func (s *ClassifierStrategy) Decide(c market.Context) (*TradingDecision, error) {
	if s.model == nil {
		return nil, fmt.Errorf("classifier model not loaded")
	}
	if c.MidPrice <= 0 {
		return nil, nil
	}
	action, confidence := s.model.Predict(Features(c))
	if confidence < s.floor || action == ActionHold {
		return nil, nil
	}

	var qty int
	var price float64
	switch action {
	case ActionBuy:
		if c.Cash < c.MidPrice*2 {
			return nil, nil
		}
		qty = min(10, int(c.Cash/c.MidPrice*0.1))
		price = c.BestBid + c.Spread*0.1
	case ActionSell:
		if c.PositionQty <= 0 && !c.CanShort() {
			return nil, nil
		}
		held := 5
		if c.PositionQty > 0 {
			held = c.PositionQty
		}
		qty = min(held, 10)
		price = c.BestAsk - c.Spread*0.1
	}

	d := limitOrder(c, action, price, qty, confidence,
		fmt.Sprintf("ML prediction: %s (confidence: %s)", action, pct(confidence)))
	if d != nil {
		d.Origin = OriginClassifier
	}
	return d, nil
}
