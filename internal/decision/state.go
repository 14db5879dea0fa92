package decision

import (
	"sort"
	"time"

	"swarm/internal/strategy"
)

// PendingHorizon 之内同一标的不重复下单，不关心是否成交。
const PendingHorizon = 10 * time.Second

type PendingOrder struct {
	Price    float64
	Quantity int
	PlacedAt time.Time
}

// AgentState 只归属一个 agent 的编排器，由编排器的单飞锁保护。
type AgentState struct {
	LastMidPrices    map[int]float64
	LastNewsID       string
	LastDecisionTime time.Time
	Pending          map[int]PendingOrder
}

func NewAgentState() *AgentState {
	return &AgentState{
		LastMidPrices: make(map[int]float64),
		Pending:       make(map[int]PendingOrder),
	}
}

// PurgePending 删除超过 PendingHorizon 的挂单记录。
func (s *AgentState) PurgePending(now time.Time) {
	for id, p := range s.Pending {
		if now.Sub(p.PlacedAt) >= PendingHorizon {
			delete(s.Pending, id)
		}
	}
}

func (s *AgentState) IsPending(instrumentID int, now time.Time) bool {
	p, ok := s.Pending[instrumentID]
	return ok && now.Sub(p.PlacedAt) < PendingHorizon
}

func (s *AgentState) RegisterPending(d strategy.TradingDecision, now time.Time) {
	s.Pending[d.InstrumentID] = PendingOrder{Price: d.Price, Quantity: d.Quantity, PlacedAt: now}
}

// PendingIDs 返回仍在有效期内的挂单标的，主要给状态接口使用。
func (s *AgentState) PendingIDs(now time.Time) []int {
	out := make([]int, 0, len(s.Pending))
	for id := range s.Pending {
		if s.IsPending(id, now) {
			out = append(out, id)
		}
	}
	sort.Ints(out)
	return out
}
