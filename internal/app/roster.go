package app

import (
	"fmt"
	"strings"
	"time"

	"swarm/internal/config"
	"swarm/internal/decision"
	"swarm/internal/scheduler"
	"swarm/internal/strategy"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const defaultRosterCapital = 100000.0

// seat 是一个待启动 agent 的完整规格。
type seat struct {
	identity decision.Identity
	interval time.Duration
	seed     uint64
}

type randSource interface {
	Float64() float64
	IntN(n int) int
	Uint64() uint64
}

// planRoster 先按 count 随机生成 agent，再追加 roster 中显式声明的 agent。
func planRoster(cfg config.AgentsConfig, r randSource) []seat {
	out := make([]seat, 0, cfg.Count+len(cfg.Roster))
	for i := 1; i <= cfg.Count; i++ {
		out = append(out, seat{
			identity: decision.Identity{
				ID:              uuid.NewString(),
				Name:            fmt.Sprintf("Agent_%d", i),
				Personality:     pickPersonality(cfg.Personalities, r),
				StartingCapital: drawCapital(cfg.StartingCapitalMin, cfg.StartingCapitalMax, r),
			},
			interval: scheduler.RandomizeInterval(cfg.Interval(), r),
			seed:     r.Uint64(),
		})
	}
	for _, e := range cfg.Roster {
		id := strings.TrimSpace(e.ID)
		if id == "" {
			id = uuid.NewString()
		}
		name := strings.TrimSpace(e.Name)
		if name == "" {
			name = "Agent_" + shortID(id)
		}
		capital := e.Capital
		if capital <= 0 {
			capital = defaultRosterCapital
		}
		base := cfg.Interval()
		if e.UpdateInterval > 0 {
			base = time.Duration(e.UpdateInterval * float64(time.Second))
		}
		out = append(out, seat{
			identity: decision.Identity{
				ID:              id,
				Name:            name,
				Personality:     strategy.ParsePersonality(e.Personality),
				StartingCapital: roundCents(capital),
			},
			interval: scheduler.RandomizeInterval(base, r),
			seed:     r.Uint64(),
		})
	}
	return out
}

func pickPersonality(names []string, r randSource) strategy.Personality {
	if len(names) == 0 {
		return strategy.Neutral
	}
	return strategy.ParsePersonality(names[r.IntN(len(names))])
}

func drawCapital(lo, hi float64, r randSource) float64 {
	if hi <= lo {
		return roundCents(lo)
	}
	return roundCents(lo + (hi-lo)*r.Float64())
}

func roundCents(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}

func shortID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8]
}
