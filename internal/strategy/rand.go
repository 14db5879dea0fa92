package strategy

import (
	"math/rand/v2"
	"time"
)

// Rand 是策略用到的随机源。单个 agent 独占一个实例，不需要并发安全。
type Rand interface {
	Float64() float64
	Shuffle(n int, swap func(i, j int))
}

// NewRand 固定种子便于复现；seed 为 0 时使用当前时间。
func NewRand(seed uint64) *rand.Rand {
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

func uniform(r Rand, lo, hi float64) float64 {
	return lo + (hi-lo)*r.Float64()
}

func chance(r Rand, p float64) bool {
	return r.Float64() < p
}
