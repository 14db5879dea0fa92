package scheduler

import (
	"math"
	"time"
)

const (
	// IntervalSpread 是节流间隔相对基准值的随机浮动幅度。
	IntervalSpread = 0.3
	MinInterval    = 200 * time.Millisecond
	intervalStep   = 10 * time.Millisecond
)

// Float64er 是调度所需的最小随机源。
type Float64er interface {
	Float64() float64
}

// RandomizeInterval 在 base ±30% 内均匀取值，下限 0.2s，按 10ms 取整。
// 多个 agent 使用同一个基准时避免同时醒来。
func RandomizeInterval(base time.Duration, r Float64er) time.Duration {
	if base <= 0 {
		return MinInterval
	}
	factor := 1.0
	if r != nil {
		factor = 1 - IntervalSpread + 2*IntervalSpread*r.Float64()
	}
	d := time.Duration(math.Round(float64(base)*factor/float64(intervalStep))) * intervalStep
	if d < MinInterval {
		d = MinInterval
	}
	return d
}

// Jitter 返回 [0, max) 内的随机等待时长。
func Jitter(r Float64er, max time.Duration) time.Duration {
	if max <= 0 || r == nil {
		return 0
	}
	return time.Duration(r.Float64() * float64(max))
}
