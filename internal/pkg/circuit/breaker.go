package circuit

import (
	"sync"
	"time"

	"swarm/internal/logger"
)

type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "CLOSED"
	case StateOpen:
		return "OPEN"
	case StateHalfOpen:
		return "HALF-OPEN"
	default:
		return "UNKNOWN"
	}
}

// CircuitBreaker 连续失败达到阈值后熔断，冷却期过后放行一次探测请求。
type CircuitBreaker struct {
	mu          sync.Mutex
	state       State
	failures    int
	threshold   int
	timeout     time.Duration
	lastFailure time.Time
	probing     bool
	name        string
	nowFn       func() time.Time
}

func NewCircuitBreaker(name string, threshold int, timeout time.Duration) *CircuitBreaker {
	if threshold <= 0 {
		threshold = 1
	}
	return &CircuitBreaker{
		name:      name,
		threshold: threshold,
		timeout:   timeout,
		state:     StateClosed,
		nowFn:     time.Now,
	}
}

// WithClock 替换时间源，仅用于测试。
func (cb *CircuitBreaker) WithClock(now func() time.Time) *CircuitBreaker {
	if now != nil {
		cb.nowFn = now
	}
	return cb
}

// Allow 判断本次调用是否放行。半开状态下同一时刻只放行一个探测请求。
func (cb *CircuitBreaker) Allow() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateClosed:
		return true
	case StateOpen:
		if cb.nowFn().Sub(cb.lastFailure) > cb.timeout {
			cb.transition(StateHalfOpen)
			cb.probing = true
			return true
		}
		return false
	default:
		if cb.probing {
			return false
		}
		cb.probing = true
		return true
	}
}

func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.probing = false
	if cb.state == StateHalfOpen {
		cb.transition(StateClosed)
	}
	cb.failures = 0
}

func (cb *CircuitBreaker) RecordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failures++
	cb.lastFailure = cb.nowFn()
	cb.probing = false

	switch cb.state {
	case StateClosed:
		if cb.failures >= cb.threshold {
			cb.transition(StateOpen)
		}
	case StateHalfOpen:
		cb.transition(StateOpen)
	}
}

func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

func (cb *CircuitBreaker) transition(to State) {
	from := cb.state
	cb.state = to
	logger.Warnf("CircuitBreaker %s state change: %s -> %s (failures=%d/%d, timeout=%s)",
		cb.name, from, to, cb.failures, cb.threshold, cb.timeout)
}
