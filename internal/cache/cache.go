package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"

	"swarm/internal/strategy"
)

// DecisionCache 按渲染后的上下文摘要缓存外部决策结果，所有 agent 共享一个实例。
// 过期条目在读取时惰性清理。
type DecisionCache struct {
	mu      sync.Mutex
	entries map[string]entry
	ttl     time.Duration
	nowFn   func() time.Time
}

type entry struct {
	decision *strategy.TradingDecision
	storedAt time.Time
}

type Option func(*DecisionCache)

// WithClock 替换时间源，测试用。
func WithClock(now func() time.Time) Option {
	return func(c *DecisionCache) {
		if now != nil {
			c.nowFn = now
		}
	}
}

func New(ttl time.Duration, opts ...Option) *DecisionCache {
	c := &DecisionCache{
		entries: make(map[string]entry),
		ttl:     ttl,
		nowFn:   time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Key 对上下文文本做 sha256，相同输入得到相同 key。
func Key(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// Get 命中时返回决策副本；nil 决策表示缓存的是 HOLD。
func (c *DecisionCache) Get(key string) (*strategy.TradingDecision, bool) {
	if c == nil || c.ttl <= 0 {
		return nil, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if c.nowFn().Sub(e.storedAt) > c.ttl {
		delete(c.entries, key)
		return nil, false
	}
	return clone(e.decision), true
}

func (c *DecisionCache) Set(key string, d *strategy.TradingDecision) {
	if c == nil || c.ttl <= 0 {
		return
	}
	c.mu.Lock()
	c.entries[key] = entry{decision: clone(d), storedAt: c.nowFn()}
	c.mu.Unlock()
}

func (c *DecisionCache) Len() int {
	if c == nil {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// TTL 返回生效的有效期，0 表示缓存关闭。
func (c *DecisionCache) TTL() time.Duration {
	if c == nil {
		return 0
	}
	return c.ttl
}

func clone(d *strategy.TradingDecision) *strategy.TradingDecision {
	if d == nil {
		return nil
	}
	cp := *d
	return &cp
}
