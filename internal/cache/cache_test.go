package cache

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"swarm/internal/strategy"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.mu.Unlock()
}

func TestKeyIsDeterministic(t *testing.T) {
	assert.Equal(t, Key("Instrument 1: Bid=99"), Key("Instrument 1: Bid=99"))
	assert.NotEqual(t, Key("Instrument 1: Bid=99"), Key("Instrument 1: Bid=98"))
	assert.Len(t, Key(""), 64)
}

func TestGetExpiresAfterTTL(t *testing.T) {
	clk := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	c := New(12*time.Second, WithClock(clk.Now))
	d := &strategy.TradingDecision{Action: strategy.ActionBuy, InstrumentID: 3, Kind: strategy.OrderLimit, Price: 10, Quantity: 2}

	c.Set("k", d)
	clk.Advance(11 * time.Second)
	got, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, d, got)

	clk.Advance(time.Second)
	_, ok = c.Get("k")
	assert.True(t, ok, "entry aged exactly ttl is still fresh")

	clk.Advance(time.Nanosecond)
	_, ok = c.Get("k")
	assert.False(t, ok)
	assert.Zero(t, c.Len(), "expired entry is evicted on lookup")
}

func TestCachedHoldAndCopies(t *testing.T) {
	c := New(time.Minute)
	c.Set("hold", nil)
	got, ok := c.Get("hold")
	assert.True(t, ok)
	assert.Nil(t, got)

	d := &strategy.TradingDecision{Action: strategy.ActionSell, Quantity: 4}
	c.Set("sell", d)
	d.Quantity = 99
	got, _ = c.Get("sell")
	require.NotNil(t, got)
	assert.Equal(t, 4, got.Quantity)
	got.Quantity = 7
	again, _ := c.Get("sell")
	assert.Equal(t, 4, again.Quantity)
}

func TestZeroTTLDisablesCache(t *testing.T) {
	c := New(0)
	c.Set("k", &strategy.TradingDecision{})
	_, ok := c.Get("k")
	assert.False(t, ok)

	var nilCache *DecisionCache
	_, ok = nilCache.Get("k")
	assert.False(t, ok)
	assert.Zero(t, nilCache.TTL())
	assert.Equal(t, 12*time.Second, New(12*time.Second).TTL())
}

func TestConcurrentAccess(t *testing.T) {
	c := New(time.Minute)
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			k := Key(string(rune('a' + i%4)))
			c.Set(k, &strategy.TradingDecision{Quantity: i})
			c.Get(k)
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 4, c.Len())
}
