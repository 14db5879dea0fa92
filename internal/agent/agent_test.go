package agent

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"swarm/internal/decision"
	"swarm/internal/strategy"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type countingCycler struct {
	calls atomic.Int32
	delay time.Duration
}

func (c *countingCycler) Identity() decision.Identity {
	return decision.Identity{ID: "a-1", Name: "Agent_1", Personality: strategy.Momentum, StartingCapital: 100000}
}

func (c *countingCycler) Stats() decision.Stats {
	return decision.Stats{Cycles: int64(c.calls.Load())}
}

func (c *countingCycler) RunCycle(ctx context.Context) decision.CycleResult {
	c.calls.Add(1)
	if c.delay > 0 {
		time.Sleep(c.delay)
	}
	return decision.CycleResult{Outcome: decision.OutcomeSkipped}
}

type fakeMarket struct {
	books   atomic.Bool
	trigger chan struct{}
}

func newFakeMarket(ready bool) *fakeMarket {
	m := &fakeMarket{trigger: make(chan struct{}, 1)}
	m.books.Store(ready)
	return m
}

func (m *fakeMarket) HasBooks() bool { return m.books.Load() }
func (m *fakeMarket) InstrumentCount() int { return 1 }
func (m *fakeMarket) Trigger() <-chan struct{} { return m.trigger }
func (m *fakeMarket) fire() { m.trigger <- struct{}{} }

type mockConn struct {
	mock.Mock
	fail chan error
}

func newMockConn() *mockConn { return &mockConn{fail: make(chan error, 1)} }

func (m *mockConn) Connect(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *mockConn) Run(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return nil
	case err := <-m.fail:
		return err
	}
}

func (m *mockConn) RequestPortfolio(ctx context.Context) error { return nil }

func (m *mockConn) Close() error {
	m.Called()
	return nil
}

type zeroRand struct{}

func (zeroRand) Float64() float64 { return 0 }

func startAgent(t *testing.T, a *Agent) (context.CancelFunc, <-chan error) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()
	t.Cleanup(cancel)
	return cancel, done
}

func waitState(t *testing.T, a *Agent, want State) {
	t.Helper()
	require.Eventually(t, func() bool { return a.Status().State == want }, 2*time.Second, 5*time.Millisecond,
		"want state %s", want)
}

func TestAgentRunsImmediatelyAndOnTrigger(t *testing.T) {
	cyc := &countingCycler{}
	mkt := newFakeMarket(true)
	a := New(Params{Cycler: cyc, Market: mkt, Interval: time.Hour, Rand: zeroRand{}})
	cancel, done := startAgent(t, a)

	waitState(t, a, StateRunning)
	assert.Eventually(t, func() bool { return cyc.calls.Load() == 1 }, time.Second, 5*time.Millisecond)

	mkt.fire()
	assert.Eventually(t, func() bool { return cyc.calls.Load() == 2 }, time.Second, 5*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
	assert.Equal(t, StateStopped, a.Status().State)
}

func TestAgentPeriodicTick(t *testing.T) {
	cyc := &countingCycler{}
	a := New(Params{Cycler: cyc, Market: newFakeMarket(true), Interval: 20 * time.Millisecond, Rand: zeroRand{}})
	startAgent(t, a)
	assert.Eventually(t, func() bool { return cyc.calls.Load() >= 3 }, 2*time.Second, 5*time.Millisecond)
}

func TestAgentWaitsForFirstBookThenStartsAnyway(t *testing.T) {
	cyc := &countingCycler{}
	a := New(Params{
		Cycler:        cyc,
		Market:        newFakeMarket(false),
		Interval:      time.Hour,
		FirstBookWait: 60 * time.Millisecond,
		FirstBookPoll: 10 * time.Millisecond,
		Rand:          zeroRand{},
	})
	startAgent(t, a)
	assert.Equal(t, int32(0), cyc.calls.Load())
	waitState(t, a, StateRunning)
	assert.Eventually(t, func() bool { return cyc.calls.Load() == 1 }, time.Second, 5*time.Millisecond)
}

func TestAgentStopIsIdempotentAndLetsCycleFinish(t *testing.T) {
	cyc := &countingCycler{delay: 50 * time.Millisecond}
	a := New(Params{Cycler: cyc, Market: newFakeMarket(true), Interval: time.Hour, Rand: zeroRand{}})
	_, done := startAgent(t, a)
	require.Eventually(t, func() bool { return cyc.calls.Load() == 1 }, time.Second, time.Millisecond)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			a.Stop()
		}()
	}
	wg.Wait()
	waitState(t, a, StateStopped)
	assert.Equal(t, int32(1), cyc.calls.Load())

	select {
	case <-done:
		t.Fatal("Run should keep waiting for restart")
	default:
	}
}

func TestAgentRestart(t *testing.T) {
	cyc := &countingCycler{}
	a := New(Params{Cycler: cyc, Market: newFakeMarket(true), Interval: time.Hour, Rand: zeroRand{}})
	startAgent(t, a)
	waitState(t, a, StateRunning)

	a.Stop()
	waitState(t, a, StateStopped)
	a.Restart()
	waitState(t, a, StateRunning)
	assert.Eventually(t, func() bool { return cyc.calls.Load() == 2 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, 2, a.Status().Sessions)

	a.Restart()
	assert.Eventually(t, func() bool { return a.Status().Sessions == 3 }, time.Second, 5*time.Millisecond)
}

func TestAgentTransportFailureSurfaces(t *testing.T) {
	conn := newMockConn()
	conn.On("Connect", mock.Anything).Return(nil)
	conn.On("Close").Return()
	a := New(Params{Cycler: &countingCycler{}, Market: newFakeMarket(true), Conn: conn, Interval: time.Hour, Rand: zeroRand{}})
	_, done := startAgent(t, a)
	waitState(t, a, StateRunning)

	conn.fail <- errors.New("read: connection reset")
	waitState(t, a, StateFailed)
	assert.Contains(t, a.Status().Error, "connection reset")
	conn.AssertCalled(t, "Close")

	select {
	case <-done:
		t.Fatal("fleet run loop must survive a transport failure")
	default:
	}
}

func TestAgentConnectFailure(t *testing.T) {
	conn := newMockConn()
	conn.On("Connect", mock.Anything).Return(errors.New("dial refused"))
	cyc := &countingCycler{}
	a := New(Params{Cycler: cyc, Market: newFakeMarket(true), Conn: conn, Interval: time.Hour, Rand: zeroRand{}})
	startAgent(t, a)

	waitState(t, a, StateFailed)
	assert.Equal(t, "dial refused", a.Status().Error)
	assert.Zero(t, cyc.calls.Load())
	conn.AssertNotCalled(t, "Close")
}

func TestAgentStatus(t *testing.T) {
	a := New(Params{Cycler: &countingCycler{}, Market: newFakeMarket(true), Interval: 3 * time.Second})
	st := a.Status()
	assert.Equal(t, "a-1", st.ID)
	assert.Equal(t, "momentum", st.Personality)
	assert.Equal(t, StateIdle, st.State)
	assert.Equal(t, "3s", st.Interval)
	assert.Equal(t, "a-1", a.ID())
}
