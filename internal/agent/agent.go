package agent

import (
	"context"
	"errors"
	"sync"
	"time"

	"swarm/internal/decision"
	"swarm/internal/logger"
	"swarm/internal/scheduler"
	"swarm/internal/strategy"
)

const (
	defaultFirstBookWait = 10 * time.Second
	defaultFirstBookPoll = 500 * time.Millisecond
)

// Cycler 是 agent 驱动的决策流水线，通常是 *decision.Orchestrator。
type Cycler interface {
	Identity() decision.Identity
	Stats() decision.Stats
	RunCycle(ctx context.Context) decision.CycleResult
}

// Market 是 agent 等待首个盘口与响应行情事件所需的最小视图。
type Market interface {
	HasBooks() bool
	InstrumentCount() int
	Trigger() <-chan struct{}
}

// Conn 是到撮合端的长连接。Run 在连接断开时返回错误，ctx 结束时返回 nil。
type Conn interface {
	Connect(ctx context.Context) error
	Run(ctx context.Context) error
	RequestPortfolio(ctx context.Context) error
	Close() error
}

type Params struct {
	Cycler Cycler
	Market Market
	// Conn 为空时 agent 只依赖外部写入的 Market（回放、测试）。
	Conn          Conn
	Interval      time.Duration
	StartupJitter time.Duration
	FirstBookWait time.Duration
	FirstBookPoll time.Duration
	// Rand 用于启动抖动，为空时按时间播种。
	Rand scheduler.Float64er
}

type State string

const (
	StateIdle     State = "idle"
	StateStarting State = "starting"
	StateRunning  State = "running"
	StateStopped  State = "stopped"
	StateFailed   State = "failed"
)

// Status 是状态接口返回的单个 agent 视图。
type Status struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Personality string         `json:"personality"`
	Capital     float64        `json:"starting_capital"`
	State       State          `json:"state"`
	Interval    string         `json:"interval"`
	Sessions    int            `json:"sessions"`
	Error       string         `json:"error,omitempty"`
	Stats       decision.Stats `json:"stats"`
}

// Agent 把行情事件和周期时钟转成决策周期。
// Run 一直阻塞到 ctx 结束；Stop 只结束当前会话，之后可以 Restart。
type Agent struct {
	p   Params
	log logger.Scope

	mu        sync.Mutex
	state     State
	lastErr   error
	sessions  int
	stopCh    chan struct{}
	stopOnce  *sync.Once
	restartCh chan struct{}
}

func New(p Params) *Agent {
	if p.FirstBookWait <= 0 {
		p.FirstBookWait = defaultFirstBookWait
	}
	if p.FirstBookPoll <= 0 {
		p.FirstBookPoll = defaultFirstBookPoll
	}
	if p.Interval <= 0 {
		p.Interval = scheduler.MinInterval
	}
	if p.Rand == nil {
		p.Rand = strategy.NewRand(0)
	}
	return &Agent{
		p:         p,
		log:       logger.For(p.Cycler.Identity().Name),
		state:     StateIdle,
		stopCh:    make(chan struct{}),
		stopOnce:  &sync.Once{},
		restartCh: make(chan struct{}, 1),
	}
}

func (a *Agent) ID() string { return a.p.Cycler.Identity().ID }

// Run 运行会话直到 ctx 结束。会话因 Stop 或连接失败结束后，等待 Restart。
func (a *Agent) Run(ctx context.Context) error {
	for {
		err := a.session(ctx)
		if ctx.Err() != nil {
			a.setState(StateStopped, nil)
			return nil
		}
		if err != nil {
			a.log.Errorf("session ended: %v", err)
			a.setState(StateFailed, err)
		} else {
			a.setState(StateStopped, nil)
		}
		select {
		case <-ctx.Done():
			return nil
		case <-a.restartCh:
			a.rearm()
			a.log.Infof("restarting")
		}
	}
}

func (a *Agent) session(ctx context.Context) error {
	stop := a.stopChan()
	a.mu.Lock()
	a.sessions++
	a.state = StateStarting
	a.lastErr = nil
	a.mu.Unlock()

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	connErr := make(chan error, 1)
	if a.p.Conn != nil {
		if err := a.p.Conn.Connect(runCtx); err != nil {
			return err
		}
		defer a.p.Conn.Close()
		go func() {
			connErr <- a.p.Conn.Run(runCtx)
			cancel()
		}()
		if err := a.p.Conn.RequestPortfolio(runCtx); err != nil {
			a.log.Warnf("portfolio request failed: %v", err)
		}
	}

	if !a.wait(runCtx, stop, scheduler.Jitter(a.p.Rand, a.p.StartupJitter)) {
		return a.exitErr(connErr)
	}
	a.waitFirstBook(runCtx, stop)
	if runCtx.Err() != nil || closed(stop) {
		return a.exitErr(connErr)
	}

	a.setState(StateRunning, nil)
	a.log.Infof("started interval=%s", a.p.Interval)
	sched := &scheduler.ReactiveScheduler{
		Name:           a.p.Cycler.Identity().Name,
		Interval:       a.p.Interval,
		Trigger:        a.p.Market.Trigger(),
		RunImmediately: true,
	}
	sched.Start(runCtx, stop, func(reason scheduler.Reason) {
		res := a.p.Cycler.RunCycle(runCtx)
		if res.Outcome != decision.OutcomeThrottled {
			a.log.Debugf("cycle %s reason=%s outcome=%s", res.TraceID, reason, res.Outcome)
		}
	})
	return a.exitErr(connErr)
}

// exitErr 区分主动停止与连接失败。
func (a *Agent) exitErr(connErr <-chan error) error {
	select {
	case err := <-connErr:
		if err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
	default:
	}
	return nil
}

// waitFirstBook 最多等待 FirstBookWait，超时后照常进入循环。
func (a *Agent) waitFirstBook(ctx context.Context, stop <-chan struct{}) {
	deadline := time.Now().Add(a.p.FirstBookWait)
	for attempt := 1; ; attempt++ {
		if a.p.Market.HasBooks() {
			a.log.Infof("initial orderbooks received, making first decision")
			return
		}
		if !time.Now().Before(deadline) {
			break
		}
		if n := a.p.Market.InstrumentCount(); n > 0 {
			a.log.Debugf("have %d instruments but no orderbook data yet (attempt %d)", n, attempt)
		}
		if !a.wait(ctx, stop, a.p.FirstBookPoll) {
			return
		}
	}
	if n := a.p.Market.InstrumentCount(); n > 0 {
		a.log.Warnf("no orderbook data after %s (%d instruments exist), starting anyway", a.p.FirstBookWait, n)
		return
	}
	a.log.Infof("no instruments available yet, will trade once they are created")
}

func (a *Agent) wait(ctx context.Context, stop <-chan struct{}, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil && !closed(stop)
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-stop:
		return false
	case <-timer.C:
		return true
	}
}

// Stop 结束当前会话，正在执行的周期会先跑完。可重复调用。
func (a *Agent) Stop() {
	a.mu.Lock()
	once, ch := a.stopOnce, a.stopCh
	a.mu.Unlock()
	once.Do(func() { close(ch) })
}

// Restart 停止当前会话（如有）并重新开始一轮。
func (a *Agent) Restart() {
	a.Stop()
	select {
	case a.restartCh <- struct{}{}:
	default:
	}
}

func (a *Agent) rearm() {
	a.mu.Lock()
	a.stopCh = make(chan struct{})
	a.stopOnce = &sync.Once{}
	a.mu.Unlock()
}

func (a *Agent) stopChan() <-chan struct{} {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.stopCh
}

func (a *Agent) setState(s State, err error) {
	a.mu.Lock()
	a.state = s
	a.lastErr = err
	a.mu.Unlock()
}

func (a *Agent) Status() Status {
	id := a.p.Cycler.Identity()
	a.mu.Lock()
	defer a.mu.Unlock()
	st := Status{
		ID:          id.ID,
		Name:        id.Name,
		Personality: id.Personality.String(),
		Capital:     id.StartingCapital,
		State:       a.state,
		Interval:    a.p.Interval.String(),
		Sessions:    a.sessions,
		Stats:       a.p.Cycler.Stats(),
	}
	if a.lastErr != nil {
		st.Error = a.lastErr.Error()
	}
	return st
}

func closed(ch <-chan struct{}) bool {
	select {
	case <-ch:
		return true
	default:
		return false
	}
}
