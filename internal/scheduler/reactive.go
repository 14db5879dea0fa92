package scheduler

import (
	"context"
	"time"

	"swarm/internal/logger"
)

// Reason 标记一次任务由什么唤醒。
type Reason string

const (
	ReasonStartup Reason = "startup"
	ReasonTrigger Reason = "trigger"
	ReasonTick    Reason = "tick"
)

// ReactiveScheduler 同时响应外部事件和固定周期。
// Trigger 为 nil 时退化为纯周期调度。task 同步执行，执行期间到达的事件由
// 调用方的单槽通道合并，不会排队。
type ReactiveScheduler struct {
	Name           string
	Interval       time.Duration
	Trigger        <-chan struct{}
	RunImmediately bool
}

// Start 阻塞直到 ctx 结束或 stop 关闭。
func (s *ReactiveScheduler) Start(ctx context.Context, stop <-chan struct{}, task func(Reason)) {
	if s == nil {
		return
	}
	log := logger.For(s.Name)
	if task == nil {
		log.Warnf("ReactiveScheduler: task is nil, exit")
		return
	}
	if s.Interval <= 0 {
		log.Warnf("ReactiveScheduler: invalid interval=%s, exit", s.Interval)
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}
	log.Debugf("ReactiveScheduler: started interval=%s run_immediately=%v", s.Interval, s.RunImmediately)

	if s.RunImmediately {
		task(ReasonStartup)
	}

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Debugf("ReactiveScheduler: ctx done, exit")
			return
		case <-stop:
			log.Debugf("ReactiveScheduler: stopped")
			return
		case <-s.Trigger:
			task(ReasonTrigger)
		case <-ticker.C:
			task(ReasonTick)
		}
	}
}
