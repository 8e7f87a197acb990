package clock

import (
	"context"
	"time"
)

// Scheduler 负责在步骤之间挂起，挂起过程可以被上下文取消。
type Scheduler interface {
	Sleep(ctx context.Context, d time.Duration) error
}

// SchedulerFunc 将函数适配为 Scheduler。
type SchedulerFunc func(ctx context.Context, d time.Duration) error

// Sleep 实现 Scheduler 接口。
func (f SchedulerFunc) Sleep(ctx context.Context, d time.Duration) error { return f(ctx, d) }

// TimerScheduler 使用真实定时器挂起。
type TimerScheduler struct{}

// Sleep 等待 d 或上下文取消。
func (TimerScheduler) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Immediate 不做任何等待，只检查上下文。
var Immediate Scheduler = SchedulerFunc(func(ctx context.Context, _ time.Duration) error {
	return ctx.Err()
})

// ManualScheduler 在测试中逐步放行挂起点。
type ManualScheduler struct {
	parked  chan time.Duration
	release chan struct{}
}

// NewManualScheduler 创建 ManualScheduler。
func NewManualScheduler() *ManualScheduler {
	return &ManualScheduler{
		parked:  make(chan time.Duration, 64),
		release: make(chan struct{}),
	}
}

// Sleep 记录挂起时长并阻塞到 Advance 或上下文取消。
func (m *ManualScheduler) Sleep(ctx context.Context, d time.Duration) error {
	select {
	case m.parked <- d:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-m.release:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Parked 返回下一次进入挂起的时长，超时返回 false。
func (m *ManualScheduler) Parked(timeout time.Duration) (time.Duration, bool) {
	select {
	case d := <-m.parked:
		return d, true
	case <-time.After(timeout):
		return 0, false
	}
}

// Advance 放行一个挂起点。
func (m *ManualScheduler) Advance(timeout time.Duration) bool {
	select {
	case m.release <- struct{}{}:
		return true
	case <-time.After(timeout):
		return false
	}
}
