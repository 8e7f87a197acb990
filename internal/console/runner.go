package console

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"AutoFlow-Agent/internal/clock"
	"AutoFlow-Agent/pkg/logger"
)

const (
	// CompletedLabel 是运行结束后当前步骤显示的文本。
	CompletedLabel = "Workflow completed"

	DefaultMinStepDelay = time.Second
	DefaultMaxStepDelay = 2 * time.Second
)

// Stats 汇总一次模拟运行的步骤统计。
type Stats struct {
	TotalSteps     int   `json:"total_steps"`
	CompletedSteps int   `json:"completed_steps"`
	FailedSteps    int   `json:"failed_steps"`
	StartTime      int64 `json:"start_time,omitempty"`
	DurationMs     int64 `json:"duration_ms"`
}

// State 是运行器对外可见的只读快照。
type State struct {
	Running     bool    `json:"running"`
	Progress    float64 `json:"progress"`
	CurrentStep string  `json:"current_step"`
	Stats       Stats   `json:"stats"`
}

// Runner 按固定脚本模拟一次自动化运行。
// 同一时刻只允许一个运行；每一步在落地前都会确认自己仍属于当前运行。
type Runner struct {
	log       *Log
	script    []Step
	clock     clock.Clock
	random    clock.Random
	scheduler clock.Scheduler
	minDelay  time.Duration
	maxDelay  time.Duration
	audit     *slog.Logger

	mu         sync.Mutex
	state      State
	generation uint64
	startedAt  time.Time
	cancel     context.CancelFunc
	done       chan struct{}
}

// RunnerOption 定义可选配置。
type RunnerOption func(*Runner)

// WithScript 替换默认脚本。
func WithScript(steps []Step) RunnerOption {
	return func(r *Runner) {
		if len(steps) > 0 {
			r.script = append([]Step(nil), steps...)
		}
	}
}

// WithRunnerClock 指定时间来源。
func WithRunnerClock(c clock.Clock) RunnerOption {
	return func(r *Runner) {
		if c != nil {
			r.clock = c
		}
	}
}

// WithRunnerRandom 指定步骤间隔的随机源。
func WithRunnerRandom(rnd clock.Random) RunnerOption {
	return func(r *Runner) {
		if rnd != nil {
			r.random = rnd
		}
	}
}

// WithScheduler 指定步骤之间的挂起实现。
func WithScheduler(s clock.Scheduler) RunnerOption {
	return func(r *Runner) {
		if s != nil {
			r.scheduler = s
		}
	}
}

// WithStepDelay 设置步骤间隔区间 [min, max)。
func WithStepDelay(minDelay, maxDelay time.Duration) RunnerOption {
	return func(r *Runner) {
		if minDelay >= 0 && maxDelay >= minDelay {
			r.minDelay = minDelay
			r.maxDelay = maxDelay
		}
	}
}

// WithAuditLogger 指定审计日志。
func WithAuditLogger(l *slog.Logger) RunnerOption {
	return func(r *Runner) {
		r.audit = l
	}
}

// NewRunner 构造 Runner。
func NewRunner(log *Log, opts ...RunnerOption) *Runner {
	if log == nil {
		log = NewLog()
	}
	r := &Runner{
		log:       log,
		script:    DefaultScript(),
		clock:     clock.System(),
		random:    clock.DefaultRandom(),
		scheduler: clock.TimerScheduler{},
		minDelay:  DefaultMinStepDelay,
		maxDelay:  DefaultMaxStepDelay,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

// Log 返回运行器写入的日志存储。
func (r *Runner) Log() *Log {
	return r.log
}

// Script 返回脚本副本。
func (r *Runner) Script() []Step {
	return append([]Step(nil), r.script...)
}

// Snapshot 返回当前状态。
func (r *Runner) Snapshot() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Start 开始一次新的运行。已有运行时直接返回 false。
func (r *Runner) Start(ctx context.Context) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state.Running {
		return false
	}

	now := r.clock.Now()
	r.generation++
	r.startedAt = now
	r.state = State{
		Running: true,
		Stats: Stats{
			TotalSteps: len(r.script),
			StartTime:  now.UnixMilli(),
		},
	}

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	r.cancel = cancel
	r.done = done

	r.auditLog().Info("控制台运行开始",
		slog.Uint64("generation", r.generation),
		slog.Int("total_steps", len(r.script)),
	)
	go r.loop(runCtx, r.generation, done)
	return true
}

// Stop 立即终止当前运行。已完成的步骤仍计入统计。
// 返回值表示是否确实中断了一次运行。
func (r *Runner) Stop() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	wasRunning := r.state.Running
	r.state.Running = false
	r.state.Progress = 0
	r.state.CurrentStep = ""
	if r.cancel != nil {
		r.cancel()
		r.cancel = nil
	}
	if !wasRunning {
		return false
	}
	r.generation++
	r.log.Append(CategoryWarning, "Workflow execution stopped", "Stopped by user")
	r.auditLog().Warn("控制台运行被手动停止",
		slog.Int("completed_steps", r.state.Stats.CompletedSteps),
		slog.Int("total_steps", r.state.Stats.TotalSteps),
	)
	return true
}

// RetryLastStep 只记录一条重试日志，不重新执行任何步骤。
func (r *Runner) RetryLastStep() Entry {
	entry := r.log.Append(CategoryInfo, "Retrying last failed step", "Attempting recovery")
	r.auditLog().Info("控制台请求重试", slog.String("entry_id", entry.ID))
	return entry
}

// Wait 阻塞直到当前运行结束或上下文取消。
func (r *Runner) Wait(ctx context.Context) error {
	r.mu.Lock()
	done := r.done
	r.mu.Unlock()
	if done == nil {
		return nil
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Runner) loop(ctx context.Context, generation uint64, done chan struct{}) {
	defer close(done)

	total := len(r.script)
	for i, step := range r.script {
		if !r.applyStep(generation, i, total, step) {
			return
		}
		delay := clock.Between(r.random, r.minDelay, r.maxDelay)
		if err := r.scheduler.Sleep(ctx, delay); err != nil {
			r.abandon(generation, err)
			return
		}
	}
	r.finish(generation)
}

func (r *Runner) applyStep(generation uint64, index, total int, step Step) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.state.Running || r.generation != generation {
		return false
	}
	r.state.CurrentStep = step.Message
	r.state.Progress = float64(index+1) / float64(total) * 100
	r.log.Append(step.Category, step.Message, step.Details)
	r.state.Stats.CompletedSteps++
	r.state.Stats.DurationMs = r.clock.Now().Sub(r.startedAt).Milliseconds()
	return true
}

func (r *Runner) finish(generation uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.generation != generation {
		return
	}
	r.state.Running = false
	r.state.CurrentStep = CompletedLabel
	if r.cancel != nil {
		r.cancel()
		r.cancel = nil
	}
	r.auditLog().Info("控制台运行完成",
		slog.Int("completed_steps", r.state.Stats.CompletedSteps),
		slog.Int64("duration_ms", r.state.Stats.DurationMs),
	)
}

// abandon 处理父上下文被取消的情况，例如进程退出。
func (r *Runner) abandon(generation uint64, cause error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.generation != generation || !r.state.Running {
		return
	}
	r.state.Running = false
	r.state.Progress = 0
	r.state.CurrentStep = ""
	r.cancel = nil
	r.auditLog().Warn("控制台运行被取消", slog.String("reason", cause.Error()))
}

func (r *Runner) auditLog() *slog.Logger {
	if r.audit != nil {
		return r.audit
	}
	return logger.Audit()
}
