package dispatch

import (
	"context"
	stdErrors "errors"
	"fmt"
	"log/slog"
	"time"

	"AutoFlow-Agent/internal/console"
	xerrors "AutoFlow-Agent/internal/errors"
	"AutoFlow-Agent/internal/observability/alerting"
	"AutoFlow-Agent/internal/observability/metrics"
	"AutoFlow-Agent/internal/workflow"
	"AutoFlow-Agent/pkg/logger"
)

// RunRecorder 记录一次已保存工作流的运行。
type RunRecorder interface {
	RecordRun(ctx context.Context, id string) (workflow.SavedWorkflow, error)
}

// EntryAppender 向控制台日志追加条目。
type EntryAppender interface {
	Append(category console.Category, message, details string) console.Entry
}

// Processor 从队列消费运行请求，更新运行统计并写入控制台。
type Processor struct {
	recorder    RunRecorder
	entries     EntryAppender
	consumer    Consumer
	workerCount int
	logger      *slog.Logger
	alerter     alerting.Dispatcher
}

// ProcessorOption 定义可选配置。
type ProcessorOption func(*Processor)

// WithProcessorLogger 指定日志输出。
func WithProcessorLogger(l *slog.Logger) ProcessorOption {
	return func(p *Processor) {
		p.logger = l
	}
}

// WithWorkerCount 设置消费协程数量。
func WithWorkerCount(workers int) ProcessorOption {
	return func(p *Processor) {
		if workers > 0 {
			p.workerCount = workers
		}
	}
}

// WithAlertDispatcher 配置告警派发器。
func WithAlertDispatcher(d alerting.Dispatcher) ProcessorOption {
	return func(p *Processor) {
		p.alerter = d
	}
}

// NewProcessor 构造 Processor。
func NewProcessor(recorder RunRecorder, entries EntryAppender, consumer Consumer, opts ...ProcessorOption) *Processor {
	p := &Processor{
		recorder:    recorder,
		entries:     entries,
		consumer:    consumer,
		workerCount: 1,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}
	return p
}

// Start 阻塞消费直到上下文取消。
func (p *Processor) Start(ctx context.Context) error {
	if p.consumer == nil {
		return xerrors.New(xerrors.CodeInitializationFailure, "未配置运行请求消费者")
	}
	return p.consumer.Consume(ctx, p.workerCount, p.handle)
}

func (p *Processor) handle(ctx context.Context, workflowID string) error {
	if p.recorder == nil {
		return xerrors.New(xerrors.CodeInitializationFailure, "处理器未初始化")
	}
	wf, err := p.recorder.RecordRun(ctx, workflowID)
	if err != nil {
		if stdErrors.Is(err, workflow.ErrWorkflowNotFound) {
			p.logDebug("跳过未知工作流", slog.String("workflow_id", workflowID))
			metrics.ObserveWorkflowRun("skipped")
			return nil
		}
		wrapped := xerrors.Wrap(CodeDispatchRecord, err, fmt.Sprintf("记录工作流 %s 运行失败", workflowID))
		logger.L().Error("记录运行失败", slog.Any("error", err), slog.String("workflow_id", workflowID))
		p.emitAlert(ctx, workflowID, CodeDispatchRecord, err, "record")
		metrics.ObserveWorkflowRun("failed")
		return wrapped
	}

	if p.entries != nil {
		p.entries.Append(console.CategoryInfo,
			fmt.Sprintf(`Workflow "%s" started`, wf.Name),
			fmt.Sprintf(`"%s" is now running`, wf.Name),
		)
	}
	metrics.ObserveWorkflowRun("recorded")
	logger.Audit().Info("已保存工作流开始运行",
		slog.String("workflow_id", wf.ID),
		slog.String("name", wf.Name),
		slog.Int("run_count", wf.RunCount),
	)
	return nil
}

func (p *Processor) logDebug(msg string, attrs ...any) {
	if p.logger != nil {
		p.logger.Debug(msg, attrs...)
	}
}

func (p *Processor) emitAlert(ctx context.Context, workflowID string, code xerrors.Code, cause error, stage string) {
	if p.alerter == nil {
		return
	}
	attrs := xerrors.AttributesOf(code)
	event := alerting.Event{
		Code:       code,
		Message:    cause.Error(),
		Severity:   attrs.Severity,
		WorkflowID: workflowID,
		Stage:      stage,
		OccurredAt: time.Now(),
	}
	if err := p.alerter.Notify(ctx, event); err != nil {
		logger.L().Error("告警通知失败",
			slog.Any("error", err),
			slog.String("workflow_id", workflowID),
			slog.String("stage", stage),
		)
	}
}
