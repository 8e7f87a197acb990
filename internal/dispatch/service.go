package dispatch

import (
	"context"
	"log/slog"
	"strings"
	"time"

	xerrors "AutoFlow-Agent/internal/errors"
	"AutoFlow-Agent/internal/observability/alerting"
	"AutoFlow-Agent/internal/workflow"
	"AutoFlow-Agent/pkg/logger"
)

// Lookup 按 ID 查询已保存工作流。
type Lookup interface {
	Get(id string) (workflow.SavedWorkflow, error)
}

// Service 校验并投递已保存工作流的运行请求。
type Service struct {
	lookup   Lookup
	producer Producer
	alerter  alerting.Dispatcher
}

// NewService 构造运行请求服务。alerter 可以为 nil。
func NewService(lookup Lookup, producer Producer, alerter alerting.Dispatcher) *Service {
	return &Service{lookup: lookup, producer: producer, alerter: alerter}
}

// Submit 确认工作流存在后投递运行请求，返回投递时的工作流快照。
func (s *Service) Submit(ctx context.Context, workflowID string) (workflow.SavedWorkflow, error) {
	workflowID = strings.TrimSpace(workflowID)
	if workflowID == "" {
		return workflow.SavedWorkflow{}, xerrors.New(xerrors.CodeInvalidArgument, "工作流 ID 不能为空")
	}
	if s.lookup == nil || s.producer == nil {
		return workflow.SavedWorkflow{}, xerrors.New(xerrors.CodeInitializationFailure, "运行服务未初始化")
	}
	wf, err := s.lookup.Get(workflowID)
	if err != nil {
		return workflow.SavedWorkflow{}, err
	}
	if err := s.producer.Publish(ctx, workflowID); err != nil {
		logger.L().Error("运行请求入队失败", slog.Any("error", err), slog.String("workflow_id", workflowID))
		wrapped := xerrors.Wrap(CodeDispatchPublish, err, "发布运行请求失败")
		if s.alerter != nil {
			_ = s.alerter.Notify(ctx, alerting.Event{
				Code:       CodeDispatchPublish,
				Message:    wrapped.Error(),
				Severity:   xerrors.AttributesOf(CodeDispatchPublish).Severity,
				WorkflowID: workflowID,
				Stage:      "publish",
				OccurredAt: time.Now(),
			})
		}
		return workflow.SavedWorkflow{}, wrapped
	}
	return wf, nil
}
