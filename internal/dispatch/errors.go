package dispatch

import (
	"net/http"

	xerrors "AutoFlow-Agent/internal/errors"
)

const (
	CodeDispatchPublish xerrors.Code = "DISPATCH_PUBLISH_FAILED"
	CodeDispatchRecord  xerrors.Code = "DISPATCH_RECORD_FAILED"
)

func init() {
	xerrors.Register(CodeDispatchPublish, xerrors.Attributes{
		Message:    "failed to publish workflow run",
		Severity:   xerrors.SeverityCritical,
		Retryable:  true,
		HTTPStatus: http.StatusServiceUnavailable,
	})
	xerrors.Register(CodeDispatchRecord, xerrors.Attributes{
		Message:    "failed to record workflow run",
		Severity:   xerrors.SeverityWarning,
		Retryable:  true,
		HTTPStatus: http.StatusInternalServerError,
	})
}
