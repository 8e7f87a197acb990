package console

import (
	"net/http"
	"strings"

	xerrors "AutoFlow-Agent/internal/errors"
)

// Category 对日志条目进行分类，仅影响展示样式。
type Category string

const (
	CategoryInfo    Category = "info"
	CategorySuccess Category = "success"
	CategoryError   Category = "error"
	CategoryAction  Category = "action"
	CategoryWarning Category = "warning"
)

// Categories 按固定顺序返回全部分类。
func Categories() []Category {
	return []Category{CategoryInfo, CategorySuccess, CategoryError, CategoryAction, CategoryWarning}
}

// IsValidCategory 检查分类是否为支持的枚举值。
func IsValidCategory(c Category) bool {
	switch c {
	case CategoryInfo, CategorySuccess, CategoryError, CategoryAction, CategoryWarning:
		return true
	default:
		return false
	}
}

// ParseCategory 将外部输入解析为分类，忽略大小写。
func ParseCategory(raw string) (Category, error) {
	c := Category(strings.ToLower(strings.TrimSpace(raw)))
	if !IsValidCategory(c) {
		return "", xerrors.New(CodeInvalidCategory, "未知的日志分类: "+raw)
	}
	return c, nil
}

// Entry 是一条不可变的控制台日志。
type Entry struct {
	ID         string   `json:"id"`
	Timestamp  string   `json:"timestamp"`
	CreatedAt  int64    `json:"created_at"`
	Category   Category `json:"category"`
	Message    string   `json:"message"`
	Details    string   `json:"details,omitempty"`
	DurationMs float64  `json:"duration_ms,omitempty"`
}

const (
	CodeInvalidCategory xerrors.Code = "INVALID_CATEGORY"
	CodeSnapshotDecode  xerrors.Code = "SNAPSHOT_DECODE_FAILED"
)

func init() {
	xerrors.Register(CodeInvalidCategory, xerrors.Attributes{
		Message:    "invalid log category",
		Severity:   xerrors.SeverityInfo,
		HTTPStatus: http.StatusBadRequest,
	})
	xerrors.Register(CodeSnapshotDecode, xerrors.Attributes{
		Message:    "log snapshot could not be decoded",
		Severity:   xerrors.SeverityWarning,
		HTTPStatus: http.StatusBadRequest,
	})
}
