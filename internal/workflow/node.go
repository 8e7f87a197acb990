package workflow

import (
	"net/http"
	"strings"

	xerrors "AutoFlow-Agent/internal/errors"
)

// NodeKind 表示节点类型。
type NodeKind string

const (
	KindTrigger   NodeKind = "trigger"
	KindAction    NodeKind = "action"
	KindCondition NodeKind = "condition"
)

// NodeKinds 按面板顺序返回全部节点类型。
func NodeKinds() []NodeKind {
	return []NodeKind{KindTrigger, KindAction, KindCondition}
}

// IsValidKind 检查节点类型是否受支持。
func IsValidKind(kind NodeKind) bool {
	switch kind {
	case KindTrigger, KindAction, KindCondition:
		return true
	default:
		return false
	}
}

// ParseNodeKind 解析外部输入的节点类型。
func ParseNodeKind(raw string) (NodeKind, error) {
	kind := NodeKind(strings.ToLower(strings.TrimSpace(raw)))
	if !IsValidKind(kind) {
		return "", xerrors.New(CodeInvalidNodeKind, "未知的节点类型: "+raw)
	}
	return kind, nil
}

// Node 是工作流中的一个步骤，Config 为模板相关的开放字段。
type Node struct {
	ID          string         `json:"id"`
	Kind        NodeKind       `json:"kind"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Config      map[string]any `json:"config"`
}

// Template 是添加节点时可选的预设。
type Template struct {
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Config      map[string]any `json:"config,omitempty"`
}

// IsZero 判断模板是否未填写。
func (t Template) IsZero() bool {
	return t.Title == "" && t.Description == "" && len(t.Config) == 0
}

// Templates 返回某类节点的预设列表。
func Templates(kind NodeKind) []Template {
	var list []Template
	switch kind {
	case KindTrigger:
		list = []Template{
			{Title: "Page Load", Description: "When a webpage loads", Config: map[string]any{"url": ""}},
			{Title: "Button Click", Description: "When a button is clicked", Config: map[string]any{"selector": ""}},
		}
	case KindAction:
		list = []Template{
			{Title: "Click Element", Description: "Click on an element", Config: map[string]any{"selector": ""}},
			{Title: "Fill Form", Description: "Fill form fields", Config: map[string]any{"fields": map[string]any{}}},
			{Title: "Navigate", Description: "Navigate to URL", Config: map[string]any{"url": ""}},
		}
	case KindCondition:
		list = []Template{
			{Title: "Element Exists", Description: "Check if element exists", Config: map[string]any{"selector": ""}},
			{Title: "Text Contains", Description: "Check if text contains value", Config: map[string]any{"text": ""}},
		}
	}
	return list
}

// TemplateCatalog 返回全部节点类型的预设。
func TemplateCatalog() map[NodeKind][]Template {
	catalog := make(map[NodeKind][]Template, 3)
	for _, kind := range NodeKinds() {
		catalog[kind] = Templates(kind)
	}
	return catalog
}

// LookupTemplate 按标题查找预设，忽略大小写。
func LookupTemplate(kind NodeKind, title string) (Template, bool) {
	for _, tmpl := range Templates(kind) {
		if strings.EqualFold(tmpl.Title, strings.TrimSpace(title)) {
			return tmpl, true
		}
	}
	return Template{}, false
}

func cloneNode(n Node) Node {
	n.Config = cloneConfig(n.Config)
	return n
}

func cloneNodes(nodes []Node) []Node {
	if nodes == nil {
		return nil
	}
	out := make([]Node, len(nodes))
	for i, n := range nodes {
		out[i] = cloneNode(n)
	}
	return out
}

// cloneConfig 深拷贝 map 与 slice，避免节点之间共享嵌套配置。
func cloneConfig(config map[string]any) map[string]any {
	if config == nil {
		return nil
	}
	out := make(map[string]any, len(config))
	for key, value := range config {
		out[key] = cloneValue(value)
	}
	return out
}

func cloneValue(value any) any {
	switch v := value.(type) {
	case map[string]any:
		return cloneConfig(v)
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = cloneValue(item)
		}
		return out
	default:
		return v
	}
}

const (
	CodeInvalidNodeKind     xerrors.Code = "INVALID_NODE_KIND"
	CodeWorkflowNotFound    xerrors.Code = "WORKFLOW_NOT_FOUND"
	CodeWorkflowConflict    xerrors.Code = "WORKFLOW_CONFLICT"
	CodeInvalidWorkflowName xerrors.Code = "INVALID_WORKFLOW_NAME"
	CodeSlotFailure         xerrors.Code = "SLOT_FAILURE"
)

var (
	// ErrWorkflowNotFound 表示指定的已保存工作流不存在。
	ErrWorkflowNotFound = xerrors.New(CodeWorkflowNotFound, "workflow not found")
	// ErrWorkflowConflict 表示工作流 ID 已存在。
	ErrWorkflowConflict = xerrors.New(CodeWorkflowConflict, "workflow already exists")
)

func init() {
	xerrors.Register(CodeInvalidNodeKind, xerrors.Attributes{
		Message:    "invalid node kind",
		Severity:   xerrors.SeverityInfo,
		HTTPStatus: http.StatusBadRequest,
	})
	xerrors.Register(CodeWorkflowNotFound, xerrors.Attributes{
		Message:    "workflow not found",
		Severity:   xerrors.SeverityInfo,
		HTTPStatus: http.StatusNotFound,
	})
	xerrors.Register(CodeWorkflowConflict, xerrors.Attributes{
		Message:    "workflow already exists",
		Severity:   xerrors.SeverityWarning,
		HTTPStatus: http.StatusConflict,
	})
	xerrors.Register(CodeSlotFailure, xerrors.Attributes{
		Message:    "workflow slot failure",
		Severity:   xerrors.SeverityWarning,
		Retryable:  true,
		HTTPStatus: http.StatusServiceUnavailable,
	})
	xerrors.Register(CodeInvalidWorkflowName, xerrors.Attributes{
		Message:    "workflow name is empty",
		Severity:   xerrors.SeverityInfo,
		HTTPStatus: http.StatusBadRequest,
	})
}
