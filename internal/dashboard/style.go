package dashboard

import (
	"AutoFlow-Agent/internal/console"
	"AutoFlow-Agent/internal/workflow"
)

// Style 描述一个枚举值在界面上的呈现方式。Color 为十六进制色值。
type Style struct {
	Label string `json:"label"`
	Color string `json:"color"`
	Icon  string `json:"icon"`
}

const (
	colorBlue   = "#60A5FA"
	colorGreen  = "#4ADE80"
	colorRed    = "#F87171"
	colorYellow = "#FACC15"
	colorOrange = "#FB923C"
	colorPurple = "#C084FC"
	colorGray   = "#9CA3AF"
	colorCyan   = "#22D3EE"
)

// CategoryStyle 返回日志类别的样式。
func CategoryStyle(c console.Category) Style {
	switch c {
	case console.CategoryInfo:
		return Style{Label: "Info", Color: colorBlue, Icon: "ℹ"}
	case console.CategorySuccess:
		return Style{Label: "Success", Color: colorGreen, Icon: "✔"}
	case console.CategoryError:
		return Style{Label: "Error", Color: colorRed, Icon: "✖"}
	case console.CategoryAction:
		return Style{Label: "Action", Color: colorYellow, Icon: "▶"}
	case console.CategoryWarning:
		return Style{Label: "Warning", Color: colorOrange, Icon: "⚠"}
	default:
		return Style{Label: string(c), Color: colorGray, Icon: "•"}
	}
}

// StatusStyle 返回已保存工作流状态的样式。
func StatusStyle(s workflow.Status) Style {
	switch s {
	case workflow.StatusActive:
		return Style{Label: "Active", Color: colorGreen, Icon: "●"}
	case workflow.StatusDraft:
		return Style{Label: "Draft", Color: colorYellow, Icon: "◐"}
	case workflow.StatusArchived:
		return Style{Label: "Archived", Color: colorGray, Icon: "○"}
	default:
		return Style{Label: string(s), Color: colorGray, Icon: "•"}
	}
}

// WorkflowCategoryStyle 返回已保存工作流分类的样式。
func WorkflowCategoryStyle(c workflow.Category) Style {
	switch c {
	case workflow.CategoryWebScraping:
		return Style{Label: "Web Scraping", Color: colorBlue, Icon: "🕸"}
	case workflow.CategoryFormAutomation:
		return Style{Label: "Form Automation", Color: colorGreen, Icon: "📝"}
	case workflow.CategoryTesting:
		return Style{Label: "Testing", Color: colorYellow, Icon: "🧪"}
	case workflow.CategoryMonitoring:
		return Style{Label: "Monitoring", Color: colorPurple, Icon: "📈"}
	case workflow.CategoryOther:
		return Style{Label: "Other", Color: colorGray, Icon: "📦"}
	default:
		return Style{Label: string(c), Color: colorGray, Icon: "•"}
	}
}

// KindStyle 返回节点类型的样式。
func KindStyle(k workflow.NodeKind) Style {
	switch k {
	case workflow.KindTrigger:
		return Style{Label: "Trigger", Color: colorGreen, Icon: "🚀"}
	case workflow.KindAction:
		return Style{Label: "Action", Color: colorCyan, Icon: "⚡"}
	case workflow.KindCondition:
		return Style{Label: "Condition", Color: colorPurple, Icon: "🔀"}
	default:
		return Style{Label: string(k), Color: colorGray, Icon: "•"}
	}
}

// RunStatus 是状态徽标展示的运行状态。
type RunStatus string

const (
	RunIdle    RunStatus = "idle"
	RunRunning RunStatus = "running"
	RunError   RunStatus = "error"
	RunSuccess RunStatus = "success"
)

// RunStatuses 返回全部运行状态。
func RunStatuses() []RunStatus {
	return []RunStatus{RunIdle, RunRunning, RunError, RunSuccess}
}

// RunStatusStyle 返回运行状态徽标的样式。
func RunStatusStyle(s RunStatus) Style {
	switch s {
	case RunIdle:
		return Style{Label: "Idle", Color: colorGray, Icon: "○"}
	case RunRunning:
		return Style{Label: "Running", Color: colorCyan, Icon: "◌"}
	case RunError:
		return Style{Label: "Error", Color: colorRed, Icon: "✖"}
	case RunSuccess:
		return Style{Label: "Success", Color: colorGreen, Icon: "✔"}
	default:
		return Style{Label: string(s), Color: colorGray, Icon: "•"}
	}
}

// RunStatusOf 根据运行器快照推导徽标状态。
func RunStatusOf(state console.State) RunStatus {
	switch {
	case state.Running:
		return RunRunning
	case state.Stats.FailedSteps > 0:
		return RunError
	case state.CurrentStep == console.CompletedLabel:
		return RunSuccess
	default:
		return RunIdle
	}
}
