package console

// Step 是脚本中的一个模拟步骤。
type Step struct {
	Category Category `json:"category" yaml:"category"`
	Message  string   `json:"message" yaml:"message"`
	Details  string   `json:"details,omitempty" yaml:"details,omitempty"`
}

// DefaultScript 返回登录表单场景的七个固定步骤。
func DefaultScript() []Step {
	return []Step{
		{Category: CategoryAction, Message: "Navigating to target page", Details: "https://example.com"},
		{Category: CategorySuccess, Message: "Page loaded successfully", Details: "DOM ready in 1.2s"},
		{Category: CategoryAction, Message: "Locating form elements", Details: "Found 3 input fields"},
		{Category: CategoryAction, Message: "Filling email field", Details: "user@example.com"},
		{Category: CategoryAction, Message: "Filling password field", Details: "••••••••"},
		{Category: CategoryAction, Message: "Clicking submit button", Details: `Button[type="submit"]`},
		{Category: CategorySuccess, Message: "Form submitted successfully", Details: "Redirected to dashboard"},
	}
}

// BootSteps 是控制台初始化时写入的两条日志。
func BootSteps() []Step {
	return []Step{
		{Category: CategoryInfo, Message: "Agent console initialized", Details: "LangChain model loaded successfully"},
		{Category: CategoryInfo, Message: "Puppeteer browser launched", Details: "Headless Chrome v119.0.6045.105"},
	}
}

// Seed 按顺序写入步骤，最后一步成为最新条目。
func (l *Log) Seed(steps []Step) {
	for _, step := range steps {
		l.Append(step.Category, step.Message, step.Details)
	}
}
