package workflow

import (
	"time"
)

// Status 表示已保存工作流的生命周期状态。
type Status string

const (
	StatusActive   Status = "active"
	StatusDraft    Status = "draft"
	StatusArchived Status = "archived"
)

// Statuses 返回全部状态。
func Statuses() []Status {
	return []Status{StatusActive, StatusDraft, StatusArchived}
}

// Category 是已保存工作流的分类。
type Category string

const (
	CategoryWebScraping    Category = "web-scraping"
	CategoryFormAutomation Category = "form-automation"
	CategoryTesting        Category = "testing"
	CategoryMonitoring     Category = "monitoring"
	CategoryOther          Category = "other"
)

// CategoryAll 用于列表过滤，表示不限制分类。
const CategoryAll = "all"

// Categories 返回全部分类。
func Categories() []Category {
	return []Category{CategoryWebScraping, CategoryFormAutomation, CategoryTesting, CategoryMonitoring, CategoryOther}
}

// SavedWorkflow 是工作流列表中的一条记录。
type SavedWorkflow struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Nodes       []Node     `json:"nodes"`
	CreatedAt   time.Time  `json:"created_at"`
	LastRun     *time.Time `json:"last_run,omitempty"`
	Status      Status     `json:"status"`
	Category    Category   `json:"category"`
	RunCount    int        `json:"run_count"`
}

func (w SavedWorkflow) clone() SavedWorkflow {
	w.Nodes = cloneNodes(w.Nodes)
	if w.LastRun != nil {
		last := *w.LastRun
		w.LastRun = &last
	}
	return w
}

// Draft 是构建器保存时追加到 autoflow-workflows 的记录。
type Draft struct {
	Name      string    `json:"name"`
	Nodes     []Node    `json:"nodes"`
	CreatedAt time.Time `json:"created_at"`
}

// SeedWorkflows 返回列表页初始展示的两条工作流。
func SeedWorkflows() []SavedWorkflow {
	login := time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)
	loginRun := time.Date(2024, 1, 20, 14, 22, 0, 0, time.UTC)
	scraper := time.Date(2024, 1, 10, 9, 15, 0, 0, time.UTC)
	scraperRun := time.Date(2024, 1, 19, 16, 45, 0, 0, time.UTC)

	return []SavedWorkflow{
		{
			ID:          "1",
			Name:        "Login Automation",
			Description: "Automated login flow for web applications",
			Nodes: []Node{
				{ID: "1-1", Kind: KindTrigger, Title: "Page Load", Description: "When a webpage loads", Config: map[string]any{"url": "https://example.com/login"}},
				{ID: "1-2", Kind: KindAction, Title: "Fill Form", Description: "Fill form fields", Config: map[string]any{"fields": map[string]any{"email": "user@example.com"}}},
				{ID: "1-3", Kind: KindAction, Title: "Click Element", Description: "Click on an element", Config: map[string]any{"selector": `button[type="submit"]`}},
			},
			CreatedAt: login,
			LastRun:   &loginRun,
			Status:    StatusActive,
			Category:  CategoryFormAutomation,
			RunCount:  25,
		},
		{
			ID:          "2",
			Name:        "Data Scraper",
			Description: "Extract product information from e-commerce sites",
			Nodes: []Node{
				{ID: "2-1", Kind: KindTrigger, Title: "Page Load", Description: "When a webpage loads", Config: map[string]any{"url": "https://shop.example.com"}},
				{ID: "2-2", Kind: KindAction, Title: "Navigate", Description: "Navigate to URL", Config: map[string]any{"url": "https://shop.example.com/products"}},
				{ID: "2-3", Kind: KindCondition, Title: "Element Exists", Description: "Check if element exists", Config: map[string]any{"selector": ".product"}},
				{ID: "2-4", Kind: KindAction, Title: "Click Element", Description: "Click on an element", Config: map[string]any{"selector": ".next-page"}},
			},
			CreatedAt: scraper,
			LastRun:   &scraperRun,
			Status:    StatusActive,
			Category:  CategoryWebScraping,
			RunCount:  42,
		},
	}
}
