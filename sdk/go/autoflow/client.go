package autoflow

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"path"
	"time"
)

// DefaultHTTPTimeout defines the timeout used by clients created without a
// custom http.Client.
const DefaultHTTPTimeout = 15 * time.Second

// Client wraps the HTTP interactions with the AutoFlow REST API.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
}

// Entry is a single console log line.
type Entry struct {
	ID         string  `json:"id"`
	Timestamp  string  `json:"timestamp"`
	CreatedAt  int64   `json:"created_at"`
	Category   string  `json:"category"`
	Message    string  `json:"message"`
	Details    string  `json:"details,omitempty"`
	DurationMs float64 `json:"duration_ms,omitempty"`
}

// RunStats summarises the current or last simulated run.
type RunStats struct {
	TotalSteps     int   `json:"total_steps"`
	CompletedSteps int   `json:"completed_steps"`
	FailedSteps    int   `json:"failed_steps"`
	StartTime      int64 `json:"start_time,omitempty"`
	DurationMs     int64 `json:"duration_ms"`
}

// RunState is the runner snapshot.
type RunState struct {
	Running     bool     `json:"running"`
	Progress    float64  `json:"progress"`
	CurrentStep string   `json:"current_step"`
	Stats       RunStats `json:"stats"`
}

// Console is the full console view.
type Console struct {
	State     RunState `json:"state"`
	RunStatus string   `json:"run_status"`
	Capacity  int      `json:"capacity"`
	Entries   []Entry  `json:"entries"`
}

// Toggle reports whether a start/stop request changed the runner.
type Toggle struct {
	Changed bool     `json:"changed"`
	State   RunState `json:"state"`
}

// Node is a step on the builder canvas.
type Node struct {
	ID          string         `json:"id"`
	Kind        string         `json:"kind"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Config      map[string]any `json:"config"`
}

// Template is a node preset offered by the builder palette.
type Template struct {
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Config      map[string]any `json:"config,omitempty"`
}

// Builder is the canvas state.
type Builder struct {
	Name    string `json:"name"`
	Nodes   []Node `json:"nodes"`
	Running bool   `json:"running"`
}

// Draft is a canvas snapshot appended by SaveDraft.
type Draft struct {
	Name      string    `json:"name"`
	Nodes     []Node    `json:"nodes"`
	CreatedAt time.Time `json:"created_at"`
}

// Workflow is an entry of the saved workflows catalog.
type Workflow struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Nodes       []Node     `json:"nodes"`
	CreatedAt   time.Time  `json:"created_at"`
	LastRun     *time.Time `json:"last_run,omitempty"`
	Status      string     `json:"status"`
	Category    string     `json:"category"`
	RunCount    int        `json:"run_count"`
}

// WorkflowStats summarises the catalog.
type WorkflowStats struct {
	Total      int            `json:"total"`
	ByStatus   map[string]int `json:"by_status"`
	ByCategory map[string]int `json:"by_category"`
	TotalRuns  int            `json:"total_runs"`
	TotalNodes int            `json:"total_nodes"`
	LastRun    *time.Time     `json:"last_run,omitempty"`
}

// Dashboard is the navigation and theme state.
type Dashboard struct {
	Section string `json:"section"`
	Theme   string `json:"theme"`
	Version uint64 `json:"version"`
	Label   string `json:"label"`
}

type changeResult struct {
	Changed bool `json:"changed"`
}

// Export is a downloaded log snapshot.
type Export struct {
	Filename string
	Data     []byte
}

// APIError represents server side validation or internal errors.
type APIError struct {
	StatusCode int
	Code       string `json:"code"`
	Message    string `json:"message"`
}

func (e *APIError) Error() string {
	if e == nil {
		return ""
	}
	if e.Code != "" {
		return fmt.Sprintf("autoflow api error (%d): %s - %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("autoflow api error (%d): %s", e.StatusCode, e.Message)
}

// NewClient instantiates a client for the AutoFlow API. When httpClient is
// nil, a default client with a sensible timeout is used.
func NewClient(rawURL string, httpClient *http.Client) (*Client, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base url: %w", err)
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultHTTPTimeout}
	}
	return &Client{baseURL: parsed, httpClient: httpClient}, nil
}

// Console fetches the runner state and all log entries.
func (c *Client) Console(ctx context.Context) (Console, error) {
	var out Console
	err := c.call(ctx, http.MethodGet, "/api/v1/console", nil, nil, &out)
	return out, err
}

// StartRun starts the simulated run. Changed is false when one is already active.
func (c *Client) StartRun(ctx context.Context) (Toggle, error) {
	var out Toggle
	err := c.call(ctx, http.MethodPost, "/api/v1/console/start", nil, nil, &out)
	return out, err
}

// StopRun stops the active run.
func (c *Client) StopRun(ctx context.Context) (Toggle, error) {
	var out Toggle
	err := c.call(ctx, http.MethodPost, "/api/v1/console/stop", nil, nil, &out)
	return out, err
}

// RetryLastStep appends the retry notice and returns it.
func (c *Client) RetryLastStep(ctx context.Context) (Entry, error) {
	var out Entry
	err := c.call(ctx, http.MethodPost, "/api/v1/console/retry", nil, nil, &out)
	return out, err
}

// Logs lists entries newest first, optionally filtered by category.
func (c *Client) Logs(ctx context.Context, category string) ([]Entry, error) {
	var query url.Values
	if category != "" {
		query = url.Values{"category": {category}}
	}
	var out []Entry
	err := c.call(ctx, http.MethodGet, "/api/v1/console/logs", query, nil, &out)
	return out, err
}

// ClearLogs removes every log entry.
func (c *Client) ClearLogs(ctx context.Context) error {
	return c.call(ctx, http.MethodDelete, "/api/v1/console/logs", nil, nil, nil)
}

// ExportLogs downloads the log snapshot together with the server-chosen filename.
func (c *Client) ExportLogs(ctx context.Context) (Export, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/api/v1/console/logs/export", nil, nil)
	if err != nil {
		return Export{}, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Export{}, fmt.Errorf("perform request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return Export{}, decodeAPIError(resp)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return Export{}, fmt.Errorf("read export: %w", err)
	}
	export := Export{Data: data}
	if _, params, err := mime.ParseMediaType(resp.Header.Get("Content-Disposition")); err == nil {
		export.Filename = params["filename"]
	}
	return export, nil
}

// Builder fetches the canvas.
func (c *Client) Builder(ctx context.Context) (Builder, error) {
	var out Builder
	err := c.call(ctx, http.MethodGet, "/api/v1/builder", nil, nil, &out)
	return out, err
}

// Templates lists node presets grouped by kind.
func (c *Client) Templates(ctx context.Context) (map[string][]Template, error) {
	var out map[string][]Template
	err := c.call(ctx, http.MethodGet, "/api/v1/builder/templates", nil, nil, &out)
	return out, err
}

// AddNode appends a node. An empty title picks the first preset of the kind.
func (c *Client) AddNode(ctx context.Context, kind, title string) (Node, error) {
	var out Node
	body := map[string]string{"kind": kind}
	if title != "" {
		body["title"] = title
	}
	err := c.call(ctx, http.MethodPost, "/api/v1/builder/nodes", nil, body, &out)
	return out, err
}

// RemoveNode deletes a node and reports whether it existed.
func (c *Client) RemoveNode(ctx context.Context, id string) (bool, error) {
	var out changeResult
	err := c.call(ctx, http.MethodDelete, "/api/v1/builder/nodes/"+url.PathEscape(id), nil, nil, &out)
	return out.Changed, err
}

// SaveDraft stores the canvas. An empty name keeps the canvas name.
func (c *Client) SaveDraft(ctx context.Context, name string) (Draft, error) {
	var out Draft
	err := c.call(ctx, http.MethodPost, "/api/v1/builder/save", nil, map[string]string{"name": name}, &out)
	return out, err
}

// RunBuilder triggers the cosmetic canvas run.
func (c *Client) RunBuilder(ctx context.Context) (bool, error) {
	var out changeResult
	err := c.call(ctx, http.MethodPost, "/api/v1/builder/run", nil, nil, &out)
	return out.Changed, err
}

// Drafts lists every saved draft in save order.
func (c *Client) Drafts(ctx context.Context) ([]Draft, error) {
	var out []Draft
	err := c.call(ctx, http.MethodGet, "/api/v1/builder/drafts", nil, nil, &out)
	return out, err
}

// Workflows lists the catalog filtered by a search term and category.
func (c *Client) Workflows(ctx context.Context, search, category string) ([]Workflow, error) {
	query := url.Values{}
	if search != "" {
		query.Set("q", search)
	}
	if category != "" {
		query.Set("category", category)
	}
	var out []Workflow
	err := c.call(ctx, http.MethodGet, "/api/v1/workflows", query, nil, &out)
	return out, err
}

// WorkflowStats returns catalog totals.
func (c *Client) WorkflowStats(ctx context.Context) (WorkflowStats, error) {
	var out WorkflowStats
	err := c.call(ctx, http.MethodGet, "/api/v1/workflows/stats", nil, nil, &out)
	return out, err
}

// DuplicateWorkflow copies a saved workflow.
func (c *Client) DuplicateWorkflow(ctx context.Context, id string) (Workflow, error) {
	var out Workflow
	err := c.call(ctx, http.MethodPost, "/api/v1/workflows/"+url.PathEscape(id)+"/duplicate", nil, nil, &out)
	return out, err
}

// RunWorkflow queues a run of a saved workflow.
func (c *Client) RunWorkflow(ctx context.Context, id string) (Workflow, error) {
	var out Workflow
	err := c.call(ctx, http.MethodPost, "/api/v1/workflows/"+url.PathEscape(id)+"/run", nil, nil, &out)
	return out, err
}

// DeleteWorkflow removes a saved workflow; unknown ids report false.
func (c *Client) DeleteWorkflow(ctx context.Context, id string) (bool, error) {
	var out changeResult
	err := c.call(ctx, http.MethodDelete, "/api/v1/workflows/"+url.PathEscape(id), nil, nil, &out)
	return out.Changed, err
}

// Dashboard fetches the navigation state.
func (c *Client) Dashboard(ctx context.Context) (Dashboard, error) {
	var out Dashboard
	err := c.call(ctx, http.MethodGet, "/api/v1/dashboard", nil, nil, &out)
	return out, err
}

// Navigate switches the active section.
func (c *Client) Navigate(ctx context.Context, section string) (Dashboard, error) {
	var out Dashboard
	err := c.call(ctx, http.MethodPut, "/api/v1/dashboard/section", nil, map[string]string{"section": section}, &out)
	return out, err
}

// SetTheme switches between dark and light.
func (c *Client) SetTheme(ctx context.Context, theme string) (Dashboard, error) {
	var out Dashboard
	err := c.call(ctx, http.MethodPut, "/api/v1/dashboard/theme", nil, map[string]string{"theme": theme}, &out)
	return out, err
}

// ToggleTheme flips between the dark and light theme.
func (c *Client) ToggleTheme(ctx context.Context) (Dashboard, error) {
	var out Dashboard
	err := c.call(ctx, http.MethodPost, "/api/v1/dashboard/theme/toggle", nil, nil, &out)
	return out, err
}

func (c *Client) call(ctx context.Context, method, endpoint string, query url.Values, payload, out any) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}
	req, err := c.newRequest(ctx, method, endpoint, query, body)
	if err != nil {
		return err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.do(req, out)
}

func (c *Client) newRequest(ctx context.Context, method, endpoint string, query url.Values, body io.Reader) (*http.Request, error) {
	rel := &url.URL{Path: path.Join(c.baseURL.Path, endpoint)}
	u := c.baseURL.ResolveReference(rel)
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	return req, nil
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("perform request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return decodeAPIError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func decodeAPIError(resp *http.Response) error {
	apiErr := &APIError{StatusCode: resp.StatusCode}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read error response: %w", err)
	}
	if len(data) > 0 {
		_ = json.Unmarshal(data, apiErr)
	}
	if apiErr.Message == "" {
		apiErr.Message = string(bytes.TrimSpace(data))
	}
	return apiErr
}
