package workflow

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"

	"AutoFlow-Agent/internal/clock"
	xerrors "AutoFlow-Agent/internal/errors"
)

// CatalogKey 是已保存工作流列表的存储 key。
const CatalogKey = "autoflow-saved-workflows"

// Catalog 管理已保存的工作流列表。配置了 Slot 时每次变更后整体写回。
type Catalog struct {
	mu     sync.RWMutex
	items  []SavedWorkflow
	slot   Slot
	clock  clock.Clock
	newID  func() string
	seed   []SavedWorkflow
	logger *slog.Logger
}

// CatalogOption 定义可选配置。
type CatalogOption func(*Catalog)

// WithCatalogSlot 指定持久化位置。
func WithCatalogSlot(slot Slot) CatalogOption {
	return func(c *Catalog) {
		c.slot = slot
	}
}

// WithCatalogClock 指定时间来源。
func WithCatalogClock(clk clock.Clock) CatalogOption {
	return func(c *Catalog) {
		if clk != nil {
			c.clock = clk
		}
	}
}

// WithCatalogIDGenerator 指定复制工作流时的 ID 生成器。
func WithCatalogIDGenerator(fn func() string) CatalogOption {
	return func(c *Catalog) {
		if fn != nil {
			c.newID = fn
		}
	}
}

// WithSeed 替换初始数据，传入空切片表示不预置。
func WithSeed(items []SavedWorkflow) CatalogOption {
	return func(c *Catalog) {
		c.seed = items
	}
}

// WithCatalogLogger 指定日志。
func WithCatalogLogger(l *slog.Logger) CatalogOption {
	return func(c *Catalog) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewCatalog 创建列表。存储中已有数据时优先使用，否则使用预置数据。
func NewCatalog(ctx context.Context, opts ...CatalogOption) (*Catalog, error) {
	c := &Catalog{
		clock:  clock.System(),
		newID:  uuid.NewString,
		seed:   SeedWorkflows(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}

	if c.slot != nil {
		data, err := c.slot.Get(ctx, CatalogKey)
		if err != nil {
			return nil, xerrors.Wrap(CodeSlotFailure, err, "读取已保存工作流失败")
		}
		if data != nil {
			items, err := decodeList[SavedWorkflow](CatalogKey, data)
			if err != nil {
				return nil, xerrors.Wrap(CodeSlotFailure, err, "解析已保存工作流失败")
			}
			c.items = items
			return c, nil
		}
	}

	c.items = make([]SavedWorkflow, 0, len(c.seed))
	for _, wf := range c.seed {
		c.items = append(c.items, wf.clone())
	}
	return c, nil
}

// List 按关键字与分类过滤。关键字匹配名称或描述，忽略大小写。
func (c *Catalog) List(query, category string) []SavedWorkflow {
	c.mu.RLock()
	defer c.mu.RUnlock()

	needle := strings.ToLower(strings.TrimSpace(query))
	category = strings.TrimSpace(category)
	result := make([]SavedWorkflow, 0, len(c.items))
	for _, wf := range c.items {
		if category != "" && category != CategoryAll && string(wf.Category) != category {
			continue
		}
		if needle != "" &&
			!strings.Contains(strings.ToLower(wf.Name), needle) &&
			!strings.Contains(strings.ToLower(wf.Description), needle) {
			continue
		}
		result = append(result, wf.clone())
	}
	return result
}

// Len 返回工作流数量。
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// Get 按 ID 查找。
func (c *Catalog) Get(id string) (SavedWorkflow, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	idx := c.indexOf(id)
	if idx < 0 {
		return SavedWorkflow{}, ErrWorkflowNotFound
	}
	return c.items[idx].clone(), nil
}

// Add 追加一条工作流到列表头部，ID 为空时自动生成。
func (c *Catalog) Add(ctx context.Context, wf SavedWorkflow) (SavedWorkflow, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if strings.TrimSpace(wf.Name) == "" {
		return SavedWorkflow{}, xerrors.New(CodeInvalidWorkflowName, "工作流名称不能为空")
	}
	if wf.ID == "" {
		wf.ID = c.newID()
	}
	if c.indexOf(wf.ID) >= 0 {
		return SavedWorkflow{}, ErrWorkflowConflict
	}
	if wf.CreatedAt.IsZero() {
		wf.CreatedAt = c.clock.Now()
	}
	if wf.Status == "" {
		wf.Status = StatusDraft
	}
	if wf.Category == "" {
		wf.Category = CategoryOther
	}
	wf = wf.clone()

	next := append([]SavedWorkflow{wf}, c.items...)
	if err := c.commit(ctx, next); err != nil {
		return SavedWorkflow{}, err
	}
	return wf.clone(), nil
}

// Duplicate 复制一条工作流：新 ID、名称追加 (Copy)、状态为草稿、运行次数清零，并放在列表头部。
func (c *Catalog) Duplicate(ctx context.Context, id string) (SavedWorkflow, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	idx := c.indexOf(id)
	if idx < 0 {
		return SavedWorkflow{}, ErrWorkflowNotFound
	}
	dup := c.items[idx].clone()
	dup.ID = c.newID()
	dup.Name = dup.Name + " (Copy)"
	dup.CreatedAt = c.clock.Now()
	dup.LastRun = nil
	dup.RunCount = 0
	dup.Status = StatusDraft

	next := append([]SavedWorkflow{dup}, c.items...)
	if err := c.commit(ctx, next); err != nil {
		return SavedWorkflow{}, err
	}
	c.logger.Info("已复制工作流", slog.String("source", id), slog.String("id", dup.ID))
	return dup.clone(), nil
}

// Delete 删除指定工作流，不存在时什么也不做并返回 false。
func (c *Catalog) Delete(ctx context.Context, id string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	idx := c.indexOf(id)
	if idx < 0 {
		return false, nil
	}
	next := make([]SavedWorkflow, 0, len(c.items)-1)
	next = append(next, c.items[:idx]...)
	next = append(next, c.items[idx+1:]...)
	if err := c.commit(ctx, next); err != nil {
		return false, err
	}
	c.logger.Info("已删除工作流", slog.String("id", id))
	return true, nil
}

// RecordRun 记录一次模拟运行：运行次数加一并更新最近运行时间。
func (c *Catalog) RecordRun(ctx context.Context, id string) (SavedWorkflow, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	idx := c.indexOf(id)
	if idx < 0 {
		return SavedWorkflow{}, ErrWorkflowNotFound
	}
	next := make([]SavedWorkflow, len(c.items))
	copy(next, c.items)

	now := c.clock.Now()
	updated := next[idx].clone()
	updated.RunCount++
	updated.LastRun = &now
	next[idx] = updated

	if err := c.commit(ctx, next); err != nil {
		return SavedWorkflow{}, err
	}
	return updated.clone(), nil
}

func (c *Catalog) indexOf(id string) int {
	for i, wf := range c.items {
		if wf.ID == id {
			return i
		}
	}
	return -1
}

// commit 先写存储再替换内存列表，写入失败时列表保持不变。
func (c *Catalog) commit(ctx context.Context, next []SavedWorkflow) error {
	if c.slot != nil {
		if err := storeList(ctx, c.slot, CatalogKey, next); err != nil {
			return xerrors.Wrap(CodeSlotFailure, err, "保存工作流列表失败")
		}
	}
	c.items = next
	return nil
}
