package workflow

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"AutoFlow-Agent/internal/clock"
	xerrors "AutoFlow-Agent/internal/errors"
)

const (
	// DraftsKey 是构建器保存草稿的存储 key。
	DraftsKey = "autoflow-workflows"
	// DefaultName 是新建构建器的工作流名称。
	DefaultName = "My Workflow"
	// DefaultRunDuration 是构建器模拟运行的持续时间。
	DefaultRunDuration = 3 * time.Second
)

// Builder 维护正在编辑的节点序列。
type Builder struct {
	mu      sync.RWMutex
	saveMu  sync.Mutex
	name    string
	nodes   []Node
	running bool
	done    chan struct{}

	slot        Slot
	clock       clock.Clock
	scheduler   clock.Scheduler
	runDuration time.Duration
	newID       func() string
	logger      *slog.Logger
}

// BuilderOption 定义可选配置。
type BuilderOption func(*Builder)

// WithSlot 指定草稿的保存位置。
func WithSlot(slot Slot) BuilderOption {
	return func(b *Builder) {
		b.slot = slot
	}
}

// WithBuilderClock 指定时间来源。
func WithBuilderClock(clk clock.Clock) BuilderOption {
	return func(b *Builder) {
		if clk != nil {
			b.clock = clk
		}
	}
}

// WithBuilderScheduler 指定模拟运行的等待实现。
func WithBuilderScheduler(s clock.Scheduler) BuilderOption {
	return func(b *Builder) {
		if s != nil {
			b.scheduler = s
		}
	}
}

// WithRunDuration 覆盖模拟运行时长。
func WithRunDuration(d time.Duration) BuilderOption {
	return func(b *Builder) {
		if d >= 0 {
			b.runDuration = d
		}
	}
}

// WithNodeIDGenerator 指定节点 ID 生成器。
func WithNodeIDGenerator(fn func() string) BuilderOption {
	return func(b *Builder) {
		if fn != nil {
			b.newID = fn
		}
	}
}

// WithInitialNodes 替换初始节点，传入 nil 表示空白画布。
func WithInitialNodes(nodes []Node) BuilderOption {
	return func(b *Builder) {
		b.nodes = cloneNodes(nodes)
	}
}

// WithBuilderName 指定初始名称。
func WithBuilderName(name string) BuilderOption {
	return func(b *Builder) {
		if strings.TrimSpace(name) != "" {
			b.name = name
		}
	}
}

// WithBuilderLogger 指定日志。
func WithBuilderLogger(l *slog.Logger) BuilderOption {
	return func(b *Builder) {
		if l != nil {
			b.logger = l
		}
	}
}

// InitialNodes 返回新建构建器默认包含的节点。
func InitialNodes() []Node {
	return []Node{{
		ID:          "1",
		Kind:        KindTrigger,
		Title:       "Page Load",
		Description: "When a webpage loads",
		Config:      map[string]any{"url": "https://example.com"},
	}}
}

// NewBuilder 创建构建器。
func NewBuilder(opts ...BuilderOption) *Builder {
	b := &Builder{
		name:        DefaultName,
		nodes:       InitialNodes(),
		clock:       clock.System(),
		scheduler:   clock.TimerScheduler{},
		runDuration: DefaultRunDuration,
		newID:       uuid.NewString,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(b)
		}
	}
	return b
}

// Name 返回工作流名称。
func (b *Builder) Name() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.name
}

// Rename 修改工作流名称，空白名称被忽略。
func (b *Builder) Rename(name string) {
	if strings.TrimSpace(name) == "" {
		return
	}
	b.mu.Lock()
	b.name = name
	b.mu.Unlock()
}

// Nodes 返回节点副本。
func (b *Builder) Nodes() []Node {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := cloneNodes(b.nodes)
	if out == nil {
		out = []Node{}
	}
	return out
}

// Templates 返回可添加的节点预设。
func (b *Builder) Templates() map[NodeKind][]Template {
	return TemplateCatalog()
}

// AddNode 按模板追加一个节点。模板为空时使用该类型的第一个预设，配置总是深拷贝。
func (b *Builder) AddNode(kind NodeKind, tmpl Template) Node {
	if tmpl.IsZero() {
		if presets := Templates(kind); len(presets) > 0 {
			tmpl = presets[0]
		}
	}
	config := cloneConfig(tmpl.Config)
	if config == nil {
		config = map[string]any{}
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	node := Node{
		ID:          b.newID(),
		Kind:        kind,
		Title:       tmpl.Title,
		Description: tmpl.Description,
		Config:      config,
	}
	b.nodes = append(b.nodes, node)
	return cloneNode(node)
}

// RemoveNode 删除指定节点，不存在时不做任何事。
func (b *Builder) RemoveNode(id string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, n := range b.nodes {
		if n.ID == id {
			b.nodes = append(b.nodes[:i:i], b.nodes[i+1:]...)
			return true
		}
	}
	return false
}

// Save 把当前节点作为草稿追加到 autoflow-workflows 列表。
// 不做版本管理，也不去重，同名保存两次会得到两条记录。
func (b *Builder) Save(ctx context.Context, name string) (Draft, error) {
	if b.slot == nil {
		return Draft{}, xerrors.New(CodeSlotFailure, "未配置工作流存储")
	}

	b.mu.RLock()
	if strings.TrimSpace(name) == "" {
		name = b.name
	}
	draft := Draft{
		Name:      name,
		Nodes:     cloneNodes(b.nodes),
		CreatedAt: b.clock.Now(),
	}
	b.mu.RUnlock()
	if draft.Nodes == nil {
		draft.Nodes = []Node{}
	}

	// 读改写整个列表，saveMu 保证并发保存不会互相覆盖。
	b.saveMu.Lock()
	defer b.saveMu.Unlock()
	drafts, err := loadList[Draft](ctx, b.slot, DraftsKey)
	if err != nil {
		return Draft{}, xerrors.Wrap(CodeSlotFailure, err, "读取草稿列表失败")
	}
	drafts = append(drafts, draft)
	if err := storeList(ctx, b.slot, DraftsKey, drafts); err != nil {
		return Draft{}, xerrors.Wrap(CodeSlotFailure, err, "保存草稿失败")
	}
	b.logger.Info("工作流草稿已保存",
		slog.String("name", draft.Name),
		slog.Int("nodes", len(draft.Nodes)),
		slog.Int("drafts", len(drafts)),
	)
	return draft, nil
}

// Drafts 返回已保存的草稿列表。
func (b *Builder) Drafts(ctx context.Context) ([]Draft, error) {
	if b.slot == nil {
		return []Draft{}, nil
	}
	drafts, err := loadList[Draft](ctx, b.slot, DraftsKey)
	if err != nil {
		return nil, xerrors.Wrap(CodeSlotFailure, err, "读取草稿列表失败")
	}
	return drafts, nil
}

// Run 模拟一次运行：仅在固定时长内置位运行标记。
// 正在运行或没有节点时返回 false。
func (b *Builder) Run(ctx context.Context) bool {
	b.mu.Lock()
	if b.running || len(b.nodes) == 0 {
		b.mu.Unlock()
		return false
	}
	b.running = true
	done := make(chan struct{})
	b.done = done
	b.mu.Unlock()

	go func() {
		defer close(done)
		_ = b.scheduler.Sleep(ctx, b.runDuration)
		b.mu.Lock()
		b.running = false
		b.mu.Unlock()
	}()
	return true
}

// Running 报告是否处于模拟运行中。
func (b *Builder) Running() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.running
}

// Wait 阻塞直到模拟运行结束。
func (b *Builder) Wait(ctx context.Context) error {
	b.mu.RLock()
	done := b.done
	b.mu.RUnlock()
	if done == nil {
		return nil
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
