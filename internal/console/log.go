package console

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"

	"AutoFlow-Agent/internal/clock"
	xerrors "AutoFlow-Agent/internal/errors"
)

const (
	// DefaultCapacity 是日志保留的最大条数。
	DefaultCapacity = 100
	// TimestampLayout 是条目中可读时间的格式。
	TimestampLayout = "15:04:05"

	minEntryDurationMs = 500.0
	entryDurationSpan  = 2000.0
)

// Log 以内存方式保存最近的控制台日志，最新的在前。
type Log struct {
	mu        sync.RWMutex
	entries   []Entry
	capacity  int
	clock     clock.Clock
	random    clock.Random
	newID     func() string
	observers []func(Entry)
}

// LogOption 定义可选配置。
type LogOption func(*Log)

// WithCapacity 修改保留条数上限。
func WithCapacity(capacity int) LogOption {
	return func(l *Log) {
		if capacity > 0 {
			l.capacity = capacity
		}
	}
}

// WithLogClock 指定时间来源。
func WithLogClock(c clock.Clock) LogOption {
	return func(l *Log) {
		if c != nil {
			l.clock = c
		}
	}
}

// WithLogRandom 指定展示用耗时的随机源。
func WithLogRandom(r clock.Random) LogOption {
	return func(l *Log) {
		if r != nil {
			l.random = r
		}
	}
}

// WithIDGenerator 替换条目 ID 的生成方式。
func WithIDGenerator(fn func() string) LogOption {
	return func(l *Log) {
		if fn != nil {
			l.newID = fn
		}
	}
}

// WithObserver 注册在每条日志追加后调用的回调。
func WithObserver(fn func(Entry)) LogOption {
	return func(l *Log) {
		if fn != nil {
			l.observers = append(l.observers, fn)
		}
	}
}

// NewLog 创建日志存储。
func NewLog(opts ...LogOption) *Log {
	l := &Log{
		entries:  make([]Entry, 0, DefaultCapacity),
		capacity: DefaultCapacity,
		clock:    clock.System(),
		random:   clock.DefaultRandom(),
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(l)
		}
	}
	return l
}

// Append 生成新条目并放到最前面，超出上限的旧条目被丢弃。
func (l *Log) Append(category Category, message, details string) Entry {
	now := l.clock.Now()
	entry := Entry{
		ID:         l.newID(),
		Timestamp:  now.Format(TimestampLayout),
		CreatedAt:  now.UnixMilli(),
		Category:   category,
		Message:    message,
		Details:    details,
		DurationMs: minEntryDurationMs + l.random.Float64()*entryDurationSpan,
	}

	l.mu.Lock()
	next := make([]Entry, 0, min(len(l.entries)+1, l.capacity))
	next = append(next, entry)
	for _, existing := range l.entries {
		if len(next) == l.capacity {
			break
		}
		next = append(next, existing)
	}
	l.entries = next
	observers := l.observers
	l.mu.Unlock()

	for _, fn := range observers {
		fn(entry)
	}
	return entry
}

// Clear 清空全部日志。
func (l *Log) Clear() {
	l.mu.Lock()
	l.entries = make([]Entry, 0, l.capacity)
	l.mu.Unlock()
}

// Entries 返回日志副本，最新的在前。
func (l *Log) Entries() []Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Entry, len(l.entries))
	copy(out, l.entries)
	return out
}

// Len 返回当前条数。
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

// Capacity 返回保留上限。
func (l *Log) Capacity() int {
	return l.capacity
}

// Latest 返回最新一条日志。
func (l *Log) Latest() (Entry, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if len(l.entries) == 0 {
		return Entry{}, false
	}
	return l.entries[0], true
}

// ExportSnapshot 将完整日志按当前顺序编码为缩进 JSON。
func (l *Log) ExportSnapshot() ([]byte, error) {
	return json.MarshalIndent(l.Entries(), "", "  ")
}

// ParseSnapshot 解析 ExportSnapshot 的输出。
func ParseSnapshot(data []byte) ([]Entry, error) {
	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, xerrors.Wrap(CodeSnapshotDecode, err, "解析日志快照失败")
	}
	if entries == nil {
		entries = []Entry{}
	}
	return entries, nil
}

// ExportFilename 返回以 UTC 日期命名的导出文件名。
func ExportFilename(at time.Time) string {
	return "autoflow-logs-" + at.UTC().Format("2006-01-02") + ".json"
}
