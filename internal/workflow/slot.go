package workflow

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sync"

	xerrors "AutoFlow-Agent/internal/errors"
)

// Slot 是按固定 key 保存一段 JSON 的本地键值存储。
// Get 在 key 不存在时返回 nil, nil。
type Slot interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
	Close() error
}

// MemorySlot 以内存方式保存数据，主要用于测试。
type MemorySlot struct {
	mu     sync.RWMutex
	values map[string][]byte
}

// NewMemorySlot 创建 MemorySlot。
func NewMemorySlot() *MemorySlot {
	return &MemorySlot{values: make(map[string][]byte)}
}

// Get 实现 Slot 接口。
func (m *MemorySlot) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	value, ok := m.values[key]
	if !ok {
		return nil, nil
	}
	return append([]byte(nil), value...), nil
}

// Put 实现 Slot 接口。
func (m *MemorySlot) Put(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = append([]byte(nil), value...)
	return nil
}

// Close 对内存存储无需操作。
func (m *MemorySlot) Close() error { return nil }

var unsafeKeyChars = regexp.MustCompile(`[^A-Za-z0-9._-]`)

// FileSlot 在目录下为每个 key 保存一个 JSON 文件。
type FileSlot struct {
	mu  sync.Mutex
	dir string
}

// NewFileSlot 创建 FileSlot，目录不存在时自动创建。
func NewFileSlot(dir string) (*FileSlot, error) {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, xerrors.Wrap(xerrors.CodeStorageFailure, err, "创建数据目录失败")
	}
	return &FileSlot{dir: dir}, nil
}

func (f *FileSlot) path(key string) string {
	return filepath.Join(f.dir, unsafeKeyChars.ReplaceAllString(key, "_")+".json")
}

// Get 实现 Slot 接口。
func (f *FileSlot) Get(_ context.Context, key string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, err := os.ReadFile(f.path(key))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, xerrors.Wrap(xerrors.CodeStorageFailure, err, "读取存储文件失败")
	}
	return data, nil
}

// Put 先写临时文件再重命名，避免留下半截内容。
func (f *FileSlot) Put(_ context.Context, key string, value []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	target := f.path(key)
	tmp := target + ".tmp"
	if err := os.WriteFile(tmp, value, 0o644); err != nil {
		return xerrors.Wrap(xerrors.CodeStorageFailure, err, "写入存储文件失败")
	}
	if err := os.Rename(tmp, target); err != nil {
		return xerrors.Wrap(xerrors.CodeStorageFailure, err, "替换存储文件失败")
	}
	return nil
}

// Close 对文件存储无需操作。
func (f *FileSlot) Close() error { return nil }

// loadList 读取 key 下的 JSON 数组，不存在时返回空列表。
func loadList[T any](ctx context.Context, slot Slot, key string) ([]T, error) {
	data, err := slot.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	return decodeList[T](key, data)
}

func decodeList[T any](key string, data []byte) ([]T, error) {
	if len(data) == 0 {
		return []T{}, nil
	}
	var list []T
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, xerrors.Wrap(xerrors.CodeStorageFailure, err, fmt.Sprintf("解析 %s 失败", key))
	}
	if list == nil {
		list = []T{}
	}
	return list, nil
}

func storeList[T any](ctx context.Context, slot Slot, key string, list []T) error {
	if list == nil {
		list = []T{}
	}
	data, err := json.Marshal(list)
	if err != nil {
		return xerrors.Wrap(xerrors.CodeStorageFailure, err, fmt.Sprintf("编码 %s 失败", key))
	}
	return slot.Put(ctx, key, data)
}

var (
	_ Slot = (*MemorySlot)(nil)
	_ Slot = (*FileSlot)(nil)
)
