// Package sqlite 使用嵌入式 SQLite 保存工作流存储槽，适合单机部署。
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	xerrors "AutoFlow-Agent/internal/errors"
)

// SlotStore 以 slot_key 为主键保存 JSON 文本。
type SlotStore struct {
	db *sql.DB
}

// Open 打开或创建数据库文件，并确保表结构存在。
func Open(path string) (*SlotStore, error) {
	if path == "" {
		return nil, xerrors.New(xerrors.CodeInvalidArgument, "SQLite 路径不能为空")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, xerrors.Wrap(xerrors.CodeInitializationFailure, err, "创建 SQLite 目录失败")
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, xerrors.Wrap(xerrors.CodeInitializationFailure, err, "打开 SQLite 失败")
	}
	for _, stmt := range []string{
		`PRAGMA journal_mode = WAL`,
		`PRAGMA busy_timeout = 5000`,
		`CREATE TABLE IF NOT EXISTS workflow_slots (
	slot_key TEXT PRIMARY KEY,
	payload TEXT NOT NULL,
	updated_at TEXT NOT NULL
)`,
	} {
		if _, err := db.Exec(stmt); err != nil {
			_ = db.Close()
			return nil, xerrors.Wrap(xerrors.CodeInitializationFailure, err, fmt.Sprintf("初始化 SQLite 失败: %s", stmt))
		}
	}
	return &SlotStore{db: db}, nil
}

// Get 读取 key 对应的内容，不存在时返回 nil。
func (s *SlotStore) Get(ctx context.Context, key string) ([]byte, error) {
	var payload string
	err := s.db.QueryRowContext(ctx, `SELECT payload FROM workflow_slots WHERE slot_key = ?`, key).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, xerrors.Wrap(xerrors.CodeStorageFailure, err, "查询 workflow_slots 失败",
			xerrors.WithMetadata("key", key))
	}
	return []byte(payload), nil
}

// Put 覆盖写入 key 的内容。
func (s *SlotStore) Put(ctx context.Context, key string, value []byte) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO workflow_slots (slot_key, payload, updated_at) VALUES (?, ?, ?)
ON CONFLICT(slot_key) DO UPDATE SET payload = excluded.payload, updated_at = excluded.updated_at`,
		key, string(value), time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return xerrors.Wrap(xerrors.CodeStorageFailure, err, "写入 workflow_slots 失败",
			xerrors.WithMetadata("key", key))
	}
	return nil
}

// Close 关闭数据库。
func (s *SlotStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
