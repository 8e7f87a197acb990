package mysql

import (
	"context"
	"database/sql"
	"errors"
	"time"

	xerrors "AutoFlow-Agent/internal/errors"
)

const (
	selectSlotSQL = `SELECT payload FROM workflow_slots WHERE slot_key = ?`
	upsertSlotSQL = `INSERT INTO workflow_slots (slot_key, payload, updated_at) VALUES (?, ?, ?)
    ON DUPLICATE KEY UPDATE payload = VALUES(payload), updated_at = VALUES(updated_at)`
)

// SlotStore 把每个存储 key 保存为 workflow_slots 表中的一行。
type SlotStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewSlotStore 建立连接并执行迁移。
func NewSlotStore(ctx context.Context, cfg Config) (*SlotStore, error) {
	db, err := openDatabase(ctx, cfg)
	if err != nil {
		return nil, xerrors.Wrap(xerrors.CodeInitializationFailure, err, "初始化 MySQL 存储失败")
	}
	if err := Migrate(ctx, db); err != nil {
		db.Close()
		return nil, xerrors.Wrap(xerrors.CodeInitializationFailure, err, "执行 MySQL 迁移失败")
	}
	return newSlotStore(db), nil
}

func newSlotStore(db *sql.DB) *SlotStore {
	return &SlotStore{db: db, now: time.Now}
}

// Get 读取 key 对应的内容，不存在时返回 nil。
func (s *SlotStore) Get(ctx context.Context, key string) ([]byte, error) {
	var payload []byte
	err := s.db.QueryRowContext(ctx, selectSlotSQL, key).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, xerrors.Wrap(xerrors.CodeStorageFailure, err, "查询 workflow_slots 失败",
			xerrors.WithMetadata("key", key))
	}
	return payload, nil
}

// Put 覆盖写入 key 的内容。
func (s *SlotStore) Put(ctx context.Context, key string, value []byte) error {
	if _, err := s.db.ExecContext(ctx, upsertSlotSQL, key, string(value), s.now().Unix()); err != nil {
		return xerrors.Wrap(xerrors.CodeStorageFailure, err, "写入 workflow_slots 失败",
			xerrors.WithMetadata("key", key))
	}
	return nil
}

// Close 释放连接池。
func (s *SlotStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
