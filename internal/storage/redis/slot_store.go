package redis

import (
	"context"
	"errors"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	xerrors "AutoFlow-Agent/internal/errors"
)

// DefaultPrefix 是所有存储 key 的默认前缀。
const DefaultPrefix = "autoflow:slot:"

// Config 描述 Redis 连接参数。
type Config struct {
	Address     string
	Password    string
	DB          int
	Prefix      string
	DialTimeout time.Duration
}

// SlotStore 将每个存储 key 映射为一个带前缀的 Redis 字符串。
type SlotStore struct {
	client *goredis.Client
	prefix string
}

// NewSlotStore 创建并检测 Redis 连接。
func NewSlotStore(ctx context.Context, cfg Config) (*SlotStore, error) {
	if strings.TrimSpace(cfg.Address) == "" {
		return nil, xerrors.New(xerrors.CodeInvalidArgument, "Redis address 不能为空")
	}
	dial := cfg.DialTimeout
	if dial <= 0 {
		dial = 5 * time.Second
	}
	client := goredis.NewClient(&goredis.Options{
		Addr:        cfg.Address,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: dial,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, xerrors.Wrap(xerrors.CodeInitializationFailure, err, "连接 Redis 失败")
	}
	return NewSlotStoreWithClient(client, cfg.Prefix), nil
}

// NewSlotStoreWithClient 复用已有客户端。
func NewSlotStoreWithClient(client *goredis.Client, prefix string) *SlotStore {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &SlotStore{client: client, prefix: prefix}
}

// Key 返回实际写入 Redis 的 key。
func (s *SlotStore) Key(key string) string {
	return s.prefix + key
}

// Get 读取 key 对应的内容，不存在时返回 nil。
func (s *SlotStore) Get(ctx context.Context, key string) ([]byte, error) {
	value, err := s.client.Get(ctx, s.Key(key)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, xerrors.Wrap(xerrors.CodeStorageFailure, err, "读取 Redis 失败",
			xerrors.WithMetadata("key", key))
	}
	return value, nil
}

// Put 覆盖写入，不设置过期时间。
func (s *SlotStore) Put(ctx context.Context, key string, value []byte) error {
	if err := s.client.Set(ctx, s.Key(key), value, 0).Err(); err != nil {
		return xerrors.Wrap(xerrors.CodeStorageFailure, err, "写入 Redis 失败",
			xerrors.WithMetadata("key", key))
	}
	return nil
}

// Close 关闭 Redis 连接。
func (s *SlotStore) Close() error {
	if s == nil || s.client == nil {
		return nil
	}
	return s.client.Close()
}
