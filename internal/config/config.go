package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvPath 指定配置文件路径的环境变量。
const EnvPath = "AUTOFLOW_CONFIG"

// DefaultPath 是未设置环境变量时读取的配置文件。
const DefaultPath = "configs/autoflow.json"

// Config 描述了 AutoFlow 在启动阶段需要加载的核心配置。
type Config struct {
	Server   ServerConfig   `json:"server" yaml:"server"`
	Logging  LoggingConfig  `json:"logging" yaml:"logging"`
	Console  ConsoleConfig  `json:"console" yaml:"console"`
	Builder  BuilderConfig  `json:"builder" yaml:"builder"`
	Storage  StorageConfig  `json:"storage" yaml:"storage"`
	Dispatch DispatchConfig `json:"dispatch" yaml:"dispatch"`
	Runtime  RuntimeConfig  `json:"runtime" yaml:"runtime"`
}

// ServerConfig 控制 API 服务的监听地址等参数。
type ServerConfig struct {
	Address            string `json:"address" yaml:"address"`
	ShutdownTimeoutSec int    `json:"shutdown_timeout_sec" yaml:"shutdown_timeout_sec"`
}

// ShutdownTimeout 返回优雅退出的等待时间。
func (s ServerConfig) ShutdownTimeout() time.Duration {
	return time.Duration(s.ShutdownTimeoutSec) * time.Second
}

// LoggingConfig 对应 pkg/logger.Config。
type LoggingConfig struct {
	Level       string      `json:"level" yaml:"level"`
	Format      string      `json:"format" yaml:"format"`
	OutputPaths []string    `json:"output_paths" yaml:"output_paths"`
	AddSource   bool        `json:"add_source" yaml:"add_source"`
	Audit       AuditConfig `json:"audit" yaml:"audit"`
}

// AuditConfig 控制审计日志的落盘位置与滚动策略。
type AuditConfig struct {
	Enabled    bool   `json:"enabled" yaml:"enabled"`
	Path       string `json:"path" yaml:"path"`
	MaxSizeMB  int    `json:"max_size_mb" yaml:"max_size_mb"`
	MaxBackups int    `json:"max_backups" yaml:"max_backups"`
}

// ConsoleConfig 控制执行日志与模拟运行器。
type ConsoleConfig struct {
	Capacity       int   `json:"capacity" yaml:"capacity"`
	SeedBootSteps  *bool `json:"seed_boot_steps" yaml:"seed_boot_steps"`
	StepDelayMinMs int   `json:"step_delay_min_ms" yaml:"step_delay_min_ms"`
	StepDelayMaxMs int   `json:"step_delay_max_ms" yaml:"step_delay_max_ms"`
}

// StepDelay 返回步骤间隔的区间 [min, max)。
func (c ConsoleConfig) StepDelay() (time.Duration, time.Duration) {
	return time.Duration(c.StepDelayMinMs) * time.Millisecond, time.Duration(c.StepDelayMaxMs) * time.Millisecond
}

// SeedsBootSteps 表示启动时是否写入初始化日志。
func (c ConsoleConfig) SeedsBootSteps() bool {
	return c.SeedBootSteps == nil || *c.SeedBootSteps
}

// BuilderConfig 控制工作流画布。
type BuilderConfig struct {
	Name          string `json:"name" yaml:"name"`
	RunDurationMs int    `json:"run_duration_ms" yaml:"run_duration_ms"`
}

// RunDuration 返回画布演示运行的时长。
func (b BuilderConfig) RunDuration() time.Duration {
	return time.Duration(b.RunDurationMs) * time.Millisecond
}

// StorageConfig 统一描述持久化后端的连接信息。
type StorageConfig struct {
	Slot SlotConfig `json:"slot" yaml:"slot"`
}

// SlotConfig 选择存储槽驱动：memory、file、sqlite、redis 或 mysql。
type SlotConfig struct {
	Driver string       `json:"driver" yaml:"driver"`
	Dir    string       `json:"dir" yaml:"dir"`
	SQLite SQLiteConfig `json:"sqlite" yaml:"sqlite"`
	Redis  RedisConfig  `json:"redis" yaml:"redis"`
	MySQL  MySQLConfig  `json:"mysql" yaml:"mysql"`
}

// SQLiteConfig 描述 SQLite 文件位置。
type SQLiteConfig struct {
	Path string `json:"path" yaml:"path"`
}

// RedisConfig 描述 Redis 连接，存储槽与运行队列共用。
type RedisConfig struct {
	Address  string `json:"address" yaml:"address"`
	Password string `json:"password" yaml:"password"`
	DB       int    `json:"db" yaml:"db"`
	Prefix   string `json:"prefix" yaml:"prefix"`
}

// MySQLConfig 描述 MySQL 连接池。
type MySQLConfig struct {
	DSN                string `json:"dsn" yaml:"dsn"`
	MaxOpenConns       int    `json:"max_open_conns" yaml:"max_open_conns"`
	MaxIdleConns       int    `json:"max_idle_conns" yaml:"max_idle_conns"`
	ConnMaxLifetimeSec int    `json:"conn_max_lifetime_sec" yaml:"conn_max_lifetime_sec"`
}

// DispatchConfig 控制已保存工作流的运行队列。
type DispatchConfig struct {
	Driver    string         `json:"driver" yaml:"driver"`
	Workers   int            `json:"workers" yaml:"workers"`
	QueueSize int            `json:"queue_size" yaml:"queue_size"`
	Queue     string         `json:"queue" yaml:"queue"`
	Redis     RedisConfig    `json:"redis" yaml:"redis"`
	RabbitMQ  RabbitMQConfig `json:"rabbitmq" yaml:"rabbitmq"`
	Alerts    AlertsConfig   `json:"alerts" yaml:"alerts"`
}

// RabbitMQConfig 描述 RabbitMQ 连接。
type RabbitMQConfig struct {
	URL      string `json:"url" yaml:"url"`
	Prefetch int    `json:"prefetch" yaml:"prefetch"`
}

// AlertsConfig 控制派发失败时的告警渠道。
type AlertsConfig struct {
	WebhookURL string `json:"webhook_url" yaml:"webhook_url"`
}

// RuntimeConfig 用于放置运行时的通用参数。
type RuntimeConfig struct {
	DataDir string `json:"data_dir" yaml:"data_dir"`
}

// ResolvePath 返回环境变量指定的路径，未设置时返回默认值。
func ResolvePath() string {
	if p := strings.TrimSpace(os.Getenv(EnvPath)); p != "" {
		return p
	}
	return DefaultPath
}

// Load 负责解析指定路径的配置文件，.yaml/.yml 按 YAML 解析，其余按 JSON。
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("配置文件路径为空")
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("打开配置文件失败: %w", err)
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	var cfg Config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(content, &cfg)
	default:
		err = json.Unmarshal(content, &cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	cfg.applyDefaults(filepath.Dir(path))
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default 返回未读取任何文件时的配置，相对路径以 baseDir 为根。
func Default(baseDir string) *Config {
	var cfg Config
	cfg.applyDefaults(baseDir)
	return &cfg
}

// Validate 检查驱动名称等枚举字段。
func (c *Config) Validate() error {
	switch c.Storage.Slot.Driver {
	case "memory", "file", "sqlite", "redis", "mysql":
	default:
		return fmt.Errorf("未知的存储驱动: %s", c.Storage.Slot.Driver)
	}
	switch c.Dispatch.Driver {
	case "memory", "redis", "rabbitmq":
	default:
		return fmt.Errorf("未知的派发驱动: %s", c.Dispatch.Driver)
	}
	if c.Console.StepDelayMaxMs <= c.Console.StepDelayMinMs {
		return fmt.Errorf("step_delay_max_ms 必须大于 step_delay_min_ms")
	}
	if c.Storage.Slot.Driver == "mysql" && c.Storage.Slot.MySQL.DSN == "" {
		return errors.New("mysql 驱动需要 dsn")
	}
	if c.Dispatch.Driver == "rabbitmq" && c.Dispatch.RabbitMQ.URL == "" {
		return errors.New("rabbitmq 驱动需要 url")
	}
	return nil
}

// applyDefaults 在用户未填写部分字段时设置合理的默认值。
func (c *Config) applyDefaults(baseDir string) {
	if c.Server.Address == "" {
		c.Server.Address = ":8080"
	}
	if c.Server.ShutdownTimeoutSec <= 0 {
		c.Server.ShutdownTimeoutSec = 10
	}

	if c.Runtime.DataDir == "" {
		c.Runtime.DataDir = filepath.Join(baseDir, "data")
	} else if !filepath.IsAbs(c.Runtime.DataDir) {
		c.Runtime.DataDir = filepath.Join(baseDir, c.Runtime.DataDir)
	}

	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "json"
	}
	if len(c.Logging.OutputPaths) == 0 {
		c.Logging.OutputPaths = []string{"stdout"}
	}
	if c.Logging.Audit.Enabled && c.Logging.Audit.Path == "" {
		c.Logging.Audit.Path = filepath.Join(c.Runtime.DataDir, "audit.log")
	}

	if c.Console.Capacity <= 0 {
		c.Console.Capacity = 100
	}
	if c.Console.StepDelayMinMs <= 0 {
		c.Console.StepDelayMinMs = 1000
	}
	if c.Console.StepDelayMaxMs <= 0 {
		c.Console.StepDelayMaxMs = 2000
	}

	if c.Builder.Name == "" {
		c.Builder.Name = "My Workflow"
	}
	if c.Builder.RunDurationMs <= 0 {
		c.Builder.RunDurationMs = 3000
	}

	slot := &c.Storage.Slot
	if slot.Driver == "" {
		slot.Driver = "memory"
	}
	slot.Driver = strings.ToLower(slot.Driver)
	if slot.Dir == "" {
		slot.Dir = filepath.Join(c.Runtime.DataDir, "slots")
	} else if !filepath.IsAbs(slot.Dir) {
		slot.Dir = filepath.Join(baseDir, slot.Dir)
	}
	if slot.SQLite.Path == "" {
		slot.SQLite.Path = filepath.Join(c.Runtime.DataDir, "autoflow.db")
	} else if !filepath.IsAbs(slot.SQLite.Path) {
		slot.SQLite.Path = filepath.Join(baseDir, slot.SQLite.Path)
	}
	if slot.Redis.Address == "" {
		slot.Redis.Address = "127.0.0.1:6379"
	}
	if slot.Redis.Prefix == "" {
		slot.Redis.Prefix = "autoflow:slot:"
	}
	if slot.MySQL.MaxOpenConns <= 0 {
		slot.MySQL.MaxOpenConns = 10
	}
	if slot.MySQL.MaxIdleConns <= 0 {
		slot.MySQL.MaxIdleConns = 5
	}
	if slot.MySQL.ConnMaxLifetimeSec <= 0 {
		slot.MySQL.ConnMaxLifetimeSec = 300
	}

	d := &c.Dispatch
	if d.Driver == "" {
		d.Driver = "memory"
	}
	d.Driver = strings.ToLower(d.Driver)
	if d.Workers <= 0 {
		d.Workers = 2
	}
	if d.QueueSize <= 0 {
		d.QueueSize = 64
	}
	if d.Queue == "" {
		if d.Driver == "rabbitmq" {
			d.Queue = "autoflow.runs"
		} else {
			d.Queue = "autoflow:runs"
		}
	}
	if d.Redis.Address == "" {
		d.Redis.Address = slot.Redis.Address
	}
	if d.RabbitMQ.Prefetch <= 0 {
		d.RabbitMQ.Prefetch = d.Workers
	}
}
