package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"AutoFlow-Agent/internal/api"
	"AutoFlow-Agent/internal/config"
	"AutoFlow-Agent/internal/console"
	"AutoFlow-Agent/internal/dashboard"
	"AutoFlow-Agent/internal/dispatch"
	"AutoFlow-Agent/internal/observability/alerting"
	"AutoFlow-Agent/internal/observability/metrics"
	"AutoFlow-Agent/internal/storage/mysql"
	"AutoFlow-Agent/internal/storage/redis"
	"AutoFlow-Agent/internal/storage/sqlite"
	"AutoFlow-Agent/internal/workflow"
	"AutoFlow-Agent/pkg/logger"
)

// main 是 AutoFlow 守护进程的入口。
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		log.Fatalf("autoflowd 运行失败: %v", err)
	}
}

func run(ctx context.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if err := logger.Init(logger.Config{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		OutputPaths: cfg.Logging.OutputPaths,
		AddSource:   cfg.Logging.AddSource,
		Audit: logger.AuditConfig{
			Enabled:    cfg.Logging.Audit.Enabled,
			Path:       cfg.Logging.Audit.Path,
			MaxSizeMB:  cfg.Logging.Audit.MaxSizeMB,
			MaxBackups: cfg.Logging.Audit.MaxBackups,
		},
	}); err != nil {
		return fmt.Errorf("初始化日志失败: %w", err)
	}
	defer logger.Sync()

	if err := os.MkdirAll(cfg.Runtime.DataDir, 0o755); err != nil {
		return err
	}

	slot, err := openSlot(ctx, cfg.Storage.Slot)
	if err != nil {
		return err
	}
	defer func() {
		if err := slot.Close(); err != nil {
			logger.L().Warn("关闭存储失败", slog.Any("error", err))
		}
	}()

	entries := console.NewLog(
		console.WithCapacity(cfg.Console.Capacity),
		console.WithObserver(func(e console.Entry) {
			metrics.ObserveConsoleEntry(string(e.Category))
		}),
	)
	if cfg.Console.SeedsBootSteps() {
		entries.Seed(console.BootSteps())
	}
	minDelay, maxDelay := cfg.Console.StepDelay()
	runner := console.NewRunner(entries,
		console.WithStepDelay(minDelay, maxDelay),
		console.WithAuditLogger(logger.Audit()),
	)

	builder := workflow.NewBuilder(
		workflow.WithSlot(slot),
		workflow.WithBuilderName(cfg.Builder.Name),
		workflow.WithRunDuration(cfg.Builder.RunDuration()),
		workflow.WithBuilderLogger(logger.Named("builder")),
	)
	catalog, err := workflow.NewCatalog(ctx,
		workflow.WithCatalogSlot(slot),
		workflow.WithCatalogLogger(logger.Named("catalog")),
	)
	if err != nil {
		return err
	}

	alerts := alerting.NewFanout(
		&alerting.LogNotifier{Logger: logger.Audit()},
		webhookNotifier(cfg.Dispatch.Alerts),
	)

	queue, err := openQueue(ctx, cfg.Dispatch)
	if err != nil {
		return err
	}
	defer func() {
		if err := queue.Close(); err != nil {
			logger.L().Warn("关闭运行队列失败", slog.Any("error", err))
		}
	}()

	runs := dispatch.NewService(catalog, queue, alerts)
	processor := dispatch.NewProcessor(catalog, entries, queue,
		dispatch.WithWorkerCount(cfg.Dispatch.Workers),
		dispatch.WithProcessorLogger(logger.Named("dispatch")),
		dispatch.WithAlertDispatcher(alerts),
	)

	processorCtx, processorCancel := context.WithCancel(ctx)
	defer processorCancel()
	go func() {
		if err := processor.Start(processorCtx); err != nil && !errors.Is(err, context.Canceled) {
			logger.L().Error("运行处理器异常退出", slog.Any("error", err))
		}
	}()

	logger.L().Info("AutoFlow 启动完成",
		slog.String("slot_driver", cfg.Storage.Slot.Driver),
		slog.String("dispatch_driver", cfg.Dispatch.Driver),
		slog.Int("workflows", catalog.Len()),
	)

	board := dashboard.NewState()
	go auditDashboard(ctx, board, logger.Audit())

	server := api.NewServer(cfg.Server.Address, api.Dependencies{
		Runner:    runner,
		Builder:   builder,
		Catalog:   catalog,
		Runs:      runs,
		Dashboard: board,
	}, api.WithShutdownTimeout(cfg.Server.ShutdownTimeout()))

	if err := server.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	runner.Stop()
	return nil
}

// auditDashboard 把页面与配色的每次变化写入审计日志，直到上下文结束。
func auditDashboard(ctx context.Context, state *dashboard.State, audit *slog.Logger) {
	changes, unsubscribe := state.Subscribe()
	defer unsubscribe()
	for {
		select {
		case <-ctx.Done():
			return
		case snap := <-changes:
			audit.Info("面板状态变更",
				slog.String("section", string(snap.Section)),
				slog.String("theme", string(snap.Theme)),
				slog.Uint64("version", snap.Version),
			)
		}
	}
}

// loadConfig 读取配置文件；默认路径不存在时使用内置默认值。
func loadConfig() (*config.Config, error) {
	path := config.ResolvePath()
	cfg, err := config.Load(path)
	if err == nil {
		return cfg, nil
	}
	if path == config.DefaultPath && errors.Is(err, os.ErrNotExist) {
		log.Printf("未找到 %s，使用默认配置", path)
		return config.Default("."), nil
	}
	return nil, err
}

func openSlot(ctx context.Context, cfg config.SlotConfig) (workflow.Slot, error) {
	switch cfg.Driver {
	case "memory":
		return workflow.NewMemorySlot(), nil
	case "file":
		return workflow.NewFileSlot(cfg.Dir)
	case "sqlite":
		return sqlite.Open(cfg.SQLite.Path)
	case "redis":
		return redis.NewSlotStore(ctx, redis.Config{
			Address:  cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Prefix:   cfg.Redis.Prefix,
		})
	case "mysql":
		return mysql.NewSlotStore(ctx, mysql.Config{
			DSN:             cfg.MySQL.DSN,
			MaxOpenConns:    cfg.MySQL.MaxOpenConns,
			MaxIdleConns:    cfg.MySQL.MaxIdleConns,
			ConnMaxLifetime: time.Duration(cfg.MySQL.ConnMaxLifetimeSec) * time.Second,
		})
	default:
		return nil, fmt.Errorf("未知的存储驱动: %s", cfg.Driver)
	}
}

func openQueue(ctx context.Context, cfg config.DispatchConfig) (dispatch.Queue, error) {
	switch cfg.Driver {
	case "memory":
		return dispatch.NewMemoryQueue(cfg.QueueSize), nil
	case "redis":
		return dispatch.NewRedisQueue(ctx, dispatch.RedisQueueConfig{
			Address:  cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Queue:    cfg.Queue,
		})
	case "rabbitmq":
		return dispatch.NewRabbitMQQueue(dispatch.RabbitMQConfig{
			URL:      cfg.RabbitMQ.URL,
			Queue:    cfg.Queue,
			Prefetch: cfg.RabbitMQ.Prefetch,
			Durable:  true,
		})
	default:
		return nil, fmt.Errorf("未知的派发驱动: %s", cfg.Driver)
	}
}

func webhookNotifier(cfg config.AlertsConfig) alerting.Notifier {
	if cfg.WebhookURL == "" {
		return nil
	}
	return &alerting.WebhookNotifier{URL: cfg.WebhookURL}
}
