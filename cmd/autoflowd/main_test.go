package main

import (
	"bytes"
	"context"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"AutoFlow-Agent/internal/config"
	"AutoFlow-Agent/internal/dashboard"
	"AutoFlow-Agent/internal/dispatch"
)

func TestOpenSlotDrivers(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	for _, driver := range []string{"memory", "file", "sqlite"} {
		t.Run(driver, func(t *testing.T) {
			slot, err := openSlot(ctx, config.SlotConfig{
				Driver: driver,
				Dir:    filepath.Join(dir, "slots"),
				SQLite: config.SQLiteConfig{Path: filepath.Join(dir, "autoflow.db")},
			})
			if err != nil {
				t.Fatalf("open %s: %v", driver, err)
			}
			defer slot.Close()

			if err := slot.Put(ctx, "autoflow-workflows", []byte(`[]`)); err != nil {
				t.Fatalf("put: %v", err)
			}
			got, err := slot.Get(ctx, "autoflow-workflows")
			if err != nil || string(got) != "[]" {
				t.Fatalf("get: %q, %v", got, err)
			}
		})
	}

	if _, err := openSlot(ctx, config.SlotConfig{Driver: "etcd"}); err == nil {
		t.Fatalf("expected error for unknown driver")
	}
}

func TestOpenQueueMemory(t *testing.T) {
	q, err := openQueue(context.Background(), config.DispatchConfig{Driver: "memory", QueueSize: 4})
	if err != nil {
		t.Fatalf("open queue: %v", err)
	}
	defer q.Close()
	if _, ok := q.(*dispatch.MemoryQueue); !ok {
		t.Fatalf("unexpected queue type %T", q)
	}
	if _, err := openQueue(context.Background(), config.DispatchConfig{Driver: "kafka"}); err == nil {
		t.Fatalf("expected error for unknown driver")
	}
}

func TestLoadConfigFallsBackToDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv(config.EnvPath, "")

	cfg, err := loadConfig()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Storage.Slot.Driver != "memory" || cfg.Server.Address != ":8080" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}

	t.Setenv(config.EnvPath, filepath.Join(t.TempDir(), "missing.json"))
	if _, err := loadConfig(); err == nil {
		t.Fatalf("expected error for explicit missing path")
	}
}

func TestWebhookNotifierOptional(t *testing.T) {
	if webhookNotifier(config.AlertsConfig{}) != nil {
		t.Fatalf("expected nil notifier without url")
	}
	if webhookNotifier(config.AlertsConfig{WebhookURL: "http://example.invalid/hook"}) == nil {
		t.Fatalf("expected webhook notifier")
	}
}

type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestAuditDashboardRecordsChanges(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	out := &lockedBuffer{}
	state := dashboard.NewState()

	done := make(chan struct{})
	go func() {
		auditDashboard(ctx, state, slog.New(slog.NewTextHandler(out, nil)))
		close(done)
	}()

	// 订阅在协程里建立，先于订阅发生的变化不会被记录，所以循环切换直到出现审计记录。
	deadline := time.After(2 * time.Second)
	for !strings.Contains(out.String(), "面板状态变更") {
		state.ToggleTheme()
		select {
		case <-deadline:
			cancel()
			t.Fatalf("dashboard change not audited")
		case <-time.After(20 * time.Millisecond):
		}
	}
	if !strings.Contains(out.String(), "section=home") {
		t.Fatalf("unexpected audit record: %s", out.String())
	}
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("auditDashboard did not stop on cancel")
	}
}
