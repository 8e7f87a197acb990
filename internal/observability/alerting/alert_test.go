package alerting

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	xerrors "AutoFlow-Agent/internal/errors"
)

type recordingNotifier struct {
	channel Channel
	events  []Event
	err     error
}

func (r *recordingNotifier) Channel() Channel { return r.channel }

func (r *recordingNotifier) Notify(_ context.Context, event Event) error {
	r.events = append(r.events, event)
	return r.err
}

func TestFanoutDeliversToEveryChannel(t *testing.T) {
	a := &recordingNotifier{channel: ChannelLog}
	b := &recordingNotifier{channel: ChannelWebhook, err: errors.New("boom")}
	d := NewFanout(a, nil, b)

	err := d.Notify(context.Background(), Event{Code: xerrors.CodeQueueFailure, Message: "down"})
	if err == nil || !strings.Contains(err.Error(), "webhook") {
		t.Fatalf("expected joined webhook error, got %v", err)
	}
	if len(a.events) != 1 || len(b.events) != 1 {
		t.Fatalf("event not fanned out: %d %d", len(a.events), len(b.events))
	}
	if a.events[0].OccurredAt.IsZero() {
		t.Fatalf("occurred_at should be filled in")
	}
	if got := d.Channels(); len(got) != 2 || got[0] != ChannelLog {
		t.Fatalf("unexpected channels: %v", got)
	}
}

func TestLogNotifierWritesAuditRecord(t *testing.T) {
	var buf bytes.Buffer
	n := &LogNotifier{Logger: slog.New(slog.NewJSONHandler(&buf, nil))}
	err := n.Notify(context.Background(), Event{
		Code:       xerrors.CodeStorageFailure,
		Severity:   xerrors.SeverityCritical,
		Message:    "slot unavailable",
		WorkflowID: "wf-1",
		Metadata:   map[string]string{"stage": "record"},
	})
	if err != nil {
		t.Fatalf("notify: %v", err)
	}
	line := buf.String()
	if !strings.Contains(line, `"level":"ERROR"`) || !strings.Contains(line, `"workflow_id":"wf-1"`) {
		t.Fatalf("unexpected audit line: %s", line)
	}
}

func TestWebhookNotifierPostsJSON(t *testing.T) {
	var got webhookPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("unexpected content type: %s", r.Header.Get("Content-Type"))
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode: %v", err)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	n := &WebhookNotifier{URL: srv.URL, Client: srv.Client()}
	event := Event{
		Code:       xerrors.CodeQueueFailure,
		Severity:   xerrors.SeverityWarning,
		Message:    "publish failed",
		WorkflowID: "2",
		Stage:      "publish",
		OccurredAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	if err := n.Notify(context.Background(), event); err != nil {
		t.Fatalf("notify: %v", err)
	}
	if got.Event.WorkflowID != "2" || !strings.Contains(got.Text, "workflow=2") || !strings.Contains(got.Text, "publish failed") {
		t.Fatalf("unexpected payload: %+v", got)
	}
}

func TestWebhookNotifierReportsHTTPFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	n := &WebhookNotifier{URL: srv.URL}
	if err := n.Notify(context.Background(), Event{Message: "x"}); err == nil {
		t.Fatalf("expected error for 502 response")
	}
	if err := (&WebhookNotifier{}).Notify(context.Background(), Event{}); err != nil {
		t.Fatalf("unconfigured webhook should be skipped, got %v", err)
	}
}
