package console

import (
	"fmt"
	"reflect"
	"strings"
	"testing"
	"time"

	"AutoFlow-Agent/internal/clock"
)

func fixedClock(at time.Time) clock.Clock {
	return clock.ClockFunc(func() time.Time { return at })
}

func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("log-%d", n)
	}
}

func TestLogKeepsNewestFirstAndCapsAtCapacity(t *testing.T) {
	log := NewLog(WithIDGenerator(sequentialIDs()))

	for i := 0; i < 250; i++ {
		log.Append(CategoryInfo, fmt.Sprintf("message %d", i), "")
		if log.Len() > DefaultCapacity {
			t.Fatalf("log exceeded capacity after %d appends: %d", i+1, log.Len())
		}
	}

	entries := log.Entries()
	if len(entries) != DefaultCapacity {
		t.Fatalf("expected %d entries, got %d", DefaultCapacity, len(entries))
	}
	if entries[0].Message != "message 249" {
		t.Fatalf("expected newest first, got %q", entries[0].Message)
	}
	if entries[len(entries)-1].Message != "message 150" {
		t.Fatalf("expected oldest retained to be message 150, got %q", entries[len(entries)-1].Message)
	}
	for i := 1; i < len(entries); i++ {
		var prev, cur int
		fmt.Sscanf(entries[i-1].ID, "log-%d", &prev)
		fmt.Sscanf(entries[i].ID, "log-%d", &cur)
		if prev <= cur {
			t.Fatalf("entries not ordered by insertion at %d: %s then %s", i, entries[i-1].ID, entries[i].ID)
		}
	}
}

func TestAppendAssignsDisplayFields(t *testing.T) {
	at := time.Date(2024, 1, 20, 14, 22, 5, 0, time.UTC)
	log := NewLog(WithLogClock(fixedClock(at)), WithLogRandom(clock.FixedRandom(0.25)))

	entry := log.Append(CategoryAction, "Clicking submit button", `Button[type="submit"]`)
	if entry.ID == "" {
		t.Fatalf("expected generated id")
	}
	if entry.Timestamp != "14:22:05" {
		t.Fatalf("unexpected timestamp: %s", entry.Timestamp)
	}
	if entry.CreatedAt != at.UnixMilli() {
		t.Fatalf("unexpected created_at: %d", entry.CreatedAt)
	}
	if entry.DurationMs != 1000 {
		t.Fatalf("expected duration 1000ms from fixed random, got %v", entry.DurationMs)
	}

	other := NewLog()
	for i := 0; i < 200; i++ {
		d := other.Append(CategoryInfo, "x", "").DurationMs
		if d < 500 || d >= 2500 {
			t.Fatalf("duration out of range: %v", d)
		}
	}
}

func TestEntriesReturnsCopy(t *testing.T) {
	log := NewLog()
	log.Append(CategoryInfo, "original", "")

	entries := log.Entries()
	entries[0].Message = "mutated"

	latest, ok := log.Latest()
	if !ok || latest.Message != "original" {
		t.Fatalf("stored entry was mutated: %+v", latest)
	}
}

func TestClearEmptiesLog(t *testing.T) {
	log := NewLog()
	log.Seed(BootSteps())
	if log.Len() != 2 {
		t.Fatalf("expected boot entries, got %d", log.Len())
	}
	latest, _ := log.Latest()
	if latest.Message != "Puppeteer browser launched" {
		t.Fatalf("unexpected latest boot entry: %q", latest.Message)
	}

	log.Clear()
	if log.Len() != 0 {
		t.Fatalf("expected empty log, got %d", log.Len())
	}
	if _, ok := log.Latest(); ok {
		t.Fatalf("expected no latest entry")
	}
	data, err := log.ExportSnapshot()
	if err != nil {
		t.Fatalf("export empty log: %v", err)
	}
	if strings.TrimSpace(string(data)) != "[]" {
		t.Fatalf("empty export should be an empty array, got %s", data)
	}
}

func TestExportSnapshotRoundTrip(t *testing.T) {
	log := NewLog(WithLogRandom(clock.NewRandom(7)))
	log.Seed(BootSteps())
	log.Seed(DefaultScript())
	log.Append(CategoryWarning, "Workflow execution stopped", "Stopped by user")
	log.Append(CategoryError, "no details", "")

	data, err := log.ExportSnapshot()
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	again, err := log.ExportSnapshot()
	if err != nil {
		t.Fatalf("second export: %v", err)
	}
	if string(data) != string(again) {
		t.Fatalf("export is not reproducible")
	}

	parsed, err := ParseSnapshot(data)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !reflect.DeepEqual(parsed, log.Entries()) {
		t.Fatalf("round trip mismatch:\n got %+v\nwant %+v", parsed, log.Entries())
	}
}

func TestParseSnapshotRejectsGarbage(t *testing.T) {
	if _, err := ParseSnapshot([]byte("{not json")); err == nil {
		t.Fatalf("expected decode error")
	}
}

func TestExportFilenameEncodesDate(t *testing.T) {
	at := time.Date(2026, 10, 19, 23, 59, 0, 0, time.UTC)
	if got := ExportFilename(at); got != "autoflow-logs-2026-10-19.json" {
		t.Fatalf("unexpected filename: %s", got)
	}
	shanghai := time.FixedZone("CST", 8*3600)
	early := time.Date(2026, 10, 20, 1, 30, 0, 0, shanghai)
	if got := ExportFilename(early); got != "autoflow-logs-2026-10-19.json" {
		t.Fatalf("filename should use the UTC date, got %s", got)
	}
}

func TestParseCategory(t *testing.T) {
	for _, c := range Categories() {
		got, err := ParseCategory(strings.ToUpper(string(c)))
		if err != nil || got != c {
			t.Fatalf("ParseCategory(%q) = %q, %v", c, got, err)
		}
	}
	if _, err := ParseCategory("debug"); err == nil {
		t.Fatalf("expected error for unknown category")
	}
}

func TestObserverSeesEveryAppend(t *testing.T) {
	var seen []string
	log := NewLog(WithObserver(func(e Entry) { seen = append(seen, e.Message) }))
	log.Append(CategoryInfo, "a", "")
	log.Append(CategorySuccess, "b", "")
	if !reflect.DeepEqual(seen, []string{"a", "b"}) {
		t.Fatalf("unexpected observed messages: %v", seen)
	}
}
