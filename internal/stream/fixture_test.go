package stream

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeFixture(t *testing.T, lines string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "trades.jsonl")
	if err := os.WriteFile(path, []byte(lines), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestFixture_ReplaysFileInOrder(t *testing.T) {
	path := writeFixture(t, `{"ev":"T","sym":"O:SPY240913C00550000","price":1.25,"size":10,"timestamp":1726200000123}
[{"ev":"T","sym":"O:SPY240913P00550000","price":0.95,"size":3,"timestamp":1726200000124}]
{"ev":"status","status":"connected","message":"replay"}
garbage line
`)

	f := NewFixture(FixtureConfig{Path: path, RingSize: 16}, nil)
	if err := f.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	first, ok := f.Events().Receive()
	if !ok || first.Symbol != "SPY240913C00550000" {
		t.Errorf("first event = (%+v, %v)", first, ok)
	}
	second, ok := f.Events().Receive()
	if !ok || second.Symbol != "SPY240913P00550000" {
		t.Errorf("second event = (%+v, %v)", second, ok)
	}

	// Single pass closes the ring at end of file.
	if _, ok := f.Events().Receive(); ok {
		t.Error("ring should close after one pass")
	}

	stats := f.Stats()
	if stats.EventsEmitted != 2 {
		t.Errorf("EventsEmitted = %d, want 2", stats.EventsEmitted)
	}
	if stats.Malformed != 1 {
		t.Errorf("Malformed = %d, want 1 (garbage line)", stats.Malformed)
	}
	if stats.Skipped != 1 {
		t.Errorf("Skipped = %d, want 1 (status frame)", stats.Skipped)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	f.Stop(ctx)
}

func TestFixture_MissingFile(t *testing.T) {
	f := NewFixture(FixtureConfig{Path: "/nonexistent/trades.jsonl"}, nil)
	if err := f.Start(context.Background()); err == nil {
		t.Error("Start() with missing fixture should fail")
	}
}
