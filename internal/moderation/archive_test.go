package moderation

import (
	"context"
	"encoding/json"
	"os"
	"testing"
	"time"
)

// newTestArchive connects to the Postgres instance named by TEST_POSTGRES_DSN
// and truncates the abuse_reports table. Tests using it are skipped when no
// database is available.
func newTestArchive(t *testing.T) *Archive {
	t.Helper()
	dsn := os.Getenv("TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("TEST_POSTGRES_DSN not set")
	}

	a, err := OpenArchive(dsn)
	if err != nil {
		t.Skipf("postgres not available: %v", err)
	}
	if _, err := a.db.Exec("TRUNCATE abuse_reports"); err != nil {
		t.Fatalf("truncate: %v", err)
	}
	t.Cleanup(func() { a.Close() })
	return a
}

func TestInsertAndCount(t *testing.T) {
	a := newTestArchive(t)
	ctx := context.Background()

	ev := NewReportEvent("reporter-1", "reported-1", 3, 5*time.Minute, false)
	if err := a.Insert(ctx, ev); err != nil {
		t.Fatalf("Insert() error: %v", err)
	}
	if err := a.Insert(ctx, NewReportEvent("reporter-2", "reported-1", 4, 5*time.Minute, false)); err != nil {
		t.Fatalf("Insert() error: %v", err)
	}

	count, err := a.CountAgainst(ctx, "reported-1")
	if err != nil {
		t.Fatalf("CountAgainst() error: %v", err)
	}
	if count != 2 {
		t.Errorf("CountAgainst() = %d, want 2", count)
	}

	count, err = a.CountAgainst(ctx, "someone-else")
	if err != nil {
		t.Fatalf("CountAgainst() error: %v", err)
	}
	if count != 0 {
		t.Errorf("CountAgainst(unreported) = %d, want 0", count)
	}
}

func TestReportEvent_JSONRoundTrip(t *testing.T) {
	ev := NewReportEvent("a", "b", 30, 0, true)

	data, err := json.Marshal(ev)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var decoded ReportEvent
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded != ev {
		t.Errorf("round trip changed the event: %+v != %+v", decoded, ev)
	}
}

func TestNewReportEvent_BlockSeconds(t *testing.T) {
	ev := NewReportEvent("a", "b", 10, 30*time.Minute, false)
	if ev.BlockSeconds != 1800 {
		t.Errorf("BlockSeconds = %d, want 1800", ev.BlockSeconds)
	}
	if ev.Permanent {
		t.Error("expected non-permanent event")
	}
}
