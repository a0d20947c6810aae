package instance

import "testing"

func TestIDUsesConfiguredName(t *testing.T) {
	t.Setenv("BISKAKEN_INSTANCE_ID", "")
	t.Setenv("WORKER_ID", "cron-2")
	t.Setenv("DYNO", "web.1")

	if got := ID(); got != "cron-2" {
		t.Fatalf("expected WORKER_ID to win over DYNO, got %q", got)
	}
}

func TestIDFallsBack(t *testing.T) {
	t.Setenv("BISKAKEN_INSTANCE_ID", "")
	t.Setenv("WORKER_ID", "")
	t.Setenv("DYNO", "")

	if got := ID(); got == "" {
		t.Fatal("expected a non-empty fallback id")
	}
}
