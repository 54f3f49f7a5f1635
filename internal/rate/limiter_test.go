package rate

import (
	"fmt"
	"testing"
	"time"
)

func TestAllowWithinWindow(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	m := NewMemory()
	m.now = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		if ok, _ := m.Allow("post:1.2.3.4", 3, time.Minute); !ok {
			t.Fatalf("call %d denied", i)
		}
	}
	ok, retry := m.Allow("post:1.2.3.4", 3, time.Minute)
	if ok {
		t.Fatalf("expected fourth call to be denied")
	}
	if retry != time.Minute {
		t.Fatalf("retry = %v", retry)
	}
	if ok, _ := m.Allow("post:5.6.7.8", 3, time.Minute); !ok {
		t.Fatalf("other key should have its own window")
	}

	now = now.Add(time.Minute)
	if ok, _ := m.Allow("post:1.2.3.4", 3, time.Minute); !ok {
		t.Fatalf("window should have reset")
	}
}

func TestZeroLimitDisables(t *testing.T) {
	m := NewMemory()
	for i := 0; i < 10; i++ {
		if ok, _ := m.Allow("k", 0, time.Minute); !ok {
			t.Fatalf("limit 0 should never deny")
		}
	}
	if m.Len() != 0 {
		t.Fatalf("disabled limiter should not track keys")
	}
}

func TestSweepDropsExpiredWindows(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	m := NewMemory()
	m.now = func() time.Time { return now }

	for i := 0; i < sweepEvery-1; i++ {
		m.Allow(fmt.Sprintf("k%d", i), 1, time.Second)
	}
	now = now.Add(2 * time.Second)
	m.Allow("fresh", 1, time.Second)
	if got := m.Len(); got != 1 {
		t.Fatalf("expected only the fresh window to survive, got %d", got)
	}
}
