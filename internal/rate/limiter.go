package rate

import (
	"sync"
	"time"
)

// Limiter is a fixed-window counter keyed by caller.
type Limiter interface {
	Allow(key string, limit int, window time.Duration) (bool, time.Duration)
}

type MemoryLimiter struct {
	mu      sync.Mutex
	windows map[string]*window
	now     func() time.Time
	calls   int
}

type window struct {
	count   int
	resetAt time.Time
	length  time.Duration
}

// sweepEvery is how many Allow calls pass between evictions of expired
// windows.
const sweepEvery = 1024

func NewMemory() *MemoryLimiter {
	return &MemoryLimiter{windows: make(map[string]*window), now: time.Now}
}

// Allow counts one event for key. A non-positive limit disables limiting.
func (m *MemoryLimiter) Allow(key string, limit int, length time.Duration) (bool, time.Duration) {
	if limit <= 0 {
		return true, 0
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	m.calls++
	if m.calls%sweepEvery == 0 {
		m.sweep(now)
	}

	w, ok := m.windows[key]
	if !ok || !now.Before(w.resetAt) || w.length != length {
		w = &window{resetAt: now.Add(length), length: length}
		m.windows[key] = w
	}
	if w.count >= limit {
		return false, w.resetAt.Sub(now)
	}
	w.count++
	return true, w.resetAt.Sub(now)
}

func (m *MemoryLimiter) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.windows)
}

func (m *MemoryLimiter) sweep(now time.Time) {
	for key, w := range m.windows {
		if !now.Before(w.resetAt) {
			delete(m.windows, key)
		}
	}
}
