// Package cooldown tracks per-(user, action) rate limits with an atomic
// check-and-set. State is in-memory only and resets on restart.
package cooldown

import (
	"strings"
	"sync"
	"time"
)

// Clock abstracts time for tests.
type Clock interface {
	Now() time.Time
}

// RealClock reads the system clock.
type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now() }

// Manager holds expiry timestamps keyed by user and action. TryConsume is
// atomic under one mutex: when two near-simultaneous attempts race for the
// same key, exactly one succeeds.
type Manager struct {
	mu   sync.Mutex
	next map[string]time.Time
	clk  Clock
}

// NewManager returns a Manager. A nil clock uses the system clock.
func NewManager(clk Clock) *Manager {
	if clk == nil {
		clk = RealClock{}
	}
	return &Manager{next: make(map[string]time.Time), clk: clk}
}

func key(user, action string) string {
	return strings.ToLower(user) + ":" + action
}

// TryConsume checks the (user, action) cooldown. If it is still active it
// fails and returns the remaining duration without mutating anything;
// otherwise it arms a new cooldown of d and succeeds.
func (m *Manager) TryConsume(user, action string, d time.Duration) (bool, time.Duration) {
	now := m.clk.Now()

	m.mu.Lock()
	defer m.mu.Unlock()

	k := key(user, action)
	if until, ok := m.next[k]; ok && now.Before(until) {
		return false, until.Sub(now)
	}
	m.next[k] = now.Add(d)
	return true, 0
}

// Reset clears the cooldown for (user, action).
func (m *Manager) Reset(user, action string) {
	m.mu.Lock()
	delete(m.next, key(user, action))
	m.mu.Unlock()
}

// Peek returns the expiry for (user, action) without consuming it.
func (m *Manager) Peek(user, action string) (time.Time, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.next[key(user, action)]
	return t, ok
}

// Sweep drops expired entries so the map does not grow without bound.
func (m *Manager) Sweep() {
	now := m.clk.Now()
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, until := range m.next {
		if !now.Before(until) {
			delete(m.next, k)
		}
	}
}
