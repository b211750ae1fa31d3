// Package clock injects the time source into domain services. All temporal
// rules (consent expiry, session validity, grant windows) read the clock
// they were constructed with; domain code never samples the wall clock.
package clock

import (
	"sync"
	"time"
)

// Clock supplies the current time to services.
type Clock interface {
	Now() time.Time
}

// System reads the wall clock. Production wiring uses this.
type System struct{}

func NewSystem() System { return System{} }

func (System) Now() time.Time { return time.Now() }

// Manual is a settable clock for tests. The zero value starts at the Unix
// epoch; use Set or Advance to move it.
type Manual struct {
	mu  sync.Mutex
	now time.Time
}

// NewManual creates a manual clock pinned to the given instant.
func NewManual(now time.Time) *Manual {
	return &Manual{now: now}
}

func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// Set pins the clock to the given instant.
func (m *Manual) Set(now time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = now
}

// Advance moves the clock forward by d. Negative durations move it back;
// tests that rewind time are testing the service, not the clock.
func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = m.now.Add(d)
}
