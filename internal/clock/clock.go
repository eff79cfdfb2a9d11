// Package clock abstracts time for the poll loop so cycles can be driven from tests.
package clock

import (
	"sync"
	"time"
)

// Clock interface abstracts time operations for testing
type Clock interface {
	// Now returns the current time
	Now() time.Time
	// After waits for the duration to elapse and then sends the current time on the returned channel
	After(d time.Duration) <-chan time.Time
}

// RealClock implements Clock using the real system time
type RealClock struct{}

// Now returns the current time
func (RealClock) Now() time.Time {
	return time.Now()
}

// After wraps time.After
func (RealClock) After(d time.Duration) <-chan time.Time {
	return time.After(d)
}

// MockClock implements Clock for testing. Time only moves when Advance or Set is called.
type MockClock struct {
	mu      sync.Mutex
	current time.Time
	waiters []waiter
	waitCh  chan struct{}
}

type waiter struct {
	deadline time.Time
	ch       chan time.Time
}

// NewMockClock returns a MockClock set to t
func NewMockClock(t time.Time) *MockClock {
	return &MockClock{
		current: t,
		waitCh:  make(chan struct{}, 64),
	}
}

// Now returns the mocked current time
func (m *MockClock) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// After returns a channel that fires once the mocked time reaches now+d
func (m *MockClock) After(d time.Duration) <-chan time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()

	ch := make(chan time.Time, 1)
	deadline := m.current.Add(d)
	if d <= 0 {
		ch <- m.current
		return ch
	}
	m.waiters = append(m.waiters, waiter{deadline: deadline, ch: ch})

	select {
	case m.waitCh <- struct{}{}:
	default:
	}
	return ch
}

// Advance moves the mocked time forward by the given duration
func (m *MockClock) Advance(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current = m.current.Add(d)
	m.fire()
}

// Set sets the mocked current time to a specific value
func (m *MockClock) Set(t time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current = t
	m.fire()
}

// BlockUntilWaiting blocks until some goroutine has called After, or timeout elapses.
// It returns false on timeout.
func (m *MockClock) BlockUntilWaiting(timeout time.Duration) bool {
	select {
	case <-m.waitCh:
		return true
	case <-time.After(timeout):
		return false
	}
}

// fire releases waiters whose deadline has passed; m.mu must be held
func (m *MockClock) fire() {
	pending := m.waiters[:0]
	for _, w := range m.waiters {
		if !m.current.Before(w.deadline) {
			w.ch <- m.current
			continue
		}
		pending = append(pending, w)
	}
	m.waiters = pending
}

// Ensure implementations satisfy the interface
var (
	_ Clock = RealClock{}
	_ Clock = (*MockClock)(nil)
)
