// Package clock lets expiry logic read time through an interface so tests can
// move it forward deterministically.
package clock

import (
	"sync"
	"time"
)

// Clocker abstracts time.Now.
type Clocker interface {
	Now() time.Time
}

// System reads the wall clock.
type System struct{}

func New() System { return System{} }

func (System) Now() time.Time { return time.Now() }

// Fake is a settable clock for tests.
type Fake struct {
	mu  sync.Mutex
	now time.Time
}

func NewFake(start time.Time) *Fake {
	return &Fake{now: start}
}

func (f *Fake) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

// Advance moves the clock forward by d.
func (f *Fake) Advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.mu.Unlock()
}

func (f *Fake) Set(t time.Time) {
	f.mu.Lock()
	f.now = t
	f.mu.Unlock()
}
