package testutil

import (
	"fmt"
	"sync"
	"time"
)

// StubClock returns a fixed time. Safe for concurrent use.
type StubClock struct {
	mu  sync.Mutex
	now time.Time
}

// NewStubClock creates a StubClock set to the given time.
func NewStubClock(t time.Time) *StubClock {
	return &StubClock{now: t}
}

// At returns a StubClock set to noon UTC on the given day.
func At(year int, month time.Month, day int) *StubClock {
	return NewStubClock(time.Date(year, month, day, 12, 0, 0, 0, time.UTC))
}

func (c *StubClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Set moves the clock to t.
func (c *StubClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

// Advance moves the clock forward by d.
func (c *StubClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// StubIDGenerator returns sequential IDs: "id-1", "id-2", etc.
type StubIDGenerator struct {
	mu      sync.Mutex
	counter int
}

func NewStubIDGenerator() *StubIDGenerator {
	return &StubIDGenerator{}
}

func (g *StubIDGenerator) New() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.counter++
	return fmt.Sprintf("id-%d", g.counter)
}

// StubRand yields the queued values in order, then repeats the last one.
type StubRand struct {
	mu     sync.Mutex
	values []float64
	calls  int
}

func NewStubRand(values ...float64) *StubRand {
	return &StubRand{values: values}
}

func (r *StubRand) Float64() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	if len(r.values) == 0 {
		return 0
	}
	v := r.values[0]
	if len(r.values) > 1 {
		r.values = r.values[1:]
	}
	return v
}

// Calls returns how many values have been drawn.
func (r *StubRand) Calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}
