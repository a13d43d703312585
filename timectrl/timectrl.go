package timectrl

import (
	"sync"
	"time"
)

// Clock is the time source benchmark phases are measured against. It lets
// the harness run against wall-clock time in production and a stepped clock
// in tests.
type Clock interface {
	// Now returns the current time.
	Now() time.Time
}

// WallClock reads the system monotonic clock.
type WallClock struct{}

func (WallClock) Now() time.Time { return time.Now() }

// StepClock is a deterministic Clock. Every call to Now returns the current
// time and then advances it by Tick.
type StepClock struct {
	mu      sync.Mutex
	current time.Time
	Tick    time.Duration
}

// NewStepClock constructs a clock starting at start.
func NewStepClock(start time.Time, tick time.Duration) *StepClock {
	return &StepClock{current: start, Tick: tick}
}

// Now implements Clock.
func (c *StepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.current
	c.current = c.current.Add(c.Tick)
	return now
}

// SetTime moves the clock to t.
func (c *StepClock) SetTime(t time.Time) {
	c.mu.Lock()
	c.current = t
	c.mu.Unlock()
}

// Advance moves the clock forward by d without counting as a read.
func (c *StepClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.current = c.current.Add(d)
	c.mu.Unlock()
}

// Lap is a named interval measured by a Stopwatch.
type Lap struct {
	Name    string
	Elapsed time.Duration
}

// Stopwatch measures consecutive intervals against a Clock and notifies
// registered listeners for every completed lap.
type Stopwatch struct {
	clock Clock
	start time.Time

	listeners []func(Lap)
}

// NewStopwatch returns a stopwatch reading c. A nil clock means WallClock.
func NewStopwatch(c Clock) *Stopwatch {
	if c == nil {
		c = WallClock{}
	}
	return &Stopwatch{clock: c}
}

// AddListener registers a callback invoked after every Lap.
func (s *Stopwatch) AddListener(fn func(Lap)) {
	s.listeners = append(s.listeners, fn)
}

// Start (re)starts the current interval.
func (s *Stopwatch) Start() {
	s.start = s.clock.Now()
}

// Lap closes the current interval under name, starts the next one and
// returns the elapsed time.
func (s *Stopwatch) Lap(name string) time.Duration {
	now := s.clock.Now()
	elapsed := now.Sub(s.start)
	s.start = now

	lap := Lap{Name: name, Elapsed: elapsed}
	for _, fn := range s.listeners {
		fn(lap)
	}
	return elapsed
}
