// Package clock supplies the two time sources the sensor needs: a wrapping
// millisecond counter for debounce timing and wall-clock time for bucketing.
package clock

import (
	"sync"
	"time"
)

// Clock is the time source consumed by debouncers and the sensor.
type Clock interface {
	// Millis returns milliseconds since an arbitrary origin. The value wraps
	// at 2^32; callers must only ever subtract two readings.
	Millis() uint32

	// Now returns the wall-clock time.
	Now() time.Time
}

// Real reads the system clock. Millis is derived from the monotonic reading
// taken at construction.
type Real struct {
	origin time.Time
}

// NewReal creates a Real clock whose millisecond counter starts at zero.
func NewReal() *Real {
	return &Real{origin: time.Now()}
}

// Millis returns milliseconds since NewReal, truncated to 32 bits.
func (r *Real) Millis() uint32 {
	return uint32(time.Since(r.origin).Milliseconds())
}

// Now returns the current wall-clock time.
func (r *Real) Now() time.Time {
	return time.Now()
}

// Fake is a manually advanced clock for tests.
type Fake struct {
	mu     sync.Mutex
	millis uint32
	now    time.Time
}

// NewFake creates a Fake clock at the given wall-clock time with Millis at zero.
func NewFake(now time.Time) *Fake {
	return &Fake{now: now}
}

// Millis returns the current fake millisecond counter.
func (f *Fake) Millis() uint32 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.millis
}

// Now returns the current fake wall-clock time.
func (f *Fake) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

// Advance moves both the millisecond counter and wall clock forward by d.
func (f *Fake) Advance(d time.Duration) {
	f.mu.Lock()
	f.millis += uint32(d.Milliseconds())
	f.now = f.now.Add(d)
	f.mu.Unlock()
}

// SetMillis sets the millisecond counter without touching the wall clock.
// Useful for exercising wraparound.
func (f *Fake) SetMillis(ms uint32) {
	f.mu.Lock()
	f.millis = ms
	f.mu.Unlock()
}

// Set moves the wall clock to t without touching the millisecond counter,
// simulating an NTP step or RTC reset.
func (f *Fake) Set(t time.Time) {
	f.mu.Lock()
	f.now = t
	f.mu.Unlock()
}
