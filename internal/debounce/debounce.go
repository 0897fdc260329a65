// Package debounce turns a noisy digital level into a stable signal with
// one-update edge flags. Three commit policies share the same state:
// Standard, Prompt and LockOut.
//
// None of the debouncers run on their own; the caller must call Update
// frequently, at most once per loop iteration.
package debounce

import (
	"fmt"
	"time"

	"github.com/sweeney/pulse-logger/internal/clock"
)

// Input yields the raw level of a digital line.
type Input interface {
	Read() (bool, error)
}

// Debouncer is the contract shared by all variants.
type Debouncer interface {
	// Begin seeds the stable and raw levels from the input and resets timers.
	Begin() error

	// Update samples the input and applies the variant's commit policy.
	Update() error

	// Read returns the stable level.
	Read() bool

	// Changed is true only during the update in which the stable level flipped.
	Changed() bool

	// Fell is true only during the update in which the stable level became false.
	Fell() bool

	// Rose is true only during the update in which the stable level became true.
	Rose() bool

	// PreviousDuration is how long the stable level held before the last commit.
	PreviousDuration() time.Duration

	// CurrentDuration is how long the current stable level has held.
	CurrentDuration() time.Duration
}

const (
	flagDebounced uint8 = 1 << iota // reported stable level
	flagUnstable                    // last raw level seen
	flagChanged                     // debounced flipped during this update
)

// Kind names a commit policy.
type Kind string

const (
	KindStandard Kind = "standard"
	KindPrompt   Kind = "prompt"
	KindLockOut  Kind = "lockout"
)

// ParseKind validates a policy name.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(s); k {
	case KindStandard, KindPrompt, KindLockOut:
		return k, nil
	}
	return "", fmt.Errorf("unknown debouncer %q (want standard, prompt or lockout)", s)
}

// New creates a debouncer of the given kind.
func New(kind Kind, in Input, clk clock.Clock, interval time.Duration) (Debouncer, error) {
	switch kind {
	case KindStandard:
		return NewStandard(in, clk, interval), nil
	case KindPrompt:
		return NewPrompt(in, clk, interval), nil
	case KindLockOut:
		return NewLockOut(in, clk, interval), nil
	}
	return nil, fmt.Errorf("unknown debouncer %q", kind)
}

// core holds the state and timing shared by every variant.
type core struct {
	in       Input
	clk      clock.Clock
	interval uint32 // ms

	state uint8

	previous     uint32 // ms; start of the timer the variant is running
	lastCommit   uint32 // ms
	prevDuration uint32 // ms
}

func newCore(in Input, clk clock.Clock, interval time.Duration) core {
	if interval < 0 {
		interval = 0
	}
	return core{in: in, clk: clk, interval: uint32(interval.Milliseconds())}
}

func (c *core) Begin() error {
	c.state = 0
	level, err := c.in.Read()
	if err != nil {
		return fmt.Errorf("debounce begin: %w", err)
	}
	if level {
		c.state |= flagDebounced | flagUnstable
	}

	now := c.clk.Millis()
	c.previous = now
	c.lastCommit = now
	c.prevDuration = 0
	return nil
}

func (c *core) Read() bool    { return c.state&flagDebounced != 0 }
func (c *core) Changed() bool { return c.state&flagChanged != 0 }
func (c *core) Fell() bool    { return c.Changed() && !c.Read() }
func (c *core) Rose() bool    { return c.Changed() && c.Read() }

func (c *core) PreviousDuration() time.Duration {
	return time.Duration(c.prevDuration) * time.Millisecond
}

func (c *core) CurrentDuration() time.Duration {
	return time.Duration(c.clk.Millis()-c.lastCommit) * time.Millisecond
}

func (c *core) unstable() bool { return c.state&flagUnstable != 0 }

// sample clears the changed flag and reads the input. The flag is cleared
// even when the read fails.
func (c *core) sample() (bool, uint32, error) {
	c.state &^= flagChanged
	level, err := c.in.Read()
	if err != nil {
		return false, 0, fmt.Errorf("debounce read: %w", err)
	}
	return level, c.clk.Millis(), nil
}

// commit is the only place the stable level changes.
func (c *core) commit(now uint32) {
	c.state ^= flagDebounced
	c.state |= flagChanged

	c.prevDuration = now - c.lastCommit
	c.lastCommit = now
}
