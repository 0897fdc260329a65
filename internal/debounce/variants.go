package debounce

import (
	"time"

	"github.com/sweeney/pulse-logger/internal/clock"
)

// Standard commits a new level once the raw input has held it for the full
// interval. Any raw change restarts the timer.
type Standard struct {
	core
}

// NewStandard creates a Standard debouncer. Call Begin before Update.
func NewStandard(in Input, clk clock.Clock, interval time.Duration) *Standard {
	return &Standard{core: newCore(in, clk, interval)}
}

// Update samples the input once.
func (d *Standard) Update() error {
	level, now, err := d.sample()
	if err != nil {
		return err
	}

	if level != d.unstable() {
		// still bouncing
		d.previous = now
		d.state ^= flagUnstable
		return nil
	}

	if now-d.previous >= d.interval && level != d.Read() {
		d.previous = now
		d.commit(now)
	}
	return nil
}

// Prompt commits on the first differing sample as long as the raw input has
// not changed for an interval; otherwise it waits for the input to settle.
// The commit check runs before the raw-change timer is refreshed.
type Prompt struct {
	core
}

// NewPrompt creates a Prompt debouncer. Call Begin before Update.
func NewPrompt(in Input, clk clock.Clock, interval time.Duration) *Prompt {
	return &Prompt{core: newCore(in, clk, interval)}
}

// Update samples the input once.
func (d *Prompt) Update() error {
	level, now, err := d.sample()
	if err != nil {
		return err
	}

	if level != d.Read() && now-d.previous >= d.interval {
		d.commit(now)
	}

	if level != d.unstable() {
		d.state ^= flagUnstable
		d.previous = now
	}
	return nil
}

// LockOut accepts a change immediately and then ignores the input until the
// interval has passed since that commit.
type LockOut struct {
	core
}

// NewLockOut creates a LockOut debouncer. Call Begin before Update.
func NewLockOut(in Input, clk clock.Clock, interval time.Duration) *LockOut {
	return &LockOut{core: newCore(in, clk, interval)}
}

// Begin seeds the levels and starts unlocked, so the first change after
// Begin is accepted without waiting.
func (d *LockOut) Begin() error {
	if err := d.core.Begin(); err != nil {
		return err
	}
	d.previous -= d.interval
	return nil
}

// Update samples the input once unless locked out.
func (d *LockOut) Update() error {
	d.state &^= flagChanged

	now := d.clk.Millis()
	if now-d.previous < d.interval {
		return nil
	}

	level, now, err := d.sample()
	if err != nil {
		return err
	}
	if level != d.Read() {
		d.previous = now
		d.commit(now)
	}
	return nil
}
