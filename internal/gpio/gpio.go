// Package gpio provides a single digital input with hardware abstraction.
// The real implementation uses the Linux GPIO character device.
// The fake implementation allows testing without hardware.
package gpio

// Input reads the level of one GPIO line.
type Input interface {
	// Read returns the logical level of the line. Active-low lines are
	// already inverted by the implementation.
	Read() (bool, error)

	// Close releases GPIO resources.
	Close() error
}

// Bias selects the internal pull resistor for the line.
type Bias string

const (
	BiasPullUp   Bias = "pull-up"
	BiasPullDown Bias = "pull-down"
	BiasDisabled Bias = "disabled"
)

// Config describes which line to request and how.
type Config struct {
	Chip      string // e.g. "gpiochip0"
	Offset    int    // line offset (BCM number on a Pi)
	Bias      Bias
	ActiveLow bool
}

// Defaults for a reed switch on a Raspberry Pi header.
const (
	DefaultChip   = "gpiochip0"
	DefaultOffset = 17
)
