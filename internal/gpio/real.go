//go:build linux

package gpio

import (
	"fmt"

	"github.com/warthog618/go-gpiocdev"
)

// RealInput reads one line from actual hardware using the Linux GPIO character device.
type RealInput struct {
	line *gpiocdev.Line
	cfg  Config
}

// NewRealInput requests the configured line as an input.
func NewRealInput(cfg Config) (*RealInput, error) {
	opts := []gpiocdev.LineReqOption{gpiocdev.AsInput, biasOption(cfg.Bias)}
	if cfg.ActiveLow {
		opts = append(opts, gpiocdev.AsActiveLow)
	}

	line, err := gpiocdev.RequestLine(cfg.Chip, cfg.Offset, opts...)
	if err != nil {
		return nil, fmt.Errorf("request %s line %d: %w", cfg.Chip, cfg.Offset, err)
	}

	return &RealInput{line: line, cfg: cfg}, nil
}

func biasOption(b Bias) gpiocdev.LineReqOption {
	switch b {
	case BiasPullDown:
		return gpiocdev.WithPullDown
	case BiasDisabled:
		return gpiocdev.WithBiasDisabled
	default:
		return gpiocdev.WithPullUp
	}
}

// Read returns the logical level of the line.
func (r *RealInput) Read() (bool, error) {
	v, err := r.line.Value()
	if err != nil {
		return false, fmt.Errorf("read line %d: %w", r.cfg.Offset, err)
	}
	return v != 0, nil
}

// Close releases GPIO resources.
// Reconfigures the line to input with pull-down (matching Pi boot defaults)
// before closing so external hardware does not hold it during early boot.
func (r *RealInput) Close() error {
	if r.line == nil {
		return nil
	}

	var errs []error
	if err := r.line.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullDown); err != nil {
		errs = append(errs, fmt.Errorf("reconfigure line %d: %w", r.cfg.Offset, err))
	}
	if err := r.line.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close line %d: %w", r.cfg.Offset, err))
	}

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
