//go:build linux

package gpio

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/warthog618/go-gpiocdev"
)

// openTimeout bounds how long NewRealOutput keeps retrying. At boot the
// character device can appear before udev has granted access to it.
const openTimeout = 10 * time.Second

// RealOutput drives one line on actual hardware using Linux GPIO character device.
type RealOutput struct {
	name string
	chip *gpiocdev.Chip
	line *gpiocdev.Line
}

// NewRealOutput requests offset on chip as an output, initially inactive.
// name is used in errors and logs only.
func NewRealOutput(chip string, offset int, name string) (*RealOutput, error) {
	var out *RealOutput

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 250 * time.Millisecond
	bo.MaxElapsedTime = openTimeout

	err := backoff.Retry(func() error {
		c, err := gpiocdev.NewChip(chip, gpiocdev.WithConsumer("pool-heater"))
		if err != nil {
			log.Printf("gpio: open %s for %s: %v", chip, name, err)
			return fmt.Errorf("open gpio chip: %w", err)
		}
		l, err := c.RequestLine(offset, gpiocdev.AsOutput(0))
		if err != nil {
			c.Close()
			log.Printf("gpio: request %s pin %d: %v", name, offset, err)
			return fmt.Errorf("request %s pin %d: %w", name, offset, err)
		}
		out = &RealOutput{name: name, chip: c, line: l}
		return nil
	}, bo)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Set drives the line.
func (o *RealOutput) Set(on bool) error {
	v := 0
	if on {
		v = 1
	}
	if err := o.line.SetValue(v); err != nil {
		return fmt.Errorf("set %s pin: %w", o.name, err)
	}
	return nil
}

// Close releases GPIO resources.
// Drives the line low, then reconfigures it to input with pull-down (matching
// Pi boot defaults) so the relay stays off across shutdown/reboot.
func (o *RealOutput) Close() error {
	var errs []error

	if o.line != nil {
		if err := o.line.SetValue(0); err != nil {
			errs = append(errs, fmt.Errorf("drive %s pin low: %w", o.name, err))
		}
		if err := o.line.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullDown); err != nil {
			errs = append(errs, fmt.Errorf("reconfigure %s pin: %w", o.name, err))
		}
		if err := o.line.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s pin: %w", o.name, err))
		}
	}
	if o.chip != nil {
		if err := o.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
	}

	return errors.Join(errs...)
}
