// Package gpio provides GPIO output driving with hardware abstraction.
// The real implementation uses Linux GPIO character device.
// The fake implementation allows testing without hardware.
package gpio

import "fmt"

// Output drives a single digital output line.
type Output interface {
	// Set drives the line active (true) or inactive (false). No inversion
	// is applied: active means the relay or buzzer is energised.
	Set(on bool) error

	// Close releases GPIO resources.
	Close() error
}

// Chip is the GPIO character device the pump and buzzer lines live on.
const Chip = "gpiochip0"

// Pump drives the circulation pump relay from the state machine's pump output.
type Pump struct {
	out     Output
	on      bool
	applied bool
}

// NewPump wraps out. The line is not written until the first Apply.
func NewPump(out Output) *Pump {
	return &Pump{out: out}
}

// Apply drives the pump. The line is only written when the value changes, so
// calling Apply every control cycle is cheap.
func (p *Pump) Apply(on bool) error {
	if p.applied && p.on == on {
		return nil
	}
	if err := p.out.Set(on); err != nil {
		return fmt.Errorf("set pump %v: %w", on, err)
	}
	p.on = on
	p.applied = true
	return nil
}

// On reports the last value written.
func (p *Pump) On() bool {
	return p.on
}

// Close switches the pump off and releases the line.
func (p *Pump) Close() error {
	var offErr error
	if p.on || !p.applied {
		offErr = p.out.Set(false)
		p.on = false
	}
	if err := p.out.Close(); err != nil {
		return err
	}
	return offErr
}
