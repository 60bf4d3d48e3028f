// Package display renders the controller status as a small text panel.
package display

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"

	"github.com/sweeney/pool-heater/internal/sensor"
)

// Frame is everything the panel shows.
type Frame struct {
	Label        string
	PoolTemp     int
	PoolSetpoint int
	CoilTemp     int
	CoilSetpoint int
	Pump         bool
}

// Render lays out f as a bordered panel: the status label centred on the first
// line, then current/target rows for the pool and the coil.
func Render(f Frame) string {
	label := labelStyle.Render(f.Label)
	if f.Pump {
		label = pumpLabelStyle.Render(f.Label)
	}
	body := lipgloss.JoinVertical(lipgloss.Left,
		label,
		row("POOL", f.PoolTemp, f.PoolSetpoint),
		row("COIL", f.CoilTemp, f.CoilSetpoint),
	)
	return panelStyle.Render(body)
}

func row(name string, cur, target int) string {
	return rowStyle.Render(fmt.Sprintf("%s %s/%d", name, temp(cur), target))
}

func temp(v int) string {
	if sensor.Disconnected(v) {
		return faultStyle.Render(" --")
	}
	return fmt.Sprintf("%3d", v)
}

// Console redraws the panel on w whenever the frame changes.
type Console struct {
	w     io.Writer
	last  Frame
	drawn bool
}

// NewConsole creates a console display writing to w.
func NewConsole(w io.Writer) *Console {
	return &Console{w: w}
}

// Draw writes f unless it is identical to the previous frame.
func (c *Console) Draw(f Frame) error {
	if c.drawn && f == c.last {
		return nil
	}
	if _, err := fmt.Fprintln(c.w, Render(f)); err != nil {
		return fmt.Errorf("draw: %w", err)
	}
	c.last = f
	c.drawn = true
	return nil
}
