package sensor

import (
	"fmt"
	"log"
	"math"
	"os"
	"strconv"
	"strings"
)

// Dial reads the raw position of the setpoint potentiometer.
type Dial interface {
	Raw() (int, error)
}

// IIODial reads an ADC channel through the Linux IIO sysfs interface
// (e.g. /sys/bus/iio/devices/iio:device0/in_voltage0_raw).
type IIODial struct {
	Path string
}

// Raw returns the current ADC count.
func (d IIODial) Raw() (int, error) {
	data, err := os.ReadFile(d.Path)
	if err != nil {
		return 0, fmt.Errorf("read dial: %w", err)
	}
	v, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, fmt.Errorf("parse dial: %w", err)
	}
	return v, nil
}

// Scale maps a bounded raw range linearly onto a degree range.
type Scale struct {
	RawMin   int
	RawMax   int
	DegMin   int
	DegMax   int
	Inverted bool // raw-high maps to DegMin
}

// Map converts raw to degrees. Raw values outside the range are clamped, so
// the result always lies in [DegMin, DegMax].
func (s Scale) Map(raw int) int {
	if raw < s.RawMin {
		raw = s.RawMin
	}
	if raw > s.RawMax {
		raw = s.RawMax
	}
	frac := float64(raw-s.RawMin) / float64(s.RawMax-s.RawMin)
	if s.Inverted {
		frac = 1 - frac
	}
	return s.DegMin + int(math.Round(frac*float64(s.DegMax-s.DegMin)))
}

// Midpoint returns the centre of the degree range.
func (s Scale) Midpoint() int {
	return (s.DegMin + s.DegMax) / 2
}

// Setpoint produces the pool setpoint each cycle. A dial read error keeps the
// last good setpoint (initially the range midpoint).
type Setpoint struct {
	dial    Dial
	scale   Scale
	last    int
	failing bool
}

// NewSetpoint creates a setpoint source for dial.
func NewSetpoint(dial Dial, scale Scale) *Setpoint {
	return &Setpoint{
		dial:  dial,
		scale: scale,
		last:  scale.Midpoint(),
	}
}

// Read returns the current setpoint in degrees.
func (s *Setpoint) Read() int {
	raw, err := s.dial.Raw()
	if err != nil {
		if !s.failing {
			log.Printf("sensor: dial unreadable, holding setpoint %d: %v", s.last, err)
			s.failing = true
		}
		return s.last
	}
	if s.failing {
		log.Printf("sensor: dial recovered")
		s.failing = false
	}
	s.last = s.scale.Map(raw)
	return s.last
}
