// Package config holds the pool-heater tunables: timeouts, setpoints, pins and
// sensor identities. Values come from built-in defaults, an optional YAML file
// and finally command-line flags.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sweeney/pool-heater/internal/logic"
	"github.com/sweeney/pool-heater/internal/sensor"
)

// Pin defaults (BCM numbering)
const (
	DefaultPinPump   = 17
	DefaultPinBuzzer = 27
)

// Timeouts are the dwell durations of the timed transitions.
type Timeouts struct {
	Wait      time.Duration `yaml:"wait"`
	Heat      time.Duration `yaml:"heat"`
	SmallHeat time.Duration `yaml:"small_heat"`
	Pump      time.Duration `yaml:"pump"`
}

// Logic converts to the state machine's timeouts.
func (t Timeouts) Logic() logic.Timeouts {
	return logic.Timeouts{
		Wait:      t.Wait,
		Heat:      t.Heat,
		SmallHeat: t.SmallHeat,
		Pump:      t.Pump,
	}
}

// Dial maps the raw setpoint dial reading onto a degree range.
type Dial struct {
	RawMin   int  `yaml:"raw_min"`
	RawMax   int  `yaml:"raw_max"`
	DegMin   int  `yaml:"deg_min"`
	DegMax   int  `yaml:"deg_max"`
	Inverted bool `yaml:"inverted"`
}

// Sensors identifies the 1-wire temperature probes.
type Sensors struct {
	Dir        string `yaml:"dir"`
	Pool       string `yaml:"pool"`
	Coil       string `yaml:"coil"`
	Fahrenheit bool   `yaml:"fahrenheit"`
}

// Pins are BCM line offsets on gpiochip0.
type Pins struct {
	Pump   int `yaml:"pump"`
	Buzzer int `yaml:"buzzer"` // negative disables the buzzer
}

// Config is the complete daemon configuration.
type Config struct {
	Timeouts        Timeouts      `yaml:"timeouts"`
	CoilSetpoint    int           `yaml:"coil_setpoint"`
	PrimedTolerance int           `yaml:"primed_tolerance"`
	Dial            Dial          `yaml:"dial"`
	ADCPath         string        `yaml:"adc_path"`
	Sensors         Sensors       `yaml:"sensors"`
	Pins            Pins          `yaml:"pins"`
	Poll            time.Duration `yaml:"poll"`
	Heartbeat       time.Duration `yaml:"heartbeat"`
	HTTPAddr        string        `yaml:"http"`
}

// Default returns the stock configuration for a Fahrenheit install with a
// 10-bit ADC dial.
func Default() Config {
	lt := logic.DefaultTimeouts()
	return Config{
		Timeouts: Timeouts{
			Wait:      lt.Wait,
			Heat:      lt.Heat,
			SmallHeat: lt.SmallHeat,
			Pump:      lt.Pump,
		},
		CoilSetpoint:    90,
		PrimedTolerance: logic.DefaultPrimedTolerance,
		Dial: Dial{
			RawMin:   0,
			RawMax:   1023,
			DegMin:   50,
			DegMax:   90,
			Inverted: true,
		},
		ADCPath: "/sys/bus/iio/devices/iio:device0/in_voltage0_raw",
		Sensors: Sensors{
			Dir:        "/sys/bus/w1/devices",
			Fahrenheit: true,
		},
		Pins: Pins{
			Pump:   DefaultPinPump,
			Buzzer: DefaultPinBuzzer,
		},
		Poll:      250 * time.Millisecond,
		Heartbeat: 15 * time.Minute,
	}
}

// Load returns the defaults overlaid with the YAML file at path.
// An empty path returns the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := Parse(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes YAML into cfg, keeping fields the document does not mention.
// Unknown keys are rejected.
func Parse(data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// Validate reports every invalid field.
func (c Config) Validate() error {
	var errs []error

	for _, f := range []struct {
		name string
		d    time.Duration
	}{
		{"timeouts.wait", c.Timeouts.Wait},
		{"timeouts.heat", c.Timeouts.Heat},
		{"timeouts.small_heat", c.Timeouts.SmallHeat},
		{"timeouts.pump", c.Timeouts.Pump},
		{"poll", c.Poll},
	} {
		if f.d <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive, got %v", f.name, f.d))
		}
	}
	if c.Heartbeat < 0 {
		errs = append(errs, fmt.Errorf("heartbeat must not be negative, got %v", c.Heartbeat))
	}
	if c.PrimedTolerance < 0 {
		errs = append(errs, fmt.Errorf("primed_tolerance must not be negative, got %d", c.PrimedTolerance))
	}
	if c.Dial.RawMin >= c.Dial.RawMax {
		errs = append(errs, fmt.Errorf("dial raw range %d..%d is empty", c.Dial.RawMin, c.Dial.RawMax))
	}
	if c.Dial.DegMin >= c.Dial.DegMax {
		errs = append(errs, fmt.Errorf("dial degree range %d..%d is empty", c.Dial.DegMin, c.Dial.DegMax))
	}
	// The probe sentinels only fail safe while they lie outside the setpoints.
	if c.CoilSetpoint <= sensor.CoilDisconnected {
		errs = append(errs, fmt.Errorf("coil_setpoint %d must be above %d", c.CoilSetpoint, sensor.CoilDisconnected))
	}
	if c.Dial.DegMax >= sensor.PoolDisconnected {
		errs = append(errs, fmt.Errorf("dial deg_max %d must be below %d", c.Dial.DegMax, sensor.PoolDisconnected))
	}
	if c.Pins.Pump < 0 {
		errs = append(errs, fmt.Errorf("pins.pump must not be negative, got %d", c.Pins.Pump))
	}
	if c.Pins.Pump == c.Pins.Buzzer {
		errs = append(errs, fmt.Errorf("pins.pump and pins.buzzer share line %d", c.Pins.Pump))
	}

	return errors.Join(errs...)
}
