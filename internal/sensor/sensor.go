// Package sensor provides temperature and setpoint acquisition with hardware
// abstraction. The real implementations read Linux sysfs (1-wire and IIO).
// The fake implementations allow testing without hardware.
package sensor

import (
	"errors"
	"fmt"
	"log"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Each probe has its own sentinel, chosen so that a reading the heating cycle
// cannot trust never leads it into a pump burst.
const (
	// CoilDisconnected is the DS18B20's own error value. It is below any coil
	// setpoint, so the coil never reads as ready.
	CoilDisconnected = -127
	// PoolDisconnected is above any pool setpoint and any coil reading, so the
	// pool reads as heated and the coil as primed.
	PoolDisconnected = 999
)

// Disconnected reports whether v is one of the probe sentinels.
func Disconnected(v int) bool {
	return v == CoilDisconnected || v == PoolDisconnected
}

// Reader reads the pool and coil temperatures in whole degrees.
// It never fails: an unreadable probe reads as its sentinel.
type Reader interface {
	Read() (pool, coil int)
}

// W1Reader reads two DS18B20 probes through the w1_therm sysfs interface.
type W1Reader struct {
	dir        string
	poolID     string
	coilID     string
	fahrenheit bool

	failing map[string]bool
}

// NewW1Reader creates a reader for the probes with the given 1-wire ids
// (e.g. "28-000005e2fdc3") below dir (normally /sys/bus/w1/devices).
func NewW1Reader(dir, poolID, coilID string, fahrenheit bool) (*W1Reader, error) {
	if poolID == "" || coilID == "" {
		return nil, errors.New("sensor: pool and coil probe ids are required")
	}
	if poolID == coilID {
		return nil, fmt.Errorf("sensor: pool and coil share probe %s", poolID)
	}
	return &W1Reader{
		dir:        dir,
		poolID:     poolID,
		coilID:     coilID,
		fahrenheit: fahrenheit,
		failing:    make(map[string]bool),
	}, nil
}

// Read returns the rounded pool and coil temperatures.
func (r *W1Reader) Read() (pool, coil int) {
	return r.probe("pool", r.poolID, PoolDisconnected), r.probe("coil", r.coilID, CoilDisconnected)
}

// probe reads one sensor, logging only when its health changes. An unreadable
// probe reads as sentinel.
func (r *W1Reader) probe(name, id string, sentinel int) int {
	milli, err := readMilliCelsius(filepath.Join(r.dir, id))
	if err != nil {
		if !r.failing[id] {
			log.Printf("sensor: %s probe %s unreadable: %v", name, id, err)
			r.failing[id] = true
		}
		return sentinel
	}
	if r.failing[id] {
		log.Printf("sensor: %s probe %s recovered", name, id)
		r.failing[id] = false
	}
	return Degrees(milli, r.fahrenheit)
}

// readMilliCelsius reads a probe directory. Newer kernels expose a plain
// "temperature" file; older ones only the two-line w1_slave dump.
func readMilliCelsius(dev string) (int, error) {
	data, err := os.ReadFile(filepath.Join(dev, "temperature"))
	if err == nil {
		return strconv.Atoi(strings.TrimSpace(string(data)))
	}
	if !errors.Is(err, os.ErrNotExist) {
		return 0, err
	}

	data, err = os.ReadFile(filepath.Join(dev, "w1_slave"))
	if err != nil {
		return 0, err
	}
	return parseW1Slave(string(data))
}

// parseW1Slave parses output of the form
//
//	72 01 4b 46 7f ff 0e 10 57 : crc=57 YES
//	72 01 4b 46 7f ff 0e 10 57 t=23125
func parseW1Slave(s string) (int, error) {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	if len(lines) < 2 {
		return 0, fmt.Errorf("w1_slave: short read (%d lines)", len(lines))
	}
	if !strings.HasSuffix(strings.TrimSpace(lines[0]), "YES") {
		return 0, errors.New("w1_slave: crc check failed")
	}
	i := strings.LastIndex(lines[1], "t=")
	if i < 0 {
		return 0, errors.New("w1_slave: missing t=")
	}
	return strconv.Atoi(strings.TrimSpace(lines[1][i+2:]))
}

// Degrees converts milli-degrees Celsius to whole degrees, rounding half away
// from zero.
func Degrees(milliCelsius int, fahrenheit bool) int {
	c := float64(milliCelsius) / 1000
	if fahrenheit {
		return int(math.Round(c*9/5 + 32))
	}
	return int(math.Round(c))
}
