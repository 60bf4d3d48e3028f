// Package status provides a thread-safe status tracker for the pool-heater daemon.
// The control loop writes it once per cycle; HTTP handlers read it.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/pool-heater/internal/logic"
)

// Config contains daemon configuration for display.
type Config struct {
	PollMs          int64
	HeartbeatMs     int64
	WaitMs          int64
	HeatMs          int64
	SmallHeatMs     int64
	PumpMs          int64
	CoilSetpoint    int
	PrimedTolerance int
	HTTPAddr        string
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type, safe to use after the lock is released.
type Snapshot struct {
	State      logic.State
	Label      string
	Pump       bool
	Readings   logic.Readings
	Counts     logic.Counts
	StateSince time.Time
	Ready      bool // true once the first control cycle has run
	LastNote   logic.Notification
	LastNoteAt time.Time
	StartTime  time.Time
	Now        time.Time
	Config     Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// TimeInState returns how long the machine has been in its current state.
// Zero before the first cycle.
func (s Snapshot) TimeInState() time.Duration {
	if s.StateSince.IsZero() {
		return 0
	}
	return s.Now.Sub(s.StateSince)
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
	now  func() time.Time
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			StartTime: startTime,
			Config:    cfg,
		},
		now: time.Now,
	}
}

// Update records the outcome of one control cycle.
// stateSince is when the machine entered its current state.
func (t *Tracker) Update(res logic.Result, r logic.Readings, counts logic.Counts, stateSince time.Time) {
	t.mu.Lock()
	t.snap.State = res.State
	t.snap.Label = res.Label
	t.snap.Pump = res.Pump
	t.snap.Readings = r
	t.snap.Counts = counts
	t.snap.StateSince = stateSince
	t.snap.Ready = true
	if res.Notification != "" && res.Notification != logic.NotifyNone {
		t.snap.LastNote = res.Notification
		t.snap.LastNoteAt = stateSince
	}
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	t.mu.RUnlock()
	s.Now = t.now()
	return s
}
