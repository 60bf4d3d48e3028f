package status

import (
	"encoding/json"
	"time"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event              string     `json:"event,omitempty"`
	Reason             string     `json:"reason,omitempty"`
	State              string     `json:"state"`
	Label              string     `json:"label"`
	Pump               bool       `json:"pump"`
	Ready              bool       `json:"ready"`
	TimeInStateSeconds int64      `json:"time_in_state_seconds"`
	LastNotification   string     `json:"last_notification,omitempty"`
	Temperatures       TempsJSON  `json:"temperatures"`
	UptimeSeconds      int64      `json:"uptime_seconds"`
	StartTime          string     `json:"start_time"`
	Timestamp          string     `json:"timestamp"`
	Counts             CountsJSON `json:"counts"`
	Config             ConfigJSON `json:"config"`
}

// TempsJSON reports current and target temperatures.
type TempsJSON struct {
	Pool         int `json:"pool"`
	PoolSetpoint int `json:"pool_setpoint"`
	Coil         int `json:"coil"`
	CoilSetpoint int `json:"coil_setpoint"`
}

// CountsJSON is the JSON representation of activity counts.
type CountsJSON struct {
	Transitions int `json:"transitions"`
	PumpBursts  int `json:"pump_bursts"`
	Successes   int `json:"successes"`
	Failures    int `json:"failures"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	PollMs          int64  `json:"poll_ms"`
	HeartbeatMs     int64  `json:"heartbeat_ms"`
	WaitMs          int64  `json:"wait_ms"`
	HeatMs          int64  `json:"heat_ms"`
	SmallHeatMs     int64  `json:"small_heat_ms"`
	PumpMs          int64  `json:"pump_ms"`
	CoilSetpoint    int    `json:"coil_setpoint"`
	PrimedTolerance int    `json:"primed_tolerance"`
	HTTPAddr        string `json:"http_addr,omitempty"`
}

func buildInner(snap Snapshot) StatusInner {
	state := string(snap.State)
	if state == "" {
		state = "UNKNOWN"
	}

	return StatusInner{
		State:              state,
		Label:              snap.Label,
		Pump:               snap.Pump,
		Ready:              snap.Ready,
		TimeInStateSeconds: int64(snap.TimeInState().Truncate(time.Second).Seconds()),
		LastNotification:   string(snap.LastNote),
		Temperatures: TempsJSON{
			Pool:         snap.Readings.PoolTemp,
			PoolSetpoint: snap.Readings.PoolSetpoint,
			Coil:         snap.Readings.CoilTemp,
			CoilSetpoint: snap.Readings.CoilSetpoint,
		},
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		Counts: CountsJSON{
			Transitions: snap.Counts.Transitions,
			PumpBursts:  snap.Counts.PumpBursts,
			Successes:   snap.Counts.Successes,
			Failures:    snap.Counts.Failures,
		},
		Config: ConfigJSON{
			PollMs:          snap.Config.PollMs,
			HeartbeatMs:     snap.Config.HeartbeatMs,
			WaitMs:          snap.Config.WaitMs,
			HeatMs:          snap.Config.HeatMs,
			SmallHeatMs:     snap.Config.SmallHeatMs,
			PumpMs:          snap.Config.PumpMs,
			CoilSetpoint:    snap.Config.CoilSetpoint,
			PrimedTolerance: snap.Config.PrimedTolerance,
			HTTPAddr:        snap.Config.HTTPAddr,
		},
	}
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	inner := buildInner(snap)

	data, _ := json.MarshalIndent(StatusJSON{Status: inner}, "", "  ")
	return data
}

// FormatStatusEvent returns the single-line JSON status logged at startup,
// on heartbeat and at shutdown.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
