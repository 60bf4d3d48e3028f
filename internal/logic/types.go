// Package logic contains the pure control logic for the solar pool heater.
// This package has NO external dependencies (no GPIO, sensors, OS, or time.Sleep).
// Time is always injectable via time.Time parameters.
package logic

import "time"

// State is one of the seven control states of the heating cycle.
type State string

const (
	StateCheckPool   State = "CHECK_POOL"
	StateWait        State = "WAIT"
	StateHeat        State = "HEAT"
	StateSmallHeat   State = "SMALL_HEAT"
	StateCheckCoil   State = "CHECK_COIL"
	StateCheckPrimed State = "CHECK_PRIMED"
	StatePump        State = "PUMP"
)

// States lists every defined state in cycle order.
var States = []State{
	StateCheckPool,
	StateWait,
	StateHeat,
	StateSmallHeat,
	StateCheckCoil,
	StateCheckPrimed,
	StatePump,
}

// Kind classifies how a state leaves.
type Kind int

const (
	// KindInvalid is returned for values outside the seven defined states.
	KindInvalid Kind = iota
	// KindDecision states evaluate a condition every tick and raise an event.
	KindDecision
	// KindDwell states have no event source and leave only on a timeout.
	KindDwell
)

func (k Kind) String() string {
	switch k {
	case KindDecision:
		return "decision"
	case KindDwell:
		return "dwell"
	default:
		return "invalid"
	}
}

// Kind reports whether s is a decision or a dwell state.
func (s State) Kind() Kind {
	switch s {
	case StateCheckPool, StateCheckCoil, StateCheckPrimed:
		return KindDecision
	case StateWait, StateHeat, StateSmallHeat, StatePump:
		return KindDwell
	default:
		return KindInvalid
	}
}

// Valid reports whether s is one of the defined states.
func (s State) Valid() bool {
	return s.Kind() != KindInvalid
}

// Event is a domain signal raised by a decision state.
type Event string

const (
	EventPoolNotHeated Event = "POOL_NOT_HEATED"
	EventPoolHeated    Event = "POOL_HEATED"
	EventCoilNotPrimed Event = "COIL_NOT_PRIMED"
	EventCoilPrimed    Event = "COIL_PRIMED"
	EventCoilNotReady  Event = "COIL_NOT_READY"
	EventCoilReady     Event = "COIL_READY"
)

// Notification is the audible feedback requested when a transition fires.
type Notification string

const (
	NotifyNone    Notification = "NONE"
	NotifySuccess Notification = "SUCCESS"
	// NotifyFailure has a sink but no transition raises it yet.
	NotifyFailure Notification = "FAILURE"
)

// Status labels shown on the display.
const (
	LabelStart = "START..."
	LabelWait  = "WAIT..."
	LabelHeat  = "HEAT..."
	LabelPump  = "PUMP..."
)

// Readings are the inputs for one control cycle. They are never mutated by
// the machine.
type Readings struct {
	PoolTemp     int
	PoolSetpoint int
	CoilTemp     int
	CoilSetpoint int
}

// Timeouts holds the dwell durations for the four timed transitions.
type Timeouts struct {
	Wait      time.Duration // Wait -> CheckPool
	Heat      time.Duration // Heat -> CheckCoil
	SmallHeat time.Duration // SmallHeat -> CheckCoil
	Pump      time.Duration // Pump -> CheckPrimed
}

// DefaultTimeouts returns the stock dwell durations.
func DefaultTimeouts() Timeouts {
	return Timeouts{
		Wait:      10 * time.Minute,
		Heat:      20 * time.Minute,
		SmallHeat: 2 * time.Minute,
		Pump:      2 * time.Second,
	}
}

// DefaultPrimedTolerance is how many degrees the coil may sit above the pool
// and still count as primed (holding leftover, already-cooled water).
const DefaultPrimedTolerance = 2

// Transition is a registered rule. Exactly one of Event or After is set.
type Transition struct {
	From   State
	Event  Event
	After  time.Duration
	To     State
	Notify Notification
}

// Timed reports whether the transition is triggered by time in state.
func (t Transition) Timed() bool {
	return t.Event == ""
}

// Result contains the side effects of one Tick.
type Result struct {
	State        State
	Label        string
	Pump         bool
	Notification Notification
	// Fired is the transition taken this tick, nil if the machine stayed put.
	Fired *Transition
}

// Counts tracks activity since startup.
type Counts struct {
	Transitions int
	PumpBursts  int
	Successes   int
	Failures    int
}
