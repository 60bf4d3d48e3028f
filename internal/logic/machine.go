package logic

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrAlreadyInitialized is returned by a second call to Initialize.
	ErrAlreadyInitialized = errors.New("logic: state machine already initialized")
	// ErrDuplicateTransition is returned when a trigger is registered twice for a state.
	ErrDuplicateTransition = errors.New("logic: duplicate transition")
	// ErrUnknownState is returned for states outside the defined seven.
	ErrUnknownState = errors.New("logic: unknown state")
	// ErrInvalidTrigger is returned for an event the source state never raises,
	// or a non-positive timeout.
	ErrInvalidTrigger = errors.New("logic: invalid trigger")
	// ErrUnreachableState is returned when a state is not the target of any transition.
	ErrUnreachableState = errors.New("logic: unreachable state")
)

type eventKey struct {
	from  State
	event Event
}

// Machine is the heating state machine. It is driven by Tick from a single
// control loop and is not safe for concurrent use.
type Machine struct {
	timeouts  Timeouts
	tolerance int

	onEvent   map[eventKey]Transition
	onTimeout map[State]Transition

	initialized bool
	current     State
	enteredAt   time.Time
	label       string
	pump        bool
	counts      Counts
}

// NewMachine creates an uninitialized machine. tolerance is the priming
// tolerance in degrees (see DefaultPrimedTolerance).
func NewMachine(timeouts Timeouts, tolerance int) *Machine {
	return &Machine{
		timeouts:  timeouts,
		tolerance: tolerance,
		onEvent:   make(map[eventKey]Transition),
		onTimeout: make(map[State]Transition),
	}
}

// Table returns the heating cycle's transitions for the given timeouts.
func Table(t Timeouts) []Transition {
	return []Transition{
		{From: StateCheckPool, Event: EventPoolHeated, To: StateWait, Notify: NotifySuccess},
		{From: StateWait, After: t.Wait, To: StateCheckPool, Notify: NotifyNone},
		{From: StateCheckPool, Event: EventPoolNotHeated, To: StateHeat, Notify: NotifySuccess},
		{From: StateHeat, After: t.Heat, To: StateCheckCoil, Notify: NotifySuccess},
		{From: StateCheckCoil, Event: EventCoilNotReady, To: StateSmallHeat, Notify: NotifyNone},
		{From: StateSmallHeat, After: t.SmallHeat, To: StateCheckCoil, Notify: NotifyNone},
		{From: StateCheckCoil, Event: EventCoilReady, To: StateCheckPrimed, Notify: NotifySuccess},
		{From: StateCheckPrimed, Event: EventCoilNotPrimed, To: StatePump, Notify: NotifySuccess},
		{From: StatePump, After: t.Pump, To: StateCheckPrimed, Notify: NotifyNone},
		{From: StateCheckPrimed, Event: EventCoilPrimed, To: StateWait, Notify: NotifySuccess},
	}
}

// On registers an event-triggered transition.
func (m *Machine) On(from State, event Event, to State, notify Notification) error {
	if err := checkStates(from, to); err != nil {
		return err
	}
	if !raises(from, event) {
		return fmt.Errorf("%w: %s never raises %s", ErrInvalidTrigger, from, event)
	}
	key := eventKey{from, event}
	if _, ok := m.onEvent[key]; ok {
		return fmt.Errorf("%w: %s on %s", ErrDuplicateTransition, from, event)
	}
	m.onEvent[key] = Transition{From: from, Event: event, To: to, Notify: notify}
	return nil
}

// After registers a transition that fires once d has elapsed in from.
func (m *Machine) After(from State, d time.Duration, to State, notify Notification) error {
	if err := checkStates(from, to); err != nil {
		return err
	}
	if d <= 0 {
		return fmt.Errorf("%w: %s timeout %v", ErrInvalidTrigger, from, d)
	}
	if _, ok := m.onTimeout[from]; ok {
		return fmt.Errorf("%w: %s after %v", ErrDuplicateTransition, from, d)
	}
	m.onTimeout[from] = Transition{From: from, After: d, To: to, Notify: notify}
	return nil
}

func (m *Machine) register(t Transition) error {
	if t.Timed() {
		return m.After(t.From, t.After, t.To, t.Notify)
	}
	return m.On(t.From, t.Event, t.To, t.Notify)
}

func checkStates(states ...State) error {
	for _, s := range states {
		if !s.Valid() {
			return fmt.Errorf("%w: %q", ErrUnknownState, s)
		}
	}
	return nil
}

// Initialize registers the heating cycle, enters CheckPool and runs its entry
// action. It must be called exactly once.
func (m *Machine) Initialize(now time.Time) error {
	if m.initialized {
		return ErrAlreadyInitialized
	}
	for _, t := range Table(m.timeouts) {
		if err := m.register(t); err != nil {
			return fmt.Errorf("register %s: %w", t.From, err)
		}
	}
	if err := m.checkReachable(); err != nil {
		return err
	}

	m.initialized = true
	m.label = LabelStart
	m.current = StateCheckPool
	m.enteredAt = now
	m.enter(StateCheckPool)
	return nil
}

func (m *Machine) checkReachable() error {
	targets := make(map[State]bool, len(States))
	for _, t := range m.onEvent {
		targets[t.To] = true
	}
	for _, t := range m.onTimeout {
		targets[t.To] = true
	}
	for _, s := range States {
		if !targets[s] {
			return fmt.Errorf("%w: %s", ErrUnreachableState, s)
		}
	}
	return nil
}

// Tick runs one control cycle. A decision state evaluates its condition first;
// if the raised event has a transition it fires and the timer is ignored.
// Otherwise the timed transition fires once time in state reaches its
// duration. At most one transition fires per tick.
//
// A decision state entered by a tick is evaluated on the next one, so it is
// visible in Result.State for one cycle, showing the previous label.
//
// Tick panics if the machine is not in one of the defined states, which
// includes a machine that was never initialized.
func (m *Machine) Tick(r Readings, now time.Time) Result {
	if !m.current.Valid() {
		panic(fmt.Sprintf("logic: tick in undefined state %q", m.current))
	}

	res := Result{Notification: NotifyNone}
	if t, ok := m.next(r, now); ok {
		m.fire(t, now)
		res.Fired = &t
		res.Notification = t.Notify
	}

	res.State = m.current
	res.Label = m.label
	res.Pump = m.pump
	return res
}

func (m *Machine) next(r Readings, now time.Time) (Transition, bool) {
	if ev, ok := m.evaluate(m.current, r); ok {
		if t, ok := m.onEvent[eventKey{m.current, ev}]; ok {
			return t, true
		}
	}
	if t, ok := m.onTimeout[m.current]; ok && now.Sub(m.enteredAt) >= t.After {
		return t, true
	}
	return Transition{}, false
}

func (m *Machine) fire(t Transition, now time.Time) {
	m.exit(m.current)
	m.current = t.To
	m.enteredAt = now
	m.enter(t.To)

	m.counts.Transitions++
	switch t.Notify {
	case NotifySuccess:
		m.counts.Successes++
	case NotifyFailure:
		m.counts.Failures++
	}
}

// State returns the current state.
func (m *Machine) State() State {
	return m.current
}

// Label returns the current status label.
func (m *Machine) Label() string {
	return m.label
}

// PumpOn reports whether the pump output is enabled.
func (m *Machine) PumpOn() bool {
	return m.pump
}

// TimeInState returns how long the machine has been in its current state.
func (m *Machine) TimeInState(now time.Time) time.Duration {
	return now.Sub(m.enteredAt)
}

// EnteredAt returns when the current state was entered.
func (m *Machine) EnteredAt() time.Time {
	return m.enteredAt
}

// Counts returns a copy of the activity counters.
func (m *Machine) Counts() Counts {
	return m.counts
}

// Transitions returns the registered transitions in cycle order of their source state.
func (m *Machine) Transitions() []Transition {
	var out []Transition
	for _, s := range States {
		for _, ev := range raisable[s] {
			if t, ok := m.onEvent[eventKey{s, ev}]; ok {
				out = append(out, t)
			}
		}
		if t, ok := m.onTimeout[s]; ok {
			out = append(out, t)
		}
	}
	return out
}
