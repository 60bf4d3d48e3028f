package logic

import "fmt"

// raisable lists the events each decision state can raise.
var raisable = map[State][]Event{
	StateCheckPool:   {EventPoolHeated, EventPoolNotHeated},
	StateCheckCoil:   {EventCoilReady, EventCoilNotReady},
	StateCheckPrimed: {EventCoilPrimed, EventCoilNotPrimed},
}

func raises(s State, ev Event) bool {
	for _, e := range raisable[s] {
		if e == ev {
			return true
		}
	}
	return false
}

// evaluate tests a decision state's condition. Dwell states raise nothing.
func (m *Machine) evaluate(s State, r Readings) (Event, bool) {
	switch s {
	case StateCheckPool:
		if r.PoolTemp >= r.PoolSetpoint {
			return EventPoolHeated, true
		}
		return EventPoolNotHeated, true
	case StateCheckCoil:
		if r.CoilTemp >= r.CoilSetpoint {
			return EventCoilReady, true
		}
		return EventCoilNotReady, true
	case StateCheckPrimed:
		// Coil within tolerance of the pool: no heat left worth pumping.
		if r.CoilTemp <= r.PoolTemp+m.tolerance {
			return EventCoilPrimed, true
		}
		return EventCoilNotPrimed, true
	case StateWait, StateHeat, StateSmallHeat, StatePump:
		return "", false
	default:
		panic(fmt.Sprintf("logic: evaluate in undefined state %q", s))
	}
}

func (m *Machine) enter(s State) {
	switch s {
	case StateCheckPool, StateCheckCoil, StateCheckPrimed:
		// label is left as is; decision states only evaluate
	case StateWait:
		m.label = LabelWait
	case StateHeat, StateSmallHeat:
		m.label = LabelHeat
	case StatePump:
		m.label = LabelPump
		m.pump = true
		m.counts.PumpBursts++
	default:
		panic(fmt.Sprintf("logic: enter undefined state %q", s))
	}
}

func (m *Machine) exit(s State) {
	if s == StatePump {
		m.pump = false
	}
}
