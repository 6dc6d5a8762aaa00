package blink

import "github.com/teslashibe/go-blink/pkg/event"

// DefaultDebounce is the number of consecutive closed frames that must be
// exceeded before a recovery counts as a blink.
const DefaultDebounce = 2

// Machine is the open/closed state machine for one region.
// It is not safe for concurrent use.
type Machine struct {
	region   Region
	strategy Strategy
	debounce int

	state        EyeState
	closedFrames int
	total        int
}

// NewMachine creates a machine in the open state.
func NewMachine(region Region, strategy Strategy, debounce int) *Machine {
	if debounce < 0 {
		debounce = 0
	}
	return &Machine{
		region:   region,
		strategy: strategy,
		debounce: debounce,
		state:    Open,
	}
}

// Step feeds one value and returns the events it caused, in order.
func (m *Machine) Step(value, threshold float64) []event.Event {
	if m.strategy == Derivative {
		return m.stepDerivative(value, threshold)
	}
	return m.stepThreshold(value, threshold)
}

func (m *Machine) stepThreshold(value, threshold float64) []event.Event {
	var out []event.Event

	if value < threshold {
		m.closedFrames++
		if m.state != Closed {
			m.state = Closed
			out = append(out, event.EyeStateChanged(m.region.StateEvent(), string(Closed)))
		}
		return out
	}

	if m.closedFrames > m.debounce {
		m.total++
		out = append(out, event.Blink(m.region.BlinkEvent(), m.total))
	}
	m.closedFrames = 0
	if m.state != Open {
		m.state = Open
		out = append(out, event.EyeStateChanged(m.region.StateEvent(), string(Open)))
	}
	return out
}

// The second difference does its own debouncing, so any recovery while
// closed is a blink.
func (m *Machine) stepDerivative(value, threshold float64) []event.Event {
	switch {
	case value < threshold && m.state != Closed:
		m.state = Closed
		m.closedFrames = 1
		return []event.Event{event.EyeStateChanged(m.region.StateEvent(), string(Closed))}

	case value < threshold:
		m.closedFrames++

	case m.state == Closed:
		m.state = Open
		m.closedFrames = 0
		m.total++
		return []event.Event{
			event.EyeStateChanged(m.region.StateEvent(), string(Open)),
			event.Blink(m.region.BlinkEvent(), m.total),
		}
	}
	return nil
}

// Region returns the tracked region.
func (m *Machine) Region() Region { return m.region }

// State returns the current eye state.
func (m *Machine) State() EyeState { return m.state }

// Total returns the number of completed blinks.
func (m *Machine) Total() int { return m.total }

// ClosedFrames returns the current run of consecutive closed frames.
func (m *Machine) ClosedFrames() int { return m.closedFrames }
