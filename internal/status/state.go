package status

import (
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/matheus3301/buddytalk/internal/bus"
)

// State is the state of one fetch or send machine.
type State string

const (
	Idle     State = "IDLE"
	Fetching State = "FETCHING"
	Sending  State = "SENDING"
)

// Table lists the allowed transitions out of each state.
type Table map[State][]State

// FetchTransitions drives one pagination direction. A fetch returns to Idle
// whether it succeeded or failed.
var FetchTransitions = Table{
	Idle:     {Fetching},
	Fetching: {Idle},
}

// SendTransitions drives the single outstanding send.
var SendTransitions = Table{
	Idle:    {Sending},
	Sending: {Idle},
}

// Machine tracks and enforces state transitions for one named machine.
type Machine struct {
	mu      sync.RWMutex
	name    string
	initial State
	current State
	table   Table
	bus     *bus.Bus
}

// NewMachine creates a machine in its initial state. Transitions are
// published on the bus as "<name>" events when b is non-nil.
func NewMachine(name string, initial State, table Table, b *bus.Bus) *Machine {
	return &Machine{
		name:    name,
		initial: initial,
		current: initial,
		table:   table,
		bus:     b,
	}
}

// Name returns the machine name, also used as the event kind.
func (m *Machine) Name() string { return m.name }

// Current returns the current state.
func (m *Machine) Current() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// Is reports whether the machine is in state s.
func (m *Machine) Is(s State) bool {
	return m.Current() == s
}

// Transition attempts to move to a new state. Returns error if transition is invalid.
func (m *Machine) Transition(to State) error {
	m.mu.Lock()
	allowed := m.table[m.current]
	if !slices.Contains(allowed, to) {
		from := m.current
		m.mu.Unlock()
		return &TransitionError{Machine: m.name, From: from, To: to}
	}
	from := m.current
	m.current = to
	m.mu.Unlock()

	m.publish(from, to)
	return nil
}

// Reset forces the machine back to its initial state.
func (m *Machine) Reset() {
	m.mu.Lock()
	from := m.current
	m.current = m.initial
	m.mu.Unlock()
	if from != m.initial {
		m.publish(from, m.initial)
	}
}

func (m *Machine) publish(from, to State) {
	if m.bus == nil {
		return
	}
	m.bus.Publish(bus.Event{
		Kind:      m.name,
		Timestamp: time.Now(),
		Payload: StatusChange{
			Machine: m.name,
			From:    from,
			To:      to,
		},
	})
}

// TransitionError is returned for a transition the table does not allow.
type TransitionError struct {
	Machine string
	From    State
	To      State
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%s: invalid transition from %s to %s", e.Machine, e.From, e.To)
}

// StatusChange is the payload for status change events.
type StatusChange struct {
	Machine string `json:"machine"`
	From    State  `json:"from"`
	To      State  `json:"to"`
}
