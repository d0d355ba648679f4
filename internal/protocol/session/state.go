package session

import (
	"errors"
	"fmt"
	"sync"
)

// State is the admin session lifecycle position.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateAwaitingProtocol
	StateAwaitingWelcome
	StateActive
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateAwaitingProtocol:
		return "awaiting_protocol"
	case StateAwaitingWelcome:
		return "awaiting_welcome"
	case StateActive:
		return "active"
	}
	return fmt.Sprintf("state_%d", int(s))
}

var ErrInvalidTransition = errors.New("session: invalid state transition")

// Machine tracks the session state and the negotiated protocol version.
// Version survives a disconnect until the next Protocol packet replaces it.
type Machine struct {
	mu      sync.RWMutex
	state   State
	version uint8
}

func NewMachine() *Machine {
	return &Machine{state: StateDisconnected}
}

func (m *Machine) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

func (m *Machine) Version() uint8 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.version
}

func (m *Machine) transition(from, to State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != from {
		return fmt.Errorf("%w: %s -> %s (current %s)", ErrInvalidTransition, from, to, m.state)
	}
	m.state = to
	return nil
}

// Connect starts a dial attempt.
func (m *Machine) Connect() error {
	return m.transition(StateDisconnected, StateConnecting)
}

// Opened records an established socket; the caller must queue Join next.
func (m *Machine) Opened() error {
	return m.transition(StateConnecting, StateAwaitingProtocol)
}

// ProtocolReceived stores the server's admin version.
func (m *Machine) ProtocolReceived(version uint8) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != StateAwaitingProtocol {
		return fmt.Errorf("%w: protocol packet in %s", ErrInvalidTransition, m.state)
	}
	m.version = version
	m.state = StateAwaitingWelcome
	return nil
}

// WelcomeReceived activates the session. The server repeats Welcome on an
// active session after a new game starts; that is accepted and reported
// with activated=false.
func (m *Machine) WelcomeReceived() (activated bool, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch m.state {
	case StateAwaitingWelcome:
		m.state = StateActive
		return true, nil
	case StateActive:
		return false, nil
	}
	return false, fmt.Errorf("%w: welcome packet in %s", ErrInvalidTransition, m.state)
}

// Lost moves any state back to Disconnected and reports the previous state.
func (m *Machine) Lost() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	prev := m.state
	m.state = StateDisconnected
	return prev
}
