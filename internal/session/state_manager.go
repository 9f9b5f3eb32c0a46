package session

import (
	"sync"

	"nimbus/pkg/logging"
)

// UserState is one of the three session states. All implementations are
// pointer types; identity of the instance, not equality of contents, is what
// ChangeState compares.
type UserState interface {
	// Name returns the state name used in logs and telemetry.
	Name() string
}

// StateManager holds the current session state and performs atomic
// transitions. Observers registered with OnChange see every successful
// transition in order.
type StateManager struct {
	mu        sync.Mutex
	current   UserState
	observers []func(previous, current UserState)
}

// NewStateManager creates a manager holding the given initial state.
func NewStateManager(initial UserState) *StateManager {
	return &StateManager{current: initial}
}

// Current returns the current state.
func (m *StateManager) Current() UserState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// OnChange registers an observer invoked after every successful transition.
// Observers run outside the manager's lock and must not block for long.
func (m *StateManager) OnChange(fn func(previous, current UserState)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.observers = append(m.observers, fn)
}

// ChangeState installs next as the current state if and only if the current
// state is still the expected instance. It returns next on success and nil
// when the expected instance was already superseded; the caller's reference
// is stale and the attempted operation simply did not happen.
func (m *StateManager) ChangeState(expected, next UserState) UserState {
	m.mu.Lock()
	if m.current != expected {
		m.mu.Unlock()
		logging.Debug("Session", "Stale state transition rejected: %s is no longer current", expected.Name())
		return nil
	}
	m.current = next
	observers := make([]func(previous, current UserState), len(m.observers))
	copy(observers, m.observers)
	m.mu.Unlock()

	logging.Info("Session", "State changed: %s -> %s", expected.Name(), next.Name())
	for _, fn := range observers {
		fn(expected, next)
	}
	return next
}
