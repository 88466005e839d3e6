package tts

import "sync"

// State represents the playback sequencer's lifecycle.
type State int

const (
	// StateIdle indicates nothing is playing and the queue is empty.
	StateIdle State = iota
	// StateRunning indicates a clip is active or queued clips remain.
	StateRunning
	// StateStopped indicates a stop is tearing down the active clip.
	StateStopped
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// StateMachine manages sequencer state transitions. It is safe for
// concurrent use.
type StateMachine struct {
	mu          sync.Mutex
	current     State
	transitions map[State][]State
	onEnter     map[State]func()
	onExit      map[State]func()
}

// NewStateMachine creates a state machine with valid transitions.
func NewStateMachine() *StateMachine {
	return &StateMachine{
		current: StateIdle,
		transitions: map[State][]State{
			StateIdle:    {StateRunning},
			StateRunning: {StateIdle, StateStopped},
			StateStopped: {StateIdle, StateRunning},
		},
		onEnter: make(map[State]func()),
		onExit:  make(map[State]func()),
	}
}

// Transition attempts to transition to the specified state. It reports
// whether the transition was valid; callbacks run only on success.
func (sm *StateMachine) Transition(to State) bool {
	sm.mu.Lock()

	valid := false
	for _, state := range sm.transitions[sm.current] {
		if state == to {
			valid = true
			break
		}
	}
	if !valid {
		sm.mu.Unlock()
		return false
	}

	exitFn := sm.onExit[sm.current]
	enterFn := sm.onEnter[to]
	sm.current = to
	sm.mu.Unlock()

	if exitFn != nil {
		exitFn()
	}
	if enterFn != nil {
		enterFn()
	}
	return true
}

// Current returns the current state.
func (sm *StateMachine) Current() State {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	return sm.current
}

// OnEnter registers a callback for entering a state.
func (sm *StateMachine) OnEnter(state State, fn func()) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.onEnter[state] = fn
}

// OnExit registers a callback for exiting a state.
func (sm *StateMachine) OnExit(state State, fn func()) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.onExit[state] = fn
}
