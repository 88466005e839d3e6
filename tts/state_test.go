package tts

import "testing"

// TestState_String tests the String() method for State.
func TestState_String(t *testing.T) {
	tests := []struct {
		state    State
		expected string
	}{
		{StateIdle, "idle"},
		{StateRunning, "running"},
		{StateStopped, "stopped"},
		{State(999), "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			if got := tt.state.String(); got != tt.expected {
				t.Errorf("State.String() = %v, want %v", got, tt.expected)
			}
		})
	}
}

// TestStateMachine_Transitions tests which transitions are allowed.
func TestStateMachine_Transitions(t *testing.T) {
	tests := []struct {
		name        string
		from        State
		to          State
		shouldAllow bool
	}{
		{"idle to running", StateIdle, StateRunning, true},
		{"running to idle", StateRunning, StateIdle, true},
		{"running to stopped", StateRunning, StateStopped, true},
		{"stopped to idle", StateStopped, StateIdle, true},
		{"stopped to running", StateStopped, StateRunning, true},

		{"idle to stopped", StateIdle, StateStopped, false},
		{"idle to idle", StateIdle, StateIdle, false},
		{"running to running", StateRunning, StateRunning, false},
		{"stopped to stopped", StateStopped, StateStopped, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sm := NewStateMachine()
			sm.current = tt.from

			result := sm.Transition(tt.to)
			if result != tt.shouldAllow {
				t.Errorf("Transition from %v to %v: got %v, want %v",
					tt.from, tt.to, result, tt.shouldAllow)
			}

			if tt.shouldAllow && sm.Current() != tt.to {
				t.Errorf("state = %v, want %v", sm.Current(), tt.to)
			} else if !tt.shouldAllow && sm.Current() != tt.from {
				t.Errorf("state changed on invalid transition: %v", sm.Current())
			}
		})
	}
}

// TestStateMachine_Callbacks tests that exit and enter callbacks fire in
// order on a successful transition.
func TestStateMachine_Callbacks(t *testing.T) {
	sm := NewStateMachine()

	var order []string
	sm.OnExit(StateIdle, func() { order = append(order, "exit-idle") })
	sm.OnEnter(StateRunning, func() { order = append(order, "enter-running") })

	if !sm.Transition(StateRunning) {
		t.Fatal("transition to running should succeed")
	}

	if len(order) != 2 || order[0] != "exit-idle" || order[1] != "enter-running" {
		t.Errorf("callback order = %v, want [exit-idle enter-running]", order)
	}
}

// TestStateMachine_CallbacksSkippedOnInvalid tests that callbacks do not
// fire for rejected transitions.
func TestStateMachine_CallbacksSkippedOnInvalid(t *testing.T) {
	sm := NewStateMachine()

	called := false
	sm.OnEnter(StateStopped, func() { called = true })

	if sm.Transition(StateStopped) {
		t.Fatal("idle to stopped should be rejected")
	}
	if called {
		t.Error("enter callback fired on invalid transition")
	}
}

// TestStateMachine_NilCallbacks tests that nil callbacks don't crash.
func TestStateMachine_NilCallbacks(t *testing.T) {
	sm := NewStateMachine()
	sm.OnEnter(StateRunning, nil)
	sm.OnExit(StateIdle, nil)

	if !sm.Transition(StateRunning) {
		t.Error("transition should succeed with nil callbacks")
	}
}

// TestStateMachine_FullLifecycle tests the sequence a play, stop, replay
// session walks through.
func TestStateMachine_FullLifecycle(t *testing.T) {
	sm := NewStateMachine()

	steps := []State{StateRunning, StateStopped, StateIdle, StateRunning, StateIdle}
	for i, to := range steps {
		if !sm.Transition(to) {
			t.Fatalf("step %d: transition to %v rejected from %v", i, to, sm.Current())
		}
	}
	if sm.Current() != StateIdle {
		t.Errorf("final state = %v, want idle", sm.Current())
	}
}
