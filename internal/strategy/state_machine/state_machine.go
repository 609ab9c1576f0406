// Package state_machine
package state_machine

import (
	"time"

	"github.com/amirphl/rsi-trader/internal/strategy/position"
)

// State represents the current state of a trading strategy
type State string

// StateTransition represents a transition from one state to another
type StateTransition struct {
	FromState State           `json:"from_state"`
	ToState   State           `json:"to_state"`
	Condition string          `json:"condition"`
	Signal    position.Action `json:"signal"`
	Reason    string          `json:"reason"`
	Timestamp time.Time       `json:"timestamp"`
}

// StateMachine manages the state transitions for a trading strategy
type StateMachine struct {
	currentState     State
	symbol           string
	lastTransition   time.Time
	stateHistory     []StateTransition
	maxHistorySize   int
	totalTransitions int
}

// NewStateMachine creates a state machine starting in initial. Only the most
// recent maxHistorySize transitions are kept.
func NewStateMachine(symbol string, initial State, maxHistorySize int) *StateMachine {
	if maxHistorySize <= 0 {
		maxHistorySize = 1000
	}
	return &StateMachine{
		currentState:   initial,
		symbol:         symbol,
		stateHistory:   make([]StateTransition, 0),
		maxHistorySize: maxHistorySize,
	}
}

// GetCurrentState returns the current state
func (sm *StateMachine) GetCurrentState() State {
	return sm.currentState
}

// TransitionTo changes the state and records the transition
func (sm *StateMachine) TransitionTo(newState State, condition string, signal position.Action, reason string, at time.Time) {
	transition := StateTransition{
		FromState: sm.currentState,
		ToState:   newState,
		Condition: condition,
		Signal:    signal,
		Reason:    reason,
		Timestamp: at,
	}

	sm.stateHistory = append(sm.stateHistory, transition)
	if len(sm.stateHistory) > sm.maxHistorySize {
		sm.stateHistory = sm.stateHistory[len(sm.stateHistory)-sm.maxHistorySize:]
	}

	sm.currentState = newState
	sm.lastTransition = at
	sm.totalTransitions++
}

// GetStateHistory returns a copy of the retained transitions, oldest first
func (sm *StateMachine) GetStateHistory() []StateTransition {
	out := make([]StateTransition, len(sm.stateHistory))
	copy(out, sm.stateHistory)
	return out
}

// GetLastTransition returns the last transition
func (sm *StateMachine) GetLastTransition() *StateTransition {
	if len(sm.stateHistory) == 0 {
		return nil
	}
	last := sm.stateHistory[len(sm.stateHistory)-1]
	return &last
}

// TotalTransitions counts every transition, including ones trimmed from history
func (sm *StateMachine) TotalTransitions() int {
	return sm.totalTransitions
}

// IsInState checks if the state machine is in a specific state
func (sm *StateMachine) IsInState(state State) bool {
	return sm.currentState == state
}

// GetStateDuration returns how long the state machine has been in the current state
func (sm *StateMachine) GetStateDuration(now time.Time) time.Duration {
	if sm.lastTransition.IsZero() {
		return 0
	}
	return now.Sub(sm.lastTransition)
}
