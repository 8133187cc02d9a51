package playback

import (
	"fmt"
)

type State uint

const (
	StateUninitialized = State(iota)
	StateConstructing
	StateReady
	StateStarted
	StateStopped
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateConstructing:
		return "constructing"
	case StateReady:
		return "ready"
	case StateStarted:
		return "started"
	case StateStopped:
		return "stopped"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("unknown_state_%d", uint(s))
	}
}

// IsOperational is true for the states in which the device session is held.
func (s State) IsOperational() bool {
	switch s {
	case StateReady, StateStarted, StateStopped:
		return true
	default:
		return false
	}
}
