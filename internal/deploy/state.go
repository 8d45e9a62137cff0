package deploy

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// State is a step of a deployment attempt.
type State int

const (
	StateIdle State = iota
	StateSubmitting
	StatePending
	StateConfirmed
	StateFailed
	StateAddressResolved
	StateAddressUnresolved
)

var stateNames = map[State]string{
	StateIdle:              "idle",
	StateSubmitting:        "submitting",
	StatePending:           "pending",
	StateConfirmed:         "confirmed",
	StateFailed:            "failed",
	StateAddressResolved:   "address-resolved",
	StateAddressUnresolved: "address-unresolved",
}

func (s State) String() string {
	if n, ok := stateNames[s]; ok {
		return n
	}
	return "unknown"
}

// Busy reports whether an attempt in this state blocks a new submission.
func (s State) Busy() bool {
	return s == StateSubmitting || s == StatePending || s == StateConfirmed
}

// Terminal reports whether the state ends an attempt.
func (s State) Terminal() bool {
	return s == StateFailed || s == StateAddressResolved || s == StateAddressUnresolved
}

// Transition is published to the observer on every state change.
type Transition struct {
	AttemptID string
	Kind      Kind
	From      State
	To        State
	TxHash    common.Hash
	Address   common.Address
	// Poll is the 1-based poll attempt for backend deployments, zero otherwise.
	Poll int
	Err  error
	At   time.Time
}
