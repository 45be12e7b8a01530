package task

import (
	"fmt"
	"time"
)

func parseTimestamp(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, fmt.Errorf("empty timestamp")
	}
	return time.Parse(time.RFC3339, s)
}

// transitions enumerates the legal state-machine edges, mirroring the
// obligation lifecycle pattern the evidence ledger persists by row update.
var transitions = map[State][]State{
	StatePending:  {StateClaimed, StateCancelled},
	StateClaimed:  {StateMeasured, StateCancelled},
	StateMeasured: {StateDecided, StateCancelled},
	StateDecided:  {StatePersisted, StateCancelled},
}

// CanTransition reports whether moving from one state to another is legal.
// Every non-terminal state, decided included, may move to cancelled;
// persisted and cancelled have no outgoing edges.
func CanTransition(from, to State) bool {
	for _, allowed := range transitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether a state has no further legal transitions.
func IsTerminal(s State) bool {
	return s == StatePersisted || s == StateCancelled
}
