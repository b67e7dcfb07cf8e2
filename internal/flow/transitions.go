package flow

// validTransitions contains the permitted transitions besides amount changes and resets.
var validTransitions = map[State][]State{
	StateIdle: {
		StateInitiating,
	},
	StateValidating: {
		StateCapExceeded,
	},
	StateInitiating: {
		StateAwaitingPayment,
		StateFailed,
	},
	StateAwaitingPayment: {
		StateReleased,
		StateFailed,
	},
	StateFailed: {
		StateInitiating,
	},
}

// IsTransitionAllowed reports whether moving from one state to another is valid.
// Validating is reachable from anywhere because the amount may change at any time, and Idle
// is reachable from anywhere through a reset.
func IsTransitionAllowed(from, to State) bool {
	if to == StateValidating || to == StateIdle {
		return true
	}

	allowed, ok := validTransitions[from]
	if !ok {
		return false
	}

	for _, state := range allowed {
		if state == to {
			return true
		}
	}

	return false
}
