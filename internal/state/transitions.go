package state

// validTransitions lists the non-reset transitions of the dialogue.
var validTransitions = map[State][]State{
	StateIdle: {
		StateAwaitingAddress,
		StateAwaitingTokenName,
	},
	StateAwaitingAddress: {
		StateAwaitingAddress,
	},
	StateAwaitingTokenName: {
		StateAwaitingTokenName,
	},
}

// IsTransitionAllowed reports whether moving from one state to another is valid.
// Returning to Idle is always allowed.
func IsTransitionAllowed(from, to State) bool {
	if to == StateIdle {
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
