package lobby

// Machine owns the lobby lifecycle. Transitions outside the table are state
// conflicts; the cash-match requirement is evaluated per lobby, not from
// ambient configuration.
type Machine struct {
	transitions map[string][]string
}

// NewMachine builds the lifecycle transition table.
func NewMachine() *Machine {
	return &Machine{
		transitions: map[string][]string{
			StateForming:           {StateWaitingForPlayers, StateAbandoned},
			StateWaitingForPlayers: {StateConsentPending, StateEscrowLocked, StateReadyToStart, StateAbandoned},
			StateConsentPending:    {StateEscrowLocked, StateReadyToStart, StateAbandoned},
			StateEscrowLocked:      {StateReadyToStart, StateAbandoned},
			StateReadyToStart:      {StateInProgress, StateAbandoned},
			StateInProgress:        {StateCompleted, StateAbandoned},
		},
	}
}

// readyAccepting lists the states in which ready-up requests are accepted.
var readyAccepting = map[string]bool{
	StateWaitingForPlayers: true,
	StateConsentPending:    true,
	StateEscrowLocked:      true,
}

// CanReadyUp reports whether the state accepts readiness mutations.
func (m *Machine) CanReadyUp(state string) bool {
	return readyAccepting[state]
}

// IsTerminal reports whether the state accepts no further transitions.
func (m *Machine) IsTerminal(state string) bool {
	return state == StateCompleted || state == StateAbandoned
}

// CanTransition reports whether moving from one state to another is a legal
// lifecycle step.
func (m *Machine) CanTransition(from, to string) bool {
	for _, next := range m.transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Advance validates a transition, returning a StateConflictError naming the
// current state when the step is illegal.
func (m *Machine) Advance(from, to string) error {
	if !m.CanTransition(from, to) {
		return &StateConflictError{State: from}
	}
	return nil
}

// Aggregate recomputes readiness over a consistent snapshot of active
// players. allAccepted is only meaningful for cash matches; for free matches
// it reports true so the ready_to_start condition reduces to allReady.
func Aggregate(players []Player, isCashMatch bool) (allReady, allAccepted bool) {
	active := 0
	allReady, allAccepted = true, true
	for i := range players {
		p := &players[i]
		if !p.Active() {
			continue
		}
		active++
		if !p.IsReady {
			allReady = false
		}
		if isCashMatch && !p.TermsAccepted {
			allAccepted = false
		}
	}
	if active == 0 {
		return false, false
	}
	return allReady, allAccepted
}
