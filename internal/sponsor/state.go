package sponsor

import "fmt"

// State is the orchestrator's position in a top-up or sponsorship run.
type State string

const (
	StateIdle                 State = "IDLE"
	StateBuildingTx           State = "BUILDING_TX"
	StateSigning              State = "SIGNING"
	StateAwaitingConfirmation State = "AWAITING_CONFIRMATION"
	StateSubmittingToGateway  State = "SUBMITTING_TO_GATEWAY"
	StateRetrying             State = "RETRYING"
	StateSettled              State = "SETTLED"
	StateFailed               State = "FAILED"
)

// IsTerminal reports whether a run in this state is finished. Every run must
// end in a terminal state so callers never observe a stuck "processing" run.
func (s State) IsTerminal() bool {
	return s == StateSettled || s == StateFailed
}

// stateTransitions captures both flows. The top-up flow signs locally before
// submitting to the gateway; the sponsorship flow submits first and signs the
// gateway-countersigned transaction afterwards.
var stateTransitions = map[State][]State{
	StateIdle:                 {StateBuildingTx, StateFailed},
	StateBuildingTx:           {StateSigning, StateSubmittingToGateway, StateFailed},
	StateSigning:              {StateAwaitingConfirmation, StateFailed},
	StateAwaitingConfirmation: {StateSubmittingToGateway, StateSettled, StateRetrying, StateFailed},
	StateSubmittingToGateway:  {StateSettled, StateSigning, StateRetrying, StateFailed},
	StateRetrying:             {StateBuildingTx, StateFailed},
	StateSettled:              {},
	StateFailed:               {},
}

// TransitionTo validates a state transition.
func (s State) TransitionTo(target State) error {
	for _, allowed := range stateTransitions[s] {
		if allowed == target {
			return nil
		}
	}
	return fmt.Errorf("cannot transition run state from %q to %q", s, target)
}
