package verifier

// State is the verifier's position in a scenario
type State int

const (
	Init State = iota
	Authenticated
	NavigatedToTarget
	FormFilled
	Submitted
	DialogHandled
	OutcomeAsserted
	TornDown
	Failed
)

var stateNames = map[State]string{
	Init:              "init",
	Authenticated:     "authenticated",
	NavigatedToTarget: "navigated_to_target",
	FormFilled:        "form_filled",
	Submitted:         "submitted",
	DialogHandled:     "dialog_handled",
	OutcomeAsserted:   "outcome_asserted",
	TornDown:          "torn_down",
	Failed:            "failed",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "unknown"
}

// transitions lists the forward moves each state allows. Multi-page forms
// loop through FormFilled and Submitted; every state may fail or tear down.
var transitions = map[State][]State{
	Init:              {Authenticated, NavigatedToTarget},
	Authenticated:     {NavigatedToTarget, OutcomeAsserted},
	NavigatedToTarget: {NavigatedToTarget, FormFilled, Submitted, DialogHandled, OutcomeAsserted},
	FormFilled:        {FormFilled, Submitted},
	Submitted:         {Submitted, DialogHandled, FormFilled, NavigatedToTarget, OutcomeAsserted},
	DialogHandled:     {FormFilled, Submitted, NavigatedToTarget, OutcomeAsserted},
	OutcomeAsserted:   {OutcomeAsserted, NavigatedToTarget, FormFilled, Submitted},
}

// CanTransition reports whether from may move to to
func CanTransition(from, to State) bool {
	switch {
	case from == TornDown:
		return false
	case to == TornDown:
		return true
	case from == Failed:
		return false
	case to == Failed:
		return true
	}
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}
