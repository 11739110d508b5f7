package pipeline

// State is a step of a submission run.
type State int

const (
	StateResolvingConfig State = iota
	StateCheckingEligibility
	StateAwaitingConfirmation
	StateBuildingArchive
	StateUploading
	StateDone
	StateAborted
)

var stateNames = map[State]string{
	StateResolvingConfig:      "resolving_config",
	StateCheckingEligibility:  "checking_eligibility",
	StateAwaitingConfirmation: "awaiting_confirmation",
	StateBuildingArchive:      "building_archive",
	StateUploading:            "uploading",
	StateDone:                 "done",
	StateAborted:              "aborted",
}

func (s State) String() string {
	if n, ok := stateNames[s]; ok {
		return n
	}
	return "unknown"
}

// Terminal reports whether no transition leaves s.
func (s State) Terminal() bool {
	return s == StateDone || s == StateAborted
}

// Outcome is how a run that returned no error ended.
type Outcome string

const (
	OutcomeSubmitted   Outcome = "submitted"
	OutcomeNotApproved Outcome = "not_approved"
	OutcomeDeclined    Outcome = "declined"
)

// FormatSource records where the resolved format came from.
type FormatSource string

const (
	SourceFlag   FormatSource = "flag"
	SourceConfig FormatSource = "config"
	SourceServer FormatSource = "server"
)
