package ads

import (
	"fmt"
	"time"
)

// Phase is the lifecycle phase of the tracked banner.
type Phase int

const (
	Uninitialized Phase = iota
	Hidden
	Visible
	// Suspended is reserved; no operation currently produces it.
	Suspended
	Removed
)

var phaseNames = [...]string{
	Uninitialized: "uninitialized",
	Hidden:        "hidden",
	Visible:       "visible",
	Suspended:     "suspended",
	Removed:       "removed",
}

func (p Phase) String() string {
	if p < 0 || int(p) >= len(phaseNames) {
		return fmt.Sprintf("phase(%d)", int(p))
	}
	return phaseNames[p]
}

// MarshalText encodes the phase by name.
func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText decodes a phase name.
func (p *Phase) UnmarshalText(text []byte) error {
	for i, name := range phaseNames {
		if name == string(text) {
			*p = Phase(i)
			return nil
		}
	}
	return fmt.Errorf("unknown phase %q", text)
}

// State is a snapshot of the coordinator's single tracked banner.
type State struct {
	Initialized      bool  `json:"initialized"`
	Phase            Phase `json:"phase"`
	PlatformIsNative bool  `json:"native"`
	// PlaceholderVisible is only ever true on non-native platforms.
	PlaceholderVisible bool `json:"placeholder_visible"`
}

// needsEntry reports whether show must run the initialize transition first.
func (s State) needsEntry() bool {
	return !s.Initialized || s.Phase == Uninitialized || s.Phase == Removed
}

// Op names a coordinator operation.
type Op string

const (
	OpInitialize Op = "initialize"
	OpShow       Op = "show"
	OpHide       Op = "hide"
	OpResume     Op = "resume"
	OpRemove     Op = "remove"
)

// Ops lists every mutating operation.
var Ops = []Op{OpInitialize, OpShow, OpHide, OpResume, OpRemove}

// Outcome values attached to transitions.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomeNoop    = "noop"
)

// Transition describes one completed coordinator operation.
type Transition struct {
	At       time.Time
	Op       Op
	Platform string
	From     Phase
	To       Phase
	Outcome  string
	Error    string
	Duration time.Duration
	State    State
}
