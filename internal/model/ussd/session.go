package ussd

// Flow names a multi-step wizard that overrides depth-based menu dispatch
// while active.
type Flow string

const (
	FlowNone         Flow = ""
	FlowRegistration Flow = "registration"
)

// RegistrationStep enumerates the wizard positions.
type RegistrationStep string

const (
	StepName         RegistrationStep = "name"
	StepLocation     RegistrationStep = "location"
	StepConfirmation RegistrationStep = "confirmation"
)

// SessionState captures where a session currently is. The zero value means
// the session is at the menu root with no flow in progress, which is also
// how an absent session behaves.
type SessionState struct {
	Flow     Flow             `json:"flow"`
	Step     RegistrationStep `json:"step,omitempty"`
	Name     string           `json:"name,omitempty"`
	Location string           `json:"location,omitempty"`
}

// Active reports whether a wizard flow is in progress.
func (s SessionState) Active() bool {
	return s.Flow != FlowNone
}
