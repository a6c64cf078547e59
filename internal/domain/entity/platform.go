package entity

// SignupOutcome is what PerformSignup reports back to the orchestrator.
type SignupOutcome string

const (
	SignupOutcomeCompleted     SignupOutcome = "completed"
	SignupOutcomeFormSubmitted SignupOutcome = "form_submitted"
	SignupOutcomeCaptcha       SignupOutcome = "captcha"
)

// StepAction is one deterministic signup step.
type StepAction string

const (
	StepFill   StepAction = "fill"
	StepClick  StepAction = "click"
	StepSubmit StepAction = "submit"
)

// SignupStep is a single selector-level instruction. Value supports the
// placeholders {{email}} and {{password}}, substituted at execution time.
type SignupStep struct {
	Action   StepAction `yaml:"action"`
	Selector string     `yaml:"selector"`
	Value    string     `yaml:"value,omitempty"`
}

// DeterministicSteps drives the form with fixed selectors.
type DeterministicSteps struct {
	Steps []SignupStep `yaml:"steps"`
}

// GoalDirected hands control to an agentic browser loop. SuccessIndicator
// describes page state that must be independently verified before the
// signup counts as submitted; the agent's own completion claim is never
// trusted.
type GoalDirected struct {
	Goal             string `yaml:"goal"`
	SuccessIndicator string `yaml:"success_indicator"`
}

// PlatformSpec is the static per-platform configuration, loaded once at
// process start. Exactly one of Deterministic or GoalDirected is set.
type PlatformSpec struct {
	Name          string              `yaml:"name"`
	SignupURL     string              `yaml:"signup_url"`
	CaptchaLikely bool                `yaml:"captcha_likely"`
	Deterministic *DeterministicSteps `yaml:"deterministic,omitempty"`
	GoalDirected  *GoalDirected       `yaml:"goal_directed,omitempty"`
}
