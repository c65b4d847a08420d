package deps

// Stage groups the checks of one setup run.
type Stage string

const (
	StagePrerequisites Stage = "prerequisites"
	StagePackages      Stage = "packages"
	StagePostInstall   Stage = "post_install"
	StageInstructions  Stage = "instructions"
)

// Status values reported for each step.
const (
	StatusChecking   = "checking"
	StatusFound      = "found"
	StatusMissing    = "missing"
	StatusInstalling = "installing"
	StatusInstalled  = "installed"
	StatusManual     = "manual"
	StatusSkipped    = "skipped"
	StatusDone       = "done"
	StatusError      = "error"
)

// StepResult captures the state of a single check.
type StepResult struct {
	Stage  Stage  `json:"stage"`
	Name   string `json:"name"`
	Status string `json:"status"`
	Detail string `json:"detail,omitempty"`
}

// Key identifies the step across status updates.
func (r StepResult) Key() string {
	return string(r.Stage) + ":" + r.Name
}

// Report is the outcome of a setup run. Warnings holds the non-fatal
// errors raised along the way.
type Report struct {
	Steps    []StepResult `json:"steps"`
	Warnings []error      `json:"-"`
}

// Observer receives every status change.
type Observer interface {
	Step(StepResult)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(StepResult)

func (f ObserverFunc) Step(r StepResult) { f(r) }

// Options toggles parts of the run.
type Options struct {
	// SkipPrerequisites skips the runtime dependency check (CI use).
	SkipPrerequisites bool
	// SkipPackages skips package configuration.
	SkipPackages bool
	// ForceInstall reinstalls packages without checking whether they are
	// already present.
	ForceInstall bool
}
