package session

import "fmt"

// Outcome is the save branch Finish took.
type Outcome int

const (
	// Skipped means the recorder was disabled and nothing happened.
	Skipped Outcome = iota
	// Discarded means no test failed and videos are not kept on success.
	Discarded
	// Saved means the save step was attempted for Decision.Path.
	Saved
)

// String returns the lower-case outcome name.
func (o Outcome) String() string {
	switch o {
	case Skipped:
		return "skipped"
	case Discarded:
		return "discarded"
	case Saved:
		return "saved"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Step names one teardown step of Finish.
type Step string

const (
	StepStop     Step = "stop"
	StepMkdir    Step = "mkdir"
	StepRetrieve Step = "retrieve"
	StepCleanup  Step = "cleanup"
)

// StepResult is the outcome of one teardown step. Err is nil on success.
// Skipped is set when a step had nothing to act on (no live recorder).
type StepResult struct {
	Step    Step
	Err     error
	Skipped bool
}

// Decision is the result of Finish.
type Decision struct {
	Kind Outcome

	// Path is the destination of a Saved video.
	Path string

	// Retrieved reports whether the video actually reached Path. Kind stays
	// Saved when the pull fails; this field tells the two apart.
	Retrieved bool

	// Steps lists every teardown step Finish ran, in order.
	Steps []StepResult
}

// Err returns the error recorded for step, or nil.
func (d Decision) Err(step Step) error {
	for _, r := range d.Steps {
		if r.Step == step {
			return r.Err
		}
	}
	return nil
}

// Ran reports whether step was executed (skipped steps count as not run).
func (d Decision) Ran(step Step) bool {
	for _, r := range d.Steps {
		if r.Step == step && !r.Skipped {
			return true
		}
	}
	return false
}

// Failed returns the steps that recorded an error.
func (d Decision) Failed() []StepResult {
	var failed []StepResult
	for _, r := range d.Steps {
		if r.Err != nil {
			failed = append(failed, r)
		}
	}
	return failed
}

// String renders the decision for console summaries.
func (d Decision) String() string {
	if d.Kind == Saved {
		return fmt.Sprintf("%s(%s)", d.Kind, d.Path)
	}
	return d.Kind.String()
}
