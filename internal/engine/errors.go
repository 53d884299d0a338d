package engine

import "fmt"

// StepExecutionError reports a non-zero exit or timeout from an external
// command. Whether it aborts the run depends on the step's failure policy.
type StepExecutionError struct {
	Stage    string
	Step     string
	ExitCode int
	TimedOut bool
}

func (se StepExecutionError) Error() string {
	if se.TimedOut {
		return fmt.Sprintf("step '%s/%s' timed out", se.Stage, se.Step)
	}
	return fmt.Sprintf("step '%s/%s' exited with code %d", se.Stage, se.Step, se.ExitCode)
}

type RunCancelError struct {
	Message string
}

func (rce RunCancelError) Error() string {
	return rce.Message
}
