package spec

import (
	"fmt"

	"github.com/robfig/cron/v3"
)

// ValidationError reports a malformed pipeline spec. It aborts before any
// stage runs.
type ValidationError struct {
	Message string
}

func (ve ValidationError) Error() string {
	return "invalid pipeline spec: " + ve.Message
}

// Validate checks the structural invariants of a parsed pipeline: a non-empty
// name, a parseable cron schedule, unique stage names, at least one step per
// stage, non-empty scripts and known failure policies.
func Validate(p *Pipeline) error {
	if p.Name == "" {
		return ValidationError{Message: "pipeline name is required"}
	}
	if len(p.Stages) == 0 {
		return ValidationError{Message: "pipeline has no stages"}
	}
	if p.Schedule != "" {
		if _, err := cron.ParseStandard(p.Schedule); err != nil {
			return ValidationError{
				Message: fmt.Sprintf("invalid schedule '%s': %v", p.Schedule, err),
			}
		}
	}

	seen := make(map[string]struct{})
	for _, stage := range p.Stages {
		if stage.Stage == "" {
			return ValidationError{Message: "stage name is required"}
		}
		if _, ok := seen[stage.Stage]; ok {
			return ValidationError{
				Message: fmt.Sprintf("duplicate stage name '%s'", stage.Stage),
			}
		}
		seen[stage.Stage] = struct{}{}

		if len(stage.Steps) == 0 {
			return ValidationError{
				Message: fmt.Sprintf("stage '%s' has no steps", stage.Stage),
			}
		}
		for _, step := range stage.Steps {
			if step.Script == "" {
				return ValidationError{
					Message: fmt.Sprintf("stage '%s' has a step without a script", stage.Stage),
				}
			}
			if step.Policy != FailFast && step.Policy != ContinueOnError {
				return ValidationError{
					Message: fmt.Sprintf(
						"step '%s' has unknown failure policy '%s'",
						step.Step, step.Policy,
					),
				}
			}
			if step.TimeoutSeconds < 0 {
				return ValidationError{
					Message: fmt.Sprintf("step '%s' has a negative timeout", step.Step),
				}
			}
		}
		for _, artifact := range stage.Artifacts {
			if artifact.Label == "" || artifact.Path == "" {
				return ValidationError{
					Message: fmt.Sprintf(
						"stage '%s' declares an artifact without label or path",
						stage.Stage,
					),
				}
			}
		}
	}

	if p.Agent != nil {
		if p.Agent.Hostname == "" || p.Agent.Credential == "" {
			return ValidationError{Message: "agent requires hostname and credential"}
		}
	}

	return nil
}
