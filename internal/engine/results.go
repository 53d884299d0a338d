package engine

import "time"

type RunStatus string

const (
	RunSuccess        RunStatus = "success"
	RunPartialFailure RunStatus = "partial-failure"
	RunFailure        RunStatus = "failure"
)

type StageStatus string

const (
	StageSuccess StageStatus = "success"
	StageFailed  StageStatus = "failed"
	StageSkipped StageStatus = "skipped"
)

type StepStatus string

const (
	StepOk      StepStatus = "ok"
	StepFailed  StepStatus = "failed"
	StepSkipped StepStatus = "skipped"
)

// StepResult records one executed (or skipped) step. OutputPath points at the
// captured, masked stdout/stderr of the command; it is written even when the
// command fails so partial scan reports stay archivable.
type StepResult struct {
	Step       string
	ExitCode   int
	OutputPath string
	Elapsed    time.Duration
	Status     StepStatus
	TimedOut   bool
}

// ArtifactRef is one declared artifact after collection. ArchivePath is empty
// when the declared file was absent at collection time.
type ArtifactRef struct {
	Label       string `json:"label"`
	Path        string `json:"path"`
	ArchivePath string `json:"archive_path,omitempty"`
	Present     bool   `json:"present"`
}

// StageResult is produced once per declared stage per run, in declaration
// order. It is never mutated after the stage finishes.
type StageResult struct {
	Stage     string
	Steps     []StepResult
	Status    StageStatus
	Artifacts []ArtifactRef
}

// PipelineRun is one execution instance. Stages are appended strictly in
// declaration order; the struct is not touched again once the final
// post-action has completed.
type PipelineRun struct {
	RunID     string
	Pipeline  string
	StartedOn time.Time
	EndedOn   time.Time
	Stages    []StageResult
	Status    RunStatus
}

// ExitCode maps the run status to the process exit status surfaced to the
// caller: continue-on-error tolerance intentionally does not fail the run.
func (r *PipelineRun) ExitCode() int {
	if r.Status == RunFailure {
		return 1
	}
	return 0
}

// Artifacts returns every collected artifact reference in stage order.
func (r *PipelineRun) Artifacts() []ArtifactRef {
	refs := make([]ArtifactRef, 0)
	for _, stage := range r.Stages {
		refs = append(refs, stage.Artifacts...)
	}
	return refs
}
