package store

import (
	"context"
	"time"
)

type RunStatus string

const (
	StatusQueued    RunStatus = "queued"
	StatusRunning   RunStatus = "running"
	StatusCancelled RunStatus = "cancelled"
	StatusFailed    RunStatus = "failed"
	StatusPartial   RunStatus = "partial"
	StatusPassed    RunStatus = "passed"
)

type Run struct {
	RunID            string     `param:"run_id"      json:"run_id"`
	Pipeline         string     `json:"pipeline"`
	WorkingDirectory *string    `json:"working_directory,omitempty"`
	Output           *string    `json:"-"`
	Artifacts        *string    `json:"-"`
	ReportPath       *string    `json:"report_path,omitempty"`
	Status           RunStatus  `json:"status"`
	CreatedOn        time.Time  `json:"created_on"`
	StartedOn        *time.Time `json:"started_on,omitempty"`
	EndedOn          *time.Time `json:"ended_on,omitempty"`
}

type RunStore interface {
	CreateRun(context.Context, string, string) (*Run, error)
	ReadRunByID(context.Context, string) (*Run, error)
	UpdateRunStartedOn(context.Context, string, string, RunStatus, *time.Time) error
	UpdateRunEndedOn(context.Context, string, RunStatus, *string, *string, *time.Time) error
	AppendRunOutput(context.Context, string, string) error
	DeleteRun(context.Context, string) error
	ListPipelineRuns(context.Context, string) ([]Run, error)
	ListLatestPipelineRuns(context.Context, string, int64) ([]Run, error)
	ListPipelineRunsPaginated(context.Context, string, int64, int64) ([]Run, error)
	CountPipelineRuns(context.Context, string) (int64, error)
}
