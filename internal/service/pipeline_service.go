package service

import (
	"context"
	"encoding/json"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/haatos/secpipe/internal"
	"github.com/haatos/secpipe/internal/artifact"
	"github.com/haatos/secpipe/internal/engine"
	"github.com/haatos/secpipe/internal/report"
	"github.com/haatos/secpipe/internal/security"
	"github.com/haatos/secpipe/internal/spec"
	"github.com/haatos/secpipe/internal/store"
	"github.com/haatos/secpipe/internal/vault"
)

type PipelineServicer interface {
	ListPipelines() []*spec.Pipeline
	GetPipeline(name string) (*spec.Pipeline, error)
	CreateRun(ctx context.Context, pipeline string) (*store.Run, error)
	GetRunByID(ctx context.Context, runID string) (*store.Run, error)
	UpdateRunStartedOn(context.Context, string, string, store.RunStatus, *time.Time) error
	UpdateRunEndedOn(context.Context, string, store.RunStatus, *string, *string, *time.Time) error
	AppendRunOutput(ctx context.Context, runID, out string) error
	ListLatestPipelineRuns(ctx context.Context, pipeline string, limit int64) ([]store.Run, error)
	ListPipelineRunsPaginated(ctx context.Context, pipeline string, limit, offset int64) ([]store.Run, error)
	CountPipelineRuns(ctx context.Context, pipeline string) (int64, error)
	ExecuteRun(ctx context.Context, run *store.Run, sink engine.OutputSink) (*engine.PipelineRun, error)
}

// PipelineService loads pipeline specs from disk and executes them against
// the run and credential stores.
type PipelineService struct {
	pipelines       map[string]*spec.Pipeline
	ordered         []*spec.Pipeline
	runStore        store.RunStore
	credentialStore store.CredentialStore
	encrypter       security.Encrypter
	workspaceDir    string
	artifactsDir    string
}

func NewPipelineService(
	pipelines []*spec.Pipeline,
	runStore store.RunStore,
	credentialStore store.CredentialStore,
	encrypter security.Encrypter,
	workspaceDir, artifactsDir string,
) *PipelineService {
	m := make(map[string]*spec.Pipeline, len(pipelines))
	for _, p := range pipelines {
		m[p.Name] = p
	}
	return &PipelineService{
		pipelines:       m,
		ordered:         pipelines,
		runStore:        runStore,
		credentialStore: credentialStore,
		encrypter:       encrypter,
		workspaceDir:    workspaceDir,
		artifactsDir:    artifactsDir,
	}
}

func (s *PipelineService) ListPipelines() []*spec.Pipeline {
	return s.ordered
}

func (s *PipelineService) GetPipeline(name string) (*spec.Pipeline, error) {
	p, ok := s.pipelines[name]
	if !ok {
		return nil, ErrUnknownPipeline{Name: name}
	}
	return p, nil
}

func (s *PipelineService) CreateRun(ctx context.Context, pipeline string) (*store.Run, error) {
	if _, err := s.GetPipeline(pipeline); err != nil {
		return nil, err
	}
	return s.runStore.CreateRun(ctx, uuid.NewString(), pipeline)
}

func (s *PipelineService) GetRunByID(ctx context.Context, runID string) (*store.Run, error) {
	return s.runStore.ReadRunByID(ctx, runID)
}

func (s *PipelineService) UpdateRunStartedOn(
	ctx context.Context,
	runID, workdir string,
	status store.RunStatus,
	startedOn *time.Time,
) error {
	return s.runStore.UpdateRunStartedOn(ctx, runID, workdir, status, startedOn)
}

func (s *PipelineService) UpdateRunEndedOn(
	ctx context.Context,
	runID string,
	status store.RunStatus,
	artifacts, reportPath *string,
	endedOn *time.Time,
) error {
	return s.runStore.UpdateRunEndedOn(ctx, runID, status, artifacts, reportPath, endedOn)
}

func (s *PipelineService) AppendRunOutput(ctx context.Context, runID, out string) error {
	return s.runStore.AppendRunOutput(ctx, runID, out)
}

func (s *PipelineService) ListLatestPipelineRuns(
	ctx context.Context,
	pipeline string,
	limit int64,
) ([]store.Run, error) {
	return s.runStore.ListLatestPipelineRuns(ctx, pipeline, limit)
}

func (s *PipelineService) ListPipelineRunsPaginated(
	ctx context.Context,
	pipeline string,
	limit, offset int64,
) ([]store.Run, error) {
	return s.runStore.ListPipelineRunsPaginated(ctx, pipeline, limit, offset)
}

func (s *PipelineService) CountPipelineRuns(ctx context.Context, pipeline string) (int64, error) {
	return s.runStore.CountPipelineRuns(ctx, pipeline)
}

// PruneRuns deletes all but the newest retain runs of every known pipeline.
func (s *PipelineService) PruneRuns(ctx context.Context, retain int64) error {
	for name := range s.pipelines {
		runs, err := s.runStore.ListPipelineRuns(ctx, name)
		if err != nil {
			return err
		}
		for i := int64(len(runs)) - 1; i >= retain; i-- {
			if err := s.runStore.DeleteRun(ctx, runs[i].RunID); err != nil {
				return err
			}
		}
	}
	return nil
}

// ExecuteRun builds an engine for the run's pipeline and drives it to
// completion, generating the aggregate report afterwards. The returned
// PipelineRun is complete even when err is non-nil.
func (s *PipelineService) ExecuteRun(
	ctx context.Context,
	run *store.Run,
	sink engine.OutputSink,
) (*engine.PipelineRun, error) {
	p, err := s.GetPipeline(run.Pipeline)
	if err != nil {
		return nil, err
	}

	outputDir := filepath.Join(s.artifactsDir, run.RunID)
	v := vault.New(vault.NewStoreResolver(s.credentialStore, s.encrypter))

	runner, archiver, cleanup, err := s.buildRunner(ctx, p, outputDir)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	eng := engine.New(runner, v, archiver, outputDir, sink)
	result, execErr := eng.ExecuteRun(ctx, run.RunID, p)

	// the aggregate report is generated exactly once, even for failed runs
	reportPath := filepath.Join(outputDir, internal.AggregateReportName)
	if _, reportErr := report.Generate(result, p, reportPath); reportErr == nil {
		run.ReportPath = &reportPath
	}

	return result, execErr
}

// buildRunner picks local or agent execution for the pipeline. Agent
// credentials hold an SSH private key as their secret value.
func (s *PipelineService) buildRunner(
	ctx context.Context,
	p *spec.Pipeline,
	outputDir string,
) (engine.CommandRunner, artifact.Store, func(), error) {
	local := artifact.NewFSStore(s.workspaceDir, outputDir)
	if p.Agent == nil {
		runner := engine.NewExecRunner()
		runner.Root = s.workspaceDir
		return runner, local, func() {}, nil
	}

	resolver := vault.NewStoreResolver(s.credentialStore, s.encrypter)
	secret, err := resolver.Resolve(ctx, p.Agent.Credential)
	if err != nil {
		return nil, nil, nil, err
	}
	sshRunner := engine.NewSSHRunner(
		p.Agent.Hostname,
		secret.Username,
		[]byte(secret.Value),
		p.Agent.Workspace,
	)
	return sshRunner, artifact.NewSFTPStore(sshRunner, local), func() { sshRunner.Close() }, nil
}

// MarshalArtifacts renders the run's artifact references as the JSON blob
// persisted on the run row.
func MarshalArtifacts(result *engine.PipelineRun) *string {
	refs := result.Artifacts()
	if len(refs) == 0 {
		return nil
	}
	b, err := json.Marshal(refs)
	if err != nil {
		return nil
	}
	s := string(b)
	return &s
}

// RunStatusFor maps an engine result and execution error to the persisted
// run status.
func RunStatusFor(result *engine.PipelineRun, err error) store.RunStatus {
	if err != nil {
		if _, ok := err.(engine.RunCancelError); ok {
			return store.StatusCancelled
		}
	}
	switch result.Status {
	case engine.RunSuccess:
		return store.StatusPassed
	case engine.RunPartialFailure:
		return store.StatusPartial
	default:
		return store.StatusFailed
	}
}
