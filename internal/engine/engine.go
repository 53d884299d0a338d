package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/haatos/secpipe/internal/artifact"
	"github.com/haatos/secpipe/internal/env"
	"github.com/haatos/secpipe/internal/spec"
	"github.com/haatos/secpipe/internal/util"
	"github.com/haatos/secpipe/internal/vault"
)

// OutputSink receives masked output lines as the run produces them.
type OutputSink func(string)

// Engine owns one pipeline execution at a time: it sequences stages strictly
// in declaration order, applies each step's failure policy, runs stage and
// pipeline post-actions and collects declared artifacts.
type Engine struct {
	runner    CommandRunner
	vault     *vault.Vault
	archiver  artifact.Store
	outputDir string
	sink      OutputSink
}

func New(
	runner CommandRunner,
	v *vault.Vault,
	archiver artifact.Store,
	outputDir string,
	sink OutputSink,
) *Engine {
	return &Engine{
		runner:    runner,
		vault:     v,
		archiver:  archiver,
		outputDir: outputDir,
		sink:      sink,
	}
}

// Execute runs the pipeline under a fresh run id.
func (e *Engine) Execute(ctx context.Context, p *spec.Pipeline) (*PipelineRun, error) {
	return e.ExecuteRun(ctx, uuid.NewString(), p)
}

// ExecuteRun runs every declared stage sequentially, skipping the remainder
// only after a fail-fast abort or cancellation, then invokes the pipeline's
// post-actions exactly once. The returned PipelineRun is complete even when
// the error is non-nil.
func (e *Engine) ExecuteRun(
	ctx context.Context,
	runID string,
	p *spec.Pipeline,
) (*PipelineRun, error) {
	run := &PipelineRun{
		RunID:     runID,
		Pipeline:  p.Name,
		StartedOn: time.Now().UTC(),
	}
	slog.Info("pipeline run starting", "pipeline", p.Name, "run_id", runID)

	base := env.Resolve(processEnv(), p.Env)
	if err := base.Require(p.RequireEnv); err != nil {
		// malformed configuration aborts before any stage runs
		e.emit(fmt.Sprintf("Configuration error: %s\n", err))
		run.Status = RunFailure
		e.runPostActions(ctx, run, p, base)
		run.EndedOn = time.Now().UTC()
		return run, err
	}

	var abort error
	partial := false
	for _, stage := range p.Stages {
		if abort != nil || ctx.Err() != nil {
			run.Stages = append(run.Stages, skippedStage(stage))
			continue
		}
		run.Stages = append(run.Stages, e.runStage(ctx, stage, base, &partial, &abort))
	}

	if abort == nil && ctx.Err() != nil {
		abort = RunCancelError{Message: "pipeline run cancelled"}
	}

	switch {
	case abort != nil:
		run.Status = RunFailure
	case partial:
		run.Status = RunPartialFailure
	default:
		run.Status = RunSuccess
	}

	e.runPostActions(ctx, run, p, base)
	run.EndedOn = time.Now().UTC()
	slog.Info(
		"pipeline run finished",
		"pipeline", p.Name,
		"run_id", runID,
		"status", run.Status,
	)
	return run, abort
}

// runStage runs each step in declaration order, then the stage's artifact
// post-actions exactly once, whatever the step outcomes were: reports must
// stay collectable even when the scan step failed.
func (e *Engine) runStage(
	ctx context.Context,
	stage spec.Stage,
	base env.Scope,
	partial *bool,
	abort *error,
) StageResult {
	sr := StageResult{Stage: stage.Stage, Status: StageSuccess}
	scope := base.With(stage.Env)
	e.emit(fmt.Sprintf("Executing pipeline stage '%s'\n", stage.Stage))

	for _, step := range stage.Steps {
		if *abort != nil || ctx.Err() != nil {
			sr.Steps = append(sr.Steps, StepResult{Step: step.Step, Status: StepSkipped})
			continue
		}

		res, err := e.runStep(ctx, stage.Stage, step, scope)
		sr.Steps = append(sr.Steps, res)
		if err == nil {
			continue
		}

		var ce vault.CredentialError
		switch {
		case errors.As(err, &ce):
			// a partially-authenticated call is unsafe to attempt, so a
			// missing credential can never be tolerated
			*abort = err
			sr.Status = StageFailed
		case step.Policy == spec.ContinueOnError && !isCancel(err):
			*partial = true
		default:
			*abort = err
			sr.Status = StageFailed
		}
	}

	for _, a := range stage.Artifacts {
		ref := ArtifactRef{Label: a.Label, Path: a.Path}
		archivePath, err := e.archiver.Archive(a.Path, true)
		switch {
		case err != nil:
			e.emit(fmt.Sprintf("  |  err archiving artifact '%s': %+v\n", a.Label, err))
		case archivePath == "":
			e.emit(fmt.Sprintf("  |  Artifact '%s' absent at %s\n", a.Label, a.Path))
		default:
			ref.ArchivePath = archivePath
			ref.Present = true
			e.emit(fmt.Sprintf("  |  Archived artifact '%s'\n", a.Label))
		}
		sr.Artifacts = append(sr.Artifacts, ref)
	}

	return sr
}

func (e *Engine) runStep(
	ctx context.Context,
	stageName string,
	step spec.Step,
	scope env.Scope,
) (StepResult, error) {
	res := StepResult{Step: step.Step, Status: StepOk}
	e.emit(fmt.Sprintf("  |  Executing pipeline step '%s'\n", step.Step))

	outPath := filepath.Join(
		e.outputDir,
		"output",
		util.Slugify(stageName)+"-"+util.Slugify(step.Step)+".log",
	)
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		res.Status = StepFailed
		res.ExitCode = -1
		return res, StepExecutionError{Stage: stageName, Step: step.Step, ExitCode: -1}
	}
	f, err := os.Create(outPath)
	if err != nil {
		res.Status = StepFailed
		res.ExitCode = -1
		return res, StepExecutionError{Stage: stageName, Step: step.Step, ExitCode: -1}
	}
	defer f.Close()
	res.OutputPath = outPath

	masked := e.vault.Masker().Writer(io.MultiWriter(f, sinkWriter{sink: e.sink}))
	defer masked.Flush()

	runCtx := ctx
	if step.Timeout() > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, step.Timeout())
		defer cancel()
	}

	started := time.Now()
	execute := func(credentialVars map[string]string) error {
		stepScope := scope.With(step.Env).With(credentialVars)
		code, err := e.runner.Run(runCtx, step.Workdir, step.Script, stepScope.Environ(), masked)
		res.ExitCode = code
		return err
	}

	var runErr error
	if len(step.Credentials) > 0 {
		runErr = e.vault.Bind(ctx, step.Credentials, execute)
	} else {
		runErr = execute(nil)
	}
	res.Elapsed = time.Since(started)

	var ce vault.CredentialError
	switch {
	case errors.As(runErr, &ce):
		res.Status = StepFailed
		res.ExitCode = -1
		e.emit(fmt.Sprintf("  |  %s\n", runErr))
		return res, runErr
	case runErr != nil && ctx.Err() != nil:
		res.Status = StepFailed
		e.emit("  |  step execution cancelled\n")
		return res, RunCancelError{Message: "step execution cancelled"}
	case runErr != nil && errors.Is(runErr, context.DeadlineExceeded):
		res.Status = StepFailed
		res.TimedOut = true
		err := StepExecutionError{Stage: stageName, Step: step.Step, ExitCode: -1, TimedOut: true}
		e.emit(fmt.Sprintf(
			"  |  step execution timed out in %d seconds\n",
			int(step.Timeout().Seconds()),
		))
		return res, err
	case runErr != nil:
		res.Status = StepFailed
		e.emit(fmt.Sprintf("  |  err executing step: %+v\n", runErr))
		return res, StepExecutionError{Stage: stageName, Step: step.Step, ExitCode: res.ExitCode}
	case res.ExitCode != 0:
		res.Status = StepFailed
		e.emit(fmt.Sprintf("  |  step exited with code %d\n", res.ExitCode))
		return res, StepExecutionError{Stage: stageName, Step: step.Step, ExitCode: res.ExitCode}
	}

	return res, nil
}

// runPostActions invokes the pipeline-level post-actions exactly once:
// `always` unconditionally, `on_failure` only when the run did not succeed.
// Post-action scripts run even after cancellation and their failures are
// recorded but never escalate.
func (e *Engine) runPostActions(
	ctx context.Context,
	run *PipelineRun,
	p *spec.Pipeline,
	base env.Scope,
) {
	postCtx := context.WithoutCancel(ctx)
	for _, post := range p.Post.Always {
		e.runPostStep(postCtx, post, base)
	}
	if run.Status != RunSuccess {
		for _, post := range p.Post.OnFailure {
			e.runPostStep(postCtx, post, base)
		}
	}
}

func (e *Engine) runPostStep(ctx context.Context, post spec.PostStep, base env.Scope) {
	masked := e.vault.Masker().Writer(sinkWriter{sink: e.sink})
	defer masked.Flush()
	if code, err := e.runner.Run(ctx, "", post.Script, base.Environ(), masked); err != nil {
		e.emit(fmt.Sprintf("post-action error: %+v\n", err))
	} else if code != 0 {
		e.emit(fmt.Sprintf("post-action exited with code %d\n", code))
	}
}

func (e *Engine) emit(line string) {
	if e.sink == nil {
		return
	}
	e.sink(e.vault.Masker().Mask(line))
}

func skippedStage(stage spec.Stage) StageResult {
	sr := StageResult{Stage: stage.Stage, Status: StageSkipped}
	for _, step := range stage.Steps {
		sr.Steps = append(sr.Steps, StepResult{Step: step.Step, Status: StepSkipped})
	}
	for _, a := range stage.Artifacts {
		sr.Artifacts = append(sr.Artifacts, ArtifactRef{Label: a.Label, Path: a.Path})
	}
	return sr
}

func isCancel(err error) bool {
	var rce RunCancelError
	return errors.As(err, &rce) || errors.Is(err, context.Canceled)
}

type sinkWriter struct {
	sink OutputSink
}

func (sw sinkWriter) Write(p []byte) (int, error) {
	if sw.sink != nil {
		sw.sink(string(p))
	}
	return len(p), nil
}

func processEnv() map[string]string {
	values := make(map[string]string)
	for _, kv := range os.Environ() {
		if k, v, ok := strings.Cut(kv, "="); ok {
			values[k] = v
		}
	}
	return values
}
