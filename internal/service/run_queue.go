package service

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/haatos/secpipe/internal/store"
)

// RunQueue serializes pipeline executions through a bounded channel. One
// worker drains the queue so two runs never compete for the workspace.
type RunQueue struct {
	pipelineService PipelineServicer
	workspaceDir    string
	queue           chan *store.Run
	cancels         *CancelMap[string]
	outputClients   *SSEClientMap[string]
	statusClients   *SSEClientMap[store.Run]
}

func NewRunQueue(
	pipelineService PipelineServicer,
	workspaceDir string,
	size int,
	outputClients *SSEClientMap[string],
	statusClients *SSEClientMap[store.Run],
) *RunQueue {
	return &RunQueue{
		pipelineService: pipelineService,
		workspaceDir:    workspaceDir,
		queue:           make(chan *store.Run, size),
		cancels:         NewCancelMap[string](),
		outputClients:   outputClients,
		statusClients:   statusClients,
	}
}

func (q *RunQueue) Enqueue(run *store.Run) error {
	select {
	case q.queue <- run:
		return nil
	default:
		return NewErrRunQueueFull()
	}
}

// Cancel aborts the run if it is currently executing. Queued runs are
// cancelled the moment the worker picks them up.
func (q *RunQueue) Cancel(runID string) {
	q.cancels.Call(runID)
}

func (q *RunQueue) Close() {
	close(q.queue)
}

// Start drains the queue until it is closed. Call in a goroutine.
func (q *RunQueue) Start() {
	for run := range q.queue {
		q.process(run)
	}
}

func (q *RunQueue) process(run *store.Run) {
	ctx, cancel := context.WithCancel(context.Background())
	q.cancels.AddCancel(run.RunID, cancel)
	defer func() {
		q.cancels.RemoveCancel(run.RunID)
		cancel()
	}()

	startedOn := time.Now().UTC()
	workdir := filepath.Join(q.workspaceDir, run.RunID)
	if err := q.pipelineService.UpdateRunStartedOn(
		context.Background(), run.RunID, workdir, store.StatusRunning, &startedOn,
	); err != nil {
		slog.Error("err updating run started on", "run_id", run.RunID, "err", err)
	}
	q.sendStatus(run.RunID)

	sink := func(out string) {
		q.outputClients.SendToClients(run.RunID, out)
		if err := q.pipelineService.AppendRunOutput(context.Background(), run.RunID, out); err != nil {
			slog.Error("err appending run output", "run_id", run.RunID, "err", err)
		}
	}

	result, execErr := q.pipelineService.ExecuteRun(ctx, run, sink)
	if execErr != nil {
		sink(fmt.Sprintf("%+v\n", execErr))
	}

	status := store.StatusFailed
	var artifacts *string
	if result != nil {
		status = RunStatusFor(result, execErr)
		artifacts = MarshalArtifacts(result)
	}

	endedOn := time.Now().UTC()
	if err := q.pipelineService.UpdateRunEndedOn(
		context.Background(), run.RunID, status, artifacts, run.ReportPath, &endedOn,
	); err != nil {
		slog.Error("err updating run ended on", "run_id", run.RunID, "err", err)
	}
	q.sendStatus(run.RunID)
	slog.Info("pipeline run finished", "run_id", run.RunID, "pipeline", run.Pipeline, "status", status)
}

func (q *RunQueue) sendStatus(runID string) {
	r, err := q.pipelineService.GetRunByID(context.Background(), runID)
	if err != nil {
		slog.Error("err reading run for status broadcast", "run_id", runID, "err", err)
		return
	}
	q.statusClients.SendToClients(runID, *r)
}
