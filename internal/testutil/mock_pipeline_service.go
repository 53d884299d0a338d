package testutil

import (
	"context"
	"time"

	"github.com/haatos/secpipe/internal/engine"
	"github.com/haatos/secpipe/internal/spec"
	"github.com/haatos/secpipe/internal/store"
	"github.com/stretchr/testify/mock"
)

type MockPipelineService struct {
	mock.Mock
}

func (m *MockPipelineService) ListPipelines() []*spec.Pipeline {
	args := m.Called()
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).([]*spec.Pipeline)
}

func (m *MockPipelineService) GetPipeline(name string) (*spec.Pipeline, error) {
	args := m.Called(name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*spec.Pipeline), nil
}

func (m *MockPipelineService) CreateRun(ctx context.Context, pipeline string) (*store.Run, error) {
	args := m.Called(ctx, pipeline)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*store.Run), nil
}

func (m *MockPipelineService) GetRunByID(ctx context.Context, runID string) (*store.Run, error) {
	args := m.Called(ctx, runID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*store.Run), nil
}

func (m *MockPipelineService) UpdateRunStartedOn(
	ctx context.Context,
	runID, workdir string,
	status store.RunStatus,
	startedOn *time.Time,
) error {
	args := m.Called(ctx, runID, workdir, status, startedOn)
	return args.Error(0)
}

func (m *MockPipelineService) UpdateRunEndedOn(
	ctx context.Context,
	runID string,
	status store.RunStatus,
	artifacts, reportPath *string,
	endedOn *time.Time,
) error {
	args := m.Called(ctx, runID, status, artifacts, reportPath, endedOn)
	return args.Error(0)
}

func (m *MockPipelineService) AppendRunOutput(ctx context.Context, runID, out string) error {
	args := m.Called(ctx, runID, out)
	return args.Error(0)
}

func (m *MockPipelineService) ListLatestPipelineRuns(
	ctx context.Context,
	pipeline string,
	limit int64,
) ([]store.Run, error) {
	args := m.Called(ctx, pipeline, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]store.Run), nil
}

func (m *MockPipelineService) ListPipelineRunsPaginated(
	ctx context.Context,
	pipeline string,
	limit, offset int64,
) ([]store.Run, error) {
	args := m.Called(ctx, pipeline, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]store.Run), nil
}

func (m *MockPipelineService) CountPipelineRuns(
	ctx context.Context,
	pipeline string,
) (int64, error) {
	args := m.Called(ctx, pipeline)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockPipelineService) ExecuteRun(
	ctx context.Context,
	run *store.Run,
	sink engine.OutputSink,
) (*engine.PipelineRun, error) {
	args := m.Called(ctx, run, sink)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*engine.PipelineRun), args.Error(1)
}

type MockRunQueue struct {
	mock.Mock
}

func (m *MockRunQueue) Enqueue(run *store.Run) error {
	args := m.Called(run)
	return args.Error(0)
}

func (m *MockRunQueue) Cancel(runID string) {
	m.Called(runID)
}
