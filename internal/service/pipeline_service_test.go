package service

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/haatos/secpipe/internal"
	"github.com/haatos/secpipe/internal/engine"
	"github.com/haatos/secpipe/internal/spec"
	"github.com/haatos/secpipe/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

func TestPipelineService_GetPipeline(t *testing.T) {
	svc := NewPipelineService(
		[]*spec.Pipeline{{Name: "nightly"}}, nil, nil, nil, "workspace", "artifacts",
	)

	t.Run("success - known pipeline", func(t *testing.T) {
		// act
		p, err := svc.GetPipeline("nightly")

		// assert
		assert.NoError(t, err)
		assert.Equal(t, "nightly", p.Name)
	})
	t.Run("failure - unknown pipeline", func(t *testing.T) {
		// act
		_, err := svc.GetPipeline("missing")

		// assert
		var unknown ErrUnknownPipeline
		assert.ErrorAs(t, err, &unknown)
		assert.Equal(t, "missing", unknown.Name)
	})
}

func TestRunStatusFor(t *testing.T) {
	t.Run("success - engine statuses map to run statuses", func(t *testing.T) {
		assert.Equal(t,
			store.StatusPassed,
			RunStatusFor(&engine.PipelineRun{Status: engine.RunSuccess}, nil),
		)
		assert.Equal(t,
			store.StatusPartial,
			RunStatusFor(&engine.PipelineRun{Status: engine.RunPartialFailure}, nil),
		)
		assert.Equal(t,
			store.StatusFailed,
			RunStatusFor(
				&engine.PipelineRun{Status: engine.RunFailure},
				engine.StepExecutionError{Stage: "scan", Step: "trivy", ExitCode: 1},
			),
		)
	})
	t.Run("success - cancellation maps to cancelled", func(t *testing.T) {
		status := RunStatusFor(
			&engine.PipelineRun{Status: engine.RunFailure},
			engine.RunCancelError{Message: "pipeline run cancelled"},
		)
		assert.Equal(t, store.StatusCancelled, status)
	})
}

func TestMarshalArtifacts(t *testing.T) {
	t.Run("success - nil when the run collected nothing", func(t *testing.T) {
		// arrange
		result := &engine.PipelineRun{Status: engine.RunSuccess}

		// act
		artifacts := MarshalArtifacts(result)

		// assert
		assert.Nil(t, artifacts)
	})
	t.Run("success - refs serialized in stage order", func(t *testing.T) {
		// arrange
		result := &engine.PipelineRun{
			Stages: []engine.StageResult{
				{
					Stage: "scan",
					Artifacts: []engine.ArtifactRef{
						{Label: "deps.json", Path: "deps.json", Present: true},
					},
				},
			},
		}

		// act
		artifacts := MarshalArtifacts(result)

		// assert
		assert.NotNil(t, artifacts)
		assert.Contains(t, *artifacts, `"label":"deps.json"`)
	})
}

func TestPipelineService_PruneRuns(t *testing.T) {
	t.Run("success - oldest runs beyond retention are deleted", func(t *testing.T) {
		// arrange
		db, err := sql.Open("sqlite", ":memory:")
		require.NoError(t, err)
		defer db.Close()
		store.RunMigrations(db)
		runStore := store.NewRunSQLiteStore(db, db)
		svc := NewPipelineService(
			[]*spec.Pipeline{{Name: "nightly"}}, runStore, nil, nil, "workspace", "artifacts",
		)

		base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
		for i := range 5 {
			runID := fmt.Sprintf("run-%d", i)
			_, err := runStore.CreateRun(context.Background(), runID, "nightly")
			require.NoError(t, err)
			_, err = db.Exec(
				"update runs set created_on = $1 where run_id = $2",
				base.Add(time.Duration(i)*time.Minute).Format(internal.DBTimestampLayout),
				runID,
			)
			require.NoError(t, err)
		}

		// act
		err = svc.PruneRuns(context.Background(), 2)

		// assert
		assert.NoError(t, err)
		runs, err := runStore.ListLatestPipelineRuns(context.Background(), "nightly", 10)
		assert.NoError(t, err)
		if assert.Len(t, runs, 2) {
			assert.Equal(t, "run-4", runs[0].RunID)
			assert.Equal(t, "run-3", runs[1].RunID)
		}
	})
}
