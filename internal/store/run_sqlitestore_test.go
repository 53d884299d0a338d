package store

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/haatos/secpipe/internal"
	"github.com/haatos/secpipe/internal/util"
	"github.com/stretchr/testify/suite"

	_ "modernc.org/sqlite"
)

type runSQLiteStoreSuite struct {
	runStore *RunSQLiteStore
	db       *sql.DB
	suite.Suite
}

func TestRunSQLiteStore(t *testing.T) {
	suite.Run(t, new(runSQLiteStoreSuite))
}

func (suite *runSQLiteStoreSuite) SetupSuite() {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		log.Fatal(err)
	}
	suite.db = db
	if _, err := db.Exec("PRAGMA foreign_keys = ON;"); err != nil {
		log.Fatal(err)
	}

	RunMigrations(db)

	suite.runStore = NewRunSQLiteStore(db, db)
}

func (suite *runSQLiteStoreSuite) TearDownSuite() {
	_ = suite.db.Close()
}

func (suite *runSQLiteStoreSuite) createRun(pipeline string) *Run {
	r, err := suite.runStore.CreateRun(context.Background(), uuid.NewString(), pipeline)
	suite.NoError(err)
	return r
}

func (suite *runSQLiteStoreSuite) TestRunSQLiteStore_CreateRun() {
	suite.Run("success - run created as queued", func() {
		// arrange
		pipeline := "nightly-scan"

		// act
		r, err := suite.runStore.CreateRun(context.Background(), uuid.NewString(), pipeline)

		// assert
		suite.NoError(err)
		suite.NotNil(r)
		suite.Equal(pipeline, r.Pipeline)
		suite.Equal(StatusQueued, r.Status)
		suite.False(r.CreatedOn.IsZero())
	})
}

func (suite *runSQLiteStoreSuite) TestRunSQLiteStore_ReadRunByID() {
	suite.Run("success - run found", func() {
		// arrange
		expected := suite.createRun("read-by-id")

		// act
		r, err := suite.runStore.ReadRunByID(context.Background(), expected.RunID)

		// assert
		suite.NoError(err)
		suite.NotNil(r)
		suite.Equal(expected.RunID, r.RunID)
		suite.Equal(expected.Pipeline, r.Pipeline)
		suite.Nil(r.StartedOn)
		suite.Nil(r.EndedOn)
	})
	suite.Run("failure - run not found", func() {
		// arrange
		id := uuid.NewString()

		// act
		r, err := suite.runStore.ReadRunByID(context.Background(), id)

		// assert
		suite.ErrorIs(err, sql.ErrNoRows)
		suite.Nil(r)
	})
}

func (suite *runSQLiteStoreSuite) TestRunSQLiteStore_UpdateRunStartedOn() {
	suite.Run("success - run marked running", func() {
		// arrange
		r := suite.createRun("update-started")
		startedOn := time.Now().UTC()

		// act
		err := suite.runStore.UpdateRunStartedOn(
			context.Background(), r.RunID, "workspace/"+r.RunID, StatusRunning, &startedOn,
		)

		// assert
		suite.NoError(err)
		updated, err := suite.runStore.ReadRunByID(context.Background(), r.RunID)
		suite.NoError(err)
		suite.Equal(StatusRunning, updated.Status)
		suite.Equal("workspace/"+r.RunID, *updated.WorkingDirectory)
		suite.NotNil(updated.StartedOn)
	})
}

func (suite *runSQLiteStoreSuite) TestRunSQLiteStore_UpdateRunEndedOn() {
	suite.Run("success - run finished with artifacts and report", func() {
		// arrange
		r := suite.createRun("update-ended")
		endedOn := time.Now().UTC()
		artifacts := `[{"label":"deps.json","present":true}]`
		reportPath := "artifacts/" + r.RunID + "/aggregate-report.html"

		// act
		err := suite.runStore.UpdateRunEndedOn(
			context.Background(),
			r.RunID,
			StatusPassed,
			util.AsPtr(artifacts),
			util.AsPtr(reportPath),
			&endedOn,
		)

		// assert
		suite.NoError(err)
		updated, err := suite.runStore.ReadRunByID(context.Background(), r.RunID)
		suite.NoError(err)
		suite.Equal(StatusPassed, updated.Status)
		suite.Equal(artifacts, *updated.Artifacts)
		suite.Equal(reportPath, *updated.ReportPath)
		suite.NotNil(updated.EndedOn)
	})
}

func (suite *runSQLiteStoreSuite) TestRunSQLiteStore_AppendRunOutput() {
	suite.Run("success - output is appended in order", func() {
		// arrange
		r := suite.createRun("append-output")

		// act
		err1 := suite.runStore.AppendRunOutput(context.Background(), r.RunID, "first line\n")
		err2 := suite.runStore.AppendRunOutput(context.Background(), r.RunID, "second line\n")

		// assert
		suite.NoError(err1)
		suite.NoError(err2)
		updated, err := suite.runStore.ReadRunByID(context.Background(), r.RunID)
		suite.NoError(err)
		suite.Equal("first line\nsecond line\n", *updated.Output)
	})
}

func (suite *runSQLiteStoreSuite) TestRunSQLiteStore_DeleteRun() {
	suite.Run("success - run deleted", func() {
		// arrange
		r := suite.createRun("delete-run")

		// act
		err := suite.runStore.DeleteRun(context.Background(), r.RunID)

		// assert
		suite.NoError(err)
		_, err = suite.runStore.ReadRunByID(context.Background(), r.RunID)
		suite.ErrorIs(err, sql.ErrNoRows)
	})
}

func (suite *runSQLiteStoreSuite) TestRunSQLiteStore_ListLatestPipelineRuns() {
	suite.Run("success - limits to newest runs", func() {
		// arrange
		pipeline := "list-latest"
		for range 5 {
			suite.createRun(pipeline)
		}

		// act
		runs, err := suite.runStore.ListLatestPipelineRuns(context.Background(), pipeline, 3)

		// assert
		suite.NoError(err)
		suite.Len(runs, 3)
		for _, r := range runs {
			suite.Equal(pipeline, r.Pipeline)
		}
	})
}

func (suite *runSQLiteStoreSuite) TestRunSQLiteStore_ListPipelineRuns() {
	suite.Run("success - runs are listed newest first", func() {
		// arrange
		pipeline := "list-ordered"
		base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
		for i, id := range []string{"run-old", "run-mid", "run-new"} {
			_, err := suite.runStore.CreateRun(context.Background(), id, pipeline)
			suite.NoError(err)
			_, err = suite.db.Exec(
				"update runs set created_on = $1 where run_id = $2",
				base.Add(time.Duration(i)*time.Minute).Format(internal.DBTimestampLayout),
				id,
			)
			suite.NoError(err)
		}

		// act
		runs, err := suite.runStore.ListPipelineRuns(context.Background(), pipeline)

		// assert
		suite.NoError(err)
		if suite.Len(runs, 3) {
			suite.Equal("run-new", runs[0].RunID)
			suite.Equal("run-mid", runs[1].RunID)
			suite.Equal("run-old", runs[2].RunID)
		}
	})
}

func (suite *runSQLiteStoreSuite) TestRunSQLiteStore_CountPipelineRuns() {
	suite.Run("success - counts only the pipeline's runs", func() {
		// arrange
		pipeline := fmt.Sprintf("count-%s", uuid.NewString())
		suite.createRun(pipeline)
		suite.createRun(pipeline)
		suite.createRun("some-other-pipeline")

		// act
		count, err := suite.runStore.CountPipelineRuns(context.Background(), pipeline)

		// assert
		suite.NoError(err)
		suite.Equal(int64(2), count)
	})
}
