package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/georgysavva/scany/v2/sqlscan"
	"github.com/haatos/secpipe/internal"
)

type RunSQLiteStore struct {
	rdb, rwdb *sql.DB
}

func NewRunSQLiteStore(rdb, rwdb *sql.DB) *RunSQLiteStore {
	return &RunSQLiteStore{rdb, rwdb}
}

func (store *RunSQLiteStore) CreateRun(
	ctx context.Context,
	runID, pipeline string,
) (*Run, error) {
	r := &Run{
		RunID:    runID,
		Pipeline: pipeline,
		Status:   StatusQueued,
	}
	query := `insert into runs (
		run_id,
		pipeline,
		status
	)
	values ($1, $2, $3)
	returning created_on`
	if err := sqlscan.Get(ctx, store.rwdb, r, query, r.RunID, r.Pipeline, r.Status); err != nil {
		return nil, err
	}
	return r, nil
}

func (store *RunSQLiteStore) ReadRunByID(ctx context.Context, id string) (*Run, error) {
	r := &Run{RunID: id}
	query := "select * from runs where run_id = $1"
	if err := sqlscan.Get(ctx, store.rdb, r, query, r.RunID); err != nil {
		return nil, err
	}
	return r, nil
}

func (store *RunSQLiteStore) UpdateRunStartedOn(
	ctx context.Context,
	id string,
	workingDirectory string,
	status RunStatus,
	startedOn *time.Time,
) error {
	query := `update runs
	set working_directory = $1,
		status = $2,
		started_on = $3
	where run_id = $4`
	_, err := store.rwdb.ExecContext(
		ctx, query,
		workingDirectory,
		status,
		startedOn.Format(internal.DBTimestampLayout),
		id,
	)
	return err
}

func (store *RunSQLiteStore) UpdateRunEndedOn(
	ctx context.Context,
	id string,
	status RunStatus,
	artifacts, reportPath *string,
	endedOn *time.Time,
) error {
	query := `update runs
	set status = $1,
		artifacts = $2,
		report_path = $3,
		ended_on = $4
	where run_id = $5`
	_, err := store.rwdb.ExecContext(
		ctx, query,
		status,
		artifacts,
		reportPath,
		endedOn.Format(internal.DBTimestampLayout),
		id,
	)
	return err
}

func (store *RunSQLiteStore) AppendRunOutput(ctx context.Context, id string, out string) error {
	tx, err := store.rwdb.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	r := &Run{RunID: id}
	readQuery := `select * from runs where run_id = $1`
	err = sqlscan.Get(ctx, tx, r, readQuery, r.RunID)
	if err != nil {
		return err
	}

	var existingOutput string
	if r.Output != nil {
		existingOutput = *r.Output
	}
	updateQuery := `update runs
	set output = $1
	where run_id = $2`
	_, err = tx.ExecContext(ctx, updateQuery, existingOutput+out, r.RunID)
	if err != nil {
		return err
	}

	return tx.Commit()
}

func (store *RunSQLiteStore) DeleteRun(ctx context.Context, id string) error {
	query := "delete from runs where run_id = $1"
	_, err := store.rwdb.ExecContext(ctx, query, id)
	return err
}

func (store *RunSQLiteStore) ListPipelineRuns(
	ctx context.Context,
	pipeline string,
) ([]Run, error) {
	query := `select * from runs
	where pipeline = $1
	order by created_on desc`
	runs := make([]Run, 0)
	err := sqlscan.Select(ctx, store.rdb, &runs, query, pipeline)
	return runs, err
}

func (store *RunSQLiteStore) ListPipelineRunsPaginated(
	ctx context.Context,
	pipeline string,
	limit, offset int64,
) ([]Run, error) {
	query := `select * from runs
	where pipeline = $1
	order by created_on desc limit $2 offset $3`
	runs := make([]Run, 0)
	err := sqlscan.Select(ctx, store.rdb, &runs, query, pipeline, limit, offset)
	return runs, err
}

func (store *RunSQLiteStore) ListLatestPipelineRuns(
	ctx context.Context,
	pipeline string,
	limit int64,
) ([]Run, error) {
	query := `select * from runs
	where pipeline = $1
	order by created_on desc limit $2`
	runs := make([]Run, 0)
	err := sqlscan.Select(ctx, store.rdb, &runs, query, pipeline, limit)
	return runs, err
}

func (store *RunSQLiteStore) CountPipelineRuns(
	ctx context.Context,
	pipeline string,
) (int64, error) {
	var count int64
	query := `select count(*) from runs where pipeline = $1`
	err := sqlscan.Get(ctx, store.rdb, &count, query, pipeline)
	return count, err
}
