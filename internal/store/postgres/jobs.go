package postgres

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"clowder-server/internal/job"
)

const selectJob = `
	SELECT id, colony_id, kind, status, requested_by, requested_by_session,
	       assigned_cat_id, base_duration_sec, started_at, ends_at,
	       click_time_reduced_sec, metadata, created_at, updated_at
	FROM jobs`

func scanJob(row scanner) (*job.Job, error) {
	var j job.Job
	var session, catID sql.NullString
	var startedAt, endsAt sql.NullTime
	var metadata []byte

	err := row.Scan(
		&j.ID,
		&j.ColonyID,
		&j.Kind,
		&j.Status,
		&j.RequestedBy,
		&session,
		&catID,
		&j.BaseDurationSec,
		&startedAt,
		&endsAt,
		&j.ClickTimeReducedSec,
		&metadata,
		&j.CreatedAt,
		&j.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if session.Valid {
		j.RequestedBySession = &session.String
	}
	if catID.Valid {
		j.AssignedCatID = &catID.String
	}
	if startedAt.Valid {
		j.StartedAt = &startedAt.Time
	}
	if endsAt.Valid {
		j.EndsAt = &endsAt.Time
	}
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &j.Metadata); err != nil {
			return nil, fmt.Errorf("failed to decode job metadata: %w", err)
		}
	}
	return &j, nil
}

func marshalMetadata(m map[string]string) (interface{}, error) {
	if len(m) == 0 {
		return nil, nil
	}
	raw, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("failed to encode metadata: %w", err)
	}
	return raw, nil
}

// Jobs returns every job in queue order.
func (t *pgTx) Jobs() ([]*job.Job, error) {
	logger := t.logger.With("component", "postgres_store", "operation", "get_jobs", "colony_id", t.colonyID)

	rows, err := t.tx.QueryContext(t.ctx, selectJob+" WHERE colony_id = $1 ORDER BY seq ASC", t.colonyID)
	if err != nil {
		logger.Error("Failed to query jobs", "error", err)
		return nil, fmt.Errorf("failed to query jobs: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			logger.Error("Failed to close rows", "error", err)
		}
	}()

	var jobs []*job.Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			logger.Error("Failed to scan job row", "error", err)
			return nil, fmt.Errorf("failed to scan job: %w", err)
		}
		jobs = append(jobs, j)
	}
	if err := rows.Err(); err != nil {
		logger.Error("Error during rows iteration", "error", err)
		return nil, fmt.Errorf("error iterating jobs: %w", err)
	}
	return jobs, nil
}

func (t *pgTx) JobByID(id string) (*job.Job, error) {
	logger := t.logger.With("component", "postgres_store", "operation", "get_job", "job_id", id)

	row := t.tx.QueryRowContext(t.ctx, selectJob+" WHERE id = $1 AND colony_id = $2", id, t.colonyID)
	j, err := scanJob(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		logger.Error("Failed to load job", "error", err)
		return nil, fmt.Errorf("failed to load job: %w", err)
	}
	return j, nil
}

func (t *pgTx) InsertJob(j *job.Job) error {
	logger := t.logger.With("component", "postgres_store", "operation", "insert_job", "kind", j.Kind)

	if j.ID == "" {
		j.ID = uuid.NewString()
	}
	j.ColonyID = t.colonyID

	metadata, err := marshalMetadata(j.Metadata)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO jobs (
			id, colony_id, kind, status, requested_by, requested_by_session,
			assigned_cat_id, base_duration_sec, started_at, ends_at,
			click_time_reduced_sec, metadata
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING created_at, updated_at
	`

	err = t.tx.QueryRowContext(t.ctx, query,
		j.ID,
		j.ColonyID,
		j.Kind,
		j.Status,
		j.RequestedBy,
		j.RequestedBySession,
		j.AssignedCatID,
		j.BaseDurationSec,
		j.StartedAt,
		j.EndsAt,
		j.ClickTimeReducedSec,
		metadata,
	).Scan(&j.CreatedAt, &j.UpdatedAt)
	if err != nil {
		logger.Error("Failed to insert job", "error", err)
		return fmt.Errorf("failed to insert job: %w", err)
	}
	return nil
}

func (t *pgTx) SaveJob(j *job.Job) error {
	logger := t.logger.With("component", "postgres_store", "operation", "save_job", "job_id", j.ID)

	metadata, err := marshalMetadata(j.Metadata)
	if err != nil {
		return err
	}

	query := `
		UPDATE jobs
		SET status = $2, assigned_cat_id = $3, started_at = $4, ends_at = $5,
		    click_time_reduced_sec = $6, metadata = $7, updated_at = now()
		WHERE id = $1
	`

	result, err := t.tx.ExecContext(t.ctx, query,
		j.ID,
		j.Status,
		j.AssignedCatID,
		j.StartedAt,
		j.EndsAt,
		j.ClickTimeReducedSec,
		metadata,
	)
	if err != nil {
		logger.Error("Failed to save job", "error", err)
		return fmt.Errorf("failed to save job: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		logger.Error("Failed to get rows affected", "error", err)
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("job %s not found for save", j.ID)
	}
	return nil
}

func (t *pgTx) DeleteJob(id string) error {
	logger := t.logger.With("component", "postgres_store", "operation", "delete_job", "job_id", id)

	_, err := t.tx.ExecContext(t.ctx, "DELETE FROM jobs WHERE id = $1 AND colony_id = $2", id, t.colonyID)
	if err != nil {
		logger.Error("Failed to delete job", "error", err)
		return fmt.Errorf("failed to delete job: %w", err)
	}
	return nil
}

func (t *pgTx) DeleteAllJobs() error {
	logger := t.logger.With("component", "postgres_store", "operation", "delete_all_jobs", "colony_id", t.colonyID)

	_, err := t.tx.ExecContext(t.ctx, "DELETE FROM jobs WHERE colony_id = $1", t.colonyID)
	if err != nil {
		logger.Error("Failed to delete jobs", "error", err)
		return fmt.Errorf("failed to delete jobs: %w", err)
	}
	return nil
}
