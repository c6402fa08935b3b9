package postgres

import (
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"clowder-server/internal/taskboard"
)

const selectTask = `
	SELECT id, colony_id, kind, status, assign_at, assigned_cat_id,
	       completes_at, created_at, updated_at
	FROM survival_tasks`

func scanTask(row scanner) (*taskboard.SurvivalTask, error) {
	var t taskboard.SurvivalTask
	var catID sql.NullString
	var completesAt sql.NullTime

	err := row.Scan(
		&t.ID,
		&t.ColonyID,
		&t.Kind,
		&t.Status,
		&t.AssignAt,
		&catID,
		&completesAt,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if catID.Valid {
		t.AssignedCatID = &catID.String
	}
	if completesAt.Valid {
		t.CompletesAt = &completesAt.Time
	}
	return &t, nil
}

func (t *pgTx) Tasks() ([]*taskboard.SurvivalTask, error) {
	logger := t.logger.With("component", "postgres_store", "operation", "get_tasks", "colony_id", t.colonyID)

	rows, err := t.tx.QueryContext(t.ctx, selectTask+" WHERE colony_id = $1 ORDER BY created_at ASC, id ASC", t.colonyID)
	if err != nil {
		logger.Error("Failed to query tasks", "error", err)
		return nil, fmt.Errorf("failed to query tasks: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			logger.Error("Failed to close rows", "error", err)
		}
	}()

	var tasks []*taskboard.SurvivalTask
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			logger.Error("Failed to scan task row", "error", err)
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		logger.Error("Error during rows iteration", "error", err)
		return nil, fmt.Errorf("error iterating tasks: %w", err)
	}
	return tasks, nil
}

func (t *pgTx) InsertTask(task *taskboard.SurvivalTask) error {
	logger := t.logger.With("component", "postgres_store", "operation", "insert_task", "kind", task.Kind)

	if task.ID == "" {
		task.ID = uuid.NewString()
	}
	task.ColonyID = t.colonyID

	query := `
		INSERT INTO survival_tasks (id, colony_id, kind, status, assign_at, assigned_cat_id, completes_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at
	`

	err := t.tx.QueryRowContext(t.ctx, query,
		task.ID,
		task.ColonyID,
		task.Kind,
		task.Status,
		task.AssignAt,
		task.AssignedCatID,
		task.CompletesAt,
	).Scan(&task.CreatedAt, &task.UpdatedAt)
	if err != nil {
		logger.Error("Failed to insert task", "error", err)
		return fmt.Errorf("failed to insert task: %w", err)
	}
	return nil
}

func (t *pgTx) SaveTask(task *taskboard.SurvivalTask) error {
	logger := t.logger.With("component", "postgres_store", "operation", "save_task", "task_id", task.ID)

	query := `
		UPDATE survival_tasks
		SET status = $2, assign_at = $3, assigned_cat_id = $4, completes_at = $5, updated_at = now()
		WHERE id = $1
	`

	result, err := t.tx.ExecContext(t.ctx, query,
		task.ID,
		task.Status,
		task.AssignAt,
		task.AssignedCatID,
		task.CompletesAt,
	)
	if err != nil {
		logger.Error("Failed to save task", "error", err)
		return fmt.Errorf("failed to save task: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		logger.Error("Failed to get rows affected", "error", err)
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("task %s not found for save", task.ID)
	}
	return nil
}

func (t *pgTx) DeleteTask(id string) error {
	logger := t.logger.With("component", "postgres_store", "operation", "delete_task", "task_id", id)

	_, err := t.tx.ExecContext(t.ctx, "DELETE FROM survival_tasks WHERE id = $1 AND colony_id = $2", id, t.colonyID)
	if err != nil {
		logger.Error("Failed to delete task", "error", err)
		return fmt.Errorf("failed to delete task: %w", err)
	}
	return nil
}

func (t *pgTx) DeleteAllTasks() error {
	logger := t.logger.With("component", "postgres_store", "operation", "delete_all_tasks", "colony_id", t.colonyID)

	_, err := t.tx.ExecContext(t.ctx, "DELETE FROM survival_tasks WHERE colony_id = $1", t.colonyID)
	if err != nil {
		logger.Error("Failed to delete tasks", "error", err)
		return fmt.Errorf("failed to delete tasks: %w", err)
	}
	return nil
}
