package postgres

import (
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"clowder-server/internal/colony"
)

const selectColony = `
	SELECT id, status, food, water, herbs, materials, blessings,
	       run_number, run_started_at, last_tick, last_player_activity_at,
	       automation_tier, global_upgrade_points, ritual_requested_at,
	       critical_since, leader_id, rng_seed, time_scale,
	       resource_decay_multiplier, resilience_hours_override,
	       critical_window_ms, created_at, updated_at
	FROM colonies`

func scanColony(row scanner) (*colony.Colony, error) {
	var c colony.Colony
	var ritualRequestedAt, criticalSince sql.NullTime
	var leaderID sql.NullString
	var resilienceOverride sql.NullFloat64

	err := row.Scan(
		&c.ID,
		&c.Status,
		&c.Resources.Food,
		&c.Resources.Water,
		&c.Resources.Herbs,
		&c.Resources.Materials,
		&c.Resources.Blessings,
		&c.RunNumber,
		&c.RunStartedAt,
		&c.LastTick,
		&c.LastPlayerActivityAt,
		&c.AutomationTier,
		&c.GlobalUpgradePoints,
		&ritualRequestedAt,
		&criticalSince,
		&leaderID,
		&c.RNGSeed,
		&c.TimeScale,
		&c.ResourceDecayMultiplier,
		&resilienceOverride,
		&c.CriticalWindowMs,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if ritualRequestedAt.Valid {
		c.RitualRequestedAt = &ritualRequestedAt.Time
	}
	if criticalSince.Valid {
		c.CriticalSince = &criticalSince.Time
	}
	if leaderID.Valid {
		c.LeaderID = &leaderID.String
	}
	if resilienceOverride.Valid {
		c.ResilienceHoursOverride = &resilienceOverride.Float64
	}
	return &c, nil
}

func (t *pgTx) Colony() (*colony.Colony, error) {
	logger := t.logger.With("component", "postgres_store", "operation", "get_colony", "colony_id", t.colonyID)

	row := t.tx.QueryRowContext(t.ctx, selectColony+" WHERE id = $1", t.colonyID)
	c, err := scanColony(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		logger.Error("Failed to load colony", "error", err)
		return nil, fmt.Errorf("failed to load colony: %w", err)
	}
	return c, nil
}

func (t *pgTx) SaveColony(c *colony.Colony) error {
	logger := t.logger.With("component", "postgres_store", "operation", "save_colony", "colony_id", c.ID)

	query := `
		UPDATE colonies
		SET status = $2, food = $3, water = $4, herbs = $5, materials = $6,
		    blessings = $7, run_number = $8, run_started_at = $9,
		    last_tick = $10, last_player_activity_at = $11,
		    automation_tier = $12, global_upgrade_points = $13,
		    ritual_requested_at = $14, critical_since = $15, leader_id = $16,
		    rng_seed = $17, time_scale = $18, resource_decay_multiplier = $19,
		    resilience_hours_override = $20, critical_window_ms = $21,
		    updated_at = now()
		WHERE id = $1
	`

	result, err := t.tx.ExecContext(t.ctx, query,
		c.ID,
		c.Status,
		c.Resources.Food,
		c.Resources.Water,
		c.Resources.Herbs,
		c.Resources.Materials,
		c.Resources.Blessings,
		c.RunNumber,
		c.RunStartedAt,
		c.LastTick,
		c.LastPlayerActivityAt,
		c.AutomationTier,
		c.GlobalUpgradePoints,
		c.RitualRequestedAt,
		c.CriticalSince,
		c.LeaderID,
		c.RNGSeed,
		c.TimeScale,
		c.ResourceDecayMultiplier,
		c.ResilienceHoursOverride,
		c.CriticalWindowMs,
	)
	if err != nil {
		logger.Error("Failed to save colony", "error", err)
		return fmt.Errorf("failed to save colony: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		logger.Error("Failed to get rows affected", "error", err)
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("colony %s not found for save", c.ID)
	}
	return nil
}

func (t *pgTx) insertColony(c *colony.Colony) error {
	logger := t.logger.With("component", "postgres_store", "operation", "insert_colony")

	if c.ID == "" {
		c.ID = uuid.NewString()
	}

	query := `
		INSERT INTO colonies (
			id, status, food, water, herbs, materials, blessings,
			run_number, run_started_at, last_tick, last_player_activity_at,
			automation_tier, global_upgrade_points, ritual_requested_at,
			critical_since, leader_id, rng_seed, time_scale,
			resource_decay_multiplier, resilience_hours_override, critical_window_ms
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)
		RETURNING created_at, updated_at
	`

	err := t.tx.QueryRowContext(t.ctx, query,
		c.ID,
		c.Status,
		c.Resources.Food,
		c.Resources.Water,
		c.Resources.Herbs,
		c.Resources.Materials,
		c.Resources.Blessings,
		c.RunNumber,
		c.RunStartedAt,
		c.LastTick,
		c.LastPlayerActivityAt,
		c.AutomationTier,
		c.GlobalUpgradePoints,
		c.RitualRequestedAt,
		c.CriticalSince,
		c.LeaderID,
		c.RNGSeed,
		c.TimeScale,
		c.ResourceDecayMultiplier,
		c.ResilienceHoursOverride,
		c.CriticalWindowMs,
	).Scan(&c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		logger.Error("Failed to insert colony", "error", err)
		return fmt.Errorf("failed to insert colony: %w", err)
	}
	return nil
}

func (t *pgTx) InsertRunRecord(rec *colony.RunRecord) error {
	logger := t.logger.With("component", "postgres_store", "operation", "insert_run_record", "run_number", rec.RunNumber)

	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	rec.ColonyID = t.colonyID

	query := `
		INSERT INTO run_history (
			id, colony_id, run_number, started_at, ended_at, duration_sec,
			reason, final_food, final_water, final_herbs, final_materials,
			final_blessings, active_players
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	_, err := t.tx.ExecContext(t.ctx, query,
		rec.ID,
		rec.ColonyID,
		rec.RunNumber,
		rec.StartedAt,
		rec.EndedAt,
		rec.DurationSec,
		rec.Reason,
		rec.FinalResources.Food,
		rec.FinalResources.Water,
		rec.FinalResources.Herbs,
		rec.FinalResources.Materials,
		rec.FinalResources.Blessings,
		rec.ActivePlayers,
	)
	if err != nil {
		logger.Error("Failed to insert run record", "error", err)
		return fmt.Errorf("failed to insert run record: %w", err)
	}
	return nil
}

func (t *pgTx) RunHistory(limit int) ([]*colony.RunRecord, error) {
	logger := t.logger.With("component", "postgres_store", "operation", "run_history", "colony_id", t.colonyID)

	query := `
		SELECT id, colony_id, run_number, started_at, ended_at, duration_sec,
		       reason, final_food, final_water, final_herbs, final_materials,
		       final_blessings, active_players
		FROM run_history
		WHERE colony_id = $1
		ORDER BY run_number DESC
		LIMIT $2
	`

	rows, err := t.tx.QueryContext(t.ctx, query, t.colonyID, limit)
	if err != nil {
		logger.Error("Failed to query run history", "error", err)
		return nil, fmt.Errorf("failed to query run history: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			logger.Error("Failed to close rows", "error", err)
		}
	}()

	var records []*colony.RunRecord
	for rows.Next() {
		var rec colony.RunRecord
		err := rows.Scan(
			&rec.ID,
			&rec.ColonyID,
			&rec.RunNumber,
			&rec.StartedAt,
			&rec.EndedAt,
			&rec.DurationSec,
			&rec.Reason,
			&rec.FinalResources.Food,
			&rec.FinalResources.Water,
			&rec.FinalResources.Herbs,
			&rec.FinalResources.Materials,
			&rec.FinalResources.Blessings,
			&rec.ActivePlayers,
		)
		if err != nil {
			logger.Error("Failed to scan run record", "error", err)
			return nil, fmt.Errorf("failed to scan run record: %w", err)
		}
		records = append(records, &rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate run history: %w", err)
	}
	return records, nil
}
