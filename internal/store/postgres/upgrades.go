package postgres

import (
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"clowder-server/internal/upgrade"
)

const selectUpgrade = `
	SELECT id, colony_id, key, level, max_level, base_cost, description,
	       created_at, updated_at
	FROM upgrades`

func scanUpgrade(row scanner) (*upgrade.Upgrade, error) {
	var u upgrade.Upgrade
	err := row.Scan(
		&u.ID,
		&u.ColonyID,
		&u.Key,
		&u.Level,
		&u.MaxLevel,
		&u.BaseCost,
		&u.Description,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// Upgrades returns the catalog sorted by key, the dashboard order.
func (t *pgTx) Upgrades() ([]*upgrade.Upgrade, error) {
	logger := t.logger.With("component", "postgres_store", "operation", "get_upgrades", "colony_id", t.colonyID)

	rows, err := t.tx.QueryContext(t.ctx, selectUpgrade+" WHERE colony_id = $1 ORDER BY key ASC", t.colonyID)
	if err != nil {
		logger.Error("Failed to query upgrades", "error", err)
		return nil, fmt.Errorf("failed to query upgrades: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			logger.Error("Failed to close rows", "error", err)
		}
	}()

	var upgrades []*upgrade.Upgrade
	for rows.Next() {
		u, err := scanUpgrade(rows)
		if err != nil {
			logger.Error("Failed to scan upgrade row", "error", err)
			return nil, fmt.Errorf("failed to scan upgrade: %w", err)
		}
		upgrades = append(upgrades, u)
	}
	if err := rows.Err(); err != nil {
		logger.Error("Error during rows iteration", "error", err)
		return nil, fmt.Errorf("error iterating upgrades: %w", err)
	}
	return upgrades, nil
}

func (t *pgTx) UpgradeByKey(key string) (*upgrade.Upgrade, error) {
	logger := t.logger.With("component", "postgres_store", "operation", "get_upgrade", "key", key)

	row := t.tx.QueryRowContext(t.ctx, selectUpgrade+" WHERE colony_id = $1 AND key = $2", t.colonyID, key)
	u, err := scanUpgrade(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		logger.Error("Failed to load upgrade", "error", err)
		return nil, fmt.Errorf("failed to load upgrade: %w", err)
	}
	return u, nil
}

func (t *pgTx) SaveUpgrade(u *upgrade.Upgrade) error {
	logger := t.logger.With("component", "postgres_store", "operation", "save_upgrade", "key", u.Key, "level", u.Level)

	query := `
		UPDATE upgrades
		SET level = $3, updated_at = now()
		WHERE colony_id = $1 AND key = $2
	`

	result, err := t.tx.ExecContext(t.ctx, query, t.colonyID, u.Key, u.Level)
	if err != nil {
		logger.Error("Failed to save upgrade", "error", err)
		return fmt.Errorf("failed to save upgrade: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		logger.Error("Failed to get rows affected", "error", err)
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("upgrade %s not found for save", u.Key)
	}
	return nil
}

func (t *pgTx) insertUpgrade(u *upgrade.Upgrade) error {
	logger := t.logger.With("component", "postgres_store", "operation", "insert_upgrade", "key", u.Key)

	if u.ID == "" {
		u.ID = uuid.NewString()
	}

	query := `
		INSERT INTO upgrades (id, colony_id, key, level, max_level, base_cost, description)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at
	`

	err := t.tx.QueryRowContext(t.ctx, query,
		u.ID,
		u.ColonyID,
		u.Key,
		u.Level,
		u.MaxLevel,
		u.BaseCost,
		u.Description,
	).Scan(&u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		logger.Error("Failed to insert upgrade", "error", err)
		return fmt.Errorf("failed to insert upgrade: %w", err)
	}
	return nil
}
