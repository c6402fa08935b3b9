package postgres

import (
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"clowder-server/internal/cat"
	"clowder-server/internal/job"
)

const selectCat = `
	SELECT id, colony_id, name, variant, alive,
	       stat_leadership, stat_hunting, stat_foraging, stat_building, stat_mysticism,
	       xp_leadership, xp_hunting, xp_foraging, xp_building, xp_mysticism,
	       hunger, thirst, specialization, x, y, created_at, updated_at
	FROM cats`

func scanCat(row scanner) (*cat.Cat, error) {
	var c cat.Cat
	var specialization sql.NullString

	err := row.Scan(
		&c.ID,
		&c.ColonyID,
		&c.Name,
		&c.Variant,
		&c.Alive,
		&c.Stats.Leadership,
		&c.Stats.Hunting,
		&c.Stats.Foraging,
		&c.Stats.Building,
		&c.Stats.Mysticism,
		&c.RoleXP.Leadership,
		&c.RoleXP.Hunting,
		&c.RoleXP.Foraging,
		&c.RoleXP.Building,
		&c.RoleXP.Mysticism,
		&c.Hunger,
		&c.Thirst,
		&specialization,
		&c.X,
		&c.Y,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if specialization.Valid {
		track := job.SkillTrack(specialization.String)
		c.Specialization = &track
	}
	return &c, nil
}

// Cats returns the whole roster, dead cats included, oldest first.
func (t *pgTx) Cats() ([]*cat.Cat, error) {
	logger := t.logger.With("component", "postgres_store", "operation", "get_cats", "colony_id", t.colonyID)

	rows, err := t.tx.QueryContext(t.ctx, selectCat+" WHERE colony_id = $1 ORDER BY created_at ASC, id ASC", t.colonyID)
	if err != nil {
		logger.Error("Failed to query cats", "error", err)
		return nil, fmt.Errorf("failed to query cats: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			logger.Error("Failed to close rows", "error", err)
		}
	}()

	var cats []*cat.Cat
	for rows.Next() {
		c, err := scanCat(rows)
		if err != nil {
			logger.Error("Failed to scan cat row", "error", err)
			return nil, fmt.Errorf("failed to scan cat: %w", err)
		}
		cats = append(cats, c)
	}
	if err := rows.Err(); err != nil {
		logger.Error("Error during rows iteration", "error", err)
		return nil, fmt.Errorf("error iterating cats: %w", err)
	}
	return cats, nil
}

func (t *pgTx) InsertCats(cats []*cat.Cat) error {
	logger := t.logger.With("component", "postgres_store", "operation", "insert_cats", "count", len(cats))

	query := `
		INSERT INTO cats (
			id, colony_id, name, variant, alive,
			stat_leadership, stat_hunting, stat_foraging, stat_building, stat_mysticism,
			xp_leadership, xp_hunting, xp_foraging, xp_building, xp_mysticism,
			hunger, thirst, specialization, x, y
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
		RETURNING created_at, updated_at
	`

	for _, c := range cats {
		if c.ID == "" {
			c.ID = uuid.NewString()
		}
		c.ColonyID = t.colonyID

		err := t.tx.QueryRowContext(t.ctx, query,
			c.ID,
			c.ColonyID,
			c.Name,
			c.Variant,
			c.Alive,
			c.Stats.Leadership,
			c.Stats.Hunting,
			c.Stats.Foraging,
			c.Stats.Building,
			c.Stats.Mysticism,
			c.RoleXP.Leadership,
			c.RoleXP.Hunting,
			c.RoleXP.Foraging,
			c.RoleXP.Building,
			c.RoleXP.Mysticism,
			c.Hunger,
			c.Thirst,
			c.Specialization,
			c.X,
			c.Y,
		).Scan(&c.CreatedAt, &c.UpdatedAt)
		if err != nil {
			logger.Error("Failed to insert cat", "error", err, "name", c.Name)
			return fmt.Errorf("failed to insert cat: %w", err)
		}
	}

	logger.Debug("Cats inserted")
	return nil
}

func (t *pgTx) SaveCat(c *cat.Cat) error {
	logger := t.logger.With("component", "postgres_store", "operation", "save_cat", "cat_id", c.ID)

	query := `
		UPDATE cats
		SET alive = $2,
		    xp_leadership = $3, xp_hunting = $4, xp_foraging = $5,
		    xp_building = $6, xp_mysticism = $7,
		    hunger = $8, thirst = $9, specialization = $10, x = $11, y = $12,
		    updated_at = now()
		WHERE id = $1
	`

	result, err := t.tx.ExecContext(t.ctx, query,
		c.ID,
		c.Alive,
		c.RoleXP.Leadership,
		c.RoleXP.Hunting,
		c.RoleXP.Foraging,
		c.RoleXP.Building,
		c.RoleXP.Mysticism,
		c.Hunger,
		c.Thirst,
		c.Specialization,
		c.X,
		c.Y,
	)
	if err != nil {
		logger.Error("Failed to save cat", "error", err)
		return fmt.Errorf("failed to save cat: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		logger.Error("Failed to get rows affected", "error", err)
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("cat %s not found for save", c.ID)
	}
	return nil
}
