// Package postgres persists the colony in postgres. Update serializes
// writers by locking the colony row (SELECT ... FOR UPDATE) for the
// duration of the callback's transaction, so concurrent requests and the
// tick never interleave their read-then-write cycles.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"clowder-server/internal/cat"
	"clowder-server/internal/colony"
	"clowder-server/internal/shared/database"
	"clowder-server/internal/shared/errors"
	"clowder-server/internal/store"
	"clowder-server/internal/upgrade"
)

type Store struct {
	db     *database.DB
	logger *slog.Logger
}

var _ store.Store = (*Store)(nil)

func New(db *database.DB, logger *slog.Logger) *Store {
	logger.Debug("Initializing postgres store")
	return &Store{db: db, logger: logger}
}

func (s *Store) Update(ctx context.Context, colonyID string, fn func(tx store.Tx) error) error {
	logger := s.logger.With("component", "postgres_store", "operation", "update", "colony_id", colonyID)

	tx, err := s.db.BeginTxContext(ctx)
	if err != nil {
		logger.Error("Failed to begin transaction", "error", err)
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	var locked string
	err = tx.QueryRowContext(ctx, "SELECT id FROM colonies WHERE id = $1 FOR UPDATE", colonyID).Scan(&locked)
	if err != nil {
		s.rollback(tx, logger)
		if err == sql.ErrNoRows {
			return errors.NotFoundf("colony %s not found", colonyID)
		}
		logger.Error("Failed to lock colony row", "error", err)
		return fmt.Errorf("failed to lock colony: %w", err)
	}

	if err := fn(&pgTx{ctx: ctx, tx: tx, colonyID: colonyID, logger: s.logger}); err != nil {
		s.rollback(tx, logger)
		return err
	}

	if err := tx.Commit(); err != nil {
		logger.Error("Failed to commit transaction", "error", err)
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (s *Store) View(ctx context.Context, colonyID string, fn func(tx store.Tx) error) error {
	logger := s.logger.With("component", "postgres_store", "operation", "view", "colony_id", colonyID)

	tx, err := s.db.BeginTxContext(ctx)
	if err != nil {
		logger.Error("Failed to begin read transaction", "error", err)
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	// Reads only; the whole transaction is discarded.
	defer s.rollback(tx, logger)

	var exists bool
	err = tx.QueryRowContext(ctx, "SELECT EXISTS (SELECT 1 FROM colonies WHERE id = $1)", colonyID).Scan(&exists)
	if err != nil {
		logger.Error("Failed to check colony", "error", err)
		return fmt.Errorf("failed to check colony: %w", err)
	}
	if !exists {
		return errors.NotFoundf("colony %s not found", colonyID)
	}

	return fn(&pgTx{ctx: ctx, tx: tx, colonyID: colonyID, logger: s.logger})
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) rollback(tx *database.Tx, logger *slog.Logger) {
	if err := tx.Rollback(); err != nil && err != sql.ErrTxDone {
		logger.Error("Failed to roll back transaction", "error", err)
	}
}

// FindColony returns the singleton colony, or (nil, nil) before bootstrap.
func (s *Store) FindColony(ctx context.Context) (*colony.Colony, error) {
	logger := s.logger.With("component", "postgres_store", "operation", "find_colony")

	row := s.db.QueryRowContext(ctx, selectColony+" ORDER BY created_at ASC LIMIT 1")
	c, err := scanColony(row)
	if err != nil {
		if err == sql.ErrNoRows {
			logger.Debug("No colony row yet")
			return nil, nil
		}
		logger.Error("Failed to load colony", "error", err)
		return nil, fmt.Errorf("failed to load colony: %w", err)
	}
	return c, nil
}

// CreateColony inserts the colony with its upgrade catalog and starter
// roster in one transaction.
func (s *Store) CreateColony(ctx context.Context, c *colony.Colony, upgrades []*upgrade.Upgrade, cats []*cat.Cat) error {
	logger := s.logger.With("component", "postgres_store", "operation", "create_colony")
	logger.Info("Creating colony", "upgrades", len(upgrades), "cats", len(cats))

	tx, err := s.db.BeginTxContext(ctx)
	if err != nil {
		logger.Error("Failed to begin transaction", "error", err)
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	ptx := &pgTx{ctx: ctx, tx: tx, logger: s.logger}
	if err := ptx.insertColony(c); err != nil {
		s.rollback(tx, logger)
		return err
	}
	ptx.colonyID = c.ID

	for _, u := range upgrades {
		u.ColonyID = c.ID
		if err := ptx.insertUpgrade(u); err != nil {
			s.rollback(tx, logger)
			return err
		}
	}
	if err := ptx.InsertCats(cats); err != nil {
		s.rollback(tx, logger)
		return err
	}

	if err := tx.Commit(); err != nil {
		logger.Error("Failed to commit colony creation", "error", err)
		return fmt.Errorf("failed to commit colony creation: %w", err)
	}

	logger.Info("Colony created", "colony_id", c.ID)
	return nil
}
