package postgres

import (
	"context"
	"log/slog"

	"clowder-server/internal/shared/database"
	"clowder-server/internal/store"
)

// pgTx is one transaction's view. The colony row is already locked when
// Update hands this out, so every read inside is stable.
type pgTx struct {
	ctx      context.Context
	tx       *database.Tx
	colonyID string
	logger   *slog.Logger
}

var _ store.Tx = (*pgTx)(nil)

type scanner interface {
	Scan(dest ...interface{}) error
}
