package postgres

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"clowder-server/internal/event"
)

func (t *pgTx) InsertEvent(e *event.Event) error {
	logger := t.logger.With("component", "postgres_store", "operation", "insert_event", "type", e.Type)

	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	e.ColonyID = t.colonyID

	metadata, err := marshalMetadata(e.Metadata)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO events (id, colony_id, type, message, involved_cat_ids, metadata)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at
	`

	err = t.tx.QueryRowContext(t.ctx, query,
		e.ID,
		e.ColonyID,
		e.Type,
		e.Message,
		pq.Array(e.InvolvedCatIDs),
		metadata,
	).Scan(&e.CreatedAt)
	if err != nil {
		logger.Error("Failed to insert event", "error", err)
		return fmt.Errorf("failed to insert event: %w", err)
	}
	return nil
}

// RecentEvents returns up to limit events, newest first.
func (t *pgTx) RecentEvents(limit int) ([]*event.Event, error) {
	logger := t.logger.With("component", "postgres_store", "operation", "recent_events", "limit", limit)

	query := `
		SELECT id, colony_id, type, message, involved_cat_ids, metadata, created_at
		FROM events
		WHERE colony_id = $1
		ORDER BY seq DESC
		LIMIT $2
	`

	rows, err := t.tx.QueryContext(t.ctx, query, t.colonyID, limit)
	if err != nil {
		logger.Error("Failed to query events", "error", err)
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			logger.Error("Failed to close rows", "error", err)
		}
	}()

	var events []*event.Event
	for rows.Next() {
		var e event.Event
		var metadata []byte
		err := rows.Scan(
			&e.ID,
			&e.ColonyID,
			&e.Type,
			&e.Message,
			pq.Array(&e.InvolvedCatIDs),
			&metadata,
			&e.CreatedAt,
		)
		if err != nil {
			logger.Error("Failed to scan event row", "error", err)
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		if len(metadata) > 0 {
			if err := json.Unmarshal(metadata, &e.Metadata); err != nil {
				logger.Error("Failed to decode event metadata", "error", err)
				return nil, fmt.Errorf("failed to decode event metadata: %w", err)
			}
		}
		events = append(events, &e)
	}
	if err := rows.Err(); err != nil {
		logger.Error("Error during rows iteration", "error", err)
		return nil, fmt.Errorf("error iterating events: %w", err)
	}
	return events, nil
}
