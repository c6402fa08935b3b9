package postgres

import (
	"database/sql"
	"fmt"
	"time"

	"clowder-server/internal/player"
)

const selectPlayer = `
	SELECT session_id, nickname, last_seen_at, window_started_at,
	       clicks_in_window, clicks, jobs_requested, upgrades_purchased,
	       created_at, updated_at
	FROM players`

func scanPlayer(row scanner) (*player.Player, error) {
	var p player.Player
	err := row.Scan(
		&p.SessionID,
		&p.Nickname,
		&p.LastSeenAt,
		&p.WindowStartedAt,
		&p.ClicksInWindow,
		&p.Clicks,
		&p.JobsRequested,
		&p.UpgradesPurchased,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (t *pgTx) PlayerBySession(sessionID string) (*player.Player, error) {
	logger := t.logger.With("component", "postgres_store", "operation", "get_player", "session_id", sessionID)

	row := t.tx.QueryRowContext(t.ctx, selectPlayer+" WHERE session_id = $1", sessionID)
	p, err := scanPlayer(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		logger.Error("Failed to load player", "error", err)
		return nil, fmt.Errorf("failed to load player: %w", err)
	}
	return p, nil
}

func (t *pgTx) UpsertPlayer(p *player.Player) error {
	logger := t.logger.With("component", "postgres_store", "operation", "upsert_player", "session_id", p.SessionID)

	query := `
		INSERT INTO players (
			session_id, nickname, last_seen_at, window_started_at,
			clicks_in_window, clicks, jobs_requested, upgrades_purchased
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (session_id) DO UPDATE
		SET nickname = EXCLUDED.nickname,
		    last_seen_at = EXCLUDED.last_seen_at,
		    window_started_at = EXCLUDED.window_started_at,
		    clicks_in_window = EXCLUDED.clicks_in_window,
		    clicks = EXCLUDED.clicks,
		    jobs_requested = EXCLUDED.jobs_requested,
		    upgrades_purchased = EXCLUDED.upgrades_purchased,
		    updated_at = now()
		RETURNING created_at, updated_at
	`

	err := t.tx.QueryRowContext(t.ctx, query,
		p.SessionID,
		p.Nickname,
		p.LastSeenAt,
		p.WindowStartedAt,
		p.ClicksInWindow,
		p.Clicks,
		p.JobsRequested,
		p.UpgradesPurchased,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		logger.Error("Failed to upsert player", "error", err)
		return fmt.Errorf("failed to upsert player: %w", err)
	}
	return nil
}

func (t *pgTx) CountPlayersActiveSince(since time.Time) (int, error) {
	logger := t.logger.With("component", "postgres_store", "operation", "count_active_players")

	var count int
	err := t.tx.QueryRowContext(t.ctx, "SELECT COUNT(*) FROM players WHERE last_seen_at >= $1", since).Scan(&count)
	if err != nil {
		logger.Error("Failed to count active players", "error", err)
		return 0, fmt.Errorf("failed to count active players: %w", err)
	}
	return count, nil
}
