package engine

import (
	"context"
	"sort"

	"clowder-server/internal/cat"
	"clowder-server/internal/colony"
	"clowder-server/internal/event"
	"clowder-server/internal/job"
	"clowder-server/internal/store"
	"clowder-server/internal/taskboard"
	"clowder-server/internal/upgrade"
)

const (
	dashboardEventLimit = 20
	dashboardRunLimit   = 5
)

// Dashboard is the public read model: the colony, its roster, the job
// queue, the chore board, the upgrade catalog, the recent log, past runs
// and who is around right now.
type Dashboard struct {
	Colony      *colony.Colony            `json:"colony"`
	Leader      *cat.Cat                  `json:"leader,omitempty"`
	Cats        []*cat.Cat                `json:"cats"`
	Jobs        []*job.Job                `json:"jobs"`
	Upgrades    []*upgrade.Upgrade        `json:"upgrades"`
	Tasks       []*taskboard.SurvivalTask `json:"tasks"`
	Events      []*event.Event            `json:"events"`
	Runs        []*colony.RunRecord       `json:"runs"`
	OnlineCount int                       `json:"online_count"`
}

// Dashboard assembles the read model from the latest committed snapshot.
// A non-empty sessionID marks the viewer as present when a presence
// tracker is wired; the read itself never mutates colony state.
func (e *Engine) Dashboard(ctx context.Context, sessionID string) (*Dashboard, error) {
	logger := e.logger.With("component", "engine", "operation", "dashboard")

	if e.Presence != nil && sessionID != "" {
		if err := e.Presence.Touch(ctx, sessionID); err != nil {
			logger.Warn("Failed to mark presence", "error", err)
		}
	}

	var d Dashboard
	err := e.store.View(ctx, e.colonyID, func(tx store.Tx) error {
		c, err := tx.Colony()
		if err != nil {
			return err
		}
		cats, err := tx.Cats()
		if err != nil {
			return err
		}
		jobs, err := tx.Jobs()
		if err != nil {
			return err
		}
		ups, err := tx.Upgrades()
		if err != nil {
			return err
		}
		tasks, err := tx.Tasks()
		if err != nil {
			return err
		}
		events, err := tx.RecentEvents(dashboardEventLimit)
		if err != nil {
			return err
		}
		runs, err := tx.RunHistory(dashboardRunLimit)
		if err != nil {
			return err
		}

		// Active jobs first by finish time; queued jobs trail.
		sort.SliceStable(jobs, func(i, k int) bool {
			switch {
			case jobs[i].EndsAt == nil:
				return false
			case jobs[k].EndsAt == nil:
				return true
			default:
				return jobs[i].EndsAt.Before(*jobs[k].EndsAt)
			}
		})

		sort.SliceStable(ups, func(i, k int) bool {
			return ups[i].Key < ups[k].Key
		})

		d = Dashboard{
			Colony:   c,
			Cats:     cats,
			Jobs:     jobs,
			Upgrades: ups,
			Tasks:    tasks,
			Events:   events,
			Runs:     runs,
		}
		if c.LeaderID != nil {
			d.Leader = catByID(cats, *c.LeaderID)
		}

		if e.Presence == nil {
			online, err := tx.CountPlayersActiveSince(e.Now().Add(-e.OnlineWindow))
			if err != nil {
				return err
			}
			d.OnlineCount = online
		}
		return nil
	})
	if err != nil {
		logger.Error("Failed to assemble dashboard", "error", err)
		return nil, err
	}

	if e.Presence != nil {
		online, err := e.Presence.Online(ctx)
		if err != nil {
			logger.Warn("Failed to count online visitors", "error", err)
		} else {
			d.OnlineCount = online
		}
	}
	return &d, nil
}
