// Package store defines the persistence boundary for the colony
// aggregate. Every mutating operation runs inside Update, which
// serializes writers per colony: the postgres implementation locks the
// colony row, the memory implementation holds a mutex. Code inside the
// callback may assume a consistent read-then-write view with no other
// writer committing underneath it.
package store

import (
	"context"
	"time"

	"clowder-server/internal/cat"
	"clowder-server/internal/colony"
	"clowder-server/internal/event"
	"clowder-server/internal/job"
	"clowder-server/internal/player"
	"clowder-server/internal/taskboard"
	"clowder-server/internal/upgrade"
)

// Tx is the per-transaction view handed to Update and View callbacks.
// Lookups that miss return (nil, nil) rather than an error.
type Tx interface {
	Colony() (*colony.Colony, error)
	SaveColony(c *colony.Colony) error

	Jobs() ([]*job.Job, error)
	JobByID(id string) (*job.Job, error)
	InsertJob(j *job.Job) error
	SaveJob(j *job.Job) error
	DeleteJob(id string) error
	DeleteAllJobs() error

	Cats() ([]*cat.Cat, error)
	InsertCats(cats []*cat.Cat) error
	SaveCat(c *cat.Cat) error

	Upgrades() ([]*upgrade.Upgrade, error)
	UpgradeByKey(key string) (*upgrade.Upgrade, error)
	SaveUpgrade(u *upgrade.Upgrade) error

	PlayerBySession(sessionID string) (*player.Player, error)
	UpsertPlayer(p *player.Player) error
	CountPlayersActiveSince(since time.Time) (int, error)

	Tasks() ([]*taskboard.SurvivalTask, error)
	InsertTask(t *taskboard.SurvivalTask) error
	SaveTask(t *taskboard.SurvivalTask) error
	DeleteTask(id string) error
	DeleteAllTasks() error

	InsertEvent(e *event.Event) error
	RecentEvents(limit int) ([]*event.Event, error)

	InsertRunRecord(rec *colony.RunRecord) error
	RunHistory(limit int) ([]*colony.RunRecord, error)
}

// Store owns colony persistence. FindColony returns (nil, nil) before
// bootstrap; CreateColony seeds the colony with its upgrade catalog and
// starter roster in one transaction.
type Store interface {
	FindColony(ctx context.Context) (*colony.Colony, error)
	CreateColony(ctx context.Context, c *colony.Colony, upgrades []*upgrade.Upgrade, cats []*cat.Cat) error

	// Update runs fn as the sole writer for the colony. A non-nil error
	// from fn rolls every write back.
	Update(ctx context.Context, colonyID string, fn func(tx Tx) error) error

	// View runs fn against the latest committed snapshot, never blocking
	// behind writers on the memory implementation and never taking row
	// locks on postgres.
	View(ctx context.Context, colonyID string, fn func(tx Tx) error) error

	Close() error
}
