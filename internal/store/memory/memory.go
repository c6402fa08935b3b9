// Package memory is the in-memory store used by tests and by dev setups
// running without postgres. Update works on a deep copy of the colony
// state and swaps it in on success, so a failed callback rolls back
// exactly like an aborted database transaction.
package memory

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"clowder-server/internal/cat"
	"clowder-server/internal/colony"
	"clowder-server/internal/event"
	"clowder-server/internal/job"
	"clowder-server/internal/player"
	"clowder-server/internal/shared/errors"
	"clowder-server/internal/store"
	"clowder-server/internal/taskboard"
	"clowder-server/internal/upgrade"
)

type Store struct {
	mu     sync.RWMutex
	logger *slog.Logger

	// Now is swappable so engine tests can drive time.
	Now func() time.Time

	colony   *colony.Colony
	jobs     []*job.Job
	cats     []*cat.Cat
	upgrades []*upgrade.Upgrade
	players  map[string]*player.Player
	tasks    []*taskboard.SurvivalTask
	events   []*event.Event
	runs     []*colony.RunRecord
}

var _ store.Store = (*Store)(nil)

func New(logger *slog.Logger) *Store {
	logger.Debug("Initializing in-memory store")
	return &Store{
		logger:  logger,
		Now:     time.Now,
		players: make(map[string]*player.Player),
	}
}

func (s *Store) FindColony(ctx context.Context) (*colony.Colony, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.colony == nil {
		return nil, nil
	}
	return cloneColony(s.colony), nil
}

func (s *Store) CreateColony(ctx context.Context, c *colony.Colony, upgrades []*upgrade.Upgrade, cats []*cat.Cat) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.colony != nil {
		return errors.Conflict("colony already exists")
	}

	now := s.Now()
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	c.CreatedAt = now
	c.UpdatedAt = now
	s.colony = cloneColony(c)

	for _, u := range upgrades {
		u.ID = uuid.NewString()
		u.ColonyID = c.ID
		u.CreatedAt = now
		u.UpdatedAt = now
		s.upgrades = append(s.upgrades, cloneUpgrade(u))
	}
	for _, mem := range cats {
		mem.ID = uuid.NewString()
		mem.ColonyID = c.ID
		mem.CreatedAt = now
		mem.UpdatedAt = now
		s.cats = append(s.cats, cloneCat(mem))
	}

	s.logger.Info("Colony created", "colony_id", c.ID, "cats", len(cats))
	return nil
}

func (s *Store) Update(ctx context.Context, colonyID string, fn func(tx store.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkColony(colonyID); err != nil {
		return err
	}

	tx := s.beginCopy()
	if err := fn(tx); err != nil {
		return err
	}

	s.colony = tx.colony
	s.jobs = tx.jobs
	s.cats = tx.cats
	s.upgrades = tx.upgrades
	s.players = tx.players
	s.tasks = tx.tasks
	s.events = tx.events
	s.runs = tx.runs
	return nil
}

func (s *Store) View(ctx context.Context, colonyID string, fn func(tx store.Tx) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.checkColony(colonyID); err != nil {
		return err
	}
	return fn(s.beginCopy())
}

func (s *Store) Close() error {
	return nil
}

func (s *Store) checkColony(colonyID string) error {
	if s.colony == nil || s.colony.ID != colonyID {
		return errors.NotFoundf("colony %s not found", colonyID)
	}
	return nil
}

// beginCopy snapshots the whole aggregate. Callbacks mutate the copy;
// only a clean return publishes it.
func (s *Store) beginCopy() *memTx {
	tx := &memTx{now: s.Now, colony: cloneColony(s.colony)}

	tx.jobs = make([]*job.Job, 0, len(s.jobs))
	for _, j := range s.jobs {
		tx.jobs = append(tx.jobs, cloneJob(j))
	}
	tx.cats = make([]*cat.Cat, 0, len(s.cats))
	for _, c := range s.cats {
		tx.cats = append(tx.cats, cloneCat(c))
	}
	tx.upgrades = make([]*upgrade.Upgrade, 0, len(s.upgrades))
	for _, u := range s.upgrades {
		tx.upgrades = append(tx.upgrades, cloneUpgrade(u))
	}
	tx.players = make(map[string]*player.Player, len(s.players))
	for id, p := range s.players {
		tx.players[id] = clonePlayer(p)
	}
	tx.tasks = make([]*taskboard.SurvivalTask, 0, len(s.tasks))
	for _, t := range s.tasks {
		tx.tasks = append(tx.tasks, cloneTask(t))
	}
	tx.events = make([]*event.Event, 0, len(s.events))
	for _, e := range s.events {
		tx.events = append(tx.events, cloneEvent(e))
	}
	tx.runs = make([]*colony.RunRecord, 0, len(s.runs))
	for _, r := range s.runs {
		rc := *r
		tx.runs = append(tx.runs, &rc)
	}
	return tx
}
