// Package engine owns the colony simulation. Every gameplay operation
// and the tick run as a single store transaction against the one colony
// aggregate, so callers and the scheduler never observe partial state.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"clowder-server/internal/balance"
	"clowder-server/internal/cat"
	"clowder-server/internal/colony"
	"clowder-server/internal/job"
	"clowder-server/internal/player"
	"clowder-server/internal/store"
	"clowder-server/internal/upgrade"
)

// Presence tracks which visitors are currently watching the colony.
// Implementations are optional; without one the engine falls back to
// recent player activity in the store.
type Presence interface {
	Touch(ctx context.Context, sessionID string) error
	Online(ctx context.Context) (int, error)
}

// Engine executes gameplay operations against the colony aggregate.
// Bootstrap must run once before anything else touches it.
type Engine struct {
	store  store.Store
	bal    balance.Balance
	logger *slog.Logger

	// Now is the simulation clock, swappable in tests.
	Now func() time.Time

	// OnlineWindow bounds how recent a player's activity may be to still
	// count as online when no Presence tracker is wired.
	OnlineWindow time.Duration

	// Presence, when set, overrides store-based online counting and lets
	// read-only dashboard requests mark attendance.
	Presence Presence

	colonyID string

	mu      sync.Mutex
	subs    map[int]chan TickResult
	nextSub int
}

func New(st store.Store, bal balance.Balance, logger *slog.Logger) *Engine {
	return &Engine{
		store:        st,
		bal:          bal,
		logger:       logger,
		Now:          time.Now,
		OnlineWindow: 2 * time.Minute,
		subs:         make(map[int]chan TickResult),
	}
}

// ColonyID is the aggregate handle every operation runs against. Empty
// until Bootstrap has run.
func (e *Engine) ColonyID() string {
	return e.colonyID
}

// Bootstrap loads the colony, creating it on first run with starting
// resources, the full upgrade catalog at level zero and a starter roster
// rolled from the seed. The first tick elects the leader.
func (e *Engine) Bootstrap(ctx context.Context, seed int64) (*colony.Colony, error) {
	logger := e.logger.With("component", "engine", "operation", "bootstrap")

	existing, err := e.store.FindColony(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load colony: %w", err)
	}
	if existing != nil {
		e.colonyID = existing.ID
		logger.Info("Colony loaded", "colony_id", existing.ID, "run_number", existing.RunNumber)
		return existing, nil
	}

	now := e.Now()
	c := &colony.Colony{
		ID:                      uuid.NewString(),
		Status:                  colony.StatusStarting,
		Resources:               colony.StartingResources(e.bal, 0),
		RunNumber:               1,
		RunStartedAt:            now,
		LastTick:                now,
		LastPlayerActivityAt:    now,
		TimeScale:               1,
		ResourceDecayMultiplier: 1,
		CriticalWindowMs:        colony.DefaultCriticalWindowMs,
	}

	roster, nextSeed := cat.NewStarter(c.ID, e.bal.StarterRosterSize, seed)
	c.RNGSeed = nextSeed

	if err := e.store.CreateColony(ctx, c, upgrade.NewSet(c.ID), roster); err != nil {
		return nil, fmt.Errorf("failed to create colony: %w", err)
	}
	e.colonyID = c.ID

	logger.Info("Colony created", "colony_id", c.ID, "cats", len(roster))
	return c, nil
}

// Subscribe registers a tick listener for stream consumers. The channel
// is buffered; a slow listener misses results instead of blocking the
// tick path. The returned func unregisters and closes the channel.
func (e *Engine) Subscribe() (<-chan TickResult, func()) {
	e.mu.Lock()
	defer e.mu.Unlock()

	id := e.nextSub
	e.nextSub++
	ch := make(chan TickResult, 4)
	e.subs[id] = ch

	return ch, func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		if sub, ok := e.subs[id]; ok {
			delete(e.subs, id)
			close(sub)
		}
	}
}

func (e *Engine) broadcast(res TickResult) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, ch := range e.subs {
		select {
		case ch <- res:
		default:
		}
	}
}

// levelsByKey flattens the upgrade rows into a level lookup.
func levelsByKey(ups []*upgrade.Upgrade) map[string]int {
	levels := make(map[string]int, len(ups))
	for _, u := range ups {
		levels[u.Key] = u.Level
	}
	return levels
}

// newJob builds an unpersisted queued job. The store assigns ID and
// timestamps on insert.
func newJob(colonyID string, kind job.Kind, by job.RequestedBy, session *string) *job.Job {
	return &job.Job{
		ColonyID:           colonyID,
		Kind:               kind,
		Status:             job.StatusQueued,
		RequestedBy:        by,
		RequestedBySession: session,
		BaseDurationSec:    job.Table[kind].BaseDurationSec,
	}
}

// conflictingJob returns the live job occupying the kind's conflict
// class, if any.
func conflictingJob(jobs []*job.Job, kind job.Kind) *job.Job {
	class := job.Table[kind].Conflict
	if class == job.ConflictNone {
		return nil
	}
	for _, j := range jobs {
		if j.Live() && job.Table[j.Kind].Conflict == class {
			return j
		}
	}
	return nil
}

// activateJob flips a queued job to active: assigns the best-suited cat,
// computes the effective duration from the upgrade level and the crew's
// specialization, and stamps the clock fields.
func activateJob(j *job.Job, cats []*cat.Cat, levels map[string]int, timeScale float64, now time.Time) {
	spec := job.Table[j.Kind]

	match := false
	if crew := cat.BestFor(cats, spec.Track); crew != nil {
		j.AssignedCatID = &crew.ID
		match = crew.Specialized(spec.Track)
	}

	seconds := job.DurationSeconds(j.Kind, levels[spec.SpeedUpgradeKey], match, timeScale)
	j.Status = job.StatusActive
	if j.StartedAt == nil {
		j.StartedAt = &now
	}
	ends := now.Add(time.Duration(seconds) * time.Second)
	j.EndsAt = &ends
}

// touchPlayer loads or creates the player row for a session and stamps
// activity on both the player and the colony. The caller persists both.
func touchPlayer(tx store.Tx, c *colony.Colony, sessionID, nickname string, now time.Time) (*player.Player, error) {
	p, err := tx.PlayerBySession(sessionID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		p = &player.Player{SessionID: sessionID}
	}
	if nickname != "" {
		p.Nickname = nickname
	}
	p.Touch(now)
	c.LastPlayerActivityAt = now
	return p, nil
}

func displayName(p *player.Player) string {
	if p.Nickname != "" {
		return p.Nickname
	}
	return "A visitor"
}

func catByID(cats []*cat.Cat, id string) *cat.Cat {
	for _, m := range cats {
		if m.ID == id {
			return m
		}
	}
	return nil
}

func countAlive(cats []*cat.Cat) int {
	n := 0
	for _, m := range cats {
		if m.Alive {
			n++
		}
	}
	return n
}

func clampTier(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 10 {
		return 10
	}
	return v
}

// scaledSeconds compresses a real-time span by the colony time scale.
func scaledSeconds(seconds int, scale float64) time.Duration {
	if scale < 1 {
		scale = 1
	}
	return time.Duration(float64(seconds) / scale * float64(time.Second))
}
