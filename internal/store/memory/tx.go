package memory

import (
	"time"

	"github.com/google/uuid"

	"clowder-server/internal/cat"
	"clowder-server/internal/colony"
	"clowder-server/internal/event"
	"clowder-server/internal/job"
	"clowder-server/internal/player"
	"clowder-server/internal/store"
	"clowder-server/internal/taskboard"
	"clowder-server/internal/upgrade"
)

type memTx struct {
	now func() time.Time

	colony   *colony.Colony
	jobs     []*job.Job
	cats     []*cat.Cat
	upgrades []*upgrade.Upgrade
	players  map[string]*player.Player
	tasks    []*taskboard.SurvivalTask
	events   []*event.Event
	runs     []*colony.RunRecord
}

var _ store.Tx = (*memTx)(nil)

func (tx *memTx) Colony() (*colony.Colony, error) {
	return tx.colony, nil
}

func (tx *memTx) SaveColony(c *colony.Colony) error {
	c.UpdatedAt = tx.now()
	tx.colony = c
	return nil
}

func (tx *memTx) Jobs() ([]*job.Job, error) {
	return tx.jobs, nil
}

func (tx *memTx) JobByID(id string) (*job.Job, error) {
	for _, j := range tx.jobs {
		if j.ID == id {
			return j, nil
		}
	}
	return nil, nil
}

func (tx *memTx) InsertJob(j *job.Job) error {
	if j.ID == "" {
		j.ID = uuid.NewString()
	}
	j.CreatedAt = tx.now()
	j.UpdatedAt = j.CreatedAt
	tx.jobs = append(tx.jobs, j)
	return nil
}

func (tx *memTx) SaveJob(j *job.Job) error {
	j.UpdatedAt = tx.now()
	for i, existing := range tx.jobs {
		if existing.ID == j.ID {
			tx.jobs[i] = j
			return nil
		}
	}
	tx.jobs = append(tx.jobs, j)
	return nil
}

func (tx *memTx) DeleteJob(id string) error {
	for i, j := range tx.jobs {
		if j.ID == id {
			tx.jobs = append(tx.jobs[:i], tx.jobs[i+1:]...)
			return nil
		}
	}
	return nil
}

func (tx *memTx) DeleteAllJobs() error {
	tx.jobs = nil
	return nil
}

func (tx *memTx) Cats() ([]*cat.Cat, error) {
	return tx.cats, nil
}

func (tx *memTx) InsertCats(cats []*cat.Cat) error {
	now := tx.now()
	for _, c := range cats {
		if c.ID == "" {
			c.ID = uuid.NewString()
		}
		c.ColonyID = tx.colony.ID
		c.CreatedAt = now
		c.UpdatedAt = now
		tx.cats = append(tx.cats, c)
	}
	return nil
}

func (tx *memTx) SaveCat(c *cat.Cat) error {
	c.UpdatedAt = tx.now()
	for i, existing := range tx.cats {
		if existing.ID == c.ID {
			tx.cats[i] = c
			return nil
		}
	}
	tx.cats = append(tx.cats, c)
	return nil
}

func (tx *memTx) Upgrades() ([]*upgrade.Upgrade, error) {
	return tx.upgrades, nil
}

func (tx *memTx) UpgradeByKey(key string) (*upgrade.Upgrade, error) {
	for _, u := range tx.upgrades {
		if u.Key == key {
			return u, nil
		}
	}
	return nil, nil
}

func (tx *memTx) SaveUpgrade(u *upgrade.Upgrade) error {
	u.UpdatedAt = tx.now()
	for i, existing := range tx.upgrades {
		if existing.Key == u.Key {
			tx.upgrades[i] = u
			return nil
		}
	}
	tx.upgrades = append(tx.upgrades, u)
	return nil
}

func (tx *memTx) PlayerBySession(sessionID string) (*player.Player, error) {
	if p, ok := tx.players[sessionID]; ok {
		return p, nil
	}
	return nil, nil
}

func (tx *memTx) UpsertPlayer(p *player.Player) error {
	now := tx.now()
	if existing, ok := tx.players[p.SessionID]; !ok {
		p.CreatedAt = now
	} else {
		p.CreatedAt = existing.CreatedAt
	}
	p.UpdatedAt = now
	tx.players[p.SessionID] = p
	return nil
}

func (tx *memTx) CountPlayersActiveSince(since time.Time) (int, error) {
	count := 0
	for _, p := range tx.players {
		if !p.LastSeenAt.Before(since) {
			count++
		}
	}
	return count, nil
}

func (tx *memTx) Tasks() ([]*taskboard.SurvivalTask, error) {
	return tx.tasks, nil
}

func (tx *memTx) InsertTask(t *taskboard.SurvivalTask) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	t.ColonyID = tx.colony.ID
	t.CreatedAt = tx.now()
	t.UpdatedAt = t.CreatedAt
	tx.tasks = append(tx.tasks, t)
	return nil
}

func (tx *memTx) SaveTask(t *taskboard.SurvivalTask) error {
	t.UpdatedAt = tx.now()
	for i, existing := range tx.tasks {
		if existing.ID == t.ID {
			tx.tasks[i] = t
			return nil
		}
	}
	tx.tasks = append(tx.tasks, t)
	return nil
}

func (tx *memTx) DeleteTask(id string) error {
	for i, t := range tx.tasks {
		if t.ID == id {
			tx.tasks = append(tx.tasks[:i], tx.tasks[i+1:]...)
			return nil
		}
	}
	return nil
}

func (tx *memTx) DeleteAllTasks() error {
	tx.tasks = nil
	return nil
}

func (tx *memTx) InsertEvent(e *event.Event) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	e.ColonyID = tx.colony.ID
	e.CreatedAt = tx.now()
	tx.events = append(tx.events, e)
	return nil
}

// RecentEvents returns newest first.
func (tx *memTx) RecentEvents(limit int) ([]*event.Event, error) {
	if limit <= 0 || limit > len(tx.events) {
		limit = len(tx.events)
	}
	out := make([]*event.Event, 0, limit)
	for i := len(tx.events) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, tx.events[i])
	}
	return out, nil
}

func (tx *memTx) InsertRunRecord(rec *colony.RunRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	rec.ColonyID = tx.colony.ID
	tx.runs = append(tx.runs, rec)
	return nil
}

// RunHistory returns newest first.
func (tx *memTx) RunHistory(limit int) ([]*colony.RunRecord, error) {
	if limit <= 0 || limit > len(tx.runs) {
		limit = len(tx.runs)
	}
	out := make([]*colony.RunRecord, 0, limit)
	for i := len(tx.runs) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, tx.runs[i])
	}
	return out, nil
}
