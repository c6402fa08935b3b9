package engine

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"clowder-server/internal/cat"
	"clowder-server/internal/colony"
	"clowder-server/internal/event"
	"clowder-server/internal/job"
	"clowder-server/internal/rng"
	"clowder-server/internal/store"
	"clowder-server/internal/taskboard"
	"clowder-server/internal/upgrade"
)

// TickResult is what one tick invocation reports back to the scheduler.
// Reset means the watchdog restarted the run inside this tick.
type TickResult struct {
	OK                  bool             `json:"ok"`
	Reset               bool             `json:"reset"`
	Resources           colony.Resources `json:"resources"`
	AutomationTier      float64          `json:"automation_tier"`
	GlobalUpgradePoints int              `json:"global_upgrade_points"`
}

// Tick advances the simulation by the wall-clock span since the last
// tick: consumption, cat needs, leader election, ritual readiness,
// auto-queued plans, job promotion and resolution, the task board, and
// the watchdog. Everything commits as one transaction; a failed tick
// leaves the previous state untouched and the scheduler simply tries
// again on its next cadence.
func (e *Engine) Tick(ctx context.Context) (*TickResult, error) {
	logger := e.logger.With("component", "engine", "operation", "tick")

	var result TickResult
	err := e.store.Update(ctx, e.colonyID, func(tx store.Tx) error {
		now := e.Now()

		c, err := tx.Colony()
		if err != nil {
			return err
		}
		cats, err := tx.Cats()
		if err != nil {
			return err
		}
		ups, err := tx.Upgrades()
		if err != nil {
			return err
		}
		levels := levelsByKey(ups)

		scale := c.TimeScale
		if scale < 1 {
			scale = 1
		}
		simSeconds := now.Sub(c.LastTick).Seconds() * scale
		if simSeconds < 0 {
			simSeconds = 0
		}

		colony.ApplyTickConsumption(c, e.bal, countAlive(cats), simSeconds, levels[upgrade.KeyResilience])

		if err := e.applyCatNeeds(tx, c, cats, simSeconds); err != nil {
			return err
		}

		leader, err := e.recomputeLeader(tx, c, cats)
		if err != nil {
			return err
		}

		jobs, err := tx.Jobs()
		if err != nil {
			return err
		}
		jobs, err = e.enqueueReadyRitual(tx, c, jobs, now)
		if err != nil {
			return err
		}
		jobs, err = e.autoQueuePlans(tx, c, jobs)
		if err != nil {
			return err
		}
		if err := e.promoteQueued(tx, c, jobs, cats, levels, now); err != nil {
			return err
		}
		if err := e.resolveDueJobs(tx, c, jobs, cats, now); err != nil {
			return err
		}

		if err := e.runTaskBoard(tx, c, cats, leader, scale, now); err != nil {
			return err
		}

		reset, err := e.watchdog(tx, c, cats, levels, now)
		if err != nil {
			return err
		}
		if reset {
			cats, err = tx.Cats()
			if err != nil {
				return err
			}
		}

		c.Status = colony.StatusFor(e.bal, c.Resources, countAlive(cats))
		c.LastTick = now
		if err := tx.SaveColony(c); err != nil {
			return err
		}

		result = TickResult{
			OK:                  true,
			Reset:               reset,
			Resources:           c.Resources,
			AutomationTier:      c.AutomationTier,
			GlobalUpgradePoints: c.GlobalUpgradePoints,
		}
		return nil
	})
	if err != nil {
		logger.Error("Tick failed", "error", err)
		return nil, err
	}

	logger.Debug("Tick committed",
		"reset", result.Reset,
		"food", result.Resources.Food,
		"water", result.Resources.Water)
	e.broadcast(result)
	return &result, nil
}

// applyCatNeeds advances hunger and thirst for the roster and buries
// anyone a dry supply finished off.
func (e *Engine) applyCatNeeds(tx store.Tx, c *colony.Colony, cats []*cat.Cat, simSeconds float64) error {
	decay := c.ResourceDecayMultiplier
	if decay < 1 {
		decay = 1
	}
	hours := simSeconds / 3600 * decay

	for _, m := range cats {
		if !m.Alive {
			continue
		}
		died := m.ApplyNeeds(c.Resources.Food > 0, c.Resources.Water > 0, hours,
			e.bal.HungerDecayPerHour, e.bal.ThirstDecayPerHour)
		if died {
			m.Alive = false
			ev := event.New(c.ID, event.TypeCatDied, fmt.Sprintf("%s died of neglect", m.Name)).
				WithCats(m.ID)
			if err := tx.InsertEvent(ev); err != nil {
				return err
			}
		}
		if err := tx.SaveCat(m); err != nil {
			return err
		}
	}
	return nil
}

// recomputeLeader re-elects the leader and records a change.
func (e *Engine) recomputeLeader(tx store.Tx, c *colony.Colony, cats []*cat.Cat) (*cat.Cat, error) {
	leader := cat.ElectLeader(cats)

	var newID *string
	if leader != nil {
		newID = &leader.ID
	}
	changed := (c.LeaderID == nil) != (newID == nil) ||
		(c.LeaderID != nil && newID != nil && *c.LeaderID != *newID)
	if !changed {
		return leader, nil
	}

	c.LeaderID = newID
	ev := event.New(c.ID, event.TypeLeaderChanged, "The colony is leaderless")
	if leader != nil {
		ev = event.New(c.ID, event.TypeLeaderChanged,
			fmt.Sprintf("%s now leads the colony", leader.Name)).WithCats(leader.ID)
	}
	return leader, tx.InsertEvent(ev)
}

// enqueueReadyRitual turns a pending ritual request into a real job once
// the offering is affordable and the altar is free. The offering is
// debited here; the completion reward comes on top of it. Requests that
// outlive the freshness window are dropped.
func (e *Engine) enqueueReadyRitual(tx store.Tx, c *colony.Colony, jobs []*job.Job, now time.Time) ([]*job.Job, error) {
	if c.RitualRequestedAt == nil {
		return jobs, nil
	}
	if now.Sub(*c.RitualRequestedAt).Hours() >= e.bal.RitualFreshnessHours {
		c.RitualRequestedAt = nil
		return jobs, nil
	}
	if c.Resources.Food < e.bal.RitualFoodCost || c.Resources.Water < e.bal.RitualWaterCost {
		return jobs, nil
	}
	if conflictingJob(jobs, job.KindRitual) != nil {
		return jobs, nil
	}

	c.Resources.Food -= e.bal.RitualFoodCost
	c.Resources.Water -= e.bal.RitualWaterCost
	c.RitualRequestedAt = nil

	j := newJob(c.ID, job.KindRitual, job.RequestedBySystem, nil)
	if err := tx.InsertJob(j); err != nil {
		return nil, err
	}
	ev := event.New(c.ID, event.TypeRitualReady, "The offering is gathered; the ritual begins")
	if err := tx.InsertEvent(ev); err != nil {
		return nil, err
	}
	return append(jobs, j), nil
}

// autoQueuePlans files system plans when a staple runs short and the
// conflict class is free.
func (e *Engine) autoQueuePlans(tx store.Tx, c *colony.Colony, jobs []*job.Job) ([]*job.Job, error) {
	var err error
	if c.Resources.Food < e.bal.LowFood {
		jobs, err = e.queueSystemPlan(tx, c, jobs, job.KindLeaderPlanHunt,
			"Food is running low; the colony plans a hunt")
		if err != nil {
			return nil, err
		}
	}
	if c.Resources.Materials < e.bal.LowMaterials {
		jobs, err = e.queueSystemPlan(tx, c, jobs, job.KindLeaderPlanHouse,
			"Materials are running low; the colony plans a build")
		if err != nil {
			return nil, err
		}
	}
	return jobs, nil
}

func (e *Engine) queueSystemPlan(tx store.Tx, c *colony.Colony, jobs []*job.Job, kind job.Kind, msg string) ([]*job.Job, error) {
	if conflictingJob(jobs, kind) != nil {
		return jobs, nil
	}

	j := newJob(c.ID, kind, job.RequestedBySystem, nil)
	if err := tx.InsertJob(j); err != nil {
		return nil, err
	}
	ev := event.New(c.ID, event.TypeJobQueued, msg).WithMeta("kind", string(kind))
	if err := tx.InsertEvent(ev); err != nil {
		return nil, err
	}
	return append(jobs, j), nil
}

// promoteQueued flips every queued job to active.
func (e *Engine) promoteQueued(tx store.Tx, c *colony.Colony, jobs []*job.Job, cats []*cat.Cat, levels map[string]int, now time.Time) error {
	for _, j := range jobs {
		if j.Status != job.StatusQueued {
			continue
		}
		activateJob(j, cats, levels, c.TimeScale, now)
		if err := tx.SaveJob(j); err != nil {
			return err
		}
	}
	return nil
}

// resolveDueJobs completes every active job whose clock ran out: pays
// the reward scaled by the crew cat, credits role XP, chains the
// follow-on job, and deletes the row so an id can never resolve twice.
func (e *Engine) resolveDueJobs(tx store.Tx, c *colony.Colony, jobs []*job.Job, cats []*cat.Cat, now time.Time) error {
	for _, j := range jobs {
		if !j.Due(now) {
			continue
		}

		spec := job.Table[j.Kind]

		var crew *cat.Cat
		if j.AssignedCatID != nil {
			if m := catByID(cats, *j.AssignedCatID); m != nil && m.Alive {
				crew = m
			}
		}

		skill := 0
		match := false
		if crew != nil {
			skill = crew.Stats.For(spec.Track)
			match = crew.Specialized(spec.Track)
		}

		out := job.ScaleRewards(job.RewardsFor(j), skill, match)
		job.ApplyRewards(&c.Resources, out)
		c.GlobalUpgradePoints += out.UpgradePoints

		perJob := float64(e.bal.AutomationPerJobPct) / 100
		c.AutomationTier = clampTier(c.AutomationTier + out.AutomationTier + perJob)

		if crew != nil {
			crew.GainXP(spec.Track, e.bal.JobRoleXP, e.bal.SpecializationXP)
			if err := tx.SaveCat(crew); err != nil {
				return err
			}
		}

		if err := e.chainFrom(tx, c, j); err != nil {
			return err
		}

		ev := event.New(c.ID, event.TypeJobCompleted, completionMessage(j, crew)).
			WithMeta("kind", string(j.Kind))
		if crew != nil {
			ev.WithCats(crew.ID)
		}
		if err := tx.InsertEvent(ev); err != nil {
			return err
		}
		if err := tx.DeleteJob(j.ID); err != nil {
			return err
		}
	}
	return nil
}

// chainFrom enqueues the pipeline follow-on for a finished job: plan
// jobs spawn their work job, and a finished gather phase re-queues the
// same structure for construction. The chained job is promoted on the
// next tick.
func (e *Engine) chainFrom(tx store.Tx, c *colony.Colony, finished *job.Job) error {
	spec := job.Table[finished.Kind]

	switch {
	case spec.ChainsTo == job.KindBuildHouse:
		var idx int
		idx, c.RNGSeed = rng.Intn(c.RNGSeed, len(job.Structures))
		structure := job.Structures[idx]

		next := newJob(c.ID, job.KindBuildHouse, job.RequestedByLeader, nil)
		next.Metadata = map[string]string{
			job.MetaPhase:     job.PhaseGatherMaterials,
			job.MetaStructure: structure,
		}
		return e.insertChained(tx, c, next,
			fmt.Sprintf("Cats head out to gather materials for the %s", structure))

	case spec.ChainsTo != "":
		next := newJob(c.ID, spec.ChainsTo, job.RequestedByLeader, nil)
		return e.insertChained(tx, c, next, "The hunting party sets out")

	case finished.Kind == job.KindBuildHouse && finished.Meta(job.MetaPhase) == job.PhaseGatherMaterials:
		next := newJob(c.ID, job.KindBuildHouse, job.RequestedByLeader, nil)
		next.Metadata = map[string]string{
			job.MetaPhase:     job.PhaseConstructHouse,
			job.MetaStructure: finished.Meta(job.MetaStructure),
		}
		return e.insertChained(tx, c, next,
			fmt.Sprintf("Construction begins on the %s", finished.Meta(job.MetaStructure)))
	}
	return nil
}

func (e *Engine) insertChained(tx store.Tx, c *colony.Colony, next *job.Job, msg string) error {
	if err := tx.InsertJob(next); err != nil {
		return err
	}
	ev := event.New(c.ID, event.TypeJobQueued, msg).WithMeta("kind", string(next.Kind))
	if s := next.Meta(job.MetaStructure); s != "" {
		ev.WithMeta("structure", s)
	}
	return tx.InsertEvent(ev)
}

func completionMessage(j *job.Job, crew *cat.Cat) string {
	subject := "The colony"
	if crew != nil {
		subject = crew.Name
	}
	switch j.Kind {
	case job.KindSupplyFood:
		return subject + " brought back food"
	case job.KindSupplyWater:
		return subject + " refilled the water stores"
	case job.KindLeaderPlanHunt:
		return subject + " finished planning the hunt"
	case job.KindHuntExpedition:
		return subject + " returned from the hunt"
	case job.KindLeaderPlanHouse:
		return subject + " drew up building plans"
	case job.KindBuildHouse:
		if j.Meta(job.MetaPhase) == job.PhaseConstructHouse {
			return fmt.Sprintf("%s finished the %s", subject, j.Meta(job.MetaStructure))
		}
		return subject + " gathered building materials"
	case job.KindRitual:
		return subject + " completed the ritual"
	}
	return subject + " finished a job"
}

// runTaskBoard advances the survival chore board: finished work pays
// out, the leader hands out tasks whose countdown ran dry, and the board
// refills up to its cap. Without a leader the board idles.
func (e *Engine) runTaskBoard(tx store.Tx, c *colony.Colony, cats []*cat.Cat, leader *cat.Cat, scale float64, now time.Time) error {
	tasks, err := tx.Tasks()
	if err != nil {
		return err
	}

	for _, t := range tasks {
		if !t.DueForCompletion(now) {
			continue
		}
		spec := taskboard.Table[t.Kind]
		if spec.Resource != "" {
			c.Resources.Add(spec.Resource, spec.Amount)
		}
		if t.AssignedCatID != nil {
			if worker := catByID(cats, *t.AssignedCatID); worker != nil && worker.Alive {
				worker.GainXP(spec.Track, e.bal.TaskRoleXP, e.bal.SpecializationXP)
				if err := tx.SaveCat(worker); err != nil {
					return err
				}
			}
		}
		if err := tx.DeleteTask(t.ID); err != nil {
			return err
		}
	}

	if leader == nil {
		return nil
	}
	tier := taskboard.TierFor(leader.Stats.Leadership)

	for _, t := range tasks {
		if !t.DueForAssignment(now) {
			continue
		}
		pick, substituted, seed := taskboard.AssignCat(cats, t.Kind, tier, c.RNGSeed)
		c.RNGSeed = seed
		if pick == nil {
			continue
		}

		t.Status = taskboard.StatusAssigned
		t.AssignedCatID = &pick.ID
		completes := now.Add(scaledSeconds(e.bal.BoardWorkSeconds, scale))
		t.CompletesAt = &completes
		if err := tx.SaveTask(t); err != nil {
			return err
		}

		ev := event.New(c.ID, event.TypeTaskAssigned,
			fmt.Sprintf("%s sent %s on a %s task", leader.Name, pick.Name, t.Kind)).
			WithCats(pick.ID, leader.ID).
			WithMeta("kind", string(t.Kind))
		if substituted {
			ev.WithMeta("substituted", "true")
		}
		if err := tx.InsertEvent(ev); err != nil {
			return err
		}
	}

	open := 0
	for _, t := range tasks {
		if t.Status == taskboard.StatusOpen {
			open++
		}
	}
	for open < e.bal.BoardMaxOpenTasks {
		var kind taskboard.Kind
		kind, c.RNGSeed = taskboard.ChooseKind(c.RNGSeed)
		t := &taskboard.SurvivalTask{
			ColonyID: c.ID,
			Kind:     kind,
			Status:   taskboard.StatusOpen,
			AssignAt: now.Add(scaledSeconds(tier.AssignDelaySec, scale)),
		}
		if err := tx.InsertTask(t); err != nil {
			return err
		}
		open++
	}
	return nil
}

// watchdog stamps, clears, or acts on the critical state. A roster with
// nobody left alive counts as critical too; the reset is the only road
// back to a living colony.
func (e *Engine) watchdog(tx store.Tx, c *colony.Colony, cats []*cat.Cat, levels map[string]int, now time.Time) (bool, error) {
	critical := colony.IsCritical(c, e.bal, levels[upgrade.KeyResilience], now) || countAlive(cats) == 0

	if !critical {
		c.CriticalSince = nil
		return false, nil
	}
	if c.CriticalSince == nil {
		stamp := now
		c.CriticalSince = &stamp
		e.logger.Warn("Colony entered critical state",
			"component", "engine",
			"colony_id", c.ID,
			"run_number", c.RunNumber)
		return false, nil
	}
	if now.Sub(*c.CriticalSince) < c.CriticalWindow() {
		return false, nil
	}

	if err := e.runReset(tx, c, cats, now); err != nil {
		return false, err
	}
	return true, nil
}

// runReset is the atomic recovery transition: archive the run, clear the
// board, heal or reseed the roster, restore starting resources keeping
// blessings, and advance the run counter. Upgrades, points and the event
// log all survive.
func (e *Engine) runReset(tx store.Tx, c *colony.Colony, cats []*cat.Cat, now time.Time) error {
	logger := e.logger.With("component", "engine", "operation", "run_reset",
		"colony_id", c.ID, "run_number", c.RunNumber)
	logger.Warn("Critical state held through the recovery window; resetting the run")

	active, err := tx.CountPlayersActiveSince(now.Add(-e.OnlineWindow))
	if err != nil {
		return err
	}
	rec := &colony.RunRecord{
		ColonyID:       c.ID,
		RunNumber:      c.RunNumber,
		StartedAt:      c.RunStartedAt,
		EndedAt:        now,
		DurationSec:    int64(now.Sub(c.RunStartedAt).Seconds()),
		Reason:         "critical state outlasted the recovery window",
		FinalResources: c.Resources,
		ActivePlayers:  active,
	}
	if err := tx.InsertRunRecord(rec); err != nil {
		return err
	}

	if err := tx.DeleteAllJobs(); err != nil {
		return err
	}
	if err := tx.DeleteAllTasks(); err != nil {
		return err
	}

	if countAlive(cats) > 0 {
		for _, m := range cats {
			if !m.Alive {
				continue
			}
			m.Hunger = 100
			m.Thirst = 100
			c.RNGSeed = cat.Reposition(m, c.RNGSeed)
			if err := tx.SaveCat(m); err != nil {
				return err
			}
		}
	} else {
		roster, seed := cat.NewStarter(c.ID, e.bal.StarterRosterSize, c.RNGSeed)
		c.RNGSeed = seed
		if err := tx.InsertCats(roster); err != nil {
			return err
		}
		c.LeaderID = nil
	}

	c.Resources = colony.StartingResources(e.bal, c.Resources.Blessings)
	c.RunNumber++
	c.RunStartedAt = now
	c.LastTick = now
	c.CriticalSince = nil
	c.RitualRequestedAt = nil

	ev := event.New(c.ID, event.TypeRunReset,
		fmt.Sprintf("Run %d collapsed; run %d begins", rec.RunNumber, c.RunNumber)).
		WithMeta("run_number", strconv.Itoa(c.RunNumber))
	if err := tx.InsertEvent(ev); err != nil {
		return err
	}

	logger.Info("Run reset complete", "new_run_number", c.RunNumber)
	return nil
}
