package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clowder-server/internal/cat"
	"clowder-server/internal/colony"
	"clowder-server/internal/event"
	"clowder-server/internal/job"
	"clowder-server/internal/store"
	"clowder-server/internal/store/memory"
	"clowder-server/internal/taskboard"
	"clowder-server/internal/upgrade"
)

func loadCats(t *testing.T, e *Engine, st *memory.Store) []*cat.Cat {
	t.Helper()
	var out []*cat.Cat
	view(t, e, st, func(tx store.Tx) {
		cats, err := tx.Cats()
		require.NoError(t, err)
		out = cats
	})
	return out
}

func countEvents(t *testing.T, e *Engine, st *memory.Store, eventType string) int {
	t.Helper()
	n := 0
	view(t, e, st, func(tx store.Tx) {
		evs, err := tx.RecentEvents(200)
		require.NoError(t, err)
		for _, ev := range evs {
			if ev.Type == eventType {
				n++
			}
		}
	})
	return n
}

func xpTotal(tr cat.Tracks) int {
	return tr.Leadership + tr.Hunting + tr.Foraging + tr.Building + tr.Mysticism
}

// pinStats gives the roster known stats so crew picks and the leader tier
// are deterministic: cats[0] is the clear hunter, cats[1] the clear leader.
func pinStats(t *testing.T, e *Engine, st *memory.Store) []*cat.Cat {
	t.Helper()
	var pinned []*cat.Cat
	updateState(t, e, st, func(tx store.Tx) error {
		cats, err := tx.Cats()
		if err != nil {
			return err
		}
		for i, m := range cats {
			m.Stats = cat.Tracks{Leadership: 1, Hunting: 1, Foraging: 1, Building: 1, Mysticism: 1}
			m.RoleXP = cat.Tracks{}
			m.Specialization = nil
			switch i {
			case 0:
				m.Stats.Hunting = 9
			case 1:
				m.Stats.Leadership = 8
			}
			if err := tx.SaveCat(m); err != nil {
				return err
			}
		}
		pinned = cats
		return nil
	})
	return pinned
}

func TestFirstTickElectsLeaderAndSeedsBoard(t *testing.T) {
	e, st, _ := newTestEngine(t)

	res, err := e.Tick(context.Background())
	require.NoError(t, err)
	assert.True(t, res.OK)
	assert.False(t, res.Reset)

	c := loadColony(t, e, st)
	require.NotNil(t, c.LeaderID)
	assert.Equal(t, 1, countEvents(t, e, st, event.TypeLeaderChanged))

	// Materials start below the threshold, so the colony files its own
	// build plan on the very first tick.
	jobs := loadJobs(t, e, st)
	plan := jobOfKind(jobs, job.KindLeaderPlanHouse)
	require.NotNil(t, plan)
	assert.Equal(t, job.StatusActive, plan.Status)
	assert.Equal(t, job.RequestedBySystem, plan.RequestedBy)
	assert.Nil(t, jobOfKind(jobs, job.KindLeaderPlanHunt), "food is not low yet")

	view(t, e, st, func(tx store.Tx) {
		tasks, err := tx.Tasks()
		require.NoError(t, err)
		require.Len(t, tasks, 2)
		for _, task := range tasks {
			assert.Equal(t, taskboard.StatusOpen, task.Status)
		}
	})
}

func TestTickWithoutElapsedTimeIsIdempotent(t *testing.T) {
	e, _, _ := newTestEngine(t)
	ctx := context.Background()

	r1, err := e.Tick(ctx)
	require.NoError(t, err)
	r2, err := e.Tick(ctx)
	require.NoError(t, err)

	assert.Equal(t, r1.Resources, r2.Resources)
	assert.Equal(t, r1.GlobalUpgradePoints, r2.GlobalUpgradePoints)
}

func TestTickConsumptionOverElapsedHour(t *testing.T) {
	e, st, clk := newTestEngine(t)

	clk.Advance(time.Hour)
	res, err := e.Tick(context.Background())
	require.NoError(t, err)

	// Three cats over one hour: 3*3600/3600 food, 3*3600/3000 water.
	assert.InDelta(t, 27.0, res.Resources.Food, 1e-9)
	assert.InDelta(t, 26.4, res.Resources.Water, 1e-9)

	// Needs refill while the supplies hold.
	for _, m := range loadCats(t, e, st) {
		assert.Equal(t, 100.0, m.Hunger)
		assert.Equal(t, 100.0, m.Thirst)
	}
}

func TestSupplyJobLifecycle(t *testing.T) {
	e, st, clk := newTestEngine(t)
	ctx := context.Background()
	start := clk.Now()

	req, err := e.RequestJob(ctx, "s1", "Ada", job.KindSupplyFood)
	require.NoError(t, err)

	_, err = e.Tick(ctx)
	require.NoError(t, err)

	var crewID string
	view(t, e, st, func(tx store.Tx) {
		j, err := tx.JobByID(req.JobID)
		require.NoError(t, err)
		require.NotNil(t, j)
		assert.Equal(t, job.StatusActive, j.Status)
		require.NotNil(t, j.StartedAt)
		assert.Equal(t, start, *j.StartedAt)
		require.NotNil(t, j.EndsAt)
		assert.Equal(t, start.Add(20*time.Second), *j.EndsAt)
		require.NotNil(t, j.AssignedCatID)
		crewID = *j.AssignedCatID
	})

	clk.Advance(20 * time.Second)
	res, err := e.Tick(ctx)
	require.NoError(t, err)

	// Reward is at least the base 10 food; consumption over 20s is tiny.
	assert.GreaterOrEqual(t, res.Resources.Food, 39.5)

	view(t, e, st, func(tx store.Tx) {
		j, err := tx.JobByID(req.JobID)
		require.NoError(t, err)
		assert.Nil(t, j, "resolved jobs are deleted")
	})

	for _, m := range loadCats(t, e, st) {
		if m.ID == crewID {
			assert.Equal(t, 2, m.RoleXP.Hunting)
			assert.Nil(t, m.Specialization)
		}
	}
	assert.GreaterOrEqual(t, countEvents(t, e, st, event.TypeJobCompleted), 1)
}

func TestHuntPipelineChains(t *testing.T) {
	e, st, clk := newTestEngine(t)
	ctx := context.Background()

	_, err := e.RequestJob(ctx, "s1", "Ada", job.KindLeaderPlanHunt)
	require.NoError(t, err)
	_, err = e.Tick(ctx)
	require.NoError(t, err)

	// The plan occupies the hunt class while active.
	_, err = e.RequestJob(ctx, "s1", "Ada", job.KindLeaderPlanHunt)
	require.Error(t, err)

	clk.Advance(45 * time.Second)
	_, err = e.Tick(ctx)
	require.NoError(t, err)

	jobs := loadJobs(t, e, st)
	expedition := jobOfKind(jobs, job.KindHuntExpedition)
	require.NotNil(t, expedition, "a finished plan chains the expedition")
	assert.Equal(t, job.StatusQueued, expedition.Status)
	assert.Equal(t, job.RequestedByLeader, expedition.RequestedBy)
	assert.Nil(t, jobOfKind(jobs, job.KindLeaderPlanHunt))

	// Still one hunt-class job, so a new plan is refused.
	_, err = e.RequestJob(ctx, "s1", "Ada", job.KindLeaderPlanHunt)
	require.Error(t, err)

	_, err = e.Tick(ctx)
	require.NoError(t, err)
	before := loadColony(t, e, st).Resources.Food

	clk.Advance(120 * time.Second)
	res, err := e.Tick(ctx)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, res.Resources.Food, before+24, "the expedition hauls at least the base 25 food")
	assert.GreaterOrEqual(t, res.Resources.Herbs, 7.0)
}

func TestBuildPipelineCarriesStructure(t *testing.T) {
	e, st, clk := newTestEngine(t)
	ctx := context.Background()

	_, err := e.RequestJob(ctx, "s1", "Ada", job.KindLeaderPlanHouse)
	require.NoError(t, err)
	_, err = e.Tick(ctx)
	require.NoError(t, err)

	clk.Advance(60 * time.Second)
	_, err = e.Tick(ctx)
	require.NoError(t, err)

	gather := jobOfKind(loadJobs(t, e, st), job.KindBuildHouse)
	require.NotNil(t, gather)
	assert.Equal(t, job.PhaseGatherMaterials, gather.Meta(job.MetaPhase))
	structure := gather.Meta(job.MetaStructure)
	assert.Contains(t, job.Structures, structure)

	_, err = e.Tick(ctx)
	require.NoError(t, err)
	clk.Advance(150 * time.Second)
	res, err := e.Tick(ctx)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, res.Resources.Materials, 22.0, "the gather phase hauls at least the base 12 materials")

	construct := jobOfKind(loadJobs(t, e, st), job.KindBuildHouse)
	require.NotNil(t, construct)
	assert.Equal(t, job.PhaseConstructHouse, construct.Meta(job.MetaPhase))
	assert.Equal(t, structure, construct.Meta(job.MetaStructure), "both phases raise the same structure")

	_, err = e.Tick(ctx)
	require.NoError(t, err)
	clk.Advance(150 * time.Second)
	res, err = e.Tick(ctx)
	require.NoError(t, err)

	assert.GreaterOrEqual(t, res.Resources.Blessings, 2.0)
	assert.GreaterOrEqual(t, res.AutomationTier, 0.5, "finishing a build raises the automation tier")
	assert.Nil(t, jobOfKind(loadJobs(t, e, st), job.KindBuildHouse))
}

func TestRitualFlow(t *testing.T) {
	e, st, clk := newTestEngine(t)
	ctx := context.Background()
	start := clk.Now()

	req, err := e.RequestJob(ctx, "s1", "Ada", job.KindRitual)
	require.NoError(t, err)
	assert.True(t, req.Requested)
	assert.Empty(t, req.JobID, "the request only stamps intent")

	c := loadColony(t, e, st)
	require.NotNil(t, c.RitualRequestedAt)
	assert.Equal(t, start, *c.RitualRequestedAt)

	_, err = e.RequestJob(ctx, "s2", "Bee", job.KindRitual)
	require.Error(t, err, "a pending request blocks a second one")

	res, err := e.Tick(ctx)
	require.NoError(t, err)

	// The offering is debited the moment the job is enqueued.
	assert.Equal(t, 14.0, res.Resources.Food)
	assert.Equal(t, 14.0, res.Resources.Water)

	c = loadColony(t, e, st)
	assert.Nil(t, c.RitualRequestedAt)

	ritual := jobOfKind(loadJobs(t, e, st), job.KindRitual)
	require.NotNil(t, ritual)
	assert.Equal(t, job.StatusActive, ritual.Status, "the enqueued ritual is promoted in the same tick")
	require.NotNil(t, ritual.EndsAt)
	assert.Equal(t, start.Add(90*time.Second), *ritual.EndsAt)
	assert.Equal(t, 1, countEvents(t, e, st, event.TypeRitualReady))

	_, err = e.RequestJob(ctx, "s1", "Ada", job.KindRitual)
	require.Error(t, err, "the live ritual occupies its class")

	clk.Advance(90 * time.Second)
	res, err = e.Tick(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, res.GlobalUpgradePoints, "a ritual pays flat upgrade points")
	assert.GreaterOrEqual(t, res.Resources.Blessings, 5.0)
}

func TestRitualWaitsForOffering(t *testing.T) {
	e, st, _ := newTestEngine(t)
	ctx := context.Background()

	mutateColony(t, e, st, func(c *colony.Colony) {
		c.Resources.Food = 10
	})

	req, err := e.RequestJob(ctx, "s1", "Ada", job.KindRitual)
	require.NoError(t, err)
	assert.True(t, req.Requested)

	_, err = e.Tick(ctx)
	require.NoError(t, err)

	c := loadColony(t, e, st)
	require.NotNil(t, c.RitualRequestedAt, "an unaffordable offering keeps the request pending")
	assert.Equal(t, 10.0, c.Resources.Food)
	assert.Nil(t, jobOfKind(loadJobs(t, e, st), job.KindRitual))

	mutateColony(t, e, st, func(c *colony.Colony) {
		c.Resources.Food = 40
	})
	res, err := e.Tick(ctx)
	require.NoError(t, err)
	assert.Equal(t, 24.0, res.Resources.Food)
	assert.Equal(t, 14.0, res.Resources.Water)
	assert.NotNil(t, jobOfKind(loadJobs(t, e, st), job.KindRitual))
	assert.Nil(t, loadColony(t, e, st).RitualRequestedAt)
}

func TestRitualRequestGoesStale(t *testing.T) {
	e, st, clk := newTestEngine(t)
	ctx := context.Background()

	_, err := e.RequestJob(ctx, "s1", "Ada", job.KindRitual)
	require.NoError(t, err)

	clk.Advance(13 * time.Hour)
	_, err = e.Tick(ctx)
	require.NoError(t, err)

	c := loadColony(t, e, st)
	assert.Nil(t, c.RitualRequestedAt, "requests expire after the freshness window")
	assert.Nil(t, jobOfKind(loadJobs(t, e, st), job.KindRitual))
}

func TestAutoQueueRespectsThresholds(t *testing.T) {
	e, st, _ := newTestEngine(t)
	ctx := context.Background()

	mutateColony(t, e, st, func(c *colony.Colony) {
		c.Resources.Food = 10
		c.Resources.Materials = 20
	})

	_, err := e.Tick(ctx)
	require.NoError(t, err)

	jobs := loadJobs(t, e, st)
	plan := jobOfKind(jobs, job.KindLeaderPlanHunt)
	require.NotNil(t, plan)
	assert.Equal(t, job.RequestedBySystem, plan.RequestedBy)
	assert.Nil(t, jobOfKind(jobs, job.KindLeaderPlanHouse), "materials are stocked")

	// The occupied hunt class stops a duplicate on the next tick.
	_, err = e.Tick(ctx)
	require.NoError(t, err)
	count := 0
	for _, j := range loadJobs(t, e, st) {
		if j.Kind == job.KindLeaderPlanHunt || j.Kind == job.KindHuntExpedition {
			count++
		}
	}
	assert.Equal(t, 1, count)
}

func TestWatchdogStampsThenResets(t *testing.T) {
	e, st, clk := newTestEngine(t)
	ctx := context.Background()
	start := clk.Now()

	mutateColony(t, e, st, func(c *colony.Colony) {
		c.Resources.Food = 0
		c.Resources.Water = 12
		c.Resources.Blessings = 7
		c.LastPlayerActivityAt = start.Add(-3 * time.Hour)
	})
	updateState(t, e, st, func(tx store.Tx) error {
		cats, err := tx.Cats()
		if err != nil {
			return err
		}
		cats[0].Hunger = 40
		return tx.SaveCat(cats[0])
	})

	res, err := e.Tick(ctx)
	require.NoError(t, err)
	assert.False(t, res.Reset, "the first critical tick only stamps")

	c := loadColony(t, e, st)
	require.NotNil(t, c.CriticalSince)
	assert.Equal(t, start, *c.CriticalSince)
	assert.Equal(t, 1, c.RunNumber)

	clk.Advance(5 * time.Minute)
	res, err = e.Tick(ctx)
	require.NoError(t, err)
	assert.True(t, res.Reset, "critical state outlasting the window resets the run")
	assert.Equal(t, colony.Resources{
		Food: 30, Water: 30, Herbs: 5, Materials: 10, Blessings: 7,
	}, res.Resources, "blessings survive the reset")

	c = loadColony(t, e, st)
	assert.Equal(t, 2, c.RunNumber)
	assert.Equal(t, clk.Now(), c.RunStartedAt)
	assert.Nil(t, c.CriticalSince)
	assert.Equal(t, start.Add(-3*time.Hour), c.LastPlayerActivityAt,
		"player activity is real history and survives the reset")

	assert.Empty(t, loadJobs(t, e, st))
	view(t, e, st, func(tx store.Tx) {
		tasks, err := tx.Tasks()
		require.NoError(t, err)
		assert.Empty(t, tasks)

		runs, err := tx.RunHistory(10)
		require.NoError(t, err)
		require.Len(t, runs, 1)
		assert.Equal(t, 1, runs[0].RunNumber)
		assert.Equal(t, 0.0, runs[0].FinalResources.Food)
		assert.Equal(t, 0, runs[0].ActivePlayers)
	})

	for _, m := range loadCats(t, e, st) {
		assert.True(t, m.Alive)
		assert.Equal(t, 100.0, m.Hunger, "survivors are healed, not replaced")
	}
	assert.Equal(t, 1, countEvents(t, e, st, event.TypeRunReset))

	// The fresh run is healthy, so another tick does nothing drastic.
	res, err = e.Tick(ctx)
	require.NoError(t, err)
	assert.False(t, res.Reset)
	assert.Equal(t, 2, loadColony(t, e, st).RunNumber)
	assert.Equal(t, 1, countEvents(t, e, st, event.TypeRunReset))
}

func TestWatchdogIgnoresAttendedColony(t *testing.T) {
	e, st, _ := newTestEngine(t)
	ctx := context.Background()

	// Dry supplies but a player was just here.
	mutateColony(t, e, st, func(c *colony.Colony) {
		c.Resources.Food = 0
	})
	_, err := e.Tick(ctx)
	require.NoError(t, err)
	assert.Nil(t, loadColony(t, e, st).CriticalSince)

	// Unattended, but not longer than the colony can cope with.
	mutateColony(t, e, st, func(c *colony.Colony) {
		c.LastPlayerActivityAt = e.Now().Add(-time.Hour)
	})
	_, err = e.Tick(ctx)
	require.NoError(t, err)
	assert.Nil(t, loadColony(t, e, st).CriticalSince)

	// Long unattended, but the stores are full.
	mutateColony(t, e, st, func(c *colony.Colony) {
		c.Resources.Food = 30
		c.LastPlayerActivityAt = e.Now().Add(-3 * time.Hour)
	})
	_, err = e.Tick(ctx)
	require.NoError(t, err)
	assert.Nil(t, loadColony(t, e, st).CriticalSince)
}

func TestWatchdogClearsOnRecovery(t *testing.T) {
	e, st, clk := newTestEngine(t)
	ctx := context.Background()

	mutateColony(t, e, st, func(c *colony.Colony) {
		c.Resources.Food = 0
		c.LastPlayerActivityAt = clk.Now().Add(-3 * time.Hour)
	})
	_, err := e.Tick(ctx)
	require.NoError(t, err)
	require.NotNil(t, loadColony(t, e, st).CriticalSince)

	// Restocking clears the stamp even after the window would have run out.
	mutateColony(t, e, st, func(c *colony.Colony) {
		c.Resources.Food = 50
	})
	clk.Advance(10 * time.Minute)
	res, err := e.Tick(ctx)
	require.NoError(t, err)
	assert.False(t, res.Reset)
	assert.Nil(t, loadColony(t, e, st).CriticalSince)

	// Going critical again starts a fresh countdown.
	stamp := clk.Now()
	mutateColony(t, e, st, func(c *colony.Colony) {
		c.Resources.Food = 0
	})
	_, err = e.Tick(ctx)
	require.NoError(t, err)
	c := loadColony(t, e, st)
	require.NotNil(t, c.CriticalSince)
	assert.Equal(t, stamp, *c.CriticalSince)

	clk.Advance(time.Minute)
	res, err = e.Tick(ctx)
	require.NoError(t, err)
	assert.False(t, res.Reset, "one minute is inside the five minute window")
	assert.Equal(t, 1, loadColony(t, e, st).RunNumber)
}

func TestAllCatsDeadTriggersReset(t *testing.T) {
	e, st, clk := newTestEngine(t)
	ctx := context.Background()

	updateState(t, e, st, func(tx store.Tx) error {
		cats, err := tx.Cats()
		if err != nil {
			return err
		}
		for _, m := range cats {
			m.Alive = false
			if err := tx.SaveCat(m); err != nil {
				return err
			}
		}
		return nil
	})

	res, err := e.Tick(ctx)
	require.NoError(t, err)
	assert.False(t, res.Reset)

	c := loadColony(t, e, st)
	assert.Equal(t, colony.StatusDead, c.Status)
	require.NotNil(t, c.CriticalSince, "an empty roster counts as critical even with full stores")

	clk.Advance(6 * time.Minute)
	res, err = e.Tick(ctx)
	require.NoError(t, err)
	assert.True(t, res.Reset)

	c = loadColony(t, e, st)
	assert.Equal(t, 2, c.RunNumber)
	assert.NotEqual(t, colony.StatusDead, c.Status)

	alive := 0
	cats := loadCats(t, e, st)
	for _, m := range cats {
		if m.Alive {
			alive++
		}
	}
	assert.Equal(t, 3, alive, "the reset reseeds a starter roster")
	assert.Len(t, cats, 6, "the fallen stay on the books")

	// The next tick elects a leader from the new roster.
	_, err = e.Tick(ctx)
	require.NoError(t, err)
	assert.NotNil(t, loadColony(t, e, st).LeaderID)
}

func TestResilienceUpgradeExtendsWindow(t *testing.T) {
	e, st, _ := newTestEngine(t)
	ctx := context.Background()

	updateState(t, e, st, func(tx store.Tx) error {
		u, err := tx.UpgradeByKey(upgrade.KeyResilience)
		if err != nil {
			return err
		}
		u.Level = 3
		return tx.SaveUpgrade(u)
	})
	mutateColony(t, e, st, func(c *colony.Colony) {
		c.Resources.Food = 0
		c.LastPlayerActivityAt = e.Now().Add(-3 * time.Hour)
	})

	// Three levels buy 2+3*6 = 20 unattended hours; 3 are nothing.
	_, err := e.Tick(ctx)
	require.NoError(t, err)
	assert.Nil(t, loadColony(t, e, st).CriticalSince)

	mutateColony(t, e, st, func(c *colony.Colony) {
		c.LastPlayerActivityAt = e.Now().Add(-21 * time.Hour)
	})
	_, err = e.Tick(ctx)
	require.NoError(t, err)
	assert.NotNil(t, loadColony(t, e, st).CriticalSince)
}

func TestSpecializationAfterRepeatedJobs(t *testing.T) {
	e, st, clk := newTestEngine(t)
	ctx := context.Background()

	cats := pinStats(t, e, st)
	hunter := cats[0].ID

	for cycle := 0; cycle < 5; cycle++ {
		_, err := e.RequestJob(ctx, "s1", "Ada", job.KindSupplyFood)
		require.NoError(t, err)
		_, err = e.Tick(ctx)
		require.NoError(t, err)
		clk.Advance(20 * time.Second)
		_, err = e.Tick(ctx)
		require.NoError(t, err)
	}

	var promoted *cat.Cat
	for _, m := range loadCats(t, e, st) {
		if m.ID == hunter {
			promoted = m
		}
	}
	require.NotNil(t, promoted)
	assert.Equal(t, 10, promoted.RoleXP.Hunting)
	require.NotNil(t, promoted.Specialization)
	assert.Equal(t, job.TrackHunting, *promoted.Specialization)

	// A specialist works its own track nearly twice as fast.
	req, err := e.RequestJob(ctx, "s1", "Ada", job.KindSupplyFood)
	require.NoError(t, err)
	_, err = e.Tick(ctx)
	require.NoError(t, err)

	view(t, e, st, func(tx store.Tx) {
		j, err := tx.JobByID(req.JobID)
		require.NoError(t, err)
		require.NotNil(t, j)
		require.NotNil(t, j.AssignedCatID)
		assert.Equal(t, hunter, *j.AssignedCatID)
		require.NotNil(t, j.EndsAt)
		assert.Equal(t, clk.Now().Add(11*time.Second), *j.EndsAt)
	})
}

func TestTaskBoardLifecycle(t *testing.T) {
	e, st, clk := newTestEngine(t)
	ctx := context.Background()
	start := clk.Now()

	pinStats(t, e, st)

	_, err := e.Tick(ctx)
	require.NoError(t, err)

	firstPair := map[string]bool{}
	view(t, e, st, func(tx store.Tx) {
		tasks, err := tx.Tasks()
		require.NoError(t, err)
		require.Len(t, tasks, 2)
		for _, task := range tasks {
			// Leadership 8 grades "good": a 30 second hand-out delay.
			assert.Equal(t, start.Add(30*time.Second), task.AssignAt)
			firstPair[task.ID] = true
		}
	})

	clk.Advance(31 * time.Second)
	_, err = e.Tick(ctx)
	require.NoError(t, err)

	view(t, e, st, func(tx store.Tx) {
		tasks, err := tx.Tasks()
		require.NoError(t, err)
		require.Len(t, tasks, 4, "assigned pair plus a fresh open pair")
		for _, task := range tasks {
			if !firstPair[task.ID] {
				assert.Equal(t, taskboard.StatusOpen, task.Status)
				continue
			}
			assert.Equal(t, taskboard.StatusAssigned, task.Status)
			require.NotNil(t, task.AssignedCatID)
			require.NotNil(t, task.CompletesAt)
			assert.Equal(t, clk.Now().Add(120*time.Second), *task.CompletesAt)
		}
	})
	assert.Equal(t, 2, countEvents(t, e, st, event.TypeTaskAssigned))

	clk.Advance(120 * time.Second)
	_, err = e.Tick(ctx)
	require.NoError(t, err)

	view(t, e, st, func(tx store.Tx) {
		tasks, err := tx.Tasks()
		require.NoError(t, err)
		assigned, open := 0, 0
		for _, task := range tasks {
			assert.False(t, firstPair[task.ID], "finished tasks leave the board")
			switch task.Status {
			case taskboard.StatusAssigned:
				assigned++
			case taskboard.StatusOpen:
				open++
			}
		}
		assert.Equal(t, 2, assigned)
		assert.Equal(t, 2, open)
	})

	// Two task completions at one XP each, plus the colony's own build
	// and hunt plans resolving for two leadership XP apiece.
	total := 0
	for _, m := range loadCats(t, e, st) {
		total += xpTotal(m.RoleXP)
	}
	assert.Equal(t, 6, total)
}

func TestTurboChurnsRunsAndStaysNonNegative(t *testing.T) {
	e, st, clk := newTestEngine(t)
	ctx := context.Background()

	_, err := e.SetTestAcceleration(ctx, PresetTurbo)
	require.NoError(t, err)

	resets := 0
	for i := 0; i < 60; i++ {
		clk.Advance(10 * time.Second)
		res, err := e.Tick(ctx)
		require.NoError(t, err)
		require.True(t, res.OK)

		assert.GreaterOrEqual(t, res.Resources.Food, 0.0)
		assert.GreaterOrEqual(t, res.Resources.Water, 0.0)
		assert.GreaterOrEqual(t, res.Resources.Herbs, 0.0)
		assert.GreaterOrEqual(t, res.Resources.Materials, 0.0)
		assert.GreaterOrEqual(t, res.Resources.Blessings, 0.0)
		if res.Reset {
			resets++
		}
	}

	assert.GreaterOrEqual(t, resets, 5, "turbo burns through runs")

	c := loadColony(t, e, st)
	assert.Equal(t, resets+1, c.RunNumber)

	view(t, e, st, func(tx store.Tx) {
		runs, err := tx.RunHistory(3)
		require.NoError(t, err)
		require.NotEmpty(t, runs)
		assert.Equal(t, c.RunNumber-1, runs[0].RunNumber, "history is newest first")
	})
}
