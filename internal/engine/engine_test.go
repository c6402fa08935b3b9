package engine

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clowder-server/internal/balance"
	"clowder-server/internal/colony"
	"clowder-server/internal/job"
	"clowder-server/internal/shared/errors"
	"clowder-server/internal/store"
	"clowder-server/internal/store/memory"
	"clowder-server/internal/upgrade"
)

// clock is the fake simulation clock the tests drive by hand.
type clock struct {
	now time.Time
}

func (c *clock) Now() time.Time { return c.now }

func (c *clock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestEngine(t *testing.T) (*Engine, *memory.Store, *clock) {
	t.Helper()

	clk := &clock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	st := memory.New(slog.Default())
	st.Now = clk.Now

	e := New(st, balance.Default(), slog.Default())
	e.Now = clk.Now

	_, err := e.Bootstrap(context.Background(), 42)
	require.NoError(t, err)
	return e, st, clk
}

// updateState mutates colony state directly, for test setup only.
func updateState(t *testing.T, e *Engine, st *memory.Store, fn func(tx store.Tx) error) {
	t.Helper()
	require.NoError(t, st.Update(context.Background(), e.ColonyID(), fn))
}

func mutateColony(t *testing.T, e *Engine, st *memory.Store, fn func(c *colony.Colony)) {
	t.Helper()
	updateState(t, e, st, func(tx store.Tx) error {
		c, err := tx.Colony()
		if err != nil {
			return err
		}
		fn(c)
		return tx.SaveColony(c)
	})
}

// view reads committed state without mutating it.
func view(t *testing.T, e *Engine, st *memory.Store, fn func(tx store.Tx)) {
	t.Helper()
	err := st.View(context.Background(), e.ColonyID(), func(tx store.Tx) error {
		fn(tx)
		return nil
	})
	require.NoError(t, err)
}

func loadColony(t *testing.T, e *Engine, st *memory.Store) *colony.Colony {
	t.Helper()
	var out *colony.Colony
	view(t, e, st, func(tx store.Tx) {
		c, err := tx.Colony()
		require.NoError(t, err)
		out = c
	})
	return out
}

func loadJobs(t *testing.T, e *Engine, st *memory.Store) []*job.Job {
	t.Helper()
	var out []*job.Job
	view(t, e, st, func(tx store.Tx) {
		jobs, err := tx.Jobs()
		require.NoError(t, err)
		out = jobs
	})
	return out
}

func jobOfKind(jobs []*job.Job, kind job.Kind) *job.Job {
	for _, j := range jobs {
		if j.Kind == kind {
			return j
		}
	}
	return nil
}

func TestBootstrapCreatesColonyOnce(t *testing.T) {
	e, st, _ := newTestEngine(t)

	c := loadColony(t, e, st)
	assert.Equal(t, colony.StatusStarting, c.Status)
	assert.Equal(t, 1, c.RunNumber)
	assert.Equal(t, 30.0, c.Resources.Food)
	assert.Equal(t, 30.0, c.Resources.Water)
	assert.Nil(t, c.LeaderID, "the leader is elected by the first tick")

	view(t, e, st, func(tx store.Tx) {
		cats, err := tx.Cats()
		require.NoError(t, err)
		assert.Len(t, cats, 3)
		for _, m := range cats {
			assert.True(t, m.Alive)
		}

		ups, err := tx.Upgrades()
		require.NoError(t, err)
		assert.Len(t, ups, len(upgrade.Catalog))
	})

	// A second engine over the same store loads instead of creating.
	other := New(st, balance.Default(), slog.Default())
	loaded, err := other.Bootstrap(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, e.ColonyID(), loaded.ID)
}

func TestRequestJobValidation(t *testing.T) {
	e, _, _ := newTestEngine(t)
	ctx := context.Background()

	_, err := e.RequestJob(ctx, "s1", "Ada", job.Kind("paint_fence"))
	require.Error(t, err)
	assert.Equal(t, errors.ErrorTypeValidation, errors.GetType(err))

	_, err = e.RequestJob(ctx, "s1", "Ada", job.KindHuntExpedition)
	require.Error(t, err)
	assert.Equal(t, errors.ErrorTypeValidation, errors.GetType(err))
}

func TestRequestJobConflictClass(t *testing.T) {
	e, _, _ := newTestEngine(t)
	ctx := context.Background()

	_, err := e.RequestJob(ctx, "s1", "Ada", job.KindLeaderPlanHunt)
	require.NoError(t, err)

	_, err = e.RequestJob(ctx, "s2", "Bee", job.KindLeaderPlanHunt)
	require.Error(t, err)
	assert.Equal(t, errors.ErrorTypeConflict, errors.GetType(err))

	// Supply jobs carry no conflict class and stack freely.
	_, err = e.RequestJob(ctx, "s1", "Ada", job.KindSupplyFood)
	require.NoError(t, err)
	_, err = e.RequestJob(ctx, "s2", "Bee", job.KindSupplyFood)
	require.NoError(t, err)
}

func TestRequestJobStampsActivity(t *testing.T) {
	e, st, clk := newTestEngine(t)
	ctx := context.Background()

	clk.Advance(time.Hour)
	res, err := e.RequestJob(ctx, "s1", "Ada", job.KindSupplyFood)
	require.NoError(t, err)
	require.NotEmpty(t, res.JobID)

	c := loadColony(t, e, st)
	assert.Equal(t, clk.Now(), c.LastPlayerActivityAt)

	view(t, e, st, func(tx store.Tx) {
		p, err := tx.PlayerBySession("s1")
		require.NoError(t, err)
		require.NotNil(t, p)
		assert.Equal(t, "Ada", p.Nickname)
		assert.Equal(t, 1, p.JobsRequested)

		j, err := tx.JobByID(res.JobID)
		require.NoError(t, err)
		require.NotNil(t, j)
		assert.Equal(t, job.StatusQueued, j.Status)
		assert.Equal(t, job.RequestedByPlayer, j.RequestedBy)
		require.NotNil(t, j.RequestedBySession)
		assert.Equal(t, "s1", *j.RequestedBySession)
		assert.Nil(t, j.EndsAt)
	})
}

func TestClickBoostActivatesAndFloors(t *testing.T) {
	e, st, clk := newTestEngine(t)
	ctx := context.Background()
	start := clk.Now()

	res, err := e.RequestJob(ctx, "s1", "Ada", job.KindSupplyFood)
	require.NoError(t, err)

	// Boosting the queued job activates it, then shaves 10s off the
	// 20s duration.
	b1, err := e.ClickBoostJob(ctx, "s1", "Ada", res.JobID)
	require.NoError(t, err)
	assert.Equal(t, 10.0, b1.ReducedBySec)
	assert.Equal(t, start.Add(10*time.Second), b1.NewEndsAt)

	view(t, e, st, func(tx store.Tx) {
		j, err := tx.JobByID(res.JobID)
		require.NoError(t, err)
		require.NotNil(t, j)
		assert.Equal(t, job.StatusActive, j.Status)
		require.NotNil(t, j.StartedAt)
		assert.Equal(t, start, *j.StartedAt)
	})

	// The floor stops the second click short and zeroes the third.
	b2, err := e.ClickBoostJob(ctx, "s1", "Ada", res.JobID)
	require.NoError(t, err)
	assert.Equal(t, 5.0, b2.ReducedBySec)
	assert.Equal(t, start.Add(5*time.Second), b2.NewEndsAt)

	b3, err := e.ClickBoostJob(ctx, "s1", "Ada", res.JobID)
	require.NoError(t, err)
	assert.Equal(t, 0.0, b3.ReducedBySec)
	assert.Equal(t, start.Add(5*time.Second), b3.NewEndsAt)

	view(t, e, st, func(tx store.Tx) {
		p, err := tx.PlayerBySession("s1")
		require.NoError(t, err)
		assert.Equal(t, 3, p.Clicks)
	})
}

func TestClickBoostUnknownJob(t *testing.T) {
	e, _, _ := newTestEngine(t)

	_, err := e.ClickBoostJob(context.Background(), "s1", "Ada", "nope")
	require.Error(t, err)
	assert.Equal(t, errors.ErrorTypeNotFound, errors.GetType(err))
}

func TestPurchaseUpgradeFlow(t *testing.T) {
	e, st, _ := newTestEngine(t)
	ctx := context.Background()

	mutateColony(t, e, st, func(c *colony.Colony) {
		c.GlobalUpgradePoints = 14
	})

	res, err := e.PurchaseUpgrade(ctx, "s1", "Ada", upgrade.KeyClickPower)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Level)
	assert.Equal(t, 9, res.RemainingPoints)

	// Level 1 -> 2 costs 10; only 9 points remain.
	_, err = e.PurchaseUpgrade(ctx, "s1", "Ada", upgrade.KeyClickPower)
	require.Error(t, err)
	assert.Equal(t, errors.ErrorTypeValidation, errors.GetType(err))

	_, err = e.PurchaseUpgrade(ctx, "s1", "Ada", "sharper_claws")
	require.Error(t, err)
	assert.Equal(t, errors.ErrorTypeNotFound, errors.GetType(err))

	view(t, e, st, func(tx store.Tx) {
		u, err := tx.UpgradeByKey(upgrade.KeyClickPower)
		require.NoError(t, err)
		assert.Equal(t, 1, u.Level)

		p, err := tx.PlayerBySession("s1")
		require.NoError(t, err)
		assert.Equal(t, 1, p.UpgradesPurchased)
	})
}

func TestPurchaseUpgradeMaxedRejected(t *testing.T) {
	e, st, _ := newTestEngine(t)

	mutateColony(t, e, st, func(c *colony.Colony) {
		c.GlobalUpgradePoints = 1000
	})
	updateState(t, e, st, func(tx store.Tx) error {
		u, err := tx.UpgradeByKey(upgrade.KeyRitualFocus)
		if err != nil {
			return err
		}
		u.Level = u.MaxLevel
		return tx.SaveUpgrade(u)
	})

	_, err := e.PurchaseUpgrade(context.Background(), "s1", "Ada", upgrade.KeyRitualFocus)
	require.Error(t, err)
	assert.Equal(t, errors.ErrorTypeConflict, errors.GetType(err))
}

func TestPurchaseAutomationRaisesTier(t *testing.T) {
	e, st, _ := newTestEngine(t)

	mutateColony(t, e, st, func(c *colony.Colony) {
		c.GlobalUpgradePoints = 8
	})

	res, err := e.PurchaseUpgrade(context.Background(), "s1", "Ada", upgrade.KeyAutomation)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Level)
	assert.Equal(t, 0, res.RemainingPoints)

	c := loadColony(t, e, st)
	assert.Equal(t, 1.0, c.AutomationTier)
}

func TestSetTestAcceleration(t *testing.T) {
	e, st, _ := newTestEngine(t)
	ctx := context.Background()

	_, err := e.SetTestAcceleration(ctx, "ludicrous")
	require.Error(t, err)
	assert.Equal(t, errors.ErrorTypeValidation, errors.GetType(err))

	acc, err := e.SetTestAcceleration(ctx, PresetFast)
	require.NoError(t, err)
	assert.Equal(t, 60.0, acc.TimeScale)
	assert.Equal(t, 10.0, acc.ResourceDecayMultiplier)
	require.NotNil(t, acc.ResilienceHoursOverride)
	assert.Equal(t, 0.1, *acc.ResilienceHoursOverride)
	assert.Equal(t, int64(60000), acc.CriticalWindowMs)

	c := loadColony(t, e, st)
	assert.Equal(t, 60.0, c.TimeScale)
	require.NotNil(t, c.ResilienceHoursOverride)

	_, err = e.SetTestAcceleration(ctx, PresetOff)
	require.NoError(t, err)
	c = loadColony(t, e, st)
	assert.Equal(t, 1.0, c.TimeScale)
	assert.Equal(t, 1.0, c.ResourceDecayMultiplier)
	assert.Nil(t, c.ResilienceHoursOverride)
	assert.Equal(t, int64(colony.DefaultCriticalWindowMs), c.CriticalWindowMs)
}

func TestRegisterSessionStampsActivity(t *testing.T) {
	e, st, clk := newTestEngine(t)

	clk.Advance(time.Hour)
	p, err := e.RegisterSession(context.Background(), "s9", "Momo")
	require.NoError(t, err)
	assert.Equal(t, "Momo", p.Nickname)
	assert.Equal(t, clk.Now(), p.LastSeenAt)

	c := loadColony(t, e, st)
	assert.Equal(t, clk.Now(), c.LastPlayerActivityAt)
}

func TestDashboardAssembly(t *testing.T) {
	e, st, _ := newTestEngine(t)
	ctx := context.Background()

	_, err := e.RegisterSession(ctx, "s1", "Ada")
	require.NoError(t, err)
	res, err := e.RequestJob(ctx, "s1", "Ada", job.KindSupplyFood)
	require.NoError(t, err)
	_, err = e.Tick(ctx)
	require.NoError(t, err)

	// A queued job filed after the tick trails the active ones.
	_, err = e.RequestJob(ctx, "s1", "Ada", job.KindLeaderPlanHunt)
	require.NoError(t, err)

	d, err := e.Dashboard(ctx, "s1")
	require.NoError(t, err)

	require.NotNil(t, d.Colony)
	assert.Len(t, d.Cats, 3)
	require.NotNil(t, d.Leader, "the first tick elects a leader")
	assert.Len(t, d.Upgrades, len(upgrade.Catalog))
	assert.Equal(t, 1, d.OnlineCount)
	assert.NotEmpty(t, d.Events)
	assert.Empty(t, d.Runs)

	require.NotEmpty(t, d.Jobs)
	assert.Equal(t, res.JobID, d.Jobs[0].ID, "soonest-ending active job leads")
	last := d.Jobs[len(d.Jobs)-1]
	assert.Equal(t, job.StatusQueued, last.Status)
	assert.Nil(t, last.EndsAt)

	_ = st
}
