package colony

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clowder-server/internal/balance"
)

func testColony() *Colony {
	return &Colony{
		ID:                      "col-1",
		Status:                  StatusStarting,
		Resources:               StartingResources(balance.Default(), 0),
		RunNumber:               1,
		TimeScale:               1,
		ResourceDecayMultiplier: 1,
		CriticalWindowMs:        DefaultCriticalWindowMs,
	}
}

func TestApplyTickConsumptionClampsAtZero(t *testing.T) {
	bal := balance.Default()
	c := testColony()
	c.Resources.Food = 0.5
	c.Resources.Water = 0.1

	// A week of simulated time for ten cats empties everything.
	ApplyTickConsumption(c, bal, 10, 7*24*3600, 0)

	assert.Equal(t, 0.0, c.Resources.Food)
	assert.Equal(t, 0.0, c.Resources.Water)
}

func TestApplyTickConsumptionRates(t *testing.T) {
	bal := balance.Default()
	c := testColony()
	c.Resources.Food = 100
	c.Resources.Water = 100

	// One cat, one hour, no resilience: 1 food, 1.2 water.
	ApplyTickConsumption(c, bal, 1, 3600, 0)

	assert.InDelta(t, 99.0, c.Resources.Food, 1e-9)
	assert.InDelta(t, 98.8, c.Resources.Water, 1e-9)
}

func TestResilienceShrinksConsumption(t *testing.T) {
	bal := balance.Default()

	foodAt0, waterAt0 := ConsumptionForSpan(bal, 4, 3600, 0)
	foodAt3, waterAt3 := ConsumptionForSpan(bal, 4, 3600, 3)

	assert.Less(t, foodAt3, foodAt0)
	assert.Less(t, waterAt3, waterAt0)
	assert.InDelta(t, foodAt0*0.76, foodAt3, 1e-9)
}

func TestResilienceScaleFloor(t *testing.T) {
	assert.InDelta(t, 1.0, ResilienceScale(0), 1e-9)
	assert.InDelta(t, 0.6, ResilienceScale(5), 1e-9)
	// The floor holds however deep the investment goes.
	assert.InDelta(t, 0.45, ResilienceScale(7), 1e-9)
	assert.InDelta(t, 0.45, ResilienceScale(50), 1e-9)
}

func TestDecayMultiplierAcceleratesConsumption(t *testing.T) {
	bal := balance.Default()
	c := testColony()
	c.Resources.Food = 100
	c.ResourceDecayMultiplier = 10

	ApplyTickConsumption(c, bal, 1, 3600, 0)

	assert.InDelta(t, 90.0, c.Resources.Food, 1e-9)
}

func TestStatusForBoundaries(t *testing.T) {
	bal := balance.Default()

	assert.Equal(t, StatusStruggling, StatusFor(bal, Resources{Food: 5, Water: 5, Herbs: 5}, 3))
	assert.Equal(t, StatusStarting, StatusFor(bal, Resources{Food: 10, Water: 10, Herbs: 10}, 3))
	assert.Equal(t, StatusThriving, StatusFor(bal, Resources{Food: 40, Water: 40, Herbs: 5}, 3))

	// Population is ignored except for the dead override: a one-cat
	// colony with fat stores still reads thriving.
	assert.Equal(t, StatusThriving, StatusFor(bal, Resources{Food: 100, Water: 100}, 1))
	assert.Equal(t, StatusDead, StatusFor(bal, Resources{Food: 100, Water: 100}, 0))
}

func TestResilienceHours(t *testing.T) {
	bal := balance.Default()
	c := testColony()

	assert.InDelta(t, 2.0, ResilienceHours(c, bal, 0), 1e-9)

	c.AutomationTier = 2.9
	assert.InDelta(t, 2+12.0, ResilienceHours(c, bal, 0), 1e-9, "tier floors to whole steps")

	c.AutomationTier = 0
	assert.InDelta(t, 2+18.0, ResilienceHours(c, bal, 3), 1e-9)

	c.AutomationTier = 10
	assert.InDelta(t, 96.0, ResilienceHours(c, bal, 8), 1e-9, "capped at 96h")

	override := 0.5
	c.ResilienceHoursOverride = &override
	assert.InDelta(t, 0.5, ResilienceHours(c, bal, 8), 1e-9)
}

func TestIsCritical(t *testing.T) {
	bal := balance.Default()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	c := testColony()
	c.Resources.Food = 0
	c.Resources.Water = 12
	c.LastPlayerActivityAt = now.Add(-3 * time.Hour)

	require.True(t, IsCritical(c, bal, 0, now), "dry food + 3h unattended beats the 2h window")

	// Recent activity rescues the colony even while dry.
	c.LastPlayerActivityAt = now.Add(-30 * time.Minute)
	assert.False(t, IsCritical(c, bal, 0, now))

	// Both staples positive is never critical.
	c.Resources.Food = 1
	c.LastPlayerActivityAt = now.Add(-200 * time.Hour)
	assert.False(t, IsCritical(c, bal, 0, now))
}

func TestCriticalWindowFloor(t *testing.T) {
	c := testColony()
	c.CriticalWindowMs = 250
	assert.Equal(t, time.Duration(DefaultCriticalWindowMs)*time.Millisecond, c.CriticalWindow())

	c.CriticalWindowMs = 60000
	assert.Equal(t, time.Minute, c.CriticalWindow())
}

func TestResourcesAddClampsNegative(t *testing.T) {
	r := Resources{Materials: 4}
	r.Add("materials", -10)
	assert.Equal(t, 0.0, r.Materials)

	r.Add("blessings", 5)
	assert.Equal(t, 5.0, r.Blessings)
}
