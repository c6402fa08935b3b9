package colony

import (
	"math"
	"time"

	"clowder-server/internal/balance"
)

// ResilienceScale converts the resilience upgrade level into the
// consumption multiplier: each level shaves 8%, floored at 45%.
func ResilienceScale(resilienceLevel int) float64 {
	return math.Max(0.45, 1-float64(resilienceLevel)*0.08)
}

// ApplyTickConsumption subtracts the food and water the alive cats used
// over the elapsed simulated span. Subtractions clamp at zero: running
// dry is what the watchdog watches for, not an error.
func ApplyTickConsumption(c *Colony, bal balance.Balance, aliveCats int, elapsedSeconds float64, resilienceLevel int) {
	if aliveCats <= 0 || elapsedSeconds <= 0 {
		return
	}

	foodUse, waterUse := ConsumptionForSpan(bal, aliveCats, elapsedSeconds, resilienceLevel)

	decay := c.ResourceDecayMultiplier
	if decay < 1 {
		decay = 1
	}

	c.Resources.Food = clampZero(c.Resources.Food - foodUse*decay)
	c.Resources.Water = clampZero(c.Resources.Water - waterUse*decay)
}

// ConsumptionForSpan returns the food and water a colony of the given
// size consumes over elapsedSeconds at the given resilience level,
// before the decay-multiplier test knob.
func ConsumptionForSpan(bal balance.Balance, aliveCats int, elapsedSeconds float64, resilienceLevel int) (foodUse, waterUse float64) {
	scale := ResilienceScale(resilienceLevel)
	foodUse = float64(aliveCats) * elapsedSeconds / bal.FoodUseDivisor * scale
	waterUse = float64(aliveCats) * elapsedSeconds / bal.WaterUseDivisor * scale
	return foodUse, waterUse
}

// StatusFor derives the colony status from the current totals. It is
// memoryless and deliberately ignores population size for the
// thriving/struggling boundary; only a fully dead roster overrides it.
func StatusFor(bal balance.Balance, res Resources, aliveCats int) Status {
	if aliveCats == 0 {
		return StatusDead
	}
	total := res.Total()
	switch {
	case total < bal.StrugglingBelow:
		return StatusStruggling
	case total > bal.ThrivingAbove:
		return StatusThriving
	default:
		return StatusStarting
	}
}

// ResilienceHours is the unattended-survival window: a base allowance
// plus six hours per resilience level and per whole automation tier,
// capped at 96 hours. The override knob short-circuits the formula.
func ResilienceHours(c *Colony, bal balance.Balance, resilienceLevel int) float64 {
	if c.ResilienceHoursOverride != nil {
		return *c.ResilienceHoursOverride
	}
	hours := bal.BaseResilienceHours +
		float64(resilienceLevel)*bal.ResilienceHoursPerStep +
		math.Floor(c.AutomationTier)*bal.ResilienceHoursPerStep
	return math.Min(bal.MaxResilienceHours, hours)
}

// IsCritical reports whether the colony is in terminal-collapse
// territory: a dry staple supply while nobody has played for longer than
// the colony can look after itself.
func IsCritical(c *Colony, bal balance.Balance, resilienceLevel int, now time.Time) bool {
	if c.Resources.Food > 0 && c.Resources.Water > 0 {
		return false
	}
	unattendedHours := now.Sub(c.LastPlayerActivityAt).Hours()
	return unattendedHours >= ResilienceHours(c, bal, resilienceLevel)
}

// CriticalWindow returns the debounce duration before a sustained
// critical state becomes a Run Reset.
func (c *Colony) CriticalWindow() time.Duration {
	ms := c.CriticalWindowMs
	if ms < 1000 {
		ms = DefaultCriticalWindowMs
	}
	return time.Duration(ms) * time.Millisecond
}

// StartingResources is the allocation a fresh run begins with. Blessings
// are the cross-run currency and are carried by the caller, not here.
func StartingResources(bal balance.Balance, blessings float64) Resources {
	return Resources{
		Food:      bal.StartFood,
		Water:     bal.StartWater,
		Herbs:     bal.StartHerbs,
		Materials: bal.StartMaterials,
		Blessings: blessings,
	}
}

func clampZero(v float64) float64 {
	if v < 0 {
		return 0
	}
	return v
}

// Add credits a named resource, clamping negative deltas at zero on the
// way out so rewards can also model costs (the construct phase spends
// materials through the same path).
func (r *Resources) Add(name string, delta float64) {
	switch name {
	case "food":
		r.Food = clampZero(r.Food + delta)
	case "water":
		r.Water = clampZero(r.Water + delta)
	case "herbs":
		r.Herbs = clampZero(r.Herbs + delta)
	case "materials":
		r.Materials = clampZero(r.Materials + delta)
	case "blessings":
		r.Blessings = clampZero(r.Blessings + delta)
	}
}
