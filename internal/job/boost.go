package job

import (
	"math"
	"time"

	"clowder-server/internal/balance"
)

// BoostSeconds is the time one click shaves off a job. The base value
// grows with the click_power upgrade; past the soft cap each further
// click in the rolling window is worth less, so the marginal value of
// the 31st click never exceeds the 30th.
func BoostSeconds(bal balance.Balance, clickPowerLevel, clicksInWindow int) float64 {
	base := 10 + float64(clickPowerLevel)*2

	if clicksInWindow <= bal.ClickSoftCap {
		return base
	}

	over := float64(clicksInWindow - bal.ClickSoftCap)
	factor := math.Max(bal.ClickDecayFloor, 1-bal.ClickDecayPerClick*over)
	return base * factor
}

// ApplyBoost pulls an active job's end forward, never closer than the
// minimum floor from now. It returns the seconds actually shaved, which
// is less than requested when the floor bites.
func ApplyBoost(j *Job, now time.Time, reduceSeconds float64, minSeconds int) float64 {
	if j.EndsAt == nil {
		return 0
	}

	floor := now.Add(time.Duration(minSeconds) * time.Second)
	target := j.EndsAt.Add(-time.Duration(reduceSeconds * float64(time.Second)))
	if target.Before(floor) {
		target = floor
	}
	if target.After(*j.EndsAt) {
		// A job already inside the floor cannot be pushed back out.
		target = *j.EndsAt
	}

	shaved := j.EndsAt.Sub(target).Seconds()
	j.EndsAt = &target
	j.ClickTimeReducedSec += shaved
	return shaved
}
