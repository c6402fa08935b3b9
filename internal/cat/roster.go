package cat

import (
	"clowder-server/internal/job"
	"clowder-server/internal/rng"
)

// starterNames is the pool new rosters draw from.
var starterNames = []string{
	"Mochi", "Biscuit", "Clover", "Pepper", "Juniper", "Maple",
	"Rusty", "Willow", "Sage", "Pickle", "Ember", "Noodle",
}

// tracks in roll order, so stat generation is reproducible.
var allTracks = []job.SkillTrack{
	job.TrackLeadership,
	job.TrackHunting,
	job.TrackForaging,
	job.TrackBuilding,
	job.TrackMysticism,
}

// NewStarter rolls a starter roster of the given size. Each cat gets one
// strong track and modest everything else, a coat, a name from the pool
// without repeats, and a yard position. IDs and timestamps are assigned
// on insert.
func NewStarter(colonyID string, size int, seed int64) ([]*Cat, int64) {
	if size > len(starterNames) {
		size = len(starterNames)
	}
	cats := make([]*Cat, 0, size)
	used := make(map[int]bool)

	for i := 0; i < size; i++ {
		var nameIdx int
		nameIdx, seed = rng.Intn(seed, len(starterNames))
		for used[nameIdx] {
			nameIdx = (nameIdx + 1) % len(starterNames)
		}
		used[nameIdx] = true

		var variantIdx, strongIdx int
		variantIdx, seed = rng.Intn(seed, len(Variants))
		strongIdx, seed = rng.Intn(seed, len(allTracks))

		c := &Cat{
			ColonyID: colonyID,
			Name:     starterNames[nameIdx],
			Variant:  Variants[variantIdx],
			Alive:    true,
			Hunger:   100,
			Thirst:   100,
		}
		for ti, track := range allTracks {
			var v int
			if ti == strongIdx {
				v, seed = rng.Intn(seed, 5)
				v += 5
			} else {
				v, seed = rng.Intn(seed, 4)
				v++
			}
			c.Stats.Add(track, v)
		}
		seed = Reposition(c, seed)
		cats = append(cats, c)
	}
	return cats, seed
}

// Reposition rolls a fresh yard position for one cat.
func Reposition(c *Cat, seed int64) int64 {
	c.X, seed = rng.Intn(seed, YardWidth)
	c.Y, seed = rng.Intn(seed, YardHeight)
	return seed
}

// ApplyNeeds advances one cat's hunger and thirst over a span of hours.
// A need refills to full while the matching colony supply holds out and
// decays at the given per-hour rate while the supply is empty. Returns
// true when a need bottoms out, which kills the cat.
func (c *Cat) ApplyNeeds(foodAvailable, waterAvailable bool, hours, hungerPerHour, thirstPerHour float64) bool {
	if !c.Alive {
		return false
	}

	if foodAvailable {
		c.Hunger = 100
	} else {
		c.Hunger -= hungerPerHour * hours
		if c.Hunger < 0 {
			c.Hunger = 0
		}
	}

	if waterAvailable {
		c.Thirst = 100
	} else {
		c.Thirst -= thirstPerHour * hours
		if c.Thirst < 0 {
			c.Thirst = 0
		}
	}

	return c.Hunger <= 0 || c.Thirst <= 0
}

// GainXP credits role XP on a track. An unspecialized cat whose track
// reaches the threshold picks up that specialization; the returned flag
// reports the promotion.
func (c *Cat) GainXP(track job.SkillTrack, amount, specializeAt int) bool {
	c.RoleXP.Add(track, amount)
	if c.Specialization == nil && c.RoleXP.For(track) >= specializeAt {
		t := track
		c.Specialization = &t
		return true
	}
	return false
}

// ElectLeader picks the alive cat with the highest leadership. Ties keep
// the earliest cat in roster order, so the leader is stable across ticks.
func ElectLeader(cats []*Cat) *Cat {
	var leader *Cat
	for _, c := range cats {
		if !c.Alive {
			continue
		}
		if leader == nil || c.Stats.Leadership > leader.Stats.Leadership {
			leader = c
		}
	}
	return leader
}

// BestFor picks the alive cat with the highest innate score on a track,
// roster order breaking ties. Used for both job crews and task board
// assignment.
func BestFor(cats []*Cat, track job.SkillTrack) *Cat {
	var best *Cat
	for _, c := range cats {
		if !c.Alive {
			continue
		}
		if best == nil || c.Stats.For(track) > best.Stats.For(track) {
			best = c
		}
	}
	return best
}
