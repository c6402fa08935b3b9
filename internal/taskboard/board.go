package taskboard

import (
	"clowder-server/internal/cat"
	"clowder-server/internal/job"
	"clowder-server/internal/rng"
)

// Spec is one task kind's payout.
type Spec struct {
	Resource string
	Amount   float64
	Track    job.SkillTrack
}

// Table maps each kind to its reward and the skill that matters for it.
// Patrol pays no resource; it exists to train leadership.
var Table = map[Kind]Spec{
	KindHunt:        {Resource: "food", Amount: 3, Track: job.TrackHunting},
	KindFetchWater:  {Resource: "water", Amount: 3, Track: job.TrackForaging},
	KindGatherHerbs: {Resource: "herbs", Amount: 2, Track: job.TrackForaging},
	KindPatrol:      {Track: job.TrackLeadership},
}

// Tier grades the leader. A sharper leader hands tasks out sooner and
// picks the wrong cat less often.
type Tier struct {
	Name           string
	AssignDelaySec int
	WrongChance    float64
}

// TierFor grades a leadership score.
func TierFor(leadership int) Tier {
	switch {
	case leadership < 4:
		return Tier{Name: "bad", AssignDelaySec: 90, WrongChance: 0.35}
	case leadership < 7:
		return Tier{Name: "okay", AssignDelaySec: 60, WrongChance: 0.20}
	case leadership < 9:
		return Tier{Name: "good", AssignDelaySec: 30, WrongChance: 0.08}
	default:
		return Tier{Name: "great", AssignDelaySec: 12, WrongChance: 0.02}
	}
}

// ChooseKind rolls the next task to post.
func ChooseKind(seed int64) (Kind, int64) {
	idx, next := rng.Intn(seed, len(Kinds))
	return Kinds[idx], next
}

// AssignCat picks the cat for a task: the best alive cat on the kind's
// track, except that with the tier's wrong-assignment chance a uniformly
// random other alive cat is substituted. Returns the pick, whether it
// was a substitution, and the advanced seed. Nil when nobody is alive.
func AssignCat(cats []*cat.Cat, kind Kind, tier Tier, seed int64) (*cat.Cat, bool, int64) {
	alive := make([]*cat.Cat, 0, len(cats))
	for _, c := range cats {
		if c.Alive {
			alive = append(alive, c)
		}
	}
	if len(alive) == 0 {
		return nil, false, seed
	}

	track := Table[kind].Track
	bestIdx := 0
	for i, c := range alive {
		if c.Stats.For(track) > alive[bestIdx].Stats.For(track) {
			bestIdx = i
		}
	}
	if len(alive) == 1 {
		return alive[bestIdx], false, seed
	}

	wrong, seed := rng.Chance(seed, tier.WrongChance)
	if !wrong {
		return alive[bestIdx], false, seed
	}

	idx, seed := rng.Pick(seed, len(alive), bestIdx)
	return alive[idx], true, seed
}
