package job

import (
	"math"

	"clowder-server/internal/colony"
)

// SkillTrack names a cat aptitude. Jobs train and are scaled by exactly
// one track.
type SkillTrack string

const (
	TrackLeadership SkillTrack = "leadership"
	TrackHunting    SkillTrack = "hunting"
	TrackForaging   SkillTrack = "foraging"
	TrackBuilding   SkillTrack = "building"
	TrackMysticism  SkillTrack = "mysticism"
)

// Reward is one resource delta applied on completion. Negative amounts
// model the construct phase spending the gathered materials.
type Reward struct {
	Resource string
	Amount   float64
}

// Outcome is everything a completed job pays out besides the audit event.
type Outcome struct {
	Resources      []Reward
	UpgradePoints  int
	AutomationTier float64
}

// Spec is one row of the kind table.
type Spec struct {
	Conflict        ConflictClass
	BaseDurationSec int
	Track           SkillTrack
	SpeedUpgradeKey string
	SpeedFloor      float64
	SpeedStep       float64
	ChainsTo        Kind
}

// Table drives all per-kind behavior: conflict classes, durations, speed
// upgrades, skill tracks, and pipeline chaining. Adding a kind is a row
// here plus a reward case below.
var Table = map[Kind]Spec{
	KindSupplyFood: {
		Conflict:        ConflictNone,
		BaseDurationSec: 20,
		Track:           TrackHunting,
		SpeedUpgradeKey: "supply_speed",
		SpeedFloor:      0.55,
		SpeedStep:       0.10,
	},
	KindSupplyWater: {
		Conflict:        ConflictNone,
		BaseDurationSec: 20,
		Track:           TrackForaging,
		SpeedUpgradeKey: "supply_speed",
		SpeedFloor:      0.55,
		SpeedStep:       0.10,
	},
	KindLeaderPlanHunt: {
		Conflict:        ConflictHunt,
		BaseDurationSec: 45,
		Track:           TrackLeadership,
		SpeedUpgradeKey: "expedition_speed",
		SpeedFloor:      0.45,
		SpeedStep:       0.08,
		ChainsTo:        KindHuntExpedition,
	},
	KindHuntExpedition: {
		Conflict:        ConflictHunt,
		BaseDurationSec: 120,
		Track:           TrackHunting,
		SpeedUpgradeKey: "expedition_speed",
		SpeedFloor:      0.45,
		SpeedStep:       0.08,
	},
	KindLeaderPlanHouse: {
		Conflict:        ConflictBuild,
		BaseDurationSec: 60,
		Track:           TrackLeadership,
		SpeedUpgradeKey: "build_speed",
		SpeedFloor:      0.50,
		SpeedStep:       0.07,
		ChainsTo:        KindBuildHouse,
	},
	KindBuildHouse: {
		Conflict:        ConflictBuild,
		BaseDurationSec: 150,
		Track:           TrackBuilding,
		SpeedUpgradeKey: "build_speed",
		SpeedFloor:      0.50,
		SpeedStep:       0.07,
	},
	KindRitual: {
		Conflict:        ConflictRitual,
		BaseDurationSec: 90,
		Track:           TrackMysticism,
		SpeedUpgradeKey: "ritual_focus",
		SpeedFloor:      0.40,
		SpeedStep:       0.12,
	},
}

// Structures a build pipeline can raise, from the colony's blueprint
// book. The gather phase picks one with a seeded roll and the construct
// phase finishes the same one.
var Structures = []string{
	"den",
	"food_storage",
	"water_bowl",
	"beds",
	"herb_garden",
	"nursery",
	"elder_corner",
	"walls",
	"mouse_farm",
}

// ValidKind reports whether visitors may request the kind directly.
// Chained kinds exist but arrive only through their plan jobs.
func ValidKind(k Kind) bool {
	_, ok := Table[k]
	return ok
}

// Requestable kinds are the ones a visitor can ask for; expedition and
// build jobs are spawned by completing their plan jobs.
func Requestable(k Kind) bool {
	switch k {
	case KindSupplyFood, KindSupplyWater, KindLeaderPlanHunt, KindLeaderPlanHouse, KindRitual:
		return true
	default:
		return false
	}
}

// SpeedMultiplier is the per-kind upgrade discount: each level shaves
// SpeedStep until SpeedFloor.
func (s Spec) SpeedMultiplier(level int) float64 {
	return math.Max(s.SpeedFloor, 1-float64(level)*s.SpeedStep)
}

const specializationMultiplier = 0.55

// DurationSeconds computes the effective duration stamped at activation:
// base × upgrade discount × specialization discount ÷ time scale,
// floored, with a 5 second floor that relaxes to 1 second under an
// accelerated time scale.
func DurationSeconds(k Kind, upgradeLevel int, specializationMatch bool, timeScale float64) int {
	spec := Table[k]
	d := float64(spec.BaseDurationSec) * spec.SpeedMultiplier(upgradeLevel)
	if specializationMatch {
		d *= specializationMultiplier
	}
	if timeScale < 1 {
		timeScale = 1
	}
	d /= timeScale

	min := 5.0
	if timeScale > 1 {
		min = 1.0
	}
	return int(math.Max(min, math.Floor(d)))
}

// RewardsFor returns the payout table row for a completed job. The
// amounts are pre-scaling; skill and specialization scaling happens in
// ScaleRewards.
func RewardsFor(j *Job) Outcome {
	switch j.Kind {
	case KindSupplyFood:
		return Outcome{Resources: []Reward{{"food", 10}}}
	case KindSupplyWater:
		return Outcome{Resources: []Reward{{"water", 10}}}
	case KindHuntExpedition:
		return Outcome{Resources: []Reward{{"food", 25}, {"herbs", 2}}}
	case KindBuildHouse:
		if j.Meta(MetaPhase) == PhaseConstructHouse {
			return Outcome{
				Resources:      []Reward{{"materials", -10}, {"blessings", 2}},
				AutomationTier: 0.5,
			}
		}
		return Outcome{Resources: []Reward{{"materials", 12}}}
	case KindRitual:
		return Outcome{
			Resources:     []Reward{{"blessings", 5}},
			UpgradePoints: 3,
		}
	default:
		// Plan jobs pay out nothing; their reward is the chained job.
		return Outcome{}
	}
}

// ScaleRewards applies the assigned cat's skill and specialization bonus
// to the positive deltas. Costs pass through untouched and each credit is
// floored.
func ScaleRewards(out Outcome, skill int, specializationMatch bool) Outcome {
	scale := 1 + float64(skill)/20
	if specializationMatch {
		scale *= 1.25
	}

	scaled := make([]Reward, len(out.Resources))
	for i, r := range out.Resources {
		if r.Amount > 0 {
			scaled[i] = Reward{r.Resource, math.Floor(r.Amount * scale)}
		} else {
			scaled[i] = r
		}
	}
	out.Resources = scaled
	return out
}

// ApplyRewards credits the outcome against a resource ledger.
func ApplyRewards(res *colony.Resources, out Outcome) {
	for _, r := range out.Resources {
		res.Add(r.Resource, r.Amount)
	}
}
