package colony

import (
	"time"
)

type Status string

const (
	StatusStarting   Status = "starting"
	StatusThriving   Status = "thriving"
	StatusStruggling Status = "struggling"
	StatusDead       Status = "dead"
)

// Resources are the colony's named quantities. Every field is clamped at
// zero on subtraction; depletion is a watchdog trigger, never an error.
type Resources struct {
	Food      float64 `json:"food"`
	Water     float64 `json:"water"`
	Herbs     float64 `json:"herbs"`
	Materials float64 `json:"materials"`
	Blessings float64 `json:"blessings"`
}

// Colony is the singleton simulated settlement. One row exists per world;
// it is created lazily on first access and only ever reset in place.
type Colony struct {
	ID                   string     `json:"id"`
	Status               Status     `json:"status"`
	Resources            Resources  `json:"resources"`
	RunNumber            int        `json:"run_number"`
	RunStartedAt         time.Time  `json:"run_started_at"`
	LastTick             time.Time  `json:"last_tick"`
	LastPlayerActivityAt time.Time  `json:"last_player_activity_at"`
	AutomationTier       float64    `json:"automation_tier"`
	GlobalUpgradePoints  int        `json:"global_upgrade_points"`
	RitualRequestedAt    *time.Time `json:"ritual_requested_at"`
	CriticalSince        *time.Time `json:"critical_since"`
	LeaderID             *string    `json:"leader_id"`
	RNGSeed              int64      `json:"-"`

	// Test-mode override knobs.
	TimeScale               float64  `json:"time_scale"`
	ResourceDecayMultiplier float64  `json:"resource_decay_multiplier"`
	ResilienceHoursOverride *float64 `json:"resilience_hours_override"`
	CriticalWindowMs        int64    `json:"critical_window_ms"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

const DefaultCriticalWindowMs = 300000

// RunRecord is the immutable snapshot appended at every Run Reset.
type RunRecord struct {
	ID             string    `json:"id"`
	ColonyID       string    `json:"colony_id"`
	RunNumber      int       `json:"run_number"`
	StartedAt      time.Time `json:"started_at"`
	EndedAt        time.Time `json:"ended_at"`
	DurationSec    int64     `json:"duration_sec"`
	Reason         string    `json:"reason"`
	FinalResources Resources `json:"final_resources"`
	ActivePlayers  int       `json:"active_players"`
}

// Total is the status-relevant resource sum; materials and blessings do
// not keep a colony alive.
func (r Resources) Total() float64 {
	return r.Food + r.Water + r.Herbs
}
