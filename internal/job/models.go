package job

import (
	"time"
)

// Kind is the closed set of idle job kinds. Per-kind behavior lives in
// the Table, not in scattered conditionals.
type Kind string

const (
	KindSupplyFood      Kind = "supply_food"
	KindSupplyWater     Kind = "supply_water"
	KindLeaderPlanHunt  Kind = "leader_plan_hunt"
	KindHuntExpedition  Kind = "hunt_expedition"
	KindLeaderPlanHouse Kind = "leader_plan_house"
	KindBuildHouse      Kind = "build_house"
	KindRitual          Kind = "ritual"
)

type Status string

const (
	StatusQueued    Status = "queued"
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	// Cancelled and failed exist in the persisted enum but are reachable
	// only through the bulk deletion a Run Reset performs.
	StatusCancelled Status = "cancelled"
	StatusFailed    Status = "failed"
)

type RequestedBy string

const (
	RequestedByPlayer RequestedBy = "player"
	RequestedByLeader RequestedBy = "leader"
	RequestedBySystem RequestedBy = "system"
)

// ConflictClass is a job category of which at most one instance may be
// queued or active per colony.
type ConflictClass string

const (
	ConflictNone   ConflictClass = ""
	ConflictHunt   ConflictClass = "hunt"
	ConflictBuild  ConflictClass = "build"
	ConflictRitual ConflictClass = "ritual"
)

// Build pipeline phases carried in job metadata.
const (
	MetaPhase     = "phase"
	MetaStructure = "structure"

	PhaseGatherMaterials = "gather_materials"
	PhaseConstructHouse  = "construct_house"
)

// Job is a timed unit of work. Queued jobs carry no timestamps; endsAt is
// stamped on activation and evaluated lazily at the next tick.
type Job struct {
	ID                  string            `json:"id"`
	ColonyID            string            `json:"colony_id"`
	Kind                Kind              `json:"kind"`
	Status              Status            `json:"status"`
	RequestedBy         RequestedBy       `json:"requested_by"`
	RequestedBySession  *string           `json:"requested_by_session,omitempty"`
	AssignedCatID       *string           `json:"assigned_cat_id,omitempty"`
	BaseDurationSec     int               `json:"base_duration_sec"`
	StartedAt           *time.Time        `json:"started_at,omitempty"`
	EndsAt              *time.Time        `json:"ends_at,omitempty"`
	ClickTimeReducedSec float64           `json:"click_time_reduced_sec"`
	Metadata            map[string]string `json:"metadata,omitempty"`
	CreatedAt           time.Time         `json:"created_at"`
	UpdatedAt           time.Time         `json:"updated_at"`
}

// Live reports whether the job occupies its conflict class.
func (j *Job) Live() bool {
	return j.Status == StatusQueued || j.Status == StatusActive
}

// Due reports whether an active job has run its course.
func (j *Job) Due(now time.Time) bool {
	return j.Status == StatusActive && j.EndsAt != nil && !j.EndsAt.After(now)
}

func (j *Job) Meta(key string) string {
	if j.Metadata == nil {
		return ""
	}
	return j.Metadata[key]
}
