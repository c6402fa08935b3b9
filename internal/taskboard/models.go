package taskboard

import (
	"time"
)

// Kind names one chore on the board. These are lighter than jobs: the
// leader hands them out on its own, players never request them.
type Kind string

const (
	KindHunt        Kind = "hunt"
	KindFetchWater  Kind = "fetch_water"
	KindGatherHerbs Kind = "gather_herbs"
	KindPatrol      Kind = "patrol"
)

// Kinds in roll order.
var Kinds = []Kind{KindHunt, KindFetchWater, KindGatherHerbs, KindPatrol}

type Status string

const (
	StatusOpen     Status = "open"
	StatusAssigned Status = "assigned"
)

// SurvivalTask is one board entry. Open tasks wait out the leader's
// assignment countdown; assigned tasks resolve when the work span ends.
type SurvivalTask struct {
	ID            string     `json:"id"`
	ColonyID      string     `json:"colony_id"`
	Kind          Kind       `json:"kind"`
	Status        Status     `json:"status"`
	AssignAt      time.Time  `json:"assign_at"`
	AssignedCatID *string    `json:"assigned_cat_id,omitempty"`
	CompletesAt   *time.Time `json:"completes_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// DueForAssignment reports whether the countdown has run out on an open
// task.
func (t *SurvivalTask) DueForAssignment(now time.Time) bool {
	return t.Status == StatusOpen && !t.AssignAt.After(now)
}

// DueForCompletion reports whether an assigned task's work span is over.
func (t *SurvivalTask) DueForCompletion(now time.Time) bool {
	return t.Status == StatusAssigned && t.CompletesAt != nil && !t.CompletesAt.After(now)
}
