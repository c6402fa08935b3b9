package event

import (
	"time"
)

// Event types written by the simulation. Narrative consumers key off
// these strings, so they are part of the persisted contract.
const (
	TypeJobQueued        = "job_queued"
	TypeJobCompleted     = "job_completed"
	TypeLeaderChanged    = "leader_changed"
	TypeCatDied          = "cat_died"
	TypeRunReset         = "run_reset"
	TypeUpgradePurchased = "upgrade_purchased"
	TypeRitualReady      = "ritual_ready"
	TypeTaskAssigned     = "task_assigned"
)

// Event is one append-only audit record. Rows are never updated or
// deleted; Run Reset leaves the log intact.
type Event struct {
	ID             string            `json:"id"`
	ColonyID       string            `json:"colony_id"`
	Type           string            `json:"type"`
	Message        string            `json:"message"`
	InvolvedCatIDs []string          `json:"involved_cat_ids,omitempty"`
	Metadata       map[string]string `json:"metadata,omitempty"`
	CreatedAt      time.Time         `json:"created_at"`
}

// New builds an unpersisted event. The store assigns ID and CreatedAt.
func New(colonyID, eventType, message string) *Event {
	return &Event{
		ColonyID: colonyID,
		Type:     eventType,
		Message:  message,
	}
}

// WithCats attaches the cats an event is about.
func (e *Event) WithCats(ids ...string) *Event {
	e.InvolvedCatIDs = append(e.InvolvedCatIDs, ids...)
	return e
}

// WithMeta attaches one metadata pair.
func (e *Event) WithMeta(key, value string) *Event {
	if e.Metadata == nil {
		e.Metadata = make(map[string]string)
	}
	e.Metadata[key] = value
	return e
}
