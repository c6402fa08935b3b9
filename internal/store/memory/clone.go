package memory

import (
	"clowder-server/internal/cat"
	"clowder-server/internal/colony"
	"clowder-server/internal/event"
	"clowder-server/internal/job"
	"clowder-server/internal/player"
	"clowder-server/internal/taskboard"
	"clowder-server/internal/upgrade"
)

// Clones duplicate every pointer and map field so transaction copies
// never alias committed state.

func cloneColony(c *colony.Colony) *colony.Colony {
	if c == nil {
		return nil
	}
	out := *c
	if c.RitualRequestedAt != nil {
		t := *c.RitualRequestedAt
		out.RitualRequestedAt = &t
	}
	if c.CriticalSince != nil {
		t := *c.CriticalSince
		out.CriticalSince = &t
	}
	if c.LeaderID != nil {
		id := *c.LeaderID
		out.LeaderID = &id
	}
	if c.ResilienceHoursOverride != nil {
		h := *c.ResilienceHoursOverride
		out.ResilienceHoursOverride = &h
	}
	return &out
}

func cloneJob(j *job.Job) *job.Job {
	out := *j
	if j.RequestedBySession != nil {
		s := *j.RequestedBySession
		out.RequestedBySession = &s
	}
	if j.AssignedCatID != nil {
		s := *j.AssignedCatID
		out.AssignedCatID = &s
	}
	if j.StartedAt != nil {
		t := *j.StartedAt
		out.StartedAt = &t
	}
	if j.EndsAt != nil {
		t := *j.EndsAt
		out.EndsAt = &t
	}
	if j.Metadata != nil {
		out.Metadata = make(map[string]string, len(j.Metadata))
		for k, v := range j.Metadata {
			out.Metadata[k] = v
		}
	}
	return &out
}

func cloneCat(c *cat.Cat) *cat.Cat {
	out := *c
	if c.Specialization != nil {
		t := *c.Specialization
		out.Specialization = &t
	}
	return &out
}

func cloneUpgrade(u *upgrade.Upgrade) *upgrade.Upgrade {
	out := *u
	return &out
}

func clonePlayer(p *player.Player) *player.Player {
	out := *p
	return &out
}

func cloneTask(t *taskboard.SurvivalTask) *taskboard.SurvivalTask {
	out := *t
	if t.AssignedCatID != nil {
		s := *t.AssignedCatID
		out.AssignedCatID = &s
	}
	if t.CompletesAt != nil {
		ts := *t.CompletesAt
		out.CompletesAt = &ts
	}
	return &out
}

func cloneEvent(e *event.Event) *event.Event {
	out := *e
	if e.InvolvedCatIDs != nil {
		out.InvolvedCatIDs = append([]string(nil), e.InvolvedCatIDs...)
	}
	if e.Metadata != nil {
		out.Metadata = make(map[string]string, len(e.Metadata))
		for k, v := range e.Metadata {
			out.Metadata[k] = v
		}
	}
	return &out
}
