package taskboard

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clowder-server/internal/cat"
)

func TestTierBoundaries(t *testing.T) {
	assert.Equal(t, "bad", TierFor(1).Name)
	assert.Equal(t, "bad", TierFor(3).Name)
	assert.Equal(t, "okay", TierFor(4).Name)
	assert.Equal(t, "okay", TierFor(6).Name)
	assert.Equal(t, "good", TierFor(7).Name)
	assert.Equal(t, "good", TierFor(8).Name)
	assert.Equal(t, "great", TierFor(9).Name)
	assert.Equal(t, "great", TierFor(10).Name)
}

func TestTierCountdownAndReliability(t *testing.T) {
	assert.Equal(t, 90, TierFor(2).AssignDelaySec)
	assert.Equal(t, 0.35, TierFor(2).WrongChance)
	assert.Equal(t, 12, TierFor(10).AssignDelaySec)
	assert.Equal(t, 0.02, TierFor(10).WrongChance)
}

func TestTableCoversEveryKind(t *testing.T) {
	for _, k := range Kinds {
		_, ok := Table[k]
		require.True(t, ok, "kind %s has no table row", k)
	}
	assert.Empty(t, Table[KindPatrol].Resource, "patrol pays no resource")
	assert.Equal(t, 3.0, Table[KindHunt].Amount)
}

func TestChooseKindStaysInRange(t *testing.T) {
	seed := int64(99)
	seen := make(map[Kind]bool)
	for i := 0; i < 200; i++ {
		var k Kind
		k, seed = ChooseKind(seed)
		seen[k] = true
		assert.Contains(t, Kinds, k)
	}
	assert.Len(t, seen, len(Kinds), "every kind shows up over enough rolls")
}

func TestAssignCatPicksBestWhenReliable(t *testing.T) {
	hunter := &cat.Cat{ID: "a", Alive: true, Stats: cat.Tracks{Hunting: 9}}
	other := &cat.Cat{ID: "b", Alive: true, Stats: cat.Tracks{Hunting: 2}}
	sure := Tier{Name: "great", WrongChance: 0}

	picked, wrong, _ := AssignCat([]*cat.Cat{other, hunter}, KindHunt, sure, 1)

	assert.Same(t, hunter, picked)
	assert.False(t, wrong)
}

func TestAssignCatSubstitutesWhenUnreliable(t *testing.T) {
	hunter := &cat.Cat{ID: "a", Alive: true, Stats: cat.Tracks{Hunting: 9}}
	other := &cat.Cat{ID: "b", Alive: true, Stats: cat.Tracks{Hunting: 2}}
	hopeless := Tier{Name: "bad", WrongChance: 1}

	picked, wrong, next := AssignCat([]*cat.Cat{hunter, other}, KindHunt, hopeless, 1)

	assert.Same(t, other, picked, "the substitute is never the optimal cat")
	assert.True(t, wrong)
	assert.NotEqual(t, int64(1), next)
}

func TestAssignCatIsDeterministic(t *testing.T) {
	cats := []*cat.Cat{
		{ID: "a", Alive: true, Stats: cat.Tracks{Foraging: 5}},
		{ID: "b", Alive: true, Stats: cat.Tracks{Foraging: 7}},
		{ID: "c", Alive: true, Stats: cat.Tracks{Foraging: 3}},
	}
	tier := TierFor(2)

	p1, w1, s1 := AssignCat(cats, KindGatherHerbs, tier, 42)
	p2, w2, s2 := AssignCat(cats, KindGatherHerbs, tier, 42)

	assert.Same(t, p1, p2)
	assert.Equal(t, w1, w2)
	assert.Equal(t, s1, s2)
}

func TestAssignCatSkipsDeadAndHandlesEmptyRoster(t *testing.T) {
	dead := &cat.Cat{ID: "a", Alive: false, Stats: cat.Tracks{Hunting: 10}}
	alive := &cat.Cat{ID: "b", Alive: true, Stats: cat.Tracks{Hunting: 1}}

	picked, wrong, seed := AssignCat([]*cat.Cat{dead, alive}, KindHunt, TierFor(1), 7)
	assert.Same(t, alive, picked, "a lone alive cat always gets the task")
	assert.False(t, wrong)
	assert.Equal(t, int64(7), seed, "no roll needed with one candidate")

	picked, _, _ = AssignCat([]*cat.Cat{dead}, KindHunt, TierFor(1), 7)
	assert.Nil(t, picked)
}

func TestDueHelpers(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	catID := "c1"
	done := now.Add(-time.Second)

	open := &SurvivalTask{Status: StatusOpen, AssignAt: now.Add(-time.Minute)}
	waiting := &SurvivalTask{Status: StatusOpen, AssignAt: now.Add(time.Minute)}
	working := &SurvivalTask{Status: StatusAssigned, AssignedCatID: &catID, CompletesAt: &done}

	assert.True(t, open.DueForAssignment(now))
	assert.False(t, waiting.DueForAssignment(now))
	assert.False(t, working.DueForAssignment(now))
	assert.True(t, working.DueForCompletion(now))
	assert.False(t, open.DueForCompletion(now))
}
