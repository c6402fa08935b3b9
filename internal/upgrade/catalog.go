package upgrade

import (
	"clowder-server/internal/shared/errors"
)

// Spec is one catalog row.
type Spec struct {
	Key         string
	MaxLevel    int
	BaseCost    int
	Description string
}

// Catalog lists every purchasable track in dashboard order. Levels are
// pure inputs read by the ledger, the job table and the watchdog; nothing
// here runs simulation logic.
var Catalog = []Spec{
	{Key: KeyClickPower, MaxLevel: 10, BaseCost: 5, Description: "Each click shaves more time off a job."},
	{Key: KeySupplySpeed, MaxLevel: 8, BaseCost: 4, Description: "Food and water runs finish faster."},
	{Key: KeyExpeditionSpeed, MaxLevel: 8, BaseCost: 6, Description: "Hunt planning and expeditions finish faster."},
	{Key: KeyBuildSpeed, MaxLevel: 8, BaseCost: 6, Description: "House planning and construction finish faster."},
	{Key: KeyRitualFocus, MaxLevel: 5, BaseCost: 7, Description: "Rituals channel faster."},
	{Key: KeyResilience, MaxLevel: 8, BaseCost: 8, Description: "Cats consume less and the colony holds out longer unattended."},
	{Key: KeyAutomation, MaxLevel: 10, BaseCost: 8, Description: "The colony queues more of its own work."},
}

// SpecFor looks up a catalog row by key.
func SpecFor(key string) (Spec, bool) {
	for _, s := range Catalog {
		if s.Key == key {
			return s, true
		}
	}
	return Spec{}, false
}

// ValidKey reports whether key names a catalog track.
func ValidKey(key string) bool {
	_, ok := SpecFor(key)
	return ok
}

// Cost is the price of the next level, a linear ramp on the base cost:
// level 0 -> base, level 1 -> 2x base, and so on.
func Cost(baseCost, level int) int {
	return baseCost * (level + 1)
}

// ValidatePurchase applies the purchase rules without mutating anything.
// Callers debit points and bump the level only when this returns nil.
func ValidatePurchase(u *Upgrade, points int) error {
	if u.Maxed() {
		return errors.Conflictf("upgrade %s already maxed", u.Key)
	}
	if cost := u.NextCost(); points < cost {
		return errors.Validationf("not enough points: %s costs %d, colony has %d", u.Key, cost, points)
	}
	return nil
}

// NewSet materializes the full catalog at level 0 for a fresh colony.
// IDs and timestamps are assigned by the store on insert.
func NewSet(colonyID string) []*Upgrade {
	set := make([]*Upgrade, 0, len(Catalog))
	for _, s := range Catalog {
		set = append(set, &Upgrade{
			ColonyID:    colonyID,
			Key:         s.Key,
			Level:       0,
			MaxLevel:    s.MaxLevel,
			BaseCost:    s.BaseCost,
			Description: s.Description,
		})
	}
	return set
}
