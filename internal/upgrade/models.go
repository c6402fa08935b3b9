package upgrade

import (
	"time"
)

// Catalog keys. The set is fixed; colonies never gain or lose tracks.
const (
	KeyClickPower      = "click_power"
	KeySupplySpeed     = "supply_speed"
	KeyExpeditionSpeed = "expedition_speed"
	KeyBuildSpeed      = "build_speed"
	KeyRitualFocus     = "ritual_focus"
	KeyResilience      = "resilience"
	KeyAutomation      = "automation"
)

// Upgrade is one purchasable track on a colony. The full catalog is
// materialized when the colony is created; only Level moves afterwards,
// and it survives Run Resets.
type Upgrade struct {
	ID          string    `json:"id"`
	ColonyID    string    `json:"colony_id"`
	Key         string    `json:"key"`
	Level       int       `json:"level"`
	MaxLevel    int       `json:"max_level"`
	BaseCost    int       `json:"base_cost"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// NextCost is the price of the next level.
func (u *Upgrade) NextCost() int {
	return Cost(u.BaseCost, u.Level)
}

// Maxed reports whether the track can no longer be purchased.
func (u *Upgrade) Maxed() bool {
	return u.Level >= u.MaxLevel
}
