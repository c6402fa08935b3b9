package cat

import (
	"time"

	"clowder-server/internal/job"
)

// Coat variants, matching the sprite sheet.
const (
	VariantOrangeTabby = "orange-tabby"
	VariantGrayTabby   = "gray-tabby"
	VariantBlack       = "black"
	VariantWhite       = "white"
	VariantCalico      = "calico"
	VariantTuxedo      = "tuxedo"
)

// Variants lists every coat in sprite-sheet order.
var Variants = []string{
	VariantOrangeTabby,
	VariantGrayTabby,
	VariantBlack,
	VariantWhite,
	VariantCalico,
	VariantTuxedo,
}

// Yard bounds for cat positions.
const (
	YardWidth  = 20
	YardHeight = 12
)

// Tracks holds one integer per skill track. The same shape serves innate
// stats (1 to 10) and accumulated role XP.
type Tracks struct {
	Leadership int `json:"leadership"`
	Hunting    int `json:"hunting"`
	Foraging   int `json:"foraging"`
	Building   int `json:"building"`
	Mysticism  int `json:"mysticism"`
}

// For reads the value on one track.
func (t Tracks) For(track job.SkillTrack) int {
	switch track {
	case job.TrackLeadership:
		return t.Leadership
	case job.TrackHunting:
		return t.Hunting
	case job.TrackForaging:
		return t.Foraging
	case job.TrackBuilding:
		return t.Building
	case job.TrackMysticism:
		return t.Mysticism
	}
	return 0
}

// Add credits a track in place.
func (t *Tracks) Add(track job.SkillTrack, delta int) {
	switch track {
	case job.TrackLeadership:
		t.Leadership += delta
	case job.TrackHunting:
		t.Hunting += delta
	case job.TrackForaging:
		t.Foraging += delta
	case job.TrackBuilding:
		t.Building += delta
	case job.TrackMysticism:
		t.Mysticism += delta
	}
}

// Cat is one roster member. Needs sit in [0, 100]; a need hitting zero
// while the matching supply is empty is fatal.
type Cat struct {
	ID             string          `json:"id"`
	ColonyID       string          `json:"colony_id"`
	Name           string          `json:"name"`
	Variant        string          `json:"variant"`
	Alive          bool            `json:"alive"`
	Stats          Tracks          `json:"stats"`
	RoleXP         Tracks          `json:"role_xp"`
	Hunger         float64         `json:"hunger"`
	Thirst         float64         `json:"thirst"`
	Specialization *job.SkillTrack `json:"specialization,omitempty"`
	X              int             `json:"x"`
	Y              int             `json:"y"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// Specialized reports whether the cat's specialization matches the track.
func (c *Cat) Specialized(track job.SkillTrack) bool {
	return c.Specialization != nil && *c.Specialization == track
}
