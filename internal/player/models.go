package player

import (
	"time"
)

// Player is one visitor acting on the shared colony. Identity is the
// session ID minted with the visitor token; there are no accounts.
type Player struct {
	SessionID       string    `json:"session_id"`
	Nickname        string    `json:"nickname"`
	LastSeenAt      time.Time `json:"last_seen_at"`
	WindowStartedAt time.Time `json:"window_started_at"`
	ClicksInWindow  int       `json:"clicks_in_window"`

	// Lifetime contribution counters, shown on the dashboard.
	Clicks            int `json:"clicks"`
	JobsRequested     int `json:"jobs_requested"`
	UpgradesPurchased int `json:"upgrades_purchased"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// RegisterClick counts one click against the rolling window and returns
// how many clicks the window now holds, the input to the boost decay.
// The window restarts once it is older than windowSeconds.
func (p *Player) RegisterClick(now time.Time, windowSeconds int) int {
	window := time.Duration(windowSeconds) * time.Second
	if p.ClicksInWindow == 0 || now.Sub(p.WindowStartedAt) >= window {
		p.WindowStartedAt = now
		p.ClicksInWindow = 1
	} else {
		p.ClicksInWindow++
	}
	p.Clicks++
	p.LastSeenAt = now
	return p.ClicksInWindow
}

// Touch records plain activity without a click.
func (p *Player) Touch(now time.Time) {
	p.LastSeenAt = now
}
