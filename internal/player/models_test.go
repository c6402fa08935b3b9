package player

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRegisterClickCountsWithinWindow(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	p := &Player{SessionID: "s1", Nickname: "whisker-fan"}

	assert.Equal(t, 1, p.RegisterClick(now, 60))
	assert.Equal(t, 2, p.RegisterClick(now.Add(10*time.Second), 60))
	assert.Equal(t, 3, p.RegisterClick(now.Add(59*time.Second), 60))
	assert.Equal(t, now, p.WindowStartedAt, "the window anchor holds until it expires")
	assert.Equal(t, 3, p.Clicks)
}

func TestRegisterClickRestartsExpiredWindow(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	p := &Player{SessionID: "s1"}

	p.RegisterClick(now, 60)
	p.RegisterClick(now.Add(30*time.Second), 60)

	later := now.Add(60 * time.Second)
	assert.Equal(t, 1, p.RegisterClick(later, 60), "a full window later the count restarts")
	assert.Equal(t, later, p.WindowStartedAt)
	assert.Equal(t, 3, p.Clicks, "lifetime clicks keep counting")
	assert.Equal(t, later, p.LastSeenAt)
}

func TestTouchOnlyMovesLastSeen(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	p := &Player{SessionID: "s1", ClicksInWindow: 4}

	p.Touch(now)

	assert.Equal(t, now, p.LastSeenAt)
	assert.Equal(t, 4, p.ClicksInWindow)
	assert.Equal(t, 0, p.Clicks)
}
