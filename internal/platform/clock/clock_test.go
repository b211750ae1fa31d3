package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestManual_SetAndAdvance(t *testing.T) {
	start := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	c := NewManual(start)

	assert.Equal(t, start, c.Now())

	c.Advance(24 * time.Hour)
	assert.Equal(t, start.Add(24*time.Hour), c.Now())

	pinned := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c.Set(pinned)
	assert.Equal(t, pinned, c.Now())
}

func TestSystem_TracksWallClock(t *testing.T) {
	c := NewSystem()
	before := time.Now()
	got := c.Now()
	after := time.Now()

	assert.False(t, got.Before(before))
	assert.False(t, got.After(after))
}
