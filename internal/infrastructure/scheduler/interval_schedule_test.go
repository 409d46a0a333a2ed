package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestIntervalSchedule_Next(t *testing.T) {
	s := NewIntervalSchedule(5 * time.Minute)

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, now.Add(5*time.Minute), s.Next(now))
	assert.Equal(t, "@every 5m0s", s.String())
}

func TestDailySchedule_NextSameDay(t *testing.T) {
	s := NewDailySchedule(21, 30)

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	next := s.Next(now)

	assert.Equal(t, time.Date(2026, 3, 1, 21, 30, 0, 0, time.UTC), next)
}

func TestDailySchedule_RollsToNextDay(t *testing.T) {
	s := NewDailySchedule(6, 0)

	now := time.Date(2026, 3, 1, 6, 0, 0, 0, time.UTC)
	next := s.Next(now)

	// Exactly at the scheduled instant already counts as passed.
	assert.Equal(t, time.Date(2026, 3, 2, 6, 0, 0, 0, time.UTC), next)
}

func TestDailySchedule_ClampsOutOfRange(t *testing.T) {
	s := NewDailySchedule(99, -5)

	assert.Equal(t, 23, s.Hour)
	assert.Equal(t, 0, s.Minute)
}
