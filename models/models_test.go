package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTimeSlot(t *testing.T) {
	cases := map[string]TimeSlot{
		"10:00 AM":   "10:00 AM",
		"10:00am":    "10:00 AM",
		"8:00 am":    "08:00 AM",
		"14:00":      "02:00 PM",
		"18:00":      "06:00 PM",
		" 12:00 PM ": "12:00 PM",
	}
	for in, want := range cases {
		got, err := ParseTimeSlot(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	for _, bad := range []string{"", "10:30 AM", "09:00", "25:00", "noon"} {
		_, err := ParseTimeSlot(bad)
		assert.Error(t, err, bad)
	}
}

func TestTimeSlotOn(t *testing.T) {
	loc, err := time.LoadLocation("Australia/Sydney")
	require.NoError(t, err)

	day, err := ParseDate("2025-03-01", loc)
	require.NoError(t, err)

	at := TimeSlot("10:00 AM").On(day, loc)
	assert.Equal(t, 10, at.Hour())
	assert.Equal(t, time.March, at.Month())
	assert.Equal(t, loc, at.Location())
}

func TestStatusTransitions(t *testing.T) {
	assert.True(t, StatusPending.CanTransitionTo(StatusConfirmed))
	assert.True(t, StatusPending.CanTransitionTo(StatusCancelled))
	assert.False(t, StatusPending.CanTransitionTo(StatusCompleted))
	assert.True(t, StatusConfirmed.CanTransitionTo(StatusCompleted))
	assert.True(t, StatusConfirmed.CanTransitionTo(StatusCancelled))

	for _, s := range []BookingStatus{StatusCompleted, StatusCancelled} {
		assert.True(t, s.IsTerminal())
		assert.False(t, s.IsActive())
		assert.False(t, s.CanTransitionTo(StatusCancelled))
	}

	assert.ElementsMatch(t, []BookingStatus{StatusPending, StatusConfirmed}, SourcesFor(StatusCancelled))
	assert.ElementsMatch(t, []BookingStatus{StatusConfirmed}, SourcesFor(StatusCompleted))
}

func TestTransmissionServes(t *testing.T) {
	assert.True(t, TransmissionManual.Serves(""))
	assert.True(t, TransmissionBoth.Serves(TransmissionAutomatic))
	assert.True(t, TransmissionAutomatic.Serves(TransmissionAutomatic))
	assert.False(t, TransmissionAutomatic.Serves(TransmissionManual))
}

func TestParseLessonKind(t *testing.T) {
	k, ok := ParseLessonKind(" trial ")
	assert.True(t, ok)
	assert.Equal(t, LessonTrial, k)
	assert.Equal(t, 30, k.DurationMinutes())
	assert.Equal(t, 60, LessonStandard.DurationMinutes())

	_, ok = ParseLessonKind("intensive")
	assert.False(t, ok)
}
