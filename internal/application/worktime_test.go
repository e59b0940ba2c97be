package application_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/ericfisherdev/prreminder/internal/application"
)

// at returns a UTC instant in the week of Monday 2024-09-02.
func at(day time.Weekday, hour, minute int) time.Time {
	offset := int(day) - int(time.Monday)
	if day == time.Sunday {
		offset = 6
	}
	return time.Date(2024, 9, 2+offset, hour, minute, 0, 0, time.UTC)
}

var calendar = application.NewWorkCalendar(time.UTC)

func TestIsBusinessMoment(t *testing.T) {
	tests := []struct {
		name string
		t    time.Time
		want bool
	}{
		{"monday opening", at(time.Monday, 9, 0), true},
		{"monday before opening", at(time.Monday, 8, 59), false},
		{"friday last minute", at(time.Friday, 16, 59), true},
		{"closing hour is outside", at(time.Wednesday, 17, 0), false},
		{"saturday midday", at(time.Saturday, 12, 0), false},
		{"sunday midday", at(time.Sunday, 12, 0), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, calendar.IsBusinessMoment(tt.t))
		})
	}
}

func TestIsBusinessMoment_UsesBusinessLocation(t *testing.T) {
	pst := time.FixedZone("PST", -8*3600)
	cal := application.NewWorkCalendar(pst)

	// 17:30 UTC on Monday is 09:30 in PST.
	assert.True(t, cal.IsBusinessMoment(at(time.Monday, 17, 30)))
	assert.False(t, calendar.IsBusinessMoment(at(time.Monday, 17, 30)))
}

func TestElapsedBusinessSeconds(t *testing.T) {
	tests := []struct {
		name       string
		start, end time.Time
		want       int64
	}{
		{"end before start", at(time.Tuesday, 10, 0), at(time.Monday, 10, 0), 0},
		{"equal instants", at(time.Monday, 10, 0), at(time.Monday, 10, 0), 0},
		{"same morning", at(time.Monday, 9, 0), at(time.Monday, 10, 30), 5400},
		{"full day counted up to closing", at(time.Monday, 9, 0), at(time.Monday, 18, 0), 8 * 3600},
		{"spills into next morning", at(time.Monday, 9, 0), at(time.Tuesday, 10, 0), 9 * 3600},
		{"weekend contributes nothing", at(time.Friday, 9, 0), at(time.Sunday, 23, 0), 8 * 3600},
		{"friday evening to monday", at(time.Friday, 18, 0), at(time.Monday, 10, 0), 3600},
		{"start before opening skips that day", at(time.Monday, 8, 0), at(time.Monday, 12, 0), 0},
		{"start before opening counts next day", at(time.Monday, 8, 0), at(time.Tuesday, 10, 0), 3600},
		{"start on saturday", at(time.Saturday, 10, 0), at(time.Monday, 9, 30), 1800},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, calendar.ElapsedBusinessSeconds(tt.start, tt.end))
		})
	}
}

func TestElapsedBusinessSeconds_MonotonicWithinDay(t *testing.T) {
	start := at(time.Wednesday, 9, 0)
	var prev int64
	for end := start; !end.After(at(time.Wednesday, 17, 0)); end = end.Add(7 * time.Minute) {
		got := calendar.ElapsedBusinessSeconds(start, end)
		assert.GreaterOrEqual(t, got, prev, "elapsed decreased at %s", end)
		prev = got
	}
}

func TestElapsedBusinessSeconds_WeekendAddsNothing(t *testing.T) {
	start := at(time.Thursday, 11, 0)
	fridayClose := at(time.Friday, 17, 0)
	base := calendar.ElapsedBusinessSeconds(start, fridayClose)

	for _, end := range []time.Time{at(time.Saturday, 9, 0), at(time.Sunday, 16, 0), at(time.Sunday, 23, 59)} {
		assert.Equal(t, base, calendar.ElapsedBusinessSeconds(start, end))
	}
}

func TestElapsedWeekdays(t *testing.T) {
	tests := []struct {
		name       string
		start, end time.Time
		want       int
	}{
		{"end before start", at(time.Tuesday, 9, 0), at(time.Monday, 9, 0), 0},
		{"same day later", at(time.Monday, 9, 0), at(time.Monday, 9, 1), 1},
		{"monday to friday morning", at(time.Monday, 9, 0), at(time.Friday, 8, 0), 4},
		{"monday to friday after creation hour", at(time.Monday, 9, 0), at(time.Friday, 10, 0), 5},
		{"weekend cursors not counted", at(time.Saturday, 9, 0), at(time.Monday, 10, 0), 1},
		{"full week", at(time.Monday, 9, 0), at(time.Monday, 9, 0).AddDate(0, 0, 7), 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, calendar.ElapsedWeekdays(tt.start, tt.end))
		})
	}
}

func TestIsDueForRemoval(t *testing.T) {
	created := at(time.Monday, 9, 0)

	assert.False(t, calendar.IsDueForRemoval(created, at(time.Thursday, 16, 0)))
	assert.False(t, calendar.IsDueForRemoval(created, at(time.Friday, 9, 0)))
	assert.True(t, calendar.IsDueForRemoval(created, at(time.Friday, 9, 1)))
	assert.True(t, calendar.IsDueForRemoval(created, created.AddDate(0, 0, 7)))
}
