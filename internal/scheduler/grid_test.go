package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewGridDefaultLayout(t *testing.T) {
	g := mustGrid(t, DefaultConstraints())

	assert.Len(t, g.Slots(), 25)
	assert.Equal(t, []time.Weekday{time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday}, g.Days())

	var labels []string
	for _, s := range g.Slots()[:5] {
		labels = append(labels, g.Label(s))
	}
	assert.Equal(t, []string{"09:00-10:00", "10:15-11:15", "13:00-14:00", "14:15-15:15", "15:30-16:30"}, labels)
	assert.Equal(t, "monday 09:00", g.Slots()[0].String())
}

func TestGridAdjacencyStopsAtLunch(t *testing.T) {
	g := mustGrid(t, DefaultConstraints())

	next, ok := g.Next(slot(time.Monday, "09:00"))
	require.True(t, ok)
	assert.Equal(t, slot(time.Monday, "10:15"), next)

	_, ok = g.Next(slot(time.Monday, "10:15"))
	assert.False(t, ok, "lunch separates the morning block")
	_, ok = g.Prev(slot(time.Monday, "13:00"))
	assert.False(t, ok)

	_, ok = g.Next(slot(time.Monday, "15:30"))
	assert.False(t, ok, "last period of the day has no successor")
}

func TestGridBlock(t *testing.T) {
	g := mustGrid(t, DefaultConstraints())

	block, ok := g.Block(slot(time.Tuesday, "13:00"), 3)
	require.True(t, ok)
	assert.Equal(t, []TimeSlot{slot(time.Tuesday, "13:00"), slot(time.Tuesday, "14:15"), slot(time.Tuesday, "15:30")}, block)
	assert.Equal(t, "13:00-16:30", g.SpanLabel(block))

	_, ok = g.Block(slot(time.Tuesday, "10:15"), 2)
	assert.False(t, ok)
	_, ok = g.Block(slot(time.Saturday, "09:00"), 1)
	assert.False(t, ok)
}

func TestGridParseSpan(t *testing.T) {
	g := mustGrid(t, DefaultConstraints())

	slots, err := g.ParseSpan("Monday", "13:00-15:15")
	require.NoError(t, err)
	assert.Equal(t, []TimeSlot{slot(time.Monday, "13:00"), slot(time.Monday, "14:15")}, slots)

	slots, err = g.ParseSpan("wed", "09:00")
	require.NoError(t, err)
	assert.Equal(t, []TimeSlot{slot(time.Wednesday, "09:00")}, slots)

	_, err = g.ParseSpan("monday", "09:30-10:30")
	assert.Error(t, err)
	_, err = g.ParseSpan("monday", "10:15-14:00")
	assert.Error(t, err, "span crosses lunch")
	_, err = g.ParseSpan("funday", "09:00-10:00")
	assert.Error(t, err)
}

func TestParseDay(t *testing.T) {
	cases := map[string]time.Weekday{
		"monday":     time.Monday,
		"TUE":        time.Tuesday,
		" thursday ": time.Thursday,
		"2025-03-03": time.Monday,
	}
	for raw, want := range cases {
		got, err := ParseDay(raw)
		require.NoError(t, err, raw)
		assert.Equal(t, want, got, raw)
	}

	_, err := ParseDay("mo")
	assert.Error(t, err)
}

func TestNewGridRejectsInvalidHours(t *testing.T) {
	c := DefaultConstraints()
	c.EndTime = "08:00"
	_, err := NewGrid(c)
	assert.ErrorIs(t, err, ErrInvalidGrid)

	c = DefaultConstraints()
	c.PeriodDuration = 0
	_, err = NewGrid(c)
	assert.ErrorIs(t, err, ErrInvalidGrid)

	c = DefaultConstraints()
	c.StartTime = "9am"
	_, err = NewGrid(c)
	assert.ErrorIs(t, err, ErrInvalidGrid)

	c = DefaultConstraints()
	c.Days = nil
	_, err = NewGrid(c)
	assert.ErrorIs(t, err, ErrInvalidGrid)
}

func TestNewGridWithoutLunch(t *testing.T) {
	c := DefaultConstraints()
	c.LunchBreakDuration = 0
	c.BreakDuration = 0
	c.Days = []time.Weekday{time.Friday, time.Monday, time.Friday}
	g := mustGrid(t, c)

	assert.Equal(t, []time.Weekday{time.Monday, time.Friday}, g.Days())
	assert.Len(t, g.Slots(), 16)
	block, ok := g.Block(slot(time.Monday, "09:00"), 8)
	require.True(t, ok)
	assert.Len(t, block, 8)
}
