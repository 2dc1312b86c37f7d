package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evrokas/route-tracker/internal/config"
)

func TestParseDays(t *testing.T) {
	tests := []struct {
		in       string
		expected []int
	}{
		{"Mon", []int{1}},
		{"Mon,Wed,Fri", []int{1, 3, 5}},
		{"mon, wed , FRI", []int{1, 3, 5}},
		{"Weekdays", []int{1, 2, 3, 4, 5}},
		{"weekends", []int{6, 7}},
		{"All", []int{1, 2, 3, 4, 5, 6, 7}},
		{"Monday,Tuesday", []int{1, 2}},
		{"Mon,Mon", []int{1}},
		{"bogus", nil},
		{"", nil},
	}

	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			assert.Equal(t, tc.expected, ParseDays(tc.in))
		})
	}
}

func TestResolveArriveAnchor(t *testing.T) {
	ctx, ok := Resolve(config.ScheduleEntry{Days: "All", Arrive: "09:00"})
	require.True(t, ok)
	assert.Equal(t, "arrive", ctx.Mode)
	assert.Equal(t, "09:00", ctx.ScheduledTime)
	assert.Equal(t, "08:15", ctx.CollectAt) // arrive − 45 min exactly
}

func TestResolveDepartWinsOverArrive(t *testing.T) {
	ctx, ok := Resolve(config.ScheduleEntry{Days: "All", Depart: "08:00", Arrive: "09:00"})
	require.True(t, ok)
	assert.Equal(t, "depart", ctx.Mode)
	assert.Equal(t, "08:00", ctx.CollectAt)
}

func TestResolveInertEntry(t *testing.T) {
	_, ok := Resolve(config.ScheduleEntry{Days: "All"})
	assert.False(t, ok)
}

func TestResolveArriveWrapsPastMidnight(t *testing.T) {
	ctx, ok := Resolve(config.ScheduleEntry{Days: "All", Arrive: "00:30"})
	require.True(t, ok)
	assert.Equal(t, "23:45", ctx.CollectAt)
}

func TestIsDueWindow(t *testing.T) {
	route := config.Route{
		ID:       "home_work",
		Schedule: []config.ScheduleEntry{{Days: "All", Depart: "08:00"}},
	}

	// depart 08:00, before=15, after=5 → due exactly on [07:45, 08:05].
	tests := []struct {
		clock string
		due   bool
	}{
		{"07:44", false},
		{"07:45", true},
		{"07:50", true},
		{"08:00", true},
		{"08:05", true},
		{"08:06", false},
	}

	for _, tc := range tests {
		t.Run(tc.clock, func(t *testing.T) {
			now, err := time.Parse("2006-01-02 15:04", "2026-08-24 "+tc.clock) // a Monday
			require.NoError(t, err)
			_, due := IsDue(route, now, 15, 5)
			assert.Equal(t, tc.due, due)
		})
	}
}

func TestIsDueSecondsInsideMinuteStillDue(t *testing.T) {
	route := config.Route{
		ID:       "home_work",
		Schedule: []config.ScheduleEntry{{Days: "All", Depart: "08:00"}},
	}
	now, _ := time.Parse("2006-01-02 15:04:05", "2026-08-24 08:05:59")
	_, due := IsDue(route, now, 15, 5)
	assert.True(t, due)
}

func TestIsDueDayMatching(t *testing.T) {
	route := config.Route{
		ID:       "weekday_commute",
		Schedule: []config.ScheduleEntry{{Days: "Weekdays", Depart: "08:00"}},
	}

	monday, _ := time.Parse("2006-01-02 15:04", "2026-08-24 08:00")
	saturday, _ := time.Parse("2006-01-02 15:04", "2026-08-29 08:00")

	_, due := IsDue(route, monday, 15, 5)
	assert.True(t, due)
	_, due = IsDue(route, saturday, 15, 5)
	assert.False(t, due)
}

func TestIsDueFirstMatchingEntryWins(t *testing.T) {
	route := config.Route{
		ID: "double",
		Schedule: []config.ScheduleEntry{
			{Days: "All", Depart: "08:00"},
			{Days: "All", Depart: "08:10"},
		},
	}

	// 08:05 is inside both windows; the first entry's context wins.
	now, _ := time.Parse("2006-01-02 15:04", "2026-08-24 08:05")
	ctx, due := IsDue(route, now, 15, 5)
	require.True(t, due)
	assert.Equal(t, "08:00", ctx.ScheduledTime)
}

func TestIsDueNoMidnightWraparound(t *testing.T) {
	// Anchor 00:05 with before=15 would need minute −10; the window is
	// truncated at the day boundary, so 23:55 the night before is not
	// due.
	route := config.Route{
		ID:       "night",
		Schedule: []config.ScheduleEntry{{Days: "All", Depart: "00:05"}},
	}
	lateNight, _ := time.Parse("2006-01-02 15:04", "2026-08-24 23:55")
	_, due := IsDue(route, lateNight, 15, 5)
	assert.False(t, due)

	justAfter, _ := time.Parse("2006-01-02 15:04", "2026-08-24 00:00")
	_, due = IsDue(route, justAfter, 15, 5)
	assert.True(t, due)
}

func TestDueRoutesOneContextPerRoute(t *testing.T) {
	cfg := &config.Config{
		Collection: config.CollectionConfig{WindowBeforeMinutes: 15, WindowAfterMinutes: 5},
		Routes: []config.Route{
			{ID: "a", Schedule: []config.ScheduleEntry{{Days: "All", Depart: "08:00"}}},
			{ID: "b", Schedule: []config.ScheduleEntry{{Days: "All", Depart: "12:00"}}},
		},
	}

	now, _ := time.Parse("2006-01-02 15:04", "2026-08-24 07:50")
	due := DueRoutes(cfg, now)
	require.Len(t, due, 1)
	assert.Equal(t, "a", due[0].Route.ID)
}

func TestForcedContextFallsBackToClock(t *testing.T) {
	now, _ := time.Parse("2006-01-02 15:04", "2026-08-24 13:37")
	ctx := ForcedContext(config.Route{ID: "bare"}, now)
	assert.Equal(t, "13:37", ctx.ScheduledTime)
}

func TestFullScheduleGroupingAndOrder(t *testing.T) {
	cfg := &config.Config{
		Routes: []config.Route{
			{ID: "late", Label: "Late", Schedule: []config.ScheduleEntry{{Days: "Mon", Depart: "09:00"}}},
			{ID: "early", Label: "Early", Schedule: []config.ScheduleEntry{{Days: "Mon,Tue", Arrive: "08:00"}}},
		},
	}

	full := FullSchedule(cfg)
	require.Contains(t, full, 1)
	require.Contains(t, full, 2)

	monday := full[1]
	require.Len(t, monday, 2)
	// arrive 08:00 collects at 07:15, before the 09:00 depart.
	assert.Equal(t, "early", monday[0].RouteID)
	assert.Equal(t, "07:15", monday[0].CollectAt)
	assert.Equal(t, "late", monday[1].RouteID)

	assert.Len(t, full[2], 1)
}
