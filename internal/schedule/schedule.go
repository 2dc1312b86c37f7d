// Package schedule decides which routes are due for collection at a
// given instant and materializes the full weekly collection plan.
package schedule

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/evrokas/route-tracker/internal/config"
)

// ArriveLeadMinutes is subtracted from an arrive-by time to estimate
// when collection should happen: 30 min assumed travel + 15 min buffer.
// It is a static estimate, not derived from historical travel time.
const ArriveLeadMinutes = 45

var dayMap = map[string]int{
	"mon": 1, "tue": 2, "wed": 3,
	"thu": 4, "fri": 5, "sat": 6, "sun": 7,
}

// Context is the resolved schedule context for one due route.
type Context struct {
	Mode          string // "depart" or "arrive"
	ScheduledTime string // the nominal HH:MM from the entry (baseline key)
	CollectAt     string // anchor time HH:MM
}

// DueRoute pairs a route with the context of its matching entry.
type DueRoute struct {
	Route config.Route
	Ctx   Context
}

// ParseDays parses a day-set specifier into ISO day numbers (1=Mon..7=Sun).
//
//	"Mon"          -> [1]
//	"Mon,Wed,Fri"  -> [1 3 5]
//	"Weekdays"     -> [1 2 3 4 5]
//	"Weekends"     -> [6 7]
//	"All"          -> [1 2 3 4 5 6 7]
func ParseDays(days string) []int {
	switch strings.ToLower(strings.TrimSpace(days)) {
	case "weekdays":
		return []int{1, 2, 3, 4, 5}
	case "weekends":
		return []int{6, 7}
	case "all":
		return []int{1, 2, 3, 4, 5, 6, 7}
	}

	var result []int
	seen := make(map[int]bool)
	for _, part := range strings.Split(days, ",") {
		part = strings.ToLower(strings.TrimSpace(part))
		if len(part) > 3 {
			part = part[:3]
		}
		if d, ok := dayMap[part]; ok && !seen[d] {
			seen[d] = true
			result = append(result, d)
		}
	}
	return result
}

// Resolve returns the schedule context for an entry, or false for an
// inert entry (neither depart nor arrive set).
func Resolve(entry config.ScheduleEntry) (Context, bool) {
	switch {
	case entry.Depart != "":
		return Context{Mode: "depart", ScheduledTime: entry.Depart, CollectAt: entry.Depart}, true
	case entry.Arrive != "":
		return Context{
			Mode:          "arrive",
			ScheduledTime: entry.Arrive,
			CollectAt:     estimateDeparture(entry.Arrive),
		}, true
	}
	return Context{}, false
}

// IsDue reports whether the route is inside a collection window at now.
// The first entry whose window matches wins; later entries are not
// evaluated. The comparison is on minute-of-day only: a window whose
// arithmetic crosses midnight is truncated at the day boundary, never
// wrapped.
func IsDue(route config.Route, now time.Time, before, after int) (Context, bool) {
	curDay := isoWeekday(now)
	cur := now.Hour()*60 + now.Minute()

	for _, entry := range route.Schedule {
		if !containsDay(ParseDays(entry.Days), curDay) {
			continue
		}
		ctx, ok := Resolve(entry)
		if !ok {
			continue
		}
		anchor := timeToMinutes(ctx.CollectAt)
		if cur >= anchor-before && cur <= anchor+after {
			return ctx, true
		}
	}
	return Context{}, false
}

// DueRoutes returns every route currently inside a collection window,
// with at most one context per route.
func DueRoutes(cfg *config.Config, now time.Time) []DueRoute {
	before := cfg.Collection.WindowBeforeMinutes
	after := cfg.Collection.WindowAfterMinutes

	var due []DueRoute
	for _, route := range cfg.Routes {
		if ctx, ok := IsDue(route, now, before, after); ok {
			due = append(due, DueRoute{Route: route, Ctx: ctx})
		}
	}
	return due
}

// ForcedContext builds a context from the route's first schedule entry,
// for forced runs where no real window check happens. Falls back to the
// current clock time when the route has no usable entry.
func ForcedContext(route config.Route, now time.Time) Context {
	for _, entry := range route.Schedule {
		if ctx, ok := Resolve(entry); ok {
			return ctx
		}
	}
	t := now.Format("15:04")
	return Context{Mode: "depart", ScheduledTime: t, CollectAt: t}
}

// Slot is one materialized (day, entry) pair of the weekly plan.
type Slot struct {
	RouteID   string
	Label     string
	Mode      string
	Time      string
	CollectAt string
}

// FullSchedule materializes every (day, entry) pair grouped by ISO day,
// sorted by collect-at time. Used to preview batch trigger times for an
// external scheduler.
func FullSchedule(cfg *config.Config) map[int][]Slot {
	schedule := make(map[int][]Slot)

	for _, route := range cfg.Routes {
		for _, entry := range route.Schedule {
			ctx, ok := Resolve(entry)
			if !ok {
				continue
			}
			for _, day := range ParseDays(entry.Days) {
				schedule[day] = append(schedule[day], Slot{
					RouteID:   route.ID,
					Label:     route.Label,
					Mode:      ctx.Mode,
					Time:      ctx.ScheduledTime,
					CollectAt: ctx.CollectAt,
				})
			}
		}
	}

	for day := range schedule {
		slots := schedule[day]
		sort.SliceStable(slots, func(i, j int) bool {
			return slots[i].CollectAt < slots[j].CollectAt
		})
	}
	return schedule
}

// estimateDeparture shifts an arrive-by time ArriveLeadMinutes earlier,
// wrapping past midnight for display.
func estimateDeparture(arrive string) string {
	m := timeToMinutes(arrive) - ArriveLeadMinutes
	m = ((m % 1440) + 1440) % 1440
	return fmt.Sprintf("%02d:%02d", m/60, m%60)
}

func timeToMinutes(t string) int {
	var h, m int
	fmt.Sscanf(t, "%d:%d", &h, &m)
	return h*60 + m
}

// isoWeekday maps time.Weekday to ISO numbering (1=Mon..7=Sun).
func isoWeekday(t time.Time) int {
	wd := int(t.Weekday())
	if wd == 0 {
		return 7
	}
	return wd
}

func containsDay(days []int, d int) bool {
	for _, x := range days {
		if x == d {
			return true
		}
	}
	return false
}
