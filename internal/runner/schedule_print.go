package runner

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/evrokas/route-tracker/internal/config"
	"github.com/evrokas/route-tracker/internal/schedule"
)

var dayNames = map[int]string{
	1: "Monday", 2: "Tuesday", 3: "Wednesday", 4: "Thursday",
	5: "Friday", 6: "Saturday", 7: "Sunday",
}

// PrintSchedule writes the full materialized collection plan plus
// suggested cron lines for an external scheduler.
func PrintSchedule(cfg *config.Config, binPath string, out io.Writer) {
	full := schedule.FullSchedule(cfg)
	before := cfg.Collection.WindowBeforeMinutes
	after := cfg.Collection.WindowAfterMinutes

	fmt.Fprintf(out, "\n═══ Full Collection Schedule ═══\n\n")

	days := make([]int, 0, len(full))
	for day := range full {
		days = append(days, day)
	}
	sort.Ints(days)

	for _, day := range days {
		fmt.Fprintf(out, "%s:\n", dayNames[day])
		for _, slot := range full[day] {
			icon := "🚗"
			if slot.Mode == "arrive" {
				icon = "🏢"
			}
			fmt.Fprintf(out, "  %s %s (%s) — %s", icon, slot.Time, slot.Mode, slot.Label)
			if slot.Mode == "arrive" {
				fmt.Fprintf(out, " [collect ~%s]", slot.CollectAt)
			}
			fmt.Fprintln(out)
		}
		fmt.Fprintln(out)
	}

	fmt.Fprintf(out, "═══ Suggested Cron Lines ═══\n\n")

	type cronGroup struct {
		collectAt string
		label     string
		days      []int
	}
	groups := make(map[string]*cronGroup)
	var order []string

	for _, day := range days {
		for _, slot := range full[day] {
			key := slot.CollectAt + "|" + slot.Label
			g, ok := groups[key]
			if !ok {
				g = &cronGroup{collectAt: slot.CollectAt, label: slot.Label}
				groups[key] = g
				order = append(order, key)
			}
			g.days = append(g.days, day)
		}
	}

	for _, key := range order {
		g := groups[key]
		var h, m int
		fmt.Sscanf(g.collectAt, "%d:%d", &h, &m)

		// Minute marks covering the window at 5-minute steps.
		marks := make(map[int]bool)
		for off := -before; off <= after; off += 5 {
			marks[((m+off)%60+60)%60] = true
		}
		var minutes []int
		for mark := range marks {
			minutes = append(minutes, mark)
		}
		sort.Ints(minutes)

		minuteStrs := make([]string, len(minutes))
		for i, mark := range minutes {
			minuteStrs[i] = fmt.Sprint(mark)
		}
		dayStrs := make([]string, len(g.days))
		for i, d := range g.days {
			dayStrs[i] = fmt.Sprint(d)
		}

		fmt.Fprintf(out, "# %s\n", g.label)
		fmt.Fprintf(out, "%s %d * * %s %s\n\n",
			strings.Join(minuteStrs, ","), h, strings.Join(dayStrs, ","), binPath)
	}
}
