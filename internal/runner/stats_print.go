package runner

import (
	"context"
	"fmt"
	"io"

	"github.com/evrokas/route-tracker/internal/db"
)

// PrintStats writes the per-slot duration summary across the whole
// measurement history.
func PrintStats(ctx context.Context, database *db.DB, out io.Writer) error {
	slots, err := database.SlotStatistics(ctx)
	if err != nil {
		return err
	}

	if len(slots) == 0 {
		fmt.Fprintln(out, "No measurements collected yet.")
		return nil
	}

	fmt.Fprintf(out, "\n═══ Route Statistics ═══\n\n")
	lastRoute := ""
	for _, s := range slots {
		if s.RouteID != lastRoute {
			label := s.RouteLabel
			if label == "" {
				label = s.RouteID
			}
			fmt.Fprintf(out, "%s (%s):\n", label, s.RouteID)
			lastRoute = s.RouteID
		}
		fmt.Fprintf(out, "  %s %s: mean %.1f min, stddev %.1f min (%d samples)\n",
			dayNames[s.ScheduledDay], s.ScheduledTime,
			s.MeanSeconds/60, s.StdDevSeconds/60, s.Samples)
	}
	fmt.Fprintln(out)
	return nil
}
