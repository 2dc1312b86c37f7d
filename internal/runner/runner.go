// Package runner ties the collector together for one batch invocation:
// schedule evaluation, directions fetch, persistence, baseline lookup
// and alert dispatch.
package runner

import (
	"context"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/evrokas/route-tracker/internal/alert"
	"github.com/evrokas/route-tracker/internal/config"
	"github.com/evrokas/route-tracker/internal/db"
	"github.com/evrokas/route-tracker/internal/directions"
	"github.com/evrokas/route-tracker/internal/schedule"
)

// Options select the run mode for one invocation.
type Options struct {
	Force       bool   // process all routes regardless of schedule
	Test        bool   // dry run: fetch and print, no persistence, no alerts
	RouteFilter string // restrict forced/test runs to one route id
}

// Runner processes one batch of routes.
type Runner struct {
	cfg    *config.Config
	db     *db.DB
	client *directions.Client
	alerts *alert.Manager
	out    io.Writer
	now    func() time.Time
}

// New builds a runner. out receives the dry-run and schedule reports.
func New(cfg *config.Config, database *db.DB, client *directions.Client, alerts *alert.Manager, out io.Writer) *Runner {
	return &Runner{
		cfg:    cfg,
		db:     database,
		client: client,
		alerts: alerts,
		out:    out,
		now:    time.Now,
	}
}

// SetClock overrides the time source in tests.
func (r *Runner) SetClock(now func() time.Time) {
	r.now = now
}

// Run executes one batch. Per-route failures are logged and never abort
// the batch; an empty due set is a clean no-op.
func (r *Runner) Run(ctx context.Context, opts Options) error {
	var batch []schedule.DueRoute
	now := r.now()

	if opts.Force || opts.Test {
		routes := r.cfg.Routes
		if opts.RouteFilter != "" {
			route := r.cfg.GetRoute(opts.RouteFilter)
			if route == nil {
				return fmt.Errorf("route not found: %s", opts.RouteFilter)
			}
			routes = []config.Route{*route}
		}
		for _, route := range routes {
			batch = append(batch, schedule.DueRoute{
				Route: route,
				Ctx:   schedule.ForcedContext(route, now),
			})
		}
	} else {
		batch = schedule.DueRoutes(r.cfg, now)
		if len(batch) == 0 {
			log.Println("No active routes in collection window. Exiting.")
			return nil
		}
	}

	runID := uuid.New().String()
	for _, due := range batch {
		r.processRoute(ctx, runID, due.Route, due.Ctx, opts.Test)
	}
	return nil
}

// processRoute runs the fetch → persist → baseline → alert pipeline for
// one route. Nothing it does may propagate a failure to the caller.
func (r *Runner) processRoute(ctx context.Context, runID string, route config.Route, sctx schedule.Context, testMode bool) {
	log.Printf("Collecting: %s (%s)", route.ID, route.Label)

	result, err := r.client.Fetch(ctx, route.Origin, route.Destination, route.TravelMode)
	if err != nil {
		// Transport failure: nothing to persist.
		log.Printf("ERROR: directions call failed for %s: %v", route.ID, err)
		if !testMode {
			r.alerts.SendErrorAlert(route, fmt.Sprintf("Directions API call failed: %v", err))
		}
		return
	}

	if testMode {
		r.printTestResult(route, result.Response)
		return
	}

	now := r.now()
	collID, saved, err := r.db.SaveCollection(ctx, db.CollectionRecord{
		RunID:         runID,
		RouteID:       route.ID,
		RouteLabel:    route.Label,
		CollectedAt:   now,
		ScheduledDay:  isoWeekday(now),
		ScheduledTime: sctx.ScheduledTime,
		ScheduleMode:  sctx.Mode,
		Origin:        route.Origin,
		Destination:   route.Destination,
		TravelMode:    route.TravelMode,
		APIStatus:     result.Response.Status,
		RawResponse:   result.Raw,
	}, result.Response.Routes)
	if err != nil {
		log.Printf("ERROR: failed to save collection for %s: %v", route.ID, err)
		return
	}

	if result.Response.Status != "OK" {
		// Application-level failure: persisted above, alerted here.
		log.Printf("API status=%s for %s", result.Response.Status, route.ID)
		r.alerts.SendErrorAlert(route, "Directions API returned status: "+result.Response.Status)
		return
	}

	if len(saved) == 0 {
		log.Printf("Saved collection %d: no path candidates returned", collID)
		return
	}

	avg, hasAvg, err := r.db.HistoricalAverage(ctx, route.ID, isoWeekday(now),
		sctx.ScheduledTime, r.cfg.Alerts.Settings.MinSamplesForAlerts)
	if err != nil {
		log.Printf("ERROR: baseline query failed for %s: %v", route.ID, err)
		hasAvg = false
	}

	primary := saved[0]
	curDur := primary.EffectiveDuration()

	// Best alternative: minimum effective duration among the
	// non-primary candidates.
	var bestAlt *db.SavedRoute
	for i := range saved[1:] {
		cand := &saved[i+1]
		if bestAlt == nil || cand.EffectiveDuration() < bestAlt.EffectiveDuration() {
			bestAlt = cand
		}
	}

	var altInfo *alert.PathInfo
	bestAltDur := 0
	if bestAlt != nil {
		altInfo = &alert.PathInfo{Summary: bestAlt.Summary}
		bestAltDur = bestAlt.EffectiveDuration()
	}

	r.alerts.EvaluateAndAlert(ctx, route, sctx, curDur, avg, hasAvg,
		alert.PathInfo{Summary: primary.Summary}, altInfo, bestAltDur)

	if hasAvg {
		log.Printf("Saved collection %d: primary=%s %.1fmin (avg=%.1fmin)",
			collID, primary.Summary, float64(curDur)/60, float64(avg)/60)
	} else {
		log.Printf("Saved collection %d: primary=%s %.1fmin (no avg yet)",
			collID, primary.Summary, float64(curDur)/60)
	}
}

func (r *Runner) printTestResult(route config.Route, resp directions.Response) {
	fmt.Fprintf(r.out, "\n═════════════════════════════════════════\n")
	fmt.Fprintf(r.out, "Route: %s\n", route.Label)
	fmt.Fprintf(r.out, "Status: %s\n", resp.Status)
	fmt.Fprintf(r.out, "═════════════════════════════════════════\n")

	if resp.Status != "OK" {
		errMsg := resp.ErrorMessage
		if errMsg == "" {
			errMsg = "(none)"
		}
		fmt.Fprintf(r.out, "Error message: %s\n", errMsg)
		return
	}

	for i, cand := range resp.Routes {
		leg := cand.Leg0()
		label := "  ALT " + fmt.Sprint(i)
		if i == 0 {
			label = "★ PRIMARY"
		}
		traffic := "n/a"
		if leg.DurationInTraffic != nil {
			traffic = leg.DurationInTraffic.Text
		}
		summary := cand.Summary
		if summary == "" {
			summary = "(no summary)"
		}

		fmt.Fprintf(r.out, "\n%s: %s\n", label, summary)
		fmt.Fprintf(r.out, "  Distance:         %s\n", leg.Distance.Text)
		fmt.Fprintf(r.out, "  Duration:         %s\n", leg.Duration.Text)
		fmt.Fprintf(r.out, "  Traffic duration: %s\n", traffic)
		fmt.Fprintf(r.out, "  From: %s\n", leg.StartAddress)
		fmt.Fprintf(r.out, "  To:   %s\n", leg.EndAddress)
		for _, w := range cand.Warnings {
			fmt.Fprintf(r.out, "  ⚠ %s\n", w)
		}
	}
	fmt.Fprintln(r.out)
}

func isoWeekday(t time.Time) int {
	wd := int(t.Weekday())
	if wd == 0 {
		return 7
	}
	return wd
}
