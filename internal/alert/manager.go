// Package alert decides when a measurement warrants a notification and
// hands the formatted message to the channel dispatcher. Decisions are
// state-free; the only persistent state is the per-route per-day
// dispatch counter.
package alert

import (
	"context"
	"fmt"
	"log"
	"math"
	"strings"
	"time"

	"github.com/evrokas/route-tracker/internal/config"
	"github.com/evrokas/route-tracker/internal/notify"
	"github.com/evrokas/route-tracker/internal/schedule"
)

// MinSavingsSeconds is the floor under which a faster alternative is
// not worth an alert.
const MinSavingsSeconds = 120

// Ledger is the persisted per-route per-day dispatch counter.
type Ledger interface {
	AlertCount(ctx context.Context, date, routeID string) (int, error)
	IncrementAlertCount(ctx context.Context, date, routeID string) error
}

// Sender delivers a message through a set of named channels.
type Sender interface {
	Dispatch(names []string, subject, body, routeID string) []notify.Outcome
}

// PathInfo is what the message builders need to know about a path
// candidate.
type PathInfo struct {
	Summary string
}

// Manager evaluates alert rules and dispatches notifications.
type Manager struct {
	cfg        *config.Config
	ledger     Ledger
	dispatcher Sender
	now        func() time.Time
}

// NewManager wires the evaluator to its ledger and dispatcher.
func NewManager(cfg *config.Config, ledger Ledger, dispatcher Sender) *Manager {
	return &Manager{cfg: cfg, ledger: ledger, dispatcher: dispatcher, now: time.Now}
}

// SetClock overrides the time source in tests.
func (m *Manager) SetClock(now func() time.Time) {
	m.now = now
}

// EvaluateAndAlert applies both alert rules to one measurement and
// dispatches whatever fires. The two rules share the daily cap; the
// counter is checked and incremented per rule, in order, so a second
// rule in the same call sees the first one's increment. Returns the
// names of the alerts that fired.
func (m *Manager) EvaluateAndAlert(
	ctx context.Context,
	route config.Route,
	sctx schedule.Context,
	currentDuration int,
	avgDuration int,
	hasAvg bool,
	primary PathInfo,
	bestAlt *PathInfo,
	bestAltDuration int,
) []string {
	channels := m.cfg.AlertChannels(route)
	if len(channels) == 0 {
		return nil
	}
	settings := m.cfg.Alerts.Settings

	var fired []string

	// Rule 1: heavy traffic against the historical baseline, strict.
	if hasAvg && avgDuration > 0 &&
		float64(currentDuration) > float64(avgDuration)*(1+float64(settings.TrafficThresholdPercent)/100) {
		if m.canSend(ctx, route.ID, "heavy traffic") {
			pct := int(math.Round(float64(currentDuration-avgDuration) / float64(avgDuration) * 100))
			msg := m.buildHeavyTrafficMessage(route, sctx, currentDuration, avgDuration, pct)
			m.dispatcher.Dispatch(channels, "🚗🔴 Heavy Traffic Alert", msg, route.ID)
			m.increment(ctx, route.ID)
			fired = append(fired, "heavy_traffic")
		}
	}

	// Rule 2: a meaningfully faster alternative exists, strict floor.
	if bestAlt != nil && currentDuration-bestAltDuration > MinSavingsSeconds {
		if m.canSend(ctx, route.ID, "better route") {
			msg := m.buildBetterRouteMessage(route, currentDuration, primary, bestAltDuration, *bestAlt)
			m.dispatcher.Dispatch(channels, "🚗💡 Better Route Found", msg, route.ID)
			m.increment(ctx, route.ID)
			fired = append(fired, "better_route")
		}
	}

	return fired
}

// SendErrorAlert reports a transport or provider failure. It bypasses
// the rate limiter and thresholds entirely.
func (m *Manager) SendErrorAlert(route config.Route, errorMessage string) {
	channels := m.cfg.AlertChannels(route)
	if len(channels) == 0 {
		return
	}

	msg := fmt.Sprintf("⚠️ Route Tracker Error\n\nRoute: %s\nError: %s\nTime: %s",
		route.Label, errorMessage, m.now().Format("2006-01-02 15:04:05"))
	m.dispatcher.Dispatch(channels, "⚠️ Route Tracker Error", msg, route.ID)
}

// SendTest sends a synthetic message to every enabled channel of the
// targeted route, or of all routes when routeID is empty.
func (m *Manager) SendTest(routeID string) {
	routes := m.cfg.Routes
	if routeID != "" {
		r := m.cfg.GetRoute(routeID)
		if r == nil {
			log.Printf("Route not found: %s", routeID)
			return
		}
		routes = []config.Route{*r}
	}

	for _, route := range routes {
		channels := m.cfg.AlertChannels(route)
		if len(channels) == 0 {
			log.Printf("Route %s: no enabled alert channels", route.ID)
			continue
		}

		msg := fmt.Sprintf("🧪 Test Alert\n\nRoute: %s\nChannels: %s\nTime: %s\n\n"+
			"If you receive this, alerts are working correctly.",
			route.Label, strings.Join(channels, ", "), m.now().Format("2006-01-02 15:04:05"))

		log.Printf("Sending test to %v for: %s", channels, route.Label)
		m.dispatcher.Dispatch(channels, "🧪 Route Tracker Test", msg, route.ID)
	}
}

// canSend checks the shared daily cap. Suppression is a deliberate
// no-op, logged but never an error.
func (m *Manager) canSend(ctx context.Context, routeID, kind string) bool {
	today := m.now().Format("2006-01-02")
	count, err := m.ledger.AlertCount(ctx, today, routeID)
	if err != nil {
		log.Printf("Alert count read failed for %s: %v", routeID, err)
		return false
	}
	if count >= m.cfg.Alerts.Settings.MaxAlertsPerDay {
		log.Printf("Rate limit reached for route %s, suppressing %s alert", routeID, kind)
		return false
	}
	return true
}

func (m *Manager) increment(ctx context.Context, routeID string) {
	today := m.now().Format("2006-01-02")
	if err := m.ledger.IncrementAlertCount(ctx, today, routeID); err != nil {
		log.Printf("Alert count increment failed for %s: %v", routeID, err)
	}
}

func (m *Manager) buildHeavyTrafficMessage(route config.Route, sctx schedule.Context, cur, avg, pct int) string {
	return fmt.Sprintf("🚗🔴 Heavy Traffic Alert!\n\n"+
		"Route: %s\n"+
		"Scheduled: %s %s\n"+
		"Current: %.1f min (+%d%% above normal)\n"+
		"Average: %.1f min\n"+
		"Time: %s\n\n"+
		"Consider leaving earlier or using an alternative route.",
		route.Label, sctx.Mode, sctx.ScheduledTime,
		float64(cur)/60, pct, float64(avg)/60,
		m.now().Format("15:04"))
}

func (m *Manager) buildBetterRouteMessage(route config.Route, curDur int, primary PathInfo, altDur int, alt PathInfo) string {
	curName := primary.Summary
	if curName == "" {
		curName = "current route"
	}
	altName := alt.Summary
	if altName == "" {
		altName = "alternative"
	}

	return fmt.Sprintf("🚗💡 Better Route Found!\n\n"+
		"Route: %s\n"+
		"Current route (%s): %.1f min\n"+
		"Better route (%s): %.1f min\n"+
		"Savings: %.1f min\n"+
		"Time: %s",
		route.Label,
		curName, float64(curDur)/60,
		altName, float64(altDur)/60,
		float64(curDur-altDur)/60,
		m.now().Format("15:04"))
}
