// The collector measures travel-time estimates for the configured
// routes and sends alerts when traffic is unusually heavy or a faster
// alternative exists.
//
// Usage:
//
//	collector                          collect routes inside their window
//	collector -force                   collect all routes now
//	collector -force -route=dad_work   force-collect one route
//	collector -test                    call the API, print, don't save
//	collector -schedule                print the weekly plan + cron lines
//	collector -stats                   print per-slot duration statistics
//	collector -test-alerts             send a test message to all channels
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/evrokas/route-tracker/internal/alert"
	"github.com/evrokas/route-tracker/internal/config"
	"github.com/evrokas/route-tracker/internal/db"
	"github.com/evrokas/route-tracker/internal/directions"
	"github.com/evrokas/route-tracker/internal/notify"
	"github.com/evrokas/route-tracker/internal/runner"
)

func main() {
	var (
		configDir  = flag.String("config", ".", "directory holding config.yaml, routes.yaml, alerts.yaml")
		force      = flag.Bool("force", false, "collect all routes regardless of schedule")
		test       = flag.Bool("test", false, "dry run: fetch and print, no persistence or alerts")
		testAlerts = flag.Bool("test-alerts", false, "send a test message through every enabled channel")
		printSched = flag.Bool("schedule", false, "print the full collection schedule and exit")
		printStats = flag.Bool("stats", false, "print per-slot duration statistics and exit")
		routeID    = flag.String("route", "", "restrict to one route id")
	)
	flag.Parse()

	cfg, err := config.Load(*configDir)
	if err != nil {
		log.Fatalf("Config error: %v", err)
	}

	if tz, err := time.LoadLocation(cfg.Timezone); err == nil {
		time.Local = tz
	} else {
		log.Printf("Warning: unknown timezone %q, using system default", cfg.Timezone)
	}

	dataDir := filepath.Join(cfg.BaseDir, "data")
	if err := os.MkdirAll(dataDir, 0o775); err != nil {
		log.Fatalf("Cannot create data directory: %v", err)
	}

	// Mirror everything to the append-only collector log.
	logFile, err := os.OpenFile(filepath.Join(dataDir, "collector.log"),
		os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		log.Fatalf("Cannot open log file: %v", err)
	}
	defer logFile.Close()
	log.SetOutput(io.MultiWriter(os.Stdout, logFile))

	if *printSched {
		bin, _ := os.Executable()
		runner.PrintSchedule(cfg, bin, os.Stdout)
		return
	}

	dispatcher := notify.NewDispatcher(
		notify.NewEmailChannel(cfg.Alerts.Email),
		notify.NewTelegramChannel(cfg.Alerts.Telegram),
		notify.NewViberChannel(cfg.Alerts.Viber),
		notify.NewSignalChannel(cfg.Alerts.Signal),
	)

	if *testAlerts {
		fmt.Println("Sending test alerts…")
		// The test-alert path needs no database; the rate limiter is
		// bypassed entirely.
		mgr := alert.NewManager(cfg, noLedger{}, dispatcher)
		mgr.SendTest(*routeID)
		fmt.Println("Done.")
		return
	}

	database, err := db.Open(cfg.DBPath())
	if err != nil {
		log.Fatalf("Database error: %v", err)
	}
	defer database.Close()

	ctx := context.Background()
	if err := database.EnsureSchema(ctx); err != nil {
		log.Fatalf("Database error: %v", err)
	}

	if *printStats {
		if err := runner.PrintStats(ctx, database, os.Stdout); err != nil {
			log.Fatalf("Stats query failed: %v", err)
		}
		return
	}

	mgr := alert.NewManager(cfg, database, dispatcher)
	client := directions.NewClient(cfg)
	run := runner.New(cfg, database, client, mgr, os.Stdout)

	if err := run.Run(ctx, runner.Options{
		Force:       *force,
		Test:        *test,
		RouteFilter: *routeID,
	}); err != nil {
		log.Fatalf("Run failed: %v", err)
	}
}

// noLedger satisfies alert.Ledger for modes that never rate-limit.
type noLedger struct{}

func (noLedger) AlertCount(context.Context, string, string) (int, error)  { return 0, nil }
func (noLedger) IncrementAlertCount(context.Context, string, string) error { return nil }
