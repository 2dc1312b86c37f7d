// schema initializes (or, with -reset, wipes and recreates) the
// collector database. Run once before the first collection.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/evrokas/route-tracker/internal/config"
	"github.com/evrokas/route-tracker/internal/db"
)

func main() {
	var (
		configDir = flag.String("config", ".", "directory holding config.yaml, routes.yaml, alerts.yaml")
		reset     = flag.Bool("reset", false, "drop all tables and recreate (DELETES ALL DATA)")
		pruneDays = flag.Int("prune-days", 0, "delete collections older than N days and exit")
	)
	flag.Parse()

	cfg, err := config.Load(*configDir)
	if err != nil {
		log.Fatalf("Config error: %v", err)
	}

	dbPath := cfg.DBPath()
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o775); err != nil {
		log.Fatalf("Cannot create database directory: %v", err)
	}

	database, err := db.Open(dbPath)
	if err != nil {
		log.Fatalf("Cannot open database: %v", err)
	}
	defer database.Close()

	ctx := context.Background()
	if *pruneDays > 0 {
		deleted, err := database.PruneOlderThan(ctx, *pruneDays)
		if err != nil {
			log.Fatalf("Prune failed: %v", err)
		}
		fmt.Printf("Pruned %d collections older than %d days.\n", deleted, *pruneDays)
		return
	}
	if *reset {
		fmt.Println("⚠  RESET mode: dropping all tables…")
		if err := database.Reset(ctx); err != nil {
			log.Fatalf("Reset failed: %v", err)
		}
	} else if err := database.EnsureSchema(ctx); err != nil {
		log.Fatalf("Schema creation failed: %v", err)
	}

	fmt.Printf("Database ready.\nPath: %s\n", dbPath)
}
