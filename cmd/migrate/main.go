package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/facturo/facturo/internal/config"
	"github.com/facturo/facturo/internal/logger"
	"github.com/facturo/facturo/internal/postgres"
)

func main() {
	// Parse command line flags
	dryRun := flag.Bool("dry-run", false, "Print schema SQL without executing it")
	flag.Parse()

	if *dryRun {
		if err := postgres.WriteSchema(os.Stdout); err != nil {
			log.Fatalf("Failed to write schema: %v", err)
		}
		return
	}

	// Load configuration
	cfg, err := config.NewConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	logger, err := logger.NewLogger(cfg)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}

	// the schema is applied explicitly below
	cfg.Postgres.AutoMigrate = false

	logger.Infow("Connecting to database", "driver", cfg.Postgres.Driver, "host", cfg.Postgres.Host)
	db, err := postgres.NewDB(cfg, logger)
	if err != nil {
		logger.Fatalw("Failed to connect to database", "error", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	logger.Info("Running database migrations...")
	if err := db.EnsureSchema(ctx); err != nil {
		logger.Fatalw("Failed to create schema resources", "error", err)
	}
	logger.Info("Migration completed successfully")

	fmt.Println("Migration process completed")
}
