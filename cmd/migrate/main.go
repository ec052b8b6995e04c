// Command migrate runs schema operations for the recipebox database.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"strings"

	"recipebox/internal/config"
	"recipebox/internal/database"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func usage() error {
	return fmt.Errorf("usage: go run ./cmd/migrate/main.go <auto|status>")
}

func run() error {
	flag.Parse()
	if flag.NArg() < 1 {
		return usage()
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}

	ctx := context.Background()
	switch strings.ToLower(strings.TrimSpace(flag.Arg(0))) {
	case "auto":
		// Connect skips automigration in production; run it explicitly here.
		if err := database.Migrate(db); err != nil {
			return fmt.Errorf("auto schema apply failed: %w", err)
		}
		log.Println("automigrations applied")
	case "status":
		status, err := database.GetSchemaStatus(ctx, db)
		if err != nil {
			return fmt.Errorf("schema status failed: %w", err)
		}
		log.Printf("driver=%s tables=%d missing=%d", status.Driver, len(status.Tables), status.Missing)
		for _, t := range status.Tables {
			log.Printf("%-14s exists=%t", t.Table, t.Exists)
		}
	default:
		return usage()
	}

	return nil
}
