package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/nerrad567/theatre-core/internal/infrastructure/config"
	"github.com/nerrad567/theatre-core/internal/infrastructure/database"
	"github.com/nerrad567/theatre-core/migrations"
)

// runMigrate implements `theatre migrate [-config path] [status|up|down]`.
// The controller migrates up on start; this exists to inspect the schema
// and to roll back the latest migration before a downgrade.
func runMigrate(ctx context.Context, args []string, out io.Writer) error {
	flags := flag.NewFlagSet("migrate", flag.ContinueOnError)
	flags.SetOutput(out)
	configPath := flags.String("config", getConfigPath(), "Path to configuration file")
	if err := flags.Parse(args); err != nil {
		return err
	}

	action := "status"
	if flags.NArg() > 0 {
		action = flags.Arg(0)
	}
	switch action {
	case "status", "up", "down":
	default:
		return fmt.Errorf("unknown migrate action %q (want status, up or down)", action)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	db, err := database.Open(database.Config{
		Path:        cfg.Database.Path,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	switch action {
	case "up":
		if err := db.Migrate(ctx, migrations.FS); err != nil {
			return fmt.Errorf("running migrations: %w", err)
		}
	case "down":
		if err := db.MigrateDown(ctx, migrations.FS); err != nil {
			return fmt.Errorf("rolling back: %w", err)
		}
	}
	return printMigrationStatus(ctx, db, out)
}

func printMigrationStatus(ctx context.Context, db *database.DB, out io.Writer) error {
	applied, pending, err := db.MigrationStatus(ctx, migrations.FS)
	if err != nil {
		return fmt.Errorf("reading migration status: %w", err)
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "VERSION\tSTATE\tAPPLIED AT")
	for _, r := range applied {
		fmt.Fprintf(tw, "%s\tapplied\t%s\n", r.Version, r.AppliedAt.Format(time.RFC3339))
	}
	for _, m := range pending {
		fmt.Fprintf(tw, "%s\tpending\t-\n", m.Version)
	}
	return tw.Flush()
}
