package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/pressly/goose/v3"
	"github.com/rs/zerolog/log"

	"shelfie/internal/platform/database"
	"shelfie/internal/platform/logger"
)

func main() {
	var (
		command = flag.String("command", "up", "Migration command: up, down, status, version, create")
		name    = flag.String("name", "", "Name for 'create' command")
	)
	flag.Parse()

	loadEnvFiles()
	logger.Init(os.Getenv("APP_ENV"), os.Getenv("LOG_LEVEL"))

	dir := migrationsDir()

	if *command == "create" {
		if *name == "" {
			log.Fatal().Msg("name is required for 'create' command")
		}
		if err := goose.Create(nil, dir, *name, "sql"); err != nil {
			log.Fatal().Err(err).Msg("failed to create migration")
		}
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	pool, err := database.Open(ctx, databaseDSN())
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()

	migrator, err := database.NewMigrator(pool, os.DirFS(dir))
	if err != nil {
		log.Fatal().Err(err).Str("dir", dir).Msg("failed to load migrations")
	}
	defer migrator.Close()

	if err := run(ctx, migrator, *command, os.Stdout); err != nil {
		log.Fatal().Err(err).Str("command", *command).Msg("migration failed")
	}
}

func run(ctx context.Context, p *goose.Provider, command string, out io.Writer) error {
	switch command {
	case "up":
		results, err := p.Up(ctx)
		if err != nil {
			return err
		}
		for _, r := range results {
			log.Info().Int64("version", r.Source.Version).Str("path", r.Source.Path).Dur("duration", r.Duration).Msg("applied")
		}
		log.Info().Int("count", len(results)).Msg("migrations applied")
	case "down":
		r, err := p.Down(ctx)
		if err != nil {
			return err
		}
		log.Info().Int64("version", r.Source.Version).Msg("migration rolled back")
	case "status":
		statuses, err := p.Status(ctx)
		if err != nil {
			return err
		}
		for _, s := range statuses {
			applied := "pending"
			if !s.AppliedAt.IsZero() {
				applied = s.AppliedAt.Format(time.RFC3339)
			}
			fmt.Fprintf(out, "%-6d %-10s %s\n", s.Source.Version, applied, s.Source.Path)
		}
	case "version":
		v, err := p.GetDBVersion(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, v)
	default:
		return fmt.Errorf("unknown command %q: use up, down, status, version, create", command)
	}
	return nil
}
