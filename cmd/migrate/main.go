// Command migrate applies, inspects and rolls back the AnimeVerse schema.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"

	"animeverse/internal/bootstrap"
	"animeverse/internal/config"
	"animeverse/internal/database"

	"gorm.io/gorm"
)

const usageLine = "usage: go run ./cmd/migrate/main.go [-seed] <up|auto|status|list|down> [version]"

func main() {
	seedAfter := flag.Bool("seed", false, "load demo content after up/auto when there are no posts")
	flag.Parse()
	if flag.NArg() < 1 {
		log.Fatal(usageLine)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	db, err := database.Open(cfg)
	if err != nil {
		log.Fatalf("connect database: %v", err)
	}

	m := &migrator{db: db, cfg: cfg, out: os.Stdout, seed: *seedAfter}
	if err := m.run(context.Background(), flag.Args()); err != nil {
		log.Fatal(err)
	}
}

// migrator runs one schema command against db and reports to out.
type migrator struct {
	db   *gorm.DB
	cfg  *config.Config
	out  io.Writer
	seed bool
}

func (m *migrator) run(ctx context.Context, args []string) error {
	if len(args) < 1 {
		return errors.New(usageLine)
	}
	switch cmd := strings.ToLower(strings.TrimSpace(args[0])); cmd {
	case "up":
		if err := database.RunMigrations(ctx, m.db); err != nil {
			return fmt.Errorf("sql migrations failed: %w", err)
		}
		fmt.Fprintln(m.out, "sql migrations applied")
		return m.seedDemo()
	case "auto":
		cfg := *m.cfg
		cfg.DBSchemaMode = database.SchemaModeAuto
		if err := database.ApplySchema(ctx, m.db, &cfg); err != nil {
			return fmt.Errorf("auto schema apply failed: %w", err)
		}
		fmt.Fprintln(m.out, "automigrations applied")
		return m.seedDemo()
	case "status":
		return m.status(ctx)
	case "list":
		return m.list(ctx)
	case "down":
		return m.down(ctx, args[1:])
	default:
		return fmt.Errorf("unknown command %q\n%s", cmd, usageLine)
	}
}

func (m *migrator) seedDemo() error {
	if !m.seed {
		return nil
	}
	if err := bootstrap.SeedIfEmpty(m.db); err != nil {
		return fmt.Errorf("seed demo content: %w", err)
	}
	fmt.Fprintln(m.out, "demo content ready")
	return nil
}

func (m *migrator) status(ctx context.Context) error {
	status, err := database.GetSchemaStatus(ctx, m.db, m.cfg)
	if err != nil {
		return fmt.Errorf("schema status failed: %w", err)
	}
	fmt.Fprintf(m.out, "mode=%s env=%s run_sql=%t run_auto=%t applied=%d pending=%d\n",
		status.Mode, status.Environment, status.WillRunSQL, status.WillRunAutoMigrate,
		len(status.AppliedVersions), len(status.PendingMigrations))
	for _, p := range status.PendingMigrations {
		fmt.Fprintf(m.out, "pending: %s\n", p)
	}
	return nil
}

// list prints every embedded migration with its applied state.
func (m *migrator) list(ctx context.Context) error {
	applied, err := database.NewMigrationStore(m.db).GetAppliedMigrations(ctx)
	if err != nil {
		return err
	}
	done := make(map[int]bool, len(applied))
	for _, v := range applied {
		done[v] = true
	}
	for _, mig := range database.GetMigrations() {
		state := "pending"
		if done[mig.Version] {
			state = "applied"
		}
		fmt.Fprintf(m.out, "[%s] %s\n", state, mig)
	}
	return nil
}

// down rolls back the given version, or the newest applied one when none is given.
func (m *migrator) down(ctx context.Context, args []string) error {
	var version int
	if len(args) > 0 {
		v, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid version %q: %w", args[0], err)
		}
		version = v
	} else {
		applied, err := database.NewMigrationStore(m.db).GetAppliedMigrations(ctx)
		if err != nil {
			return err
		}
		if len(applied) == 0 {
			return errors.New("no applied migrations to roll back")
		}
		version = applied[len(applied)-1]
	}
	if err := database.RollbackMigration(ctx, m.db, version); err != nil {
		return fmt.Errorf("rollback failed: %w", err)
	}
	fmt.Fprintf(m.out, "rolled back migration %d\n", version)
	return nil
}
