package database

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"animeverse/internal/config"
	"animeverse/internal/middleware"

	"gorm.io/gorm"
)

// Schema modes selected by DB_SCHEMA_MODE.
const (
	SchemaModeHybrid = "hybrid"
	SchemaModeSQL    = "sql"
	SchemaModeAuto   = "auto"
)

// SchemaStatus describes what ApplySchema would do and which migrations are pending.
type SchemaStatus struct {
	Mode               string
	Environment        string
	WillRunSQL         bool
	WillRunAutoMigrate bool
	AppliedVersions    []int
	PendingMigrations  []Migration
}

func isProdLikeEnv(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "production", "prod", "staging", "stage":
		return true
	}
	return false
}

func schemaMode(cfg *config.Config) string {
	if mode := strings.ToLower(strings.TrimSpace(cfg.DBSchemaMode)); mode != "" {
		return mode
	}
	return SchemaModeHybrid
}

// schemaPolicy decides which of the two schema mechanisms run for cfg.
func schemaPolicy(cfg *config.Config) (runSQL bool, runAuto bool, err error) {
	prodLike := isProdLikeEnv(cfg.Env)

	switch mode := schemaMode(cfg); mode {
	case SchemaModeSQL:
		return true, false, nil
	case SchemaModeHybrid:
		return true, !prodLike, nil
	case SchemaModeAuto:
		if prodLike && !cfg.DBAutoMigrateAllowDestructive {
			return false, false, fmt.Errorf("refusing DB_SCHEMA_MODE=auto in %q without DB_AUTOMIGRATE_ALLOW_DESTRUCTIVE=true", cfg.Env)
		}
		return false, true, nil
	default:
		return false, false, fmt.Errorf("unsupported DB_SCHEMA_MODE %q", mode)
	}
}

// ApplySchema brings the schema up to date. "sql" runs the embedded migrations,
// "auto" runs GORM AutoMigrate, "hybrid" runs the migrations and, outside
// production-like environments, AutoMigrate on top.
func ApplySchema(ctx context.Context, db *gorm.DB, cfg *config.Config) error {
	runSQL, runAuto, err := schemaPolicy(cfg)
	if err != nil {
		return err
	}

	if runSQL {
		if err := RunMigrations(ctx, db); err != nil {
			return fmt.Errorf("run sql migrations: %w", err)
		}
	}
	if !runAuto {
		return nil
	}

	if cfg.DBAutoMigrateAllowDestructive && isProdLikeEnv(cfg.Env) {
		middleware.Logger.WarnContext(ctx, "AutoMigrate enabled in a production-like environment; review schema diffs before deploying")
	}
	middleware.Logger.InfoContext(ctx, "Running GORM AutoMigrate", slog.String("mode", schemaMode(cfg)), slog.String("env", cfg.Env))
	if err := db.WithContext(ctx).AutoMigrate(PersistentModels()...); err != nil {
		return fmt.Errorf("auto-migrate: %w", err)
	}
	return nil
}

// GetSchemaStatus reports the schema policy and pending migrations without changing anything.
func GetSchemaStatus(ctx context.Context, db *gorm.DB, cfg *config.Config) (*SchemaStatus, error) {
	runSQL, runAuto, err := schemaPolicy(cfg)
	if err != nil {
		return nil, err
	}

	status := &SchemaStatus{
		Mode:               schemaMode(cfg),
		Environment:        cfg.Env,
		WillRunSQL:         runSQL,
		WillRunAutoMigrate: runAuto,
	}
	if !runSQL {
		return status, nil
	}

	applied, err := NewMigrationStore(db).GetAppliedMigrations(ctx)
	if err != nil {
		return nil, err
	}
	status.AppliedVersions = applied

	done := make(map[int]bool, len(applied))
	for _, v := range applied {
		done[v] = true
	}
	for _, m := range GetMigrations() {
		if !done[m.Version] {
			status.PendingMigrations = append(status.PendingMigrations, m)
		}
	}
	return status, nil
}
