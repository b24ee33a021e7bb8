//go:build integration

package seed

import (
	"context"
	"net/url"
	"os"
	"strings"
	"testing"

	"animeverse/internal/config"
	"animeverse/internal/database"
	"animeverse/internal/models"
)

func parseDatabaseURLToConfig(dsn string) (*config.Config, error) {
	u, err := url.Parse(dsn)
	if err != nil {
		return nil, err
	}
	password := ""
	if u.User != nil {
		password, _ = u.User.Password()
	}
	port := u.Port()
	if port == "" {
		port = "5432"
	}
	cfg := &config.Config{
		DBHost:       u.Hostname(),
		DBPort:       port,
		DBUser:       u.User.Username(),
		DBPassword:   password,
		DBName:       strings.TrimPrefix(u.Path, "/"),
		DBSSLMode:    "disable",
		Env:          "test",
		DBSchemaMode: "auto",
	}
	return cfg, nil
}

func TestIntegration_SeedPostgres(t *testing.T) {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set; skipping integration seed test")
	}
	cfg, err := parseDatabaseURLToConfig(dsn)
	if err != nil {
		t.Fatalf("failed parse dsn: %v", err)
	}
	db, err := database.Connect(cfg)
	if err != nil {
		t.Fatalf("db connect failed: %v", err)
	}
	if err := database.ApplySchema(context.Background(), db, cfg); err != nil {
		t.Fatalf("apply schema failed: %v", err)
	}

	opts := DefaultOptions()
	opts.ShouldClean = true
	opts.SkipBcrypt = true
	if err := Seed(db, opts); err != nil {
		t.Fatalf("Seed failed: %v", err)
	}

	var cnt int64
	if err := db.Model(&models.Post{}).Count(&cnt).Error; err != nil {
		t.Fatalf("count query failed: %v", err)
	}
	if cnt != int64(opts.NumPosts) {
		t.Fatalf("expected %d seeded posts, got %d", opts.NumPosts, cnt)
	}
}
