package bootstrap

import (
	"errors"
	"fmt"
	"log"
	"strings"

	"animeverse/internal/cache"
	"animeverse/internal/config"
	"animeverse/internal/database"
	"animeverse/internal/models"
	"animeverse/internal/seed"

	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Options control runtime initialization behavior.
type Options struct {
	// SeedDemoContent fills an empty database with generated reviews.
	SeedDemoContent bool
}

// InitRuntime connects to DB and Redis and optionally seeds demo content.
func InitRuntime(cfg *config.Config, opts Options) (*gorm.DB, *redis.Client, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("database connection failed: %w", err)
	}

	// Init Redis (may result in nil client if unreachable)
	cache.InitRedis(cfg.RedisURL)
	r := cache.GetClient()

	if err := ensureDevRootOperator(cfg, db); err != nil {
		return nil, nil, fmt.Errorf("failed to bootstrap development root operator: %w", err)
	}

	if opts.SeedDemoContent {
		if err := SeedIfEmpty(db); err != nil {
			return nil, nil, fmt.Errorf("failed to seed demo content: %w", err)
		}
	}

	return db, r, nil
}

// SeedIfEmpty loads the demo content when no posts exist yet.
func SeedIfEmpty(db *gorm.DB) error {
	var posts int64
	if err := db.Model(&models.Post{}).Count(&posts).Error; err != nil {
		return err
	}
	if posts > 0 {
		return nil
	}
	return seed.Seed(db, seed.DefaultOptions())
}

func ensureDevRootOperator(cfg *config.Config, db *gorm.DB) error {
	if cfg == nil || db == nil {
		return nil
	}
	if !strings.EqualFold(cfg.Env, "development") || !cfg.DevBootstrapRoot {
		return nil
	}

	username := strings.TrimSpace(cfg.DevRootUsername)
	if username == "" {
		username = "animeverse_root"
	}
	email := strings.TrimSpace(strings.ToLower(cfg.DevRootEmail))
	if email == "" {
		email = "root@animeverse.local"
	}
	password := cfg.DevRootPassword
	if password == "" {
		return fmt.Errorf("DEV_ROOT_PASSWORD must be set when DEV_BOOTSTRAP_ROOT is enabled")
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash root password: %w", err)
	}

	if err := db.Transaction(func(tx *gorm.DB) error {
		var root models.User
		findErr := tx.Where("username = ?", username).First(&root).Error
		switch {
		case errors.Is(findErr, gorm.ErrRecordNotFound):
			root = models.User{
				Username: username,
				Email:    email,
				Password: string(hashedPassword),
				IsStaff:  true,
			}
			return tx.Create(&root).Error
		case findErr != nil:
			return findErr
		default:
			updates := map[string]any{"is_staff": true}
			if cfg.DevRootForceCredentials {
				updates["email"] = email
				updates["password"] = string(hashedPassword)
			}
			return tx.Model(&models.User{}).Where("id = ?", root.ID).Updates(updates).Error
		}
	}); err != nil {
		return err
	}

	log.Printf("development root operator ensured (%s)", username)
	return nil
}
