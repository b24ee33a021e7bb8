// Package config provides application configuration loading and management.
package config

import (
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds application configuration values loaded from file or environment variables.
type Config struct {
	JWTSecret      string `mapstructure:"JWT_SECRET"`
	Port           string `mapstructure:"PORT"`
	Env            string `mapstructure:"APP_ENV"`
	AllowedOrigins string `mapstructure:"ALLOWED_ORIGINS"`
	FeatureFlags   string `mapstructure:"FEATURE_FLAGS"`

	DBHost                        string `mapstructure:"DB_HOST"`
	DBPort                        string `mapstructure:"DB_PORT"`
	DBUser                        string `mapstructure:"DB_USER"`
	DBPassword                    string `mapstructure:"DB_PASSWORD"`
	DBName                        string `mapstructure:"DB_NAME"`
	DBSSLMode                     string `mapstructure:"DB_SSLMODE"`
	DBReadHost                    string `mapstructure:"DB_READ_HOST"`
	DBReadPort                    string `mapstructure:"DB_READ_PORT"`
	DBReadUser                    string `mapstructure:"DB_READ_USER"`
	DBReadPassword                string `mapstructure:"DB_READ_PASSWORD"`
	DBMaxOpenConns                int    `mapstructure:"DB_MAX_OPEN_CONNS"`
	DBMaxIdleConns                int    `mapstructure:"DB_MAX_IDLE_CONNS"`
	DBConnMaxLifetimeMinutes      int    `mapstructure:"DB_CONN_MAX_LIFETIME_MINUTES"`
	DBSchemaMode                  string `mapstructure:"DB_SCHEMA_MODE"`
	DBAutoMigrateAllowDestructive bool   `mapstructure:"DB_AUTOMIGRATE_ALLOW_DESTRUCTIVE"`

	RedisURL string `mapstructure:"REDIS_URL"`

	StorageBackend string `mapstructure:"STORAGE_BACKEND"`
	MediaRoot      string `mapstructure:"MEDIA_ROOT"`
	MediaURL       string `mapstructure:"MEDIA_URL"`
	S3Endpoint     string `mapstructure:"S3_ENDPOINT"`
	S3Region       string `mapstructure:"S3_REGION"`
	S3Bucket       string `mapstructure:"S3_BUCKET"`
	S3AccessKey    string `mapstructure:"S3_ACCESS_KEY"`
	S3SecretKey    string `mapstructure:"S3_SECRET_KEY"`

	ImageMaxUploadSizeMB int `mapstructure:"IMAGE_MAX_UPLOAD_SIZE_MB"`
	ImageQuality         int `mapstructure:"IMAGE_QUALITY"`
	FeaturedMaxWidth     int `mapstructure:"FEATURED_MAX_WIDTH"`
	FeaturedMaxHeight    int `mapstructure:"FEATURED_MAX_HEIGHT"`
	ThumbnailMaxWidth    int `mapstructure:"THUMBNAIL_MAX_WIDTH"`
	ThumbnailMaxHeight   int `mapstructure:"THUMBNAIL_MAX_HEIGHT"`

	TracingEnabled      bool    `mapstructure:"TRACING_ENABLED"`
	TracingExporter     string  `mapstructure:"TRACING_EXPORTER"`
	OTLPEndpoint        string  `mapstructure:"OTLP_ENDPOINT"`
	TracingSamplerRatio float64 `mapstructure:"TRACING_SAMPLER_RATIO"`

	AdminSiteHeader     string `mapstructure:"ADMIN_SITE_HEADER"`
	AdminSiteTitle      string `mapstructure:"ADMIN_SITE_TITLE"`
	AdminSiteIndexTitle string `mapstructure:"ADMIN_INDEX_TITLE"`

	DevBootstrapRoot        bool   `mapstructure:"DEV_BOOTSTRAP_ROOT"`
	DevRootUsername         string `mapstructure:"DEV_ROOT_USERNAME"`
	DevRootEmail            string `mapstructure:"DEV_ROOT_EMAIL"`
	DevRootPassword         string `mapstructure:"DEV_ROOT_PASSWORD"`
	DevRootForceCredentials bool   `mapstructure:"DEV_ROOT_FORCE_CREDENTIALS"`

	// SeedDemoContent seeds generated reviews into an empty database on startup.
	SeedDemoContent bool `mapstructure:"SEED_DEMO_CONTENT"`
}

// LoadConfig loads application configuration from .env, config files and environment variables.
func LoadConfig() (*Config, error) {
	// A missing .env is the normal case outside local development.
	_ = godotenv.Load()

	viper.AddConfigPath(".")
	viper.AddConfigPath("..")
	viper.AddConfigPath("../..")
	viper.SetConfigName("config")
	viper.SetConfigType("yml")
	viper.AutomaticEnv()

	// The base config file is optional
	_ = viper.ReadInConfig()

	env := viper.GetString("APP_ENV")
	if env == "" {
		env = "development"
	}

	if env != "development" && env != "test" {
		viper.SetConfigName("config." + env)
		if err := viper.MergeInConfig(); err != nil {
			return nil, fmt.Errorf("required profile-specific config 'config.%s.yml' not found: %w", env, err)
		}
		log.Printf("Loaded profile-specific configuration: config.%s.yml", env)
	}

	setDefaults()

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}
	config.DBSSLMode = strings.ToLower(strings.TrimSpace(config.DBSSLMode))
	config.StorageBackend = strings.ToLower(strings.TrimSpace(config.StorageBackend))

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

func setDefaults() {
	viper.SetDefault("PORT", "8375")
	viper.SetDefault("APP_ENV", "development")
	viper.SetDefault("JWT_SECRET", "your-secret-key-change-in-production")
	viper.SetDefault("ALLOWED_ORIGINS", "http://localhost:5173,http://localhost:3000,http://127.0.0.1:5173")
	viper.SetDefault("FEATURE_FLAGS", "")

	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_USER", "user")
	viper.SetDefault("DB_PASSWORD", "password")
	viper.SetDefault("DB_NAME", "animeverse")
	viper.SetDefault("DB_SSLMODE", "disable")
	viper.SetDefault("DB_READ_HOST", "")
	viper.SetDefault("DB_READ_PORT", "5432")
	viper.SetDefault("DB_READ_USER", "user")
	viper.SetDefault("DB_READ_PASSWORD", "password")
	viper.SetDefault("DB_MAX_OPEN_CONNS", 25)
	viper.SetDefault("DB_MAX_IDLE_CONNS", 5)
	viper.SetDefault("DB_CONN_MAX_LIFETIME_MINUTES", 5)
	viper.SetDefault("DB_SCHEMA_MODE", "hybrid")

	viper.SetDefault("REDIS_URL", "localhost:6379")

	viper.SetDefault("STORAGE_BACKEND", "local")
	viper.SetDefault("MEDIA_ROOT", "/tmp/animeverse/media")
	viper.SetDefault("MEDIA_URL", "/media")
	viper.SetDefault("S3_REGION", "us-east-1")

	viper.SetDefault("IMAGE_MAX_UPLOAD_SIZE_MB", 10)
	viper.SetDefault("IMAGE_QUALITY", 85)
	viper.SetDefault("FEATURED_MAX_WIDTH", 1200)
	viper.SetDefault("FEATURED_MAX_HEIGHT", 600)
	viper.SetDefault("THUMBNAIL_MAX_WIDTH", 400)
	viper.SetDefault("THUMBNAIL_MAX_HEIGHT", 300)

	viper.SetDefault("TRACING_ENABLED", false)
	viper.SetDefault("TRACING_EXPORTER", "stdout")
	viper.SetDefault("TRACING_SAMPLER_RATIO", 1.0)

	viper.SetDefault("ADMIN_SITE_HEADER", "AnimeVerse Admin")
	viper.SetDefault("ADMIN_SITE_TITLE", "AnimeVerse Admin")
	viper.SetDefault("ADMIN_INDEX_TITLE", "Welcome to AnimeVerse Administration")

	viper.SetDefault("DEV_BOOTSTRAP_ROOT", false)
	viper.SetDefault("DEV_ROOT_USERNAME", "")
	viper.SetDefault("DEV_ROOT_EMAIL", "")
	viper.SetDefault("DEV_ROOT_PASSWORD", "")
	viper.SetDefault("DEV_ROOT_FORCE_CREDENTIALS", false)
	viper.SetDefault("SEED_DEMO_CONTENT", false)
}

// IsProduction reports whether the config targets a production environment.
func (c *Config) IsProduction() bool {
	return c.Env == "production" || c.Env == "prod"
}

// Validate ensures that required configuration values are present and meet security standards.
func (c *Config) Validate() error {
	if c.Port == "" {
		return errors.New("PORT is required")
	}
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}

	switch c.StorageBackend {
	case "", "local":
	case "s3":
		if c.S3Bucket == "" {
			return errors.New("S3_BUCKET is required when STORAGE_BACKEND=s3")
		}
	default:
		return fmt.Errorf("unsupported STORAGE_BACKEND %q", c.StorageBackend)
	}

	if c.ImageQuality < 0 || c.ImageQuality > 100 {
		return errors.New("IMAGE_QUALITY must be between 0 and 100")
	}

	if c.IsProduction() {
		if c.JWTSecret == "your-secret-key-change-in-production" {
			return errors.New("JWT_SECRET must be changed from the default value in production")
		}
		if len(c.JWTSecret) < 32 {
			return errors.New("JWT_SECRET must be at least 32 characters in production")
		}
		if c.DBPassword == "password" || c.DBPassword == "" {
			return errors.New("a strong DB_PASSWORD is required in production")
		}
		if c.DBSSLMode == "disable" || c.DBSSLMode == "" {
			log.Println("WARNING: DB_SSLMODE is 'disable' in production. It is highly recommended to use SSL for database connections.")
		}
		if c.AllowedOrigins == "*" {
			log.Println("WARNING: ALLOWED_ORIGINS is set to '*' in production. This is insecure.")
		}
	} else if len(c.JWTSecret) < 32 {
		log.Println("WARNING: JWT_SECRET is shorter than 32 characters. Consider using a stronger secret for production.")
	}

	return nil
}
