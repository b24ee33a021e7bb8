// Package server contains the HTTP handlers of the public site and the operator API.
package server

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"animeverse/internal/admin"
	"animeverse/internal/bootstrap"
	"animeverse/internal/config"
	"animeverse/internal/database"
	"animeverse/internal/featureflags"
	"animeverse/internal/middleware"
	"animeverse/internal/models"
	"animeverse/internal/notifications"
	"animeverse/internal/repository"
	"animeverse/internal/service"
	"animeverse/internal/storage"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	db             *gorm.DB
	redis          *redis.Client
	app            *fiber.App
	promMiddleware *fiberprometheus.FiberPrometheus
	shutdownCtx    context.Context
	shutdownFn     context.CancelFunc

	store        storage.Storage
	images       *service.ImageService
	notifier     *notifications.Notifier
	featureFlags *featureflags.Manager
	admin        *admin.Admin

	blogService       *service.BlogService
	postService       *service.PostService
	taxonomyService   *service.TaxonomyService
	commentService    *service.CommentService
	newsletterService *service.NewsletterService
	contactService    *service.ContactService
	operatorService   *service.OperatorService
}

// NewServer creates a new server instance with all dependencies
func NewServer(cfg *config.Config) (*Server, error) {
	db, rdb, err := bootstrap.InitRuntime(cfg, bootstrap.Options{SeedDemoContent: cfg.SeedDemoContent})
	if err != nil {
		return nil, err
	}

	return NewServerWithDeps(cfg, db, rdb)
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// Use this in tests or when a bootstrap layer establishes DB/Redis.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client) (*Server, error) {
	store, err := storage.New(context.Background(), cfg)
	if err != nil {
		return nil, fmt.Errorf("media storage: %w", err)
	}

	middleware.InitMiddleware(cfg)

	userRepo := repository.NewUserRepository(db)
	postRepo := repository.NewPostRepository(db)
	categoryRepo := repository.NewCategoryRepository(db)
	tagRepo := repository.NewTagRepository(db)
	commentRepo := repository.NewCommentRepository(db)

	server := &Server{
		config:         cfg,
		db:             db,
		redis:          redisClient,
		promMiddleware: middleware.InitMetrics("animeverse-api"),
		store:          store,
		notifier:       notifications.NewNotifier(redisClient),
		featureFlags:   featureflags.NewManager(cfg.FeatureFlags),
		admin:          admin.New(db, admin.SiteConfigFrom(cfg)),
	}
	server.images = service.NewImageService(store, cfg, server.featureFlags)

	server.blogService = service.NewBlogService(postRepo, categoryRepo, tagRepo, commentRepo)
	server.postService = service.NewPostService(postRepo, categoryRepo, tagRepo, userRepo, server.images)
	server.taxonomyService = service.NewTaxonomyService(categoryRepo, tagRepo)
	server.commentService = service.NewCommentService(commentRepo, postRepo, server.notifier)
	server.newsletterService = service.NewNewsletterService(repository.NewNewsletterRepository(db), server.notifier)
	server.contactService = service.NewContactService(repository.NewContactRepository(db), server.notifier)
	server.operatorService = service.NewOperatorService(userRepo)

	return server, nil
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	// Panic recovery
	app.Use(recover.New())

	// Request ID for tracing
	app.Use(requestid.New())

	app.Use(middleware.TracingMiddleware())

	// Context Middleware to propagate Request ID and trace ID
	app.Use(middleware.ContextMiddleware())

	// Prometheus Metrics
	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	// Security headers
	app.Use(helmet.New())

	// Structured Logging middleware (after requestid and context middleware)
	app.Use(middleware.StructuredLogger())

	// CORS runs before the limiter so rejected requests still carry CORS headers.
	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:5173,http://localhost:3000,http://127.0.0.1:5173"
	}

	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: true,
		MaxAge:           86400, // 24 hours
	}))

	// Global rate limiting (100 requests per minute per IP)
	app.Use(limiter.New(limiter.Config{
		Max:        100,
		Expiration: 1 * time.Minute,
		Next: func(c *fiber.Ctx) bool {
			return c.Method() == fiber.MethodOptions
		},
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Too many requests, please try again later.",
			})
		},
	}))
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	// Health checks
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)

	// Metrics endpoint for Prometheus
	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}

	// Operator API
	api := app.Group("/admin/api")
	api.Post("/login", middleware.RateLimit(
		s.redis, 10, 5*time.Minute, "login"), s.Login)

	staff := api.Group("", middleware.OperatorRequired, middleware.StaffRequired)
	staff.Get("/metrics/dashboard", monitor.New(monitor.Config{
		Title: "AnimeVerse Metrics Dashboard",
	}))
	staff.Get("/site", s.GetSite)
	staff.Get("/resources", s.GetResources)
	staff.Post("/posts", s.CreatePost)
	staff.Put("/posts/:id", s.UpdatePost)
	staff.Delete("/posts/:id", s.DeletePost)
	staff.Post("/categories", s.CreateCategory)
	staff.Post("/tags", s.CreateTag)
	staff.Get("/:resource", s.ListResource)
	staff.Get("/:resource/:id", s.GetResource)
	staff.Patch("/:resource/:id", s.PatchResource)
	staff.Delete("/:resource/:id", s.DeleteResource)

	// Locally stored images
	if local, ok := s.store.(*storage.Local); ok {
		app.Static(s.mediaPrefix(), local.Root())
	}

	// Public site. Fixed prefixes must come before the catch-all post route.
	app.Get("/", s.Home)
	app.Get("/search", s.Search)
	app.Get("/archive", s.Archive)
	app.Get("/about", s.About)
	app.Get("/contact", s.ContactPage)
	app.Post("/contact", middleware.RateLimit(
		s.redis, 3, 10*time.Minute, "contact"), s.SubmitContact)
	app.Post("/newsletter", middleware.RateLimit(
		s.redis, 5, 10*time.Minute, "newsletter"), s.SubscribeNewsletter)
	app.Get("/category/:slug", s.CategoryPosts)
	app.Get("/tag/:slug", s.TagPosts)
	app.Get("/:slug", s.PostDetail)
	app.Post("/:slug", middleware.RateLimit(
		s.redis, 5, time.Minute, "comment"), s.SubmitComment)
}

func (s *Server) mediaPrefix() string {
	prefix := strings.TrimRight(s.config.MediaURL, "/")
	if !strings.HasPrefix(prefix, "/") {
		return "/media"
	}
	return prefix
}

// LivenessCheck handles liveness checks
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck handles readiness checks. Redis is optional: without it
// pages are served uncached.
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	if err := database.Ping(ctx, s.db); err != nil {
		dbStatus = "unhealthy"
	}

	redisStatus := "disabled"
	if s.redis != nil {
		redisStatus = "healthy"
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "unhealthy"
		}
	}

	status := fiber.StatusOK
	overallStatus := "healthy"
	if dbStatus == "unhealthy" || redisStatus == "unhealthy" {
		status = fiber.StatusServiceUnavailable
		overallStatus = "unhealthy"
	}

	return c.Status(status).JSON(fiber.Map{
		"status": overallStatus,
		"checks": fiber.Map{
			"database": dbStatus,
			"redis":    redisStatus,
		},
		"time": time.Now(),
	})
}

// newApp builds the Fiber app with middleware and routes installed.
func (s *Server) newApp() *fiber.App {
	bodyLimit := 4 * 1024 * 1024
	if s.config.ImageMaxUploadSizeMB > 0 {
		// two image fields plus the text fields
		bodyLimit = (2*s.config.ImageMaxUploadSizeMB + 1) * 1024 * 1024
	}

	app := fiber.New(fiber.Config{
		AppName:   "AnimeVerse",
		BodyLimit: bodyLimit,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			if fe, ok := err.(*fiber.Error); ok {
				return c.Status(fe.Code).JSON(models.ErrorResponse{Error: fe.Message})
			}
			log.Printf("Error: %v", err)
			return models.RespondWithError(c, fiber.StatusInternalServerError,
				models.NewInternalError(err))
		},
	})
	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	return app
}

// Start starts the server
func (s *Server) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	s.shutdownCtx = ctx
	s.shutdownFn = cancel

	s.app = s.newApp()

	// Only used by posts with deferred_image_processing enabled.
	s.images.StartBackgroundWorker(s.shutdownCtx)

	log.Printf("Server starting on port %s...", s.config.Port)
	return s.app.Listen(":" + s.config.Port)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	// Stops the image worker
	if s.shutdownFn != nil {
		s.shutdownFn()
	}

	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			log.Printf("error shutting down HTTP server: %v", err)
		}
	}

	// Close database connection
	if sqlDB, err := s.db.DB(); err == nil {
		if cerr := sqlDB.Close(); cerr != nil {
			log.Printf("error closing sql DB: %v", cerr)
		}
	}

	// Close Redis connection
	if s.redis != nil {
		if rerr := s.redis.Close(); rerr != nil {
			log.Printf("error closing redis: %v", rerr)
		}
	}

	log.Println("Server shutdown complete")
	return nil
}
