// Package server contains HTTP and WebSocket handlers for the application's API endpoints.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	_ "recipeexchange/docs" // swagger docs
	"recipeexchange/internal/bootstrap"
	"recipeexchange/internal/config"
	"recipeexchange/internal/database"
	"recipeexchange/internal/mail"
	"recipeexchange/internal/middleware"
	"recipeexchange/internal/models"
	"recipeexchange/internal/notifications"
	"recipeexchange/internal/repository"
	"recipeexchange/internal/service"
	"recipeexchange/internal/storage"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/swagger"
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
	now            func() time.Time
	mailer         mail.Mailer
	images         storage.ImageStore
	notifier       *notifications.Notifier
	hub            *notifications.Hub
	authService    *service.AuthService
	recipeService  *service.RecipeService
	voteService    *service.VoteService
	savedService   *service.SavedRecipeService
	userService    *service.UserService
	uploadService  *service.UploadService
}

// NewServer creates a new server instance with all dependencies
func NewServer(cfg *config.Config) (*Server, error) {
	// A nil Redis client is fine: cache, rate limits and revocation degrade to no-ops.
	db, redisClient, err := bootstrap.InitRuntime(context.Background(), cfg, bootstrap.OptionsFromConfig(cfg))
	if err != nil {
		return nil, err
	}
	return NewServerWithDeps(cfg, db, redisClient)
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// Use this in tests or when a bootstrap layer establishes DB/Redis and optionally
// performs explicit seeding.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client) (*Server, error) {
	images, err := storage.New(context.Background(), cfg)
	if err != nil {
		return nil, fmt.Errorf("image storage setup failed: %w", err)
	}

	server := &Server{
		config:         cfg,
		db:             db,
		redis:          redisClient,
		promMiddleware: middleware.InitMetrics("recipe-exchange-api"),
		now:            time.Now,
		mailer:         mail.New(cfg),
		images:         images,
		notifier:       notifications.NewNotifier(redisClient),
		hub:            notifications.NewHub(),
	}

	userRepo := repository.NewUserRepository(db)
	server.authService = service.NewAuthService(userRepo)
	server.recipeService = service.NewRecipeService(db, service.NewProjector(db), server.notifier)
	server.voteService = service.NewVoteService(db, server.notifier)
	server.savedService = service.NewSavedRecipeService(db, server.notifier)
	server.userService = service.NewUserService(userRepo, repository.NewRecipeRepository(db))
	server.uploadService = service.NewUploadService(images, cfg.UploadMaxSizeMB)

	return server, nil
}

// NewApp builds the Fiber app with the error handler and limits used in production.
func (s *Server) NewApp() *fiber.App {
	maxMB := s.config.UploadMaxSizeMB
	if maxMB <= 0 {
		maxMB = service.DefaultUploadMaxSizeMB
	}

	return fiber.New(fiber.Config{
		AppName:      "Recipe Exchange API",
		BodyLimit:    (maxMB + 1) * 1024 * 1024,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			if fe, ok := err.(*fiber.Error); ok {
				return c.Status(fe.Code).JSON(models.ErrorResponse{Error: fe.Message})
			}
			middleware.Logger.ErrorContext(c.UserContext(), "unhandled error", slog.String("error", err.Error()))
			return models.RespondWithError(c, fiber.StatusInternalServerError,
				models.NewInternalError(err))
		},
	})
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	// Panic recovery
	app.Use(recover.New())

	// Request ID for tracing
	app.Use(requestid.New())

	app.Use(middleware.TracingMiddleware())

	// Session resolution must precede the context middleware so the user ID reaches logs.
	app.Use(s.SessionMiddleware())

	// Context Middleware to propagate Request ID and User ID
	app.Use(middleware.ContextMiddleware())

	// Prometheus Metrics
	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	// Security headers. Uploaded images are embedded by the frontend origin.
	app.Use(helmet.New(helmet.Config{
		CrossOriginResourcePolicy: "cross-origin",
	}))

	// Structured Logging middleware (after requestid and context middleware)
	app.Use(middleware.StructuredLogger())

	// CORS middleware should run before middlewares that can short-circuit (e.g. limiter)
	// so browser clients still receive CORS headers on error responses.
	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:4200,http://localhost:5173,http://127.0.0.1:4200"
	}

	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, Upgrade, Connection, Sec-WebSocket-Key, Sec-WebSocket-Version",
		AllowCredentials: true,
		MaxAge:           86400, // 24 hours
	}))

	// Global rate limiting (100 requests per minute per IP)
	app.Use(limiter.New(limiter.Config{
		Max:        100,
		Expiration: 1 * time.Minute,
		// Never rate-limit preflight requests; they should be handled by CORS.
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
	api := app.Group("/api")

	// Health checks
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)

	// Metrics endpoint for Prometheus
	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}
	api.Get("/metrics/dashboard", monitor.New(monitor.Config{
		Title: "Recipe Exchange Metrics Dashboard",
	}))

	// Swagger documentation
	api.Get("/swagger/*", swagger.HandlerDefault)

	// Locally stored uploads are served straight from disk.
	if local, ok := s.images.(*storage.LocalStore); ok {
		app.Static("/uploads", local.Dir(), fiber.Static{MaxAge: 86400})
	}

	// Auth routes
	auth := api.Group("/auth")
	auth.Post("/login", middleware.RateLimit(s.redis, middleware.Limit{Name: "login", Max: 10, Window: 5 * time.Minute}), s.Login)
	auth.Post("/register", middleware.RateLimit(s.redis, middleware.Limit{Name: "register", Max: 3, Window: 10 * time.Minute}), s.Register)
	auth.Post("/confirm-email", middleware.RateLimit(s.redis, middleware.Limit{Name: "confirm_email", Max: 10, Window: 15 * time.Minute}), s.ConfirmEmail)
	auth.Post("/resend-confirmation", middleware.RateLimit(s.redis, middleware.Limit{Name: "resend_confirmation", Max: 3, Window: 15 * time.Minute}), s.ResendConfirmation)
	auth.Post("/forgot-password", middleware.RateLimit(s.redis, middleware.Limit{Name: "forgot_password", Max: 3, Window: 15 * time.Minute}), s.ForgotPassword)
	auth.Post("/reset-password", middleware.RateLimit(s.redis, middleware.Limit{Name: "reset_password", Max: 5, Window: 15 * time.Minute}), s.ResetPassword)
	auth.Post("/logout", s.AuthRequired(), s.Logout)
	auth.Get("/me", s.AuthRequired(), s.Me)
	auth.Post("/change-email", s.AuthRequired(), middleware.RateLimit(s.redis, middleware.Limit{Name: "change_email", Max: 3, Window: 15 * time.Minute}), s.ChangeEmail)
	auth.Post("/confirm-email-change", s.AuthRequired(), s.ConfirmEmailChange)
	auth.Post("/change-password", s.AuthRequired(), middleware.RateLimit(s.redis, middleware.Limit{Name: "change_password", Max: 5, Window: 15 * time.Minute}), s.ChangePassword)
	auth.Put("/avatar", s.AuthRequired(), s.UpdateAvatar)
	auth.Put("/profile", s.AuthRequired(), s.UpdateProfile)

	// Recipe routes. Reads are public but annotated for signed-in viewers.
	recipes := api.Group("/recipes")
	recipes.Get("/categories", s.GetCategories)
	recipes.Get("/", s.GetRecipes)
	recipes.Get("/saved", s.AuthRequired(), s.GetSavedRecipes)
	recipes.Get("/:id", s.GetRecipe)
	recipes.Post("/", s.AuthRequired(), middleware.RateLimit(s.redis, middleware.Limit{Name: "create_recipe", Max: 10, Window: 5 * time.Minute}), s.CreateRecipe)
	recipes.Put("/:id", s.AuthRequired(), s.UpdateRecipe)
	recipes.Delete("/:id", s.AuthRequired(), s.DeleteRecipe)
	recipes.Post("/:id/vote", s.AuthRequired(), middleware.RateLimit(s.redis, middleware.Limit{Name: "vote", Max: 60, Window: time.Minute}), s.VoteRecipe)
	recipes.Post("/:id/save", s.AuthRequired(), middleware.RateLimit(s.redis, middleware.Limit{Name: "save", Max: 60, Window: time.Minute}), s.ToggleSaveRecipe)

	// User routes
	api.Get("/users/:username", s.GetUserProfile)

	// Upload routes
	api.Post("/upload", s.AuthRequired(), middleware.RateLimit(s.redis, middleware.Limit{Name: "upload", Max: 10, Window: time.Minute}), s.UploadImage)

	// WebSocket routes
	api.Get("/ws/recipes", s.websocketUpgradeRequired, s.RecipeFeedHandler())
}

// LivenessCheck handles liveness probe requests
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   s.now(),
	})
}

// ReadinessCheck handles readiness probe requests. Redis is optional, so only
// an unreachable database makes the service unready.
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	sqlDB, err := s.db.DB()
	if err != nil {
		dbStatus = "unhealthy"
	} else if err := sqlDB.PingContext(ctx); err != nil {
		dbStatus = "unhealthy"
	}

	redisStatus := "healthy"
	if s.redis != nil {
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "degraded"
		}
	} else {
		redisStatus = "disabled"
	}

	status := fiber.StatusOK
	overallStatus := "healthy"
	if dbStatus == "unhealthy" {
		status = fiber.StatusServiceUnavailable
		overallStatus = "unhealthy"
	}

	return c.Status(status).JSON(fiber.Map{
		"status": overallStatus,
		"checks": fiber.Map{
			"database": dbStatus,
			"redis":    redisStatus,
		},
		"time": s.now(),
	})
}

// startFeed connects the recipe feed hub to the notifier for the lifetime of ctx.
func (s *Server) startFeed(ctx context.Context) {
	if s.hub == nil {
		return
	}
	if err := s.hub.StartWiring(ctx, s.notifier); err != nil {
		middleware.Logger.Error("recipe feed wiring failed", slog.String("error", err.Error()))
	}
}

// Start starts the server
func (s *Server) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	s.shutdownCtx = ctx
	s.shutdownFn = cancel

	app := s.NewApp()
	s.app = app

	s.SetupMiddleware(app)
	s.SetupRoutes(app)

	s.startFeed(s.shutdownCtx)

	middleware.Logger.Info("Server starting", slog.String("port", s.config.Port))
	return app.Listen(":" + s.config.Port)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	// Cancel the server-scoped context to stop all wiring goroutines
	if s.shutdownFn != nil {
		s.shutdownFn()
	}

	// Shutdown the HTTP/WS server
	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			middleware.Logger.Error("error shutting down HTTP server", slog.String("error", err.Error()))
		}
	}

	if s.hub != nil {
		if err := s.hub.Shutdown(ctx); err != nil {
			middleware.Logger.Error("error closing recipe feed", slog.String("error", err.Error()))
		}
	}

	if err := database.Close(s.db); err != nil {
		middleware.Logger.Error("error closing database", slog.String("error", err.Error()))
	}

	// Close Redis connection
	if s.redis != nil {
		if rerr := s.redis.Close(); rerr != nil {
			middleware.Logger.Error("error closing redis", slog.String("error", rerr.Error()))
		}
	}

	middleware.Logger.Info("Server shutdown complete")
	return nil
}
