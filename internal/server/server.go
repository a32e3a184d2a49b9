// Package server contains HTTP handlers for the application's API endpoints.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"crowdfund/internal/cache"
	"crowdfund/internal/config"
	"crowdfund/internal/featureflags"
	"crowdfund/internal/middleware"
	"crowdfund/internal/models"
	"crowdfund/internal/notifications"
	"crowdfund/internal/policy"
	"crowdfund/internal/repository"
	"crowdfund/internal/rules"
	"crowdfund/internal/service"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const (
	localsUserID = "userID"
	localsClaims = "claims"
)

// Server holds all dependencies and provides handlers
type Server struct {
	config           *config.Config
	db               *gorm.DB
	redis            *redis.Client
	app              *fiber.App
	promMiddleware   *fiberprometheus.FiberPrometheus
	tokens           *middleware.TokenManager
	now              service.Clock
	userRepo         repository.UserRepository
	projectService   *service.ProjectService
	pledgeService    *service.PledgeService
	categoryService  *service.CategoryService
	favouriteService *service.FavouriteService
	userService      *service.UserService
	featureFlags     *featureflags.Manager
}

// NewServerWithDeps creates a Server on dependencies opened by the bootstrap
// runtime, which has already verified the sentinel category.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client) (*Server, error) {
	if cfg.SentinelCategory == "" {
		return nil, fmt.Errorf("sentinel category is not configured")
	}

	userRepo := repository.NewUserRepository(db)
	projectRepo := repository.NewProjectRepository(db)
	pledgeRepo := repository.NewPledgeRepository(db)
	categoryRepo := repository.NewCategoryRepository(db)
	favouriteRepo := repository.NewFavouriteRepository(db)

	pledgePolicy := rules.DefaultPledgePolicy()
	if cfg.MinPledgeAmount > 0 {
		pledgePolicy.MinAmount = cfg.MinPledgeAmount
	}
	pledgePolicy.AllowOwnerPledges = cfg.AllowOwnerPledges

	now := service.Clock(func() time.Time { return time.Now().UTC() })
	flags := featureflags.NewManager(cfg.FeatureFlags)
	if bad := flags.Invalid(); len(bad) > 0 {
		middleware.Logger.Warn("ignoring malformed feature flags", slog.Any("entries", bad))
	}

	return &Server{
		config:           cfg,
		db:               db,
		redis:            redisClient,
		promMiddleware:   middleware.InitMetrics("crowdfund-api"),
		tokens:           middleware.NewTokenManager(cfg.JWTSecret, time.Duration(cfg.JWTTTLHours)*time.Hour),
		now:              now,
		userRepo:         userRepo,
		projectService:   service.NewProjectService(projectRepo, categoryRepo, cfg.SentinelCategory, now),
		pledgeService:    service.NewPledgeService(pledgeRepo, pledgePolicy, now).
			WithFlags(flags).
			WithNotifier(notifications.NewNotifier(redisClient)),
		categoryService:  service.NewCategoryService(categoryRepo, redisClient, cfg.SentinelCategory, now),
		favouriteService: service.NewFavouriteService(favouriteRepo, projectRepo, now),
		userService:      service.NewUserService(userRepo, now),
		featureFlags:     flags,
	}, nil
}

// App builds the Fiber app with middleware and routes installed.
func (s *Server) App() *fiber.App {
	app := fiber.New(fiber.Config{
		AppName: "Crowdfund API",
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			if fe, ok := err.(*fiber.Error); ok {
				return c.Status(fe.Code).JSON(models.ErrorResponse{Error: fe.Message})
			}
			middleware.Logger.ErrorContext(c.UserContext(), "unhandled error", slog.String("error", err.Error()))
			return models.RespondWithError(c, fiber.StatusInternalServerError,
				models.NewInternalError(err))
		},
	})
	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	return app
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	app.Use(recover.New())
	app.Use(requestid.New())

	if s.config.TracingEnabled {
		app.Use(middleware.TracingMiddleware())
	}

	// Propagates request, user and trace IDs into the user context
	app.Use(middleware.ContextMiddleware())

	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	app.Use(helmet.New())
	app.Use(middleware.StructuredLogger())

	// CORS must run before middlewares that can short-circuit (e.g. limiter)
	// so browser clients still receive CORS headers on error responses.
	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:5173,http://localhost:3000,http://127.0.0.1:5173"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: true,
		MaxAge:           86400,
	}))

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
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)
	app.Get("/health", s.ReadinessCheck)

	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}

	api := app.Group("/api")

	auth := api.Group("/auth")
	auth.Post("/signup", middleware.RateLimit(s.redis, s.config.Env, 3, 10*time.Minute, "signup"), s.Signup)
	auth.Post("/login", middleware.RateLimit(s.redis, s.config.Env, 10, 5*time.Minute, "login"), s.Login)
	auth.Post("/logout", s.AuthRequired(), s.Logout)

	projects := api.Group("/projects")
	projects.Get("/", s.GetProjects)
	// /mine before the generic /:id
	projects.Get("/mine", s.AuthRequired(), s.GetMyProjects)
	projects.Post("/", s.AuthRequired(), middleware.RateLimit(s.redis, s.config.Env, 10, time.Hour, "create_project"), s.CreateProject)
	projects.Post("/:id/publish", s.AuthRequired(), s.PublishProject)
	projects.Get("/:id", s.GetProject)
	projects.Put("/:id", s.AuthRequired(), s.UpdateProject)
	projects.Patch("/:id", s.AuthRequired(), s.UpdateProject)
	projects.Delete("/:id", s.AuthRequired(), s.DeleteProject)

	pledges := api.Group("/pledges", s.AuthRequired())
	pledges.Get("/", s.GetPledges)
	pledges.Post("/", middleware.RateLimit(s.redis, s.config.Env, 30, time.Minute, "create_pledge"), s.CreatePledge)

	categories := api.Group("/categories")
	categories.Get("/", s.GetCategories)
	categories.Get("/:key", s.GetCategory)

	favourites := api.Group("/favourites", s.AuthRequired())
	favourites.Get("/", s.GetFavourites)
	favourites.Post("/", s.ToggleFavourite)

	users := api.Group("/users")
	// /me before the generic /:username
	users.Put("/me", s.AuthRequired(), s.UpdateMyProfile)
	users.Delete("/me", s.AuthRequired(), s.DeleteMyAccount)
	users.Get("/:username", s.GetUserProfile)

	api.Get("/feature-flags", s.AuthRequired(), s.GetFeatureFlags)
}

// LivenessCheck reports whether the process is up
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck reports whether the database and Redis are reachable
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), 5*time.Second)
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
			redisStatus = "unhealthy"
		}
	} else {
		// Redis is required for token revocation and rate limits
		redisStatus = "unavailable"
	}

	status := fiber.StatusOK
	overallStatus := "healthy"
	if dbStatus == "unhealthy" || redisStatus != "healthy" {
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

// revoked reports whether the token was logged out or its user deleted.
// Redis failures are logged and treated as not revoked.
func (s *Server) revoked(ctx context.Context, claims *middleware.Claims) bool {
	if revoked, err := cache.IsRevoked(ctx, s.redis, claims.JTI); err != nil {
		middleware.Logger.WarnContext(ctx, "revocation check failed", slog.String("error", err.Error()))
	} else if revoked {
		return true
	}
	revoked, err := cache.IsUserRevoked(ctx, s.redis, claims.UserID, claims.IssuedAt)
	if err != nil {
		middleware.Logger.WarnContext(ctx, "revocation check failed", slog.String("error", err.Error()))
	}
	return revoked
}

// AuthRequired returns the authentication middleware
func (s *Server) AuthRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		tokenString, err := middleware.BearerToken(c)
		if err != nil {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Authorization required"))
		}

		claims, err := s.tokens.Parse(tokenString)
		if err != nil {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError(err.Error()))
		}

		if s.revoked(c.UserContext(), claims) {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Token has been revoked"))
		}

		c.Locals(localsUserID, claims.UserID)
		c.Locals(localsClaims, claims)
		c.SetUserContext(middleware.WithUserID(c.UserContext(), claims.UserID))

		return c.Next()
	}
}

// caller returns the authenticated caller, or tries the optional bearer
// token on public routes. Invalid or revoked tokens yield the anonymous caller.
func (s *Server) caller(c *fiber.Ctx) policy.Caller {
	if id, ok := c.Locals(localsUserID).(uint); ok {
		return policy.Caller{ID: id}
	}

	tokenString, err := middleware.BearerToken(c)
	if err != nil {
		return policy.Anonymous
	}
	claims, err := s.tokens.Parse(tokenString)
	if err != nil {
		return policy.Anonymous
	}
	if s.revoked(c.UserContext(), claims) {
		return policy.Anonymous
	}
	c.SetUserContext(middleware.WithUserID(c.UserContext(), claims.UserID))
	return policy.Caller{ID: claims.UserID}
}

// Start starts the server
func (s *Server) Start() error {
	s.app = s.App()

	middleware.Logger.Info("server starting", slog.String("port", s.config.Port))
	return s.app.Listen(":" + s.config.Port)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			middleware.Logger.Error("error shutting down HTTP server", slog.String("error", err.Error()))
		}
	}

	if sqlDB, err := s.db.DB(); err == nil {
		if cerr := sqlDB.Close(); cerr != nil {
			middleware.Logger.Error("error closing sql DB", slog.String("error", cerr.Error()))
		}
	}

	if s.redis != nil {
		if rerr := s.redis.Close(); rerr != nil {
			middleware.Logger.Error("error closing redis", slog.String("error", rerr.Error()))
		}
	}

	middleware.Logger.Info("server shutdown complete")
	return nil
}
