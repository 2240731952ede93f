// Package server contains HTTP and WebSocket handlers for the application's API endpoints.
package server

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"socialhub/internal/bootstrap"
	"socialhub/internal/config"
	"socialhub/internal/featureflags"
	"socialhub/internal/middleware"
	"socialhub/internal/models"
	"socialhub/internal/notifications"
	"socialhub/internal/observability"
	"socialhub/internal/repository"
	"socialhub/internal/service"
	"socialhub/internal/store"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/redis/go-redis/v9"
)

const (
	bodyLimit     = 12 * 1024 * 1024
	globalRPM     = 300
	readyTimeout  = 5 * time.Second
	serviceName   = "socialhub-api"
	uploadsPrefix = "/" + service.PublicUploadPrefix
)

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	store          store.Store
	redis          *redis.Client
	app            *fiber.App
	promMiddleware *fiberprometheus.FiberPrometheus
	shutdownCtx    context.Context
	shutdownFn     context.CancelFunc

	userRepo    repository.UserRepository
	postRepo    repository.PostRepository
	commentRepo repository.CommentRepository
	notifRepo   repository.NotificationRepository

	auth        *middleware.JWTAuth
	flags       *featureflags.Manager
	rateLimiter *middleware.RateLimiter
	notifier    *notifications.Notifier
	hub         *notifications.Hub
	dispatcher  *notifications.Dispatcher

	media               *service.MediaService
	userService         *service.UserService
	postService         *service.PostService
	commentService      *service.CommentService
	feedService         *service.FeedService
	notificationService *service.NotificationService
}

// NewServer connects the configured store and Redis and builds a Server on
// top of them.
func NewServer(cfg *config.Config) (*Server, error) {
	st, rdb, err := bootstrap.InitRuntime(context.Background(), cfg)
	if err != nil {
		return nil, err
	}
	return NewServerWithDeps(cfg, st, rdb)
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// rdb may be nil: realtime messages then go straight to the local hub, logout
// is a no-op and rate limits are kept in process.
func NewServerWithDeps(cfg *config.Config, st store.Store, rdb *redis.Client) (*Server, error) {
	if cfg == nil || st == nil {
		return nil, errors.New("server: config and store are required")
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		config:         cfg,
		store:          st,
		redis:          rdb,
		promMiddleware: middleware.InitMetrics(serviceName),
		shutdownCtx:    ctx,
		shutdownFn:     cancel,
		userRepo:       repository.NewUserRepository(st),
		postRepo:       repository.NewPostRepository(st),
		commentRepo:    repository.NewCommentRepository(st),
		notifRepo:      repository.NewNotificationRepository(st),
		auth:           middleware.NewJWTAuth(cfg, rdb),
		flags:          featureflags.NewManager(cfg.FeatureFlags),
		rateLimiter: middleware.NewRateLimiter(rdb,
			middleware.ParseFailPolicy(cfg.RateLimitPolicy), cfg.RateLimitDisabled),
		hub:   notifications.NewHub(),
		media: service.NewMediaService(cfg),
	}

	urls := service.NewURLBuilder(cfg.BaseURL)

	var publisher service.RealtimePublisher = s.hub
	if rdb != nil {
		s.notifier = notifications.NewNotifier(rdb)
		publisher = s.notifier
	}

	publisher = flaggedPublisher{flags: s.flags, next: publisher}

	s.notificationService = service.NewNotificationService(s.notifRepo, s.userRepo, s.postRepo, publisher, urls)
	s.dispatcher = notifications.NewDispatcher(s.notificationService.HandleEngagement,
		cfg.DispatchWorkers, cfg.DispatchQueueSize)
	s.userService = service.NewUserService(s.userRepo, urls)
	s.postService = service.NewPostService(s.postRepo, s.dispatcher, urls)
	s.commentService = service.NewCommentService(s.commentRepo, s.postRepo, s.userRepo, s.dispatcher, urls)
	s.feedService = service.NewFeedService(s.postRepo, s.userRepo, urls)

	return s, nil
}

// PostService exposes the like/share service to in-process callers such as the seeder.
func (s *Server) PostService() *service.PostService { return s.postService }

// CommentService exposes the comment service to in-process callers.
func (s *Server) CommentService() *service.CommentService { return s.commentService }

// UserService exposes the account service to in-process callers.
func (s *Server) UserService() *service.UserService { return s.userService }

// MediaService exposes upload storage to in-process callers.
func (s *Server) MediaService() *service.MediaService { return s.media }

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	app.Use(recover.New())
	app.Use(requestid.New())

	if s.config.TracingEnabled {
		app.Use(middleware.TracingMiddleware())
	}

	// Context Middleware to propagate Request ID and Trace ID
	app.Use(middleware.ContextMiddleware())

	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	// Uploaded media is rendered cross-origin by the web client.
	app.Use(helmet.New(helmet.Config{
		CrossOriginResourcePolicy: "cross-origin",
	}))

	app.Use(middleware.StructuredLogger())

	// CORS runs before the limiter so error responses still carry CORS headers.
	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:5173,http://localhost:3000"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, Upgrade, Connection, Sec-WebSocket-Key, Sec-WebSocket-Version",
		AllowCredentials: origins != "*",
		MaxAge:           86400,
	}))

	if !s.config.RateLimitDisabled {
		app.Use(limiter.New(limiter.Config{
			Max:        globalRPM,
			Expiration: time.Minute,
			Next: func(c *fiber.Ctx) bool {
				return c.Method() == fiber.MethodOptions
			},
			KeyGenerator: func(c *fiber.Ctx) string {
				return c.IP()
			},
			LimitReached: func(c *fiber.Ctx) error {
				return c.Status(fiber.StatusTooManyRequests).JSON(models.ErrorResponse{
					Error: "Too many requests, please try again later.",
					Code:  "RATE_LIMITED",
				})
			},
		}))
	}
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)

	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}

	app.Static(uploadsPrefix, s.media.UploadDir(), fiber.Static{
		ByteRange: true,
		MaxAge:    3600,
	})

	api := app.Group("/api")

	auth := api.Group("/auth")
	auth.Post("/register", s.rateLimiter.Limit("register", 5, 10*time.Minute), s.Register)
	auth.Post("/login", s.rateLimiter.Limit("login", 10, 5*time.Minute), s.Login)
	auth.Post("/logout", s.auth.Required(), s.Logout)

	// The websocket route authenticates with a ticket instead of a bearer
	// header, so it is registered before the protected group.
	api.Get("/ws", s.auth.WebSocketRequired(), s.WebsocketHandler())

	protected := api.Group("", s.auth.Required())

	protected.Post("/ws/ticket", s.IssueWSTicket)

	users := protected.Group("/users")
	users.Get("/me", s.GetMyProfile)
	users.Put("/me", s.UpdateMyProfile)
	users.Get("/me/features", s.GetFeatureFlags)
	// Specific /:id/:resource routes before the generic /:id route
	users.Get("/:id/posts", s.GetUserPosts)
	users.Get("/:id", s.GetUserProfile)

	posts := protected.Group("/posts")
	posts.Get("/", s.GetPosts)
	posts.Post("/", s.rateLimiter.Limit("create_post", 10, 5*time.Minute), s.CreatePost)
	posts.Post("/:id/like", s.ToggleLike)
	posts.Get("/:id/like", s.GetLikeStatus)
	posts.Post("/:id/share", s.SharePost)
	posts.Get("/:id/comments", s.GetComments)
	posts.Post("/:id/comments", s.rateLimiter.Limit("create_comment", 20, time.Minute), s.CreateComment)

	notifs := protected.Group("/notifications")
	notifs.Get("/", s.GetNotifications)
	notifs.Get("/unread-count", s.GetUnreadCount)
	notifs.Put("/:id/read", s.MarkNotificationRead)
}

// LivenessCheck handles liveness probe requests
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck handles readiness probe requests. Redis only counts when it
// is configured.
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), readyTimeout)
	defer cancel()

	storeStatus := "healthy"
	if err := s.store.Ping(ctx); err != nil {
		storeStatus = "unhealthy"
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
	if storeStatus == "unhealthy" || redisStatus == "unhealthy" {
		status = fiber.StatusServiceUnavailable
		overallStatus = "unhealthy"
	}

	return c.Status(status).JSON(fiber.Map{
		"status": overallStatus,
		"checks": fiber.Map{
			"store": storeStatus,
			"redis": redisStatus,
		},
		"time": time.Now(),
	})
}

// App builds the Fiber application with middleware and routes.
func (s *Server) App() *fiber.App {
	if s.app != nil {
		return s.app
	}
	app := fiber.New(fiber.Config{
		AppName:   "SocialHub API",
		BodyLimit: bodyLimit,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			var fe *fiber.Error
			if errors.As(err, &fe) {
				return c.Status(fe.Code).JSON(models.ErrorResponse{Error: fe.Message})
			}
			observability.GlobalLogger.ErrorContext(c.UserContext(), "unhandled error", slog.String("error", err.Error()))
			return models.RespondWithError(c, fiber.StatusInternalServerError,
				models.NewInternalError(err))
		},
	})
	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	s.app = app
	return app
}

// StartBackground starts the engagement dispatcher and, with Redis, the
// subscriber that forwards published notifications to local websockets.
func (s *Server) StartBackground() {
	s.dispatcher.Start()

	if s.notifier != nil {
		go func() {
			if err := s.hub.StartWiring(s.shutdownCtx, s.notifier); err != nil {
				slog.Error("failed to start notification hub wiring", slog.String("error", err.Error()))
			}
		}()
	}
}

// Start starts background workers and serves HTTP until the app is shut down.
func (s *Server) Start() error {
	app := s.App()
	s.StartBackground()

	slog.Info("server starting", slog.String("port", s.config.Port), slog.String("store", s.config.StoreDriver))
	return app.Listen(":" + s.config.Port)
}

// Shutdown stops accepting requests, drains queued notifications, closes
// websockets and releases the store and Redis.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			slog.Error("error shutting down HTTP server", slog.String("error", err.Error()))
		}
	}

	// Drain before cancelling the wiring so in-flight publishes still reach the hub.
	if err := s.dispatcher.Shutdown(ctx); err != nil {
		slog.Error("error draining engagement dispatcher", slog.String("error", err.Error()))
	}

	if s.shutdownFn != nil {
		s.shutdownFn()
	}

	if err := s.hub.Shutdown(ctx); err != nil {
		slog.Error("error shutting down notification hub", slog.String("error", err.Error()))
	}

	if err := s.store.Close(); err != nil {
		slog.Error("error closing store", slog.String("error", err.Error()))
	}

	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			slog.Error("error closing redis", slog.String("error", err.Error()))
		}
	}

	slog.Info("server shutdown complete")
	return nil
}
