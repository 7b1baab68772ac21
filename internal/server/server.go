// Package server contains the HTTP surface: fiber app setup, middleware
// ordering, routes and handlers.
package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"celeste/internal/cache"
	"celeste/internal/config"
	"celeste/internal/database"
	"celeste/internal/mailer"
	"celeste/internal/media"
	"celeste/internal/middleware"
	"celeste/internal/models"
	"celeste/internal/repository"
	"celeste/internal/service"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/redis/go-redis/v9"
)

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	db             *database.DB
	redis          *redis.Client
	app            *fiber.App
	promMiddleware *fiberprometheus.FiberPrometheus

	userRepo    repository.UserRepository
	postRepo    repository.PostRepository
	commentRepo repository.CommentRepository
	mailRepo    repository.MailRepository

	userService         *service.UserService
	postService         *service.PostService
	commentService      *service.CommentService
	feedService         *service.FeedService
	verificationService *service.VerificationService

	media *media.Store
}

// Deps carries already-initialized dependencies into NewServerWithDeps. Any
// nil repository falls back to the mongo implementation built from DB.
type Deps struct {
	DB       *database.DB
	Redis    *redis.Client
	Users    repository.UserRepository
	Posts    repository.PostRepository
	Comments repository.CommentRepository
	Mails    repository.MailRepository
	Mailer   mailer.Mailer
	Media    *media.Store
}

// NewServer creates a server instance with all dependencies from config.
func NewServer(cfg *config.Config) (*Server, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}

	cache.InitRedis(cfg.RedisURL)

	store, err := media.NewStore(cfg)
	if err != nil {
		return nil, fmt.Errorf("media store init failed: %w", err)
	}
	if store != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := store.EnsureBucket(ctx); err != nil {
			return nil, fmt.Errorf("media bucket init failed: %w", err)
		}
	}

	return NewServerWithDeps(cfg, Deps{
		DB:     db,
		Redis:  cache.GetClient(),
		Mailer: mailer.New(cfg),
		Media:  store,
	}), nil
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// Tests pass stub repositories here; production passes only DB, Redis, Mailer
// and Media and lets the mongo repositories be built.
func NewServerWithDeps(cfg *config.Config, deps Deps) *Server {
	if deps.DB != nil {
		if deps.Users == nil {
			deps.Users = repository.NewUserRepository(deps.DB)
		}
		if deps.Posts == nil {
			deps.Posts = repository.NewPostRepository(deps.DB)
		}
		if deps.Comments == nil {
			deps.Comments = repository.NewCommentRepository(deps.DB)
		}
		if deps.Mails == nil {
			deps.Mails = repository.NewMailRepository(deps.DB)
		}
	}
	if deps.Mailer == nil {
		deps.Mailer = mailer.New(cfg)
	}

	s := &Server{
		config:         cfg,
		db:             deps.DB,
		redis:          deps.Redis,
		promMiddleware: middleware.InitMetrics("celeste-api"),
		userRepo:       deps.Users,
		postRepo:       deps.Posts,
		commentRepo:    deps.Comments,
		mailRepo:       deps.Mails,
		media:          deps.Media,
	}
	s.verificationService = service.NewVerificationService(s.mailRepo, deps.Mailer)
	s.userService = service.NewUserService(s.userRepo, s.verificationService)
	s.postService = service.NewPostService(s.postRepo, s.commentRepo)
	s.commentService = service.NewCommentService(s.commentRepo, s.postRepo)
	s.feedService = service.NewFeedService(s.postRepo, s.userRepo)
	return s
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	// Panic recovery
	app.Use(recover.New())

	// Request ID for tracing
	app.Use(requestid.New())

	// Context middleware to propagate request ID into slog records
	app.Use(middleware.ContextMiddleware())

	// Prometheus metrics
	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	// Security headers
	app.Use(helmet.New())

	// Structured logging (after requestid and context middleware)
	app.Use(middleware.StructuredLogger())

	// CORS runs before middlewares that can short-circuit (e.g. limiter) so
	// browser clients still receive CORS headers on error responses.
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
		// Never rate-limit preflight requests; they are handled by CORS.
		Next: func(c *fiber.Ctx) bool {
			return c.Method() == fiber.MethodOptions
		},
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return models.Respond(c, fiber.StatusTooManyRequests,
				"Too many requests, please try again later", nil)
		},
	}))
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	api := app.Group("/api")

	// Health checks
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)
	app.Get("/health", s.ReadinessCheck)

	// Metrics endpoint for Prometheus
	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}

	// Verification codes
	mails := api.Group("/mails")
	mails.Post("/verify", middleware.RateLimit(
		s.redis, 3, 5*time.Minute, "send_code"), s.SendVerificationCode)
	mails.Get("/", s.ListVerificationCodes)

	// User routes; specific paths registered before the generic /:id routes
	users := api.Group("/users")
	users.Post("/register", middleware.RateLimit(
		s.redis, 3, 10*time.Minute, "register"), s.Register)
	users.Post("/login", middleware.RateLimit(
		s.redis, 10, 5*time.Minute, "login"), s.Login)
	users.Post("/password", s.ChangePassword)
	users.Put("/profile", s.UpdateProfile)
	users.Post("/follow", s.Follow)
	users.Delete("/follow", s.Unfollow)
	users.Get("/", s.ListUsers)
	users.Get("/:id/following", s.GetFollowing)
	users.Get("/:id/followers", s.GetFollowers)
	users.Get("/:id", s.GetUser)

	// Feed
	api.Get("/feed", s.GetFeed)

	// Post routes; /user and /likes listings before the generic /:id routes
	posts := api.Group("/posts")
	posts.Post("/", middleware.RateLimit(
		s.redis, 10, 5*time.Minute, "create_post"), s.CreatePost)
	posts.Get("/user/:userId", s.GetUserPosts)
	posts.Get("/likes/:userId", s.GetLikedPosts)
	posts.Put("/:id/like", s.LikePost)
	posts.Delete("/:id/like", s.UnlikePost)
	posts.Post("/:id/repost", s.Repost)
	posts.Get("/:id/comments", s.GetComments)
	posts.Post("/:id/comments", middleware.RateLimit(
		s.redis, 15, time.Minute, "create_comment"), s.CreateComment)
	posts.Get("/:id", s.GetPost)
	posts.Delete("/:id", s.DeletePost)

	// Comment routes
	comments := api.Group("/comments")
	comments.Put("/:id/like", s.ToggleCommentLike)
	comments.Delete("/:id", s.DeleteComment)

	// Media upload
	api.Post("/media", s.UploadMedia)
}

// LivenessCheck handles liveness probe requests
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return models.Respond(c, fiber.StatusOK, "up", fiber.Map{"time": time.Now()})
}

// ReadinessCheck handles readiness probe requests
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	if s.db == nil {
		dbStatus = "unavailable"
	} else if err := s.db.Ping(ctx); err != nil {
		dbStatus = "unhealthy"
	}

	// Redis is optional; the app degrades to uncached, unlimited operation.
	redisStatus := "unavailable"
	if s.redis != nil {
		redisStatus = "healthy"
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "unhealthy"
		}
	}

	status := fiber.StatusOK
	overall := "healthy"
	if dbStatus != "healthy" {
		status = fiber.StatusServiceUnavailable
		overall = "unhealthy"
	}

	return models.Respond(c, status, overall, fiber.Map{
		"database": dbStatus,
		"redis":    redisStatus,
		"time":     time.Now(),
	})
}

func (s *Server) buildApp() *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:   "Celeste API",
		BodyLimit: media.MaxUploadSize,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			var fiberErr *fiber.Error
			if errors.As(err, &fiberErr) {
				return models.Respond(c, fiberErr.Code, fiberErr.Message, nil)
			}
			return models.RespondWithError(c, err)
		},
	})
	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	return app
}

// App returns a fully configured fiber app without binding a listener.
// Handler tests drive this through app.Test.
func (s *Server) App() *fiber.App {
	if s.app == nil {
		s.app = s.buildApp()
	}
	return s.app
}

// Start starts the server
func (s *Server) Start() error {
	app := s.App()
	log.Printf("Server starting on port %s...", s.config.Port)
	return app.Listen(":" + s.config.Port)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			log.Printf("error shutting down HTTP server: %v", err)
		}
	}

	if s.db != nil {
		if err := s.db.Close(); err != nil {
			log.Printf("error closing mongo client: %v", err)
		}
	}

	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			log.Printf("error closing redis: %v", err)
		}
	}

	log.Println("Server shutdown complete")
	return nil
}
