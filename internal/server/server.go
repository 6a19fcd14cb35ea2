package server

import (
	"context"
	"log"
	"time"

	"ai-quiz-generator-be/internal/bootstrap"
	"ai-quiz-generator-be/internal/config"
	"ai-quiz-generator-be/internal/pkg/serverutils"

	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const healthTimeout = 2 * time.Second

type Server struct {
	app       *fiber.App
	cfg       *config.Config
	container *bootstrap.Container
}

func New(cfg *config.Config, container *bootstrap.Container) *Server {
	app := fiber.New(fiber.Config{
		BodyLimit: 10 * 1024 * 1024, // 10MB, source_text can be a whole lesson
	})

	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.App.CorsAllowedOrigins,
		AllowCredentials: true,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowMethods:     "GET, POST, DELETE, OPTIONS",
		ExposeHeaders:    "Content-Length, Content-Type, Authorization",
	}))

	// OpenTelemetry tracing middleware (traces all HTTP requests)
	app.Use(otelfiber.Middleware())

	app.Use(serverutils.ErrorHandlerMiddleware())

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))
	app.Get("/health", healthHandler(container))

	registerRoutes(app, container)

	return &Server{
		app:       app,
		cfg:       cfg,
		container: container,
	}
}

func (s *Server) GetApp() *fiber.App {
	return s.app
}

func (s *Server) Run() error {
	log.Printf("Server is running on http://localhost:%s", s.cfg.App.Port)
	return s.app.Listen(":" + s.cfg.App.Port)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

// healthHandler reports 503 while the coordination store is unreachable; requests
// are still served in degraded mode.
func healthHandler(c *bootstrap.Container) fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		pingCtx, cancel := context.WithTimeout(ctx.UserContext(), healthTimeout)
		defer cancel()

		status := fiber.Map{"status": "ok", "coordination": "ok"}
		if err := c.Coordinator.Ping(pingCtx); err != nil {
			status["status"] = "degraded"
			status["coordination"] = err.Error()
			return ctx.Status(fiber.StatusServiceUnavailable).JSON(status)
		}
		return ctx.JSON(status)
	}
}

func registerRoutes(app *fiber.App, c *bootstrap.Container) {
	api := app.Group("/api")

	c.ProgressHandler.RegisterRoutes(api)
	c.QuizController.RegisterRoutes(api, c.Auth)
}
