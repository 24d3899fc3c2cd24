package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/gema-quiz-api/internal/config"
	"github.com/noah-isme/gema-quiz-api/internal/handler"
	"github.com/noah-isme/gema-quiz-api/internal/middleware"
	"github.com/noah-isme/gema-quiz-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	CourseHandler *handler.CourseHandler
	RosterHandler *handler.RosterHandler
	Database      handler.Pinger
	// HealthChecks are optional backing services reported by the health endpoint.
	HealthChecks map[string]handler.Pinger
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	app.Get("/metrics", observability.MetricsHandler())

	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg, deps.Database, deps.HealthChecks))

	teacherGuards := middleware.TeacherOnly(cfg.JWTSecret)
	submitGuards := []fiber.Handler{middleware.RateLimit("submit", cfg.SubmitRateLimit, cfg.SubmitRateWindow)}

	if deps.RosterHandler != nil {
		deps.RosterHandler.Register(api, teacherGuards)
	}

	if deps.CourseHandler != nil {
		deps.CourseHandler.Register(api.Group("/courses"), teacherGuards, submitGuards)
	}
}
