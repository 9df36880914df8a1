// Package main provides the Pulse API server implementation.
package main

import (
	"log/slog"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/logger"

	"github.com/pulsehq/pulse/pkg/audit"
	"github.com/pulsehq/pulse/pkg/engine"
	"github.com/pulsehq/pulse/pkg/eventbus"
	"github.com/pulsehq/pulse/pkg/persistence"
	"github.com/pulsehq/pulse/pkg/ratelimit"
	"github.com/pulsehq/pulse/pkg/registry"
	"github.com/pulsehq/pulse/pkg/services"
	"github.com/pulsehq/pulse/pkg/web"
)

type API struct {
	logger      *slog.Logger
	persistence persistence.Persistence
	registry    *registry.Registry
	eventBus    eventbus.EventBus
	limiter     *ratelimit.Limiter
	validate    *validator.Validate
}

func NewAPI(
	logger *slog.Logger,
	persistence persistence.Persistence,
	registry *registry.Registry,
	eventBus eventbus.EventBus,
	limiter *ratelimit.Limiter,
) *API {
	return &API{
		logger:      logger,
		persistence: persistence,
		registry:    registry,
		eventBus:    eventBus,
		limiter:     limiter,
		validate:    validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (a *API) App() *fiber.App {
	auditLog := audit.NewLogger(a.persistence, a.logger)
	eng := engine.New(a.persistence, a.registry, a.limiter, auditLog, a.logger, engine.Config{})
	runService := services.NewRuns(a.persistence, a.eventBus)

	handlers := web.NewAPIHandlers(eng, runService, a.persistence, a.validate)

	app := fiber.New()
	app.Use(cors.New())
	app.Use(logger.New(logger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker())

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("Pulse API")
	})

	r := app.Group("/runs")
	r.Post("/", handlers.CreateRun)
	r.Post("/execute", handlers.ExecuteRun)
	r.Get("/:id", handlers.GetRun)
	r.Post("/:id/cancel", handlers.CancelRun)
	r.Get("/:id/logs", handlers.GetRunLogs)

	s := app.Group("/organizations/:organizationId/settings")
	s.Get("/", handlers.GetSettings)
	s.Put("/", handlers.UpdateSettings)

	app.Get("/health", handlers.HealthCheck)

	return app
}

func (a *API) Start(port int) error {
	app := a.App()

	err := app.Listen(":" + strconv.Itoa(port))

	return err
}
