// Package main provides the Dealflow API server implementation.
package main

import (
	"log/slog"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/logger"
	"go.opentelemetry.io/otel/trace"

	"github.com/dealdesk/dealflow/pkg/board"
	"github.com/dealdesk/dealflow/pkg/eventbus"
	"github.com/dealdesk/dealflow/pkg/persistence"
	"github.com/dealdesk/dealflow/pkg/services"
	"github.com/dealdesk/dealflow/pkg/web"
)

type API struct {
	logger      *slog.Logger
	persistence persistence.Persistence
	eventBus    eventbus.EventBus
	portfolio   *services.PortfolioCache
	tracer      trace.Tracer
	validate    *validator.Validate
}

func NewAPI(
	logger *slog.Logger,
	persistence persistence.Persistence,
	eventBus eventbus.EventBus,
	portfolio *services.PortfolioCache,
	tracer trace.Tracer,
) *API {
	return &API{
		logger:      logger,
		persistence: persistence,
		eventBus:    eventBus,
		portfolio:   portfolio,
		tracer:      tracer,
		validate:    validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (a *API) App() *fiber.App {
	var portfolio services.PortfolioInvalidator
	if a.portfolio != nil {
		portfolio = a.portfolio
	}

	checker := services.NewExistenceChecker(a.persistence, a.logger)
	updater := services.NewStatusUpdater(a.persistence, checker, a.eventBus, portfolio, a.tracer, a.logger)
	startupService := services.NewStartup(a.persistence)
	kanban := board.NewBoard()

	dropFactory := func(notifier board.Notifier) *board.DropHandler {
		return board.NewDropHandler(kanban, updater, notifier, a.logger)
	}

	handlers := web.NewAPIHandlers(startupService, updater, kanban, dropFactory, a.persistence, a.validate)

	app := fiber.New()
	app.Use(cors.New())
	app.Use(logger.New(logger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker())

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("Dealflow API")
	})

	st := app.Group("/statuses")
	st.Get("/", handlers.GetStatuses)
	st.Get("/:id", handlers.GetStatus)

	s := app.Group("/startups")
	s.Get("/", handlers.GetStartups)
	s.Post("/", handlers.CreateStartup)
	s.Get("/:id", handlers.GetStartup)
	s.Patch("/:id", handlers.UpdateStartup)
	s.Delete("/:id", handlers.DeleteStartup)
	s.Get("/:id/history", handlers.GetStartupHistory)
	s.Post("/:id/status", handlers.MoveStartupStatus)

	b := app.Group("/board")
	b.Get("/", handlers.GetBoard)
	b.Post("/drop", handlers.DropStartup)

	r := app.Group("/rules")
	r.Get("/", handlers.GetRules)
	r.Post("/", handlers.CreateRule)
	r.Get("/:id", handlers.GetRule)
	r.Put("/:id", handlers.UpdateRule)
	r.Delete("/:id", handlers.DeleteRule)

	app.Get("/health", handlers.HealthCheck)

	return app
}

func (a *API) Start(port int) error {
	app := a.App()

	return app.Listen(":" + strconv.Itoa(port))
}
