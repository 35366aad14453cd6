package main

import (
	"context"
	"os"

	cli "github.com/urfave/cli/v3"
	"go.opentelemetry.io/otel/trace"

	"github.com/dealdesk/dealflow/pkg/cmd"
	"github.com/dealdesk/dealflow/pkg/log"
	"github.com/dealdesk/dealflow/pkg/otelhelper"
	"github.com/dealdesk/dealflow/pkg/reconciler"
	"github.com/dealdesk/dealflow/pkg/workflow"
)

const defaultPort = 9080

func main() {
	command := &cli.Command{
		Name:                  "dealflow-api",
		Usage:                 "Manage the startup deal-flow pipeline",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port to run the API server on",
				Value:   defaultPort,
				Sources: cli.EnvVars("PORT"),
			},
			&cli.StringFlag{
				Name:     "database-url",
				Usage:    "Database connection URL for persistence",
				Required: true,
				Sources:  cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:    "event-bus",
				Usage:   "Event bus type (kafka, gochannel)",
				Value:   "gochannel",
				Sources: cli.EnvVars("EVENT_BUS_TYPE"),
			},
			&cli.StringFlag{
				Name:    "redis-url",
				Usage:   "Redis URL for the portfolio cache (empty disables caching)",
				Sources: cli.EnvVars("REDIS_URL"),
			},
			&cli.BoolFlag{
				Name:    "tracing",
				Usage:   "Enable OpenTelemetry tracing",
				Sources: cli.EnvVars("TRACING_ENABLED"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"))

			logger := log.WithModule("api")
			logger.InfoContext(ctx, "Initializing Dealflow API")

			persistence := cmd.NewPersistence(ctx, logger, command.String("database-url"))

			defer func() {
				err := persistence.Close(ctx)
				if err != nil {
					logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
				}
			}()

			eventBus := cmd.NewEventBus(command.String("event-bus"), "dealflow-api", logger)
			defer func() {
				if err := eventBus.Close(); err != nil {
					logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
				}
			}()

			portfolio := cmd.NewPortfolioCache(command.String("redis-url"), logger)

			// The in-process bus never reaches a separate worker, so the
			// rule engine consumes status changes here. With kafka the
			// worker owns rule processing and this process only publishes.
			if command.String("event-bus") == "gochannel" {
				engine := workflow.NewEngine(persistence, eventBus, nil, logger)
				consumer := workflow.NewConsumer(persistence, engine, logger)

				if err := consumer.Register(eventBus); err != nil {
					return err
				}

				if err := eventBus.Subscribe(ctx); err != nil {
					return err
				}
			}

			var tracer trace.Tracer

			if command.Bool("tracing") {
				var err error

				tracer, err = otelhelper.NewTracer(ctx, "dealflow-api")
				if err != nil {
					return err
				}
			}

			sweeper := reconciler.New(persistence, logger)
			if err := sweeper.Start(ctx); err != nil {
				return err
			}
			defer sweeper.Stop()

			api := NewAPI(
				logger,
				persistence,
				eventBus,
				portfolio,
				tracer,
			)

			err := api.Start(command.Int("port"))
			if err != nil {
				logger.ErrorContext(ctx, "Failed to start API server", "error", err)
			}

			return nil
		},
	}

	err := command.Run(context.Background(), os.Args)
	if err != nil {
		panic(err)
	}
}
