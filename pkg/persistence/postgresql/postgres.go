// Package postgresql provides PostgreSQL persistence for the deal pipeline.
package postgresql

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	_ "github.com/lib/pq" // postgres driver

	"github.com/dealdesk/dealflow/pkg/persistence"
	"github.com/dealdesk/dealflow/pkg/persistence/sqlbase"
)

// Persistence implements the persistence layer for PostgreSQL.
type Persistence struct {
	db          *sql.DB
	logger      *slog.Logger
	startupRepo *StartupRepository
	statusRepo  *StatusRepository
	historyRepo *HistoryRepository
	ruleRepo    *RuleRepository
}

// NewPersistence connects, migrates, and wires the repositories.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) (*Persistence, error) {
	database, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL database: %w", err)
	}

	err = database.PingContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	migrationManager := sqlbase.NewMigrationManager(logger, database, migrations())

	err = migrationManager.RunMigrations(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &Persistence{
		db:          database,
		logger:      logger,
		startupRepo: NewStartupRepository(database, logger),
		statusRepo:  NewStatusRepository(database, logger),
		historyRepo: NewHistoryRepository(database, logger),
		ruleRepo:    NewRuleRepository(database, logger),
	}, nil
}

// Startups returns the startup repository.
func (p *Persistence) Startups() persistence.StartupRepository {
	return p.startupRepo
}

// Statuses returns the status repository.
func (p *Persistence) Statuses() persistence.StatusRepository {
	return p.statusRepo
}

// History returns the status-history repository.
func (p *Persistence) History() persistence.HistoryRepository {
	return p.historyRepo
}

// Rules returns the workflow rule repository.
func (p *Persistence) Rules() persistence.RuleRepository {
	return p.ruleRepo
}

// HealthCheck verifies the database connection is healthy.
func (p *Persistence) HealthCheck(ctx context.Context) error {
	err := p.db.PingContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	return nil
}

// Close closes the database connection.
func (p *Persistence) Close(ctx context.Context) error {
	if p.db != nil {
		err := p.db.Close()
		if err != nil {
			return fmt.Errorf("failed to close database connection: %w", err)
		}
	}

	return nil
}
