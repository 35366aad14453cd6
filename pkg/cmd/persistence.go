// Package cmd provides common initialization functions for command-line applications.
package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dealdesk/dealflow/pkg/persistence"
	"github.com/dealdesk/dealflow/pkg/persistence/file"
	"github.com/dealdesk/dealflow/pkg/persistence/postgresql"
)

// NewPersistence builds the storage backend from the database URL.
// postgres:// URLs get the relational backend with migrations; anything
// else is treated as a directory for the file backend.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) persistence.Persistence {
	switch parsePersistenceProvider(databaseURL) {
	case "postgres", "postgresql":
		p, err := postgresql.NewPersistence(ctx, logger, databaseURL)
		if err != nil {
			panic(fmt.Errorf("failed to initialize postgres persistence: %w", err))
		}

		return p
	default:
		return file.NewPersistence(databaseURL)
	}
}

func parsePersistenceProvider(databaseURL string) string {
	provider, _, found := strings.Cut(databaseURL, "://")
	if !found {
		return "file"
	}

	return provider
}
