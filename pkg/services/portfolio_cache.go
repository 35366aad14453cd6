package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

// portfolioKeyPattern covers every cached portfolio projection. The
// projections are rebuilt lazily after invalidation.
const portfolioKeyPattern = "dealflow:portfolio:*"

// PortfolioCache invalidates cached portfolio KPI projections when a
// startup enters the invested stage.
type PortfolioCache struct {
	client *redis.Client
	logger *slog.Logger
}

// NewPortfolioCache creates a cache invalidator over the given client.
func NewPortfolioCache(client *redis.Client, logger *slog.Logger) *PortfolioCache {
	return &PortfolioCache{
		client: client,
		logger: logger.With("module", "portfolio_cache"),
	}
}

// Invalidate drops every cached portfolio key.
func (c *PortfolioCache) Invalidate(ctx context.Context) error {
	iter := c.client.Scan(ctx, 0, portfolioKeyPattern, 0).Iterator()

	keys := make([]string, 0, 16)
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}

	if err := iter.Err(); err != nil {
		return fmt.Errorf("scanning portfolio cache keys: %w", err)
	}

	if len(keys) == 0 {
		return nil
	}

	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("invalidating portfolio cache: %w", err)
	}

	c.logger.InfoContext(ctx, "Invalidated portfolio cache", "keys", len(keys))

	return nil
}
