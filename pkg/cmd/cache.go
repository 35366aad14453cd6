package cmd

import (
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/dealdesk/dealflow/pkg/services"
)

// NewPortfolioCache builds the portfolio cache invalidator. An empty
// URL disables caching and returns nil.
func NewPortfolioCache(redisURL string, logger *slog.Logger) *services.PortfolioCache {
	if redisURL == "" {
		return nil
	}

	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		panic(fmt.Errorf("failed to parse redis URL: %w", err))
	}

	return services.NewPortfolioCache(redis.NewClient(opts), logger)
}
