package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dealdesk/dealflow/pkg/identity"
	"github.com/dealdesk/dealflow/pkg/models"
	"github.com/dealdesk/dealflow/pkg/persistence"
	"github.com/dealdesk/dealflow/pkg/retry"
)

// ExistenceChecker confirms statuses and startups exist before a move
// mutates anything. Backend reads are retried with exponential backoff;
// a definitive "not found" answer is never retried.
type ExistenceChecker struct {
	persistence persistence.Persistence
	retry       retry.Config
	logger      *slog.Logger
}

// NewExistenceChecker creates a checker with the default retry policy.
func NewExistenceChecker(p persistence.Persistence, logger *slog.Logger) *ExistenceChecker {
	cfg := retry.DefaultConfig()
	cfg.Retryable = func(err error) bool {
		return !persistence.IsStatusNotFound(err) && !persistence.IsStartupNotFound(err)
	}

	return &ExistenceChecker{
		persistence: p,
		retry:       cfg,
		logger:      logger.With("module", "existence_checker"),
	}
}

// VerifyStatusExists resolves ref to a pipeline status. A non-UUID ref
// is treated as a slug and matched against status names first.
func (c *ExistenceChecker) VerifyStatusExists(ctx context.Context, ref string) (*models.Status, error) {
	ref, ok := identity.SanitizeID(ref)
	if !ok {
		return nil, ErrStatusIDRequired
	}

	if !identity.IsValidUUID(ref) {
		resolved, err := c.resolveSlug(ctx, ref)
		if err != nil {
			return nil, err
		}

		return resolved, nil
	}

	var status *models.Status

	err := c.retry.Do(ctx, func() error {
		var err error

		status, err = c.persistence.Statuses().GetByID(ctx, ref)

		return err
	})
	if err != nil {
		return nil, fmt.Errorf("verifying status %s: %w", ref, err)
	}

	return status, nil
}

// VerifyStartupExists confirms the startup exists and returns its
// current status id, empty when the startup has none. The current
// status doubles as the fallback old status when the caller did not
// supply one reliably.
func (c *ExistenceChecker) VerifyStartupExists(ctx context.Context, id string) (string, error) {
	id, ok := identity.SanitizeID(id)
	if !ok {
		return "", ErrStartupIDRequired
	}

	var currentStatusID string

	err := c.retry.Do(ctx, func() error {
		exists, statusID, err := c.persistence.Startups().Exists(ctx, id)
		if err != nil {
			return err
		}

		if !exists {
			return persistence.NewStartupError("VerifyStartupExists", id, persistence.ErrStartupNotFound)
		}

		currentStatusID = statusID

		return nil
	})
	if err != nil {
		return "", fmt.Errorf("verifying startup %s: %w", id, err)
	}

	return currentStatusID, nil
}

func (c *ExistenceChecker) resolveSlug(ctx context.Context, slug string) (*models.Status, error) {
	var statuses []*models.Status

	err := c.retry.Do(ctx, func() error {
		var err error

		statuses, err = c.persistence.Statuses().GetAll(ctx)

		return err
	})
	if err != nil {
		return nil, fmt.Errorf("resolving status slug %q: %w", slug, err)
	}

	status, found := models.MatchStatusSlug(statuses, slug)
	if !found {
		c.logger.WarnContext(ctx, "Status slug did not resolve", "slug", slug)

		return nil, fmt.Errorf("resolving status slug %q: %w", slug, ErrUnknownStatusSlug)
	}

	c.logger.DebugContext(ctx, "Resolved status slug", "slug", slug, "status_id", status.ID)

	return status, nil
}
