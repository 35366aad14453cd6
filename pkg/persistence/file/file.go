// Package file provides JSON-file persistence. It backs unit tests and
// small single-node deployments, and is the concrete store behind the
// rules repository for installations without a database.
package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/dealdesk/dealflow/pkg/persistence"
)

// Persistence implements the persistence layer on a directory of JSON
// files, one subdirectory per repository.
type Persistence struct {
	root string
	mu   sync.RWMutex

	startupRepo *StartupRepository
	statusRepo  *StatusRepository
	historyRepo *HistoryRepository
	ruleRepo    *RuleRepository
}

// NewPersistence creates a file persistence layer rooted at the given
// directory.
func NewPersistence(root string) *Persistence {
	p := &Persistence{root: root}
	p.startupRepo = &StartupRepository{p: p}
	p.statusRepo = &StatusRepository{p: p}
	p.historyRepo = &HistoryRepository{p: p}
	p.ruleRepo = &RuleRepository{p: p}

	return p
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

// HealthCheck verifies the root directory is usable.
func (p *Persistence) HealthCheck(_ context.Context) error {
	err := os.MkdirAll(p.root, 0o755)
	if err != nil {
		return fmt.Errorf("file persistence root unavailable: %w", err)
	}

	return nil
}

// Close is a no-op for file persistence.
func (p *Persistence) Close(_ context.Context) error {
	return nil
}

// validateFileID rejects ids that are unsafe as file names.
func validateFileID(id string) error {
	if id == "" {
		return errors.New("id cannot be empty")
	}

	if strings.Contains(id, "..") || strings.ContainsAny(id, `/\`) {
		return errors.New("id contains invalid characters")
	}

	return nil
}

func (p *Persistence) dir(kind string) (string, error) {
	dir := filepath.Join(p.root, kind)

	err := os.MkdirAll(dir, 0o755)
	if err != nil {
		return "", fmt.Errorf("failed to create %s directory: %w", kind, err)
	}

	return dir, nil
}

// writeEntity marshals v into <root>/<kind>/<id>.json. Callers hold the
// persistence mutex.
func (p *Persistence) writeEntity(kind, id string, v any) error {
	if err := validateFileID(id); err != nil {
		return err
	}

	dir, err := p.dir(kind)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s %s: %w", kind, id, err)
	}

	err = os.WriteFile(filepath.Join(dir, id+".json"), data, 0o644)
	if err != nil {
		return fmt.Errorf("failed to write %s %s: %w", kind, id, err)
	}

	return nil
}

// readEntity unmarshals <root>/<kind>/<id>.json into v. Returns
// os.ErrNotExist when the file is missing.
func (p *Persistence) readEntity(kind, id string, v any) error {
	if err := validateFileID(id); err != nil {
		return err
	}

	data, err := os.ReadFile(filepath.Join(p.root, kind, id+".json"))
	if err != nil {
		return err
	}

	err = json.Unmarshal(data, v)
	if err != nil {
		return fmt.Errorf("failed to unmarshal %s %s: %w", kind, id, err)
	}

	return nil
}

func (p *Persistence) removeEntity(kind, id string) error {
	if err := validateFileID(id); err != nil {
		return err
	}

	err := os.Remove(filepath.Join(p.root, kind, id+".json"))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove %s %s: %w", kind, id, err)
	}

	return nil
}

// listIDs returns the entity ids stored under kind.
func (p *Persistence) listIDs(kind string) ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(p.root, kind))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}

		return nil, fmt.Errorf("failed to list %s: %w", kind, err)
	}

	ids := make([]string, 0, len(entries))

	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}

		ids = append(ids, strings.TrimSuffix(name, ".json"))
	}

	return ids, nil
}
