package core

import (
	"context"
	"fmt"
	"time"

	"github.com/kilupskalvis/envstash/internal/models"
	"github.com/kilupskalvis/envstash/internal/registry"
)

// RemoveResult contains the result of a remove
type RemoveResult struct {
	Name     string
	Duration time.Duration
}

// ClearResult contains the result of a clear
type ClearResult struct {
	Removed  int
	Duration time.Duration
}

// Remove deletes a named entry after confirmation. A missing entry fails
// with ErrNotFound before the operator is asked anything. The duration
// excludes the time spent at the prompt.
func (m *Manager) Remove(ctx context.Context, name string, assumeYes bool) (*RemoveResult, error) {
	if err := registry.ValidateName(name); err != nil {
		return nil, err
	}
	exists, err := m.registry.Exists(name)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}

	if err := m.ask(ctx, fmt.Sprintf("Stash entry %q will be deleted permanently.\nAre you sure you want to do this?", name), assumeYes); err != nil {
		return nil, err
	}

	started := m.now()
	err = m.registry.Remove(name)
	m.record(models.OperationRemove, name, started, err)
	if err != nil {
		return nil, err
	}

	result := &RemoveResult{Name: name, Duration: m.now().Sub(started)}
	m.logger.Info("stash removed", "name", name, "duration", result.Duration)
	return result, nil
}

// Clear deletes every entry and the registry root.
func (m *Manager) Clear(ctx context.Context) (*ClearResult, error) {
	names, err := m.registry.List()
	if err != nil {
		return nil, err
	}

	started := m.now()
	err = m.registry.Clear()
	m.record(models.OperationClear, "", started, err)
	if err != nil {
		return nil, err
	}

	result := &ClearResult{Removed: len(names), Duration: m.now().Sub(started)}
	m.logger.Info("stash cleared", "count", result.Removed, "duration", result.Duration)
	return result, nil
}

// List returns all entries in name order.
func (m *Manager) List() ([]*models.Entry, error) {
	return m.registry.Entries()
}

// Status returns the most recently restored entry, or nil.
func (m *Manager) Status() (*models.Manifest, error) {
	return m.manifest.CurrentManifest()
}

// History returns up to limit operation records, newest first.
func (m *Manager) History(limit int) ([]*models.HistoryRecord, error) {
	if m.history == nil {
		return nil, nil
	}
	return m.history.ListHistory(limit)
}
