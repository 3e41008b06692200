package core

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/kilupskalvis/envstash/internal/database"
	"github.com/kilupskalvis/envstash/internal/linkcopy"
	"github.com/kilupskalvis/envstash/internal/models"
	"github.com/kilupskalvis/envstash/internal/registry"
)

// Create pipeline phase names.
const (
	PhaseCheckConfig      = "Check Configuration"
	PhaseCreateEntry      = "Create Entry"
	PhaseBackupPersistent = "Backup Persistent Resources"
	PhaseBackupMetadata   = "Backup Metadata"
)

// CreateResult contains the result of a stash create
type CreateResult struct {
	Entry      *models.Entry
	Persistent *linkcopy.Stats
	Metadata   *linkcopy.Stats
	Warnings   []string
	Duration   time.Duration
}

// Create captures the database, resource tree, and metadata into a new entry.
// A failure aborts the remaining phases and leaves the partial entry in place.
func (m *Manager) Create(ctx context.Context, name string) (*CreateResult, error) {
	if err := registry.ValidateName(name); err != nil {
		return nil, err
	}
	exists, err := m.registry.Exists(name)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, fmt.Errorf("%w: %s", ErrEntryExists, name)
	}

	started := m.now()
	result := &CreateResult{}

	var db *database.MySQL
	var entry *models.Entry

	err = m.runPhases(ctx, []phase{
		{name: PhaseCheckConfig, run: func(context.Context) error {
			var err error
			db, err = database.New(m.cfg.Database, m.cfg.Tools)
			if err != nil {
				return err
			}
			m.redactor.Add(db.Secrets()...)
			return nil
		}},
		{name: PhaseCreateEntry, run: func(context.Context) error {
			var err error
			entry, err = m.registry.Create(name)
			if errors.Is(err, fs.ErrExist) {
				return fmt.Errorf("%w: %s", ErrEntryExists, name)
			}
			return err
		}},
		{name: database.PhaseDump, run: func(ctx context.Context) error {
			return m.runner.Run(ctx, db.Dump(entry.DatabasePath()))
		}},
		{name: PhaseBackupPersistent, run: func(ctx context.Context) error {
			var err error
			result.Persistent, err = m.captureTree(ctx, m.paths.PersistentPath(), entry.PersistentPath(), result)
			return err
		}},
		{name: PhaseBackupMetadata, run: func(ctx context.Context) error {
			var err error
			result.Metadata, err = m.captureTree(ctx, m.paths.MetadataPath(), entry.MetadataPath(), result)
			return err
		}},
	})
	m.record(models.OperationCreate, name, started, err)
	if err != nil {
		return nil, err
	}

	entry, err = m.registry.Entry(name)
	if err != nil {
		return nil, err
	}
	result.Entry = entry
	result.Duration = m.now().Sub(started)

	m.logger.Info("stash created", "name", name, "duration", result.Duration)
	m.notifier.Notify(ctx, string(models.OperationCreate), name, m.paths.ProjectRoot(), result.Duration)
	return result, nil
}

// captureTree links src into dst. A missing source is captured as an empty
// directory so the entry stays complete.
func (m *Manager) captureTree(ctx context.Context, src, dst string, result *CreateResult) (*linkcopy.Stats, error) {
	if _, err := os.Stat(src); errors.Is(err, fs.ErrNotExist) {
		msg := fmt.Sprintf("%s does not exist; stored an empty directory", src)
		result.Warnings = append(result.Warnings, msg)
		m.logger.Warn("source tree missing", "path", src)
		return &linkcopy.Stats{Dirs: 1}, os.MkdirAll(dst, 0755)
	}
	return linkcopy.Tree(ctx, src, dst, m.link)
}
