package core

import (
	"context"
	"fmt"
	"time"

	"github.com/kilupskalvis/envstash/internal/database"
	"github.com/kilupskalvis/envstash/internal/linkcopy"
	"github.com/kilupskalvis/envstash/internal/models"
	"github.com/kilupskalvis/envstash/internal/registry"
	"github.com/kilupskalvis/envstash/internal/shell"
)

// Restore pipeline phase names.
const (
	PhaseRestorePersistent = "Restore Persistent Resources"
	PhaseRemoveEntry       = "Remove Stash Entry"
	PhaseClearCaches       = "Clear Caches"
	PhaseMigrate           = "Migrate DB"
	PhasePublish           = "Publish Resources"
	PhaseRecordManifest    = "Record Manifest"
)

// RestoreOptions configures restore behavior
type RestoreOptions struct {
	Name      string
	AssumeYes bool // skip the confirmation gate
	KeepDB    bool // restore into the existing database without dropping it
	Pop       bool // remove the entry after a successful restore
}

// RestoreResult contains the result of a restore
type RestoreResult struct {
	Name      string
	Resources *linkcopy.Stats
	Skipped   []string
	Removed   bool
	Duration  time.Duration
}

// Restore replaces the live database and resource tree with the named entry
// and runs the post-restore hooks. Phases run strictly in order; the first
// failure aborts the rest without undoing what already ran.
func (m *Manager) Restore(ctx context.Context, opts RestoreOptions) (*RestoreResult, error) {
	if err := registry.ValidateName(opts.Name); err != nil {
		return nil, err
	}
	entry, err := m.registry.Entry(opts.Name)
	if err != nil {
		return nil, err
	}
	if !entry.Complete {
		return nil, fmt.Errorf("%w: %s (expected %s, %s/ and %s/)", ErrIncompleteEntry, opts.Name,
			models.DatabaseFile, models.PersistentDir, models.MetadataDir)
	}

	question := fmt.Sprintf("The database and persistent resources will be replaced by stash entry %q.\nAre you sure you want to do this?", opts.Name)
	if err := m.ask(ctx, question, opts.AssumeYes); err != nil {
		return nil, err
	}

	started := m.now()
	result := &RestoreResult{Name: opts.Name}
	root := m.paths.ProjectRoot()

	var db *database.MySQL

	phases := []phase{
		{name: PhaseCheckConfig, run: func(context.Context) error {
			var err error
			db, err = database.New(m.cfg.Database, m.cfg.Tools)
			if err != nil {
				return err
			}
			m.redactor.Add(db.Secrets()...)
			return nil
		}},
		{name: database.PhaseRecreate, skip: opts.KeepDB, run: func(ctx context.Context) error {
			return m.runner.Run(ctx, db.Recreate())
		}},
		{name: database.PhaseLoad, run: func(ctx context.Context) error {
			return m.runner.Run(ctx, db.Load(entry.DatabasePath()))
		}},
		{name: PhaseRestorePersistent, run: func(ctx context.Context) error {
			var err error
			result.Resources, err = linkcopy.Replace(ctx, entry.PersistentPath(), m.paths.PersistentPath(), m.link)
			return err
		}},
		{name: PhaseRemoveEntry, skip: !opts.Pop, run: func(context.Context) error {
			if err := m.registry.Remove(opts.Name); err != nil {
				return err
			}
			result.Removed = true
			return nil
		}},
		m.hook(PhaseClearCaches, m.cfg.Hooks.CacheFlush, root),
		m.hook(PhaseMigrate, m.cfg.Hooks.Migrate, root),
		m.hook(PhasePublish, m.cfg.Hooks.Publish, root),
		{name: PhaseRecordManifest, run: func(context.Context) error {
			return m.manifest.RecordRestore(opts.Name, m.now())
		}},
	}
	for _, p := range phases {
		if p.skip {
			result.Skipped = append(result.Skipped, p.name)
		}
	}

	err = m.runPhases(ctx, phases)
	m.record(models.OperationRestore, opts.Name, started, err)
	if err != nil {
		return nil, err
	}

	result.Duration = m.now().Sub(started)
	m.logger.Info("stash restored", "name", opts.Name, "duration", result.Duration, "keep_db", opts.KeepDB, "removed", result.Removed)
	m.notifier.Notify(ctx, string(models.OperationRestore), opts.Name, root, result.Duration)
	return result, nil
}

// hook builds a post-restore phase for a configured argv. An empty argv is skipped.
func (m *Manager) hook(name string, argv []string, dir string) phase {
	return phase{
		name: name,
		skip: len(argv) == 0,
		run: func(ctx context.Context) error {
			return m.runner.Run(ctx, shell.Command{
				Phase: name,
				Name:  argv[0],
				Args:  argv[1:],
				Dir:   dir,
			})
		},
	}
}
