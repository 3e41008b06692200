// Package core implements the stash lifecycle: creating entries, the
// multi-phase restore pipeline, and removal. Every collaborator (paths,
// command runner, manifest store, confirmation) is injected through Deps.
//
// Invocations are assumed not to overlap. Two concurrent restores against
// the same environment are unsafe, and an interrupted restore can leave the
// database dropped but not reloaded; neither is detected or repaired here.
package core

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/kilupskalvis/envstash/internal/config"
	"github.com/kilupskalvis/envstash/internal/linkcopy"
	"github.com/kilupskalvis/envstash/internal/models"
	"github.com/kilupskalvis/envstash/internal/notify"
	"github.com/kilupskalvis/envstash/internal/prompt"
	"github.com/kilupskalvis/envstash/internal/registry"
	"github.com/kilupskalvis/envstash/internal/shell"
)

// PathProvider locates the registry and the live trees.
type PathProvider interface {
	ProjectRoot() string
	StashRoot() string
	PersistentPath() string
	MetadataPath() string
}

// ManifestStore persists the most recently restored entry.
type ManifestStore interface {
	CurrentManifest() (*models.Manifest, error)
	RecordRestore(name string, at time.Time) error
}

// HistoryStore keeps the operation log.
type HistoryStore interface {
	AppendHistory(rec *models.HistoryRecord) error
	ListHistory(limit int) ([]*models.HistoryRecord, error)
}

// PhaseProgress is called when a pipeline phase starts or is skipped.
type PhaseProgress func(phase string, skipped bool)

// Deps are the collaborators of a Manager.
type Deps struct {
	Config   *config.Config
	Paths    PathProvider
	Runner   shell.Runner
	Redactor *shell.Redactor
	Manifest ManifestStore
	History  HistoryStore     // optional
	Confirm  prompt.Confirmer // used unless the caller assumes yes
	Notifier *notify.Notifier // optional
	Logger   *slog.Logger
	Progress PhaseProgress
	Link     linkcopy.Options
	Now      func() time.Time
}

// Manager runs stash operations for one environment.
type Manager struct {
	cfg      *config.Config
	paths    PathProvider
	registry *registry.Registry
	runner   shell.Runner
	redactor *shell.Redactor
	manifest ManifestStore
	history  HistoryStore
	confirm  prompt.Confirmer
	notifier *notify.Notifier
	logger   *slog.Logger
	progress PhaseProgress
	link     linkcopy.Options
	now      func() time.Time
}

// NewManager wires a Manager from its dependencies.
func NewManager(d Deps) *Manager {
	m := &Manager{
		cfg:      d.Config,
		paths:    d.Paths,
		runner:   d.Runner,
		redactor: d.Redactor,
		manifest: d.Manifest,
		history:  d.History,
		confirm:  d.Confirm,
		notifier: d.Notifier,
		logger:   d.Logger,
		progress: d.Progress,
		link:     d.Link,
		now:      d.Now,
	}
	if m.paths == nil {
		m.paths = d.Config
	}
	if m.redactor == nil {
		m.redactor = shell.NewRedactor()
	}
	m.redactor.Add(d.Config.Secrets()...)
	if m.logger == nil {
		m.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if m.progress == nil {
		m.progress = func(string, bool) {}
	}
	if m.confirm == nil {
		m.confirm = &prompt.Scripted{}
	}
	if m.now == nil {
		m.now = time.Now
	}
	m.registry = registry.New(m.paths.StashRoot())
	return m
}

// Registry exposes the underlying entry registry.
func (m *Manager) Registry() *registry.Registry {
	return m.registry
}

// phase is one gated step of a pipeline.
type phase struct {
	name string
	skip bool
	run  func(ctx context.Context) error
}

// runPhases executes phases in order and stops at the first failure.
func (m *Manager) runPhases(ctx context.Context, phases []phase) error {
	for _, p := range phases {
		if p.skip {
			m.progress(p.name, true)
			m.logger.Debug("phase skipped", "phase", p.name)
			continue
		}
		if err := ctx.Err(); err != nil {
			return &PhaseError{Phase: p.name, Err: err}
		}

		m.progress(p.name, false)
		started := m.now()
		if err := p.run(ctx); err != nil {
			m.logger.Error("phase failed", "phase", p.name, "error", m.redactor.Redact(err.Error()))
			return &PhaseError{Phase: p.name, Err: err}
		}
		m.logger.Debug("phase done", "phase", p.name, "elapsed", m.now().Sub(started))
	}
	return nil
}

// record appends a history entry; failures to record are logged only.
func (m *Manager) record(op models.OperationType, name string, started time.Time, opErr error) {
	if m.history == nil {
		return
	}
	rec := &models.HistoryRecord{
		Operation: op,
		Name:      name,
		StartedAt: started,
		Duration:  m.now().Sub(started),
	}
	if opErr != nil {
		rec.Error = m.redactor.Redact(opErr.Error())
	}
	if err := m.history.AppendHistory(rec); err != nil {
		m.logger.Warn("failed to record history", "operation", op, "error", err)
	}
}

// ask runs the confirmation gate.
func (m *Manager) ask(ctx context.Context, question string, assumeYes bool) error {
	if assumeYes {
		return nil
	}
	ok, err := m.confirm.Confirm(ctx, question)
	if err != nil {
		return err
	}
	if !ok {
		return ErrDeclined
	}
	return nil
}

// IsDeclined reports whether err is an operator decline.
func IsDeclined(err error) bool {
	return errors.Is(err, ErrDeclined)
}
