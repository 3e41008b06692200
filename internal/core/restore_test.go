package core

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kilupskalvis/envstash/internal/config"
	"github.com/kilupskalvis/envstash/internal/database"
	"github.com/kilupskalvis/envstash/internal/models"
	"github.com/kilupskalvis/envstash/internal/shell"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// createEntry stashes the current live state under name and resets the recorder.
func createEntry(t *testing.T, env *testEnv, name string) *models.Entry {
	t.Helper()
	result, err := env.manager.Create(context.Background(), name)
	require.NoError(t, err)
	env.recorder.Reset()
	return result.Entry
}

func TestRestore_RunsPhasesInOrder(t *testing.T) {
	env := newTestEnv(t)
	createEntry(t, env, "x")

	var progress []string
	env.manager.progress = func(phase string, skipped bool) {
		if skipped {
			phase = "skip:" + phase
		}
		progress = append(progress, phase)
	}

	result, err := env.manager.Restore(context.Background(), RestoreOptions{Name: "x", AssumeYes: true})
	require.NoError(t, err)
	assert.False(t, result.Removed)

	assert.Equal(t, []string{
		database.PhaseRecreate,
		database.PhaseLoad,
		PhaseClearCaches,
		PhaseMigrate,
		PhasePublish,
	}, env.recorder.Phases())

	assert.Equal(t, []string{
		PhaseCheckConfig,
		database.PhaseRecreate,
		database.PhaseLoad,
		PhaseRestorePersistent,
		"skip:" + PhaseRemoveEntry,
		PhaseClearCaches,
		PhaseMigrate,
		PhasePublish,
		PhaseRecordManifest,
	}, progress)

	// Hooks run from the project root.
	hook := env.recorder.Commands[2]
	assert.Equal(t, "./flow", hook.Name)
	assert.Equal(t, []string{"flow:cache:flush"}, hook.Args)
	assert.Equal(t, env.cfg.ProjectRoot(), hook.Dir)

	// Load reads the entry's dump.
	load := env.recorder.Commands[1]
	assert.Equal(t, filepath.Join(env.cfg.StashRoot(), "x", "database.sql"), load.Stdin)
}

func TestRestore_ThenStatusReportsName(t *testing.T) {
	env := newTestEnv(t)
	createEntry(t, env, "x")
	createEntry(t, env, "y")

	_, err := env.manager.Restore(context.Background(), RestoreOptions{Name: "y", AssumeYes: true})
	require.NoError(t, err)

	m, err := env.manager.Status()
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.Equal(t, "y", m.Name)
	assert.False(t, m.RestoredAt.IsZero())

	_, err = env.manager.Restore(context.Background(), RestoreOptions{Name: "x", AssumeYes: true})
	require.NoError(t, err)
	m, err = env.manager.Status()
	require.NoError(t, err)
	assert.Equal(t, "x", m.Name)
}

func TestRestore_KeepDBSkipsDropButLoads(t *testing.T) {
	env := newTestEnv(t)
	createEntry(t, env, "x")

	result, err := env.manager.Restore(context.Background(), RestoreOptions{Name: "x", AssumeYes: true, KeepDB: true})
	require.NoError(t, err)

	phases := env.recorder.Phases()
	assert.NotContains(t, phases, database.PhaseRecreate)
	assert.Contains(t, phases, database.PhaseLoad)
	assert.Contains(t, result.Skipped, database.PhaseRecreate)
}

func TestRestore_DefaultKeepsEntry(t *testing.T) {
	env := newTestEnv(t)
	createEntry(t, env, "x")

	_, err := env.manager.Restore(context.Background(), RestoreOptions{Name: "x", AssumeYes: true})
	require.NoError(t, err)

	names, err := env.manager.Registry().List()
	require.NoError(t, err)
	assert.Contains(t, names, "x")
}

func TestRestore_PopRemovesEntry(t *testing.T) {
	env := newTestEnv(t)
	createEntry(t, env, "x")

	result, err := env.manager.Restore(context.Background(), RestoreOptions{Name: "x", AssumeYes: true, Pop: true})
	require.NoError(t, err)
	assert.True(t, result.Removed)

	names, err := env.manager.Registry().List()
	require.NoError(t, err)
	assert.NotContains(t, names, "x")

	// The restored live tree no longer depends on the removed entry.
	assert.Equal(t, "jpeg-bytes", readFile(t, filepath.Join(env.cfg.PersistentPath(), "Resources/a/b/c/image.jpg")))
}

func TestRestore_ReplacesLiveResources(t *testing.T) {
	env := newTestEnv(t)
	createEntry(t, env, "x")
	expected := snapshotTree(t, env.cfg.PersistentPath())

	// Changes made after the snapshot.
	writeFiles(t, env.cfg.PersistentPath(), map[string]string{"Resources/new/upload.png": "new"})
	require.NoError(t, os.Remove(filepath.Join(env.cfg.PersistentPath(), "Resources/d/e/f/doc.pdf")))

	_, err := env.manager.Restore(context.Background(), RestoreOptions{Name: "x", AssumeYes: true})
	require.NoError(t, err)

	assert.Equal(t, expected, snapshotTree(t, env.cfg.PersistentPath()))
}

func TestRestore_DeclineLeavesStateUntouched(t *testing.T) {
	for _, answer := range []string{"no", "", "YES", "y"} {
		t.Run("answer="+answer, func(t *testing.T) {
			env := newTestEnv(t)
			createEntry(t, env, "x")
			writeFiles(t, env.cfg.PersistentPath(), map[string]string{"live-only.txt": "keep me"})
			before := snapshotTree(t, env.cfg.PersistentPath())

			env.confirm.Answers = []string{answer}
			_, err := env.manager.Restore(context.Background(), RestoreOptions{Name: "x"})
			assert.ErrorIs(t, err, ErrDeclined)
			assert.True(t, IsDeclined(err))

			assert.Empty(t, env.recorder.Phases(), "no database command may run")
			assert.Equal(t, before, snapshotTree(t, env.cfg.PersistentPath()))

			m, err := env.manager.Status()
			require.NoError(t, err)
			assert.Nil(t, m)
		})
	}
}

func TestRestore_ConfirmYesProceeds(t *testing.T) {
	env := newTestEnv(t)
	createEntry(t, env, "x")
	env.confirm.Answers = []string{"yes"}

	_, err := env.manager.Restore(context.Background(), RestoreOptions{Name: "x"})
	require.NoError(t, err)
	require.Len(t, env.confirm.Prompts, 1)
	assert.Contains(t, env.confirm.Prompts[0], `"x"`)
}

func TestRestore_CancelAtPromptRunsNothing(t *testing.T) {
	env := newTestEnv(t)
	createEntry(t, env, "x")
	before := snapshotTree(t, env.cfg.PersistentPath())
	env.confirm.Answers = []string{"yes"}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := env.manager.Restore(ctx, RestoreOptions{Name: "x"})
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, IsDeclined(err))
	assert.Empty(t, FailedPhase(err))
	assert.Empty(t, env.recorder.Phases())
	assert.Equal(t, before, snapshotTree(t, env.cfg.PersistentPath()))

	recs, err := env.manager.History(0)
	require.NoError(t, err)
	require.Len(t, recs, 1, "only the create is recorded")
}

func TestRestore_NotFoundBeforeConfirmation(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.manager.Restore(context.Background(), RestoreOptions{Name: "ghost"})
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Empty(t, env.confirm.Prompts)
	assert.Empty(t, env.recorder.Phases())
}

func TestRestore_IncompleteEntry(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.manager.Registry().Create("partial")
	require.NoError(t, err)

	_, err = env.manager.Restore(context.Background(), RestoreOptions{Name: "partial", AssumeYes: true})
	assert.ErrorIs(t, err, ErrIncompleteEntry)
	assert.Empty(t, env.recorder.Phases())
}

func TestRestore_UnsupportedDriverAbortsBeforeDrop(t *testing.T) {
	env := newTestEnv(t)
	createEntry(t, env, "x")
	env.cfg.Database.Driver = "pdo_sqlite"

	_, err := env.manager.Restore(context.Background(), RestoreOptions{Name: "x", AssumeYes: true})
	assert.ErrorIs(t, err, ErrUnsupportedDriver)
	assert.Empty(t, env.recorder.Phases())
}

func TestRestore_LoadFailureStopsPipeline(t *testing.T) {
	env := newTestEnv(t)
	createEntry(t, env, "x")
	writeFiles(t, env.cfg.PersistentPath(), map[string]string{"live-only.txt": "still here"})
	env.recorder.Fail[database.PhaseLoad] = 1

	_, err := env.manager.Restore(context.Background(), RestoreOptions{Name: "x", AssumeYes: true, Pop: true})
	require.Error(t, err)
	assert.Equal(t, database.PhaseLoad, FailedPhase(err))

	var cerr *shell.CommandError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, 1, cerr.ExitCode)

	// Drop ran and is not undone; nothing after the load ran.
	assert.Equal(t, []string{database.PhaseRecreate, database.PhaseLoad}, env.recorder.Phases())
	assert.FileExists(t, filepath.Join(env.cfg.PersistentPath(), "live-only.txt"))

	names, err := env.manager.Registry().List()
	require.NoError(t, err)
	assert.Contains(t, names, "x", "pop must not remove the entry after a failure")

	m, err := env.manager.Status()
	require.NoError(t, err)
	assert.Nil(t, m)
}

func TestRestore_HookFailureKeepsEarlierPhases(t *testing.T) {
	env := newTestEnv(t)
	createEntry(t, env, "x")
	writeFiles(t, env.cfg.PersistentPath(), map[string]string{"live-only.txt": "gone"})
	env.recorder.Fail[PhaseMigrate] = 255

	_, err := env.manager.Restore(context.Background(), RestoreOptions{Name: "x", AssumeYes: true})
	require.Error(t, err)
	assert.Equal(t, PhaseMigrate, FailedPhase(err))
	assert.NotContains(t, env.recorder.Phases(), PhasePublish)

	// Resource swap already happened.
	assert.NoFileExists(t, filepath.Join(env.cfg.PersistentPath(), "live-only.txt"))

	recs, err := env.manager.History(1)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, models.OperationRestore, recs[0].Operation)
	assert.Contains(t, recs[0].Error, "exited with status 255")
}

func TestRestore_EmptyHookIsSkipped(t *testing.T) {
	env := newTestEnv(t)
	createEntry(t, env, "x")
	env.cfg.Hooks.Publish = nil

	result, err := env.manager.Restore(context.Background(), RestoreOptions{Name: "x", AssumeYes: true})
	require.NoError(t, err)
	assert.NotContains(t, env.recorder.Phases(), PhasePublish)
	assert.Contains(t, result.Skipped, PhasePublish)
}

func TestRestore_CreateRestoreRoundTrip(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.manager.Create(context.Background(), "x")
	require.NoError(t, err)

	_, err = env.manager.Restore(context.Background(), RestoreOptions{Name: "x", AssumeYes: true})
	require.NoError(t, err)
	names, _ := env.manager.Registry().List()
	assert.Equal(t, []string{"x"}, names)

	_, err = env.manager.Restore(context.Background(), RestoreOptions{Name: "x", AssumeYes: true, Pop: true})
	require.NoError(t, err)
	names, _ = env.manager.Registry().List()
	assert.Empty(t, names)
}

// fakeClient writes a mysql stand-in that echoes its arguments and the
// password environment to stderr, then fails.
func fakeClient(t *testing.T) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "mysql")
	script := "#!/bin/sh\necho \"ERROR 1045: access denied: $* password=$MYSQL_PWD\" >&2\nexit 1\n"
	require.NoError(t, os.WriteFile(p, []byte(script), 0755))
	return p
}

func TestSecretsNeverLeakFromFailingTools(t *testing.T) {
	tests := []struct {
		name  string
		phase string
		setup func(cfg *config.Config, tool string)
		run   func(m *Manager) error
	}{
		{
			name:  "dump during create",
			phase: database.PhaseDump,
			setup: func(cfg *config.Config, tool string) { cfg.Tools.Dump = tool },
			run: func(m *Manager) error {
				_, err := m.Create(context.Background(), "y")
				return err
			},
		},
		{
			name:  "drop during restore",
			phase: database.PhaseRecreate,
			setup: func(cfg *config.Config, tool string) { cfg.Tools.Client = tool },
			run: func(m *Manager) error {
				_, err := m.Restore(context.Background(), RestoreOptions{Name: "x", AssumeYes: true})
				return err
			},
		},
		{
			name:  "load during restore with keep-db",
			phase: database.PhaseLoad,
			setup: func(cfg *config.Config, tool string) { cfg.Tools.Client = tool },
			run: func(m *Manager) error {
				_, err := m.Restore(context.Background(), RestoreOptions{Name: "x", AssumeYes: true, KeepDB: true})
				return err
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			createEntry(t, env, "x")
			tt.setup(env.cfg, fakeClient(t))

			// Real executor, sharing the manager's redactor.
			m := env.build(nil)
			m.runner = shell.NewExecutor(m.redactor, m.logger, nil)

			err := tt.run(m)
			require.Error(t, err)
			assert.Equal(t, tt.phase, FailedPhase(err))
			assert.Contains(t, err.Error(), "access denied")
			assert.Contains(t, err.Error(), shell.Placeholder)

			var cerr *shell.CommandError
			require.ErrorAs(t, err, &cerr)
			assert.Equal(t, 1, cerr.ExitCode)

			recs, herr := env.store.ListHistory(1)
			require.NoError(t, herr)
			require.Len(t, recs, 1)

			for _, text := range []string{err.Error(), env.logs.String(), recs[0].Error} {
				assert.False(t, strings.Contains(text, testDBUser), "user leaked: %s", text)
				assert.False(t, strings.Contains(text, testDBPassword), "password leaked: %s", text)
			}
		})
	}
}
