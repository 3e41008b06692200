package core

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kilupskalvis/envstash/internal/config"
	"github.com/kilupskalvis/envstash/internal/prompt"
	"github.com/kilupskalvis/envstash/internal/shell"
	"github.com/kilupskalvis/envstash/internal/store"
	"github.com/stretchr/testify/require"
)

const (
	testDBUser     = "flow_app_user"
	testDBPassword = "Sup3r-S3cret-Pw"
)

// testEnv bundles a manager with its doubles and fixture paths.
type testEnv struct {
	cfg      *config.Config
	store    *store.Store
	recorder *shell.Recorder
	confirm  *prompt.Scripted
	logs     *bytes.Buffer
	manager  *Manager
}

// newTestConfig creates an initialized project in a temp directory with a
// populated live resource and metadata tree.
func newTestConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Database.User = testDBUser
	cfg.Database.Password = testDBPassword
	cfg.Database.Name = "flow"

	cfg, err := config.Initialize(t.TempDir(), cfg)
	require.NoError(t, err)

	writeFiles(t, cfg.PersistentPath(), map[string]string{
		"Resources/a/b/c/image.jpg": "jpeg-bytes",
		"Resources/d/e/f/doc.pdf":   "pdf-bytes",
	})
	writeFiles(t, cfg.MetadataPath(), map[string]string{
		"sync.json": `{"source":"production"}`,
	})
	return cfg
}

// newTestStore creates a new bbolt store in a temp directory for testing.
func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.New(filepath.Join(t.TempDir(), "state.db"))
	require.NoError(t, err)
	require.NoError(t, st.Initialize())
	t.Cleanup(func() { st.Close() })
	return st
}

// newTestEnv wires a manager around a recorder that emulates mysqldump by
// writing the --result-file.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	cfg := newTestConfig(t)

	rec := shell.NewRecorder()
	rec.OnRun = func(cmd shell.Command) error {
		for _, a := range cmd.Args {
			if p, ok := strings.CutPrefix(a, "--result-file="); ok {
				return os.WriteFile(p, []byte("-- MySQL dump\nCREATE TABLE t (id int);\n"), 0600)
			}
		}
		return nil
	}

	env := &testEnv{
		cfg:      cfg,
		store:    newTestStore(t),
		recorder: rec,
		confirm:  &prompt.Scripted{},
		logs:     &bytes.Buffer{},
	}
	env.manager = env.build(rec)
	return env
}

// build creates a manager around the given runner.
func (e *testEnv) build(runner shell.Runner) *Manager {
	redactor := shell.NewRedactor()
	e.recorder.Redactor = redactor
	logger := slog.New(slog.NewTextHandler(e.logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
	return NewManager(Deps{
		Config:   e.cfg,
		Runner:   runner,
		Redactor: redactor,
		Manifest: e.store,
		History:  e.store,
		Confirm:  e.confirm,
		Logger:   logger,
	})
}

func writeFiles(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		p := filepath.Join(root, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0644))
	}
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

// snapshotTree returns relative path -> content for every file under root.
func snapshotTree(t *testing.T, root string) map[string]string {
	t.Helper()
	files := map[string]string{}
	err := filepath.WalkDir(root, func(p string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		rel, _ := filepath.Rel(root, p)
		files[rel] = readFile(t, p)
		return nil
	})
	require.NoError(t, err)
	return files
}
