package shell

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedactor_Redact(t *testing.T) {
	r := NewRedactor("hunter2", "", "hunter2-long")

	assert.Equal(t, "pw=******", r.Redact("pw=hunter2"))
	assert.Equal(t, "pw=******", r.Redact("pw=hunter2-long"))
	assert.Equal(t, "nothing here", r.Redact("nothing here"))

	var nilRedactor *Redactor
	assert.Equal(t, "hunter2", nilRedactor.Redact("hunter2"))
}

func TestRedactor_RedactArgs(t *testing.T) {
	r := NewRedactor("admin")
	line := r.RedactArgs("mysql", []string{"--user=admin", "--execute", "DROP DATABASE `x`"})
	assert.Equal(t, "mysql --user=****** --execute 'DROP DATABASE `x`'", line)
}

func TestExecutor_Run_Success(t *testing.T) {
	var out bytes.Buffer
	e := NewExecutor(NewRedactor("topsecret"), nil, &out)

	err := e.Run(context.Background(), Command{
		Phase: "echo",
		Name:  "sh",
		Args:  []string{"-c", "echo value=topsecret"},
	})
	require.NoError(t, err)
	assert.Equal(t, "value=******\n", out.String())
}

func TestExecutor_Run_StdinStdoutFiles(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.sql")
	out := filepath.Join(dir, "out.sql")
	require.NoError(t, os.WriteFile(in, []byte("SELECT 1;\n"), 0644))

	e := NewExecutor(nil, nil, nil)
	err := e.Run(context.Background(), Command{Phase: "copy", Name: "cat", Stdin: in, Stdout: out})
	require.NoError(t, err)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "SELECT 1;\n", string(data))
}

func TestExecutor_Run_FailureRedactsSecrets(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
	e := NewExecutor(NewRedactor("dbuser", "p4ssw0rd"), logger, nil)

	err := e.Run(context.Background(), Command{
		Phase: "Restore Database",
		Name:  "sh",
		Args:  []string{"-c", "echo access denied for dbuser using p4ssw0rd >&2; exit 3", "--user=dbuser", "--password=p4ssw0rd"},
	})
	require.Error(t, err)

	var cerr *CommandError
	require.True(t, errors.As(err, &cerr))
	assert.Equal(t, 3, cerr.ExitCode)
	assert.Equal(t, "Restore Database", cerr.Phase)
	assert.Contains(t, cerr.Stderr, "access denied for ******")

	for _, text := range []string{err.Error(), logs.String()} {
		assert.NotContains(t, text, "dbuser")
		assert.NotContains(t, text, "p4ssw0rd")
	}
}

func TestExecutor_Run_MissingBinary(t *testing.T) {
	e := NewExecutor(NewRedactor("s3cr3t"), nil, nil)
	err := e.Run(context.Background(), Command{
		Phase: "Backup Database",
		Name:  filepath.Join(t.TempDir(), "no-such-tool"),
		Args:  []string{"--password=s3cr3t"},
	})

	var cerr *CommandError
	require.True(t, errors.As(err, &cerr))
	assert.Equal(t, -1, cerr.ExitCode)
	assert.NotContains(t, err.Error(), "s3cr3t")
}

func TestRecorder_FailInjection(t *testing.T) {
	rec := NewRecorder()
	rec.Redactor = NewRedactor("pw")
	rec.Fail["load"] = 1

	require.NoError(t, rec.Run(context.Background(), Command{Phase: "drop", Name: "mysql"}))
	err := rec.Run(context.Background(), Command{Phase: "load", Name: "mysql", Args: []string{"--password=pw"}})

	var cerr *CommandError
	require.True(t, errors.As(err, &cerr))
	assert.Equal(t, 1, cerr.ExitCode)
	assert.NotContains(t, cerr.CommandLine, "=pw")
	assert.Equal(t, []string{"drop", "load"}, rec.Phases())
}
