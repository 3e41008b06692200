// Package shell runs external commands as structured argv invocations.
// Registered secrets are scrubbed from every command line, log record,
// and error the package produces.
package shell

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"
)

// Command describes a single external invocation.
type Command struct {
	Phase  string   // pipeline phase, used in errors
	Name   string   // binary
	Args   []string // passed verbatim, no shell
	Env    []string // extra KEY=VALUE pairs appended to the process environment
	Stdin  string   // optional file fed to stdin
	Stdout string   // optional file receiving stdout
	Dir    string   // working directory
}

// Runner executes commands.
type Runner interface {
	Run(ctx context.Context, cmd Command) error
}

// CommandError is returned when a command exits non-zero or cannot be started.
// All fields are already redacted.
type CommandError struct {
	Phase       string
	ExitCode    int
	CommandLine string
	Stderr      string
	Err         error
}

func (e *CommandError) Error() string {
	msg := fmt.Sprintf("%s: command %s exited with status %d", e.Phase, e.CommandLine, e.ExitCode)
	if e.ExitCode < 0 && e.Err != nil {
		msg = fmt.Sprintf("%s: command %s failed to run: %v", e.Phase, e.CommandLine, e.Err)
	}
	if e.Stderr != "" {
		msg += ": " + e.Stderr
	}
	return msg
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// maxStderr bounds the stderr tail kept in errors.
const maxStderr = 2048

// Executor runs commands with os/exec.
type Executor struct {
	redactor *Redactor
	logger   *slog.Logger
	output   io.Writer // receives command stdout when Command.Stdout is empty
}

// NewExecutor creates an executor that scrubs the redactor's secrets.
func NewExecutor(redactor *Redactor, logger *slog.Logger, output io.Writer) *Executor {
	if redactor == nil {
		redactor = NewRedactor()
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if output == nil {
		output = io.Discard
	}
	return &Executor{redactor: redactor, logger: logger, output: output}
}

// Run executes cmd and waits for it to finish.
func (e *Executor) Run(ctx context.Context, cmd Command) error {
	line := e.redactor.RedactArgs(cmd.Name, cmd.Args)
	e.logger.Debug("exec", "phase", cmd.Phase, "cmd", line)

	c := exec.CommandContext(ctx, cmd.Name, cmd.Args...)
	c.Dir = cmd.Dir
	if len(cmd.Env) > 0 {
		c.Env = append(os.Environ(), cmd.Env...)
	}

	if cmd.Stdin != "" {
		in, err := os.Open(cmd.Stdin)
		if err != nil {
			return &CommandError{Phase: cmd.Phase, ExitCode: -1, CommandLine: line, Err: fmt.Errorf("open stdin: %w", err)}
		}
		defer in.Close()
		c.Stdin = in
	}

	if cmd.Stdout != "" {
		out, err := os.OpenFile(cmd.Stdout, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
		if err != nil {
			return &CommandError{Phase: cmd.Phase, ExitCode: -1, CommandLine: line, Err: fmt.Errorf("open stdout: %w", err)}
		}
		defer out.Close()
		c.Stdout = out
	} else {
		c.Stdout = &redactingWriter{w: e.output, r: e.redactor}
	}

	var stderr bytes.Buffer
	c.Stderr = &stderr

	err := c.Run()
	if err == nil {
		return nil
	}

	cerr := &CommandError{
		Phase:       cmd.Phase,
		ExitCode:    -1,
		CommandLine: line,
		Stderr:      tail(e.redactor.Redact(strings.TrimSpace(stderr.String())), maxStderr),
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		cerr.ExitCode = exitErr.ExitCode()
	} else {
		cerr.Err = errors.New(e.redactor.Redact(err.Error()))
	}

	e.logger.Error("command failed", "phase", cmd.Phase, "cmd", line, "exit_code", cerr.ExitCode)
	return cerr
}

// redactingWriter scrubs secrets from streamed output. Writes are treated
// independently, which is sufficient for line-buffered tool output.
type redactingWriter struct {
	w io.Writer
	r *Redactor
}

func (rw *redactingWriter) Write(p []byte) (int, error) {
	if _, err := io.WriteString(rw.w, rw.r.Redact(string(p))); err != nil {
		return 0, err
	}
	return len(p), nil
}

func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return "..." + s[len(s)-n:]
}
