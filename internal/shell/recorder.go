package shell

import (
	"context"
	"sync"
)

// Recorder is a Runner that captures commands instead of running them.
// Used as a test double for the database tools and hooks.
type Recorder struct {
	mu       sync.Mutex
	Commands []Command
	// Fail maps a phase name to the exit code the recorder reports for it.
	Fail map[string]int
	// OnRun, if set, is invoked for every command before failure injection.
	OnRun func(cmd Command) error
	// Redactor renders command lines in returned errors.
	Redactor *Redactor
}

// NewRecorder creates an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{Fail: make(map[string]int)}
}

// Run records cmd and returns an injected failure, if any.
func (r *Recorder) Run(_ context.Context, cmd Command) error {
	r.mu.Lock()
	r.Commands = append(r.Commands, cmd)
	hook := r.OnRun
	code, fail := r.Fail[cmd.Phase]
	r.mu.Unlock()

	if hook != nil {
		if err := hook(cmd); err != nil {
			return err
		}
	}

	if fail {
		return &CommandError{
			Phase:       cmd.Phase,
			ExitCode:    code,
			CommandLine: r.Redactor.RedactArgs(cmd.Name, cmd.Args),
		}
	}
	return nil
}

// Phases returns the phases of all recorded commands in order.
func (r *Recorder) Phases() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	phases := make([]string, len(r.Commands))
	for i, c := range r.Commands {
		phases[i] = c.Phase
	}
	return phases
}

// Reset drops recorded commands.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Commands = nil
}

// Verify that runners implement Runner at compile time
var (
	_ Runner = (*Executor)(nil)
	_ Runner = (*Recorder)(nil)
)
