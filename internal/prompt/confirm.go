// Package prompt implements the interactive confirmation gate used before
// destructive operations.
package prompt

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Token is the only answer that confirms.
const Token = "yes"

// Confirmer asks the operator whether to proceed.
type Confirmer interface {
	Confirm(ctx context.Context, prompt string) (bool, error)
}

// Terminal reads a single answer line from in after writing the prompt to out.
type Terminal struct {
	in  *bufio.Reader
	out io.Writer
}

// NewTerminal creates a confirmer bound to the given streams.
func NewTerminal(in io.Reader, out io.Writer) *Terminal {
	return &Terminal{in: bufio.NewReader(in), out: out}
}

// Confirm blocks until a line is read or ctx is done. Only the exact token
// "yes" (surrounding whitespace ignored) confirms; anything else, including
// EOF, declines. A cancelled ctx returns its error; the pending read is
// abandoned.
func (t *Terminal) Confirm(ctx context.Context, prompt string) (bool, error) {
	fmt.Fprintf(t.out, "%s  Type '%s' to continue: ", prompt, Token)

	type answer struct {
		line string
		err  error
	}
	ch := make(chan answer, 1)
	go func() {
		line, err := t.in.ReadString('\n')
		ch <- answer{line, err}
	}()

	var a answer
	select {
	case <-ctx.Done():
		fmt.Fprintln(t.out)
		return false, ctx.Err()
	case a = <-ch:
	}
	if a.err != nil && !errors.Is(a.err, io.EOF) {
		return false, fmt.Errorf("read confirmation: %w", a.err)
	}
	fmt.Fprintln(t.out)

	return strings.TrimSpace(a.line) == Token, nil
}

// AssumeYes confirms without asking (the --yes flag).
type AssumeYes struct{}

// Confirm always returns true.
func (AssumeYes) Confirm(context.Context, string) (bool, error) {
	return true, nil
}

// Scripted answers from a fixed list, declining once exhausted.
type Scripted struct {
	Answers []string
	Prompts []string
}

// Confirm consumes the next scripted answer.
func (s *Scripted) Confirm(ctx context.Context, prompt string) (bool, error) {
	s.Prompts = append(s.Prompts, prompt)
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if len(s.Answers) == 0 {
		return false, nil
	}
	answer := s.Answers[0]
	s.Answers = s.Answers[1:]
	return strings.TrimSpace(answer) == Token, nil
}

// Verify that confirmers implement Confirmer at compile time
var (
	_ Confirmer = (*Terminal)(nil)
	_ Confirmer = AssumeYes{}
	_ Confirmer = (*Scripted)(nil)
)
