package shell

import (
	"sort"
	"strings"
)

// Placeholder replaces every secret in redacted text.
const Placeholder = "******"

// Redactor scrubs registered secret values from text.
type Redactor struct {
	secrets []string
}

// NewRedactor creates a redactor for the given secrets. Empty values are ignored.
func NewRedactor(secrets ...string) *Redactor {
	r := &Redactor{}
	r.Add(secrets...)
	return r
}

// Add registers additional secrets.
func (r *Redactor) Add(secrets ...string) {
	for _, s := range secrets {
		if s == "" {
			continue
		}
		r.secrets = append(r.secrets, s)
	}
	// Longest first so a secret containing another is replaced whole.
	sort.SliceStable(r.secrets, func(i, j int) bool {
		return len(r.secrets[i]) > len(r.secrets[j])
	})
}

// Redact returns s with every registered secret replaced by Placeholder.
func (r *Redactor) Redact(s string) string {
	if r == nil {
		return s
	}
	for _, secret := range r.secrets {
		s = strings.ReplaceAll(s, secret, Placeholder)
	}
	return s
}

// RedactArgs renders name and args as a single redacted command line.
func (r *Redactor) RedactArgs(name string, args []string) string {
	parts := make([]string, 0, len(args)+1)
	parts = append(parts, quote(name))
	for _, a := range args {
		parts = append(parts, quote(a))
	}
	return r.Redact(strings.Join(parts, " "))
}

func quote(s string) string {
	if s == "" {
		return "''"
	}
	if strings.ContainsAny(s, " \t\n'\"`$;&|<>") {
		return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
	}
	return s
}
