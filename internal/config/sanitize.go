package config

import "github.com/kilupskalvis/envstash/internal/shell"

// Sanitize returns a copy of the config with sensitive fields masked.
//
// This is used for printing configuration without exposing secrets. Set
// secrets are replaced entirely; unset ones stay empty so a missing value
// is still visible.
func Sanitize(cfg *Config) *Config {
	sanitized := *cfg

	if sanitized.Database.Password != "" {
		sanitized.Database.Password = shell.Placeholder
	}
	if sanitized.Database.User != "" {
		sanitized.Database.User = shell.Placeholder
	}

	return &sanitized
}

// Secrets returns the values that must never appear in output.
func (c *Config) Secrets() []string {
	return []string{c.Database.User, c.Database.Password}
}
