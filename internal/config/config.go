// Package config manages envstash configuration and the .envstash directory structure.
// It handles loading, saving, and initializing the project configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v11"
	"github.com/pelletier/go-toml/v2"
)

const (
	StashDirName = ".envstash"
	ConfigFile   = "config"
	StateFile    = "state.db"
)

// Defaults mirror the layout of a Flow application checkout.
const (
	DefaultDriver         = "pdo_mysql"
	DefaultCollation      = "utf8_unicode_ci"
	DefaultStashPath      = "Data/MagicWandStash"
	DefaultPersistentPath = "Data/Persistent"
	DefaultMetadataPath   = "Data/.magicwand"
)

// Database holds the connection settings of the managed database.
type Database struct {
	Driver    string `toml:"driver" env:"DRIVER"`
	Host      string `toml:"host" env:"HOST"`
	Port      int    `toml:"port,omitempty" env:"PORT"`
	User      string `toml:"user" env:"USER"`
	Password  string `toml:"password" env:"PASSWORD"`
	Name      string `toml:"name" env:"NAME"`
	Collation string `toml:"collation,omitempty"`
}

// Paths locates the stash registry and the live trees, relative to the project root
// unless absolute.
type Paths struct {
	Stash      string `toml:"stash" env:"STASH_DIR"`
	Persistent string `toml:"persistent" env:"PERSISTENT_DIR"`
	Metadata   string `toml:"metadata" env:"METADATA_DIR"`
}

// Tools names the database client binaries.
type Tools struct {
	Dump   string `toml:"dump" env:"DUMP"`
	Client string `toml:"client" env:"CLIENT"`
}

// Hooks are the argv lists run after a restore, in order.
type Hooks struct {
	CacheFlush []string `toml:"cache_flush"`
	Migrate    []string `toml:"migrate"`
	Publish    []string `toml:"publish"`
}

// Notify configures restore/create webhooks.
type Notify struct {
	WebhookURLs []string `toml:"webhook_urls" env:"WEBHOOK_URLS" envSeparator:","`
}

// Config represents the envstash configuration
type Config struct {
	Database Database `toml:"database" envPrefix:"DB_"`
	Paths    Paths    `toml:"paths"`
	Tools    Tools    `toml:"tools" envPrefix:"TOOL_"`
	Hooks    Hooks    `toml:"hooks"`
	Notify   Notify   `toml:"notify"`
	path     string   // path to .envstash directory
}

// Default returns a configuration with every optional field populated.
func Default() *Config {
	return &Config{
		Database: Database{
			Driver:    DefaultDriver,
			Host:      "127.0.0.1",
			Collation: DefaultCollation,
		},
		Paths: Paths{
			Stash:      DefaultStashPath,
			Persistent: DefaultPersistentPath,
			Metadata:   DefaultMetadataPath,
		},
		Tools: Tools{
			Dump:   "mysqldump",
			Client: "mysql",
		},
		Hooks: Hooks{
			CacheFlush: []string{"./flow", "flow:cache:flush"},
			Migrate:    []string{"./flow", "doctrine:migrate"},
			Publish:    []string{"./flow", "resource:publish"},
		},
	}
}

// FindRoot finds the .envstash directory by walking up from the given directory
func FindRoot(dir string) (string, error) {
	for {
		p := filepath.Join(dir, StashDirName)
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			return p, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("not an envstash project (or any parent up to root)")
		}
		dir = parent
	}
}

// Load loads the configuration from the .envstash directory above the
// working directory, then applies ENVSTASH_* environment overrides.
func Load() (*Config, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	root, err := FindRoot(cwd)
	if err != nil {
		return nil, err
	}
	return LoadFrom(root)
}

// LoadFrom loads the configuration stored in the given .envstash directory.
func LoadFrom(stashDir string) (*Config, error) {
	data, err := os.ReadFile(filepath.Join(stashDir, ConfigFile))
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg := Default()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := env.ParseWithOptions(cfg, env.Options{Prefix: "ENVSTASH_"}); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if cfg.Database.Collation == "" {
		cfg.Database.Collation = DefaultCollation
	}

	cfg.path = stashDir
	return cfg, nil
}

// Save saves the configuration to disk
func (c *Config) Save() error {
	data, err := toml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// The file carries the database password.
	return os.WriteFile(filepath.Join(c.path, ConfigFile), data, 0600)
}

// Initialize creates a new .envstash directory in dir with the given configuration.
func Initialize(dir string, cfg *Config) (*Config, error) {
	p := filepath.Join(dir, StashDirName)

	if _, err := os.Stat(p); err == nil {
		return nil, fmt.Errorf("envstash project already exists")
	}

	if err := os.MkdirAll(p, 0755); err != nil {
		return nil, fmt.Errorf("failed to create %s directory: %w", StashDirName, err)
	}

	cfg.path = p
	if err := cfg.Save(); err != nil {
		// Cleanup on failure
		os.RemoveAll(p)
		return nil, err
	}

	return cfg, nil
}

// Dir returns the path to the .envstash directory
func (c *Config) Dir() string {
	return c.path
}

// ProjectRoot returns the directory containing .envstash.
func (c *Config) ProjectRoot() string {
	return filepath.Dir(c.path)
}

// StatePath returns the path to the bbolt state database
func (c *Config) StatePath() string {
	return filepath.Join(c.path, StateFile)
}

// StashRoot returns the registry root directory.
func (c *Config) StashRoot() string {
	return c.resolve(c.Paths.Stash)
}

// PersistentPath returns the live resource tree.
func (c *Config) PersistentPath() string {
	return c.resolve(c.Paths.Persistent)
}

// MetadataPath returns the live metadata tree.
func (c *Config) MetadataPath() string {
	return c.resolve(c.Paths.Metadata)
}

func (c *Config) resolve(p string) string {
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(c.ProjectRoot(), p)
}
