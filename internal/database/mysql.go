// Package database builds the dump, load, and recreate invocations for the
// managed MySQL database. The engine itself is only ever reached through its
// command-line tools.
package database

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/kilupskalvis/envstash/internal/config"
	"github.com/kilupskalvis/envstash/internal/shell"
)

// ErrUnsupportedDriver is returned for any driver other than MySQL.
var ErrUnsupportedDriver = errors.New("unsupported database driver")

// supportedDrivers lists the accepted spellings of the MySQL driver.
var supportedDrivers = map[string]bool{
	"pdo_mysql": true,
	"mysql":     true,
}

// Phase names reported in errors and output.
const (
	PhaseDump     = "Backup Database"
	PhaseRecreate = "Drop and Recreate DB"
	PhaseLoad     = "Restore Database"
)

// MySQL builds commands for a single MySQL database.
type MySQL struct {
	db    config.Database
	tools config.Tools
}

// New validates the driver and returns a command builder.
func New(db config.Database, tools config.Tools) (*MySQL, error) {
	if err := CheckDriver(db.Driver); err != nil {
		return nil, err
	}
	if db.Name == "" {
		return nil, fmt.Errorf("database name is not configured")
	}
	if tools.Dump == "" {
		tools.Dump = "mysqldump"
	}
	if tools.Client == "" {
		tools.Client = "mysql"
	}
	if db.Collation == "" {
		db.Collation = config.DefaultCollation
	}
	return &MySQL{db: db, tools: tools}, nil
}

// CheckDriver fails with ErrUnsupportedDriver unless driver is MySQL.
func CheckDriver(driver string) error {
	if !supportedDrivers[driver] {
		return fmt.Errorf("%w: %q (only mysql is supported)", ErrUnsupportedDriver, driver)
	}
	return nil
}

// Secrets returns the credential values that must be redacted.
func (m *MySQL) Secrets() []string {
	return []string{m.db.User, m.db.Password}
}

// Dump writes the database to path.
func (m *MySQL) Dump(path string) shell.Command {
	args := append(m.connArgs(), "--add-drop-table", "--result-file="+path, m.db.Name)
	return shell.Command{
		Phase: PhaseDump,
		Name:  m.tools.Dump,
		Args:  args,
		Env:   m.env(),
	}
}

// Recreate drops the database and creates it empty with the configured collation.
func (m *MySQL) Recreate() shell.Command {
	name := quoteIdent(m.db.Name)
	sql := fmt.Sprintf("DROP DATABASE IF EXISTS %s; CREATE DATABASE %s COLLATE %s;", name, name, m.db.Collation)
	args := append(m.connArgs(), "--execute", sql)
	return shell.Command{
		Phase: PhaseRecreate,
		Name:  m.tools.Client,
		Args:  args,
		Env:   m.env(),
	}
}

// Load replays the dump at path into the database.
func (m *MySQL) Load(path string) shell.Command {
	args := append(m.connArgs(), m.db.Name)
	return shell.Command{
		Phase: PhaseLoad,
		Name:  m.tools.Client,
		Args:  args,
		Env:   m.env(),
		Stdin: path,
	}
}

func (m *MySQL) connArgs() []string {
	args := []string{"--host=" + m.db.Host}
	if m.db.Port > 0 {
		args = append(args, "--port="+strconv.Itoa(m.db.Port))
	}
	if m.db.User != "" {
		args = append(args, "--user="+m.db.User)
	}
	return args
}

// env passes the password out of band so it never shows in argv.
func (m *MySQL) env() []string {
	if m.db.Password == "" {
		return nil
	}
	return []string{"MYSQL_PWD=" + m.db.Password}
}

func quoteIdent(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}
