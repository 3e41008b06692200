// Package registry implements the filesystem-backed stash registry. Each
// immediate child directory of the root is one stash entry; hidden children
// are reserved and never listed.
package registry

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/kilupskalvis/envstash/internal/models"
)

// ErrInvalidName is returned for names that are not a single safe path segment.
var ErrInvalidName = errors.New("invalid stash name")

// ErrNotFound is returned when an entry does not exist.
var ErrNotFound = errors.New("stash entry not found")

// maxNameLen matches the common filesystem limit for a path segment.
const maxNameLen = 255

// validName allows a single path segment that cannot be hidden or traverse.
var validName = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._@+-]*$`)

// Registry manages stash entries under a root directory.
type Registry struct {
	root string
}

// New creates a registry rooted at root. The directory is created lazily.
func New(root string) *Registry {
	return &Registry{root: root}
}

// Root returns the registry root directory.
func (r *Registry) Root() string {
	return r.root
}

// ValidateName checks that name can be used as an entry directory.
func ValidateName(name string) error {
	if len(name) > maxNameLen || !validName.MatchString(name) || strings.Contains(name, "..") {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}

// EntryPath joins the root and a validated name.
func (r *Registry) EntryPath(name string) (string, error) {
	if err := ValidateName(name); err != nil {
		return "", err
	}
	return filepath.Join(r.root, name), nil
}

// List returns the sorted entry names. A missing root yields an empty list.
func (r *Registry) List() ([]string, error) {
	children, err := os.ReadDir(r.root)
	if os.IsNotExist(err) {
		return []string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read stash directory: %w", err)
	}

	names := []string{}
	for _, c := range children {
		if !c.IsDir() || strings.HasPrefix(c.Name(), ".") {
			continue
		}
		names = append(names, c.Name())
	}
	sort.Strings(names)
	return names, nil
}

// Entries returns details for every entry, in name order.
func (r *Registry) Entries() ([]*models.Entry, error) {
	names, err := r.List()
	if err != nil {
		return nil, err
	}

	entries := make([]*models.Entry, 0, len(names))
	for _, name := range names {
		e, err := r.Entry(name)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// Exists reports whether the named entry directory exists.
func (r *Registry) Exists(name string) (bool, error) {
	p, err := r.EntryPath(name)
	if err != nil {
		return false, err
	}
	info, err := os.Stat(p)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("stat entry %s: %w", name, err)
	}
	return info.IsDir(), nil
}

// Entry loads the named entry. Returns ErrNotFound if it does not exist.
func (r *Registry) Entry(name string) (*models.Entry, error) {
	p, err := r.EntryPath(name)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(p)
	if os.IsNotExist(err) || (err == nil && !info.IsDir()) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("stat entry %s: %w", name, err)
	}

	e := &models.Entry{
		Name:      name,
		Path:      p,
		CreatedAt: info.ModTime(),
	}
	e.Complete = isFile(e.DatabasePath()) && isDir(e.PersistentPath()) && isDir(e.MetadataPath())
	return e, nil
}

// Create makes the directory for a new entry. Returns os.ErrExist if the name is taken.
func (r *Registry) Create(name string) (*models.Entry, error) {
	p, err := r.EntryPath(name)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(r.root, 0755); err != nil {
		return nil, fmt.Errorf("create stash directory: %w", err)
	}
	if err := os.Mkdir(p, 0755); err != nil {
		return nil, fmt.Errorf("create entry %s: %w", name, err)
	}
	return r.Entry(name)
}

// Remove deletes the named entry recursively.
func (r *Registry) Remove(name string) error {
	ok, err := r.Exists(name)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	p, _ := r.EntryPath(name)
	if err := os.RemoveAll(p); err != nil {
		return fmt.Errorf("remove entry %s: %w", name, err)
	}
	return nil
}

// Clear deletes the whole registry root.
func (r *Registry) Clear() error {
	if err := os.RemoveAll(r.root); err != nil {
		return fmt.Errorf("remove stash directory: %w", err)
	}
	return nil
}

func isFile(p string) bool {
	info, err := os.Stat(p)
	return err == nil && info.Mode().IsRegular()
}

func isDir(p string) bool {
	info, err := os.Stat(p)
	return err == nil && info.IsDir()
}
