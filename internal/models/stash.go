// Package models defines the core data structures used throughout envstash
// including stash entries, the restore manifest, and history records.
package models

import (
	"path/filepath"
	"time"
)

// On-disk layout of a single stash entry.
const (
	DatabaseFile  = "database.sql"
	PersistentDir = "persistent"
	MetadataDir   = ".metadata"
)

// Entry represents a named stash entry in the registry
type Entry struct {
	Name      string    `json:"name"`
	Path      string    `json:"path"`
	CreatedAt time.Time `json:"created_at"`
	Complete  bool      `json:"complete"` // all artifacts present
}

// DatabasePath returns the path of the database dump artifact.
func (e *Entry) DatabasePath() string {
	return filepath.Join(e.Path, DatabaseFile)
}

// PersistentPath returns the path of the resource tree snapshot.
func (e *Entry) PersistentPath() string {
	return filepath.Join(e.Path, PersistentDir)
}

// MetadataPath returns the path of the metadata bundle.
func (e *Entry) MetadataPath() string {
	return filepath.Join(e.Path, MetadataDir)
}
