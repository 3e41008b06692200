package store

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/kilupskalvis/envstash/internal/models"
)

// keyManifest holds the JSON-encoded current manifest.
const keyManifest = "manifest"

// CurrentManifest returns the most recently restored entry, or nil if nothing
// has been restored yet.
func (s *Store) CurrentManifest() (*models.Manifest, error) {
	data, err := s.GetValue(keyManifest)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	if data == "" {
		return nil, nil
	}

	m := &models.Manifest{}
	if err := json.Unmarshal([]byte(data), m); err != nil {
		return nil, fmt.Errorf("unmarshal manifest: %w", err)
	}
	return m, nil
}

// RecordRestore overwrites the manifest with the given entry name.
func (s *Store) RecordRestore(name string, at time.Time) error {
	data, err := json.Marshal(&models.Manifest{Name: name, RestoredAt: at.UTC()})
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}
	return s.SetValue(keyManifest, string(data))
}
