package models

import "time"

// Manifest records the most recently restored stash entry
type Manifest struct {
	Name       string    `json:"name"`
	RestoredAt time.Time `json:"restored_at"`
}
