package models

import "time"

// OperationType represents the kind of stash operation
type OperationType string

const (
	OperationCreate  OperationType = "create"
	OperationRestore OperationType = "restore"
	OperationRemove  OperationType = "remove"
	OperationClear   OperationType = "clear"
)

// HistoryRecord is one entry of the append-only operation log
type HistoryRecord struct {
	ID        string        `json:"id"`
	Seq       uint64        `json:"seq"`
	Operation OperationType `json:"operation"`
	Name      string        `json:"name,omitempty"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
	Error     string        `json:"error,omitempty"` // redacted
}

// Failed reports whether the operation ended in an error
func (r *HistoryRecord) Failed() bool {
	return r.Error != ""
}
