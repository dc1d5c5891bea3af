package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// IndexRunStatus represents the status of an index run
type IndexRunStatus string

const (
	RunStatusPending    IndexRunStatus = "pending"
	RunStatusInProgress IndexRunStatus = "in_progress"
	RunStatusCompleted  IndexRunStatus = "completed"
	RunStatusFailed     IndexRunStatus = "failed"
)

// Step statuses
const (
	StepPending    = "pending"
	StepInProgress = "in_progress"
	StepCompleted  = "completed"
	StepSkipped    = "skipped"
	StepFailed     = "failed"
)

// IndexStep tracks one source within an index run
type IndexStep struct {
	Name          string `json:"name"`
	URL           string `json:"url"`
	Status        string `json:"status"` // "pending", "in_progress", "completed", "skipped", "failed"
	ChunksIndexed int    `json:"chunks_indexed"`
	ChunksFailed  int    `json:"chunks_failed"`
	Error         string `json:"error,omitempty"`
}

// IndexSteps is the ordered list of steps of a run
type IndexSteps []IndexStep

// Value implements driver.Valuer for JSONB
func (s IndexSteps) Value() (driver.Value, error) {
	return json.Marshal(s)
}

// Scan implements sql.Scanner for JSONB
func (s *IndexSteps) Scan(value interface{}) error {
	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	}
	if len(bytes) == 0 {
		*s = make(IndexSteps, 0)
		return nil
	}
	return json.Unmarshal(bytes, s)
}

// IndexRun is one pass of the indexer over a set of sources
type IndexRun struct {
	ID           uuid.UUID      `json:"id"`
	Trigger      string         `json:"trigger"` // "api", "cli", "schedule", "startup"
	Status       IndexRunStatus `json:"status"`
	CurrentStep  *string        `json:"current_step,omitempty"`
	Steps        IndexSteps     `json:"steps"`
	ErrorMessage *string        `json:"error_message,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	CompletedAt  *time.Time     `json:"completed_at,omitempty"`
}

// Clone returns a deep copy safe to hand to another goroutine
func (r *IndexRun) Clone() *IndexRun {
	c := *r
	c.Steps = append(IndexSteps(nil), r.Steps...)
	if r.CurrentStep != nil {
		s := *r.CurrentStep
		c.CurrentStep = &s
	}
	if r.ErrorMessage != nil {
		s := *r.ErrorMessage
		c.ErrorMessage = &s
	}
	if r.CompletedAt != nil {
		t := *r.CompletedAt
		c.CompletedAt = &t
	}
	return &c
}
