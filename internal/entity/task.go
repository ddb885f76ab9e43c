package entity

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/docintake/constants"
)

// Task represents one unit of asynchronous extraction work for data transfer
// between layers.
type Task struct {
	ID          uuid.UUID            `json:"id"`
	OwnerID     uuid.UUID            `json:"owner_id"`
	Type        constants.TaskType   `json:"type"`
	Status      constants.TaskStatus `json:"status"`
	Input       json.RawMessage      `json:"input"`
	Output      json.RawMessage      `json:"output,omitempty"`
	ErrorMsg    *string              `json:"error_message,omitempty"`
	Confidence  *float32             `json:"confidence,omitempty"`
	Attempts    int                  `json:"attempts"`
	CreatedAt   time.Time            `json:"created_at"`
	UpdatedAt   time.Time            `json:"updated_at"`
	ProcessedAt *time.Time           `json:"processed_at,omitempty"`
}

// Terminal reports whether the task has reached a terminal status.
func (t *Task) Terminal() bool {
	return t.Status.Terminal()
}
