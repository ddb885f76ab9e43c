package review

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/docintake/constants"
	"github.com/joseph-ayodele/docintake/internal/common"
	"github.com/joseph-ayodele/docintake/internal/entity"
)

// Item is one result moving through the review workflow. OriginalContent is
// kept so a reviewer can see what the extraction was based on.
type Item struct {
	ID              uuid.UUID                   `json:"id"`
	TaskID          uuid.UUID                   `json:"task_id"`
	Disposition     constants.ReviewDisposition `json:"disposition"`
	Status          constants.ReviewStatus      `json:"status"`
	OriginalContent string                      `json:"original_content"`
	Result          entity.ExtractionResult     `json:"result"`
	EditedData      json.RawMessage             `json:"edited_data,omitempty"`
	Notes           string                      `json:"notes,omitempty"`
	CreatedAt       time.Time                   `json:"created_at"`
	DecidedAt       *time.Time                  `json:"decided_at,omitempty"`
}

// Committer hands accepted data to external storage.
type Committer interface {
	Commit(ctx context.Context, item *Item, data json.RawMessage) error
}

// CommitterFunc adapts a function to the Committer interface.
type CommitterFunc func(ctx context.Context, item *Item, data json.RawMessage) error

func (f CommitterFunc) Commit(ctx context.Context, item *Item, data json.RawMessage) error {
	return f(ctx, item, data)
}

// Service routes incoming results and exposes the human workflow. State is
// in-process; items exist only between extraction and decision.
type Service struct {
	committer Committer
	log       *slog.Logger

	mu    sync.RWMutex
	items map[uuid.UUID]*Item
}

func NewService(committer Committer, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		committer: committer,
		log:       logger,
		items:     make(map[uuid.UUID]*Item),
	}
}

// Enqueue routes a result. Auto-approved results are committed immediately
// and never enter the queue; everything else waits for a reviewer.
func (s *Service) Enqueue(ctx context.Context, taskID uuid.UUID, originalContent string, res entity.ExtractionResult) (*Item, error) {
	item := &Item{
		ID:              uuid.New(),
		TaskID:          taskID,
		Disposition:     Route(res),
		Status:          constants.ReviewStatusOpen,
		OriginalContent: originalContent,
		Result:          res,
		CreatedAt:       time.Now().UTC(),
	}

	if item.Disposition == constants.DispositionAutoApproved {
		if err := s.committer.Commit(ctx, item, res.Data); err != nil {
			return nil, common.WrapError(err, "commit auto-approved result")
		}
		now := time.Now().UTC()
		item.Status = constants.ReviewStatusApproved
		item.DecidedAt = &now
		s.log.Info("review.auto_approved", "task_id", taskID, "confidence", res.Confidence)
		return item, nil
	}

	s.mu.Lock()
	s.items[item.ID] = item
	s.mu.Unlock()

	s.log.Info("review.queued",
		"item_id", item.ID,
		"task_id", taskID,
		"disposition", item.Disposition,
		"confidence", res.Confidence,
	)
	return item, nil
}

// Get returns one review item.
func (s *Service) Get(id uuid.UUID) (*Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	item, ok := s.items[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	return item, nil
}

// ListOpen returns the items still awaiting a decision.
func (s *Service) ListOpen() []*Item {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Item
	for _, item := range s.items {
		if item.Status == constants.ReviewStatusOpen {
			out = append(out, item)
		}
	}
	return out
}

// maxEditBytes bounds one reviewer edit payload.
const maxEditBytes = 1 << 20

// UpdateFields stores reviewer edits. Edits are used as-is at approval and
// are never re-scored or re-extracted.
func (s *Service) UpdateFields(id uuid.UUID, edited json.RawMessage) error {
	v := common.NewValidator().
		Field("edited_data", []byte(edited), common.Required, common.MaxBytes(maxEditBytes))
	if v.HasErrors() {
		return common.NewAppError("INVALID_EDIT", v.ErrorMessage(), common.ErrValidation)
	}
	if !json.Valid(edited) {
		return common.NewAppError("INVALID_EDIT", "edited fields must be valid JSON", common.ErrInvalidInput)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.items[id]
	if !ok {
		return common.ErrNotFound
	}
	if item.Status != constants.ReviewStatusOpen {
		return common.NewAppError("ALREADY_DECIDED", fmt.Sprintf("review item %s is %s", id, item.Status), common.ErrInvalidInput)
	}
	item.EditedData = edited
	return nil
}

// Approve commits the edited data when present, the original otherwise, and
// records the reviewer's notes. The lock stays held across the commit so two
// reviewers cannot both observe the item open and commit it twice; a failed
// commit leaves the item open.
func (s *Service) Approve(ctx context.Context, id uuid.UUID, notes string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.items[id]
	if !ok {
		return common.ErrNotFound
	}
	if item.Status != constants.ReviewStatusOpen {
		return common.NewAppError("ALREADY_DECIDED", fmt.Sprintf("review item %s is %s", id, item.Status), common.ErrInvalidInput)
	}
	data := item.EditedData
	if data == nil {
		data = item.Result.Data
	}

	if err := s.committer.Commit(ctx, item, data); err != nil {
		return common.WrapError(err, "commit approved result")
	}

	now := time.Now().UTC()
	item.Status = constants.ReviewStatusApproved
	item.Notes = notes
	item.DecidedAt = &now

	s.log.Info("review.approved", "item_id", id, "edited", len(item.EditedData) > 0)
	return nil
}

// Reject discards the extracted data, keeping only the notes.
func (s *Service) Reject(id uuid.UUID, notes string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.items[id]
	if !ok {
		return common.ErrNotFound
	}
	if item.Status != constants.ReviewStatusOpen {
		return common.NewAppError("ALREADY_DECIDED", fmt.Sprintf("review item %s is %s", id, item.Status), common.ErrInvalidInput)
	}

	now := time.Now().UTC()
	item.Status = constants.ReviewStatusRejected
	item.Notes = notes
	item.EditedData = nil
	item.DecidedAt = &now

	s.log.Info("review.rejected", "item_id", id)
	return nil
}
