package task

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/docintake/constants"
	"github.com/joseph-ayodele/docintake/internal/common"
	"github.com/joseph-ayodele/docintake/internal/entity"
)

// Repository is the persistence surface for tasks.
type Repository interface {
	Create(ctx context.Context, t *entity.Task) error
	GetByID(ctx context.Context, id uuid.UUID) (*entity.Task, error)
	// UpdateIfStatus writes t only while the stored task still has status
	// expect, returning common.ErrConflict when another transition won the
	// race. Status transitions go through this, never plain Update.
	UpdateIfStatus(ctx context.Context, t *entity.Task, expect constants.TaskStatus) error
	ListByStatus(ctx context.Context, status constants.TaskStatus, limit int) ([]*entity.Task, error)
}

// MemoryRepository keeps tasks in process. Used by the CLI and by tests; the
// daemon uses the Postgres repository.
type MemoryRepository struct {
	mu    sync.RWMutex
	tasks map[uuid.UUID]entity.Task
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{tasks: make(map[uuid.UUID]entity.Task)}
}

func (r *MemoryRepository) Create(_ context.Context, t *entity.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tasks[t.ID] = *t
	return nil
}

func (r *MemoryRepository) GetByID(_ context.Context, id uuid.UUID) (*entity.Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tasks[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	out := t
	return &out, nil
}

func (r *MemoryRepository) UpdateIfStatus(_ context.Context, t *entity.Task, expect constants.TaskStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.tasks[t.ID]
	if !ok {
		return common.ErrNotFound
	}
	if cur.Status != expect {
		return common.ErrConflict
	}
	r.tasks[t.ID] = *t
	return nil
}

func (r *MemoryRepository) ListByStatus(_ context.Context, status constants.TaskStatus, limit int) ([]*entity.Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*entity.Task
	for _, t := range r.tasks {
		if t.Status != status {
			continue
		}
		c := t
		out = append(out, &c)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}
