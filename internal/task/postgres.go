package task

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/joseph-ayodele/docintake/constants"
	"github.com/joseph-ayodele/docintake/internal/common"
	"github.com/joseph-ayodele/docintake/internal/entity"
)

// PostgresRepository persists tasks in the tasks table via a pgx pool.
type PostgresRepository struct {
	pool *pgxpool.Pool
	log  *slog.Logger
}

func NewPostgresRepository(pool *pgxpool.Pool, logger *slog.Logger) *PostgresRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresRepository{pool: pool, log: logger}
}

// NewPool creates the pgx pool the daemon shares between repositories.
func NewPool(ctx context.Context, cfg common.DatabaseConfig, logger *slog.Logger) (*pgxpool.Pool, error) {
	pc, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		logger.Error("failed to parse database config", "error", err)
		return nil, err
	}
	pc.MaxConns = cfg.MaxConns
	pc.MinConns = cfg.MinConns
	pc.MaxConnLifetime = cfg.MaxConnLifetime
	pc.MaxConnIdleTime = cfg.MaxConnIdleTime
	pc.ConnConfig.RuntimeParams["application_name"] = "docintake"

	ctx, cancel := context.WithTimeout(ctx, cfg.DialTimeout)
	defer cancel()
	pool, err := pgxpool.NewWithConfig(ctx, pc)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		return nil, err
	}
	logger.Info("successfully connected to database")
	return pool, nil
}

// HealthCheck pings the pool to catch DSN issues early.
func HealthCheck(ctx context.Context, pool *pgxpool.Pool, timeout time.Duration) error {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return pool.Ping(ctx)
}

const taskColumns = `id, owner_id, type, status, input, output, error_message, confidence, attempts, created_at, updated_at, processed_at`

func (r *PostgresRepository) Create(ctx context.Context, t *entity.Task) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO tasks (id, owner_id, type, status, input, output, error_message, confidence, attempts, created_at, updated_at, processed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		t.ID, t.OwnerID, string(t.Type), string(t.Status), []byte(t.Input), []byte(t.Output),
		t.ErrorMsg, t.Confidence, t.Attempts, t.CreatedAt, t.UpdatedAt, t.ProcessedAt)
	if err != nil {
		r.log.Error("task insert failed", "task_id", t.ID, "err", err)
		return common.WrapError(err, "insert task")
	}
	return nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id uuid.UUID) (*entity.Task, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = $1`, id)
	t, err := scanTask(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, common.WrapError(err, "get task")
	}
	return t, nil
}

func (r *PostgresRepository) UpdateIfStatus(ctx context.Context, t *entity.Task, expect constants.TaskStatus) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE tasks SET
			status = $2, output = $3, error_message = $4, confidence = $5,
			attempts = $6, updated_at = $7, processed_at = $8
		WHERE id = $1 AND status = $9`,
		t.ID, string(t.Status), []byte(t.Output), t.ErrorMsg, t.Confidence,
		t.Attempts, t.UpdatedAt, t.ProcessedAt, string(expect))
	if err != nil {
		r.log.Error("task conditional update failed", "task_id", t.ID, "err", err)
		return common.WrapError(err, "update task")
	}
	if tag.RowsAffected() == 0 {
		// Either the row is gone or its status moved on.
		if _, getErr := r.GetByID(ctx, t.ID); getErr != nil {
			return getErr
		}
		return common.ErrConflict
	}
	return nil
}

func (r *PostgresRepository) ListByStatus(ctx context.Context, status constants.TaskStatus, limit int) ([]*entity.Task, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.pool.Query(ctx, `
		SELECT `+taskColumns+` FROM tasks
		WHERE status = $1 ORDER BY created_at LIMIT $2`, string(status), limit)
	if err != nil {
		return nil, common.WrapError(err, "list tasks")
	}
	defer rows.Close()

	var out []*entity.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, common.WrapError(err, "scan task")
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (*entity.Task, error) {
	var (
		t        entity.Task
		taskType string
		status   string
		input    []byte
		output   []byte
	)
	err := row.Scan(&t.ID, &t.OwnerID, &taskType, &status, &input, &output,
		&t.ErrorMsg, &t.Confidence, &t.Attempts, &t.CreatedAt, &t.UpdatedAt, &t.ProcessedAt)
	if err != nil {
		return nil, err
	}
	t.Type = constants.TaskType(taskType)
	t.Status = constants.TaskStatus(status)
	t.Input = input
	t.Output = output
	return &t, nil
}
