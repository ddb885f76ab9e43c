package review

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/joseph-ayodele/docintake/internal/common"
)

// PostgresCommitter hands accepted data to the accepted_records table, the
// external storage surface downstream systems read from.
type PostgresCommitter struct {
	pool *pgxpool.Pool
	log  *slog.Logger
}

func NewPostgresCommitter(pool *pgxpool.Pool, logger *slog.Logger) *PostgresCommitter {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresCommitter{pool: pool, log: logger}
}

func (c *PostgresCommitter) Commit(ctx context.Context, item *Item, data json.RawMessage) error {
	_, err := c.pool.Exec(ctx, `
		INSERT INTO accepted_records (id, task_id, disposition, data, notes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		uuid.New(), item.TaskID, string(item.Disposition), []byte(data), item.Notes, time.Now().UTC())
	if err != nil {
		c.log.Error("review.commit_failed", "task_id", item.TaskID, "err", err)
		return common.WrapError(err, "insert accepted record")
	}
	c.log.Info("review.committed", "task_id", item.TaskID, "disposition", item.Disposition)
	return nil
}
