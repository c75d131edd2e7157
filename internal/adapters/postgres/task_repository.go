package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/brightlane/paymentflow/internal/domain"
)

type taskRepository struct {
	q Executor
}

func (r *taskRepository) Create(ctx context.Context, t *domain.PaymentTask) error {
	query := `
		INSERT INTO payment_tasks (payment_id, status, attempts, last_error, next_retry_at, locked_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, now(), now())
		RETURNING id, created_at, updated_at
	`
	return r.q.QueryRow(ctx, query, t.PaymentID, t.Status, t.Attempts, t.LastError, t.NextRetryAt, t.LockedAt).
		Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt)
}

const taskColumns = `id, payment_id, status, attempts, last_error, next_retry_at, locked_at, created_at, updated_at`

func scanTask(row pgx.Row) (*domain.PaymentTask, error) {
	var t domain.PaymentTask
	err := row.Scan(&t.ID, &t.PaymentID, &t.Status, &t.Attempts, &t.LastError, &t.NextRetryAt, &t.LockedAt, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scan task: %w", err)
	}
	return &t, nil
}

func (r *taskRepository) FindByID(ctx context.Context, id int64) (*domain.PaymentTask, error) {
	query := fmt.Sprintf(`SELECT %s FROM payment_tasks WHERE id = $1`, taskColumns)
	return scanTask(r.q.QueryRow(ctx, query, id))
}

func (r *taskRepository) FindByIDForUpdate(ctx context.Context, id int64) (*domain.PaymentTask, error) {
	query := fmt.Sprintf(`SELECT %s FROM payment_tasks WHERE id = $1 FOR UPDATE`, taskColumns)
	return scanTask(r.q.QueryRow(ctx, query, id))
}

func (r *taskRepository) FindByPaymentIDForUpdate(ctx context.Context, paymentID int64) (*domain.PaymentTask, error) {
	query := fmt.Sprintf(`SELECT %s FROM payment_tasks WHERE payment_id = $1 FOR UPDATE`, taskColumns)
	return scanTask(r.q.QueryRow(ctx, query, paymentID))
}

func (r *taskRepository) Update(ctx context.Context, t *domain.PaymentTask) error {
	query := `
		UPDATE payment_tasks SET status = $1, attempts = $2, last_error = $3,
			next_retry_at = $4, locked_at = $5, updated_at = now()
		WHERE id = $6
		RETURNING updated_at
	`
	err := r.q.QueryRow(ctx, query, t.Status, t.Attempts, t.LastError, t.NextRetryAt, t.LockedAt, t.ID).Scan(&t.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrNotFound
		}
		return fmt.Errorf("update task: %w", err)
	}
	return nil
}

// ReserveNext implements the spec's single critical reservation query:
// SELECT the oldest eligible task under FOR UPDATE SKIP LOCKED, eligible
// if it is new, or abandoned mid-processing past processingTimeout, and
// not scheduled for the future.
func (r *taskRepository) ReserveNext(ctx context.Context, processingTimeout time.Duration) (int64, bool, error) {
	query := `
		SELECT id FROM payment_tasks
		WHERE (
			status = 'new'
			OR (status = 'processing' AND locked_at IS NOT NULL AND locked_at < now() - ($1 * interval '1 second'))
		)
		AND (next_retry_at IS NULL OR next_retry_at <= now())
		ORDER BY created_at
		FOR UPDATE SKIP LOCKED
		LIMIT 1
	`
	var id int64
	err := r.q.QueryRow(ctx, query, processingTimeout.Seconds()).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("reserve next task: %w", err)
	}
	return id, true, nil
}
