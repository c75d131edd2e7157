package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/brightlane/paymentflow/internal/domain"
)

type dlqRepository struct {
	q Executor
}

func (r *dlqRepository) Create(ctx context.Context, e *domain.DLQEntry) error {
	query := `
		INSERT INTO payment_dlq (payment_id, user_id, amount, commission, type, error, attempts, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, now())
		ON CONFLICT (payment_id) DO NOTHING
		RETURNING id, created_at
	`
	err := r.q.QueryRow(ctx, query, e.PaymentID, e.UserID, e.Amount, e.Commission, e.Type, e.Error, e.Attempts).
		Scan(&e.ID, &e.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			// ON CONFLICT DO NOTHING skipped the insert: a DLQ row
			// already exists for this payment, which is the
			// idempotent outcome mark_terminal_failure expects.
			return nil
		}
		return fmt.Errorf("create dlq entry: %w", err)
	}
	return nil
}

func (r *dlqRepository) ExistsForPayment(ctx context.Context, paymentID int64) (bool, error) {
	var exists bool
	err := r.q.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM payment_dlq WHERE payment_id = $1)`, paymentID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check dlq entry: %w", err)
	}
	return exists, nil
}

func (r *dlqRepository) List(ctx context.Context, limit, offset int) ([]*domain.DLQEntry, error) {
	query := `
		SELECT id, payment_id, user_id, amount, commission, type, error, attempts, created_at
		FROM payment_dlq
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`
	rows, err := r.q.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list dlq entries: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (*domain.DLQEntry, error) {
		var e domain.DLQEntry
		err := row.Scan(&e.ID, &e.PaymentID, &e.UserID, &e.Amount, &e.Commission, &e.Type, &e.Error, &e.Attempts, &e.CreatedAt)
		return &e, err
	})
}
