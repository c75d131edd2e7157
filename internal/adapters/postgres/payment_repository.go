package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/brightlane/paymentflow/internal/domain"
)

type paymentRepository struct {
	q Executor
}

func (r *paymentRepository) Create(ctx context.Context, p *domain.Payment) error {
	query := `
		INSERT INTO payments (user_id, type, amount, commission, status, idempotency_key,
			attempts, last_error, next_retry_at, locked_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, now(), now())
		ON CONFLICT (user_id, idempotency_key) WHERE idempotency_key IS NOT NULL DO NOTHING
		RETURNING id, created_at, updated_at
	`
	err := r.q.QueryRow(ctx, query,
		p.UserID, p.Type, p.Amount, p.Commission, p.Status, p.IdempotencyKey,
		p.Attempts, p.LastError, p.NextRetryAt, p.LockedAt,
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		// A skipped insert leaves the enclosing transaction usable, so the
		// caller can re-read the existing payment in the same transaction.
		if errors.Is(err, pgx.ErrNoRows) || IsUniqueViolation(err) {
			return domain.ErrDuplicateIdempotencyKey
		}
		return fmt.Errorf("create payment: %w", err)
	}
	return nil
}

const paymentColumns = `id, user_id, type, amount, commission, status, idempotency_key,
	attempts, last_error, next_retry_at, locked_at, created_at, updated_at`

func scanPayment(row pgx.Row) (*domain.Payment, error) {
	var p domain.Payment
	err := row.Scan(
		&p.ID, &p.UserID, &p.Type, &p.Amount, &p.Commission, &p.Status, &p.IdempotencyKey,
		&p.Attempts, &p.LastError, &p.NextRetryAt, &p.LockedAt, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NewPaymentNotFoundError(p.ID)
		}
		return nil, fmt.Errorf("scan payment: %w", err)
	}
	return &p, nil
}

func (r *paymentRepository) FindByID(ctx context.Context, id int64) (*domain.Payment, error) {
	query := fmt.Sprintf(`SELECT %s FROM payments WHERE id = $1`, paymentColumns)
	return scanPayment(r.q.QueryRow(ctx, query, id))
}

func (r *paymentRepository) FindByIDForUpdate(ctx context.Context, id int64) (*domain.Payment, error) {
	query := fmt.Sprintf(`SELECT %s FROM payments WHERE id = $1 FOR UPDATE`, paymentColumns)
	return scanPayment(r.q.QueryRow(ctx, query, id))
}

func (r *paymentRepository) FindByIdempotencyKey(ctx context.Context, userID int64, key string) (*domain.Payment, error) {
	query := fmt.Sprintf(`SELECT %s FROM payments WHERE user_id = $1 AND idempotency_key = $2`, paymentColumns)
	return scanPayment(r.q.QueryRow(ctx, query, userID, key))
}

func (r *paymentRepository) Update(ctx context.Context, p *domain.Payment) error {
	query := `
		UPDATE payments SET status = $1, attempts = $2, last_error = $3,
			next_retry_at = $4, locked_at = $5, commission = $6, updated_at = now()
		WHERE id = $7
		RETURNING updated_at
	`
	err := r.q.QueryRow(ctx, query,
		p.Status, p.Attempts, p.LastError, p.NextRetryAt, p.LockedAt, p.Commission, p.ID,
	).Scan(&p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.NewPaymentNotFoundError(p.ID)
		}
		return fmt.Errorf("update payment: %w", err)
	}
	return nil
}
