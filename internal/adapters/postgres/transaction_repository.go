package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/brightlane/paymentflow/internal/domain"
)

type transactionRepository struct {
	q Executor
}

func (r *transactionRepository) Create(ctx context.Context, t *domain.Transaction) error {
	query := `
		INSERT INTO transactions (user_id, payment_id, amount, commission, type, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`
	return r.q.QueryRow(ctx, query, t.UserID, t.PaymentID, t.Amount, t.Commission, t.Type, t.Status).Scan(&t.ID)
}

const transactionColumns = `id, user_id, payment_id, amount, commission, type, status`

func scanTransaction(row pgx.Row) (*domain.Transaction, error) {
	var t domain.Transaction
	err := row.Scan(&t.ID, &t.UserID, &t.PaymentID, &t.Amount, &t.Commission, &t.Type, &t.Status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scan transaction: %w", err)
	}
	return &t, nil
}

func (r *transactionRepository) FindByPaymentID(ctx context.Context, paymentID int64) (*domain.Transaction, error) {
	query := fmt.Sprintf(`SELECT %s FROM transactions WHERE payment_id = $1`, transactionColumns)
	return scanTransaction(r.q.QueryRow(ctx, query, paymentID))
}

func (r *transactionRepository) FindByPaymentIDForUpdate(ctx context.Context, paymentID int64) (*domain.Transaction, error) {
	query := fmt.Sprintf(`SELECT %s FROM transactions WHERE payment_id = $1 FOR UPDATE`, transactionColumns)
	return scanTransaction(r.q.QueryRow(ctx, query, paymentID))
}

func (r *transactionRepository) Update(ctx context.Context, t *domain.Transaction) error {
	query := `UPDATE transactions SET status = $1 WHERE id = $2`
	tag, err := r.q.Exec(ctx, query, t.Status, t.ID)
	if err != nil {
		return fmt.Errorf("update transaction: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
