package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/brightlane/paymentflow/internal/domain"
)

type userRepository struct {
	q Executor
}

func (r *userRepository) Create(ctx context.Context, u *domain.User) error {
	query := `INSERT INTO users (balance) VALUES ($1) RETURNING id`
	return r.q.QueryRow(ctx, query, u.Balance).Scan(&u.ID)
}

func (r *userRepository) FindByID(ctx context.Context, id int64) (*domain.User, error) {
	return r.find(ctx, id, "")
}

func (r *userRepository) FindByIDForUpdate(ctx context.Context, id int64) (*domain.User, error) {
	return r.find(ctx, id, "FOR UPDATE")
}

func (r *userRepository) find(ctx context.Context, id int64, suffix string) (*domain.User, error) {
	query := fmt.Sprintf(`SELECT id, balance FROM users WHERE id = $1 %s`, suffix)
	var u domain.User
	err := r.q.QueryRow(ctx, query, id).Scan(&u.ID, &u.Balance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NewUserNotFoundError(id)
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return &u, nil
}

func (r *userRepository) Update(ctx context.Context, u *domain.User) error {
	query := `UPDATE users SET balance = $1 WHERE id = $2`
	tag, err := r.q.Exec(ctx, query, u.Balance, u.ID)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.NewUserNotFoundError(u.ID)
	}
	return nil
}
