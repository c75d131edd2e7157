package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/brightlane/paymentflow/internal/ports"
)

// Store is the pgx-backed ports.Store: every accessor is bound to the
// store's current Executor, which is either the pool or an in-flight
// transaction installed by WithTx.
type Store struct {
	pool *pgxpool.Pool
	q    Executor
}

// NewStore builds the pool-bound root store.
func NewStore(db *DB) *Store {
	return &Store{pool: db.Pool, q: db.Pool}
}

func (s *Store) Users() ports.UserRepository               { return &userRepository{q: s.q} }
func (s *Store) Payments() ports.PaymentRepository          { return &paymentRepository{q: s.q} }
func (s *Store) Transactions() ports.TransactionRepository  { return &transactionRepository{q: s.q} }
func (s *Store) Tasks() ports.TaskRepository                { return &taskRepository{q: s.q} }
func (s *Store) DLQ() ports.DLQRepository                   { return &dlqRepository{q: s.q} }

// Ping verifies connectivity against the pool, regardless of which
// executor this store is currently bound to.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// WithTx runs fn against a store bound to a fresh transaction, committing
// on success and rolling back on error or panic.
func (s *Store) WithTx(ctx context.Context, fn func(tx ports.Store) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	txStore := &Store{pool: s.pool, q: tx}

	if err := fn(txStore); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
