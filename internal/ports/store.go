// Package ports defines the small, behavior-specific interfaces the core
// engine depends on: storage, the outbound gateway, and the handful of
// ambient collaborators (event publishing, poll coordination). Concrete
// implementations live under internal/adapters; tests use in-memory fakes.
// There is no inheritance hierarchy here, only narrow interfaces.
package ports

import (
	"context"
	"time"

	"github.com/brightlane/paymentflow/internal/domain"
)

// UserRepository is typed CRUD over the users table.
type UserRepository interface {
	Create(ctx context.Context, u *domain.User) error
	FindByID(ctx context.Context, id int64) (*domain.User, error)
	FindByIDForUpdate(ctx context.Context, id int64) (*domain.User, error)
	Update(ctx context.Context, u *domain.User) error
}

// PaymentRepository is typed CRUD plus the lookups intake and the worker
// need over the payments table.
type PaymentRepository interface {
	Create(ctx context.Context, p *domain.Payment) error
	FindByID(ctx context.Context, id int64) (*domain.Payment, error)
	FindByIDForUpdate(ctx context.Context, id int64) (*domain.Payment, error)
	FindByIdempotencyKey(ctx context.Context, userID int64, key string) (*domain.Payment, error)
	Update(ctx context.Context, p *domain.Payment) error
}

// TransactionRepository is typed CRUD over the transactions table.
type TransactionRepository interface {
	Create(ctx context.Context, t *domain.Transaction) error
	FindByPaymentID(ctx context.Context, paymentID int64) (*domain.Transaction, error)
	FindByPaymentIDForUpdate(ctx context.Context, paymentID int64) (*domain.Transaction, error)
	Update(ctx context.Context, t *domain.Transaction) error
}

// TaskRepository owns the scheduling queue: task CRUD plus the single
// critical reservation query.
type TaskRepository interface {
	Create(ctx context.Context, t *domain.PaymentTask) error
	FindByPaymentIDForUpdate(ctx context.Context, paymentID int64) (*domain.PaymentTask, error)
	Update(ctx context.Context, t *domain.PaymentTask) error

	// ReserveNext selects the oldest eligible task under
	// SELECT ... FOR UPDATE SKIP LOCKED and returns its id, or
	// (0, false, nil) if no task is currently eligible. processingTimeout
	// is the stuck-task recovery window.
	ReserveNext(ctx context.Context, processingTimeout time.Duration) (id int64, found bool, err error)

	FindByID(ctx context.Context, id int64) (*domain.PaymentTask, error)
	FindByIDForUpdate(ctx context.Context, id int64) (*domain.PaymentTask, error)
}

// DLQRepository is append-only: one row per terminally failed payment.
type DLQRepository interface {
	Create(ctx context.Context, e *domain.DLQEntry) error
	ExistsForPayment(ctx context.Context, paymentID int64) (bool, error)
	List(ctx context.Context, limit, offset int) ([]*domain.DLQEntry, error)
}

// Store is the unit-of-work boundary: every repository accessor returns an
// implementation bound to the store's current executor (pool or
// in-flight transaction), and WithTx runs fn with all five repositories
// rebound to a single database transaction, committing on success and
// rolling back on error or panic.
type Store interface {
	Users() UserRepository
	Payments() PaymentRepository
	Transactions() TransactionRepository
	Tasks() TaskRepository
	DLQ() DLQRepository

	WithTx(ctx context.Context, fn func(tx Store) error) error

	// Ping reports whether the underlying storage is reachable, for the
	// health endpoint.
	Ping(ctx context.Context) error
}
