// Package testsupport provides an in-memory ports.Store and gateway fakes
// used by unit tests across the application, worker, and handler packages,
// in the style of the teacher's internal/core/service/mocks.go: plain
// structs guarded by a mutex, no test framework dependency baked in.
package testsupport

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/brightlane/paymentflow/internal/domain"
	"github.com/brightlane/paymentflow/internal/ports"
)

// state is the shared, mutex-guarded backing data for every repository
// facade. MemStore and its transaction-bound copies all point at the same
// state; WithTx holds the mutex for its duration, which is enough to
// serialize the one-transaction-per-use-case calls the engine makes.
type state struct {
	mu *sync.Mutex

	users        map[int64]*domain.User
	payments     map[int64]*domain.Payment
	transactions map[int64]*domain.Transaction
	tasks        map[int64]*domain.PaymentTask
	dlq          map[int64]*domain.DLQEntry

	nextUserID, nextPaymentID, nextTxID, nextTaskID, nextDLQID int64

	// Now, when set, replaces time.Now so tests can control reservation
	// eligibility deterministically.
	Now func() time.Time
}

// MemStore is a single in-memory implementation of ports.Store.
type MemStore struct {
	*state
}

func NewMemStore() *MemStore {
	return &MemStore{state: &state{
		mu:           &sync.Mutex{},
		users:        make(map[int64]*domain.User),
		payments:     make(map[int64]*domain.Payment),
		transactions: make(map[int64]*domain.Transaction),
		tasks:        make(map[int64]*domain.PaymentTask),
		dlq:          make(map[int64]*domain.DLQEntry),
		Now:          time.Now,
	}}
}

func (s *state) now() time.Time { return s.Now() }

// SeedUser inserts a user with a fixed balance for test setup and returns
// its id.
func (s *MemStore) SeedUser(balance string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextUserID++
	s.users[s.nextUserID] = &domain.User{ID: s.nextUserID, Balance: mustDecimal(balance)}
	return s.nextUserID
}

func (s *MemStore) Users() ports.UserRepository              { return memUsers{s.state} }
func (s *MemStore) Payments() ports.PaymentRepository         { return memPayments{s.state} }
func (s *MemStore) Transactions() ports.TransactionRepository { return memTransactions{s.state} }
func (s *MemStore) Tasks() ports.TaskRepository               { return memTasks{s.state} }
func (s *MemStore) DLQ() ports.DLQRepository                  { return memDLQ{s.state} }

// WithTx runs fn while holding the store mutex. Writes are applied to the
// shared state as they happen: writes fn made before returning an error
// are kept, not rolled back.
func (s *MemStore) WithTx(ctx context.Context, fn func(tx ports.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(&MemStore{state: s.state})
}

// Ping always succeeds; there is no real connection to probe in-memory.
func (s *MemStore) Ping(ctx context.Context) error { return nil }

// ErrNotFound is an alias for domain.ErrNotFound, kept for callers that
// import only testsupport.
var ErrNotFound = domain.ErrNotFound

// --- users ---

type memUsers struct{ s *state }

func (m memUsers) Create(ctx context.Context, u *domain.User) error {
	m.s.nextUserID++
	u.ID = m.s.nextUserID
	cp := *u
	m.s.users[u.ID] = &cp
	return nil
}

func (m memUsers) FindByID(ctx context.Context, id int64) (*domain.User, error) {
	u, ok := m.s.users[id]
	if !ok {
		return nil, domain.NewUserNotFoundError(id)
	}
	cp := *u
	return &cp, nil
}

func (m memUsers) FindByIDForUpdate(ctx context.Context, id int64) (*domain.User, error) {
	return m.FindByID(ctx, id)
}

func (m memUsers) Update(ctx context.Context, u *domain.User) error {
	if _, ok := m.s.users[u.ID]; !ok {
		return domain.NewUserNotFoundError(u.ID)
	}
	cp := *u
	m.s.users[u.ID] = &cp
	return nil
}

// --- payments ---

type memPayments struct{ s *state }

func (m memPayments) Create(ctx context.Context, p *domain.Payment) error {
	if p.IdempotencyKey != nil {
		for _, existing := range m.s.payments {
			if existing.UserID == p.UserID && existing.IdempotencyKey != nil && *existing.IdempotencyKey == *p.IdempotencyKey {
				return domain.ErrDuplicateIdempotencyKey
			}
		}
	}
	m.s.nextPaymentID++
	p.ID = m.s.nextPaymentID
	now := m.s.now()
	p.CreatedAt, p.UpdatedAt = now, now
	cp := *p
	m.s.payments[p.ID] = &cp
	return nil
}

func (m memPayments) FindByID(ctx context.Context, id int64) (*domain.Payment, error) {
	p, ok := m.s.payments[id]
	if !ok {
		return nil, domain.NewPaymentNotFoundError(id)
	}
	cp := *p
	return &cp, nil
}

func (m memPayments) FindByIDForUpdate(ctx context.Context, id int64) (*domain.Payment, error) {
	return m.FindByID(ctx, id)
}

func (m memPayments) FindByIdempotencyKey(ctx context.Context, userID int64, key string) (*domain.Payment, error) {
	for _, p := range m.s.payments {
		if p.UserID == userID && p.IdempotencyKey != nil && *p.IdempotencyKey == key {
			cp := *p
			return &cp, nil
		}
	}
	return nil, domain.NewPaymentNotFoundError(0)
}

func (m memPayments) Update(ctx context.Context, p *domain.Payment) error {
	if _, ok := m.s.payments[p.ID]; !ok {
		return domain.NewPaymentNotFoundError(p.ID)
	}
	p.UpdatedAt = m.s.now()
	cp := *p
	m.s.payments[p.ID] = &cp
	return nil
}

// IsDuplicateKeyError reports whether err is the store's unique-violation
// signal, shared with the postgres adapter via domain.ErrDuplicateIdempotencyKey.
func IsDuplicateKeyError(err error) bool {
	return errors.Is(err, domain.ErrDuplicateIdempotencyKey)
}

// --- transactions ---

type memTransactions struct{ s *state }

func (m memTransactions) Create(ctx context.Context, t *domain.Transaction) error {
	m.s.nextTxID++
	t.ID = m.s.nextTxID
	cp := *t
	m.s.transactions[t.ID] = &cp
	return nil
}

func (m memTransactions) FindByPaymentID(ctx context.Context, paymentID int64) (*domain.Transaction, error) {
	for _, t := range m.s.transactions {
		if t.PaymentID != nil && *t.PaymentID == paymentID {
			cp := *t
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m memTransactions) FindByPaymentIDForUpdate(ctx context.Context, paymentID int64) (*domain.Transaction, error) {
	return m.FindByPaymentID(ctx, paymentID)
}

func (m memTransactions) Update(ctx context.Context, t *domain.Transaction) error {
	if _, ok := m.s.transactions[t.ID]; !ok {
		return ErrNotFound
	}
	cp := *t
	m.s.transactions[t.ID] = &cp
	return nil
}

// --- tasks ---

type memTasks struct{ s *state }

func (m memTasks) Create(ctx context.Context, t *domain.PaymentTask) error {
	m.s.nextTaskID++
	t.ID = m.s.nextTaskID
	now := m.s.now()
	t.CreatedAt, t.UpdatedAt = now, now
	cp := *t
	m.s.tasks[t.ID] = &cp
	return nil
}

func (m memTasks) FindByID(ctx context.Context, id int64) (*domain.PaymentTask, error) {
	t, ok := m.s.tasks[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (m memTasks) FindByIDForUpdate(ctx context.Context, id int64) (*domain.PaymentTask, error) {
	return m.FindByID(ctx, id)
}

func (m memTasks) FindByPaymentIDForUpdate(ctx context.Context, paymentID int64) (*domain.PaymentTask, error) {
	for _, t := range m.s.tasks {
		if t.PaymentID == paymentID {
			cp := *t
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m memTasks) Update(ctx context.Context, t *domain.PaymentTask) error {
	if _, ok := m.s.tasks[t.ID]; !ok {
		return ErrNotFound
	}
	t.UpdatedAt = m.s.now()
	cp := *t
	m.s.tasks[t.ID] = &cp
	return nil
}

func (m memTasks) ReserveNext(ctx context.Context, processingTimeout time.Duration) (int64, bool, error) {
	now := m.s.now()

	ids := make([]int64, 0, len(m.s.tasks))
	for id := range m.s.tasks {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		return m.s.tasks[ids[i]].CreatedAt.Before(m.s.tasks[ids[j]].CreatedAt)
	})

	for _, id := range ids {
		t := m.s.tasks[id]
		eligible := t.Status == domain.TaskNew ||
			(t.Status == domain.TaskProcessing && t.LockedAt != nil && t.LockedAt.Before(now.Add(-processingTimeout)))
		if !eligible {
			continue
		}
		if t.NextRetryAt != nil && t.NextRetryAt.After(now) {
			continue
		}
		return id, true, nil
	}
	return 0, false, nil
}

// --- dlq ---

type memDLQ struct{ s *state }

func (m memDLQ) Create(ctx context.Context, e *domain.DLQEntry) error {
	for _, existing := range m.s.dlq {
		if existing.PaymentID == e.PaymentID {
			return nil
		}
	}
	m.s.nextDLQID++
	e.ID = m.s.nextDLQID
	e.CreatedAt = m.s.now()
	cp := *e
	m.s.dlq[e.ID] = &cp
	return nil
}

func (m memDLQ) ExistsForPayment(ctx context.Context, paymentID int64) (bool, error) {
	for _, e := range m.s.dlq {
		if e.PaymentID == paymentID {
			return true, nil
		}
	}
	return false, nil
}

func (m memDLQ) List(ctx context.Context, limit, offset int) ([]*domain.DLQEntry, error) {
	ids := make([]int64, 0, len(m.s.dlq))
	for id := range m.s.dlq {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return m.s.dlq[ids[i]].CreatedAt.After(m.s.dlq[ids[j]].CreatedAt) })
	if offset > len(ids) {
		offset = len(ids)
	}
	end := offset + limit
	if end > len(ids) {
		end = len(ids)
	}
	out := make([]*domain.DLQEntry, 0, end-offset)
	for _, id := range ids[offset:end] {
		cp := *m.s.dlq[id]
		out = append(out, &cp)
	}
	return out, nil
}
