package domain

import "time"

// TaskStatus is the scheduling state of a PaymentTask, kept in lockstep
// with the owning payment's business state (invariant I4).
type TaskStatus string

const (
	TaskNew        TaskStatus = "new"
	TaskProcessing TaskStatus = "processing"
	TaskDone       TaskStatus = "done"
	TaskFailed     TaskStatus = "failed"
)

// PaymentTask is the scheduling record a worker reserves and drives to
// completion. It decouples scheduling lifecycle from payment business
// state; the payment-task relation is 1-1 by foreign key.
type PaymentTask struct {
	ID          int64
	PaymentID   int64
	Status      TaskStatus
	Attempts    int
	LastError   *string
	NextRetryAt *time.Time
	LockedAt    *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
