package repository

import (
	"context"

	"couponnet/internal/model"
)

// TransitionSpec describes one compare-and-swap status move. From lists the
// statuses the CAS may fire on; guards pin the current owner when the caller
// must hold the code. Set carries the ownership fields written alongside the
// new status.
type TransitionSpec struct {
	Code          string
	From          []model.CodeStatus
	To            model.CodeStatus
	GuardEmployee string
	GuardConsumer string
	Set           TransitionUpdate
}

// TransitionUpdate is the set of fields a transition may write. Empty
// strings are left untouched.
type TransitionUpdate struct {
	AssignedAgency   string
	AssignedEmployee string
	AssignedConsumer string
	TransferredTo    string
	Superseded       bool
}

// CodeRepository owns coupon code records. Transition is the only status
// mutator; every move is a single atomic compare-and-swap, so of two
// concurrent transitions exactly one wins and the loser sees a
// StateConflict.
type CodeRepository interface {
	// CreateBatch inserts freshly minted codes (status AVAILABLE).
	CreateBatch(ctx context.Context, codes []*model.CouponCode) error

	// GetActiveByCode returns the non-superseded record for a code.
	GetActiveByCode(ctx context.Context, code string) (*model.CouponCode, error)

	// Transition applies spec atomically. It returns the updated record,
	// StateConflict when the guard misses on an existing code, or NotFound
	// when no active record exists.
	Transition(ctx context.Context, spec TransitionSpec) (*model.CouponCode, error)

	// AssignBatch moves every AVAILABLE code in a batch to the employee,
	// returning how many were assigned.
	AssignBatch(ctx context.Context, batchID, employee string) (int64, error)

	// ClaimForConsumer moves up to count codes held by employee (status
	// ASSIGNED_EMPLOYEE, no consumer yet) to the consumer, returning how
	// many were claimed. Callers run it inside a transaction and abort on a
	// short claim, so partial allocation never commits.
	ClaimForConsumer(ctx context.Context, employee, consumer string, count int64) (int64, error)

	// InsertSuccessor creates the pending-for-consumer record that replaces
	// a transferred code for its new owner.
	InsertSuccessor(ctx context.Context, original *model.CouponCode, newConsumer string) (*model.CouponCode, error)

	// CountByOwner reports how many unclaimed codes an employee holds.
	CountByOwner(ctx context.Context, employee string) (int64, error)
}
