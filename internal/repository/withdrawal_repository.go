package repository

import (
	"context"

	"couponnet/internal/model"
)

// WithdrawalRepository stores withdrawal requests. Insert doubles as the
// cooldown reservation: a unique index over (user, window key) for
// cooldown-counting requests makes the check-then-insert atomic, and a
// duplicate surfaces as CooldownActive.
type WithdrawalRepository interface {
	Insert(ctx context.Context, req *model.WithdrawalRequest) error

	// SetStatusFrom flips a request's settlement status only when its
	// current status is one of from, so of two concurrent flips exactly one
	// lands. A miss on an existing request is a StateConflict. Rejection
	// also releases the cooldown reservation so a rejected request does not
	// block the window.
	SetStatusFrom(ctx context.Context, requestID string, from []model.WithdrawalStatus, to model.WithdrawalStatus) error

	Get(ctx context.Context, requestID string) (*model.WithdrawalRequest, error)

	ListByUser(ctx context.Context, user string) ([]*model.WithdrawalRequest, error)
}
