package repository

import (
	"context"

	"couponnet/internal/model"
)

// ProgressRepository accumulates per-user matrix pool standing. Accumulate
// is a single atomic update per (user, pool), so concurrent events for the
// same user cannot lose increments.
type ProgressRepository interface {
	// Accumulate records one payout at a level: level count +1, level
	// earned and total earned +amountPaise, level reached raised to level
	// if deeper.
	Accumulate(ctx context.Context, user string, pool model.PoolType, level int, amountPaise int64) error

	// EnsureJoined creates the zero progress record that marks a user as
	// enrolled in a pool.
	EnsureJoined(ctx context.Context, user string, pool model.PoolType) error

	ListByUser(ctx context.Context, user string) ([]*model.MatrixProgress, error)
}

// RewardRepository tracks cumulative qualifying activations and awarded
// points.
type RewardRepository interface {
	// IncrementCount bumps the user's qualifying counter and returns the
	// new cumulative value in the same atomic step.
	IncrementCount(ctx context.Context, user string) (int64, error)

	AddPoints(ctx context.Context, user string, points int64) error

	Get(ctx context.Context, user string) (*model.RewardPoints, error)
}
