package service

import (
	"context"

	"couponnet/internal/model"
	"couponnet/internal/repository"
)

// RewardEngine awards tiered points against a consumer's cumulative
// qualifying activation count. A tier fires only on the exact count match;
// past the schedule's base count every activation earns the flat per-coupon
// rate instead.
type RewardEngine struct {
	rewards repository.RewardRepository
}

// NewRewardEngine creates a reward points engine.
func NewRewardEngine(rewards repository.RewardRepository) *RewardEngine {
	return &RewardEngine{rewards: rewards}
}

// Award bumps the consumer's counter and grants whatever the new count
// earns under the snapshot. Returns the points awarded (zero when the count
// lands between tiers).
func (e *RewardEngine) Award(ctx context.Context, sched *model.Schedule, ev PayoutEvent) (int64, error) {
	n, err := e.rewards.IncrementCount(ctx, ev.Consumer)
	if err != nil {
		return 0, err
	}

	var points int64
	if n > sched.BaseCount {
		points = sched.PerCouponPoints
	} else if tier, ok := sched.TierFor(n); ok {
		points = tier.Points
	}
	if points == 0 {
		return 0, nil
	}
	if err := e.rewards.AddPoints(ctx, ev.Consumer, points); err != nil {
		return 0, err
	}
	return points, nil
}

// Standing returns the consumer's current counter and points balance.
func (e *RewardEngine) Standing(ctx context.Context, user string) (*model.RewardPoints, error) {
	return e.rewards.Get(ctx, user)
}
