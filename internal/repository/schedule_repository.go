package repository

import (
	"context"

	"couponnet/internal/model"
)

// ScheduleRepository stores versioned commission/reward configuration.
// Engines call Current once per event and carry the snapshot through the
// whole computation.
type ScheduleRepository interface {
	// Current returns the highest-version schedule.
	Current(ctx context.Context) (*model.Schedule, error)

	// Put validates and stores a new schedule version.
	Put(ctx context.Context, s *model.Schedule) error
}
