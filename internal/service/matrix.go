package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"couponnet/internal/model"
	"couponnet/internal/repository"
	"couponnet/pkg/errors"
)

// MatrixEngine pays the fixed-depth matrix pools. For each qualifying
// activation it walks the enrollee's upline to the pool depth and posts one
// discrete credit per occupied level: the configured fixed amount when one
// is set, otherwise percent of the denomination.
type MatrixEngine struct {
	sponsors SponsorHierarchy
	ledger   repository.LedgerRepository
	wallets  repository.WalletRepository
	progress repository.ProgressRepository
	logger   *zap.Logger
}

// NewMatrixEngine creates a matrix commission engine.
func NewMatrixEngine(
	sponsors SponsorHierarchy,
	ledger repository.LedgerRepository,
	wallets repository.WalletRepository,
	progress repository.ProgressRepository,
	logger *zap.Logger,
) *MatrixEngine {
	return &MatrixEngine{
		sponsors: sponsors,
		ledger:   ledger,
		wallets:  wallets,
		progress: progress,
		logger:   logger,
	}
}

// Distribute enrolls the event's consumer into pool and pays each upline
// level out of the given schedule snapshot. It returns the total paise
// posted. Callers run it inside the activation transaction.
func (e *MatrixEngine) Distribute(ctx context.Context, sched *model.Schedule, pool model.PoolType, ev PayoutEvent) (int64, error) {
	ls, ok := sched.Pools[pool]
	if !ok {
		return 0, errors.Validation("schedule has no pool %s", pool)
	}

	if err := e.progress.EnsureJoined(ctx, ev.Consumer, pool); err != nil {
		return 0, err
	}

	uplines, err := e.sponsors.Ancestors(ctx, ev.Consumer, ls.Levels)
	if err != nil {
		return 0, err
	}

	var total int64
	for i, beneficiary := range uplines {
		level := i + 1
		amount := ls.AmountAt(level, ev.Denomination.Paise())
		if amount == 0 {
			continue
		}
		entry := &model.CommissionLedgerEntry{
			Beneficiary: beneficiary,
			Role:        fmt.Sprintf("matrix:%s:L%d", pool, level),
			AmountPaise: amount,
			SourceCode:  ev.Code,
			Pool:        pool,
			Level:       level,
			Status:      model.EntryPending,
		}
		if err := e.ledger.Insert(ctx, entry); err != nil {
			return 0, err
		}
		if err := e.wallets.ApplyEntry(ctx, beneficiary, amount, sched.NetOf(amount), sched.TaxPercent); err != nil {
			return 0, err
		}
		if err := e.progress.Accumulate(ctx, beneficiary, pool, level, amount); err != nil {
			return 0, err
		}
		total += amount
	}

	e.logger.Debug("matrix distribution",
		zap.String("code", ev.Code),
		zap.String("pool", string(pool)),
		zap.Int("levels_paid", len(uplines)),
		zap.Int64("total_paise", total),
	)
	return total, nil
}

// Progress reports the caller's standing in every pool they have joined.
func (e *MatrixEngine) Progress(ctx context.Context, user string) ([]*model.MatrixProgress, error) {
	if user == "" {
		return nil, errors.Validation("user is required")
	}
	return e.progress.ListByUser(ctx, user)
}
