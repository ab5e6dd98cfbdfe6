package service

import (
	"context"
	"fmt"

	"couponnet/internal/model"
	"couponnet/internal/repository"
)

// GenerationEngine pays referral commission to up to five sponsor
// generations above the triggering consumer. Its schedule is independent of
// the matrix pools; both apply to the same event.
type GenerationEngine struct {
	sponsors SponsorHierarchy
	ledger   repository.LedgerRepository
	wallets  repository.WalletRepository
}

// NewGenerationEngine creates a generation commission engine.
func NewGenerationEngine(sponsors SponsorHierarchy, ledger repository.LedgerRepository, wallets repository.WalletRepository) *GenerationEngine {
	return &GenerationEngine{
		sponsors: sponsors,
		ledger:   ledger,
		wallets:  wallets,
	}
}

// Distribute posts one credit per sponsor generation, using the same
// fixed-over-percent precedence as the matrix schedule. Returns the total
// paise posted.
func (e *GenerationEngine) Distribute(ctx context.Context, sched *model.Schedule, ev PayoutEvent) (int64, error) {
	uplines, err := e.sponsors.Ancestors(ctx, ev.Consumer, sched.Generations.Levels)
	if err != nil {
		return 0, err
	}

	var total int64
	for i, beneficiary := range uplines {
		level := i + 1
		amount := sched.Generations.AmountAt(level, ev.Denomination.Paise())
		if amount == 0 {
			continue
		}
		entry := &model.CommissionLedgerEntry{
			Beneficiary: beneficiary,
			Role:        fmt.Sprintf("generation:L%d", level),
			AmountPaise: amount,
			SourceCode:  ev.Code,
			Level:       level,
			Status:      model.EntryPending,
		}
		if err := e.ledger.Insert(ctx, entry); err != nil {
			return 0, err
		}
		if err := e.wallets.ApplyEntry(ctx, beneficiary, amount, sched.NetOf(amount), sched.TaxPercent); err != nil {
			return 0, err
		}
		total += amount
	}
	return total, nil
}
