package repository

import (
	"context"

	"couponnet/internal/model"
)

// WalletRepository is the system of record for user balances. Balances move
// only through ApplyEntry and DebitWithdrawable; there is no write path
// that sets a balance to an absolute value.
type WalletRepository interface {
	// ApplyEntry atomically adds grossPaise to the main balance and
	// netPaise to the withdrawable balance, upserting the wallet on first
	// credit and recording the tax snapshot used.
	ApplyEntry(ctx context.Context, user string, grossPaise, netPaise int64, taxPercent float64) error

	// DebitWithdrawable subtracts a settled withdrawal from the
	// withdrawable balance, guarded so the balance never goes negative.
	DebitWithdrawable(ctx context.Context, user string, amountPaise int64) error

	// Get returns the wallet, or a zero-balance wallet for users who have
	// never been credited.
	Get(ctx context.Context, user string) (*model.Wallet, error)
}

// LedgerRepository stores the discrete commission entries behind every
// wallet movement.
type LedgerRepository interface {
	Insert(ctx context.Context, entry *model.CommissionLedgerEntry) error
	ListByUser(ctx context.Context, user string) ([]*model.CommissionLedgerEntry, error)
}
