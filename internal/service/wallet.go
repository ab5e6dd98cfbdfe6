package service

import (
	"context"

	"couponnet/internal/model"
	"couponnet/internal/repository"
	"couponnet/pkg/errors"
)

// WalletService is the read surface over the wallet ledger. Writes happen
// only through the engines' ledger application and withdrawal settlement.
type WalletService struct {
	wallets repository.WalletRepository
	ledger  repository.LedgerRepository
}

// NewWalletService creates a wallet read service.
func NewWalletService(wallets repository.WalletRepository, ledger repository.LedgerRepository) *WalletService {
	return &WalletService{wallets: wallets, ledger: ledger}
}

// Get returns the user's balances; users never credited get a zero wallet.
func (s *WalletService) Get(ctx context.Context, user string) (*model.Wallet, error) {
	if user == "" {
		return nil, errors.Validation("user is required")
	}
	return s.wallets.Get(ctx, user)
}

// Entries lists the discrete commission entries behind the balances,
// newest first.
func (s *WalletService) Entries(ctx context.Context, user string) ([]*model.CommissionLedgerEntry, error) {
	if user == "" {
		return nil, errors.Validation("user is required")
	}
	return s.ledger.ListByUser(ctx, user)
}
