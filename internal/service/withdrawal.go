package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"couponnet/internal/model"
	"couponnet/internal/repository"
	"couponnet/pkg/errors"
)

// MinWithdrawablePaise is the minimum withdrawable balance a user must hold
// before any withdrawal is admitted, independent of the requested amount.
const MinWithdrawablePaise = 500_00

// Withdrawal window: Sunday 18:00:00 through 23:59:59 platform time.
const windowOpenHour = 18

// WithdrawalService gates withdrawal requests: KYC, balance floor, the
// weekly window, and one admitted request per window. Admission records the
// request; the balance debit happens at settlement.
type WithdrawalService struct {
	wallets     repository.WalletRepository
	withdrawals repository.WithdrawalRepository
	kyc         KYCVerifier
	tx          TxRunner
	loc         *time.Location
	now         func() time.Time
	logger      *zap.Logger
}

// NewWithdrawalService creates a withdrawal gate. loc is the platform time
// zone the weekly window is defined in; now is injectable for tests and
// defaults to time.Now when nil.
func NewWithdrawalService(
	wallets repository.WalletRepository,
	withdrawals repository.WithdrawalRepository,
	kyc KYCVerifier,
	tx TxRunner,
	loc *time.Location,
	now func() time.Time,
	logger *zap.Logger,
) *WithdrawalService {
	if now == nil {
		now = time.Now
	}
	return &WithdrawalService{
		wallets:     wallets,
		withdrawals: withdrawals,
		kyc:         kyc,
		tx:          tx,
		loc:         loc,
		now:         now,
		logger:      logger,
	}
}

// windowKey returns the identity of the window instance t falls in and
// whether the window is open at t.
func (s *WithdrawalService) windowKey(t time.Time) (string, bool) {
	t = t.In(s.loc)
	if t.Weekday() != time.Sunday {
		return "", false
	}
	open := time.Date(t.Year(), t.Month(), t.Day(), windowOpenHour, 0, 0, 0, s.loc)
	end := time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, int(time.Second-time.Nanosecond), s.loc)
	if t.Before(open) || t.After(end) {
		return "", false
	}
	return t.Format("2006-01-02"), true
}

// Request admits a withdrawal when every gate passes. The checks run in a
// fixed order so a closed window wins over any balance or KYC failure, and
// the final insert doubles as the atomic cooldown reservation.
func (s *WithdrawalService) Request(ctx context.Context, user string, amountPaise int64, method string) (*model.WithdrawalRequest, error) {
	if user == "" {
		return nil, errors.Validation("user is required")
	}
	if amountPaise <= 0 {
		return nil, errors.Validation("amount must be positive")
	}

	now := s.now()
	key, open := s.windowKey(now)
	if !open {
		return nil, errors.WindowClosed("withdrawals open Sunday %02d:00-23:59 platform time", windowOpenHour)
	}

	verified, err := s.kyc.Verified(ctx, user)
	if err != nil {
		return nil, err
	}
	if !verified {
		return nil, errors.KYCRequired("complete KYC verification before withdrawing")
	}

	w, err := s.wallets.Get(ctx, user)
	if err != nil {
		return nil, err
	}
	if w.WithdrawablePaise < MinWithdrawablePaise {
		return nil, errors.BelowMinimumBalance("withdrawable balance below the ₹%d minimum", MinWithdrawablePaise/100)
	}
	if amountPaise > w.WithdrawablePaise {
		return nil, errors.Validation("amount exceeds withdrawable balance")
	}

	req := &model.WithdrawalRequest{
		RequestID:   uuid.NewString(),
		UserID:      user,
		AmountPaise: amountPaise,
		Method:      method,
		Status:      model.WithdrawalRequested,
		WindowKey:   key,
		RequestedAt: now.In(s.loc),
	}
	if err := s.withdrawals.Insert(ctx, req); err != nil {
		return nil, err
	}

	s.logger.Info("withdrawal admitted",
		zap.String("user", user),
		zap.Int64("amount_paise", amountPaise),
		zap.String("window", key),
	)
	return req, nil
}

// Approve marks a requested withdrawal approved. Settlement stays external
// until MarkPaid.
func (s *WithdrawalService) Approve(ctx context.Context, requestID string) error {
	return s.withdrawals.SetStatusFrom(ctx, requestID,
		[]model.WithdrawalStatus{model.WithdrawalRequested}, model.WithdrawalApproved)
}

// Reject marks a pending request rejected and releases its window
// reservation, so the user may request again inside the same window. A paid
// request cannot be rejected.
func (s *WithdrawalService) Reject(ctx context.Context, requestID string) error {
	return s.withdrawals.SetStatusFrom(ctx, requestID,
		[]model.WithdrawalStatus{model.WithdrawalRequested, model.WithdrawalApproved}, model.WithdrawalRejected)
}

// MarkPaid settles a request. The approved-to-paid flip is a CAS and runs
// in the same transaction as the balance debit, so of two concurrent
// settlements exactly one debits.
func (s *WithdrawalService) MarkPaid(ctx context.Context, requestID string) error {
	req, err := s.withdrawals.Get(ctx, requestID)
	if err != nil {
		return err
	}
	return s.tx.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := s.withdrawals.SetStatusFrom(txCtx, requestID,
			[]model.WithdrawalStatus{model.WithdrawalApproved}, model.WithdrawalPaid); err != nil {
			return err
		}
		return s.wallets.DebitWithdrawable(txCtx, req.UserID, req.AmountPaise)
	})
}

// History lists the user's withdrawal requests, newest first.
func (s *WithdrawalService) History(ctx context.Context, user string) ([]*model.WithdrawalRequest, error) {
	if user == "" {
		return nil, errors.Validation("user is required")
	}
	return s.withdrawals.ListByUser(ctx, user)
}
