package service

import (
	"context"

	"go.uber.org/zap"

	"couponnet/internal/model"
	"couponnet/internal/repository"
	"couponnet/pkg/errors"
)

// ActivationResult reports what a successful activation opened and paid.
type ActivationResult struct {
	Code            string           `json:"code"`
	OpenedPools     []model.PoolType `json:"opened_pools"`
	MatrixPaise     int64            `json:"matrix_paise"`
	GenerationPaise int64            `json:"generation_paise"`
	PointsAwarded   int64            `json:"points_awarded"`
}

// RedemptionResult reports the wallet credit of a redemption.
type RedemptionResult struct {
	Code       string `json:"code"`
	GrossPaise int64  `json:"gross_paise"`
	NetPaise   int64  `json:"net_paise"`
}

// LifecycleService executes the consumer-facing activate/redeem/transfer
// actions. Each action is one transaction: the status swap and every
// posting it fans out to commit together or not at all.
type LifecycleService struct {
	codes      repository.CodeRepository
	wallets    repository.WalletRepository
	ledger     repository.LedgerRepository
	schedules  repository.ScheduleRepository
	users      UserDirectory
	matrix     *MatrixEngine
	generation *GenerationEngine
	rewards    *RewardEngine
	tx         TxRunner
	logger     *zap.Logger
}

// NewLifecycleService creates the activation/redemption processor.
func NewLifecycleService(
	codes repository.CodeRepository,
	wallets repository.WalletRepository,
	ledger repository.LedgerRepository,
	schedules repository.ScheduleRepository,
	users UserDirectory,
	matrix *MatrixEngine,
	generation *GenerationEngine,
	rewards *RewardEngine,
	tx TxRunner,
	logger *zap.Logger,
) *LifecycleService {
	return &LifecycleService{
		codes:      codes,
		wallets:    wallets,
		ledger:     ledger,
		schedules:  schedules,
		users:      users,
		matrix:     matrix,
		generation: generation,
		rewards:    rewards,
		tx:         tx,
		logger:     logger,
	}
}

// Activate moves the code to ACTIVATED and runs the ordered fan-out: matrix
// pools per the denomination, then generation commission, then reward
// points — all against one schedule snapshot, all inside one transaction.
// A second activation of the same code loses the CAS and sees a
// StateConflict.
func (s *LifecycleService) Activate(ctx context.Context, code, consumer string) (*ActivationResult, error) {
	if code == "" || consumer == "" {
		return nil, errors.Validation("code and consumer are required")
	}

	sched, err := s.schedules.Current(ctx)
	if err != nil {
		return nil, err
	}
	cc, err := s.codes.GetActiveByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if cc.AssignedConsumer != consumer {
		return nil, errors.StateConflict("code %s is not assigned to this consumer", code)
	}

	res := &ActivationResult{Code: code}
	ev := PayoutEvent{Code: code, Denomination: cc.Denomination, Consumer: consumer}

	err = s.tx.WithTransaction(ctx, func(txCtx context.Context) error {
		// The coordinator reruns the callback on a transient commit error;
		// the totals restart from zero on every attempt.
		res.OpenedPools = nil
		res.MatrixPaise = 0
		res.GenerationPaise = 0
		res.PointsAwarded = 0

		if _, err := s.codes.Transition(txCtx, repository.TransitionSpec{
			Code:          code,
			From:          []model.CodeStatus{model.StatusAssignedConsumer},
			To:            model.StatusActivated,
			GuardConsumer: consumer,
		}); err != nil {
			return err
		}
		for _, pool := range cc.Denomination.OpensPools() {
			paid, err := s.matrix.Distribute(txCtx, sched, pool, ev)
			if err != nil {
				return err
			}
			res.OpenedPools = append(res.OpenedPools, pool)
			res.MatrixPaise += paid
		}
		paid, err := s.generation.Distribute(txCtx, sched, ev)
		if err != nil {
			return err
		}
		res.GenerationPaise = paid

		points, err := s.rewards.Award(txCtx, sched, ev)
		if err != nil {
			return err
		}
		res.PointsAwarded = points
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("coupon activated",
		zap.String("code", code),
		zap.String("consumer", consumer),
		zap.Int64("denomination", int64(cc.Denomination)),
		zap.Int64("matrix_paise", res.MatrixPaise),
		zap.Int64("generation_paise", res.GenerationPaise),
		zap.Int64("points", res.PointsAwarded),
	)
	return res, nil
}

// Redeem moves a redeemable-denomination code to REDEEMED and credits the
// consumer's wallet with the face value minus the flat service fee.
// Denomination 50 can never be redeemed.
func (s *LifecycleService) Redeem(ctx context.Context, code, consumer string) (*RedemptionResult, error) {
	if code == "" || consumer == "" {
		return nil, errors.Validation("code and consumer are required")
	}

	sched, err := s.schedules.Current(ctx)
	if err != nil {
		return nil, err
	}
	cc, err := s.codes.GetActiveByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if !cc.Denomination.Redeemable() {
		return nil, errors.InvalidOperation("denomination %d cannot be redeemed", cc.Denomination)
	}
	if cc.AssignedConsumer != consumer {
		return nil, errors.StateConflict("code %s is not assigned to this consumer", code)
	}

	gross := cc.Denomination.Paise()
	net := gross - sched.RedemptionFeePaise
	if net < 0 {
		net = 0
	}

	err = s.tx.WithTransaction(ctx, func(txCtx context.Context) error {
		if _, err := s.codes.Transition(txCtx, repository.TransitionSpec{
			Code:          code,
			From:          []model.CodeStatus{model.StatusAssignedConsumer},
			To:            model.StatusRedeemed,
			GuardConsumer: consumer,
		}); err != nil {
			return err
		}
		if err := s.ledger.Insert(txCtx, &model.CommissionLedgerEntry{
			Beneficiary: consumer,
			Role:        "redemption",
			AmountPaise: gross,
			SourceCode:  code,
			Status:      model.EntryPending,
		}); err != nil {
			return err
		}
		return s.wallets.ApplyEntry(txCtx, consumer, gross, net, sched.TaxPercent)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("coupon redeemed",
		zap.String("code", code),
		zap.String("consumer", consumer),
		zap.Int64("net_paise", net),
	)
	return &RedemptionResult{Code: code, GrossPaise: gross, NetPaise: net}, nil
}

// Transfer moves an unactivated code to a new consumer. The original
// record is terminally marked TRANSFERRED and superseded; a fresh
// pending-for-consumer record takes its place, so a later activation is
// tracked under the new owner only.
func (s *LifecycleService) Transfer(ctx context.Context, code, fromConsumer, toUsername string) (*model.CouponCode, error) {
	if code == "" || fromConsumer == "" || toUsername == "" {
		return nil, errors.Validation("code, consumer and target username are required")
	}

	toConsumer, err := s.users.Resolve(ctx, toUsername)
	if err != nil {
		return nil, err
	}
	if toConsumer == fromConsumer {
		return nil, errors.Validation("cannot transfer a code to its current owner")
	}

	var successor *model.CouponCode
	err = s.tx.WithTransaction(ctx, func(txCtx context.Context) error {
		original, err := s.codes.Transition(txCtx, repository.TransitionSpec{
			Code:          code,
			From:          []model.CodeStatus{model.StatusAssignedConsumer},
			To:            model.StatusTransferred,
			GuardConsumer: fromConsumer,
			Set: repository.TransitionUpdate{
				TransferredTo: toConsumer,
				Superseded:    true,
			},
		})
		if err != nil {
			return err
		}
		successor, err = s.codes.InsertSuccessor(txCtx, original, toConsumer)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("coupon transferred",
		zap.String("code", code),
		zap.String("from", fromConsumer),
		zap.String("to", toConsumer),
	)
	return successor, nil
}

// Reject is the administrative escape hatch: any pre-terminal code moves to
// REJECTED. Terminal codes stay where they are.
func (s *LifecycleService) Reject(ctx context.Context, code string) (*model.CouponCode, error) {
	if code == "" {
		return nil, errors.Validation("code is required")
	}
	return s.codes.Transition(ctx, repository.TransitionSpec{
		Code: code,
		From: model.PreTerminalStatuses(),
		To:   model.StatusRejected,
	})
}
