package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"couponnet/internal/model"
	"couponnet/internal/repository"
	"couponnet/pkg/errors"
)

// AssignmentService routes codes down the distribution chain: freshly
// minted batches to employees, and employee-held codes to consumers, singly
// or in all-or-nothing bulk claims.
type AssignmentService struct {
	codes  repository.CodeRepository
	users  UserDirectory
	tx     TxRunner
	logger *zap.Logger
}

// NewAssignmentService creates an assignment router.
func NewAssignmentService(codes repository.CodeRepository, users UserDirectory, tx TxRunner, logger *zap.Logger) *AssignmentService {
	return &AssignmentService{
		codes:  codes,
		users:  users,
		tx:     tx,
		logger: logger,
	}
}

// MintBatch creates count AVAILABLE codes of one denomination under an
// agency and returns the batch id.
func (s *AssignmentService) MintBatch(ctx context.Context, agency string, denom model.Denomination, count int64) (string, error) {
	if agency == "" {
		return "", errors.Validation("agency is required")
	}
	if !denom.Valid() {
		return "", errors.Validation("unknown denomination %d", denom)
	}
	if count <= 0 {
		return "", errors.Validation("count must be positive")
	}

	batchID := uuid.NewString()
	prefix := strings.ToUpper(strings.ReplaceAll(batchID, "-", "")[:8])
	codes := make([]*model.CouponCode, 0, count)
	for i := int64(1); i <= count; i++ {
		codes = append(codes, &model.CouponCode{
			Code:           fmt.Sprintf("TR%d-%s-%04d", denom, prefix, i),
			Denomination:   denom,
			Status:         model.StatusAvailable,
			AssignedAgency: agency,
			BatchID:        batchID,
			Serial:         i,
		})
	}
	if err := s.codes.CreateBatch(ctx, codes); err != nil {
		return "", err
	}
	s.logger.Info("batch minted",
		zap.String("batch", batchID),
		zap.Int64("denomination", int64(denom)),
		zap.Int64("count", count),
	)
	return batchID, nil
}

// AssignToEmployee hands one AVAILABLE code to an employee.
func (s *AssignmentService) AssignToEmployee(ctx context.Context, code, employee string) (*model.CouponCode, error) {
	if code == "" || employee == "" {
		return nil, errors.Validation("code and employee are required")
	}
	return s.codes.Transition(ctx, repository.TransitionSpec{
		Code: code,
		From: []model.CodeStatus{model.StatusAvailable},
		To:   model.StatusAssignedEmployee,
		Set:  repository.TransitionUpdate{AssignedEmployee: employee},
	})
}

// AssignBatchToEmployee hands every AVAILABLE code in a batch to an
// employee and returns how many moved.
func (s *AssignmentService) AssignBatchToEmployee(ctx context.Context, batchID, employee string) (int64, error) {
	if batchID == "" || employee == "" {
		return 0, errors.Validation("batch and employee are required")
	}
	return s.codes.AssignBatch(ctx, batchID, employee)
}

// AssignToConsumer hands one employee-held code to a consumer resolved by
// TR username. The calling employee must be the current owner.
func (s *AssignmentService) AssignToConsumer(ctx context.Context, code, employee, consumerUsername string) (*model.CouponCode, error) {
	if code == "" || employee == "" || consumerUsername == "" {
		return nil, errors.Validation("code, employee and consumer username are required")
	}
	consumer, err := s.users.Resolve(ctx, consumerUsername)
	if err != nil {
		return nil, err
	}
	return s.codes.Transition(ctx, repository.TransitionSpec{
		Code:          code,
		From:          []model.CodeStatus{model.StatusAssignedEmployee},
		To:            model.StatusAssignedConsumer,
		GuardEmployee: employee,
		Set:           repository.TransitionUpdate{AssignedConsumer: consumer},
	})
}

// AssignByCount claims exactly count of the employee's unassigned codes for
// a consumer in one transaction. A short claim aborts the whole unit of
// work, so the inventory is untouched when fewer than count are available.
func (s *AssignmentService) AssignByCount(ctx context.Context, employee, consumerUsername string, count int64) (int64, error) {
	if employee == "" || consumerUsername == "" {
		return 0, errors.Validation("employee and consumer username are required")
	}
	if count <= 0 {
		return 0, errors.Validation("count must be positive")
	}
	consumer, err := s.users.Resolve(ctx, consumerUsername)
	if err != nil {
		return 0, err
	}

	err = s.tx.WithTransaction(ctx, func(txCtx context.Context) error {
		claimed, err := s.codes.ClaimForConsumer(txCtx, employee, consumer, count)
		if err != nil {
			return err
		}
		if claimed < count {
			return errors.InsufficientInventory("employee holds %d assignable codes, need %d", claimed, count)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	s.logger.Info("bulk assignment",
		zap.String("employee", employee),
		zap.String("consumer", consumer),
		zap.Int64("count", count),
	)
	return count, nil
}
