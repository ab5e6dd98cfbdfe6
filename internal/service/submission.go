package service

import (
	"context"

	"couponnet/internal/model"
	"couponnet/internal/repository"
	"couponnet/pkg/errors"
)

// SubmissionService runs the manual lucky-draw path: a consumer submits a
// physical coupon against a sponsor's TR username, an employee vouches for
// it, and agency approval links the code for transfer eligibility.
type SubmissionService struct {
	submissions repository.SubmissionRepository
	users       UserDirectory
}

// NewSubmissionService creates the lucky-draw submission processor.
func NewSubmissionService(submissions repository.SubmissionRepository, users UserDirectory) *SubmissionService {
	return &SubmissionService{submissions: submissions, users: users}
}

// Submit records a new submission in SUBMITTED. The target TR username must
// resolve; an unknown sponsor reference fails with SponsorInvalid.
func (s *SubmissionService) Submit(ctx context.Context, consumer, code, trUsername, evidenceID string) (*model.CouponSubmission, error) {
	if consumer == "" || code == "" || trUsername == "" {
		return nil, errors.Validation("consumer, code and TR username are required")
	}
	if _, err := s.users.Resolve(ctx, trUsername); err != nil {
		return nil, errors.SponsorInvalid("TR username %q does not resolve", trUsername)
	}

	sub := &model.CouponSubmission{
		Code:       code,
		Consumer:   consumer,
		TRUsername: trUsername,
		Status:     model.SubmissionSubmitted,
		EvidenceID: evidenceID,
	}
	if err := s.submissions.Insert(ctx, sub); err != nil {
		return nil, err
	}
	return sub, nil
}

// ApproveByEmployee advances SUBMITTED → EMPLOYEE_APPROVED.
func (s *SubmissionService) ApproveByEmployee(ctx context.Context, id string) (*model.CouponSubmission, error) {
	return s.submissions.Advance(ctx, id, model.SubmissionSubmitted, model.SubmissionEmployeeApproved, "")
}

// ApproveByAgency advances EMPLOYEE_APPROVED → AGENCY_APPROVED and links
// the coupon code, making it transfer-eligible.
func (s *SubmissionService) ApproveByAgency(ctx context.Context, id string) (*model.CouponSubmission, error) {
	sub, err := s.submissions.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.submissions.Advance(ctx, id, model.SubmissionEmployeeApproved, model.SubmissionAgencyApproved, sub.Code)
}

// Reject terminates a submission from either pre-terminal stage.
func (s *SubmissionService) Reject(ctx context.Context, id string) (*model.CouponSubmission, error) {
	sub, err := s.submissions.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	switch sub.Status {
	case model.SubmissionSubmitted, model.SubmissionEmployeeApproved:
		return s.submissions.Advance(ctx, id, sub.Status, model.SubmissionRejected, "")
	default:
		return nil, errors.StateConflict("submission %s is already %s", id, sub.Status)
	}
}
