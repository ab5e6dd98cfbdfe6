package repository

import (
	"context"

	"couponnet/internal/model"
)

// SubmissionRepository stores the manual lucky-draw submissions. Advance is
// a compare-and-swap on the approval status so out-of-order or duplicate
// approvals lose cleanly.
type SubmissionRepository interface {
	Insert(ctx context.Context, sub *model.CouponSubmission) error

	// Advance moves a submission from → to, optionally linking the coupon
	// code that becomes transfer-eligible on agency approval.
	Advance(ctx context.Context, id string, from, to model.SubmissionStatus, linkedCode string) (*model.CouponSubmission, error)

	Get(ctx context.Context, id string) (*model.CouponSubmission, error)
}
