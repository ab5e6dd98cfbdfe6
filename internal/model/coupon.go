package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Denomination is the face value of a coupon code in rupees. The set is
// closed: new values require a release, not a config change.
type Denomination int64

const (
	Denom50  Denomination = 50
	Denom150 Denomination = 150
	Denom759 Denomination = 759

	// Denom500 is a retired denomination kept so historical codes still
	// decode. It opens no pools and cannot be redeemed.
	Denom500 Denomination = 500
)

// Valid reports whether d is a known denomination.
func (d Denomination) Valid() bool {
	switch d {
	case Denom50, Denom150, Denom759, Denom500:
		return true
	}
	return false
}

// Paise returns the face value in paise.
func (d Denomination) Paise() int64 {
	return int64(d) * 100
}

// OpensPools lists the matrix pools an activation of this denomination
// enrolls the consumer into. 150 and 759 open both pools, 50 only the
// 3-matrix.
func (d Denomination) OpensPools() []PoolType {
	switch d {
	case Denom150, Denom759:
		return []PoolType{FiveMatrix, ThreeMatrix}
	case Denom50:
		return []PoolType{ThreeMatrix}
	}
	return nil
}

// Redeemable reports whether this denomination supports direct redemption.
func (d Denomination) Redeemable() bool {
	return d == Denom150 || d == Denom759
}

// PoolType identifies a fixed-depth matrix payout pool.
type PoolType string

const (
	ThreeMatrix PoolType = "THREE_MATRIX"
	FiveMatrix  PoolType = "FIVE_MATRIX"
)

// CodeStatus is the lifecycle state of a coupon code.
type CodeStatus string

const (
	StatusAvailable        CodeStatus = "AVAILABLE"
	StatusAssignedEmployee CodeStatus = "ASSIGNED_EMPLOYEE"
	StatusAssignedConsumer CodeStatus = "ASSIGNED_CONSUMER"
	StatusActivated        CodeStatus = "ACTIVATED"
	StatusRedeemed         CodeStatus = "REDEEMED"
	StatusTransferred      CodeStatus = "TRANSFERRED"
	StatusRejected         CodeStatus = "REJECTED"
)

// Terminal reports whether the status has no out-edges. Terminal statuses
// are never exited.
func (s CodeStatus) Terminal() bool {
	switch s {
	case StatusActivated, StatusRedeemed, StatusTransferred, StatusRejected:
		return true
	}
	return false
}

var statusEdges = map[CodeStatus][]CodeStatus{
	StatusAvailable:        {StatusAssignedEmployee, StatusRejected},
	StatusAssignedEmployee: {StatusAssignedConsumer, StatusRejected},
	StatusAssignedConsumer: {StatusActivated, StatusRedeemed, StatusTransferred, StatusRejected},
}

// CanTransition reports whether from → to is a legal lifecycle edge.
func CanTransition(from, to CodeStatus) bool {
	for _, next := range statusEdges[from] {
		if next == to {
			return true
		}
	}
	return false
}

// PreTerminalStatuses lists every status an administrative rejection may
// act on.
func PreTerminalStatuses() []CodeStatus {
	return []CodeStatus{StatusAvailable, StatusAssignedEmployee, StatusAssignedConsumer}
}

// CouponCode is a single distributable code. Ownership moves down the chain
// agency → employee → consumer; the status says which reference is current.
// A transfer terminally marks the original document (Superseded=true) and
// inserts a successor with the same code string, so the active record for a
// code is always the non-superseded one.
type CouponCode struct {
	ID               primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	Code             string             `bson:"code" json:"code"`
	Denomination     Denomination       `bson:"denomination" json:"denomination"`
	Status           CodeStatus         `bson:"status" json:"status"`
	AssignedAgency   string             `bson:"assigned_agency,omitempty" json:"assigned_agency,omitempty"`
	AssignedEmployee string             `bson:"assigned_employee,omitempty" json:"assigned_employee,omitempty"`
	AssignedConsumer string             `bson:"assigned_consumer,omitempty" json:"assigned_consumer,omitempty"`
	BatchID          string             `bson:"batch_id,omitempty" json:"batch_id,omitempty"`
	Serial           int64              `bson:"serial,omitempty" json:"serial,omitempty"`
	Superseded       bool               `bson:"superseded" json:"superseded"`
	TransferredTo    string             `bson:"transferred_to,omitempty" json:"transferred_to,omitempty"`
	PreviousID       primitive.ObjectID `bson:"previous_id,omitempty" json:"previous_id,omitempty"`
	CreatedAt        time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt        time.Time          `bson:"updated_at" json:"updated_at"`
}

// SubmissionStatus tracks the manual lucky-draw approval chain.
type SubmissionStatus string

const (
	SubmissionSubmitted        SubmissionStatus = "SUBMITTED"
	SubmissionEmployeeApproved SubmissionStatus = "EMPLOYEE_APPROVED"
	SubmissionAgencyApproved   SubmissionStatus = "AGENCY_APPROVED"
	SubmissionRejected         SubmissionStatus = "REJECTED"
)

// CouponSubmission is a physically-submitted coupon awaiting the two-stage
// employee/agency approval before it becomes transfer-eligible.
type CouponSubmission struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	Code       string             `bson:"code" json:"code"`
	Consumer   string             `bson:"consumer" json:"consumer"`
	TRUsername string             `bson:"tr_username" json:"tr_username"`
	Status     SubmissionStatus   `bson:"status" json:"status"`
	EvidenceID string             `bson:"evidence_id,omitempty" json:"evidence_id,omitempty"`
	LinkedCode string             `bson:"linked_code,omitempty" json:"linked_code,omitempty"`
	CreatedAt  time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt  time.Time          `bson:"updated_at" json:"updated_at"`
}
