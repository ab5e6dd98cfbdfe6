package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// All monetary amounts are int64 paise.

// EntryStatus is the settlement state of a commission ledger entry.
// Settlement itself happens outside this core.
type EntryStatus string

const (
	EntryPending EntryStatus = "pending"
	EntryPaid    EntryStatus = "paid"
)

// CommissionLedgerEntry is one discrete payout. Balances are only ever
// moved by applying entries, never by direct edits.
type CommissionLedgerEntry struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	Beneficiary string             `bson:"beneficiary" json:"beneficiary"`
	Role        string             `bson:"role" json:"role"` // employee / agency / matrix-L / generation-L / redemption
	AmountPaise int64              `bson:"amount_paise" json:"amount_paise"`
	SourceCode  string             `bson:"source_code" json:"source_code"`
	Pool        PoolType           `bson:"pool,omitempty" json:"pool,omitempty"`
	Level       int                `bson:"level,omitempty" json:"level,omitempty"`
	Status      EntryStatus        `bson:"status" json:"status"`
	EarnedAt    time.Time          `bson:"earned_at" json:"earned_at"`
}

// MatrixProgress accumulates one user's standing in one pool. Per-level
// counts only grow, and TotalEarnedPaise equals the sum of LevelEarned.
type MatrixProgress struct {
	ID               primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	UserID           string             `bson:"user_id" json:"user_id"`
	Pool             PoolType           `bson:"pool" json:"pool"`
	TotalEarnedPaise int64              `bson:"total_earned_paise" json:"total_earned_paise"`
	LevelReached     int                `bson:"level_reached" json:"level_reached"`
	LevelCounts      map[string]int64   `bson:"level_counts" json:"level_counts"`
	LevelEarned      map[string]int64   `bson:"level_earned" json:"level_earned"`
	UpdatedAt        time.Time          `bson:"updated_at" json:"updated_at"`
}

// Wallet holds a user's gross and net balances. WithdrawablePaise never
// exceeds MainPaise; both move only through ledger application.
type Wallet struct {
	ID                primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	UserID            string             `bson:"user_id" json:"user_id"`
	MainPaise         int64              `bson:"main_paise" json:"main_paise"`
	WithdrawablePaise int64              `bson:"withdrawable_paise" json:"withdrawable_paise"`
	TaxPercent        float64            `bson:"tax_percent" json:"tax_percent"`
	UpdatedAt         time.Time          `bson:"updated_at" json:"updated_at"`
}

// WithdrawalStatus is the admin-side state of a withdrawal request.
type WithdrawalStatus string

const (
	WithdrawalRequested WithdrawalStatus = "requested"
	WithdrawalApproved  WithdrawalStatus = "approved"
	WithdrawalRejected  WithdrawalStatus = "rejected"
	WithdrawalPaid      WithdrawalStatus = "paid"
)

// WithdrawalRequest records an admitted withdrawal. WindowKey identifies
// the weekly window instance the request was admitted in; CountsAgainstCooldown
// backs the one-per-window unique index and flips to false on rejection.
type WithdrawalRequest struct {
	ID                    primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	RequestID             string             `bson:"request_id" json:"request_id"`
	UserID                string             `bson:"user_id" json:"user_id"`
	AmountPaise           int64              `bson:"amount_paise" json:"amount_paise"`
	Method                string             `bson:"method" json:"method"`
	Status                WithdrawalStatus   `bson:"status" json:"status"`
	WindowKey             string             `bson:"window_key" json:"window_key"`
	CountsAgainstCooldown bool               `bson:"counts_against_cooldown" json:"-"`
	RequestedAt           time.Time          `bson:"requested_at" json:"requested_at"`
}

// RewardPoints tracks a consumer's cumulative qualifying activations and
// awarded points balance.
type RewardPoints struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	UserID          string             `bson:"user_id" json:"user_id"`
	QualifyingCount int64              `bson:"qualifying_count" json:"qualifying_count"`
	Points          int64              `bson:"points" json:"points"`
	UpdatedAt       time.Time          `bson:"updated_at" json:"updated_at"`
}
