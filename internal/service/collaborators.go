package service

import (
	"context"

	"couponnet/internal/model"
)

// TxRunner runs a unit of work inside one transaction. Everything written
// through the callback's context commits together or not at all.
// database.UnitOfWork is the production implementation.
type TxRunner interface {
	WithTransaction(ctx context.Context, fn func(context.Context) error) error
}

// UserDirectory resolves a platform TR username to a user id. Identity is
// owned by an external collaborator; the core only looks up.
type UserDirectory interface {
	// Resolve returns the user id for a username, or a NotFound error.
	Resolve(ctx context.Context, username string) (string, error)
}

// SponsorHierarchy exposes the upline chain above a user. The core queries
// it, never mutates it.
type SponsorHierarchy interface {
	// Ancestors returns up to maxLevels sponsor user ids, nearest first.
	// A shorter (or empty) slice means the chain ends early.
	Ancestors(ctx context.Context, user string, maxLevels int) ([]string, error)
}

// KYCVerifier reports whether a user's bank/identity verification has
// cleared. Verification itself lives outside this core.
type KYCVerifier interface {
	Verified(ctx context.Context, user string) (bool, error)
}

// PayoutEvent is the qualifying event the engines fan out from: one
// successful activation of one code by one consumer.
type PayoutEvent struct {
	Code         string
	Denomination model.Denomination
	Consumer     string
}
