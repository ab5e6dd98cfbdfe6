package repository

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"couponnet/pkg/errors"
)

// Directory reads the platform's user collection, which is owned and
// written by the external identity system. It satisfies the service
// package's UserDirectory, SponsorHierarchy and KYCVerifier interfaces
// structurally; the core only ever looks up.
type Directory struct {
	collection *mongo.Collection
}

// NewDirectory creates a read-only view over the users collection.
func NewDirectory(db *mongo.Database) *Directory {
	return &Directory{
		collection: db.Collection("users"),
	}
}

type directoryUser struct {
	UserID      string `bson:"user_id"`
	Username    string `bson:"username"`
	SponsorID   string `bson:"sponsor_id"`
	KYCVerified bool   `bson:"kyc_verified"`
}

// Resolve maps a TR username to a user id.
func (d *Directory) Resolve(ctx context.Context, username string) (string, error) {
	var u directoryUser
	err := d.collection.FindOne(ctx, bson.M{"username": username}).Decode(&u)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return "", errors.NotFound("username %q not found", username)
		}
		return "", err
	}
	return u.UserID, nil
}

// Ancestors walks the sponsor chain, nearest first, stopping at maxLevels
// or the top of the hierarchy. A broken link (sponsor id that does not
// resolve) ends the walk rather than failing the event.
func (d *Directory) Ancestors(ctx context.Context, user string, maxLevels int) ([]string, error) {
	ancestors := make([]string, 0, maxLevels)
	current := user
	for len(ancestors) < maxLevels {
		var u directoryUser
		err := d.collection.FindOne(ctx, bson.M{"user_id": current}).Decode(&u)
		if err != nil {
			if err == mongo.ErrNoDocuments {
				break
			}
			return nil, err
		}
		if u.SponsorID == "" {
			break
		}
		ancestors = append(ancestors, u.SponsorID)
		current = u.SponsorID
	}
	return ancestors, nil
}

// Verified reports the user's KYC status; unknown users are unverified.
func (d *Directory) Verified(ctx context.Context, user string) (bool, error) {
	var u directoryUser
	err := d.collection.FindOne(ctx, bson.M{"user_id": user}).Decode(&u)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return false, nil
		}
		return false, err
	}
	return u.KYCVerified, nil
}
