package repository

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"couponnet/internal/model"
	"couponnet/pkg/errors"
)

// mongodbWithdrawalRepository implements WithdrawalRepository using
// MongoDB. The (user_id, window_key) unique index over cooldown-counting
// documents turns the one-request-per-window rule into an atomic insert.
type mongodbWithdrawalRepository struct {
	collection *mongo.Collection
}

// NewWithdrawalRepository creates a new MongoDB-based withdrawal store.
func NewWithdrawalRepository(db *mongo.Database) WithdrawalRepository {
	return &mongodbWithdrawalRepository{
		collection: db.Collection("withdrawal_requests"),
	}
}

func (r *mongodbWithdrawalRepository) Insert(ctx context.Context, req *model.WithdrawalRequest) error {
	if req.RequestedAt.IsZero() {
		req.RequestedAt = time.Now()
	}
	req.CountsAgainstCooldown = req.Status != model.WithdrawalRejected
	if _, err := r.collection.InsertOne(ctx, req); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return errors.CooldownActive("a withdrawal request already exists for this window")
		}
		return err
	}
	return nil
}

// SetStatusFrom is a CAS on the status field: the filter carries the
// expected current statuses, so a concurrent flip or a rerun of the same
// settlement matches zero documents instead of applying twice.
func (r *mongodbWithdrawalRepository) SetStatusFrom(ctx context.Context, requestID string, from []model.WithdrawalStatus, to model.WithdrawalStatus) error {
	set := bson.M{"status": to}
	if to == model.WithdrawalRejected {
		// Rejected requests stop counting against the weekly cooldown.
		set["counts_against_cooldown"] = false
	}
	res, err := r.collection.UpdateOne(
		ctx,
		bson.M{"request_id": requestID, "status": bson.M{"$in": from}},
		bson.M{"$set": set},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		existErr := r.collection.FindOne(ctx, bson.M{"request_id": requestID}).Err()
		if existErr == mongo.ErrNoDocuments {
			return errors.NotFound("withdrawal request %s not found", requestID)
		}
		if existErr != nil {
			return existErr
		}
		return errors.StateConflict("withdrawal request %s cannot move to %s", requestID, to)
	}
	return nil
}

func (r *mongodbWithdrawalRepository) Get(ctx context.Context, requestID string) (*model.WithdrawalRequest, error) {
	var req model.WithdrawalRequest
	if err := r.collection.FindOne(ctx, bson.M{"request_id": requestID}).Decode(&req); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, errors.NotFound("withdrawal request %s not found", requestID)
		}
		return nil, err
	}
	return &req, nil
}

func (r *mongodbWithdrawalRepository) ListByUser(ctx context.Context, user string) ([]*model.WithdrawalRequest, error) {
	cursor, err := r.collection.Find(
		ctx,
		bson.M{"user_id": user},
		options.Find().SetSort(bson.D{{Key: "requested_at", Value: -1}}),
	)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var reqs []*model.WithdrawalRequest
	if err := cursor.All(ctx, &reqs); err != nil {
		return nil, err
	}
	return reqs, nil
}
