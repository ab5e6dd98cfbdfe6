package repository

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"couponnet/internal/model"
	"couponnet/pkg/errors"
)

// mongodbSubmissionRepository implements SubmissionRepository using MongoDB.
type mongodbSubmissionRepository struct {
	collection *mongo.Collection
}

// NewSubmissionRepository creates a new MongoDB-based submission store.
func NewSubmissionRepository(db *mongo.Database) SubmissionRepository {
	return &mongodbSubmissionRepository{
		collection: db.Collection("coupon_submissions"),
	}
}

func (r *mongodbSubmissionRepository) Insert(ctx context.Context, sub *model.CouponSubmission) error {
	now := time.Now()
	if sub.CreatedAt.IsZero() {
		sub.CreatedAt = now
	}
	sub.UpdatedAt = now
	_, err := r.collection.InsertOne(ctx, sub)
	return err
}

func (r *mongodbSubmissionRepository) Advance(ctx context.Context, id string, from, to model.SubmissionStatus, linkedCode string) (*model.CouponSubmission, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, errors.Validation("malformed submission id %q", id)
	}

	set := bson.M{"status": to, "updated_at": time.Now()}
	if linkedCode != "" {
		set["linked_code"] = linkedCode
	}

	var sub model.CouponSubmission
	err = r.collection.FindOneAndUpdate(
		ctx,
		bson.M{"_id": oid, "status": from},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&sub)
	if err == nil {
		return &sub, nil
	}
	if err != mongo.ErrNoDocuments {
		return nil, err
	}

	existErr := r.collection.FindOne(ctx, bson.M{"_id": oid}).Err()
	if existErr == mongo.ErrNoDocuments {
		return nil, errors.NotFound("submission %s not found", id)
	}
	if existErr != nil {
		return nil, existErr
	}
	return nil, errors.StateConflict("submission %s is not in status %s", id, from)
}

func (r *mongodbSubmissionRepository) Get(ctx context.Context, id string) (*model.CouponSubmission, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, errors.Validation("malformed submission id %q", id)
	}
	var sub model.CouponSubmission
	if err := r.collection.FindOne(ctx, bson.M{"_id": oid}).Decode(&sub); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, errors.NotFound("submission %s not found", id)
		}
		return nil, err
	}
	return &sub, nil
}
