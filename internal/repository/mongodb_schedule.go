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

// mongodbScheduleRepository implements ScheduleRepository using MongoDB.
// Schedules are append-only versions; Current picks the newest.
type mongodbScheduleRepository struct {
	collection *mongo.Collection
}

// NewScheduleRepository creates a new MongoDB-based schedule store.
func NewScheduleRepository(db *mongo.Database) ScheduleRepository {
	return &mongodbScheduleRepository{
		collection: db.Collection("schedules"),
	}
}

func (r *mongodbScheduleRepository) Current(ctx context.Context) (*model.Schedule, error) {
	var s model.Schedule
	err := r.collection.FindOne(
		ctx,
		bson.M{},
		options.FindOne().SetSort(bson.D{{Key: "version", Value: -1}}),
	).Decode(&s)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, errors.NotFound("no schedule configured")
		}
		return nil, err
	}
	return &s, nil
}

func (r *mongodbScheduleRepository) Put(ctx context.Context, s *model.Schedule) error {
	if err := s.Validate(); err != nil {
		return err
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now()
	}
	if _, err := r.collection.InsertOne(ctx, s); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return errors.StateConflict("schedule version %d already exists", s.Version)
		}
		return err
	}
	return nil
}
