package repository

import (
	"context"
	"strconv"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"couponnet/internal/model"
)

// mongodbProgressRepository implements ProgressRepository using MongoDB.
// One update per payout keeps the per-level counters lost-update free.
type mongodbProgressRepository struct {
	collection *mongo.Collection
}

// NewProgressRepository creates a new MongoDB-based matrix progress store.
func NewProgressRepository(db *mongo.Database) ProgressRepository {
	return &mongodbProgressRepository{
		collection: db.Collection("matrix_progress"),
	}
}

func (r *mongodbProgressRepository) Accumulate(ctx context.Context, user string, pool model.PoolType, level int, amountPaise int64) error {
	lvl := strconv.Itoa(level)
	_, err := r.collection.UpdateOne(
		ctx,
		bson.M{"user_id": user, "pool": pool},
		bson.M{
			"$inc": bson.M{
				"total_earned_paise":   amountPaise,
				"level_counts." + lvl: 1,
				"level_earned." + lvl: amountPaise,
			},
			"$max": bson.M{"level_reached": level},
			"$set": bson.M{"updated_at": time.Now()},
		},
		options.Update().SetUpsert(true),
	)
	return err
}

func (r *mongodbProgressRepository) EnsureJoined(ctx context.Context, user string, pool model.PoolType) error {
	_, err := r.collection.UpdateOne(
		ctx,
		bson.M{"user_id": user, "pool": pool},
		bson.M{"$setOnInsert": bson.M{
			"total_earned_paise": int64(0),
			"level_reached":      0,
			"level_counts":       bson.M{},
			"level_earned":       bson.M{},
			"updated_at":         time.Now(),
		}},
		options.Update().SetUpsert(true),
	)
	return err
}

func (r *mongodbProgressRepository) ListByUser(ctx context.Context, user string) ([]*model.MatrixProgress, error) {
	cursor, err := r.collection.Find(ctx, bson.M{"user_id": user})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var rows []*model.MatrixProgress
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// mongodbRewardRepository implements RewardRepository using MongoDB.
type mongodbRewardRepository struct {
	collection *mongo.Collection
}

// NewRewardRepository creates a new MongoDB-based reward points store.
func NewRewardRepository(db *mongo.Database) RewardRepository {
	return &mongodbRewardRepository{
		collection: db.Collection("reward_points"),
	}
}

// IncrementCount bumps and reads the counter in one round trip so two
// concurrent activations observe distinct cumulative counts.
func (r *mongodbRewardRepository) IncrementCount(ctx context.Context, user string) (int64, error) {
	var rp model.RewardPoints
	err := r.collection.FindOneAndUpdate(
		ctx,
		bson.M{"user_id": user},
		bson.M{
			"$inc": bson.M{"qualifying_count": 1},
			"$set": bson.M{"updated_at": time.Now()},
		},
		options.FindOneAndUpdate().
			SetUpsert(true).
			SetReturnDocument(options.After),
	).Decode(&rp)
	if err != nil {
		return 0, err
	}
	return rp.QualifyingCount, nil
}

func (r *mongodbRewardRepository) AddPoints(ctx context.Context, user string, points int64) error {
	_, err := r.collection.UpdateOne(
		ctx,
		bson.M{"user_id": user},
		bson.M{
			"$inc": bson.M{"points": points},
			"$set": bson.M{"updated_at": time.Now()},
		},
		options.Update().SetUpsert(true),
	)
	return err
}

func (r *mongodbRewardRepository) Get(ctx context.Context, user string) (*model.RewardPoints, error) {
	var rp model.RewardPoints
	err := r.collection.FindOne(ctx, bson.M{"user_id": user}).Decode(&rp)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return &model.RewardPoints{UserID: user}, nil
		}
		return nil, err
	}
	return &rp, nil
}
