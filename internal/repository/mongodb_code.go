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

// mongodbCodeRepository implements CodeRepository using MongoDB. The active
// record for a code is the one with superseded=false; a partial unique
// index keeps that record unique per code string.
type mongodbCodeRepository struct {
	collection *mongo.Collection
}

// NewCodeRepository creates a new MongoDB-based code repository.
func NewCodeRepository(db *mongo.Database) CodeRepository {
	return &mongodbCodeRepository{
		collection: db.Collection("coupon_codes"),
	}
}

func (r *mongodbCodeRepository) CreateBatch(ctx context.Context, codes []*model.CouponCode) error {
	if len(codes) == 0 {
		return nil
	}
	now := time.Now()
	docs := make([]interface{}, 0, len(codes))
	for _, c := range codes {
		if c.CreatedAt.IsZero() {
			c.CreatedAt = now
		}
		c.UpdatedAt = c.CreatedAt
		docs = append(docs, c)
	}
	if _, err := r.collection.InsertMany(ctx, docs); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return errors.StateConflict("one or more codes already exist")
		}
		return err
	}
	return nil
}

func (r *mongodbCodeRepository) GetActiveByCode(ctx context.Context, code string) (*model.CouponCode, error) {
	var cc model.CouponCode
	err := r.collection.FindOne(ctx, bson.M{"code": code, "superseded": false}).Decode(&cc)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, errors.NotFound("code %s not found", code)
		}
		return nil, err
	}
	return &cc, nil
}

// Transition is the single status mutator: a FindOneAndUpdate whose filter
// carries the expected statuses and owner guards, so the swap either lands
// whole or not at all. Every requested edge must exist in the lifecycle
// table; a caller asking for an edge outside it is a bug, not a race.
func (r *mongodbCodeRepository) Transition(ctx context.Context, spec TransitionSpec) (*model.CouponCode, error) {
	for _, from := range spec.From {
		if !model.CanTransition(from, spec.To) {
			return nil, errors.Validation("illegal transition %s to %s", from, spec.To)
		}
	}

	filter := bson.M{
		"code":       spec.Code,
		"superseded": false,
		"status":     bson.M{"$in": spec.From},
	}
	if spec.GuardEmployee != "" {
		filter["assigned_employee"] = spec.GuardEmployee
	}
	if spec.GuardConsumer != "" {
		filter["assigned_consumer"] = spec.GuardConsumer
	}

	set := bson.M{"status": spec.To, "updated_at": time.Now()}
	if spec.Set.AssignedAgency != "" {
		set["assigned_agency"] = spec.Set.AssignedAgency
	}
	if spec.Set.AssignedEmployee != "" {
		set["assigned_employee"] = spec.Set.AssignedEmployee
	}
	if spec.Set.AssignedConsumer != "" {
		set["assigned_consumer"] = spec.Set.AssignedConsumer
	}
	if spec.Set.TransferredTo != "" {
		set["transferred_to"] = spec.Set.TransferredTo
	}
	if spec.Set.Superseded {
		set["superseded"] = true
	}

	var cc model.CouponCode
	err := r.collection.FindOneAndUpdate(
		ctx,
		filter,
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&cc)
	if err == nil {
		return &cc, nil
	}
	if err != mongo.ErrNoDocuments {
		return nil, err
	}

	// The guard missed. Distinguish an unknown code from an illegal move.
	existErr := r.collection.FindOne(ctx, bson.M{"code": spec.Code, "superseded": false}).Err()
	if existErr == mongo.ErrNoDocuments {
		return nil, errors.NotFound("code %s not found", spec.Code)
	}
	if existErr != nil {
		return nil, existErr
	}
	return nil, errors.StateConflict("code %s cannot move to %s", spec.Code, spec.To)
}

func (r *mongodbCodeRepository) AssignBatch(ctx context.Context, batchID, employee string) (int64, error) {
	res, err := r.collection.UpdateMany(
		ctx,
		bson.M{"batch_id": batchID, "status": model.StatusAvailable, "superseded": false},
		bson.M{"$set": bson.M{
			"status":            model.StatusAssignedEmployee,
			"assigned_employee": employee,
			"updated_at":        time.Now(),
		}},
	)
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

// ClaimForConsumer selects candidate ids and flips them in a guarded
// UpdateMany. Inside a transaction the two steps are one atomic
// reservation; the caller aborts when the claimed count falls short.
func (r *mongodbCodeRepository) ClaimForConsumer(ctx context.Context, employee, consumer string, count int64) (int64, error) {
	cursor, err := r.collection.Find(
		ctx,
		bson.M{
			"assigned_employee": employee,
			"status":            model.StatusAssignedEmployee,
			"superseded":        false,
		},
		options.Find().
			SetSort(bson.D{{Key: "serial", Value: 1}}).
			SetLimit(count).
			SetProjection(bson.M{"_id": 1}),
	)
	if err != nil {
		return 0, err
	}
	defer cursor.Close(ctx)

	var rows []struct {
		ID primitive.ObjectID `bson:"_id"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return 0, err
	}
	ids := make([]primitive.ObjectID, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.ID)
	}
	if len(ids) == 0 {
		return 0, nil
	}

	res, err := r.collection.UpdateMany(
		ctx,
		bson.M{
			"_id":               bson.M{"$in": ids},
			"assigned_employee": employee,
			"status":            model.StatusAssignedEmployee,
		},
		bson.M{"$set": bson.M{
			"status":            model.StatusAssignedConsumer,
			"assigned_consumer": consumer,
			"updated_at":        time.Now(),
		}},
	)
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

func (r *mongodbCodeRepository) InsertSuccessor(ctx context.Context, original *model.CouponCode, newConsumer string) (*model.CouponCode, error) {
	now := time.Now()
	successor := &model.CouponCode{
		ID:               primitive.NewObjectID(),
		Code:             original.Code,
		Denomination:     original.Denomination,
		Status:           model.StatusAssignedConsumer,
		AssignedAgency:   original.AssignedAgency,
		AssignedEmployee: original.AssignedEmployee,
		AssignedConsumer: newConsumer,
		BatchID:          original.BatchID,
		Serial:           original.Serial,
		PreviousID:       original.ID,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if _, err := r.collection.InsertOne(ctx, successor); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, errors.StateConflict("code %s already has an active record", original.Code)
		}
		return nil, err
	}
	return successor, nil
}

func (r *mongodbCodeRepository) CountByOwner(ctx context.Context, employee string) (int64, error) {
	return r.collection.CountDocuments(ctx, bson.M{
		"assigned_employee": employee,
		"status":            model.StatusAssignedEmployee,
		"superseded":        false,
	})
}
