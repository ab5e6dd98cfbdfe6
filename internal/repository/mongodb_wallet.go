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

// mongodbWalletRepository implements WalletRepository using MongoDB. Both
// balances move in one $inc, so a concurrent reader never observes a
// half-applied entry.
type mongodbWalletRepository struct {
	collection *mongo.Collection
}

// NewWalletRepository creates a new MongoDB-based wallet repository.
func NewWalletRepository(db *mongo.Database) WalletRepository {
	return &mongodbWalletRepository{
		collection: db.Collection("wallets"),
	}
}

func (r *mongodbWalletRepository) ApplyEntry(ctx context.Context, user string, grossPaise, netPaise int64, taxPercent float64) error {
	if grossPaise < 0 || netPaise < 0 {
		return errors.Validation("ledger entries only credit; settlement uses DebitWithdrawable")
	}
	_, err := r.collection.UpdateOne(
		ctx,
		bson.M{"user_id": user},
		bson.M{
			"$inc": bson.M{"main_paise": grossPaise, "withdrawable_paise": netPaise},
			"$set": bson.M{"tax_percent": taxPercent, "updated_at": time.Now()},
		},
		options.Update().SetUpsert(true),
	)
	return err
}

func (r *mongodbWalletRepository) DebitWithdrawable(ctx context.Context, user string, amountPaise int64) error {
	if amountPaise <= 0 {
		return errors.Validation("debit amount must be positive")
	}
	res, err := r.collection.UpdateOne(
		ctx,
		bson.M{"user_id": user, "withdrawable_paise": bson.M{"$gte": amountPaise}},
		bson.M{
			"$inc": bson.M{"withdrawable_paise": -amountPaise},
			"$set": bson.M{"updated_at": time.Now()},
		},
	)
	if err != nil {
		return err
	}
	if res.ModifiedCount == 0 {
		return errors.Validation("withdrawable balance below debit amount")
	}
	return nil
}

func (r *mongodbWalletRepository) Get(ctx context.Context, user string) (*model.Wallet, error) {
	var w model.Wallet
	err := r.collection.FindOne(ctx, bson.M{"user_id": user}).Decode(&w)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return &model.Wallet{UserID: user}, nil
		}
		return nil, err
	}
	return &w, nil
}

// mongodbLedgerRepository implements LedgerRepository using MongoDB.
type mongodbLedgerRepository struct {
	collection *mongo.Collection
}

// NewLedgerRepository creates a new MongoDB-based commission ledger.
func NewLedgerRepository(db *mongo.Database) LedgerRepository {
	return &mongodbLedgerRepository{
		collection: db.Collection("commission_ledger"),
	}
}

func (r *mongodbLedgerRepository) Insert(ctx context.Context, entry *model.CommissionLedgerEntry) error {
	if entry.Status == "" {
		entry.Status = model.EntryPending
	}
	if entry.EarnedAt.IsZero() {
		entry.EarnedAt = time.Now()
	}
	_, err := r.collection.InsertOne(ctx, entry)
	return err
}

func (r *mongodbLedgerRepository) ListByUser(ctx context.Context, user string) ([]*model.CommissionLedgerEntry, error) {
	cursor, err := r.collection.Find(
		ctx,
		bson.M{"beneficiary": user},
		options.Find().SetSort(bson.D{{Key: "earned_at", Value: -1}}),
	)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var entries []*model.CommissionLedgerEntry
	if err := cursor.All(ctx, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}
