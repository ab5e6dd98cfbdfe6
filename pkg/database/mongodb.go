package database

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoDB wraps the MongoDB client and database.
type MongoDB struct {
	Client   *mongo.Client
	Database *mongo.Database
}

// Connect establishes a connection to MongoDB and installs the indexes the
// core's atomic guards rely on.
func Connect(ctx context.Context, uri, dbName string) (*MongoDB, error) {
	clientOptions := options.Client().ApplyURI(uri)

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	db := client.Database(dbName)

	mongoDB := &MongoDB{
		Client:   client,
		Database: db,
	}

	if err := mongoDB.CreateIndexes(ctx); err != nil {
		return nil, fmt.Errorf("failed to create indexes: %w", err)
	}

	return mongoDB, nil
}

// CreateIndexes creates all necessary indexes for the application. Several
// of them are load-bearing for correctness, not just speed: the partial
// unique code index keeps one active record per code across transfers, and
// the withdrawal window index makes the weekly cooldown an atomic insert.
func (m *MongoDB) CreateIndexes(ctx context.Context) error {
	codes := m.Database.Collection("coupon_codes")
	activeCodeIndex := mongo.IndexModel{
		Keys: bson.D{{Key: "code", Value: 1}},
		Options: options.Index().
			SetUnique(true).
			SetName("active_code_unique").
			SetPartialFilterExpression(bson.M{"superseded": false}),
	}
	if _, err := codes.Indexes().CreateOne(ctx, activeCodeIndex); err != nil {
		return fmt.Errorf("failed to create active code index: %w", err)
	}
	ownerIndex := mongo.IndexModel{
		Keys: bson.D{
			{Key: "assigned_employee", Value: 1},
			{Key: "status", Value: 1},
		},
		Options: options.Index().SetName("employee_status"),
	}
	if _, err := codes.Indexes().CreateOne(ctx, ownerIndex); err != nil {
		return fmt.Errorf("failed to create employee status index: %w", err)
	}

	wallets := m.Database.Collection("wallets")
	walletUserIndex := mongo.IndexModel{
		Keys:    bson.D{{Key: "user_id", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("wallet_user_unique"),
	}
	if _, err := wallets.Indexes().CreateOne(ctx, walletUserIndex); err != nil {
		return fmt.Errorf("failed to create wallet user index: %w", err)
	}

	progress := m.Database.Collection("matrix_progress")
	progressIndex := mongo.IndexModel{
		Keys: bson.D{
			{Key: "user_id", Value: 1},
			{Key: "pool", Value: 1},
		},
		Options: options.Index().SetUnique(true).SetName("user_pool_unique"),
	}
	if _, err := progress.Indexes().CreateOne(ctx, progressIndex); err != nil {
		return fmt.Errorf("failed to create matrix progress index: %w", err)
	}

	rewards := m.Database.Collection("reward_points")
	rewardIndex := mongo.IndexModel{
		Keys:    bson.D{{Key: "user_id", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("reward_user_unique"),
	}
	if _, err := rewards.Indexes().CreateOne(ctx, rewardIndex); err != nil {
		return fmt.Errorf("failed to create reward points index: %w", err)
	}

	ledger := m.Database.Collection("commission_ledger")
	ledgerIndex := mongo.IndexModel{
		Keys: bson.D{
			{Key: "beneficiary", Value: 1},
			{Key: "earned_at", Value: -1},
		},
		Options: options.Index().SetName("beneficiary_earned"),
	}
	if _, err := ledger.Indexes().CreateOne(ctx, ledgerIndex); err != nil {
		return fmt.Errorf("failed to create ledger index: %w", err)
	}

	withdrawals := m.Database.Collection("withdrawal_requests")
	cooldownIndex := mongo.IndexModel{
		Keys: bson.D{
			{Key: "user_id", Value: 1},
			{Key: "window_key", Value: 1},
		},
		Options: options.Index().
			SetUnique(true).
			SetName("user_window_unique").
			SetPartialFilterExpression(bson.M{"counts_against_cooldown": true}),
	}
	if _, err := withdrawals.Indexes().CreateOne(ctx, cooldownIndex); err != nil {
		return fmt.Errorf("failed to create withdrawal cooldown index: %w", err)
	}
	requestIDIndex := mongo.IndexModel{
		Keys:    bson.D{{Key: "request_id", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("request_id_unique"),
	}
	if _, err := withdrawals.Indexes().CreateOne(ctx, requestIDIndex); err != nil {
		return fmt.Errorf("failed to create withdrawal request id index: %w", err)
	}

	schedules := m.Database.Collection("schedules")
	versionIndex := mongo.IndexModel{
		Keys:    bson.D{{Key: "version", Value: -1}},
		Options: options.Index().SetUnique(true).SetName("schedule_version_unique"),
	}
	if _, err := schedules.Indexes().CreateOne(ctx, versionIndex); err != nil {
		return fmt.Errorf("failed to create schedule version index: %w", err)
	}

	return nil
}

// Disconnect closes the MongoDB connection.
func (m *MongoDB) Disconnect(ctx context.Context) error {
	return m.Client.Disconnect(ctx)
}
