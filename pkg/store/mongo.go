package store

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/flowcanvas/flowcanvas/pkg/errors"
)

// MongoStore archives snapshots in a MongoDB collection.
// Server deployments use it so history survives restarts.
type MongoStore struct {
	client *mongo.Client
	coll   *mongo.Collection
}

// MongoConfig configures the MongoDB connection.
type MongoConfig struct {
	URI        string
	Database   string
	Collection string
}

// NewMongoStore connects to MongoDB and verifies the connection.
func NewMongoStore(ctx context.Context, cfg MongoConfig) (*MongoStore, error) {
	if cfg.Database == "" {
		cfg.Database = "flowcanvas"
	}
	if cfg.Collection == "" {
		cfg.Collection = "snapshots"
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("connect mongodb: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ping mongodb: %w", err)
	}

	coll := client.Database(cfg.Database).Collection(cfg.Collection)

	// Index for the List query path.
	_, err = coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "config_id", Value: 1}, {Key: "saved_at", Value: -1}},
	})
	if err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("create snapshot index: %w", err)
	}

	return &MongoStore{client: client, coll: coll}, nil
}

// Save archives a snapshot.
func (s *MongoStore) Save(ctx context.Context, snap Snapshot) error {
	if snap.ID == "" {
		return errors.New(errors.ErrCodeInvalidInput, "snapshot ID is required")
	}
	if _, err := s.coll.InsertOne(ctx, snap); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return errors.New(errors.ErrCodeInvalidInput, "snapshot ID already exists: %s", snap.ID)
		}
		return fmt.Errorf("insert snapshot: %w", err)
	}
	return nil
}

// List returns snapshots for a config, newest first.
func (s *MongoStore) List(ctx context.Context, configID string, limit int) ([]Snapshot, error) {
	opts := options.Find().SetSort(bson.D{{Key: "saved_at", Value: -1}, {Key: "_id", Value: -1}})
	if limit > 0 {
		opts = opts.SetLimit(int64(limit))
	}

	cursor, err := s.coll.Find(ctx, bson.M{"config_id": configID}, opts)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	defer cursor.Close(ctx)

	result := make([]Snapshot, 0)
	if err := cursor.All(ctx, &result); err != nil {
		return nil, fmt.Errorf("decode snapshots: %w", err)
	}
	return result, nil
}

// Get retrieves a snapshot by ID.
func (s *MongoStore) Get(ctx context.Context, id string) (Snapshot, error) {
	var snap Snapshot
	err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&snap)
	if err == mongo.ErrNoDocuments {
		return Snapshot{}, errors.New(errors.ErrCodeNotFound, "snapshot not found: %s", id)
	}
	if err != nil {
		return Snapshot{}, fmt.Errorf("get snapshot: %w", err)
	}
	return snap, nil
}

// Close disconnects from MongoDB.
func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// Ensure MongoStore implements Store.
var _ Store = (*MongoStore)(nil)
