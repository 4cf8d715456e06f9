package store

import (
	"RagDesk/backend/go/internal/models"
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// TaskArchive keeps terminal task snapshots after they leave the in-memory registry.
type TaskArchive interface {
	Save(ctx context.Context, snap models.TaskSnapshot) error
	// GetByID returns nil, nil when the task was never archived.
	GetByID(ctx context.Context, id string) (*models.TaskSnapshot, error)
}

// MongoTaskArchive is an implementation of TaskArchive using MongoDB.
type MongoTaskArchive struct {
	collection *mongo.Collection
}

// NewMongoTaskArchive creates a new MongoTaskArchive.
func NewMongoTaskArchive(collection *mongo.Collection) *MongoTaskArchive {
	return &MongoTaskArchive{collection: collection}
}

// Save upserts the snapshot keyed by task id.
func (s *MongoTaskArchive) Save(ctx context.Context, snap models.TaskSnapshot) error {
	opts := options.Replace().SetUpsert(true)
	_, err := s.collection.ReplaceOne(ctx, bson.M{"_id": snap.ID}, snap, opts)
	return err
}

// GetByID retrieves an archived task by its ID.
func (s *MongoTaskArchive) GetByID(ctx context.Context, id string) (*models.TaskSnapshot, error) {
	var snap models.TaskSnapshot
	err := s.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&snap)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	return &snap, nil
}
