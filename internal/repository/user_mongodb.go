package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"kitstock-api/internal/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// MongoUserRepository implements UserRepository using MongoDB.
type MongoUserRepository struct {
	coll *mongo.Collection
}

// NewMongoUserRepository creates a new MongoDB user repository.
func NewMongoUserRepository(coll *mongo.Collection) *MongoUserRepository {
	return &MongoUserRepository{coll: coll}
}

// userDocument matches credential records written by earlier deployments,
// whose ids are ObjectIDs.
type userDocument struct {
	ID        any       `bson:"_id"`
	Username  string    `bson:"username"`
	Password  string    `bson:"password"`
	CreatedAt time.Time `bson:"createdAt"`
}

// GetByUsername returns a user by name.
func (r *MongoUserRepository) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	var doc userDocument
	err := r.coll.FindOne(ctx, bson.M{"username": username}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, model.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &model.User{
		ID:           documentID(doc.ID),
		Username:     doc.Username,
		PasswordHash: doc.Password,
		CreatedAt:    doc.CreatedAt,
	}, nil
}

// Create stores a new user.
func (r *MongoUserRepository) Create(ctx context.Context, u *model.User) error {
	_, err := r.coll.InsertOne(ctx, userDocument{
		ID:        u.ID,
		Username:  u.Username,
		Password:  u.PasswordHash,
		CreatedAt: u.CreatedAt,
	})
	if mongo.IsDuplicateKeyError(err) {
		return model.ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func documentID(v any) string {
	switch id := v.(type) {
	case primitive.ObjectID:
		return id.Hex()
	case string:
		return id
	}
	return fmt.Sprint(v)
}

// Ensure MongoUserRepository implements UserRepository
var _ UserRepository = (*MongoUserRepository)(nil)
