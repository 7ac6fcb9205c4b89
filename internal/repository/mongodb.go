package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Collection names.
const (
	collKits    = "kits"
	collCOD     = "cod_orders"
	collReturns = "return_tickets"
	collUsers   = "users"
)

// OpenMongo connects to MongoDB, creates the collection indexes and returns a
// Store backed by it.
func OpenMongo(ctx context.Context, uri, database string) (*Store, error) {
	clientOpts := options.Client().
		ApplyURI(uri).
		SetMaxPoolSize(50).
		SetMinPoolSize(5).
		SetMaxConnIdleTime(5 * time.Minute).
		SetRetryWrites(true)

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	// Ping to verify connection
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	db := client.Database(database)
	ensureIndexes(ctx, db)

	log.Info().Str("database", database).Msg("[MongoDB] Connected")
	return &Store{
		Kits:    NewMongoKitRepository(db.Collection(collKits)),
		COD:     NewMongoCODRepository(db.Collection(collCOD)),
		Returns: NewMongoReturnRepository(db.Collection(collReturns)),
		Users:   NewMongoUserRepository(db.Collection(collUsers)),
		kind:    "mongodb",
		ping: func(ctx context.Context) error {
			return client.Ping(ctx, nil)
		},
		close: func() error {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return client.Disconnect(ctx)
		},
	}, nil
}

// ensureIndexes runs once at startup. Failures are logged, not fatal.
func ensureIndexes(ctx context.Context, db *mongo.Database) {
	indexes := map[string][]mongo.IndexModel{
		collKits: {
			{Keys: bson.D{{Key: "status", Value: 1}, {Key: "_id", Value: 1}}},
			{Keys: bson.D{{Key: "orderId", Value: 1}}},
		},
		collCOD: {
			{Keys: bson.D{{Key: "orderId", Value: 1}}},
		},
		collReturns: {
			{Keys: bson.D{{Key: "orderId", Value: 1}}},
		},
		collUsers: {
			{Keys: bson.D{{Key: "username", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
	}

	for coll, models := range indexes {
		if _, err := db.Collection(coll).Indexes().CreateMany(ctx, models); err != nil {
			log.Warn().Err(err).Str("collection", coll).Msg("[MongoDB] failed to create indexes")
		}
	}
}

var sortByID = bson.D{{Key: "_id", Value: 1}}
