package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"kitstock-api/internal/model"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoKitRepository implements KitRepository using MongoDB. Multi-document
// writes are not transactional; a failed step is undone by a compensating
// write.
type MongoKitRepository struct {
	coll *mongo.Collection
}

// NewMongoKitRepository creates a new MongoDB kit repository.
func NewMongoKitRepository(coll *mongo.Collection) *MongoKitRepository {
	return &MongoKitRepository{coll: coll}
}

// kitDocument represents a kit in MongoDB.
type kitDocument struct {
	ID            string    `bson:"_id"`
	SerialNumbers []string  `bson:"serialNumbers"`
	BatchNumbers  []string  `bson:"batchNumbers"`
	Status        string    `bson:"status"`
	OrderID       string    `bson:"orderId"`
	InvoiceURL    string    `bson:"invoiceUrl"`
	InvoiceID     string    `bson:"invoiceId"`
	CreatedAt     time.Time `bson:"createdAt"`
	UpdatedAt     time.Time `bson:"updatedAt"`
}

func toKitDocument(k *model.Kit) kitDocument {
	return kitDocument{
		ID:            k.ID,
		SerialNumbers: nonNil(k.SerialNumbers),
		BatchNumbers:  nonNil(k.BatchNumbers),
		Status:        string(k.Status),
		OrderID:       k.OrderID,
		InvoiceURL:    k.InvoiceURL,
		InvoiceID:     k.InvoiceID,
		CreatedAt:     k.CreatedAt,
		UpdatedAt:     k.UpdatedAt,
	}
}

func (d *kitDocument) toModel() model.Kit {
	return model.Kit{
		ID:            d.ID,
		SerialNumbers: model.StringList(nonNil(d.SerialNumbers)),
		BatchNumbers:  model.StringList(nonNil(d.BatchNumbers)),
		Status:        model.KitStatus(d.Status),
		OrderID:       d.OrderID,
		InvoiceURL:    d.InvoiceURL,
		InvoiceID:     d.InvoiceID,
		CreatedAt:     d.CreatedAt,
		UpdatedAt:     d.UpdatedAt,
	}
}

func nonNil(in []string) []string {
	if in == nil {
		return []string{}
	}
	return in
}

func (r *MongoKitRepository) find(ctx context.Context, filter bson.M, opts ...*options.FindOptions) ([]model.Kit, error) {
	opts = append([]*options.FindOptions{options.Find().SetSort(sortByID)}, opts...)
	cur, err := r.coll.Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	kits := []model.Kit{}
	for cur.Next(ctx) {
		var doc kitDocument
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		kits = append(kits, doc.toModel())
	}
	return kits, cur.Err()
}

// List returns every kit.
func (r *MongoKitRepository) List(ctx context.Context) ([]model.Kit, error) {
	kits, err := r.find(ctx, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("failed to list kits: %w", err)
	}
	return kits, nil
}

// ListAvailable returns at most limit available kits.
func (r *MongoKitRepository) ListAvailable(ctx context.Context, limit int) ([]model.Kit, error) {
	if limit < 1 {
		return nil, fmt.Errorf("%w: limit must be positive, got %d", model.ErrInvalidInput, limit)
	}
	kits, err := r.find(ctx, bson.M{"status": model.KitAvailable}, options.Find().SetLimit(int64(limit)))
	if err != nil {
		return nil, fmt.Errorf("failed to list available kits: %w", err)
	}
	return kits, nil
}

// Counts returns inventory counts per status.
func (r *MongoKitRepository) Counts(ctx context.Context) (model.KitCounts, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.D{{Key: "_id", Value: "$status"}, {Key: "n", Value: bson.D{{Key: "$sum", Value: 1}}}}}},
	}
	cur, err := r.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return model.KitCounts{}, fmt.Errorf("failed to count kits: %w", err)
	}
	defer cur.Close(ctx)

	var c model.KitCounts
	for cur.Next(ctx) {
		var row struct {
			Status string `bson:"_id"`
			N      int64  `bson:"n"`
		}
		if err := cur.Decode(&row); err != nil {
			return model.KitCounts{}, fmt.Errorf("failed to count kits: %w", err)
		}
		switch model.KitStatus(row.Status) {
		case model.KitAvailable:
			c.Available = row.N
		case model.KitSold:
			c.Sold = row.N
		}
		c.Total += row.N
	}
	return c, cur.Err()
}

// GetByID returns a kit by id.
func (r *MongoKitRepository) GetByID(ctx context.Context, id string) (*model.Kit, error) {
	var doc kitDocument
	err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, model.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get kit: %w", err)
	}
	kit := doc.toModel()
	return &kit, nil
}

// GetByIDs returns the kits that exist among ids.
func (r *MongoKitRepository) GetByIDs(ctx context.Context, ids []string) ([]model.Kit, error) {
	if len(ids) == 0 {
		return []model.Kit{}, nil
	}
	kits, err := r.find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, fmt.Errorf("failed to get kits: %w", err)
	}
	return kits, nil
}

// ListByOrder returns every kit stamped with orderID.
func (r *MongoKitRepository) ListByOrder(ctx context.Context, orderID string) ([]model.Kit, error) {
	kits, err := r.find(ctx, bson.M{"orderId": orderID})
	if err != nil {
		return nil, fmt.Errorf("failed to list kits by order: %w", err)
	}
	return kits, nil
}

// InsertMany stores new kits.
func (r *MongoKitRepository) InsertMany(ctx context.Context, kits []model.Kit) error {
	if len(kits) == 0 {
		return nil
	}
	docs := make([]interface{}, len(kits))
	for i := range kits {
		docs[i] = toKitDocument(&kits[i])
	}
	if _, err := r.coll.InsertMany(ctx, docs); err != nil {
		return fmt.Errorf("failed to insert kits: %w", err)
	}
	return nil
}

// ClaimAvailable flips exactly n available kits to sold. Each unit is claimed
// with a status-guarded FindOneAndUpdate, so no unit is claimed twice. On a
// shortfall the units claimed so far are released again.
func (r *MongoKitRepository) ClaimAvailable(ctx context.Context, n int, stamp model.SaleStamp) ([]model.Kit, error) {
	if n < 1 {
		return nil, fmt.Errorf("%w: claim size must be positive, got %d", model.ErrInvalidInput, n)
	}
	available, err := r.coll.CountDocuments(ctx, bson.M{"status": model.KitAvailable})
	if err != nil {
		return nil, fmt.Errorf("failed to count available kits: %w", err)
	}
	if available < int64(n) {
		return nil, model.ErrInsufficientInventory
	}

	update := bson.M{"$set": bson.M{
		"status":     model.KitSold,
		"orderId":    stamp.OrderID,
		"invoiceUrl": stamp.InvoiceURL,
		"invoiceId":  stamp.InvoiceID,
		"updatedAt":  time.Now().UTC(),
	}}
	opts := options.FindOneAndUpdate().SetSort(sortByID).SetReturnDocument(options.After)

	claimed := make([]model.Kit, 0, n)
	for len(claimed) < n {
		var doc kitDocument
		err := r.coll.FindOneAndUpdate(ctx, bson.M{"status": model.KitAvailable}, update, opts).Decode(&doc)
		if err != nil {
			r.release(ctx, claimed, stamp.OrderID)
			if errors.Is(err, mongo.ErrNoDocuments) {
				return nil, model.ErrInsufficientInventory
			}
			return nil, fmt.Errorf("failed to claim kit: %w", err)
		}
		claimed = append(claimed, doc.toModel())
	}
	return claimed, nil
}

// release returns claimed kits to the available pool.
func (r *MongoKitRepository) release(ctx context.Context, claimed []model.Kit, orderID string) {
	if len(claimed) == 0 {
		return
	}
	ids := make([]string, len(claimed))
	for i := range claimed {
		ids[i] = claimed[i].ID
	}

	ctx = context.WithoutCancel(ctx)
	_, err := r.coll.UpdateMany(ctx,
		bson.M{"_id": bson.M{"$in": ids}, "status": model.KitSold, "orderId": orderID},
		bson.M{"$set": bson.M{
			"status":     model.KitAvailable,
			"orderId":    "",
			"invoiceUrl": "",
			"invoiceId":  "",
			"updatedAt":  time.Now().UTC(),
		}})
	if err != nil {
		log.Error().Err(err).Strs("kit_ids", ids).Msg("[MongoDB] failed to release claimed kits")
	}
}

// MergeSold rewrites the target aggregate and deletes the absorbed kits.
func (r *MongoKitRepository) MergeSold(ctx context.Context, target *model.Kit, absorbedIDs []string) error {
	target.UpdatedAt = time.Now().UTC()
	res, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": target.ID, "status": model.KitSold},
		bson.M{"$set": bson.M{
			"serialNumbers": nonNil(target.SerialNumbers),
			"batchNumbers":  nonNil(target.BatchNumbers),
			"orderId":       target.OrderID,
			"invoiceUrl":    target.InvoiceURL,
			"invoiceId":     target.InvoiceID,
			"updatedAt":     target.UpdatedAt,
		}})
	if err != nil {
		return fmt.Errorf("failed to update aggregate: %w", err)
	}
	if res.MatchedCount != 1 {
		return model.ErrConflict
	}

	if len(absorbedIDs) == 0 {
		return nil
	}
	del, err := r.coll.DeleteMany(ctx, bson.M{
		"_id":     bson.M{"$in": absorbedIDs},
		"status":  model.KitSold,
		"orderId": target.OrderID,
	})
	if err != nil {
		return fmt.Errorf("failed to delete absorbed kits: %w", err)
	}
	if del.DeletedCount != int64(len(absorbedIDs)) {
		return model.ErrConflict
	}
	return nil
}

// ReplaceSold deletes the sold kits one at a time with a status guard, then
// inserts the fresh kits. If any step fails the deleted documents are put
// back.
func (r *MongoKitRepository) ReplaceSold(ctx context.Context, soldIDs []string, fresh []model.Kit) error {
	removed := make([]kitDocument, 0, len(soldIDs))
	for _, id := range soldIDs {
		var doc kitDocument
		err := r.coll.FindOneAndDelete(ctx, bson.M{"_id": id, "status": model.KitSold}).Decode(&doc)
		if err != nil {
			r.restore(ctx, removed)
			if errors.Is(err, mongo.ErrNoDocuments) {
				return model.ErrNotSold
			}
			return fmt.Errorf("failed to delete sold kit %s: %w", id, err)
		}
		removed = append(removed, doc)
	}

	if err := r.InsertMany(ctx, fresh); err != nil {
		r.restore(ctx, removed)
		return err
	}
	return nil
}

func (r *MongoKitRepository) restore(ctx context.Context, docs []kitDocument) {
	if len(docs) == 0 {
		return
	}
	items := make([]interface{}, len(docs))
	for i := range docs {
		items[i] = docs[i]
	}
	if _, err := r.coll.InsertMany(context.WithoutCancel(ctx), items); err != nil {
		log.Error().Err(err).Int("count", len(docs)).Msg("[MongoDB] failed to restore sold kits")
	}
}

// DeleteAvailable deletes the available kits among ids.
func (r *MongoKitRepository) DeleteAvailable(ctx context.Context, ids []string) ([]string, error) {
	deleted := []string{}
	for _, id := range ids {
		res, err := r.coll.DeleteOne(ctx, bson.M{"_id": id, "status": model.KitAvailable})
		if err != nil {
			return deleted, fmt.Errorf("failed to delete kit %s: %w", id, err)
		}
		if res.DeletedCount == 1 {
			deleted = append(deleted, id)
		}
	}
	return deleted, nil
}

// Ensure MongoKitRepository implements KitRepository
var _ KitRepository = (*MongoKitRepository)(nil)
