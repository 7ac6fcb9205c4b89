package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"kitstock-api/internal/model"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoCODRepository implements CODRepository using MongoDB.
type MongoCODRepository struct {
	coll *mongo.Collection
}

// NewMongoCODRepository creates a new MongoDB COD order repository.
func NewMongoCODRepository(coll *mongo.Collection) *MongoCODRepository {
	return &MongoCODRepository{coll: coll}
}

// codDocument represents a COD order in MongoDB. Amount is kept as a decimal
// string so no precision is lost.
type codDocument struct {
	ID            string    `bson:"_id"`
	OrderID       string    `bson:"orderId"`
	OrderNo       string    `bson:"orderNo"`
	CustomerName  string    `bson:"customerName"`
	CustomerEmail string    `bson:"customerEmail"`
	CustomerPhone string    `bson:"customerPhone"`
	InvoiceID     string    `bson:"invoiceId"`
	InvoiceURL    string    `bson:"invoiceUrl"`
	Amount        string    `bson:"amount"`
	Status        string    `bson:"status"`
	CreatedAt     time.Time `bson:"createdAt"`
	UpdatedAt     time.Time `bson:"updatedAt"`
}

func (d *codDocument) toModel() (*model.CODOrder, error) {
	amount, err := decimal.NewFromString(d.Amount)
	if err != nil {
		return nil, fmt.Errorf("invalid amount on cod order %s: %w", d.ID, err)
	}
	return &model.CODOrder{
		ID:            d.ID,
		OrderID:       d.OrderID,
		OrderNo:       d.OrderNo,
		CustomerName:  d.CustomerName,
		CustomerEmail: d.CustomerEmail,
		CustomerPhone: d.CustomerPhone,
		InvoiceID:     d.InvoiceID,
		InvoiceURL:    d.InvoiceURL,
		Amount:        amount,
		Status:        model.CODStatus(d.Status),
		CreatedAt:     d.CreatedAt,
		UpdatedAt:     d.UpdatedAt,
	}, nil
}

// Create stores a new order.
func (r *MongoCODRepository) Create(ctx context.Context, o *model.CODOrder) error {
	doc := codDocument{
		ID:            o.ID,
		OrderID:       o.OrderID,
		OrderNo:       o.OrderNo,
		CustomerName:  o.CustomerName,
		CustomerEmail: o.CustomerEmail,
		CustomerPhone: o.CustomerPhone,
		InvoiceID:     o.InvoiceID,
		InvoiceURL:    o.InvoiceURL,
		Amount:        o.Amount.String(),
		Status:        string(o.Status),
		CreatedAt:     o.CreatedAt,
		UpdatedAt:     o.UpdatedAt,
	}
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("failed to create cod order: %w", err)
	}
	return nil
}

// List returns every order, oldest first.
func (r *MongoCODRepository) List(ctx context.Context) ([]model.CODOrder, error) {
	cur, err := r.coll.Find(ctx, bson.M{}, options.Find().SetSort(sortByID))
	if err != nil {
		return nil, fmt.Errorf("failed to list cod orders: %w", err)
	}
	defer cur.Close(ctx)

	orders := []model.CODOrder{}
	for cur.Next(ctx) {
		var doc codDocument
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode cod order: %w", err)
		}
		o, err := doc.toModel()
		if err != nil {
			return nil, err
		}
		orders = append(orders, *o)
	}
	return orders, cur.Err()
}

// GetByID returns an order by id.
func (r *MongoCODRepository) GetByID(ctx context.Context, id string) (*model.CODOrder, error) {
	var doc codDocument
	err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, model.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get cod order: %w", err)
	}
	return doc.toModel()
}

// UpdateStatus moves the order from one status to another.
func (r *MongoCODRepository) UpdateStatus(ctx context.Context, id string, from, to model.CODStatus) (*model.CODOrder, error) {
	var doc codDocument
	err := r.coll.FindOneAndUpdate(ctx,
		bson.M{"_id": id, "status": from},
		bson.M{"$set": bson.M{"status": to, "updatedAt": time.Now().UTC()}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, transitionMiss(ctx, r.coll, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update cod order: %w", err)
	}
	return doc.toModel()
}

// transitionMiss tells a missing document apart from one in another state.
func transitionMiss(ctx context.Context, coll *mongo.Collection, id string) error {
	n, err := coll.CountDocuments(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to look up %s: %w", id, err)
	}
	if n == 0 {
		return model.ErrNotFound
	}
	return model.ErrInvalidTransition
}

// Ensure MongoCODRepository implements CODRepository
var _ CODRepository = (*MongoCODRepository)(nil)
