package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"kitstock-api/internal/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoReturnRepository implements ReturnRepository using MongoDB.
type MongoReturnRepository struct {
	coll *mongo.Collection
}

// NewMongoReturnRepository creates a new MongoDB return ticket repository.
func NewMongoReturnRepository(coll *mongo.Collection) *MongoReturnRepository {
	return &MongoReturnRepository{coll: coll}
}

type returnDocument struct {
	ID            string    `bson:"_id"`
	OrderID       string    `bson:"orderId"`
	CustomerName  string    `bson:"customerName"`
	CustomerEmail string    `bson:"customerEmail"`
	CustomerPhone string    `bson:"customerPhone"`
	TicketType    string    `bson:"ticketType"`
	Reason        string    `bson:"reason,omitempty"`
	Status        string    `bson:"status"`
	CreatedAt     time.Time `bson:"createdAt"`
	UpdatedAt     time.Time `bson:"updatedAt"`
}

func (d *returnDocument) toModel() *model.ReturnTicket {
	return &model.ReturnTicket{
		ID:            d.ID,
		OrderID:       d.OrderID,
		CustomerName:  d.CustomerName,
		CustomerEmail: d.CustomerEmail,
		CustomerPhone: d.CustomerPhone,
		TicketType:    model.TicketType(d.TicketType),
		Reason:        d.Reason,
		Status:        model.ReturnStatus(d.Status),
		CreatedAt:     d.CreatedAt,
		UpdatedAt:     d.UpdatedAt,
	}
}

// Create stores a new ticket.
func (r *MongoReturnRepository) Create(ctx context.Context, t *model.ReturnTicket) error {
	doc := returnDocument{
		ID:            t.ID,
		OrderID:       t.OrderID,
		CustomerName:  t.CustomerName,
		CustomerEmail: t.CustomerEmail,
		CustomerPhone: t.CustomerPhone,
		TicketType:    string(t.TicketType),
		Reason:        t.Reason,
		Status:        string(t.Status),
		CreatedAt:     t.CreatedAt,
		UpdatedAt:     t.UpdatedAt,
	}
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("failed to create return ticket: %w", err)
	}
	return nil
}

// List returns every ticket, oldest first.
func (r *MongoReturnRepository) List(ctx context.Context) ([]model.ReturnTicket, error) {
	cur, err := r.coll.Find(ctx, bson.M{}, options.Find().SetSort(sortByID))
	if err != nil {
		return nil, fmt.Errorf("failed to list return tickets: %w", err)
	}
	defer cur.Close(ctx)

	tickets := []model.ReturnTicket{}
	for cur.Next(ctx) {
		var doc returnDocument
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode return ticket: %w", err)
		}
		tickets = append(tickets, *doc.toModel())
	}
	return tickets, cur.Err()
}

// GetByID returns a ticket by id.
func (r *MongoReturnRepository) GetByID(ctx context.Context, id string) (*model.ReturnTicket, error) {
	var doc returnDocument
	err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, model.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get return ticket: %w", err)
	}
	return doc.toModel(), nil
}

// UpdateStatus moves the ticket from one status to another.
func (r *MongoReturnRepository) UpdateStatus(ctx context.Context, id string, from, to model.ReturnStatus) (*model.ReturnTicket, error) {
	var doc returnDocument
	err := r.coll.FindOneAndUpdate(ctx,
		bson.M{"_id": id, "status": from},
		bson.M{"$set": bson.M{"status": to, "updatedAt": time.Now().UTC()}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, transitionMiss(ctx, r.coll, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update return ticket: %w", err)
	}
	return doc.toModel(), nil
}

// Ensure MongoReturnRepository implements ReturnRepository
var _ ReturnRepository = (*MongoReturnRepository)(nil)
