package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"kitstock-api/internal/events"
	"kitstock-api/internal/model"
	"kitstock-api/internal/repository"
	"kitstock-api/pkg/uid"
)

// CreateReturnInput carries the fields of a new return ticket.
type CreateReturnInput struct {
	OrderID       string
	CustomerName  string
	CustomerEmail string
	CustomerPhone string
	TicketType    model.TicketType
	Reason        string
}

// ReturnService manages return tickets.
type ReturnService struct {
	tickets repository.ReturnRepository
	events  events.Publisher
}

// NewReturnService creates a return service.
func NewReturnService(tickets repository.ReturnRepository, publisher events.Publisher) *ReturnService {
	if publisher == nil {
		publisher = events.Nop{}
	}
	return &ReturnService{tickets: tickets, events: publisher}
}

// Create opens a ticket in AwaitingReturn.
func (s *ReturnService) Create(ctx context.Context, in CreateReturnInput) (*model.ReturnTicket, error) {
	switch in.TicketType {
	case model.TicketRefund, model.TicketReplacement:
	default:
		return nil, fmt.Errorf("%w: ticketType must be Refund or Replacement", model.ErrInvalidInput)
	}

	now := time.Now().UTC()
	ticket := &model.ReturnTicket{
		ID:            uid.New(),
		OrderID:       in.OrderID,
		CustomerName:  in.CustomerName,
		CustomerEmail: in.CustomerEmail,
		CustomerPhone: in.CustomerPhone,
		TicketType:    in.TicketType,
		Reason:        in.Reason,
		Status:        model.ReturnAwaiting,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, err
	}

	s.events.Publish(ctx, events.ReturnCreated, ticket.OrderID, ticket)
	return ticket, nil
}

// List returns every ticket.
func (s *ReturnService) List(ctx context.Context) ([]model.ReturnTicket, error) {
	return s.tickets.List(ctx)
}

// Get returns one ticket.
func (s *ReturnService) Get(ctx context.Context, id string) (*model.ReturnTicket, error) {
	return s.tickets.GetByID(ctx, id)
}

// Act applies a named action to a ticket. Illegal actions leave it
// unchanged.
func (s *ReturnService) Act(ctx context.Context, id, action string) (*model.ReturnTicket, error) {
	act, ok := model.ParseReturnAction(action)
	if !ok {
		return nil, fmt.Errorf("%w: unknown action %q", model.ErrInvalidTransition, action)
	}

	ticket, err := s.tickets.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	next, err := ticket.Next(act)
	if err != nil {
		return nil, fmt.Errorf("%w: cannot %s a %s ticket in %s", err, act, ticket.TicketType, ticket.Status)
	}

	updated, err := s.tickets.UpdateStatus(ctx, ticket.ID, ticket.Status, next)
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("ticket_id", updated.ID).
		Str("from", string(ticket.Status)).
		Str("to", string(updated.Status)).
		Msg("Return ticket updated")

	s.events.Publish(ctx, events.ReturnStatusChanged, updated.OrderID, map[string]any{
		"ticketId": updated.ID,
		"from":     ticket.Status,
		"to":       updated.Status,
	})
	return updated, nil
}
