package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"kitstock-api/internal/events"
	"kitstock-api/internal/integration"
	"kitstock-api/internal/model"
	"kitstock-api/internal/repository"
	"kitstock-api/pkg/uid"
)

// Billing records payments on the invoicing platform.
type Billing interface {
	MarkInvoicePaid(ctx context.Context, invoiceID string, amount decimal.Decimal) error
}

// Storefront cancels orders on the storefront platform.
type Storefront interface {
	CancelOrder(ctx context.Context, orderID string) error
}

// Messenger sends customer campaign messages.
type Messenger interface {
	SendCampaign(ctx context.Context, campaign string, to integration.Recipient, params map[string]string) error
}

// CODIntegrations bundles the outbound clients used by COD transitions. A
// nil client disables its side effect.
type CODIntegrations struct {
	Billing         Billing
	Storefront      Storefront
	Messenger       Messenger
	ConfirmCampaign string
	CancelCampaign  string
}

// CreateCODInput carries the fields of a new COD order.
type CreateCODInput struct {
	OrderID       string
	OrderNo       string
	CustomerName  string
	CustomerEmail string
	CustomerPhone string
	InvoiceID     string
	InvoiceURL    string
	Amount        decimal.Decimal
}

// CODService manages cash-on-delivery order confirmation and cancellation.
type CODService struct {
	orders repository.CODRepository
	kits   repository.KitRepository
	ext    CODIntegrations
	events events.Publisher
}

// NewCODService creates a COD service.
func NewCODService(orders repository.CODRepository, kits repository.KitRepository, ext CODIntegrations, publisher events.Publisher) *CODService {
	if publisher == nil {
		publisher = events.Nop{}
	}
	return &CODService{orders: orders, kits: kits, ext: ext, events: publisher}
}

// Create stores a new order awaiting confirmation and returns it with the
// kits already sold under its orderId.
func (s *CODService) Create(ctx context.Context, in CreateCODInput) (*model.CODWithKits, error) {
	if in.OrderID == "" {
		return nil, fmt.Errorf("%w: orderId is required", model.ErrInvalidInput)
	}

	now := time.Now().UTC()
	order := &model.CODOrder{
		ID:            uid.New(),
		OrderID:       in.OrderID,
		OrderNo:       in.OrderNo,
		CustomerName:  in.CustomerName,
		CustomerEmail: in.CustomerEmail,
		CustomerPhone: in.CustomerPhone,
		InvoiceID:     in.InvoiceID,
		InvoiceURL:    in.InvoiceURL,
		Amount:        in.Amount,
		Status:        model.CODAwaitingConfirmation,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.orders.Create(ctx, order); err != nil {
		return nil, err
	}

	kits, err := s.kits.ListByOrder(ctx, order.OrderID)
	if err != nil {
		return nil, err
	}
	if kits == nil {
		kits = []model.Kit{}
	}

	s.events.Publish(ctx, events.CODCreated, order.OrderID, order)
	return &model.CODWithKits{Order: order, Kits: kits}, nil
}

// List returns every COD order.
func (s *CODService) List(ctx context.Context) ([]model.CODOrder, error) {
	return s.orders.List(ctx)
}

// Get returns one COD order.
func (s *CODService) Get(ctx context.Context, id string) (*model.CODOrder, error) {
	return s.orders.GetByID(ctx, id)
}

// Confirm moves an order to Confirmed, then records the payment and
// notifies the customer. Notification failures are logged only.
func (s *CODService) Confirm(ctx context.Context, id string) (*model.CODOrder, error) {
	order, err := s.awaiting(ctx, id)
	if err != nil {
		return nil, err
	}

	updated, err := s.orders.UpdateStatus(ctx, order.ID, model.CODAwaitingConfirmation, model.CODConfirmed)
	if err != nil {
		return nil, err
	}

	logger := log.With().Str("cod_id", updated.ID).Str("order_id", updated.OrderID).Logger()

	if s.ext.Billing != nil && updated.InvoiceID != "" {
		if err := s.ext.Billing.MarkInvoicePaid(ctx, updated.InvoiceID, updated.Amount); err != nil {
			logger.Error().Err(err).Str("invoice_id", updated.InvoiceID).Msg("Failed to record COD payment")
		}
	}
	s.notify(ctx, s.ext.ConfirmCampaign, updated)

	logger.Info().Msg("COD order confirmed")
	s.events.Publish(ctx, events.CODConfirmed, updated.OrderID, updated)
	return updated, nil
}

// Cancel cancels the order on the storefront and, only when that succeeds,
// moves it to Cancelled locally.
func (s *CODService) Cancel(ctx context.Context, id string) (*model.CODOrder, error) {
	order, err := s.awaiting(ctx, id)
	if err != nil {
		return nil, err
	}

	logger := log.With().Str("cod_id", order.ID).Str("order_id", order.OrderID).Logger()

	if s.ext.Storefront != nil {
		if err := s.ext.Storefront.CancelOrder(ctx, order.OrderID); err != nil {
			logger.Error().Err(err).Msg("Storefront rejected cancellation")
			return nil, fmt.Errorf("%w: storefront cancellation of order %s: %w", model.ErrUpstream, order.OrderID, err)
		}
	} else {
		logger.Warn().Msg("Storefront not configured, cancelling locally only")
	}

	updated, err := s.orders.UpdateStatus(ctx, order.ID, model.CODAwaitingConfirmation, model.CODCancelled)
	if err != nil {
		logger.Error().Err(err).Msg("Order cancelled on storefront but local update failed")
		return nil, err
	}

	s.notify(ctx, s.ext.CancelCampaign, updated)

	logger.Info().Msg("COD order cancelled")
	s.events.Publish(ctx, events.CODCancelled, updated.OrderID, updated)
	return updated, nil
}

func (s *CODService) awaiting(ctx context.Context, id string) (*model.CODOrder, error) {
	order, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if order.Status != model.CODAwaitingConfirmation {
		return nil, fmt.Errorf("%w: order is %s", model.ErrInvalidTransition, order.Status)
	}
	return order, nil
}

func (s *CODService) notify(ctx context.Context, campaign string, order *model.CODOrder) {
	if s.ext.Messenger == nil || campaign == "" {
		return
	}
	to := integration.Recipient{Name: order.CustomerName, Email: order.CustomerEmail, Phone: order.CustomerPhone}
	params := map[string]string{
		"orderId": order.OrderID,
		"orderNo": order.OrderNo,
		"amount":  order.Amount.StringFixed(2),
	}
	if err := s.ext.Messenger.SendCampaign(ctx, campaign, to, params); err != nil {
		log.Error().Err(err).
			Str("order_id", order.OrderID).
			Str("campaign", campaign).
			Msg("Failed to send customer message")
	}
}
