package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"kitstock-api/internal/model"
	"kitstock-api/internal/service"
	"kitstock-api/pkg/response"
)

// ReturnService is the return-ticket behaviour the handlers need.
type ReturnService interface {
	Create(ctx context.Context, in service.CreateReturnInput) (*model.ReturnTicket, error)
	List(ctx context.Context) ([]model.ReturnTicket, error)
	Get(ctx context.Context, id string) (*model.ReturnTicket, error)
	Act(ctx context.Context, id, action string) (*model.ReturnTicket, error)
}

// ReturnHandler handles return ticket requests.
type ReturnHandler struct {
	tickets ReturnService
}

// NewReturnHandler creates a return handler.
func NewReturnHandler(tickets ReturnService) *ReturnHandler {
	return &ReturnHandler{tickets: tickets}
}

// CreateReturnRequest is the body of POST /returnservice.
type CreateReturnRequest struct {
	OrderID       string `json:"orderId" validate:"required"`
	CustomerName  string `json:"customerName" validate:"required"`
	CustomerEmail string `json:"customerEmail" validate:"required,email"`
	CustomerPhone string `json:"customerPhone"`
	TicketType    string `json:"ticketType" validate:"required,oneof=Refund Replacement"`
	Reason        string `json:"reason"`
}

// ActionRequest is the body of PUT /returnservice/{id}/action.
type ActionRequest struct {
	Action string `json:"action" validate:"required"`
}

// Create handles POST /returnservice
func (h *ReturnHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateReturnRequest
	if apiErr := decodeAndValidate(w, r, &req); apiErr != nil {
		response.Error(w, apiErr)
		return
	}

	ticket, err := h.tickets.Create(r.Context(), service.CreateReturnInput{
		OrderID:       req.OrderID,
		CustomerName:  req.CustomerName,
		CustomerEmail: req.CustomerEmail,
		CustomerPhone: req.CustomerPhone,
		TicketType:    model.TicketType(req.TicketType),
		Reason:        req.Reason,
	})
	if err != nil {
		respondError(w, r, err)
		return
	}
	response.Created(w, ticket)
}

// List handles GET /returnservice
func (h *ReturnHandler) List(w http.ResponseWriter, r *http.Request) {
	tickets, err := h.tickets.List(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}
	response.List(w, tickets)
}

// Get handles GET /returnservice/{id}
func (h *ReturnHandler) Get(w http.ResponseWriter, r *http.Request) {
	ticket, err := h.tickets.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	response.OK(w, ticket)
}

// Act handles PUT /returnservice/{id}/action
func (h *ReturnHandler) Act(w http.ResponseWriter, r *http.Request) {
	var req ActionRequest
	if apiErr := decodeAndValidate(w, r, &req); apiErr != nil {
		response.Error(w, apiErr)
		return
	}

	ticket, err := h.tickets.Act(r.Context(), chi.URLParam(r, "id"), req.Action)
	if err != nil {
		respondError(w, r, err)
		return
	}
	response.OK(w, ticket)
}
