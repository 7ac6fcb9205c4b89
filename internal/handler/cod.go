package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"kitstock-api/internal/model"
	"kitstock-api/internal/service"
	"kitstock-api/pkg/response"
)

// CODService is the COD behaviour the handlers need.
type CODService interface {
	Create(ctx context.Context, in service.CreateCODInput) (*model.CODWithKits, error)
	List(ctx context.Context) ([]model.CODOrder, error)
	Get(ctx context.Context, id string) (*model.CODOrder, error)
	Confirm(ctx context.Context, id string) (*model.CODOrder, error)
	Cancel(ctx context.Context, id string) (*model.CODOrder, error)
}

// CODHandler handles cash-on-delivery requests.
type CODHandler struct {
	orders CODService
}

// NewCODHandler creates a COD handler.
func NewCODHandler(orders CODService) *CODHandler {
	return &CODHandler{orders: orders}
}

// CreateCODRequest is the body of POST /cod.
type CreateCODRequest struct {
	OrderID       string          `json:"orderId" validate:"required"`
	OrderNo       string          `json:"orderNo"`
	CustomerName  string          `json:"customerName"`
	CustomerEmail string          `json:"customerEmail" validate:"omitempty,email"`
	CustomerPhone string          `json:"customerPhone"`
	InvoiceID     string          `json:"invoiceId"`
	InvoiceURL    string          `json:"invoiceUrl"`
	Amount        decimal.Decimal `json:"amount"`
}

// Create handles POST /cod
func (h *CODHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateCODRequest
	if apiErr := decodeAndValidate(w, r, &req); apiErr != nil {
		response.Error(w, apiErr)
		return
	}

	created, err := h.orders.Create(r.Context(), service.CreateCODInput{
		OrderID:       req.OrderID,
		OrderNo:       req.OrderNo,
		CustomerName:  req.CustomerName,
		CustomerEmail: req.CustomerEmail,
		CustomerPhone: req.CustomerPhone,
		InvoiceID:     req.InvoiceID,
		InvoiceURL:    req.InvoiceURL,
		Amount:        req.Amount,
	})
	if err != nil {
		respondError(w, r, err)
		return
	}
	response.Created(w, created)
}

// List handles GET /cod
func (h *CODHandler) List(w http.ResponseWriter, r *http.Request) {
	orders, err := h.orders.List(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}
	response.List(w, orders)
}

// Get handles GET /cod/{id}
func (h *CODHandler) Get(w http.ResponseWriter, r *http.Request) {
	order, err := h.orders.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	response.OK(w, order)
}

// Confirm handles PUT /cod/confirm/{id}
func (h *CODHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	order, err := h.orders.Confirm(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	response.OK(w, order)
}

// Cancel handles PUT /cod/cancel/{id}
func (h *CODHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	order, err := h.orders.Cancel(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	response.OK(w, order)
}
