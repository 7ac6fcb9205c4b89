package handler

import (
	"context"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"kitstock-api/internal/middleware"
	"kitstock-api/internal/model"
	"kitstock-api/internal/service"
	"kitstock-api/pkg/apierror"
	"kitstock-api/pkg/response"
)

// KitService is the inventory behaviour the kit handlers need.
type KitService interface {
	List(ctx context.Context) ([]model.Kit, error)
	ListAvailable(ctx context.Context, quantity int) ([]model.Kit, error)
	Sell(ctx context.Context, in service.SellInput) (*model.Kit, error)
	AddDummy(ctx context.Context) ([]model.Kit, error)
	Import(ctx context.Context, r io.Reader) ([]model.Kit, error)
	Delete(ctx context.Context, id string) error
	DeleteMany(ctx context.Context, ids []string) (*service.DeleteResult, error)
	MakeAvailable(ctx context.Context, ids []string) ([]model.Kit, error)
	Stats(ctx context.Context) (model.KitCounts, error)
}

// KitHandler handles kit inventory requests.
type KitHandler struct {
	kits           KitService
	maxUploadBytes int64
}

// NewKitHandler creates a kit handler. Uploads larger than maxUploadBytes
// are rejected.
func NewKitHandler(kits KitService, maxUploadBytes int64) *KitHandler {
	if maxUploadBytes <= 0 {
		maxUploadBytes = 10 << 20
	}
	return &KitHandler{kits: kits, maxUploadBytes: maxUploadBytes}
}

// SellRequest is the body of POST /kits/sell.
type SellRequest struct {
	OrderID    string    `json:"orderId" validate:"required"`
	InvoiceURL string    `json:"invoiceUrl"`
	InvoiceID  string    `json:"invoiceId"`
	Quantity   *Quantity `json:"quantity"`
}

// IDsRequest carries a list of kit ids.
type IDsRequest struct {
	IDs []string `json:"ids" validate:"required,min=1,dive,required"`
}

// List handles GET /kits
func (h *KitHandler) List(w http.ResponseWriter, r *http.Request) {
	kits, err := h.kits.List(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}
	response.List(w, kits)
}

// ListAvailable handles GET /kits/available?quantity=N
func (h *KitHandler) ListAvailable(w http.ResponseWriter, r *http.Request) {
	quantity := 1
	if raw := r.URL.Query().Get("quantity"); raw != "" {
		quantity = parseQuantity(raw)
	}

	kits, err := h.kits.ListAvailable(r.Context(), quantity)
	if err != nil {
		respondError(w, r, err)
		return
	}
	response.List(w, kits)
}

// Sell handles POST /kits/sell
func (h *KitHandler) Sell(w http.ResponseWriter, r *http.Request) {
	var req SellRequest
	if apiErr := decodeAndValidate(w, r, &req); apiErr != nil {
		response.Error(w, apiErr)
		return
	}

	quantity := 1
	if req.Quantity != nil {
		quantity = int(*req.Quantity)
		if quantity < 1 {
			response.Error(w, apierror.ValidationError("Validation failed",
				apierror.FieldError{Field: "quantity", Message: "must be at least 1"}))
			return
		}
	}

	kit, err := h.kits.Sell(r.Context(), service.SellInput{
		OrderID:    req.OrderID,
		InvoiceURL: req.InvoiceURL,
		InvoiceID:  req.InvoiceID,
		Quantity:   quantity,
	})
	if err != nil {
		respondError(w, r, err)
		return
	}
	response.OK(w, kit)
}

// AddDummy handles POST /kits/addDummy
func (h *KitHandler) AddDummy(w http.ResponseWriter, r *http.Request) {
	kits, err := h.kits.AddDummy(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}
	response.Created(w, kits)
}

// Upload handles POST /kits/upload. The CSV is parsed from memory and
// discarded afterwards.
func (h *KitHandler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
		response.Error(w, apierror.BadRequest("Expected a multipart upload within the size limit"))
		return
	}
	defer func() {
		if err := r.MultipartForm.RemoveAll(); err != nil {
			middleware.Logger(r.Context()).Warn().Err(err).Msg("Failed to discard upload")
		}
	}()

	file, header, err := r.FormFile("file")
	if err != nil {
		response.Error(w, apierror.ValidationError("Validation failed",
			apierror.FieldError{Field: "file", Message: "is required"}))
		return
	}
	defer file.Close()

	kits, err := h.kits.Import(r.Context(), file)
	if err != nil {
		respondError(w, r, err)
		return
	}

	middleware.Logger(r.Context()).Info().Str("filename", header.Filename).Int64("size", header.Size).Int("kits", len(kits)).Msg("CSV imported")
	response.Created(w, map[string]any{
		"message": "Kits imported successfully",
		"count":   len(kits),
		"kits":    kits,
	})
}

// Delete handles DELETE /kits/{id}
func (h *KitHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.kits.Delete(r.Context(), id); err != nil {
		respondError(w, r, err)
		return
	}
	response.OK(w, map[string]string{
		"message": "Kit deleted successfully",
		"id":      id,
	})
}

// DeleteMany handles POST /kits/delete-multiple
func (h *KitHandler) DeleteMany(w http.ResponseWriter, r *http.Request) {
	var req IDsRequest
	if apiErr := decodeAndValidate(w, r, &req); apiErr != nil {
		response.Error(w, apiErr)
		return
	}

	result, err := h.kits.DeleteMany(r.Context(), req.IDs)
	if err != nil {
		respondError(w, r, err)
		return
	}
	response.OK(w, result)
}

// MakeAvailable handles POST /kits/make-available
func (h *KitHandler) MakeAvailable(w http.ResponseWriter, r *http.Request) {
	var req IDsRequest
	if apiErr := decodeAndValidate(w, r, &req); apiErr != nil {
		response.Error(w, apiErr)
		return
	}

	kits, err := h.kits.MakeAvailable(r.Context(), req.IDs)
	if err != nil {
		respondError(w, r, err)
		return
	}
	response.List(w, kits)
}
