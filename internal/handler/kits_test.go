package handler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"kitstock-api/internal/model"
	"kitstock-api/internal/service"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Meta    *struct {
		Count int `json:"count"`
	} `json:"meta"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
		Details []struct {
			Field   string `json:"field"`
			Message string `json:"message"`
		} `json:"details"`
	} `json:"error"`
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return env
}

func kitRouter(svc KitService) http.Handler {
	h := NewKitHandler(svc, 1<<20)
	r := chi.NewRouter()
	r.Get("/kits", h.List)
	r.Get("/kits/available", h.ListAvailable)
	r.Post("/kits/sell", h.Sell)
	r.Post("/kits/addDummy", h.AddDummy)
	r.Post("/kits/upload", h.Upload)
	r.Delete("/kits/{id}", h.Delete)
	r.Post("/kits/delete-multiple", h.DeleteMany)
	r.Post("/kits/make-available", h.MakeAvailable)
	return r
}

func do(h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestKitHandler_ListEmptyIsArray(t *testing.T) {
	svc := new(MockKitService)
	svc.On("List", mock.Anything).Return(nil, nil)

	rec := do(kitRouter(svc), http.MethodGet, "/kits", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.True(t, env.Success)
	assert.JSONEq(t, `[]`, string(env.Data))
}

func TestKitHandler_ListAvailableQuantity(t *testing.T) {
	tests := []struct {
		query string
		want  int
	}{
		{"", 1},
		{"?quantity=3", 3},
		{"?quantity=abc", 1},
		{"?quantity=0", 0},
		{"?quantity=99999999999999999999", math.MaxInt},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			svc := new(MockKitService)
			svc.On("ListAvailable", mock.Anything, tt.want).Return([]model.Kit{{ID: "k1"}}, nil).Once()

			rec := do(kitRouter(svc), http.MethodGet, "/kits/available"+tt.query, "")
			assert.Equal(t, http.StatusOK, rec.Code)
			svc.AssertExpectations(t)
		})
	}
}

func TestKitHandler_ListAvailableInsufficient(t *testing.T) {
	svc := new(MockKitService)
	svc.On("ListAvailable", mock.Anything, 9).
		Return(nil, fmt.Errorf("%w: requested 9, available 4", model.ErrInsufficientInventory))

	rec := do(kitRouter(svc), http.MethodGet, "/kits/available?quantity=9", "")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.False(t, env.Success)
	assert.Equal(t, "INSUFFICIENT_INVENTORY", env.Error.Code)
}

func TestKitHandler_ListAvailableRejectsNonPositive(t *testing.T) {
	svc := new(MockKitService)
	svc.On("ListAvailable", mock.Anything, -2).
		Return(nil, fmt.Errorf("%w: quantity must be at least 1", model.ErrInvalidInput))

	rec := do(kitRouter(svc), http.MethodGet, "/kits/available?quantity=-2", "")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.Equal(t, "BAD_REQUEST", env.Error.Code)
	assert.Equal(t, "quantity must be at least 1", env.Error.Message)
}

func TestKitHandler_Sell(t *testing.T) {
	svc := new(MockKitService)
	sold := &model.Kit{ID: "k1", Status: model.KitSold, OrderID: "ORD-1", SerialNumbers: model.StringList{"SN001"}}
	svc.On("Sell", mock.Anything, service.SellInput{OrderID: "ORD-1", InvoiceID: "INV-1", InvoiceURL: "u", Quantity: 2}).
		Return(sold, nil).Once()

	rec := do(kitRouter(svc), http.MethodPost, "/kits/sell",
		`{"orderId":"ORD-1","invoiceId":"INV-1","invoiceUrl":"u","quantity":"2"}`)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var got model.Kit
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rec).Data, &got))
	assert.Equal(t, "ORD-1", got.OrderID)
	svc.AssertExpectations(t)
}

func TestKitHandler_SellDefaultsQuantity(t *testing.T) {
	svc := new(MockKitService)
	svc.On("Sell", mock.Anything, service.SellInput{OrderID: "ORD-1", Quantity: 1}).
		Return(&model.Kit{ID: "k1"}, nil).Once()

	rec := do(kitRouter(svc), http.MethodPost, "/kits/sell", `{"orderId":"ORD-1"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	svc.AssertExpectations(t)
}

func TestKitHandler_SellValidation(t *testing.T) {
	svc := new(MockKitService)
	router := kitRouter(svc)

	rec := do(router, http.MethodPost, "/kits/sell", `{"quantity":1}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)
	require.Len(t, env.Error.Details, 1)
	assert.Equal(t, "orderId", env.Error.Details[0].Field)

	rec = do(router, http.MethodPost, "/kits/sell", `{"orderId":"O","quantity":-1}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(router, http.MethodPost, "/kits/sell", `not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	svc.AssertNotCalled(t, "Sell", mock.Anything, mock.Anything)
}

func TestQuantity_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		raw  string
		want int
	}{
		{`3`, 3},
		{`"4"`, 4},
		{`"abc"`, 1},
		{`2.9`, 2},
		{`-1`, -1},
		{`1e300`, math.MaxInt},
		{`-1e300`, math.MinInt},
		{`9223372036854775808`, math.MaxInt},
		{`"99999999999999999999"`, math.MaxInt},
		{`true`, 1},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			var q Quantity
			require.NoError(t, json.Unmarshal([]byte(tt.raw), &q))
			assert.Equal(t, tt.want, int(q))
		})
	}
}

func TestKitHandler_SellHugeQuantityRejected(t *testing.T) {
	svc := new(MockKitService)
	svc.On("Sell", mock.Anything, service.SellInput{OrderID: "ORD-1", Quantity: math.MaxInt}).
		Return(nil, fmt.Errorf("%w: quantity %d is too large", model.ErrInvalidInput, math.MaxInt)).Once()

	rec := do(kitRouter(svc), http.MethodPost, "/kits/sell", `{"orderId":"ORD-1","quantity":1e300}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "BAD_REQUEST", decodeEnvelope(t, rec).Error.Code)
	svc.AssertExpectations(t)
}

func TestKitHandler_Delete(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"deleted", nil, http.StatusOK, ""},
		{"unknown", model.ErrNotFound, http.StatusNotFound, "NOT_FOUND"},
		{"sold", model.ErrNotAvailable, http.StatusBadRequest, "NOT_AVAILABLE"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockKitService)
			svc.On("Delete", mock.Anything, "k1").Return(tt.err)

			rec := do(kitRouter(svc), http.MethodDelete, "/kits/k1", "")
			assert.Equal(t, tt.status, rec.Code)
			if tt.code != "" {
				assert.Equal(t, tt.code, decodeEnvelope(t, rec).Error.Code)
			}
		})
	}
}

func TestKitHandler_DeleteMany(t *testing.T) {
	svc := new(MockKitService)
	svc.On("DeleteMany", mock.Anything, []string{"a", "b"}).
		Return(&service.DeleteResult{Deleted: []string{"a"}, Skipped: []string{"b"}}, nil)
	router := kitRouter(svc)

	rec := do(router, http.MethodPost, "/kits/delete-multiple", `{"ids":["a","b"]}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"deleted":["a"],"skipped":["b"]}`, string(decodeEnvelope(t, rec).Data))

	rec = do(router, http.MethodPost, "/kits/delete-multiple", `{"ids":[]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(router, http.MethodPost, "/kits/delete-multiple", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestKitHandler_MakeAvailableNotSold(t *testing.T) {
	svc := new(MockKitService)
	svc.On("MakeAvailable", mock.Anything, []string{"a"}).Return(nil, model.ErrNotSold)

	rec := do(kitRouter(svc), http.MethodPost, "/kits/make-available", `{"ids":["a"]}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "NOT_SOLD", decodeEnvelope(t, rec).Error.Code)
}

func TestKitHandler_Upload(t *testing.T) {
	svc := new(MockKitService)
	csv := "serialNumber,batchNumber\nSN9,B9\n"
	svc.On("Import", mock.Anything, csv).Return([]model.Kit{{ID: "k9"}}, nil).Once()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", "kits.csv")
	require.NoError(t, err)
	_, _ = part.Write([]byte(csv))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/kits/upload", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	kitRouter(svc).ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Contains(t, string(decodeEnvelope(t, rec).Data), `"count":1`)
	svc.AssertExpectations(t)
}

func TestKitHandler_UploadMissingFile(t *testing.T) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	require.NoError(t, mw.WriteField("other", "x"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/kits/upload", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	kitRouter(new(MockKitService)).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestKitHandler_InternalErrorHidesDetail(t *testing.T) {
	svc := new(MockKitService)
	svc.On("AddDummy", mock.Anything).Return(nil, fmt.Errorf("dial tcp: secret-host refused"))

	rec := do(kitRouter(svc), http.MethodPost, "/kits/addDummy", "")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "secret-host")
}
