package handler

import (
	"context"
	"net/http"

	"kitstock-api/internal/service"
	"kitstock-api/pkg/response"
)

// Authenticator verifies credentials and issues tokens.
type Authenticator interface {
	Login(ctx context.Context, username, password string) (*service.LoginResult, error)
}

// AuthHandler handles authentication requests.
type AuthHandler struct {
	auth Authenticator
}

// NewAuthHandler creates a new auth handler.
func NewAuthHandler(auth Authenticator) *AuthHandler {
	return &AuthHandler{auth: auth}
}

// LoginRequest is the body of POST /login.
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// Login handles POST /login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if apiErr := decodeAndValidate(w, r, &req); apiErr != nil {
		response.Error(w, apiErr)
		return
	}

	result, err := h.auth.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		respondError(w, r, err)
		return
	}
	response.OK(w, result)
}
