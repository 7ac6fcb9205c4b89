package model

import "errors"

// Domain errors returned by services and repositories. The HTTP layer maps
// them to status codes in pkg/apierror.
var (
	ErrNotFound              = errors.New("resource not found")
	ErrInvalidInput          = errors.New("invalid input")
	ErrInsufficientInventory = errors.New("not enough available kits")
	ErrNotAvailable          = errors.New("only available kits can be deleted")
	ErrNotSold               = errors.New("all kits must be sold to make them available")
	ErrInvalidTransition     = errors.New("invalid status transition")
	ErrInvalidCredentials    = errors.New("invalid credentials")
	ErrDuplicate             = errors.New("resource already exists")
	ErrConflict              = errors.New("resource was modified concurrently")
	ErrUpstream              = errors.New("upstream service failed")
)
