package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"kitstock-api/internal/middleware"
	"kitstock-api/internal/model"
	"kitstock-api/pkg/apierror"
	"kitstock-api/pkg/response"
)

// maxJSONBody caps JSON request bodies.
const maxJSONBody = 1 << 20

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// decodeAndValidate reads a JSON body into dst and validates it.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, dst any) *apierror.Error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return apierror.BadRequest("Invalid request body")
	}
	return validateStruct(dst)
}

func validateStruct(v any) *apierror.Error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apierror.BadRequest(err.Error())
	}

	details := make([]apierror.FieldError, 0, len(verrs))
	for _, fe := range verrs {
		details = append(details, apierror.FieldError{
			Field:   fe.Field(),
			Message: fieldMessage(fe),
		})
	}
	return apierror.ValidationError("Validation failed", details...)
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "oneof":
		return "must be one of: " + fe.Param()
	case "min":
		return "must be at least " + fe.Param()
	case "gt":
		return "must be greater than " + fe.Param()
	case "gte":
		return "must be at least " + fe.Param()
	}
	return fmt.Sprintf("failed %s validation", fe.Tag())
}

// respondError maps service errors onto API errors.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	var apiErr *apierror.Error
	switch {
	case errors.As(err, &apiErr):
	case errors.Is(err, model.ErrInvalidInput):
		apiErr = apierror.BadRequest(detail(err, model.ErrInvalidInput))
	case errors.Is(err, model.ErrNotFound):
		apiErr = apierror.NotFound("")
	case errors.Is(err, model.ErrInsufficientInventory):
		apiErr = apierror.InsufficientInventory(err.Error())
	case errors.Is(err, model.ErrNotAvailable):
		apiErr = apierror.InvalidState("NOT_AVAILABLE", model.ErrNotAvailable.Error())
	case errors.Is(err, model.ErrNotSold):
		apiErr = apierror.InvalidState("NOT_SOLD", model.ErrNotSold.Error())
	case errors.Is(err, model.ErrInvalidTransition):
		apiErr = apierror.InvalidState("INVALID_TRANSITION", err.Error())
	case errors.Is(err, model.ErrInvalidCredentials):
		apiErr = apierror.InvalidState("INVALID_CREDENTIALS", "Invalid username or password")
	case errors.Is(err, model.ErrDuplicate):
		apiErr = apierror.Conflict(model.ErrDuplicate.Error())
	case errors.Is(err, model.ErrConflict):
		apiErr = apierror.Conflict("Inventory changed concurrently, please retry")
	case errors.Is(err, model.ErrUpstream):
		apiErr = apierror.BadGateway(err.Error())
	default:
		apiErr = apierror.InternalError("")
	}

	if apiErr.StatusCode >= http.StatusInternalServerError {
		middleware.Logger(r.Context()).Error().Err(err).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Msg("Request failed")
	}
	response.Error(w, apiErr)
}

// detail strips the sentinel prefix from a wrapped error message.
func detail(err, sentinel error) string {
	msg := strings.TrimPrefix(err.Error(), sentinel.Error()+": ")
	if msg == "" {
		return sentinel.Error()
	}
	return msg
}

// parseQuantity reads a quantity permissively: absent or non-numeric
// values count as 1.
// Out-of-range numbers saturate so the service can reject them.
func parseQuantity(raw string) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if errors.Is(err, strconv.ErrRange) {
		return n
	}
	if err != nil {
		return 1
	}
	return n
}

// clampQuantity truncates f toward zero, saturating at the int range.
func clampQuantity(f float64) int {
	switch {
	case math.IsNaN(f):
		return 1
	case f >= math.MaxInt:
		return math.MaxInt
	case f <= math.MinInt:
		return math.MinInt
	}
	return int(f)
}

// Quantity accepts a JSON number or numeric string. Non-numeric strings
// decode as 1.
type Quantity int

// UnmarshalJSON implements json.Unmarshaler.
func (q *Quantity) UnmarshalJSON(b []byte) error {
	var n json.Number
	if err := json.Unmarshal(b, &n); err == nil {
		if i, err := strconv.Atoi(n.String()); err == nil {
			*q = Quantity(i)
			return nil
		}
		if f, err := n.Float64(); err == nil || errors.Is(err, strconv.ErrRange) {
			*q = Quantity(clampQuantity(f))
			return nil
		}
	}
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*q = Quantity(parseQuantity(s))
		return nil
	}
	*q = 1
	return nil
}
