// Package httpx holds the JSON envelope shared by every demo endpoint:
//
//	{"success":true,"data":...}
//	{"success":false,"error":{"code":"...","message":"..."}}
package httpx

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/JeanGrijp/csrfguard/csrf"
	"github.com/JeanGrijp/csrfguard/internal/store"
)

// APIError is an error with a status and a machine-readable code.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string { return e.Code + ": " + e.Message }

func NewError(status int, code, msg string) *APIError {
	return &APIError{Status: status, Code: code, Message: msg}
}

var (
	ErrNotFound         = NewError(http.StatusNotFound, "NOT_FOUND", "resource not found")
	ErrMethodNotAllowed = NewError(http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed")
	ErrInvalidJSON      = NewError(http.StatusBadRequest, "INVALID_JSON", "request body is not valid JSON")
	ErrInternal         = NewError(http.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
)

type envelope struct {
	Success bool         `json:"success"`
	Data    any          `json:"data,omitempty"`
	Error   *errorDetail `json:"error,omitempty"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// WriteJSON writes a success envelope around data.
func WriteJSON(w http.ResponseWriter, status int, data any) {
	write(w, status, envelope{Success: true, Data: data})
}

// WriteError writes an error envelope. Errors that are not recognised are
// reported as INTERNAL_ERROR; the caller is responsible for logging them.
func WriteError(w http.ResponseWriter, err error) {
	apiErr := Classify(err)
	write(w, apiErr.Status, envelope{Error: &errorDetail{Code: apiErr.Code, Message: apiErr.Message}})
}

// Classify maps domain errors onto API errors.
func Classify(err error) *APIError {
	var (
		apiErr  *APIError
		csrfErr *csrf.Error
		valErr  *store.ValidationError
	)
	switch {
	case errors.As(err, &apiErr):
		return apiErr
	case errors.As(err, &csrfErr):
		return NewError(csrfErr.Status, csrfErr.Code, csrfErr.Message)
	case errors.As(err, &valErr):
		return NewError(http.StatusBadRequest, "VALIDATION_ERROR", valErr.Error())
	case errors.Is(err, store.ErrNotFound):
		return ErrNotFound
	default:
		return ErrInternal
	}
}

// CSRFErrorHandler plugs the guard's rejections into this envelope.
func CSRFErrorHandler(w http.ResponseWriter, _ *http.Request, err *csrf.Error) {
	WriteError(w, err)
}

func write(w http.ResponseWriter, status int, body envelope) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// DecodeJSON decodes a JSON object body into dst, rejecting unknown trailing data.
func DecodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, 1<<20))
	if err := dec.Decode(dst); err != nil {
		return ErrInvalidJSON
	}
	if dec.More() {
		return ErrInvalidJSON
	}
	return nil
}
