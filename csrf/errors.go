package csrf

import (
	"encoding/json"
	"net/http"
)

// Machine-readable rejection codes.
const (
	CodeTokenMissing = "CSRF_TOKEN_MISSING"
	CodeTokenInvalid = "CSRF_TOKEN_INVALID"

	codeGenerationFailed = "CSRF_TOKEN_GENERATION_FAILED"
)

// Error is a guard rejection. Two errors match under errors.Is when their codes are equal.
type Error struct {
	Status  int
	Code    string
	Message string
}

func (e *Error) Error() string { return e.Code + ": " + e.Message }

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

var (
	ErrTokenMissing = &Error{Status: http.StatusForbidden, Code: CodeTokenMissing, Message: "CSRF token missing"}
	ErrTokenInvalid = &Error{Status: http.StatusForbidden, Code: CodeTokenInvalid, Message: "invalid CSRF token"}

	errOriginNotAllowed = &Error{Status: http.StatusForbidden, Code: CodeTokenInvalid, Message: "origin not allowed"}
	errGeneration       = &Error{Status: http.StatusInternalServerError, Code: codeGenerationFailed, Message: "failed to generate CSRF token"}
)

type errorBody struct {
	Success bool        `json:"success"`
	Error   errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// WriteError renders err as {"success":false,"error":{"code":...,"message":...}}.
func WriteError(w http.ResponseWriter, err *Error) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(err.Status)
	_ = json.NewEncoder(w).Encode(errorBody{
		Error: errorDetail{Code: err.Code, Message: err.Message},
	})
}

func (p *Protector) reject(w http.ResponseWriter, r *http.Request, err *Error) {
	if p.cfg.ErrorHandler != nil {
		p.cfg.ErrorHandler(w, r, err)
		return
	}
	WriteError(w, err)
}
