package utils

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"coa-registry/internal/apperr"
)

type APIResponse struct {
	Success   bool              `json:"success"`
	Message   string            `json:"message"`
	Data      interface{}       `json:"data,omitempty"`
	Error     string            `json:"error,omitempty"`
	Fields    map[string]string `json:"fields,omitempty"`
	Warning   string            `json:"warning,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
}

func SuccessResponse(message string, data interface{}) APIResponse {
	return APIResponse{
		Success:   true,
		Message:   message,
		Data:      data,
		Timestamp: time.Now(),
	}
}

func ErrorResponse(message, error string) APIResponse {
	return APIResponse{
		Success:   false,
		Message:   message,
		Error:     error,
		Timestamp: time.Now(),
	}
}

func WriteJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func WriteSuccess(w http.ResponseWriter, status int, message string, data interface{}) {
	WriteJSON(w, status, SuccessResponse(message, data))
}

// WriteError maps the apperr taxonomy onto HTTP statuses. A DependencyFailure
// is reported as 207 with a warning so the caller never mistakes it for success
// or for a clean failure.
func WriteError(w http.ResponseWriter, err error) {
	WriteErrorWithData(w, err, nil)
}

// WriteErrorWithData is WriteError that also carries whatever the partially
// completed operation produced.
func WriteErrorWithData(w http.ResponseWriter, err error, data interface{}) {
	if ve, ok := apperr.AsValidation(err); ok {
		resp := ErrorResponse("validation failed", ve.Error())
		resp.Fields = ve.Fields
		WriteJSON(w, http.StatusBadRequest, resp)
		return
	}
	if df, ok := apperr.AsDependencyFailure(err); ok {
		resp := ErrorResponse("partially completed", df.Error())
		resp.Warning = fmt.Sprintf("%s, but %s failed", df.Completed, df.Failed)
		resp.Data = data
		WriteJSON(w, http.StatusMultiStatus, resp)
		return
	}

	status := StatusFor(err)
	message := http.StatusText(status)
	WriteJSON(w, status, ErrorResponse(message, err.Error()))
}

func StatusFor(err error) int {
	switch {
	case errors.Is(err, apperr.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, apperr.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, apperr.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, apperr.ErrInactive), errors.Is(err, apperr.ErrInvalidState):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// DecodeJSON reads a JSON body into dst; malformed input is a validation error.
func DecodeJSON(r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return apperr.NewValidation("body", "invalid JSON: "+err.Error())
	}
	return nil
}
