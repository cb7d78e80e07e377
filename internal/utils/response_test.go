package utils_test

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"coa-registry/internal/apperr"
	"coa-registry/internal/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{apperr.ErrUnauthenticated, http.StatusUnauthorized},
		{apperr.Forbidden("staff role required"), http.StatusForbidden},
		{apperr.NotFound("request", "r1"), http.StatusNotFound},
		{fmt.Errorf("submit: %w", apperr.ErrInactive), http.StatusConflict},
		{apperr.InvalidState("already approved"), http.StatusConflict},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, utils.StatusFor(tt.err), tt.err.Error())
	}
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) utils.APIResponse {
	t.Helper()
	var resp utils.APIResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return resp
}

func TestWriteError_Validation(t *testing.T) {
	rec := httptest.NewRecorder()
	utils.WriteError(rec, apperr.NewValidation("reason", "is required"))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decode(t, rec)
	assert.False(t, resp.Success)
	assert.Equal(t, "is required", resp.Fields["reason"])
}

func TestWriteErrorWithData_DependencyFailure(t *testing.T) {
	rec := httptest.NewRecorder()
	err := &apperr.DependencyFailure{
		Operation: "approve",
		Completed: "certificate issued",
		Failed:    "event publish",
		Err:       errors.New("broker down"),
	}
	utils.WriteErrorWithData(rec, err, map[string]string{"qr_id": "abc"})

	assert.Equal(t, http.StatusMultiStatus, rec.Code)
	resp := decode(t, rec)
	assert.False(t, resp.Success)
	assert.Equal(t, "certificate issued, but event publish failed", resp.Warning)
	assert.NotNil(t, resp.Data)
}

func TestWriteSuccess(t *testing.T) {
	rec := httptest.NewRecorder()
	utils.WriteSuccess(rec, http.StatusCreated, "created", map[string]int{"n": 1})

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	resp := decode(t, rec)
	assert.True(t, resp.Success)
	assert.Equal(t, "created", resp.Message)
}

func TestDecodeJSON(t *testing.T) {
	var dst struct {
		Reason string `json:"reason"`
	}

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"reason":"blurry"}`))
	require.NoError(t, utils.DecodeJSON(req, &dst))
	assert.Equal(t, "blurry", dst.Reason)

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"reason":"x","extra":1}`))
	_, ok := apperr.AsValidation(utils.DecodeJSON(req, &dst))
	assert.True(t, ok)

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{`))
	_, ok = apperr.AsValidation(utils.DecodeJSON(req, &dst))
	assert.True(t, ok)
}
