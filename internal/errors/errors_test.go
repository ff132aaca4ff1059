package errors

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ecommerce-dashboard/internal/dataset"
	"ecommerce-dashboard/internal/join"
	"ecommerce-dashboard/internal/observability"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantCode   ErrorCode
		wantStatus int
	}{
		{"join integrity", fmt.Errorf("join dataset: %w", join.ErrIntegrity), CodeJoinIntegrity, http.StatusInternalServerError},
		{"missing column", fmt.Errorf("load: %w", dataset.ErrMissingColumn), CodeDataset, http.StatusInternalServerError},
		{"parse error", &dataset.ParseError{File: "f.csv", Line: 2, Column: "price", Err: dataset.ErrMalformed}, CodeDataset, http.StatusInternalServerError},
		{"validation", Validation("start after end"), CodeValidation, http.StatusBadRequest},
		{"bad request", BadRequestWrap(stderrors.New("bad date"), "invalid start"), CodeBadRequest, http.StatusBadRequest},
		{"unknown", stderrors.New("boom"), CodeInternal, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			appErr := Classify(tt.err)
			require.NotNil(t, appErr)
			assert.Equal(t, tt.wantCode, appErr.Code)
			assert.Equal(t, tt.wantStatus, appErr.StatusCode)
		})
	}

	assert.Nil(t, Classify(nil))
}

func TestWriteError(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ctx := observability.WithRequestID(context.Background(), "req-1")
	w := httptest.NewRecorder()

	WriteError(ctx, w, logger, Validation("start date must not be after end date"))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var resp struct {
		Success bool `json:"success"`
		Error   struct {
			Code      string `json:"code"`
			Message   string `json:"message"`
			RequestID string `json:"request_id"`
		} `json:"error"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.False(t, resp.Success)
	assert.Equal(t, string(CodeValidation), resp.Error.Code)
	assert.Equal(t, "req-1", resp.Error.RequestID)
}

func TestWriteSuccessWithHeaders(t *testing.T) {
	w := httptest.NewRecorder()

	WriteSuccessWithHeaders(w, map[string]int{"rows": 3}, map[string]string{"Cache-Control": "no-store"})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))
	assert.JSONEq(t, `{"success":true,"data":{"rows":3}}`, w.Body.String())
}
