package response

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainerrors "github.com/snipstash/snipstash-server/internal/errors"
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func decode(t *testing.T, w *httptest.ResponseRecorder) ErrorBody {
	t.Helper()
	var body ErrorBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestJSON_Success(t *testing.T) {
	w := httptest.NewRecorder()
	Success(w, map[string]string{"status": "ok"}, discard())

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json; charset=utf-8", w.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestHandleError_DomainError(t *testing.T) {
	w := httptest.NewRecorder()
	HandleError(w, domainerrors.InvalidState("already recycled"), discard())

	assert.Equal(t, http.StatusNotFound, w.Code)
	body := decode(t, w)
	assert.Equal(t, "INVALID_STATE", body.Code)
	assert.Equal(t, "already recycled", body.Message)
}

func TestHandleError_ValidationDetails(t *testing.T) {
	w := httptest.NewRecorder()
	err := domainerrors.ValidationWithDetails("validation failed", map[string]string{"title": "is required"})
	HandleError(w, err, discard())

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"code":"VALIDATION","message":"validation failed","details":{"title":"is required"}}`, w.Body.String())
}

func TestHandleError_Unknown(t *testing.T) {
	w := httptest.NewRecorder()
	HandleError(w, errors.New("disk on fire"), discard())

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	body := decode(t, w)
	assert.Equal(t, "INTERNAL", body.Code)
	assert.NotContains(t, body.Message, "disk")
}

func TestTooManyRequests(t *testing.T) {
	w := httptest.NewRecorder()
	TooManyRequests(w, "slow down", discard())

	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "1", w.Header().Get("Retry-After"))
	assert.Equal(t, "UNAVAILABLE", decode(t, w).Code)
}
