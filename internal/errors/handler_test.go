package errors

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradeledger/internal/shared/testutil"
)

func decodeProblem(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var got map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	return got
}

func TestErrorHandler_HandleError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantType   string
		wantDetail string
	}{
		{
			name:       "malformed input",
			err:        fmt.Errorf("process: %w", NewMalformedInputError("none of the identity columns are present", nil)),
			wantStatus: http.StatusUnprocessableEntity,
			wantType:   TypeMalformedLedger,
			wantDetail: "none of the identity columns are present",
		},
		{
			name:       "api error",
			err:        ErrUnsupportedFileType,
			wantStatus: http.StatusBadRequest,
			wantType:   TypeUnsupportedFile,
			wantDetail: "Only .xlsx files are allowed",
		},
		{
			name:       "missing upload",
			err:        ErrNoFileUploaded,
			wantStatus: http.StatusBadRequest,
			wantType:   TypeMissingUpload,
			wantDetail: "No file uploaded",
		},
		{
			name:       "artifact not found",
			err:        ErrArtifactNotFound,
			wantStatus: http.StatusNotFound,
			wantType:   TypeArtifactNotFound,
			wantDetail: "File not found",
		},
		{
			name:       "body too large",
			err:        fmt.Errorf("parse form: %w", &http.MaxBytesError{Limit: 16}),
			wantStatus: http.StatusRequestEntityTooLarge,
			wantType:   TypePayloadTooLarge,
			wantDetail: ErrPayloadTooLarge.Message,
		},
		{
			name:       "deadline",
			err:        context.DeadlineExceeded,
			wantStatus: http.StatusGatewayTimeout,
			wantType:   TypeTimeout,
			wantDetail: "The request took too long to process and was cancelled",
		},
		{
			name:       "storage error hides cause",
			err:        NewStorageError("write artifact", errors.New("/tmp/secret: read-only")),
			wantStatus: http.StatusInternalServerError,
			wantType:   TypeStorage,
			wantDetail: "The result could not be stored",
		},
		{
			name:       "unknown error",
			err:        errors.New("boom"),
			wantStatus: http.StatusInternalServerError,
			wantType:   TypeInternal,
			wantDetail: "An unexpected error occurred while processing your request",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, logs := testutil.NewTestLogger(t)
			h := NewErrorHandler(logger, false)

			w := httptest.NewRecorder()
			r := httptest.NewRequest(http.MethodPost, "/api/upload", nil)
			h.HandleError(w, r, tt.err)

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, ContentTypeProblem, w.Header().Get("Content-Type"))

			got := decodeProblem(t, w)
			assert.Equal(t, tt.wantType, got["type"])
			assert.Equal(t, tt.wantDetail, got["detail"])
			assert.Equal(t, tt.wantDetail, got["error"])
			assert.Contains(t, got, "trace_id")
			assert.NotContains(t, got, "stack")
			assert.True(t, logs.ContainsMessage("request failed"))
		})
	}
}

func TestErrorHandler_HandleErrorNil(t *testing.T) {
	h := NewErrorHandler(nil, false)
	w := httptest.NewRecorder()
	h.HandleError(w, httptest.NewRequest(http.MethodGet, "/", nil), nil)

	assert.Zero(t, w.Body.Len())
}

func TestErrorHandler_StackOnlyForServerErrors(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	h := NewErrorHandler(logger, true)

	w := httptest.NewRecorder()
	h.HandleError(w, httptest.NewRequest(http.MethodGet, "/", nil), errors.New("boom"))
	assert.Contains(t, decodeProblem(t, w), "stack")

	w = httptest.NewRecorder()
	h.HandleError(w, httptest.NewRequest(http.MethodGet, "/", nil), ErrEmptyFilename)
	assert.NotContains(t, decodeProblem(t, w), "stack")
}

func TestErrorHandler_LogLevels(t *testing.T) {
	logger, logs := testutil.NewTestLogger(t)
	h := NewErrorHandler(logger, false)

	h.HandleError(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil), ErrEmptyFilename)
	h.HandleError(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil), errors.New("boom"))

	assert.Len(t, logs.GetRecordsByLevel(slog.LevelWarn), 1)
	assert.Len(t, logs.GetRecordsByLevel(slog.LevelError), 1)
	testutil.AssertLogAttr(t, logs, "component", "error_handler")
}

func TestErrorHandler_NotFoundAndMethodNotAllowed(t *testing.T) {
	h := NewErrorHandler(nil, false)

	w := httptest.NewRecorder()
	h.NotFound(w, httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, TypeNotFound, decodeProblem(t, w)["type"])

	w = httptest.NewRecorder()
	h.MethodNotAllowed(w, httptest.NewRequest(http.MethodDelete, "/api/upload", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
	assert.Contains(t, decodeProblem(t, w)["detail"], "DELETE")
}

func TestErrorHandler_HandlePanic(t *testing.T) {
	logger, logs := testutil.NewTestLogger(t)
	h := NewErrorHandler(logger, true)

	w := httptest.NewRecorder()
	h.HandlePanic(w, httptest.NewRequest(http.MethodGet, "/", nil), "kaboom")

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	got := decodeProblem(t, w)
	assert.Equal(t, "kaboom", got["panic"])
	testutil.AssertLogContains(t, logs, slog.LevelError, "panic recovered")
}
