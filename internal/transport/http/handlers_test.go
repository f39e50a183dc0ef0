package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	apperrors "tradeledger/internal/errors"
	"tradeledger/internal/files"
	"tradeledger/internal/services"
	"tradeledger/internal/shared/testutil"
	"tradeledger/pkg/contracts"
	api "tradeledger/pkg/contracts/api/v1"
	"tradeledger/pkg/contracts/domain"
)

const testRequestID = "0f8fad5b-d9cb-469f-a165-70867728950e"

// MockLedgerService is a testify mock for LedgerServiceInterface
type MockLedgerService struct {
	mock.Mock
}

func (m *MockLedgerService) ProcessUpload(ctx context.Context, filename string, src io.Reader) (*services.UploadResult, error) {
	args := m.Called(ctx, filename, src)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.UploadResult), args.Error(1)
}

func (m *MockLedgerService) ResolveArtifact(ctx context.Context, id, name string) (files.Artifact, error) {
	args := m.Called(ctx, id, name)
	return args.Get(0).(files.Artifact), args.Error(1)
}

// MockHealthService is a testify mock for HealthServiceInterface
type MockHealthService struct {
	mock.Mock
}

func (m *MockHealthService) HealthCheck(ctx context.Context) api.HealthResponse {
	return m.Called(ctx).Get(0).(api.HealthResponse)
}

func (m *MockHealthService) LivenessCheck(ctx context.Context) api.ProbeResponse {
	return m.Called(ctx).Get(0).(api.ProbeResponse)
}

func (m *MockHealthService) ReadinessCheck(ctx context.Context) (api.ProbeResponse, error) {
	args := m.Called(ctx)
	return args.Get(0).(api.ProbeResponse), args.Error(1)
}

func (m *MockHealthService) Version() contracts.VersionInfo {
	return m.Called().Get(0).(contracts.VersionInfo)
}

func multipartBody(t *testing.T, field, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if field != "" {
		part, err := mw.CreateFormFile(field, filename)
		require.NoError(t, err)
		_, err = part.Write(content)
		require.NoError(t, err)
	} else {
		require.NoError(t, mw.WriteField("other", "value"))
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func newLedgerRouter(t *testing.T, service LedgerServiceInterface, maxUpload int64) http.Handler {
	t.Helper()
	logger, _ := testutil.NewTestLogger(t)
	h := NewLedgerHandler(service, maxUpload, logger, apperrors.NewErrorHandler(logger, false))

	r := chi.NewRouter()
	r.Post("/api/upload", h.Upload)
	r.Get("/api/download/{id}/{filename}", h.Download)
	r.Get("/api/download/{filename}", h.DownloadLatest)
	return r
}

func decodeJSON(t *testing.T, body io.Reader) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.NewDecoder(body).Decode(&out))
	return out
}

func strPtr(s string) *string { return &s }

func TestLedgerHandler_UploadSuccess(t *testing.T) {
	service := &MockLedgerService{}
	rows := []domain.LedgerRow{{
		BoughtName: strPtr("Alpha"), ScripName: strPtr("ALPHA"), BoughtCode: strPtr("A1"),
	}}
	service.On("ProcessUpload", mock.Anything, "trades.xlsx", mock.Anything).Return(&services.UploadResult{
		RequestID:   testRequestID,
		DownloadURL: "/api/download/" + testRequestID + "/processed_trades.csv",
		Summary:     domain.NewLedgerSummary(rows, 5),
		Warnings:    2,
	}, nil)

	body, contentType := multipartBody(t, "file", "trades.xlsx", []byte("PK\x03\x04"))
	req := httptest.NewRequest(http.MethodPost, "/api/upload", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()

	newLedgerRouter(t, service, 1<<20).ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp := decodeJSON(t, w.Body)
	assert.Equal(t, true, resp["success"])
	assert.Equal(t, "File processed successfully", resp["message"])
	assert.Equal(t, float64(1), resp["total_records"])
	assert.Equal(t, float64(2), resp["warnings"])
	assert.Equal(t, "/api/download/"+testRequestID+"/processed_trades.csv", resp["download_url"])
	assert.Len(t, resp["columns"], 5)
	assert.Len(t, resp["preview"], 1)
	service.AssertExpectations(t)
}

func TestLedgerHandler_UploadErrors(t *testing.T) {
	tests := []struct {
		name       string
		field      string
		filename   string
		serviceErr error
		wantStatus int
		wantError  string
	}{
		{
			name:       "no file part",
			field:      "",
			wantStatus: http.StatusBadRequest,
			wantError:  "No file uploaded",
		},
		{
			name:       "wrong field name",
			field:      "upload",
			filename:   "trades.xlsx",
			wantStatus: http.StatusBadRequest,
			wantError:  "No file uploaded",
		},
		{
			name:       "empty filename",
			field:      "file",
			filename:   "",
			wantStatus: http.StatusBadRequest,
			wantError:  "No file uploaded",
		},
		{
			name:       "unsupported type from service",
			field:      "file",
			filename:   "trades.csv",
			serviceErr: apperrors.ErrUnsupportedFileType,
			wantStatus: http.StatusBadRequest,
			wantError:  "Only .xlsx files are allowed",
		},
		{
			name:       "malformed ledger",
			field:      "file",
			filename:   "trades.xlsx",
			serviceErr: apperrors.NewMalformedInputError("ledger has none of the required identity columns", nil),
			wantStatus: http.StatusUnprocessableEntity,
			wantError:  "ledger has none of the required identity columns",
		},
		{
			name:       "storage failure hides detail",
			field:      "file",
			filename:   "trades.xlsx",
			serviceErr: apperrors.NewStorageError("disk full at /var/tmp", errors.New("ENOSPC")),
			wantStatus: http.StatusInternalServerError,
			wantError:  "The result could not be stored",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service := &MockLedgerService{}
			if tt.serviceErr != nil {
				service.On("ProcessUpload", mock.Anything, tt.filename, mock.Anything).Return(nil, tt.serviceErr)
			}

			body, contentType := multipartBody(t, tt.field, tt.filename, []byte("data"))
			req := httptest.NewRequest(http.MethodPost, "/api/upload", body)
			req.Header.Set("Content-Type", contentType)
			w := httptest.NewRecorder()

			newLedgerRouter(t, service, 1<<20).ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, apperrors.ContentTypeProblem, w.Header().Get("Content-Type"))
			assert.Equal(t, tt.wantError, decodeJSON(t, w.Body)["error"])
			service.AssertExpectations(t)
		})
	}
}

func TestLedgerHandler_UploadNotMultipart(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/upload", bytes.NewBufferString(`{"file":"x"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	newLedgerRouter(t, &MockLedgerService{}, 1<<20).ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "No file uploaded", decodeJSON(t, w.Body)["error"])
}

func TestLedgerHandler_UploadTooLarge(t *testing.T) {
	body, contentType := multipartBody(t, "file", "trades.xlsx", bytes.Repeat([]byte("x"), 4096))
	req := httptest.NewRequest(http.MethodPost, "/api/upload", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()

	newLedgerRouter(t, &MockLedgerService{}, 1024).ServeHTTP(w, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	problem := decodeJSON(t, w.Body)
	assert.Equal(t, "PAYLOAD_TOO_LARGE", problem["error_code"])
	assert.Equal(t, float64(1024), problem["limit_bytes"])
}

func TestLedgerHandler_Download(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "processed_trades.csv")
	content := "Bought Name,Scrip Name,Bought Code,Sum of Bought Quantity,Sum of Value\nAlpha,ALPHA,A1,10000,42000\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	artifact := files.Artifact{ID: testRequestID, Name: "processed_trades.csv", Path: path, CreatedAt: time.Now()}

	t.Run("by id", func(t *testing.T) {
		service := &MockLedgerService{}
		service.On("ResolveArtifact", mock.Anything, testRequestID, "processed_trades.csv").Return(artifact, nil)

		w := httptest.NewRecorder()
		newLedgerRouter(t, service, 0).ServeHTTP(w,
			httptest.NewRequest(http.MethodGet, "/api/download/"+testRequestID+"/processed_trades.csv", nil))

		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "text/csv; charset=utf-8", w.Header().Get("Content-Type"))
		assert.Equal(t, `attachment; filename=processed_trades.csv`, w.Header().Get("Content-Disposition"))
		assert.Equal(t, content, w.Body.String())
		service.AssertExpectations(t)
	})

	t.Run("legacy name only", func(t *testing.T) {
		service := &MockLedgerService{}
		service.On("ResolveArtifact", mock.Anything, "", "processed_trades.csv").Return(artifact, nil)

		w := httptest.NewRecorder()
		newLedgerRouter(t, service, 0).ServeHTTP(w,
			httptest.NewRequest(http.MethodGet, "/api/download/processed_trades.csv", nil))

		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, content, w.Body.String())
	})

	t.Run("not found", func(t *testing.T) {
		service := &MockLedgerService{}
		service.On("ResolveArtifact", mock.Anything, testRequestID, "processed_none.csv").
			Return(files.Artifact{}, apperrors.ErrArtifactNotFound)

		w := httptest.NewRecorder()
		newLedgerRouter(t, service, 0).ServeHTTP(w,
			httptest.NewRequest(http.MethodGet, "/api/download/"+testRequestID+"/processed_none.csv", nil))

		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, "File not found", decodeJSON(t, w.Body)["error"])
	})

	t.Run("invalid id", func(t *testing.T) {
		w := httptest.NewRecorder()
		newLedgerRouter(t, &MockLedgerService{}, 0).ServeHTTP(w,
			httptest.NewRequest(http.MethodGet, "/api/download/not-a-uuid/processed_trades.csv", nil))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "VALIDATION_FAILED", decodeJSON(t, w.Body)["error_code"])
	})

	t.Run("file vanished after resolve", func(t *testing.T) {
		gone := artifact
		gone.Path = filepath.Join(dir, "gone.csv")
		service := &MockLedgerService{}
		service.On("ResolveArtifact", mock.Anything, testRequestID, "processed_trades.csv").Return(gone, nil)

		w := httptest.NewRecorder()
		newLedgerRouter(t, service, 0).ServeHTTP(w,
			httptest.NewRequest(http.MethodGet, "/api/download/"+testRequestID+"/processed_trades.csv", nil))

		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestHealthHandler(t *testing.T) {
	service := &MockHealthService{}
	service.On("HealthCheck", mock.Anything).Return(api.HealthResponse{Status: "healthy", Backend: "Go", Version: "3.0.0"})
	service.On("LivenessCheck", mock.Anything).Return(api.ProbeResponse{Status: "alive", Version: "3.0.0"})
	service.On("Version").Return(contracts.VersionInfo{Version: "3.0.0", Backend: "Go"})

	logger, _ := testutil.NewTestLogger(t)
	h := NewHealthHandler(service, logger)

	t.Run("health", func(t *testing.T) {
		w := httptest.NewRecorder()
		h.HealthCheck(w, httptest.NewRequest(http.MethodGet, "/api/health", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"status":"healthy","backend":"Go","version":"3.0.0"}`, w.Body.String())
	})

	t.Run("liveness", func(t *testing.T) {
		w := httptest.NewRecorder()
		h.LivenessCheck(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
		assert.Equal(t, "alive", decodeJSON(t, w.Body)["status"])
	})

	t.Run("version", func(t *testing.T) {
		w := httptest.NewRecorder()
		h.Version(w, httptest.NewRequest(http.MethodGet, "/api/version", nil))
		assert.Equal(t, "3.0.0", decodeJSON(t, w.Body)["version"])
	})
}

func TestHealthHandler_Readiness(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"ready", nil, http.StatusOK},
		{"not ready", services.ErrScratchNotWritable, http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service := &MockHealthService{}
			service.On("ReadinessCheck", mock.Anything).Return(api.ProbeResponse{Status: "x"}, tt.err)

			w := httptest.NewRecorder()
			NewHealthHandler(service, nil).ReadinessCheck(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
			assert.Equal(t, tt.wantStatus, w.Code)
		})
	}
}
