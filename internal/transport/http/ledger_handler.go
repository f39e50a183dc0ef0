package http

import (
	"errors"
	"log/slog"
	"mime"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"tradeledger/internal/config"
	apperrors "tradeledger/internal/errors"
	"tradeledger/internal/middleware"
	api "tradeledger/pkg/contracts/api/v1"
)

// multipartMemory is how much of a multipart body is buffered in memory
// before parts spill to temporary files.
const multipartMemory = 8 << 20

// LedgerHandler handles ledger upload and artifact download requests
type LedgerHandler struct {
	service        LedgerServiceInterface
	validator      *middleware.RequestValidator
	errorHandler   *apperrors.ErrorHandler
	maxUploadBytes int64
	logger         *slog.Logger
}

// NewLedgerHandler creates a new ledger handler
func NewLedgerHandler(service LedgerServiceInterface, maxUploadBytes int64, logger *slog.Logger, errorHandler *apperrors.ErrorHandler) *LedgerHandler {
	if logger == nil {
		logger = slog.Default()
	}
	if maxUploadBytes <= 0 {
		maxUploadBytes = config.DefaultMaxUploadBytes
	}
	return &LedgerHandler{
		service:        service,
		validator:      middleware.NewRequestValidator(logger),
		errorHandler:   errorHandler,
		maxUploadBytes: maxUploadBytes,
		logger:         logger.With(slog.String("handler", "ledger")),
	}
}

// Upload handles POST /api/upload
func (h *LedgerHandler) Upload(w http.ResponseWriter, r *http.Request) {
	if r.ContentLength > h.maxUploadBytes {
		h.errorHandler.HandleError(w, r, &http.MaxBytesError{Limit: h.maxUploadBytes})
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			h.errorHandler.HandleError(w, r, err)
			return
		}
		h.errorHandler.HandleError(w, r, apperrors.ErrNoFileUploaded)
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile(config.UploadFormField)
	if err != nil {
		h.errorHandler.HandleError(w, r, apperrors.ErrNoFileUploaded)
		return
	}
	defer file.Close()

	if header.Filename == "" {
		h.errorHandler.HandleError(w, r, apperrors.ErrEmptyFilename)
		return
	}

	h.logger.InfoContext(r.Context(), "Upload received",
		slog.String("filename", header.Filename),
		slog.Int64("size_bytes", header.Size))

	result, err := h.service.ProcessUpload(r.Context(), header.Filename, file)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	render.JSON(w, r, api.UploadResponse{
		Success:      true,
		Message:      "File processed successfully",
		TotalRecords: result.Summary.TotalRecords,
		Columns:      result.Summary.Columns,
		Preview:      result.Summary.Preview,
		DownloadURL:  result.DownloadURL,
		Warnings:     result.Warnings,
	})
}

// Download handles GET /api/download/{id}/{filename}
func (h *LedgerHandler) Download(w http.ResponseWriter, r *http.Request) {
	req := api.DownloadRequest{
		ID:       chi.URLParam(r, "id"),
		Filename: chi.URLParam(r, "filename"),
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	h.serveArtifact(w, r, req.ID, req.Filename)
}

// DownloadLatest handles GET /api/download/{filename}, serving the most
// recent artifact with that name.
func (h *LedgerHandler) DownloadLatest(w http.ResponseWriter, r *http.Request) {
	req := api.LegacyDownloadRequest{Filename: chi.URLParam(r, "filename")}
	if err := h.validator.ValidateStruct(req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	h.serveArtifact(w, r, "", req.Filename)
}

func (h *LedgerHandler) serveArtifact(w http.ResponseWriter, r *http.Request, id, name string) {
	artifact, err := h.service.ResolveArtifact(r.Context(), id, name)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	f, err := os.Open(artifact.Path)
	if err != nil {
		h.errorHandler.HandleError(w, r, apperrors.ErrArtifactNotFound)
		return
	}
	defer f.Close()

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": artifact.Name}))
	w.Header().Set("Cache-Control", "no-store")

	h.logger.InfoContext(r.Context(), "Artifact served",
		slog.String("request_id", artifact.ID),
		slog.String("file", artifact.Name),
		slog.Int64("size_bytes", artifact.Size))

	http.ServeContent(w, r, artifact.Name, artifact.CreatedAt, f)
}
