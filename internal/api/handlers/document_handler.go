package handlers

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/markdave123-py/askflow/internal/core"
	"github.com/markdave123-py/askflow/internal/core/ingestion_engine"
	"github.com/markdave123-py/askflow/internal/services"
)

const (
	uploadMessage      = "Document processed and indexed successfully."
	unsupportedMessage = "Only PDF files are supported for now."
	multipartMemory    = 32 << 20
)

// DocumentReader is the part of services.DocumentService the handler needs.
type DocumentReader interface {
	Get(ctx context.Context, id int64) (*services.DocumentDetail, error)
	List(ctx context.Context) ([]services.DocumentDetail, error)
	Delete(ctx context.Context, id int64) error
}

type DocumentHandler struct {
	ingestor  ingestion_engine.Ingestor
	documents DocumentReader
	maxUpload int64
	log       *slog.Logger
}

// NewDocumentHandler builds the handler. maxUploadBytes caps the request body.
func NewDocumentHandler(ing ingestion_engine.Ingestor, documents DocumentReader, maxUploadBytes int64, log *slog.Logger) *DocumentHandler {
	if log == nil {
		log = slog.Default()
	}
	return &DocumentHandler{ingestor: ing, documents: documents, maxUpload: maxUploadBytes, log: log}
}

type uploadResponse struct {
	ID              int64  `json:"id"`
	Filename        string `json:"filename"`
	ChunksProcessed int    `json:"chunks_processed"`
	Message         string `json:"message"`
}

// UploadDocument ingests the multipart field "file" synchronously and reports the chunk count.
func (h *DocumentHandler) UploadDocument(w http.ResponseWriter, r *http.Request) {
	if h.maxUpload > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)
	}

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		if isTooLarge(err) {
			writeError(w, http.StatusRequestEntityTooLarge, "file too large")
			return
		}
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing file field")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		if isTooLarge(err) {
			writeError(w, http.StatusRequestEntityTooLarge, "file too large")
			return
		}
		writeError(w, http.StatusBadRequest, "could not read file")
		return
	}

	res, err := h.ingestor.Ingest(r.Context(), data, filepath.Base(header.Filename))
	if err != nil {
		status, detail := ingestErrorStatus(err)
		if status >= http.StatusInternalServerError {
			h.log.Error("upload failed", "filename", header.Filename, "status", status, "error", err)
		}
		writeError(w, status, detail)
		return
	}

	writeJSON(w, http.StatusOK, uploadResponse{
		ID:              res.Document.ID,
		Filename:        res.Document.FileName,
		ChunksProcessed: res.ChunksProcessed,
		Message:         uploadMessage,
	})
}

func (h *DocumentHandler) GetDocuments(w http.ResponseWriter, r *http.Request) {
	documents, err := h.documents.List(r.Context())
	if err != nil {
		h.log.Error("list documents", "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, documents)
}

func (h *DocumentHandler) GetDocument(w http.ResponseWriter, r *http.Request) {
	id, ok := documentID(w, r)
	if !ok {
		return
	}

	detail, err := h.documents.Get(r.Context(), id)
	if err != nil {
		h.writeLookupError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

func (h *DocumentHandler) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	id, ok := documentID(w, r)
	if !ok {
		return
	}

	if err := h.documents.Delete(r.Context(), id); err != nil {
		h.writeLookupError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *DocumentHandler) writeLookupError(w http.ResponseWriter, err error) {
	if services.IsNotFound(err) {
		writeError(w, http.StatusNotFound, "Document not found")
		return
	}
	h.log.Error("document lookup", "error", err)
	writeError(w, http.StatusInternalServerError, err.Error())
}

func documentID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid document id")
		return 0, false
	}
	return id, true
}

// ingestErrorStatus maps pipeline failures onto HTTP statuses.
func ingestErrorStatus(err error) (int, string) {
	switch {
	case core.IsUnsupportedFormat(err):
		return http.StatusBadRequest, unsupportedMessage
	case core.IsExtraction(err):
		return http.StatusUnprocessableEntity, err.Error()
	case core.IsEmbedding(err):
		return http.StatusBadGateway, err.Error()
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "ingestion timed out"
	default:
		return http.StatusInternalServerError, err.Error()
	}
}

func isTooLarge(err error) bool {
	var mbe *http.MaxBytesError
	return errors.As(err, &mbe)
}
