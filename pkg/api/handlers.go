package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/marmos91/glyphcache/internal/logger"
	"github.com/marmos91/glyphcache/pkg/document"
	"github.com/marmos91/glyphcache/pkg/payload"
	"github.com/marmos91/glyphcache/pkg/resolver"
)

// Response is the standard API response wrapper.
type Response struct {
	Status    string      `json:"status"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data,omitempty"`
	Error     string      `json:"error,omitempty"`
}

// writeJSON writes a JSON response with the given status code.
//
// Encoding is done to a buffer first so an encoding failure can still
// produce an error response before headers are sent.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(data); err != nil {
		logger.Error("Failed to encode JSON response", "error", err)
		http.Error(w, `{"status":"error","error":"failed to encode response"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, Response{
		Status:    "error",
		Timestamp: time.Now().UTC(),
		Error:     msg,
	})
}

// documentHandler serves document record lookup and management.
type documentHandler struct {
	store document.Store
}

type resolveRequest struct {
	IDs []uint64 `json:"ids"`
}

type resolveResponse struct {
	Documents []document.Document `json:"documents"`
}

// Resolve handles POST /v1/documents/resolve: the batched record lookup
// backing client-side emoji resolution. Missing ids are absent from the
// result, not errors.
func (h *documentHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	var req resolveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.IDs) == 0 {
		writeError(w, http.StatusBadRequest, "ids must not be empty")
		return
	}
	if len(req.IDs) > resolver.MaxPerRequest {
		writeError(w, http.StatusBadRequest,
			"too many ids: the limit is "+strconv.Itoa(resolver.MaxPerRequest))
		return
	}

	docs, err := h.store.GetBatch(r.Context(), req.IDs)
	if err != nil {
		logger.Error("Failed to load document batch", "ids", len(req.IDs), "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load documents")
		return
	}
	if docs == nil {
		docs = []document.Document{}
	}
	writeJSON(w, http.StatusOK, resolveResponse{Documents: docs})
}

// Get handles GET /v1/documents/{id}.
func (h *documentHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid document id")
		return
	}

	doc, err := h.store.Get(r.Context(), id)
	if errors.Is(err, document.ErrNotFound) {
		writeError(w, http.StatusNotFound, "document not found")
		return
	}
	if err != nil {
		logger.Error("Failed to load document", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load document")
		return
	}
	writeJSON(w, http.StatusOK, Response{
		Status:    "ok",
		Timestamp: time.Now().UTC(),
		Data:      doc,
	})
}

// Put handles PUT /v1/documents/{id}: record ingestion.
func (h *documentHandler) Put(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid document id")
		return
	}

	var doc document.Document
	if err := json.NewDecoder(r.Body).Decode(&doc); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	doc.ID = id

	if err := h.store.Put(r.Context(), doc); err != nil {
		logger.Error("Failed to store document", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to store document")
		return
	}
	writeJSON(w, http.StatusOK, Response{
		Status:    "ok",
		Timestamp: time.Now().UTC(),
		Data:      doc,
	})
}

// Delete handles DELETE /v1/documents/{id}.
func (h *documentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid document id")
		return
	}

	if err := h.store.Delete(r.Context(), id); err != nil {
		logger.Error("Failed to delete document", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete document")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// contentHandler serves raw asset bytes.
type contentHandler struct {
	store document.Store
	data  payload.ContentStore
}

// Get handles GET /v1/documents/{id}/content: the raw sticker payload
// referenced by the document's content key.
func (h *contentHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid document id")
		return
	}

	doc, err := h.store.Get(r.Context(), id)
	if errors.Is(err, document.ErrNotFound) {
		writeError(w, http.StatusNotFound, "document not found")
		return
	}
	if err != nil {
		logger.Error("Failed to load document", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load document")
		return
	}
	if doc.ContentKey == "" {
		writeError(w, http.StatusNotFound, "document has no content")
		return
	}

	data, err := h.data.ReadContent(r.Context(), doc.ContentKey)
	if errors.Is(err, payload.ErrNotFound) {
		writeError(w, http.StatusNotFound, "content not found")
		return
	}
	if err != nil {
		logger.Error("Failed to read content", "id", id, "key", doc.ContentKey, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to read content")
		return
	}

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	_, _ = w.Write(data)
}

// GetByKey handles GET /v1/content/{key}: raw payload bytes addressed by
// content key. Clients use the key carried in a resolved document record.
func (h *contentHandler) GetByKey(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "*")
	if key == "" {
		writeError(w, http.StatusBadRequest, "missing content key")
		return
	}

	data, err := h.data.ReadContent(r.Context(), key)
	if errors.Is(err, payload.ErrNotFound) {
		writeError(w, http.StatusNotFound, "content not found")
		return
	}
	if err != nil {
		logger.Error("Failed to read content", "key", key, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to read content")
		return
	}

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	_, _ = w.Write(data)
}

// healthHandler serves liveness probes.
type healthHandler struct{}

func (h *healthHandler) Liveness(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, Response{
		Status:    "healthy",
		Timestamp: time.Now().UTC(),
	})
}
