package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/bull/grounded-rag/internal/answer"
	"github.com/bull/grounded-rag/internal/domain"
)

type errorResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}

type ingestFileResponse struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	Documents int    `json:"documents"`
	Chunks    int    `json:"chunks"`
}

type ingestURLRequest struct {
	URL      string `json:"url"`
	MaxPages int    `json:"maxPages,omitempty"`
}

type ingestURLResponse struct {
	Success bool `json:"success"`
	Pages   int  `json:"pages"`
	Chunks  int  `json:"chunks"`
}

type queryResponse struct {
	Success bool            `json:"success"`
	Data    []answer.Source `json:"data"`
	Message string          `json:"message"`
}

func (h *handlers) ingestFile(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)

	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.fail(w, r, http.StatusRequestEntityTooLarge, "File too large", err)
			return
		}
		h.fail(w, r, http.StatusBadRequest, "No file uploaded", fmt.Errorf("%w: %v", domain.ErrValidation, err))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		h.fail(w, r, http.StatusBadRequest, "Failed to read uploaded file", err)
		return
	}

	result, err := h.svc.IngestFile(r.Context(), header.Filename, data)
	if err != nil {
		h.failFor(w, r, "Failed to process and upload file chunks", err)
		return
	}

	writeJSON(w, http.StatusOK, ingestFileResponse{
		Success:   true,
		Message:   "Chunks uploaded successfully",
		Documents: result.Documents,
		Chunks:    result.Chunks,
	})
}

func (h *handlers) ingestURL(w http.ResponseWriter, r *http.Request) {
	var req ingestURLRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
		h.fail(w, r, http.StatusBadRequest, "Invalid request body", fmt.Errorf("%w: %v", domain.ErrValidation, err))
		return
	}
	if strings.TrimSpace(req.URL) == "" {
		h.fail(w, r, http.StatusBadRequest, "Missing url", domain.ErrValidation)
		return
	}

	result, err := h.svc.IngestURL(r.Context(), req.URL, req.MaxPages)
	if err != nil {
		h.failFor(w, r, "Failed to ingest url", err)
		return
	}

	writeJSON(w, http.StatusOK, ingestURLResponse{
		Success: true,
		Pages:   result.Documents,
		Chunks:  result.Chunks,
	})
}

func (h *handlers) query(w http.ResponseWriter, r *http.Request) {
	input := r.URL.Query().Get("input")
	if strings.TrimSpace(input) == "" {
		h.fail(w, r, http.StatusBadRequest, "Missing 'input' query parameter", domain.ErrValidation)
		return
	}

	result, err := h.svc.Query(r.Context(), input)
	if err != nil {
		h.failFor(w, r, "Failed to answer query", err)
		return
	}

	writeJSON(w, http.StatusOK, queryResponse{
		Success: true,
		Data:    result.Sources,
		Message: result.Answer,
	})
}

// failFor picks the status from the error: caller mistakes are 400, the rest 500.
func (h *handlers) failFor(w http.ResponseWriter, r *http.Request, message string, err error) {
	status := http.StatusInternalServerError
	if domain.IsClientError(err) {
		status = http.StatusBadRequest
	}
	h.fail(w, r, status, message, err)
}

func (h *handlers) fail(w http.ResponseWriter, r *http.Request, status int, message string, err error) {
	if status >= http.StatusInternalServerError {
		h.logger.ErrorContext(r.Context(), message, "path", r.URL.Path, "error", err)
	} else {
		h.logger.WarnContext(r.Context(), message, "path", r.URL.Path, "error", err)
	}

	resp := errorResponse{Success: false, Message: message}
	if !h.production && err != nil {
		resp.Error = err.Error()
	}
	writeJSON(w, status, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
