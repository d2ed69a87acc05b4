package httpadapter

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kirillkom/agrisense-rag/internal/core/domain"
)

type chunksResponse struct {
	Document string                 `json:"document"`
	Chunks   []domain.DocumentChunk `json:"chunks"`
}

func (rt *Router) listChunks(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	chunks, err := rt.deps.Chunks.ListChunks(r.Context(), name)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, chunksResponse{Document: name, Chunks: chunks})
}

func (rt *Router) extract(w http.ResponseWriter, r *http.Request) {
	maxBytes := rt.cfg.APIMaxUploadBytes
	if maxBytes <= 0 {
		maxBytes = 20 << 20
	}
	// Multipart framing adds a little on top of the file itself.
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes+1<<20)

	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "multipart field 'file' is required"})
		return
	}
	defer file.Close()

	extracted, err := rt.deps.Extractor.Extract(r.Context(), header.Filename, file)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, extracted)
}
