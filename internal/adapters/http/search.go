package httpadapter

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/kirillkom/agrisense-rag/internal/core/domain"
)

// maxSearchLimit caps the passages one search returns; larger limits are
// clamped, not rejected.
const maxSearchLimit = 50

type searchRequest struct {
	Question string            `json:"question" validate:"required"`
	Limit    int               `json:"limit" validate:"gte=0"`
	Filters  *domain.FilterSet `json:"filters"`
}

type searchResponse struct {
	Passages     []domain.Passage       `json:"passages"`
	Filters      domain.FilterSet       `json:"filters"`
	FilterSource domain.FilterSource    `json:"filter_source"`
	Candidates   domain.CandidateCounts `json:"candidates"`
}

func (rt *Router) search(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := validate.Struct(req); err != nil {
		writeValidationError(w, r, err)
		return
	}

	startedAt := time.Now()
	retrieval, err := rt.deps.Retriever.Retrieve(r.Context(), domain.RetrievalRequest{
		Question: req.Question,
		Limit:    min(req.Limit, maxSearchLimit),
		Filters:  req.Filters,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	rt.observeRetrieval(r, "search", retrieval, time.Since(startedAt))

	writeJSON(w, http.StatusOK, searchResponse{
		Passages:     retrieval.Passages,
		Filters:      retrieval.Filters,
		FilterSource: retrieval.FilterSource,
		Candidates:   retrieval.Candidates,
	})
}

func (rt *Router) observeRetrieval(r *http.Request, endpoint string, retrieval *domain.Retrieval, duration time.Duration) {
	slog.InfoContext(r.Context(), "rag_retrieval",
		"request_id", requestIDFromContext(r.Context()),
		"endpoint", endpoint,
		"passages", len(retrieval.Passages),
		"filter_source", retrieval.FilterSource,
		"metadata_candidates", retrieval.Candidates.Metadata,
		"fulltext_candidates", retrieval.Candidates.FullText,
		"vector_candidates", retrieval.Candidates.Vector,
		"duration_ms", float64(duration.Microseconds())/1000.0,
	)

	if rt.deps.Metrics == nil {
		return
	}
	rt.deps.Metrics.RecordRAGObservation(serviceName, endpoint, len(retrieval.Passages), duration)
	rt.deps.Metrics.RecordFilterSource(serviceName, endpoint, string(retrieval.FilterSource))
	rt.deps.Metrics.RecordCandidates(serviceName, retrieval.Candidates.Metadata, retrieval.Candidates.FullText, retrieval.Candidates.Vector)
}

func writeValidationError(w http.ResponseWriter, r *http.Request, err error) {
	fields, ok := fieldErrors(err)
	if !ok {
		writeError(w, r, domain.WrapError(domain.ErrInvalidInput, "validate request", err))
		return
	}
	writeJSON(w, http.StatusBadRequest, errorResponse{Error: publicMessage(http.StatusBadRequest), Fields: fields})
}
