package httpadapter

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/kirillkom/agrisense-rag/internal/core/domain"
	"github.com/kirillkom/agrisense-rag/internal/core/ports"
)

const finishTimeout = 3 * time.Second

type chatRequest struct {
	Question string `json:"question" validate:"required"`
}

// chat streams the answer as plain text, flushing after every fragment.
// Errors after the first byte can only end the stream.
func (rt *Router) chat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := validate.Struct(req); err != nil {
		writeValidationError(w, r, err)
		return
	}

	ctx := r.Context()
	startedAt := time.Now()
	session, err := rt.deps.Chat.Chat(ctx, ports.ChatRequest{
		Question:  req.Question,
		RequestID: requestIDFromContext(ctx),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	rt.observeRetrieval(r, "chat", session.Retrieval, time.Since(startedAt))

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(http.StatusOK)
	flusher, _ := w.(http.Flusher)

	fragments := 0
	status := domain.ChatStatusOK
	for fragment, err := range session.Fragments {
		if err != nil {
			status = streamStatus(ctx, err)
			if status == domain.ChatStatusError {
				slog.ErrorContext(ctx, "chat_stream_error",
					"request_id", requestIDFromContext(ctx),
					"fragments", fragments,
					"error", err,
				)
			}
			break
		}
		if _, err := io.WriteString(w, fragment); err != nil {
			status = domain.ChatStatusCanceled
			break
		}
		fragments++
		if flusher != nil {
			flusher.Flush()
		}
	}

	if rt.deps.Metrics != nil {
		rt.deps.Metrics.RecordStream(serviceName, string(status), fragments)
	}

	finishCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), finishTimeout)
	defer cancel()
	if err := session.Finish(finishCtx, status, fragments); err != nil {
		slog.WarnContext(ctx, "chat_event_publish_failed",
			"request_id", requestIDFromContext(ctx),
			"error", err,
		)
	}
}

func streamStatus(ctx context.Context, err error) domain.ChatStatus {
	if ctx.Err() != nil || errors.Is(err, context.Canceled) {
		return domain.ChatStatusCanceled
	}
	return domain.ChatStatusError
}
