package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/kirillkom/agrisense-rag/internal/core/domain"
	"github.com/kirillkom/agrisense-rag/internal/core/ports"
)

const publishTimeout = 2 * time.Second

type ChatUseCase struct {
	retriever ports.Retriever
	answers   ports.AnswerStreamer
	publisher ports.ChatEventPublisher
	now       func() time.Time
}

// NewChatUseCase wires retrieval to answer streaming. publisher may be nil,
// in which case chat events are not emitted.
func NewChatUseCase(
	retriever ports.Retriever,
	answers ports.AnswerStreamer,
	publisher ports.ChatEventPublisher,
) *ChatUseCase {
	return &ChatUseCase{
		retriever: retriever,
		answers:   answers,
		publisher: publisher,
		now:       time.Now,
	}
}

func (uc *ChatUseCase) Chat(ctx context.Context, req ports.ChatRequest) (*ports.ChatSession, error) {
	startedAt := uc.now()

	retrieval, err := uc.retriever.Retrieve(ctx, domain.RetrievalRequest{Question: req.Question})
	if err != nil {
		event := uc.newEvent(req, nil, startedAt, domain.ChatStatusError, 0)
		if pubErr := uc.publish(ctx, event); pubErr != nil {
			slog.WarnContext(ctx, "chat_event_publish_failed",
				"request_id", req.RequestID,
				"event_id", event.ID,
				"error", pubErr,
			)
		}
		return nil, err
	}

	return &ports.ChatSession{
		Retrieval: retrieval,
		Fragments: uc.answers.StreamAnswer(ctx, req.Question, retrieval.Passages),
		Finish: func(ctx context.Context, status domain.ChatStatus, fragments int) error {
			return uc.publish(ctx, uc.newEvent(req, retrieval, startedAt, status, fragments))
		},
	}, nil
}

func (uc *ChatUseCase) newEvent(
	req ports.ChatRequest,
	retrieval *domain.Retrieval,
	startedAt time.Time,
	status domain.ChatStatus,
	fragments int,
) domain.ChatEvent {
	now := uc.now()
	event := domain.ChatEvent{
		ID:         uuid.NewString(),
		RequestID:  req.RequestID,
		Question:   req.Question,
		PassageIDs: retrieval.PassageIDs(),
		Status:     status,
		Fragments:  fragments,
		DurationMS: now.Sub(startedAt).Milliseconds(),
		CreatedAt:  now.UTC(),
	}
	if retrieval != nil {
		event.FilterSource = retrieval.FilterSource
		event.NoContext = retrieval.Empty()
	}
	return event
}

// publish is best-effort and detached from request cancellation so that a
// client disconnect still records the event.
func (uc *ChatUseCase) publish(ctx context.Context, event domain.ChatEvent) error {
	if uc.publisher == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	if err := uc.publisher.PublishChatEvent(ctx, event); err != nil {
		return fmt.Errorf("publish chat event: %w", err)
	}
	return nil
}
