package ports

import (
	"context"
	"iter"

	"github.com/kirillkom/agrisense-rag/internal/core/domain"
)

// Retriever is the inbound contract for hybrid passage retrieval.
type Retriever interface {
	Retrieve(ctx context.Context, req domain.RetrievalRequest) (*domain.Retrieval, error)
}

// AnswerStreamer produces a lazy, non-restartable sequence of answer fragments.
type AnswerStreamer interface {
	StreamAnswer(ctx context.Context, question string, passages []domain.Passage) iter.Seq2[string, error]
}

// ChatService runs retrieval and then streams the grounded answer.
type ChatService interface {
	Chat(ctx context.Context, req ChatRequest) (*ChatSession, error)
}

type ChatRequest struct {
	Question  string
	RequestID string
}

// ChatSession is a retrieval result plus the pending answer stream.
// Finish must be called once the stream has been drained or abandoned.
type ChatSession struct {
	Retrieval *domain.Retrieval
	Fragments iter.Seq2[string, error]
	Finish    func(ctx context.Context, status domain.ChatStatus, fragments int) error
}

// DocumentChunkReader lists the chunks of a named document.
type DocumentChunkReader interface {
	ListChunks(ctx context.Context, documentName string) ([]domain.DocumentChunk, error)
}

// ChatEventRecorder is the inbound contract of the event worker.
type ChatEventRecorder interface {
	Record(ctx context.Context, event domain.ChatEvent) error
}
