package ports

import (
	"context"
	"io"

	"github.com/kirillkom/agrisense-rag/internal/core/domain"
)

// Tokenizer segments question text into whitespace-delimited terms.
type Tokenizer interface {
	Tokenize(text string) string
}

// FilterExtractor turns a query into category filters. It never fails:
// unusable model output degrades to the empty filter set.
type FilterExtractor interface {
	ExtractFilters(ctx context.Context, query string) domain.FilterExtraction
}

// Embedder builds the query vector for similarity search.
type Embedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// PassageQuerier exposes the three read-only store query primitives.
// Implementations are bound to a single read transaction.
type PassageQuerier interface {
	SearchByFilters(ctx context.Context, filters domain.FilterSet, limit int) ([]domain.Passage, error)
	SearchFullText(ctx context.Context, query string, limit int) ([]domain.Passage, error)
	SearchVector(ctx context.Context, embedding []float32, limit int) ([]domain.Passage, error)
}

// PassageStore is the graph-backed document store.
type PassageStore interface {
	// ReadSnapshot runs fn inside one read transaction. fn may be invoked
	// more than once when the driver retries a transient failure.
	ReadSnapshot(ctx context.Context, fn func(ctx context.Context, q PassageQuerier) error) error
	ListDocumentChunks(ctx context.Context, documentName string) ([]domain.DocumentChunk, error)
	Ping(ctx context.Context) error
}

// FragmentStream is an open streaming completion. Recv returns io.EOF
// after the last fragment.
type FragmentStream interface {
	Recv() (string, error)
	Close() error
}

// AnswerGenerator opens a grounded streaming completion.
type AnswerGenerator interface {
	OpenAnswerStream(ctx context.Context, question string, passages []domain.Passage) (FragmentStream, error)
}

// ChatEventPublisher emits chat events to the message bus.
type ChatEventPublisher interface {
	PublishChatEvent(ctx context.Context, event domain.ChatEvent) error
}

// ChatEventSubscriber consumes chat events from the message bus.
type ChatEventSubscriber interface {
	SubscribeChatEvents(ctx context.Context, handler func(context.Context, domain.ChatEvent) error) error
}

// ChatEventRepository persists chat events.
type ChatEventRepository interface {
	SaveChatEvent(ctx context.Context, event domain.ChatEvent) error
}

// TextExtractor extracts plain text from an uploaded document.
type TextExtractor interface {
	Extract(ctx context.Context, filename string, body io.Reader) (*domain.ExtractedText, error)
}
