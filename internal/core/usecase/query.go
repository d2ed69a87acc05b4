package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"

	"github.com/kirillkom/agrisense-rag/internal/core/domain"
	"github.com/kirillkom/agrisense-rag/internal/core/ports"
)

const (
	defaultRetrievalLimit = 5
	maxRetrievalLimit     = 50
)

type RetrievalOptions struct {
	DefaultLimit     int
	MaxLimit         int
	QuestionMaxChars int
}

type RetrievalUseCase struct {
	tokenizer ports.Tokenizer
	extractor ports.FilterExtractor
	embedder  ports.Embedder
	store     ports.PassageStore
	opts      RetrievalOptions
}

func NewRetrievalUseCase(
	tokenizer ports.Tokenizer,
	extractor ports.FilterExtractor,
	embedder ports.Embedder,
	store ports.PassageStore,
	opts RetrievalOptions,
) *RetrievalUseCase {
	if opts.DefaultLimit <= 0 {
		opts.DefaultLimit = defaultRetrievalLimit
	}
	if opts.MaxLimit <= 0 {
		opts.MaxLimit = maxRetrievalLimit
	}
	if opts.DefaultLimit > opts.MaxLimit {
		opts.DefaultLimit = opts.MaxLimit
	}
	return &RetrievalUseCase{
		tokenizer: tokenizer,
		extractor: extractor,
		embedder:  embedder,
		store:     store,
		opts:      opts,
	}
}

func (uc *RetrievalUseCase) Retrieve(ctx context.Context, req domain.RetrievalRequest) (*domain.Retrieval, error) {
	question := strings.TrimSpace(req.Question)
	if question == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "retrieve", errors.New("question is required"))
	}
	if uc.opts.QuestionMaxChars > 0 && utf8.RuneCountInString(question) > uc.opts.QuestionMaxChars {
		return nil, domain.WrapError(domain.ErrInvalidInput, "retrieve", fmt.Errorf("question exceeds %d characters", uc.opts.QuestionMaxChars))
	}
	limit := uc.resolveLimit(req.Limit)

	query := uc.tokenizer.Tokenize(question)

	extraction, embedding, err := uc.prepareQuery(ctx, query, req.Filters)
	if err != nil {
		return nil, err
	}

	var pools [3][]domain.Passage
	err = uc.store.ReadSnapshot(ctx, func(ctx context.Context, q ports.PassageQuerier) error {
		// The driver may replay this function; start from clean pools.
		pools = [3][]domain.Passage{}

		if !extraction.Filters.IsEmpty() {
			metadata, err := q.SearchByFilters(ctx, extraction.Filters, limit)
			if err != nil {
				return fmt.Errorf("metadata search: %w", err)
			}
			pools[0] = metadata
		}

		fulltext, err := q.SearchFullText(ctx, query, limit)
		if err != nil {
			return fmt.Errorf("fulltext search: %w", err)
		}
		pools[1] = fulltext

		vector, err := q.SearchVector(ctx, embedding, limit)
		if err != nil {
			return fmt.Errorf("vector search: %w", err)
		}
		pools[2] = vector
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("read passages: %w", err)
	}

	return &domain.Retrieval{
		Passages:     FusePassages(pools[:], limit),
		Filters:      extraction.Filters,
		FilterSource: extraction.Source,
		Candidates: domain.CandidateCounts{
			Metadata: len(pools[0]),
			FullText: len(pools[1]),
			Vector:   len(pools[2]),
		},
	}, nil
}

// prepareQuery runs filter extraction and query embedding concurrently.
// Extraction cannot fail; an embedding error aborts retrieval.
func (uc *RetrievalUseCase) prepareQuery(
	ctx context.Context,
	query string,
	override *domain.FilterSet,
) (domain.FilterExtraction, []float32, error) {
	var (
		extraction domain.FilterExtraction
		embedding  []float32
	)

	g, gctx := errgroup.WithContext(ctx)
	if override != nil {
		extraction = domain.FilterExtraction{Filters: override.Normalize(), Source: domain.FilterSourceCaller}
	} else {
		g.Go(func() error {
			extraction = uc.extractor.ExtractFilters(gctx, query)
			extraction.Filters = extraction.Filters.Normalize()
			return nil
		})
	}
	g.Go(func() error {
		vector, err := uc.embedder.EmbedQuery(gctx, query)
		if err != nil {
			return fmt.Errorf("embed query: %w", err)
		}
		embedding = vector
		return nil
	})

	if err := g.Wait(); err != nil {
		return domain.FilterExtraction{}, nil, err
	}
	return extraction, embedding, nil
}

func (uc *RetrievalUseCase) resolveLimit(limit int) int {
	if limit <= 0 {
		return uc.opts.DefaultLimit
	}
	if limit > uc.opts.MaxLimit {
		return uc.opts.MaxLimit
	}
	return limit
}
