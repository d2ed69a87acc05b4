package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/kirillkom/agrisense-rag/internal/core/domain"
	"github.com/kirillkom/agrisense-rag/internal/core/ports"
)

type tokenizerFake struct {
	out string
}

func (f *tokenizerFake) Tokenize(text string) string {
	if f.out != "" {
		return f.out
	}
	return text
}

type filterExtractorFake struct {
	mu         sync.Mutex
	extraction domain.FilterExtraction
	calls      int
	query      string
}

func (f *filterExtractorFake) ExtractFilters(_ context.Context, query string) domain.FilterExtraction {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.query = query
	return f.extraction
}

type embedderFake struct {
	mu    sync.Mutex
	query string
	err   error
}

func (f *embedderFake) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.query = text
	if f.err != nil {
		return nil, f.err
	}
	return []float32{0.1, 0.2}, nil
}

type querierFake struct {
	metadata []domain.Passage
	fulltext []domain.Passage
	vector   []domain.Passage

	fulltextErr error
	vectorErr   error

	metadataCalls int
	fulltextQuery string
	limits        []int
	embedding     []float32
}

func (f *querierFake) SearchByFilters(_ context.Context, _ domain.FilterSet, limit int) ([]domain.Passage, error) {
	f.metadataCalls++
	f.limits = append(f.limits, limit)
	return f.metadata, nil
}

func (f *querierFake) SearchFullText(_ context.Context, query string, limit int) ([]domain.Passage, error) {
	f.fulltextQuery = query
	f.limits = append(f.limits, limit)
	if f.fulltextErr != nil {
		return nil, f.fulltextErr
	}
	return f.fulltext, nil
}

func (f *querierFake) SearchVector(_ context.Context, embedding []float32, limit int) ([]domain.Passage, error) {
	f.embedding = embedding
	f.limits = append(f.limits, limit)
	if f.vectorErr != nil {
		return nil, f.vectorErr
	}
	return f.vector, nil
}

type passageStoreFake struct {
	querier   *querierFake
	snapshots int
	replays   int
	err       error
}

func (f *passageStoreFake) ReadSnapshot(ctx context.Context, fn func(context.Context, ports.PassageQuerier) error) error {
	f.snapshots++
	if f.err != nil {
		return f.err
	}
	for i := 0; i < f.replays; i++ {
		if err := fn(ctx, f.querier); err != nil {
			return err
		}
	}
	return fn(ctx, f.querier)
}

func (f *passageStoreFake) ListDocumentChunks(context.Context, string) ([]domain.DocumentChunk, error) {
	return nil, nil
}

func (f *passageStoreFake) Ping(context.Context) error { return f.err }

func newRetrievalFixture() (*filterExtractorFake, *embedderFake, *passageStoreFake) {
	extractor := &filterExtractorFake{extraction: domain.FallbackFilters()}
	embedder := &embedderFake{}
	store := &passageStoreFake{querier: &querierFake{}}
	return extractor, embedder, store
}

func TestRetrieveSkipsMetadataSearchForEmptyFilters(t *testing.T) {
	extractor, embedder, store := newRetrievalFixture()
	store.querier.metadata = []domain.Passage{{ID: "never", Score: 1}}
	uc := NewRetrievalUseCase(&tokenizerFake{}, extractor, embedder, store, RetrievalOptions{})

	result, err := uc.Retrieve(context.Background(), domain.RetrievalRequest{Question: "q"})
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}
	if store.querier.metadataCalls != 0 {
		t.Fatalf("expected metadata search to be skipped, got %d calls", store.querier.metadataCalls)
	}
	if result.Candidates.Metadata != 0 {
		t.Fatalf("expected zero metadata candidates, got %d", result.Candidates.Metadata)
	}
	if result.FilterSource != domain.FilterSourceFallback {
		t.Fatalf("expected fallback filter source, got %s", result.FilterSource)
	}
}

func TestRetrieveRegressionFixture(t *testing.T) {
	extractor, embedder, store := newRetrievalFixture()
	extractor.extraction = domain.ParsedFilters(domain.FilterSet{CropType: []string{"ข้าว"}, KeyTopics: []string{"ราคา"}})
	store.querier.metadata = []domain.Passage{{ID: "A", Content: "a", Score: 1.0}}
	store.querier.fulltext = []domain.Passage{{ID: "A", Content: "a", Score: 0.95}, {ID: "B", Content: "b", Score: 0.3}}
	store.querier.vector = []domain.Passage{{ID: "C", Content: "c", Score: 0.6}}

	tokenizer := &tokenizerFake{out: "ราคา ข้าว ปี นี้ เป็น อย่างไร"}
	uc := NewRetrievalUseCase(tokenizer, extractor, embedder, store, RetrievalOptions{})

	result, err := uc.Retrieve(context.Background(), domain.RetrievalRequest{Question: "ราคาข้าวปีนี้เป็นอย่างไร", Limit: 3})
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}

	want := []domain.Passage{
		{ID: "A", Content: "a", Score: 1.0},
		{ID: "C", Content: "c", Score: 0.6},
		{ID: "B", Content: "b", Score: 0.3},
	}
	if len(result.Passages) != len(want) {
		t.Fatalf("expected %d passages, got %+v", len(want), result.Passages)
	}
	for i := range want {
		if result.Passages[i] != want[i] {
			t.Fatalf("position %d: expected %+v, got %+v", i, want[i], result.Passages[i])
		}
	}
	if result.Candidates != (domain.CandidateCounts{Metadata: 1, FullText: 2, Vector: 1}) {
		t.Fatalf("unexpected candidate counts: %+v", result.Candidates)
	}

	if extractor.query != tokenizer.out || embedder.query != tokenizer.out || store.querier.fulltextQuery != tokenizer.out {
		t.Fatalf("expected tokenized query everywhere, got extract=%q embed=%q fulltext=%q",
			extractor.query, embedder.query, store.querier.fulltextQuery)
	}
	for _, limit := range store.querier.limits {
		if limit != 3 {
			t.Fatalf("expected per-strategy limit=3, got %v", store.querier.limits)
		}
	}
	if store.snapshots != 1 {
		t.Fatalf("expected one read snapshot, got %d", store.snapshots)
	}
}

func TestRetrieveCallerFiltersBypassExtraction(t *testing.T) {
	extractor, embedder, store := newRetrievalFixture()
	store.querier.metadata = []domain.Passage{{ID: "m", Score: 1}}
	uc := NewRetrievalUseCase(&tokenizerFake{}, extractor, embedder, store, RetrievalOptions{})

	override := domain.FilterSet{Organization: []string{"กระทรวงเกษตร"}}
	result, err := uc.Retrieve(context.Background(), domain.RetrievalRequest{Question: "q", Filters: &override})
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}
	if extractor.calls != 0 {
		t.Fatalf("expected extractor not to be called")
	}
	if result.FilterSource != domain.FilterSourceCaller {
		t.Fatalf("expected caller filter source, got %s", result.FilterSource)
	}
	if result.Filters.SectionType == nil || result.Filters.CropType == nil || result.Filters.KeyTopics == nil {
		t.Fatalf("expected normalized non-nil categories, got %+v", result.Filters)
	}
	if store.querier.metadataCalls != 1 {
		t.Fatalf("expected metadata search once, got %d", store.querier.metadataCalls)
	}
}

func TestRetrieveEmbeddingErrorAbortsBeforeStore(t *testing.T) {
	extractor, embedder, store := newRetrievalFixture()
	embedder.err = errors.New("embed fail")
	uc := NewRetrievalUseCase(&tokenizerFake{}, extractor, embedder, store, RetrievalOptions{})

	_, err := uc.Retrieve(context.Background(), domain.RetrievalRequest{Question: "q"})
	if err == nil {
		t.Fatalf("expected embedding error")
	}
	if store.snapshots != 0 {
		t.Fatalf("expected no store access, got %d snapshots", store.snapshots)
	}
}

func TestRetrieveStoreErrorDropsPartialResults(t *testing.T) {
	extractor, embedder, store := newRetrievalFixture()
	store.querier.fulltext = []domain.Passage{{ID: "f", Score: 0.5}}
	store.querier.vectorErr = errors.New("index offline")
	uc := NewRetrievalUseCase(&tokenizerFake{}, extractor, embedder, store, RetrievalOptions{})

	result, err := uc.Retrieve(context.Background(), domain.RetrievalRequest{Question: "q"})
	if err == nil {
		t.Fatalf("expected store error")
	}
	if result != nil {
		t.Fatalf("expected no partial result, got %+v", result)
	}
}

func TestRetrieveEmptyStoreReturnsEmptyPassages(t *testing.T) {
	extractor, embedder, store := newRetrievalFixture()
	uc := NewRetrievalUseCase(&tokenizerFake{}, extractor, embedder, store, RetrievalOptions{})

	result, err := uc.Retrieve(context.Background(), domain.RetrievalRequest{Question: "q"})
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}
	if !result.Empty() {
		t.Fatalf("expected empty retrieval, got %+v", result.Passages)
	}
	if result.Passages == nil {
		t.Fatalf("expected non-nil passages slice")
	}
}

func TestRetrieveReplayedSnapshotDoesNotDuplicateCandidates(t *testing.T) {
	extractor, embedder, store := newRetrievalFixture()
	store.replays = 1
	store.querier.fulltext = []domain.Passage{{ID: "f", Score: 0.5}}
	uc := NewRetrievalUseCase(&tokenizerFake{}, extractor, embedder, store, RetrievalOptions{})

	result, err := uc.Retrieve(context.Background(), domain.RetrievalRequest{Question: "q"})
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}
	if result.Candidates.FullText != 1 {
		t.Fatalf("expected candidates from the last attempt only, got %+v", result.Candidates)
	}
}

func TestRetrieveLimits(t *testing.T) {
	tests := []struct {
		name  string
		limit int
		want  int
	}{
		{name: "default", limit: 0, want: 5},
		{name: "explicit", limit: 7, want: 7},
		{name: "capped", limit: 500, want: 50},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			extractor, embedder, store := newRetrievalFixture()
			uc := NewRetrievalUseCase(&tokenizerFake{}, extractor, embedder, store, RetrievalOptions{})

			if _, err := uc.Retrieve(context.Background(), domain.RetrievalRequest{Question: "q", Limit: tt.limit}); err != nil {
				t.Fatalf("Retrieve() error = %v", err)
			}
			if got := store.querier.limits[0]; got != tt.want {
				t.Fatalf("expected limit=%d, got %d", tt.want, got)
			}
		})
	}
}

func TestRetrieveRejectsInvalidQuestion(t *testing.T) {
	extractor, embedder, store := newRetrievalFixture()
	uc := NewRetrievalUseCase(&tokenizerFake{}, extractor, embedder, store, RetrievalOptions{QuestionMaxChars: 4})

	for _, question := range []string{"   ", "ข้าวราคา"} {
		_, err := uc.Retrieve(context.Background(), domain.RetrievalRequest{Question: question})
		if !domain.IsKind(err, domain.ErrInvalidInput) {
			t.Fatalf("question %q: expected ErrInvalidInput, got %v", question, err)
		}
	}
	if store.snapshots != 0 {
		t.Fatalf("expected no store access")
	}
}
