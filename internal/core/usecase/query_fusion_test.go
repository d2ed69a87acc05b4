package usecase

import (
	"testing"

	"github.com/kirillkom/agrisense-rag/internal/core/domain"
)

func TestFusePassagesKeepsStrictlyGreaterScore(t *testing.T) {
	for _, pools := range [][][]domain.Passage{
		{{{ID: "a", Content: "low", Score: 0.4}}, {{ID: "a", Content: "high", Score: 0.9}}},
		{{{ID: "a", Content: "high", Score: 0.9}}, {{ID: "a", Content: "low", Score: 0.4}}},
	} {
		out := FusePassages(pools, 5)
		if len(out) != 1 {
			t.Fatalf("expected 1 passage, got %d", len(out))
		}
		if out[0].Score != 0.9 || out[0].Content != "high" {
			t.Fatalf("expected high-score instance, got %+v", out[0])
		}
	}
}

func TestFusePassagesTieKeepsFirstSeen(t *testing.T) {
	pools := [][]domain.Passage{
		{{ID: "a", Content: "metadata", Score: 0.5}},
		{{ID: "a", Content: "fulltext", Score: 0.5}},
		{{ID: "a", Content: "vector", Score: 0.5}},
	}

	out := FusePassages(pools, 5)
	if len(out) != 1 {
		t.Fatalf("expected 1 passage, got %d", len(out))
	}
	if out[0].Content != "metadata" {
		t.Fatalf("expected first-seen instance, got %q", out[0].Content)
	}
}

func TestFusePassagesSelfFusionIsIdempotent(t *testing.T) {
	pool := []domain.Passage{
		{ID: "a", Score: 0.7},
		{ID: "b", Score: 0.2},
		{ID: "c", Score: 0.9},
	}

	single := FusePassages([][]domain.Passage{pool}, 10)
	double := FusePassages([][]domain.Passage{pool, pool}, 10)

	if len(single) != len(double) {
		t.Fatalf("expected same length, got %d and %d", len(single), len(double))
	}
	for i := range single {
		if single[i] != double[i] {
			t.Fatalf("position %d differs: %+v vs %+v", i, single[i], double[i])
		}
	}
}

func TestFusePassagesTruncatesToHighestScores(t *testing.T) {
	pool := []domain.Passage{
		{ID: "a", Score: 0.1},
		{ID: "b", Score: 0.8},
		{ID: "c", Score: 0.3},
		{ID: "d", Score: 0.9},
		{ID: "e", Score: 0.5},
	}

	out := FusePassages([][]domain.Passage{pool}, 3)
	if len(out) != 3 {
		t.Fatalf("expected 3 passages, got %d", len(out))
	}
	want := []string{"d", "b", "e"}
	for i, id := range want {
		if out[i].ID != id {
			t.Fatalf("position %d: expected %s, got %s", i, id, out[i].ID)
		}
	}
}

func TestFusePassagesEqualScoresKeepPoolOrder(t *testing.T) {
	pools := [][]domain.Passage{
		{{ID: "m", Score: 1.0}},
		{{ID: "f", Score: 1.0}},
	}

	out := FusePassages(pools, 5)
	if out[0].ID != "m" || out[1].ID != "f" {
		t.Fatalf("expected pool order on equal scores, got %+v", out)
	}
}

func TestFusePassagesRegressionFixture(t *testing.T) {
	metadata := []domain.Passage{{ID: "A", Score: 1.0}}
	fulltext := []domain.Passage{{ID: "A", Score: 0.95}, {ID: "B", Score: 0.3}}
	vector := []domain.Passage{{ID: "C", Score: 0.6}}

	out := FusePassages([][]domain.Passage{metadata, fulltext, vector}, 3)

	want := []domain.Passage{{ID: "A", Score: 1.0}, {ID: "C", Score: 0.6}, {ID: "B", Score: 0.3}}
	if len(out) != len(want) {
		t.Fatalf("expected %d passages, got %d", len(want), len(out))
	}
	for i := range want {
		if out[i] != want[i] {
			t.Fatalf("position %d: expected %+v, got %+v", i, want[i], out[i])
		}
	}
}

func TestFusePassagesEmptyPoolsReturnEmptySlice(t *testing.T) {
	out := FusePassages([][]domain.Passage{nil, {}, nil}, 5)
	if out == nil {
		t.Fatalf("expected non-nil empty slice")
	}
	if len(out) != 0 {
		t.Fatalf("expected no passages, got %d", len(out))
	}
}

func TestFusePassagesNonPositiveLimitKeepsAll(t *testing.T) {
	pool := []domain.Passage{{ID: "a", Score: 0.1}, {ID: "b", Score: 0.2}}
	if out := FusePassages([][]domain.Passage{pool}, 0); len(out) != 2 {
		t.Fatalf("expected all passages, got %d", len(out))
	}
}
