package neo4j

import (
	"context"
	"testing"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/kirillkom/agrisense-rag/internal/core/domain"
)

func TestEscapeLucene(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "ราคา ข้าว ปี นี้", want: "ราคา ข้าว ปี นี้"},
		{in: "  rice   price ", want: "rice price"},
		{in: "ข้าว (หอมมะลิ)?", want: `ข้าว \(หอมมะลิ\)\?`},
		{in: `a+b -c "d" e:f g/h`, want: `a\+b \-c \"d\" e\:f g\/h`},
		{in: `x && y || !z`, want: `x \&\& y \|\| \!z`},
		{in: "rice AND price NOT OR", want: "rice and price not or"},
		{in: `c:\path~*`, want: `c\:\\path\~\*`},
		{in: "   ", want: ""},
	}

	for _, tt := range tests {
		if got := EscapeLucene(tt.in); got != tt.want {
			t.Fatalf("EscapeLucene(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestIDAndContent(t *testing.T) {
	record := &neo4j.Record{Keys: []string{"id", "content"}, Values: []any{"chunk-1", "ข้าว"}}
	id, content, err := idAndContent(record)
	if err != nil || id != "chunk-1" || content != "ข้าว" {
		t.Fatalf("unexpected result: %q %q %v", id, content, err)
	}

	record = &neo4j.Record{Keys: []string{"id", "content"}, Values: []any{int64(42), nil}}
	id, content, err = idAndContent(record)
	if err != nil || id != "42" || content != "" {
		t.Fatalf("unexpected result for integer id: %q %q %v", id, content, err)
	}

	record = &neo4j.Record{Keys: []string{"content"}, Values: []any{"x"}}
	if _, _, err := idAndContent(record); err == nil {
		t.Fatalf("expected error for record without id")
	}
}

func TestToFloat(t *testing.T) {
	for _, tt := range []struct {
		in   any
		want float64
	}{
		{in: 0.75, want: 0.75},
		{in: float32(0.5), want: 0.5},
		{in: int64(1), want: 1},
		{in: nil, want: 0},
	} {
		if got := toFloat(tt.in); got != tt.want {
			t.Fatalf("toFloat(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

// A querier without a transaction panics on any store round-trip, so these
// calls prove the short-circuits never reach the driver.
func TestQuerierShortCircuits(t *testing.T) {
	q := &querier{}
	ctx := context.Background()

	passages, err := q.SearchByFilters(ctx, domain.FilterSet{CropType: []string{"  "}}, 5)
	if err != nil || passages == nil || len(passages) != 0 {
		t.Fatalf("expected empty metadata result, got %v, %v", passages, err)
	}

	passages, err = q.SearchFullText(ctx, " \t ", 5)
	if err != nil || passages == nil || len(passages) != 0 {
		t.Fatalf("expected empty fulltext result, got %v, %v", passages, err)
	}

	if _, err := q.SearchVector(ctx, nil, 5); err == nil {
		t.Fatal("expected error for empty embedding")
	}
}
