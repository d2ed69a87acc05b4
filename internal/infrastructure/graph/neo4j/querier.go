package neo4j

import (
	"context"
	"fmt"
	"strings"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/kirillkom/agrisense-rag/internal/core/domain"
)

const (
	searchByFiltersCypher = `
MATCH (c:Chunk)
WHERE (
    (SIZE($section_type) > 0 AND ANY(term IN $section_type WHERE term IN c.section_type)) OR
    (SIZE($crop_type) > 0 AND ANY(term IN $crop_type WHERE term IN c.crop_type)) OR
    (SIZE($key_topics) > 0 AND ANY(term IN $key_topics WHERE term IN c.key_topics)) OR
    (SIZE($organization) > 0 AND ANY(term IN $organization WHERE term IN c.organization))
)
RETURN c.id AS id, c.content AS content, 1.0 AS score
LIMIT $limit`

	searchFullTextCypher = `
CALL db.index.fulltext.queryNodes($index, $query)
YIELD node, score
RETURN node.id AS id, node.content AS content, score
ORDER BY score DESC
LIMIT $limit`

	searchVectorCypher = `
CALL db.index.vector.queryNodes($index, $limit, $embedding)
YIELD node, score
RETURN node.id AS id, node.content AS content, score`

	listChunksByDocumentCypher = `
MATCH (d:Document {name: $document_name})-[:CONTAINS]->(c:Chunk)
RETURN c.id AS id, c.content AS content
ORDER BY c.sequence`
)

// querier runs the store query primitives inside one managed transaction.
type querier struct {
	tx            neo4j.ManagedTransaction
	fulltextIndex string
	vectorIndex   string
}

func (q *querier) SearchByFilters(ctx context.Context, filters domain.FilterSet, limit int) ([]domain.Passage, error) {
	filters = filters.Normalize()
	if filters.IsEmpty() {
		return []domain.Passage{}, nil
	}
	return q.run(ctx, "metadata", searchByFiltersCypher, map[string]any{
		"section_type": filters.SectionType,
		"crop_type":    filters.CropType,
		"key_topics":   filters.KeyTopics,
		"organization": filters.Organization,
		"limit":        int64(limit),
	})
}

func (q *querier) SearchFullText(ctx context.Context, query string, limit int) ([]domain.Passage, error) {
	escaped := EscapeLucene(query)
	if escaped == "" {
		return []domain.Passage{}, nil
	}
	return q.run(ctx, "fulltext", searchFullTextCypher, map[string]any{
		"index": q.fulltextIndex,
		"query": escaped,
		"limit": int64(limit),
	})
}

func (q *querier) SearchVector(ctx context.Context, embedding []float32, limit int) ([]domain.Passage, error) {
	if len(embedding) == 0 {
		return nil, fmt.Errorf("vector search: empty embedding")
	}
	vector := make([]float64, len(embedding))
	for i, v := range embedding {
		vector[i] = float64(v)
	}
	return q.run(ctx, "vector", searchVectorCypher, map[string]any{
		"index":     q.vectorIndex,
		"limit":     int64(limit),
		"embedding": vector,
	})
}

func (q *querier) run(ctx context.Context, strategy, cypher string, params map[string]any) ([]domain.Passage, error) {
	res, err := q.tx.Run(ctx, cypher, params)
	if err != nil {
		return nil, fmt.Errorf("%s query: %w", strategy, err)
	}
	records, err := res.Collect(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s collect: %w", strategy, err)
	}

	passages := make([]domain.Passage, 0, len(records))
	for _, record := range records {
		id, content, err := idAndContent(record)
		if err != nil {
			return nil, fmt.Errorf("%s record: %w", strategy, err)
		}
		rawScore, _ := record.Get("score")
		passages = append(passages, domain.Passage{
			ID:      id,
			Content: content,
			Score:   toFloat(rawScore),
		})
	}
	return passages, nil
}

func toFloat(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int64:
		return float64(n)
	default:
		return 0
	}
}

var luceneReplacer = strings.NewReplacer(
	`\`, `\\`,
	`+`, `\+`,
	`-`, `\-`,
	`&`, `\&`,
	`|`, `\|`,
	`!`, `\!`,
	`(`, `\(`,
	`)`, `\)`,
	`{`, `\{`,
	`}`, `\}`,
	`[`, `\[`,
	`]`, `\]`,
	`^`, `\^`,
	`"`, `\"`,
	`~`, `\~`,
	`*`, `\*`,
	`?`, `\?`,
	`:`, `\:`,
	`/`, `\/`,
)

// EscapeLucene escapes query syntax characters and neutralizes the boolean
// operator keywords so user text is always searched literally.
func EscapeLucene(query string) string {
	fields := strings.Fields(query)
	for i, field := range fields {
		switch field {
		case "AND", "OR", "NOT":
			field = strings.ToLower(field)
		}
		fields[i] = luceneReplacer.Replace(field)
	}
	return strings.Join(fields, " ")
}
