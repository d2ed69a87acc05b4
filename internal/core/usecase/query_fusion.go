package usecase

import (
	"sort"

	"github.com/kirillkom/agrisense-rag/internal/core/domain"
)

// FusePassages merges candidate pools in the given order and keeps one
// passage per id. A duplicate replaces the recorded entry only when its score
// is strictly greater, so equal scores keep the first instance seen. The
// result is ordered by score descending and truncated to limit.
func FusePassages(pools [][]domain.Passage, limit int) []domain.Passage {
	total := 0
	for _, pool := range pools {
		total += len(pool)
	}

	out := make([]domain.Passage, 0, total)
	seen := make(map[string]int, total)
	for _, pool := range pools {
		for _, passage := range pool {
			idx, ok := seen[passage.ID]
			if !ok {
				seen[passage.ID] = len(out)
				out = append(out, passage)
				continue
			}
			if passage.Score > out[idx].Score {
				out[idx] = passage
			}
		}
	}

	// Stable: equal scores stay in first-seen order.
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Score > out[j].Score
	})

	return trimPassages(out, limit)
}

func trimPassages(passages []domain.Passage, limit int) []domain.Passage {
	if limit <= 0 || len(passages) <= limit {
		return passages
	}
	return passages[:limit]
}
