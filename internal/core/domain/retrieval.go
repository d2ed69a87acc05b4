package domain

import "strings"

// Passage is a retrievable unit of document content.
type Passage struct {
	ID      string  `json:"id"`
	Content string  `json:"content"`
	Score   float64 `json:"score"`
}

// FilterSet holds the category labels extracted from a question.
// All four categories are always present; absence of signal is an empty list.
type FilterSet struct {
	SectionType  []string `json:"section_type"`
	CropType     []string `json:"crop_type"`
	KeyTopics    []string `json:"key_topics"`
	Organization []string `json:"organization"`
}

func EmptyFilterSet() FilterSet {
	return FilterSet{
		SectionType:  []string{},
		CropType:     []string{},
		KeyTopics:    []string{},
		Organization: []string{},
	}
}

func (f FilterSet) IsEmpty() bool {
	return len(f.SectionType) == 0 &&
		len(f.CropType) == 0 &&
		len(f.KeyTopics) == 0 &&
		len(f.Organization) == 0
}

// Normalize replaces nil categories with empty lists and drops blank labels.
func (f FilterSet) Normalize() FilterSet {
	return FilterSet{
		SectionType:  cleanLabels(f.SectionType),
		CropType:     cleanLabels(f.CropType),
		KeyTopics:    cleanLabels(f.KeyTopics),
		Organization: cleanLabels(f.Organization),
	}
}

func cleanLabels(labels []string) []string {
	out := make([]string, 0, len(labels))
	for _, label := range labels {
		label = strings.TrimSpace(label)
		if label == "" {
			continue
		}
		out = append(out, label)
	}
	return out
}

// FilterSource records which branch produced the filters of a retrieval.
type FilterSource string

const (
	FilterSourceModel    FilterSource = "model"
	FilterSourceFallback FilterSource = "fallback"
	FilterSourceCaller   FilterSource = "caller"
)

// FilterExtraction is the outcome of filter extraction: either the parsed
// model output or the all-empty fallback. It never carries an error.
type FilterExtraction struct {
	Filters FilterSet
	Source  FilterSource
}

func ParsedFilters(filters FilterSet) FilterExtraction {
	return FilterExtraction{Filters: filters.Normalize(), Source: FilterSourceModel}
}

func FallbackFilters() FilterExtraction {
	return FilterExtraction{Filters: EmptyFilterSet(), Source: FilterSourceFallback}
}

type RetrievalRequest struct {
	Question string
	Limit    int
	// Filters overrides model extraction when non-nil.
	Filters *FilterSet
}

type CandidateCounts struct {
	Metadata int `json:"metadata"`
	FullText int `json:"fulltext"`
	Vector   int `json:"vector"`
}

// Retrieval is the ranked result of one retrieve call.
type Retrieval struct {
	Passages     []Passage       `json:"passages"`
	Filters      FilterSet       `json:"filters"`
	FilterSource FilterSource    `json:"filter_source"`
	Candidates   CandidateCounts `json:"candidates"`
}

func (r *Retrieval) Empty() bool {
	return r == nil || len(r.Passages) == 0
}

func (r *Retrieval) PassageIDs() []string {
	if r == nil {
		return []string{}
	}
	ids := make([]string, 0, len(r.Passages))
	for _, p := range r.Passages {
		ids = append(ids, p.ID)
	}
	return ids
}
