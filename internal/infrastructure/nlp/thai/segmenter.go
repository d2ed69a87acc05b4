// Package thai segments Thai text into whitespace-delimited words for the
// full-text index. Thai has no spaces between words, so the index only
// matches terms after segmentation.
package thai

import (
	"bufio"
	_ "embed"
	"fmt"
	"io"
	"strings"
	"unicode"
)

//go:embed words_th.txt
var defaultWords string

type trieNode struct {
	children map[rune]*trieNode
	word     bool
}

func (n *trieNode) insert(word []rune) bool {
	node := n
	for _, r := range word {
		next, ok := node.children[r]
		if !ok {
			next = &trieNode{children: map[rune]*trieNode{}}
			node.children[r] = next
		}
		node = next
	}
	if node.word {
		return false
	}
	node.word = true
	return true
}

// Segmenter is a dictionary maximal-matching segmenter. Among all splits of
// a Thai run it picks the one with the fewest out-of-dictionary clusters,
// then the fewest tokens. Safe for concurrent use after construction.
type Segmenter struct {
	root *trieNode
	size int
}

// New builds a segmenter from the embedded dictionary plus extra words.
func New(extra ...string) *Segmenter {
	s := &Segmenter{root: &trieNode{children: map[rune]*trieNode{}}}
	// The embedded list is a string literal; scanning it cannot fail.
	_ = s.load(strings.NewReader(defaultWords))
	for _, word := range extra {
		s.add(word)
	}
	return s
}

// NewWithDictionary builds a segmenter from the embedded dictionary, the
// word list read from r (one word per line, "#" starts a comment line) and
// extra words.
func NewWithDictionary(r io.Reader, extra ...string) (*Segmenter, error) {
	s := New(extra...)
	if err := s.load(r); err != nil {
		return nil, fmt.Errorf("load thai dictionary: %w", err)
	}
	return s, nil
}

func (s *Segmenter) load(r io.Reader) error {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		s.add(scanner.Text())
	}
	return scanner.Err()
}

func (s *Segmenter) add(line string) {
	word := strings.TrimSpace(strings.TrimPrefix(line, "\ufeff"))
	if word == "" || strings.HasPrefix(word, "#") {
		return
	}
	if s.root.insert([]rune(word)) {
		s.size++
	}
}

// Size reports the number of distinct dictionary entries.
func (s *Segmenter) Size() int {
	return s.size
}

// Tokenize returns the segmented words of text joined by single spaces.
func (s *Segmenter) Tokenize(text string) string {
	return strings.Join(s.Segment(text), " ")
}

// Segment splits text into words. Non-Thai text is split on whitespace and
// punctuation; Thai runs go through dictionary matching.
func (s *Segmenter) Segment(text string) []string {
	var (
		tokens []string
		run    []rune
		thai   bool
	)
	flush := func() {
		if len(run) == 0 {
			return
		}
		if thai {
			tokens = append(tokens, s.segmentThai(run)...)
		} else {
			tokens = append(tokens, string(run))
		}
		run = run[:0]
	}

	for _, r := range text {
		if isSeparator(r) {
			flush()
			continue
		}
		isThai := isThaiRune(r)
		if len(run) > 0 && isThai != thai {
			flush()
		}
		thai = isThai
		run = append(run, r)
	}
	flush()

	if tokens == nil {
		return []string{}
	}
	return tokens
}

type step struct {
	unknown int
	tokens  int
	prev    int
	known   bool
	reached bool
}

func (a step) better(b step) bool {
	if !b.reached {
		return true
	}
	if a.unknown != b.unknown {
		return a.unknown < b.unknown
	}
	return a.tokens < b.tokens
}

func (s *Segmenter) segmentThai(run []rune) []string {
	bounds := clusterBounds(run)
	// index of each boundary by rune offset; -1 when the offset splits a cluster.
	boundAt := make([]int, len(run)+1)
	for i := range boundAt {
		boundAt[i] = -1
	}
	for i, offset := range bounds {
		boundAt[offset] = i
	}

	best := make([]step, len(bounds))
	best[0] = step{reached: true, prev: -1}
	for i := 0; i < len(bounds)-1; i++ {
		if !best[i].reached {
			continue
		}
		start := bounds[i]

		node := s.root
		for pos := start; pos < len(run); pos++ {
			node = node.children[run[pos]]
			if node == nil {
				break
			}
			j := boundAt[pos+1]
			if !node.word || j < 0 {
				continue
			}
			candidate := step{unknown: best[i].unknown, tokens: best[i].tokens + 1, prev: i, known: true, reached: true}
			if candidate.better(best[j]) {
				best[j] = candidate
			}
		}

		candidate := step{unknown: best[i].unknown + 1, tokens: best[i].tokens + 1, prev: i, reached: true}
		if candidate.better(best[i+1]) {
			best[i+1] = candidate
		}
	}

	type piece struct {
		from, to int
		known    bool
	}
	var pieces []piece
	for j := len(bounds) - 1; j > 0; j = best[j].prev {
		pieces = append(pieces, piece{from: bounds[best[j].prev], to: bounds[j], known: best[j].known})
	}

	out := make([]string, 0, len(pieces))
	for k := len(pieces) - 1; k >= 0; k-- {
		p := pieces[k]
		// Adjacent unknown clusters form a single token.
		if !p.known && k+1 < len(pieces) && !pieces[k+1].known && len(out) > 0 {
			out[len(out)-1] += string(run[p.from:p.to])
			continue
		}
		out = append(out, string(run[p.from:p.to]))
	}
	return out
}

// clusterBounds returns the rune offsets at which a word may start or end,
// including 0 and len(run). Leading vowels bind to the following consonant;
// above/below vowels, tone marks and following vowels bind to the preceding one.
func clusterBounds(run []rune) []int {
	bounds := []int{0}
	for i := 1; i < len(run); i++ {
		if isLeadingVowel(run[i-1]) || isTrailing(run[i]) {
			continue
		}
		bounds = append(bounds, i)
	}
	return append(bounds, len(run))
}

func isThaiRune(r rune) bool {
	return r >= 0x0E01 && r <= 0x0E5B
}

func isLeadingVowel(r rune) bool {
	return r >= 0x0E40 && r <= 0x0E44
}

func isTrailing(r rune) bool {
	switch {
	case r == 0x0E31, r >= 0x0E34 && r <= 0x0E3A, r >= 0x0E47 && r <= 0x0E4E:
		return true
	case r == 0x0E30, r == 0x0E32, r == 0x0E33, r == 0x0E45:
		return true
	default:
		return false
	}
}

func isSeparator(r rune) bool {
	if isThaiRune(r) {
		return false
	}
	return unicode.IsSpace(r) || unicode.IsPunct(r) || unicode.IsSymbol(r)
}
