package coverage

import (
	"strings"

	"github.com/yeehaa123/personal-brain-sub006/internal/model/note"
)

// DefaultThreshold is the minimum best-note coverage below which the decision
// engine reaches for external sources.
const DefaultThreshold = 0.4

var externalIntentKeywords = []string{
	"search", "wikipedia", "look up", "lookup", "latest", "news",
	"current", "recent events", "today", "who is", "what is happening",
}

var stopWords = map[string]bool{
	"a": true, "an": true, "the": true, "is": true, "are": true, "was": true,
	"of": true, "to": true, "in": true, "on": true, "for": true, "and": true,
	"or": true, "do": true, "does": true, "what": true, "how": true,
	"my": true, "me": true, "i": true, "about": true,
}

// Score returns the fraction of meaningful query terms present in the
// content, in [0,1].
func Score(query, content string) float64 {
	terms := queryTerms(query)
	if len(terms) == 0 {
		return 0
	}
	haystack := strings.ToLower(content)
	hits := 0
	for _, term := range terms {
		if strings.Contains(haystack, term) {
			hits++
		}
	}
	return float64(hits) / float64(len(terms))
}

// Engine is the heuristic gate deciding whether retrieval should be augmented
// with external search. Pure, no side effects.
type Engine struct {
	threshold float64
}

// NewEngine creates an engine. A non-positive threshold uses DefaultThreshold.
func NewEngine(threshold float64) *Engine {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return &Engine{threshold: threshold}
}

// ShouldQueryExternalSources evaluates the fixed precedence:
//  1. profile queries never go to the web
//  2. no relevant notes at all
//  3. explicit external-intent keyword in the query
//  4. best per-note coverage below the threshold
func (e *Engine) ShouldQueryExternalSources(query string, relevantNotes []note.Note, profileQuery bool) bool {
	if profileQuery {
		return false
	}
	if len(relevantNotes) == 0 {
		return true
	}

	normalized := strings.ToLower(query)
	for _, keyword := range externalIntentKeywords {
		if strings.Contains(normalized, keyword) {
			return true
		}
	}

	best := 0.0
	for _, n := range relevantNotes {
		if score := Score(query, n.Title+" "+n.Content); score > best {
			best = score
		}
	}
	return best < e.threshold
}

func queryTerms(query string) []string {
	fields := strings.FieldsFunc(strings.ToLower(query), func(r rune) bool {
		return !('a' <= r && r <= 'z' || '0' <= r && r <= '9')
	})
	var terms []string
	for _, f := range fields {
		if len(f) < 2 || stopWords[f] {
			continue
		}
		terms = append(terms, f)
	}
	return terms
}
