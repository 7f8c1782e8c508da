package relevance

import (
	"context"
	"log"
	"math"
	"strings"

	"github.com/cloudwego/eino/components/embedding"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/viterin/vek"

	"github.com/yeehaa123/personal-brain-sub006/internal/model/profile"
)

// Result is the per-query profile classification. Ephemeral, never stored.
type Result struct {
	IsProfileQuery bool    `json:"isProfileQuery"`
	Relevance      float64 `json:"relevance"`
}

// FallbackRelevance is assumed when no embedding is available on either side.
const FallbackRelevance = 0.1

// DefaultThreshold promotes a query to profile status when semantic relevance
// exceeds it even though the lexical heuristic said no.
const DefaultThreshold = 0.7

const cacheSize = 256

var profilePhrases = []string{
	"my name", "about me", "who am i", "my profile", "my background",
	"my skills", "my experience", "my interests", "my job", "my work",
	"my education", "what do i do", "where do i work", "what am i good at",
	"tell me about myself", "my expertise", "my bio",
}

// IsProfileQuery is the lexical heuristic: a deterministic keyword match
// against first-person profile vocabulary. No I/O.
func IsProfileQuery(text string) bool {
	normalized := strings.ToLower(strings.TrimSpace(text))
	if normalized == "" {
		return false
	}
	for _, phrase := range profilePhrases {
		if strings.Contains(normalized, phrase) {
			return true
		}
	}
	return false
}

// Analyzer scores query-to-profile semantic relevance. Query embeddings are
// cached in an LRU keyed by the normalized query text.
type Analyzer struct {
	embedder  embedding.Embedder
	cache     *lru.Cache[string, []float64]
	threshold float64
}

// NewAnalyzer creates an analyzer. A nil embedder degrades every semantic
// score to FallbackRelevance. A non-positive threshold uses DefaultThreshold.
func NewAnalyzer(embedder embedding.Embedder, threshold float64) *Analyzer {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	cache, _ := lru.New[string, []float64](cacheSize)
	return &Analyzer{
		embedder:  embedder,
		cache:     cache,
		threshold: threshold,
	}
}

// Analyze classifies the query against the profile. Semantic relevance can
// promote a lexical non-match above the threshold but never demotes a lexical
// match.
func (a *Analyzer) Analyze(ctx context.Context, query string, prof *profile.Profile) Result {
	result := Result{IsProfileQuery: IsProfileQuery(query)}
	result.Relevance = a.ProfileRelevance(ctx, query, prof)
	if !result.IsProfileQuery && result.Relevance > a.threshold {
		result.IsProfileQuery = true
	}
	return result
}

// ProfileRelevance returns the cosine similarity between the query embedding
// and the profile embedding, clamped to [0,1]. Missing embeddings fall back
// to FallbackRelevance.
func (a *Analyzer) ProfileRelevance(ctx context.Context, query string, prof *profile.Profile) float64 {
	if prof == nil || len(prof.Embedding) == 0 {
		return FallbackRelevance
	}
	queryVec, err := a.embedQuery(ctx, query)
	if err != nil {
		log.Printf("[relevance] query embedding failed: %v", err)
		return FallbackRelevance
	}
	if len(queryVec) == 0 {
		return FallbackRelevance
	}
	return CosineSimilarity(queryVec, prof.Embedding)
}

func (a *Analyzer) embedQuery(ctx context.Context, query string) ([]float64, error) {
	if a.embedder == nil {
		return nil, nil
	}
	key := strings.ToLower(strings.TrimSpace(query))
	if vec, ok := a.cache.Get(key); ok {
		return vec, nil
	}
	vectors, err := a.embedder.EmbedStrings(ctx, []string{query})
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 {
		return nil, nil
	}
	a.cache.Add(key, vectors[0])
	return vectors[0], nil
}

// CosineSimilarity computes cosine similarity clamped to [0,1]. Negative
// similarities clamp to 0; mismatched, empty, or zero-norm vectors score 0.
func CosineSimilarity(x, y []float64) float64 {
	if len(x) == 0 || len(x) != len(y) {
		return 0
	}
	sim := vek.CosineSimilarity(x, y)
	if math.IsNaN(sim) || sim < 0 {
		return 0
	}
	if sim > 1 {
		return 1
	}
	return sim
}
