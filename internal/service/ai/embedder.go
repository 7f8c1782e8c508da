package ai

import (
	"context"
	"hash/fnv"
	"math"
	"strings"

	"github.com/cloudwego/eino/components/embedding"
)

// HashEmbedder is a deterministic bag-of-words embedder used when no embedding
// client is configured and in tests. Terms hash into a fixed number of buckets
// and the vector is L2-normalized, so cosine similarity behaves sensibly for
// overlapping vocabularies without any I/O.
type HashEmbedder struct {
	Dimensions int
}

const defaultDimensions = 64

var _ embedding.Embedder = (*HashEmbedder)(nil)

// EmbedStrings implements the eino embedding contract.
func (e *HashEmbedder) EmbedStrings(_ context.Context, texts []string, _ ...embedding.Option) ([][]float64, error) {
	dims := e.Dimensions
	if dims <= 0 {
		dims = defaultDimensions
	}

	out := make([][]float64, len(texts))
	for i, text := range texts {
		out[i] = embedText(text, dims)
	}
	return out, nil
}

func embedText(text string, dims int) []float64 {
	vec := make([]float64, dims)
	for _, term := range strings.Fields(strings.ToLower(text)) {
		h := fnv.New32a()
		h.Write([]byte(strings.Trim(term, ".,!?;:\"'()")))
		vec[int(h.Sum32())%dims]++
	}

	var norm float64
	for _, v := range vec {
		norm += v * v
	}
	if norm == 0 {
		return vec
	}
	norm = math.Sqrt(norm)
	for i := range vec {
		vec[i] /= norm
	}
	return vec
}
