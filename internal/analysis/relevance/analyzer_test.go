package relevance_test

import (
	"context"
	"math"
	"testing"

	"github.com/yeehaa123/personal-brain-sub006/internal/analysis/relevance"
	"github.com/yeehaa123/personal-brain-sub006/internal/model/profile"
	"github.com/yeehaa123/personal-brain-sub006/internal/service/ai"
)

func TestIsProfileQuery(t *testing.T) {
	cases := []struct {
		query string
		want  bool
	}{
		{"What are my skills?", true},
		{"Tell me about me", true},
		{"WHO AM I supposed to contact?", true},
		{"What is the capital of France?", false},
		{"", false},
		{"   ", false},
	}

	for _, tc := range cases {
		if got := relevance.IsProfileQuery(tc.query); got != tc.want {
			t.Fatalf("IsProfileQuery(%q) = %t, want %t", tc.query, got, tc.want)
		}
	}
}

func TestAnalyzeFallbackWithoutEmbeddings(t *testing.T) {
	analyzer := relevance.NewAnalyzer(nil, 0.7)

	result := analyzer.Analyze(context.Background(), "what is the weather", &profile.Profile{Name: "Ada"})
	if result.IsProfileQuery {
		t.Fatal("fallback relevance must not promote the query")
	}
	if result.Relevance != relevance.FallbackRelevance {
		t.Fatalf("unexpected relevance: %f", result.Relevance)
	}
}

func TestAnalyzePromotesAboveThreshold(t *testing.T) {
	embedder := &ai.HashEmbedder{}
	analyzer := relevance.NewAnalyzer(embedder, 0.7)
	ctx := context.Background()

	text := "distributed systems and database internals"
	vectors, err := embedder.EmbedStrings(ctx, []string{text})
	if err != nil {
		t.Fatalf("EmbedStrings err: %v", err)
	}
	prof := &profile.Profile{Name: "Ada", Embedding: vectors[0]}

	// Identical text scores 1.0, which exceeds the threshold.
	promoted := analyzer.Analyze(ctx, text, prof)
	if !promoted.IsProfileQuery {
		t.Fatalf("expected promotion at relevance %f", promoted.Relevance)
	}

	unrelated := analyzer.Analyze(ctx, "good pasta recipes", prof)
	if unrelated.IsProfileQuery {
		t.Fatalf("unrelated query promoted at relevance %f", unrelated.Relevance)
	}
}

func TestAnalyzeNeverDemotesLexicalMatch(t *testing.T) {
	analyzer := relevance.NewAnalyzer(nil, 0.7)

	// Lexical match with fallback relevance far below the threshold.
	result := analyzer.Analyze(context.Background(), "what are my skills", nil)
	if !result.IsProfileQuery {
		t.Fatal("lexical match must stay a profile query regardless of relevance")
	}
	if result.Relevance != relevance.FallbackRelevance {
		t.Fatalf("unexpected relevance: %f", result.Relevance)
	}
}

func TestCosineSimilarity(t *testing.T) {
	if got := relevance.CosineSimilarity([]float64{1, 0}, []float64{1, 0}); math.Abs(got-1) > 1e-9 {
		t.Fatalf("identical vectors scored %f", got)
	}
	if got := relevance.CosineSimilarity([]float64{1, 0}, []float64{0, 1}); got != 0 {
		t.Fatalf("orthogonal vectors scored %f", got)
	}
	if got := relevance.CosineSimilarity([]float64{1, 0}, []float64{-1, 0}); got != 0 {
		t.Fatalf("negative similarity must clamp to 0, got %f", got)
	}
	if got := relevance.CosineSimilarity(nil, []float64{1}); got != 0 {
		t.Fatalf("mismatched vectors scored %f", got)
	}
	if got := relevance.CosineSimilarity([]float64{0, 0}, []float64{1, 2}); got != 0 {
		t.Fatalf("zero-norm vector must score 0, got %f", got)
	}
	if got := relevance.CosineSimilarity([]float64{0, 0}, []float64{0, 0}); got != 0 {
		t.Fatalf("two zero-norm vectors must score 0, got %f", got)
	}
}
