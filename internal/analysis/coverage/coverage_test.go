package coverage_test

import (
	"testing"

	"github.com/yeehaa123/personal-brain-sub006/internal/analysis/coverage"
	"github.com/yeehaa123/personal-brain-sub006/internal/model/note"
)

func TestScore(t *testing.T) {
	if got := coverage.Score("rust borrow checker", "notes on the rust borrow checker and lifetimes"); got != 1 {
		t.Fatalf("full coverage scored %f", got)
	}
	if got := coverage.Score("rust borrow checker", "gardening tips"); got != 0 {
		t.Fatalf("zero coverage scored %f", got)
	}
	if got := coverage.Score("the a of", "anything"); got != 0 {
		t.Fatalf("stop-word-only query scored %f", got)
	}
	got := coverage.Score("rust gardening", "rust compiler notes")
	if got <= 0 || got >= 1 {
		t.Fatalf("partial coverage out of range: %f", got)
	}
}

func TestShouldQueryExternalProfileQueriesNeverGoOut(t *testing.T) {
	engine := coverage.NewEngine(0.4)

	// Profile status wins even with no notes and explicit search intent.
	if engine.ShouldQueryExternalSources("search the web for my skills", nil, true) {
		t.Fatal("profile query must never trigger external search")
	}
}

func TestShouldQueryExternalNoNotes(t *testing.T) {
	engine := coverage.NewEngine(0.4)

	if !engine.ShouldQueryExternalSources("anything at all", nil, false) {
		t.Fatal("no relevant notes must trigger external search")
	}
	if !engine.ShouldQueryExternalSources("anything at all", []note.Note{}, false) {
		t.Fatal("empty note slice must trigger external search")
	}
}

func TestShouldQueryExternalIntentKeyword(t *testing.T) {
	engine := coverage.NewEngine(0.4)
	notes := []note.Note{{Title: "latest news digest", Content: "search wikipedia lookup latest news"}}

	// Coverage is high, but explicit intent still wins.
	if !engine.ShouldQueryExternalSources("search wikipedia for the latest news", notes, false) {
		t.Fatal("explicit external intent must trigger external search")
	}
}

func TestShouldQueryExternalCoverageThreshold(t *testing.T) {
	engine := coverage.NewEngine(0.4)

	covered := []note.Note{{Title: "Rust borrow checker", Content: "ownership lifetimes borrow checker"}}
	if engine.ShouldQueryExternalSources("explain borrow checker ownership", covered, false) {
		t.Fatal("well covered query must stay internal")
	}

	uncovered := []note.Note{{Title: "Sourdough", Content: "starter hydration baking"}}
	if !engine.ShouldQueryExternalSources("explain borrow checker ownership", uncovered, false) {
		t.Fatal("poorly covered query must trigger external search")
	}
}
