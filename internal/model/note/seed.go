package note

import "time"

// Seed returns the starter notes loaded when no external note source is
// configured.
func Seed() []Note {
	now := time.Now().UTC()
	return []Note{
		{
			ID:        "note-welcome",
			Title:     "Getting started",
			Content:   "This brain answers questions grounded in your notes. Add notes over the API and ask about them in the CLI or a chat room.",
			Tags:      []string{"meta"},
			CreatedAt: now,
			UpdatedAt: now,
		},
		{
			ID:        "note-reading-list",
			Title:     "Reading list",
			Content:   "Books queued for this quarter: Designing Data-Intensive Applications, The Staff Engineer's Path. Articles on retrieval augmented generation and on note-taking workflows.",
			Tags:      []string{"book", "article", "learning"},
			CreatedAt: now,
			UpdatedAt: now,
		},
		{
			ID:        "note-project-brain",
			Title:     "Personal brain project",
			Content:   "Goals for the personal brain project: tiered conversation memory, profile-aware answers, and a decision rule for when to consult external sources.",
			Tags:      []string{"project", "idea"},
			CreatedAt: now,
			UpdatedAt: now,
		},
	}
}
