package note

import "time"

// Note is a stored knowledge entry. Embedding is an opaque vector supplied by
// the embedding client; empty when the note has not been embedded yet.
type Note struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Tags      []string  `json:"tags,omitempty"`
	Embedding []float64 `json:"embedding,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
