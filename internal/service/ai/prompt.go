package ai

import (
	"fmt"
	"strings"

	"github.com/yeehaa123/personal-brain-sub006/internal/model/external"
	"github.com/yeehaa123/personal-brain-sub006/internal/model/note"
	"github.com/yeehaa123/personal-brain-sub006/internal/model/profile"
)

// PromptInput gathers everything the pipeline collected for one query.
type PromptInput struct {
	Query           string
	Profile         *profile.Profile
	IsProfileQuery  bool
	Notes           []note.Note
	History         string
	ExternalResults []external.Result
}

const maxNoteExcerpt = 600

// BuildSystemPrompt creates the system prompt. Profile queries pin the answer
// to the stored profile; everything else answers from notes and sources.
func BuildSystemPrompt(input PromptInput) string {
	var builder strings.Builder
	builder.WriteString("You are a personal knowledge assistant answering from the owner's notes and profile. ")
	builder.WriteString("Ground every claim in the provided material and cite note titles or source names. ")
	builder.WriteString("If the material does not cover the question, say so briefly.")

	if input.Profile != nil {
		builder.WriteString("\n\nOwner profile:\n")
		builder.WriteString(formatProfile(input.Profile))
		if input.IsProfileQuery {
			builder.WriteString("\nThis question is about the owner. Answer strictly from the profile above; never speculate beyond it.")
		}
	}
	return builder.String()
}

// BuildUserPrompt assembles the user prompt from retrieved context.
func BuildUserPrompt(input PromptInput) string {
	var builder strings.Builder

	if input.History != "" {
		builder.WriteString("Conversation so far:\n")
		builder.WriteString(input.History)
		builder.WriteString("\n\n")
	}

	if len(input.Notes) > 0 {
		builder.WriteString("Relevant notes:\n")
		for i, n := range input.Notes {
			excerpt := n.Content
			if len(excerpt) > maxNoteExcerpt {
				excerpt = excerpt[:maxNoteExcerpt] + "…"
			}
			fmt.Fprintf(&builder, "%d. %s\n%s\n", i+1, n.Title, excerpt)
		}
		builder.WriteString("\n")
	}

	if len(input.ExternalResults) > 0 {
		builder.WriteString("External sources:\n")
		for i, r := range input.ExternalResults {
			fmt.Fprintf(&builder, "%d. %s (%s)\n%s\n", i+1, r.Title, r.Source, r.Snippet)
		}
		builder.WriteString("\n")
	}

	builder.WriteString("Question: ")
	builder.WriteString(input.Query)
	return builder.String()
}

func formatProfile(p *profile.Profile) string {
	var parts []string
	if p.Name != "" {
		parts = append(parts, "Name: "+p.Name)
	}
	if p.Headline != "" {
		parts = append(parts, "Headline: "+p.Headline)
	}
	if p.About != "" {
		parts = append(parts, "About: "+p.About)
	}
	if len(p.Skills) > 0 {
		parts = append(parts, "Skills: "+strings.Join(p.Skills, ", "))
	}
	if len(p.Interests) > 0 {
		parts = append(parts, "Interests: "+strings.Join(p.Interests, ", "))
	}
	return strings.Join(parts, "\n")
}
