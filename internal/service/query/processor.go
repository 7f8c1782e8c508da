package query

import (
	"context"
	"log"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/yeehaa123/personal-brain-sub006/internal/analysis/coverage"
	"github.com/yeehaa123/personal-brain-sub006/internal/analysis/relevance"
	"github.com/yeehaa123/personal-brain-sub006/internal/brain"
	"github.com/yeehaa123/personal-brain-sub006/internal/memory"
	"github.com/yeehaa123/personal-brain-sub006/internal/model/conversation"
	"github.com/yeehaa123/personal-brain-sub006/internal/model/external"
	"github.com/yeehaa123/personal-brain-sub006/internal/model/note"
	"github.com/yeehaa123/personal-brain-sub006/internal/service/ai"
)

// ModelClient is the model call contract the pipeline depends on.
type ModelClient interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (ai.Completion, error)
}

// Options steer one pipeline run.
type Options struct {
	RoomID        string
	InterfaceType conversation.InterfaceType
	UserID        string
	UserName      string
}

// Citation points an answer back at its grounding material.
type Citation struct {
	Type   string `json:"type"`
	ID     string `json:"id,omitempty"`
	Title  string `json:"title"`
	Source string `json:"source,omitempty"`
}

// Result is the grounded answer returned to the caller.
type Result struct {
	Answer              string           `json:"answer"`
	Citations           []Citation       `json:"citations,omitempty"`
	ConversationID      string           `json:"conversationId"`
	Profile             relevance.Result `json:"profile"`
	UsedExternalSources bool             `json:"usedExternalSources"`
	Usage               *ai.Usage        `json:"usage,omitempty"`
}

// Config tunes the pipeline.
type Config struct {
	HistoryMaxLength   int
	NoteLimit          int
	RecentNoteFallback int
}

const defaultRoomID = "default"

var tagPattern = regexp.MustCompile(`#[\w-]+`)

// topicKeywords is the fixed set of topic terms extracted from queries for
// the keyword retrieval fallback.
var topicKeywords = []string{
	"project", "idea", "note", "learning", "book", "article",
	"goal", "meeting", "research", "recipe", "travel",
}

// Processor runs the multi-stage query pipeline: resolve room, analyze
// profile relevance, retrieve notes, load history, resolve external sources,
// assemble the prompt, invoke the model, persist the turns. Every stage is
// best-effort except model invocation, which aborts the run.
type Processor struct {
	manager  *brain.Manager
	analyzer *relevance.Analyzer
	engine   *coverage.Engine
	model    ModelClient
	cfg      Config

	mu                    sync.Mutex
	currentConversationID string
}

// NewProcessor wires the pipeline. All collaborators are injected.
func NewProcessor(manager *brain.Manager, analyzer *relevance.Analyzer, engine *coverage.Engine, model ModelClient, cfg Config) *Processor {
	if cfg.NoteLimit <= 0 {
		cfg.NoteLimit = 5
	}
	if cfg.RecentNoteFallback <= 0 {
		cfg.RecentNoteFallback = 5
	}
	return &Processor{
		manager:  manager,
		analyzer: analyzer,
		engine:   engine,
		model:    model,
		cfg:      cfg,
	}
}

// Process answers one query. A non-nil error means no answer could be
// produced; every other degradation is logged and absorbed.
func (p *Processor) Process(ctx context.Context, query string, opts Options) (*Result, error) {
	notesCtx, err := p.manager.Notes()
	if err != nil {
		return nil, err
	}
	profileCtx, err := p.manager.Profile()
	if err != nil {
		return nil, err
	}
	externalCtx, err := p.manager.External()
	if err != nil {
		return nil, err
	}
	conversationCtx, err := p.manager.Conversation()
	if err != nil {
		return nil, err
	}
	mem := conversationCtx.Memory()

	// RoomResolved
	conv, err := p.resolveRoom(ctx, mem, opts)
	if err != nil {
		return nil, err
	}

	// ProfileAnalyzed
	prof := profileCtx.GetProfile()
	analysis := p.analyzer.Analyze(ctx, query, prof)
	log.Printf("[query] profile analysis: isProfile=%t relevance=%.2f", analysis.IsProfileQuery, analysis.Relevance)

	// ContextRetrieved
	notes := p.retrieveNotes(ctx, notesCtx, query)

	// HistoryLoaded
	history, err := mem.FormatHistoryForPrompt(ctx, conv.ID, p.cfg.HistoryMaxLength)
	if err != nil {
		log.Printf("[query] history load failed, continuing without it: %v", err)
		history = ""
	}

	// ExternalSourcesResolved
	var externalResults []external.Result
	if p.manager.GetExternalSourcesEnabled() &&
		p.engine.ShouldQueryExternalSources(query, notes, analysis.IsProfileQuery) {
		results, err := externalCtx.SemanticSearch(ctx, query, 3)
		if err != nil {
			log.Printf("[query] external search failed, continuing without it: %v", err)
		} else {
			externalResults = results
		}
	}

	// PromptAssembled
	input := ai.PromptInput{
		Query:           query,
		Profile:         prof,
		IsProfileQuery:  analysis.IsProfileQuery,
		Notes:           notes,
		History:         history,
		ExternalResults: externalResults,
	}
	systemPrompt := ai.BuildSystemPrompt(input)
	userPrompt := ai.BuildUserPrompt(input)

	// ModelInvoked: the one stage whose failure aborts the pipeline.
	completion, err := p.model.Complete(ctx, systemPrompt, userPrompt)
	if err != nil {
		return nil, err
	}

	// TurnsPersisted: user turn first, then the assistant turn sharing the
	// same query text. Both writes are best-effort; the caller already has
	// the answer.
	p.persistTurns(ctx, mem, conv.ID, query, completion.Response, opts)

	return &Result{
		Answer:              completion.Response,
		Citations:           buildCitations(notes, externalResults),
		ConversationID:      conv.ID,
		Profile:             analysis,
		UsedExternalSources: len(externalResults) > 0,
		Usage:               completion.Usage,
	}, nil
}

// CurrentConversationID reports the conversation the pipeline is anchored to.
func (p *Processor) CurrentConversationID() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.currentConversationID
}

func (p *Processor) resolveRoom(ctx context.Context, mem *memory.Service, opts Options) (*conversation.Conversation, error) {
	interfaceType := opts.InterfaceType
	if interfaceType == "" {
		interfaceType = conversation.InterfaceCLI
	}

	roomID := opts.RoomID
	if roomID == "" {
		p.mu.Lock()
		current := p.currentConversationID
		p.mu.Unlock()
		if current != "" {
			if conv, err := mem.GetConversation(ctx, current); err == nil && conv != nil {
				return conv, nil
			}
		}
		roomID = defaultRoomID
	}

	conv, err := mem.GetOrCreateConversationForRoom(ctx, roomID, interfaceType)
	if err != nil {
		return nil, err
	}
	p.mu.Lock()
	p.currentConversationID = conv.ID
	p.mu.Unlock()
	return conv, nil
}

// retrieveNotes walks the retrieval ladder: semantic query+tags, tags only,
// keyword non-semantic, most recent notes. Each step is best-effort.
func (p *Processor) retrieveNotes(ctx context.Context, notesCtx *brain.NoteContext, query string) []note.Note {
	tags := extractTags(query)
	keywords := extractTopicKeywords(query)

	if notes := notesCtx.SearchNotes(ctx, query, tags, p.cfg.NoteLimit, true); len(notes) > 0 {
		return notes
	}
	if len(tags) > 0 {
		if notes := notesCtx.SearchNotes(ctx, "", tags, p.cfg.NoteLimit, false); len(notes) > 0 {
			log.Printf("[query] retrieval fell back to tags-only search")
			return notes
		}
	}
	if len(keywords) > 0 {
		if notes := notesCtx.SearchNotes(ctx, strings.Join(keywords, " "), nil, p.cfg.NoteLimit, false); len(notes) > 0 {
			log.Printf("[query] retrieval fell back to keyword search")
			return notes
		}
	}
	log.Printf("[query] retrieval fell back to %d most recent notes", p.cfg.RecentNoteFallback)
	return notesCtx.GetRecentNotes(p.cfg.RecentNoteFallback)
}

func (p *Processor) persistTurns(ctx context.Context, mem *memory.Service, conversationID, query, answer string, opts Options) {
	userID := opts.UserID
	if userID == "" {
		userID = "user"
	}
	now := time.Now().UTC()

	userTurn := conversation.Turn{
		Timestamp: now,
		Query:     query,
		UserID:    userID,
		UserName:  opts.UserName,
	}
	if _, err := mem.AddTurn(ctx, conversationID, userTurn); err != nil {
		log.Printf("[query] failed to persist user turn: %v", err)
	}

	assistantTurn := conversation.Turn{
		Timestamp: now.Add(time.Millisecond),
		Query:     query,
		Response:  answer,
		UserID:    "assistant",
	}
	if _, err := mem.AddTurn(ctx, conversationID, assistantTurn); err != nil {
		log.Printf("[query] failed to persist assistant turn: %v", err)
	}
}

func buildCitations(notes []note.Note, results []external.Result) []Citation {
	var out []Citation
	for _, n := range notes {
		out = append(out, Citation{Type: "note", ID: n.ID, Title: n.Title})
	}
	for _, r := range results {
		source := r.Source
		if source == "" {
			source = r.URL
		}
		out = append(out, Citation{Type: "external", Title: r.Title, Source: source})
	}
	return out
}

func extractTags(query string) []string {
	matches := tagPattern.FindAllString(query, -1)
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		out = append(out, strings.TrimPrefix(m, "#"))
	}
	return out
}

func extractTopicKeywords(query string) []string {
	normalized := strings.ToLower(query)
	var out []string
	for _, kw := range topicKeywords {
		if strings.Contains(normalized, kw) {
			out = append(out, kw)
		}
	}
	return out
}
