package conversation

import "time"

// InterfaceType names the surface a conversation belongs to.
type InterfaceType string

const (
	InterfaceCLI      InterfaceType = "cli"
	InterfaceChatRoom InterfaceType = "chat-room"
)

// Turn is one attributable exchange. User and assistant turns are stored as
// separate records sharing the same query text, correlated by adjacent
// timestamps.
type Turn struct {
	ID        string         `json:"id"`
	Timestamp time.Time      `json:"timestamp"`
	Query     string         `json:"query"`
	Response  string         `json:"response,omitempty"`
	UserID    string         `json:"userId"`
	UserName  string         `json:"userName,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// Summary is a compaction of a contiguous block of archived turns.
type Summary struct {
	ID        string    `json:"id"`
	StartTime time.Time `json:"startTime"`
	EndTime   time.Time `json:"endTime"`
	Text      string    `json:"text"`
	TurnCount int       `json:"turnCount"`
}

// Conversation holds the per-room tiered history. ActiveTurns is ordered by
// timestamp ascending; ArchivedTurns is append-only and never reordered.
type Conversation struct {
	ID            string         `json:"id"`
	InterfaceType InterfaceType  `json:"interfaceType"`
	RoomID        string         `json:"roomId"`
	CreatedAt     time.Time      `json:"createdAt"`
	UpdatedAt     time.Time      `json:"updatedAt"`
	ActiveTurns   []Turn         `json:"activeTurns"`
	ArchivedTurns []Turn         `json:"archivedTurns"`
	Summaries     []Summary      `json:"summaries"`
	Metadata      map[string]any `json:"metadata,omitempty"`
}

// TurnCount is the total number of turns across both detail tiers.
func (c *Conversation) TurnCount() int {
	return len(c.ActiveTurns) + len(c.ArchivedTurns)
}

// Clone deep-copies the conversation so store callers can't mutate shared state.
func (c *Conversation) Clone() *Conversation {
	if c == nil {
		return nil
	}
	out := *c
	out.ActiveTurns = cloneTurns(c.ActiveTurns)
	out.ArchivedTurns = cloneTurns(c.ArchivedTurns)
	out.Summaries = append([]Summary(nil), c.Summaries...)
	if c.Metadata != nil {
		out.Metadata = make(map[string]any, len(c.Metadata))
		for k, v := range c.Metadata {
			out.Metadata[k] = v
		}
	}
	return &out
}

func cloneTurns(turns []Turn) []Turn {
	if turns == nil {
		return nil
	}
	out := make([]Turn, len(turns))
	copy(out, turns)
	for i := range out {
		if turns[i].Metadata == nil {
			continue
		}
		md := make(map[string]any, len(turns[i].Metadata))
		for k, v := range turns[i].Metadata {
			md[k] = v
		}
		out[i].Metadata = md
	}
	return out
}
