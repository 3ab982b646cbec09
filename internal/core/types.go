package core

const (
	AppName    = "breeze"
	AppVersion = "0.1.0"
)

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// DefaultUserID is used when the caller is unauthenticated.
const DefaultUserID = "default"

type Message struct {
	Role      string `json:"role"`
	Content   string `json:"content"`
	Timestamp int64  `json:"timestamp,omitempty"`
}

// Metadata is the derived enrichment of a stored conversation. The JSON
// field names are load-bearing: existing readers of the database rely on
// exactly this shape. Every field may be absent or empty right after a
// save; consumers treat zero values as defaults, never as an error.
type Metadata struct {
	Topics      []string `json:"topics"`
	Summary     string   `json:"summary"`
	KeyEntities []string `json:"key_entities"`
	Sentiment   string   `json:"sentiment"`
	Questions   []string `json:"questions"`
	WordCount   int      `json:"word_count,omitempty"`
	Timestamp   int64    `json:"timestamp,omitempty"`
}

// IsEmpty reports whether no extractor has enriched this metadata yet.
func (m Metadata) IsEmpty() bool {
	return len(m.Topics) == 0 && m.Summary == "" && len(m.KeyEntities) == 0
}

// ConversationRecord is one persisted conversation. IDs are assigned by the
// store in save order, so newest-first ordering by ID matches wall-clock
// ordering within a persona.
type ConversationRecord struct {
	ID        int64     `json:"chat_id"`
	Persona   string    `json:"persona"`
	UserID    string    `json:"user_id"`
	CreatedAt int64     `json:"timestamp"`
	Messages  []Message `json:"conversation"`
	Metadata  Metadata  `json:"metadata"`
}

// ScoredConversation is a ranker result: a record plus its accumulated
// relevance score against the query terms.
type ScoredConversation struct {
	Record ConversationRecord `json:"record"`
	Score  int                `json:"score"`
}

// MemorySummary renders a recent-tier conversation as a detailed summary.
type MemorySummary struct {
	ID        int64  `json:"chat_id"`
	Timestamp int64  `json:"timestamp"`
	Summary   string `json:"summary"`
}

// MemoryBrief renders a long-term-tier conversation as a one-line mention.
type MemoryBrief struct {
	ID        int64  `json:"chat_id"`
	Timestamp int64  `json:"timestamp"`
	Brief     string `json:"brief"`
}

// MemoryContext is the assembled context handed to the chat layer before
// each generation call. Relevant is empty, not nil, when no query was given.
type MemoryContext struct {
	SystemContext string               `json:"system_context"`
	Immediate     []ConversationRecord `json:"immediate_memory"`
	Recent        []MemorySummary      `json:"recent_memory"`
	LongTerm      []MemoryBrief        `json:"long_term_memory"`
	Relevant      []ScoredConversation `json:"relevant_memories"`
}

// PersonaCount pairs a persona with its stored conversation count.
type PersonaCount struct {
	Persona string
	Count   int
}
