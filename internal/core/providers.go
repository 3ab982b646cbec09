package core

import "context"

// AIProvider is the external text-generation capability. The memory core
// treats any failure as "no text produced" and degrades to its heuristic
// paths; a provider error must never abort a conversation save.
type AIProvider interface {
	Chat(ctx context.Context, system string, history []Message) (Message, error)
}

// Extractor derives metadata from a conversation's messages. The heuristic
// and the model-backed implementations satisfy the same contract and
// callers must not depend on which one is active.
type Extractor interface {
	Extract(ctx context.Context, messages []Message) (Metadata, error)
}
