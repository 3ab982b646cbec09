package core

import "context"

// ConversationRepository is the durable store of conversation records,
// partitioned by persona. Save assigns ids monotonically in save order and
// commits the payload, the search index row and the recent-tier tracking
// entry in one transaction, or none of them.
type ConversationRepository interface {
	Save(ctx context.Context, record ConversationRecord) (int64, error)
	GetByID(ctx context.Context, id int64) (ConversationRecord, error)
	GetByPersona(ctx context.Context, persona string, limit int) ([]ConversationRecord, error)
	SearchText(ctx context.Context, query, persona string, limit int) ([]ConversationRecord, error)
	UpdateMetadata(ctx context.Context, id int64, partial Metadata) error
	Delete(ctx context.Context, id int64) error
	PersonaCounts(ctx context.Context) ([]PersonaCount, error)
}

// TierRepository tracks the two explicit migration sets. A conversation is
// a member of at most one set at any time; Migrate moves it from the recent
// set to the long-term set. This tracking exists alongside the positional
// recency slicing and only feeds eviction scanning.
type TierRepository interface {
	Migrate(ctx context.Context, id int64) error
	RecentSet(ctx context.Context) ([]int64, error)
	LongTermSet(ctx context.Context) ([]int64, error)
	// LongTermOlderThan returns long-term set members tracked before the
	// given unix timestamp, oldest first.
	LongTermOlderThan(ctx context.Context, cutoff int64) ([]int64, error)
	// Untrack removes the id from whichever set holds it.
	Untrack(ctx context.Context, id int64) error
}
