package memory

import (
	"context"

	"github.com/beesandtrees/ocean-breeze-chat/internal/core"
)

// mockRepo implements core.ConversationRepository with overridable
// function fields. Unset methods fail loudly via nil dereference, which is
// what we want in a test that reaches an unexpected path.
type mockRepo struct {
	save           func(ctx context.Context, record core.ConversationRecord) (int64, error)
	getByID        func(ctx context.Context, id int64) (core.ConversationRecord, error)
	getByPersona   func(ctx context.Context, persona string, limit int) ([]core.ConversationRecord, error)
	searchText     func(ctx context.Context, query, persona string, limit int) ([]core.ConversationRecord, error)
	updateMetadata func(ctx context.Context, id int64, partial core.Metadata) error
	delete         func(ctx context.Context, id int64) error
	personaCounts  func(ctx context.Context) ([]core.PersonaCount, error)
}

func (m *mockRepo) Save(ctx context.Context, record core.ConversationRecord) (int64, error) {
	return m.save(ctx, record)
}

func (m *mockRepo) GetByID(ctx context.Context, id int64) (core.ConversationRecord, error) {
	return m.getByID(ctx, id)
}

func (m *mockRepo) GetByPersona(ctx context.Context, persona string, limit int) ([]core.ConversationRecord, error) {
	return m.getByPersona(ctx, persona, limit)
}

func (m *mockRepo) SearchText(ctx context.Context, query, persona string, limit int) ([]core.ConversationRecord, error) {
	return m.searchText(ctx, query, persona, limit)
}

func (m *mockRepo) UpdateMetadata(ctx context.Context, id int64, partial core.Metadata) error {
	return m.updateMetadata(ctx, id, partial)
}

func (m *mockRepo) Delete(ctx context.Context, id int64) error {
	return m.delete(ctx, id)
}

func (m *mockRepo) PersonaCounts(ctx context.Context) ([]core.PersonaCount, error) {
	return m.personaCounts(ctx)
}

type mockTiers struct {
	migrate           func(ctx context.Context, id int64) error
	recentSet         func(ctx context.Context) ([]int64, error)
	longTermSet       func(ctx context.Context) ([]int64, error)
	longTermOlderThan func(ctx context.Context, cutoff int64) ([]int64, error)
	untrack           func(ctx context.Context, id int64) error
}

func (m *mockTiers) Migrate(ctx context.Context, id int64) error {
	return m.migrate(ctx, id)
}

func (m *mockTiers) RecentSet(ctx context.Context) ([]int64, error) {
	return m.recentSet(ctx)
}

func (m *mockTiers) LongTermSet(ctx context.Context) ([]int64, error) {
	return m.longTermSet(ctx)
}

func (m *mockTiers) LongTermOlderThan(ctx context.Context, cutoff int64) ([]int64, error) {
	return m.longTermOlderThan(ctx, cutoff)
}

func (m *mockTiers) Untrack(ctx context.Context, id int64) error {
	return m.untrack(ctx, id)
}

type mockAI struct {
	chat func(ctx context.Context, system string, history []core.Message) (core.Message, error)
}

func (m *mockAI) Chat(ctx context.Context, system string, history []core.Message) (core.Message, error) {
	return m.chat(ctx, system, history)
}

type mockExtractor struct {
	extract func(ctx context.Context, messages []core.Message) (core.Metadata, error)
}

func (m *mockExtractor) Extract(ctx context.Context, messages []core.Message) (core.Metadata, error) {
	return m.extract(ctx, messages)
}
