package memory

import (
	"context"
	"testing"
	"time"

	"github.com/beesandtrees/ocean-breeze-chat/internal/core"
)

func TestJanitor_Sweep_BackfillsEmptyMetadata(t *testing.T) {
	records := []core.ConversationRecord{
		{ID: 1, Persona: "claude", CreatedAt: 100, Messages: []core.Message{
			{Role: core.RoleUser, Content: "waves on the beach"},
		}},
		{ID: 2, Persona: "claude", CreatedAt: 101, Metadata: core.Metadata{Summary: "already enriched"}},
	}

	backfilled := map[int64]core.Metadata{}
	repo := &mockRepo{
		personaCounts: func(context.Context) ([]core.PersonaCount, error) {
			return []core.PersonaCount{{Persona: "claude", Count: 2}}, nil
		},
		getByPersona: func(context.Context, string, int) ([]core.ConversationRecord, error) {
			return records, nil
		},
		updateMetadata: func(_ context.Context, id int64, partial core.Metadata) error {
			backfilled[id] = partial
			return nil
		},
	}
	tiers := &mockTiers{
		longTermOlderThan: func(context.Context, int64) ([]int64, error) { return nil, nil },
	}

	j := NewJanitor(repo, NewTierManager(repo, tiers, DefaultTierConfig()), NewHeuristicExtractor(), time.Minute, 30)
	if err := j.Sweep(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(backfilled) != 1 {
		t.Fatalf("backfilled %d records, want 1", len(backfilled))
	}
	md, ok := backfilled[1]
	if !ok {
		t.Fatal("expected record 1 to be backfilled")
	}
	if len(md.Topics) == 0 || md.Topics[0] != "ocean" {
		t.Errorf("topics = %v, want heuristic ocean topic", md.Topics)
	}
	if md.Timestamp != 100 {
		t.Errorf("timestamp = %d, want the record's creation time", md.Timestamp)
	}
}

func TestJanitor_StartStopsOnContextCancel(t *testing.T) {
	repo := &mockRepo{
		personaCounts: func(context.Context) ([]core.PersonaCount, error) { return nil, nil },
	}
	tiers := &mockTiers{
		longTermOlderThan: func(context.Context, int64) ([]int64, error) { return nil, nil },
	}

	j := NewJanitor(repo, NewTierManager(repo, tiers, DefaultTierConfig()), NewHeuristicExtractor(), time.Hour, 30)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- j.Start(ctx) }()

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("janitor did not stop on context cancel")
	}
}
