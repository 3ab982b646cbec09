package memory

import (
	"context"
	"fmt"
	"time"

	"github.com/beesandtrees/ocean-breeze-chat/internal/core"
	"github.com/beesandtrees/ocean-breeze-chat/pkg/log"
)

// Assembler composes the tiered buckets and the ranked memories into one
// context object for the chat layer. It is best-effort by contract: a
// storage or ranking failure degrades the context, it never propagates.
type Assembler struct {
	repo         core.ConversationRepository
	ranker       *Ranker
	extractor    core.Extractor
	cfg          TierConfig
	instructions string
}

func NewAssembler(repo core.ConversationRepository, ranker *Ranker, extractor core.Extractor, cfg TierConfig, instructions string) *Assembler {
	if instructions == "" {
		instructions = DefaultInstructions
	}
	return &Assembler{
		repo:         repo,
		ranker:       ranker,
		extractor:    extractor,
		cfg:          cfg,
		instructions: instructions,
	}
}

const relatedLimit = 3

func (a *Assembler) BuildContext(ctx context.Context, persona, query string) core.MemoryContext {
	logger := log.FromCtx(ctx)

	mc := core.MemoryContext{
		Immediate: []core.ConversationRecord{},
		Recent:    []core.MemorySummary{},
		LongTerm:  []core.MemoryBrief{},
		Relevant:  []core.ScoredConversation{},
	}

	records, err := a.repo.GetByPersona(ctx, persona, a.cfg.Total())
	if err != nil {
		logger.Error().Err(err).Str("persona", persona).Msg("failed to load history for context")
		mc.SystemContext = buildSystemContext(nil, nil, a.instructions)
		return mc
	}

	immediate, recent, longTerm := SliceTiers(records, a.cfg)
	mc.Immediate = append(mc.Immediate, immediate...)

	for _, record := range recent {
		mc.Recent = append(mc.Recent, core.MemorySummary{
			ID:        record.ID,
			Timestamp: record.CreatedAt,
			Summary:   a.detailedSummary(ctx, record),
		})
	}

	for _, record := range longTerm {
		mc.LongTerm = append(mc.LongTerm, core.MemoryBrief{
			ID:        record.ID,
			Timestamp: record.CreatedAt,
			Brief:     briefMention(record),
		})
	}

	if query != "" {
		related, err := a.ranker.FindRelated(ctx, query, persona, relatedLimit)
		if err != nil {
			logger.Warn().Err(err).Msg("relevance ranking failed, continuing without")
		} else {
			mc.Relevant = related
		}
	}

	mc.SystemContext = buildSystemContext(mc.Recent, mc.LongTerm, a.instructions)
	return mc
}

// detailedSummary prefers the stored summary and synthesizes one on demand
// when extraction has not caught up with this record yet.
func (a *Assembler) detailedSummary(ctx context.Context, record core.ConversationRecord) string {
	if record.Metadata.Summary != "" {
		return record.Metadata.Summary
	}

	md, err := a.extractor.Extract(ctx, record.Messages)
	if err == nil && md.Summary != "" {
		return md.Summary
	}

	date := time.Unix(record.CreatedAt, 0).Format("January 2, 2006")
	exchanges := len(record.Messages) / 2
	topics := "various topics"
	if len(record.Metadata.Topics) > 0 {
		topics = record.Metadata.Topics[0]
	}
	return fmt.Sprintf("On %s, we had a %d-exchange conversation about %s.", date, exchanges, topics)
}

func briefMention(record core.ConversationRecord) string {
	date := time.Unix(record.CreatedAt, 0).Format("January 2")
	topic := "a topic"
	if len(record.Metadata.Topics) > 0 {
		topic = record.Metadata.Topics[0]
	}
	return fmt.Sprintf("On %s, we briefly discussed %s.", date, topic)
}
