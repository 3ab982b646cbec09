package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/beesandtrees/ocean-breeze-chat/internal/core"
	"github.com/beesandtrees/ocean-breeze-chat/pkg/log"
)

// Service is the facade the chat layer talks to: it saves exchanges,
// enriches them with metadata, applies length-triggered migration and
// assembles context. Saves for the same persona are serialized so
// concurrent turns cannot interleave ids out of wall-clock order.
type Service struct {
	repo      core.ConversationRepository
	tiers     *TierManager
	ranker    *Ranker
	assembler *Assembler
	extractor core.Extractor

	// Conversations longer than this migrate to the long-term set at
	// save time.
	migrateThreshold int
	maxAgeDays       int

	mu           sync.Mutex
	personaLocks map[string]*sync.Mutex
}

func NewService(
	repo core.ConversationRepository,
	tiers *TierManager,
	ranker *Ranker,
	assembler *Assembler,
	extractor core.Extractor,
	migrateThreshold int,
	maxAgeDays int,
) *Service {
	return &Service{
		repo:             repo,
		tiers:            tiers,
		ranker:           ranker,
		assembler:        assembler,
		extractor:        extractor,
		migrateThreshold: migrateThreshold,
		maxAgeDays:       maxAgeDays,
		personaLocks:     map[string]*sync.Mutex{},
	}
}

// SaveExchange persists a finished exchange for the persona and returns
// the new record's id. The save itself is atomic; metadata enrichment and
// migration happen after the commit and their failures are recovered
// locally, never surfaced as a save failure.
func (s *Service) SaveExchange(ctx context.Context, persona, userID string, messages []core.Message) (int64, error) {
	logger := log.FromCtx(ctx)

	lock := s.personaLock(persona)
	lock.Lock()
	defer lock.Unlock()

	now := time.Now().Unix()
	record := core.ConversationRecord{
		Persona:   persona,
		UserID:    userID,
		CreatedAt: now,
		Messages:  messages,
		Metadata: core.Metadata{
			Sentiment: "neutral",
			Timestamp: now,
			Questions: extractQuestions(messages),
		},
	}

	id, err := s.repo.Save(ctx, record)
	if err != nil {
		return 0, fmt.Errorf("save exchange: %w", err)
	}

	md, err := s.extractor.Extract(ctx, messages)
	if err != nil {
		logger.Warn().Err(err).Int64("chat_id", id).Msg("metadata extraction failed, record kept with defaults")
	} else {
		md.Timestamp = now
		if err := s.repo.UpdateMetadata(ctx, id, md); err != nil {
			logger.Warn().Err(err).Int64("chat_id", id).Msg("metadata backfill failed")
		}
	}

	if len(messages) > s.migrateThreshold {
		if err := s.tiers.Migrate(ctx, id); err != nil {
			logger.Warn().Err(err).Int64("chat_id", id).Msg("length-triggered migration failed")
		}
	}

	return id, nil
}

func (s *Service) BuildContext(ctx context.Context, persona, query string) core.MemoryContext {
	return s.assembler.BuildContext(ctx, persona, query)
}

func (s *Service) FindRelated(ctx context.Context, query, persona string, limit int) ([]core.ScoredConversation, error) {
	return s.ranker.FindRelated(ctx, query, persona, limit)
}

func (s *Service) Migrate(ctx context.Context, id int64) error {
	return s.tiers.Migrate(ctx, id)
}

func (s *Service) Evict(ctx context.Context, maxAgeDays int) (int, error) {
	return s.tiers.Evict(ctx, maxAgeDays)
}

func (s *Service) MaxAgeDays() int {
	return s.maxAgeDays
}

func (s *Service) personaLock(persona string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()

	lock, ok := s.personaLocks[persona]
	if !ok {
		lock = &sync.Mutex{}
		s.personaLocks[persona] = lock
	}
	return lock
}
