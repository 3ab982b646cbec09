package memory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/beesandtrees/ocean-breeze-chat/internal/core"
	"github.com/beesandtrees/ocean-breeze-chat/pkg/log"
)

// TierManager owns the two tiering mechanisms: positional recency slicing
// (the authoritative view for context assembly) and the explicit migration
// sets (a secondary tracking structure that feeds eviction scanning).
type TierManager struct {
	convs core.ConversationRepository
	tiers core.TierRepository
	cfg   TierConfig
}

func NewTierManager(convs core.ConversationRepository, tiers core.TierRepository, cfg TierConfig) *TierManager {
	return &TierManager{convs: convs, tiers: tiers, cfg: cfg}
}

// SliceTiers partitions a newest-first record list into the three tiers by
// position. The buckets are disjoint by construction; anything past the
// long-term window is untiered.
func SliceTiers(records []core.ConversationRecord, cfg TierConfig) (immediate, recent, longTerm []core.ConversationRecord) {
	immediateEnd := min(cfg.Immediate, len(records))
	recentEnd := min(immediateEnd+cfg.Recent, len(records))
	longTermEnd := min(recentEnd+cfg.LongTerm, len(records))

	return records[:immediateEnd], records[immediateEnd:recentEnd], records[recentEnd:longTermEnd]
}

// Migrate moves a conversation into the long-term tracking set.
func (t *TierManager) Migrate(ctx context.Context, id int64) error {
	if err := t.tiers.Migrate(ctx, id); err != nil {
		return fmt.Errorf("migrate chat %d: %w", id, err)
	}
	log.FromCtx(ctx).Debug().Int64("chat_id", id).Msg("migrated conversation to long-term set")
	return nil
}

// TrackedCounts reports the sizes of the recent and long-term tracking sets.
func (t *TierManager) TrackedCounts(ctx context.Context) (recent, longTerm int, err error) {
	recentIDs, err := t.tiers.RecentSet(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("scan recent set: %w", err)
	}
	longTermIDs, err := t.tiers.LongTermSet(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("scan long-term set: %w", err)
	}
	return len(recentIDs), len(longTermIDs), nil
}

// Evict permanently deletes long-term conversations older than maxAgeDays
// and returns how many were removed. Orphaned tracking entries are cleaned
// up along the way.
func (t *TierManager) Evict(ctx context.Context, maxAgeDays int) (int, error) {
	logger := log.FromCtx(ctx)
	cutoff := time.Now().Add(-time.Duration(maxAgeDays) * 24 * time.Hour).Unix()

	ids, err := t.tiers.LongTermOlderThan(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("scan long-term set: %w", err)
	}

	removed := 0
	for _, id := range ids {
		if err := t.convs.Delete(ctx, id); err != nil {
			if errors.Is(err, core.ErrNotFound) {
				if err := t.tiers.Untrack(ctx, id); err != nil {
					logger.Warn().Err(err).Int64("chat_id", id).Msg("failed to untrack orphaned entry")
				}
				continue
			}
			return removed, fmt.Errorf("evict chat %d: %w", id, err)
		}
		removed++
	}

	if removed > 0 {
		logger.Info().Int("count", removed).Int("max_age_days", maxAgeDays).Msg("evicted old conversations")
	}
	return removed, nil
}
