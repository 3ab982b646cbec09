package memory

import (
	"context"
	"time"

	"github.com/beesandtrees/ocean-breeze-chat/internal/core"
	"github.com/beesandtrees/ocean-breeze-chat/pkg/log"
)

const backfillScanLimit = 20

// Janitor is the background maintenance loop: it evicts long-term
// conversations past the max age and backfills metadata for records whose
// extraction never completed.
type Janitor struct {
	repo       core.ConversationRepository
	tiers      *TierManager
	extractor  core.Extractor
	Interval   time.Duration
	MaxAgeDays int
}

func NewJanitor(repo core.ConversationRepository, tiers *TierManager, extractor core.Extractor, interval time.Duration, maxAgeDays int) *Janitor {
	return &Janitor{
		repo:       repo,
		tiers:      tiers,
		extractor:  extractor,
		Interval:   interval,
		MaxAgeDays: maxAgeDays,
	}
}

func (j *Janitor) Start(ctx context.Context) error {
	logger := log.FromCtx(ctx)
	logger.Info().Dur("interval", j.Interval).Msg("starting memory janitor")

	ticker := time.NewTicker(j.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := j.Sweep(ctx); err != nil {
				logger.Error().Err(err).Msg("janitor sweep failed")
			}
		}
	}
}

func (j *Janitor) Shutdown(ctx context.Context) error {
	return nil
}

// Sweep runs one maintenance pass: eviction first, then backfill.
func (j *Janitor) Sweep(ctx context.Context) error {
	if _, err := j.tiers.Evict(ctx, j.MaxAgeDays); err != nil {
		return err
	}
	return j.backfillMetadata(ctx)
}

func (j *Janitor) backfillMetadata(ctx context.Context) error {
	logger := log.FromCtx(ctx)

	counts, err := j.repo.PersonaCounts(ctx)
	if err != nil {
		return err
	}

	for _, pc := range counts {
		records, err := j.repo.GetByPersona(ctx, pc.Persona, backfillScanLimit)
		if err != nil {
			logger.Warn().Err(err).Str("persona", pc.Persona).Msg("backfill scan failed")
			continue
		}

		for _, record := range records {
			if !record.Metadata.IsEmpty() {
				continue
			}

			md, err := j.extractor.Extract(ctx, record.Messages)
			if err != nil {
				logger.Warn().Err(err).Int64("chat_id", record.ID).Msg("backfill extraction failed")
				continue
			}
			md.Timestamp = record.CreatedAt

			if err := j.repo.UpdateMetadata(ctx, record.ID, md); err != nil {
				logger.Warn().Err(err).Int64("chat_id", record.ID).Msg("backfill update failed")
				continue
			}
			logger.Debug().Int64("chat_id", record.ID).Msg("backfilled metadata")
		}
	}

	return nil
}
