package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Tiers maintains the two explicit tracking sets. Membership is mutually
// exclusive: migrating removes the id from the recent set in the same
// transaction that adds it to the long-term set.
type Tiers struct {
	db *sql.DB
}

func NewTiers(db *sql.DB) *Tiers {
	return &Tiers{db: db}
}

// Migrate moves a conversation from the recent set to the long-term set.
// Idempotent: repeating the call leaves a single long-term entry and no
// recent entry.
func (t *Tiers) Migrate(ctx context.Context, id int64) error {
	tx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM tier_recent WHERE chat_id = ?`, id); err != nil {
		return fmt.Errorf("failed to remove from recent set: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO tier_long_term (chat_id, tracked_at) VALUES (?, ?)
		 ON CONFLICT(chat_id) DO UPDATE SET tracked_at = excluded.tracked_at`,
		id, time.Now().Unix()); err != nil {
		return fmt.Errorf("failed to add to long-term set: %w", err)
	}

	return tx.Commit()
}

func (t *Tiers) RecentSet(ctx context.Context) ([]int64, error) {
	return t.queryIDs(ctx, `SELECT chat_id FROM tier_recent ORDER BY tracked_at DESC`)
}

func (t *Tiers) LongTermSet(ctx context.Context) ([]int64, error) {
	return t.queryIDs(ctx, `SELECT chat_id FROM tier_long_term ORDER BY tracked_at DESC`)
}

// LongTermOlderThan returns long-term members whose conversation predates
// the cutoff, oldest first. Age comes from the record's creation time, not
// from when the entry migrated.
func (t *Tiers) LongTermOlderThan(ctx context.Context, cutoff int64) ([]int64, error) {
	return t.queryIDs(ctx,
		`SELECT t.chat_id FROM tier_long_term t
		 JOIN conversations c ON c.chat_id = t.chat_id
		 WHERE c.created_at < ?
		 ORDER BY c.created_at ASC`, cutoff)
}

func (t *Tiers) Untrack(ctx context.Context, id int64) error {
	tx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, q := range []string{
		`DELETE FROM tier_recent WHERE chat_id = ?`,
		`DELETE FROM tier_long_term WHERE chat_id = ?`,
	} {
		if _, err := tx.ExecContext(ctx, q, id); err != nil {
			return fmt.Errorf("failed to untrack conversation: %w", err)
		}
	}

	return tx.Commit()
}

func (t *Tiers) queryIDs(ctx context.Context, query string, args ...any) ([]int64, error) {
	rows, err := t.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query tier set: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan chat id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
