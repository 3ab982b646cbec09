package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/dgraph-io/ristretto"

	"github.com/beesandtrees/ocean-breeze-chat/internal/core"
	"github.com/beesandtrees/ocean-breeze-chat/pkg/log"
)

const (
	cacheNumCounters = 10_000
	cacheMaxCost     = 1_000
	cacheBufferItems = 64
)

type Conversations struct {
	db    *sql.DB
	cache *ristretto.Cache
	fts   bool
}

func NewConversations(ctx context.Context, db *sql.DB) (*Conversations, error) {
	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: cacheNumCounters,
		MaxCost:     cacheMaxCost,
		BufferItems: cacheBufferItems,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create record cache: %w", err)
	}

	c := &Conversations{db: db, cache: cache}
	c.fts = c.initSearchIndex(ctx)
	return c, nil
}

// initSearchIndex creates the full-text index when the sqlite driver was
// compiled with FTS5 (the sqlite_fts5 build tag). Without it the store
// still works: SearchText reports no matches and callers fall back to
// recency scans.
func (c *Conversations) initSearchIndex(ctx context.Context) bool {
	_, err := c.db.ExecContext(ctx, `CREATE VIRTUAL TABLE IF NOT EXISTS conversation_fts USING fts5(
		chat_id UNINDEXED,
		content,
		topics,
		summary,
		key_entities,
		persona
	)`)
	if err != nil {
		log.FromCtx(ctx).Warn().Err(err).Msg("fts5 unavailable, text search index disabled")
		return false
	}
	return true
}

// SearchEnabled reports whether the full-text index is available.
func (c *Conversations) SearchEnabled() bool {
	return c.fts
}

// Save persists a new record. The payload row, the search index row and the
// recent-set tracking entry commit together or not at all, so a record is
// never visible without its tier-tracking entry.
func (c *Conversations) Save(ctx context.Context, record core.ConversationRecord) (int64, error) {
	messagesJSON, err := json.Marshal(record.Messages)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal messages: %w", err)
	}
	metadataJSON, err := json.Marshal(record.Metadata)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal metadata: %w", err)
	}

	userID := record.UserID
	if userID == "" {
		userID = core.DefaultUserID
	}

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	query := `INSERT INTO conversations (persona, user_id, created_at, conversation, metadata) VALUES (?, ?, ?, ?, ?)`
	res, err := tx.ExecContext(ctx, query, record.Persona, userID, record.CreatedAt, string(messagesJSON), string(metadataJSON))
	if err != nil {
		return 0, fmt.Errorf("failed to insert conversation: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}

	if c.fts {
		var content strings.Builder
		for i, msg := range record.Messages {
			if i > 0 {
				content.WriteByte(' ')
			}
			content.WriteString(msg.Content)
		}

		_, err = tx.ExecContext(ctx,
			`INSERT INTO conversation_fts (chat_id, content, topics, summary, key_entities, persona) VALUES (?, ?, ?, ?, ?, ?)`,
			id, content.String(), strings.Join(record.Metadata.Topics, " "), record.Metadata.Summary,
			strings.Join(record.Metadata.KeyEntities, " "), record.Persona,
		)
		if err != nil {
			return 0, fmt.Errorf("failed to index conversation: %w", err)
		}
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO tier_recent (chat_id, tracked_at) VALUES (?, ?)`,
		id, record.CreatedAt,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to track conversation: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return id, nil
}

func (c *Conversations) GetByID(ctx context.Context, id int64) (core.ConversationRecord, error) {
	if cached, ok := c.cache.Get(id); ok {
		if record, ok := cached.(core.ConversationRecord); ok {
			return record, nil
		}
	}

	row := c.db.QueryRowContext(ctx,
		`SELECT chat_id, persona, user_id, created_at, conversation, metadata FROM conversations WHERE chat_id = ?`, id)

	record, err := scanRecord(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return core.ConversationRecord{}, fmt.Errorf("chat %d: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.ConversationRecord{}, err
	}

	c.cache.Set(id, record, 1)
	return record, nil
}

// GetByPersona returns up to limit most-recent records, newest first.
// Corrupted rows are skipped and logged; a bulk scan should not abort on a
// single bad payload.
func (c *Conversations) GetByPersona(ctx context.Context, persona string, limit int) ([]core.ConversationRecord, error) {
	rows, err := c.db.QueryContext(ctx,
		`SELECT chat_id, persona, user_id, created_at, conversation, metadata
		 FROM conversations WHERE persona = ?
		 ORDER BY created_at DESC, chat_id DESC LIMIT ?`, persona, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query conversations: %w", err)
	}
	defer rows.Close()

	return c.collectRecords(ctx, rows)
}

// SearchText runs a lexical FTS match over message content, topics and
// summary. Results come back in FTS rank order; this is a candidate source
// only, scoring is the ranker's job.
func (c *Conversations) SearchText(ctx context.Context, query, persona string, limit int) ([]core.ConversationRecord, error) {
	if !c.fts {
		return []core.ConversationRecord{}, nil
	}

	match := buildMatchExpr(query)
	if match == "" {
		return []core.ConversationRecord{}, nil
	}

	var (
		rows *sql.Rows
		err  error
	)
	if persona != "" {
		rows, err = c.db.QueryContext(ctx,
			`SELECT c.chat_id, c.persona, c.user_id, c.created_at, c.conversation, c.metadata
			 FROM conversation_fts fts
			 JOIN conversations c ON c.chat_id = fts.chat_id
			 WHERE conversation_fts MATCH ? AND fts.persona = ?
			 ORDER BY rank LIMIT ?`, match, persona, limit)
	} else {
		rows, err = c.db.QueryContext(ctx,
			`SELECT c.chat_id, c.persona, c.user_id, c.created_at, c.conversation, c.metadata
			 FROM conversation_fts fts
			 JOIN conversations c ON c.chat_id = fts.chat_id
			 WHERE conversation_fts MATCH ?
			 ORDER BY rank LIMIT ?`, match, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to search conversations: %w", err)
	}
	defer rows.Close()

	return c.collectRecords(ctx, rows)
}

// UpdateMetadata merges the non-zero fields of partial into the stored
// metadata. The record payload itself is never replaced.
func (c *Conversations) UpdateMetadata(ctx context.Context, id int64, partial core.Metadata) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var raw string
	err = tx.QueryRowContext(ctx, `SELECT metadata FROM conversations WHERE chat_id = ?`, id).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("chat %d: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to read metadata: %w", err)
	}

	var current core.Metadata
	if err := json.Unmarshal([]byte(raw), &current); err != nil {
		return fmt.Errorf("%w: chat %d metadata: %v", core.ErrCorrupted, id, err)
	}

	merged := mergeMetadata(current, partial)
	mergedJSON, err := json.Marshal(merged)
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE conversations SET metadata = ? WHERE chat_id = ?`, string(mergedJSON), id); err != nil {
		return fmt.Errorf("failed to update metadata: %w", err)
	}

	// Keep the search index in step with the refreshed metadata.
	if c.fts {
		if _, err := tx.ExecContext(ctx,
			`UPDATE conversation_fts SET topics = ?, summary = ?, key_entities = ? WHERE chat_id = ?`,
			strings.Join(merged.Topics, " "), merged.Summary,
			strings.Join(merged.KeyEntities, " "), id); err != nil {
			return fmt.Errorf("failed to update search index: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	c.cache.Del(id)
	return nil
}

// Delete removes the payload, the search index row and any tier tracking.
// Used by eviction; there is no soft-delete.
func (c *Conversations) Delete(ctx context.Context, id int64) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `DELETE FROM conversations WHERE chat_id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete conversation: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("chat %d: %w", id, core.ErrNotFound)
	}

	cleanup := []string{
		`DELETE FROM tier_recent WHERE chat_id = ?`,
		`DELETE FROM tier_long_term WHERE chat_id = ?`,
	}
	if c.fts {
		cleanup = append(cleanup, `DELETE FROM conversation_fts WHERE chat_id = ?`)
	}
	for _, q := range cleanup {
		if _, err := tx.ExecContext(ctx, q, id); err != nil {
			return fmt.Errorf("failed to delete tracking rows: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	c.cache.Del(id)
	return nil
}

func (c *Conversations) PersonaCounts(ctx context.Context) ([]core.PersonaCount, error) {
	rows, err := c.db.QueryContext(ctx,
		`SELECT persona, COUNT(*) FROM conversations GROUP BY persona ORDER BY COUNT(*) DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to count personas: %w", err)
	}
	defer rows.Close()

	var counts []core.PersonaCount
	for rows.Next() {
		var pc core.PersonaCount
		if err := rows.Scan(&pc.Persona, &pc.Count); err != nil {
			return nil, fmt.Errorf("failed to scan persona count: %w", err)
		}
		counts = append(counts, pc)
	}
	return counts, rows.Err()
}

func (c *Conversations) collectRecords(ctx context.Context, rows *sql.Rows) ([]core.ConversationRecord, error) {
	logger := log.FromCtx(ctx)

	var records []core.ConversationRecord
	for rows.Next() {
		record, err := scanRecord(rows.Scan)
		if errors.Is(err, core.ErrCorrupted) {
			logger.Warn().Err(err).Msg("skipping corrupted conversation")
			continue
		}
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

func scanRecord(scan func(dest ...any) error) (core.ConversationRecord, error) {
	var (
		record       core.ConversationRecord
		messagesJSON string
		metadataJSON string
	)
	if err := scan(&record.ID, &record.Persona, &record.UserID, &record.CreatedAt, &messagesJSON, &metadataJSON); err != nil {
		return core.ConversationRecord{}, err
	}

	if err := json.Unmarshal([]byte(messagesJSON), &record.Messages); err != nil {
		return core.ConversationRecord{}, fmt.Errorf("%w: chat %d messages: %v", core.ErrCorrupted, record.ID, err)
	}
	if err := json.Unmarshal([]byte(metadataJSON), &record.Metadata); err != nil {
		return core.ConversationRecord{}, fmt.Errorf("%w: chat %d metadata: %v", core.ErrCorrupted, record.ID, err)
	}
	return record, nil
}

// buildMatchExpr turns free text into an FTS5 OR-query over the content,
// topics and summary columns, quoting each term.
func buildMatchExpr(query string) string {
	var quoted []string
	for _, term := range strings.Fields(query) {
		term = strings.ReplaceAll(term, `"`, "")
		if term == "" {
			continue
		}
		quoted = append(quoted, `"`+term+`"`)
	}
	if len(quoted) == 0 {
		return ""
	}
	joined := strings.Join(quoted, " OR ")
	return fmt.Sprintf("content:(%s) OR topics:(%s) OR summary:(%s)", joined, joined, joined)
}

func mergeMetadata(current, partial core.Metadata) core.Metadata {
	if len(partial.Topics) > 0 {
		current.Topics = partial.Topics
	}
	if partial.Summary != "" {
		current.Summary = partial.Summary
	}
	if len(partial.KeyEntities) > 0 {
		current.KeyEntities = partial.KeyEntities
	}
	if partial.Sentiment != "" {
		current.Sentiment = partial.Sentiment
	}
	if len(partial.Questions) > 0 {
		current.Questions = partial.Questions
	}
	if partial.WordCount > 0 {
		current.WordCount = partial.WordCount
	}
	if partial.Timestamp > 0 {
		current.Timestamp = partial.Timestamp
	}
	return current
}
