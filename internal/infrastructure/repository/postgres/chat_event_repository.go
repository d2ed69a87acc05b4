package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/kirillkom/agrisense-rag/internal/core/domain"
)

const schemaLockID int64 = 2026031701

// ChatEventRepository is the append-only chat event log.
type ChatEventRepository struct {
	db *sql.DB
}

func NewChatEventRepository(db *sql.DB) *ChatEventRepository {
	return &ChatEventRepository{db: db}
}

func (r *ChatEventRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across worker replicas.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, schemaLockID); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS chat_events (
	id TEXT PRIMARY KEY,
	request_id TEXT NOT NULL DEFAULT '',
	question TEXT NOT NULL,
	passage_ids JSONB NOT NULL DEFAULT '[]'::jsonb,
	filter_source TEXT NOT NULL DEFAULT '',
	no_context BOOLEAN NOT NULL DEFAULT FALSE,
	status TEXT NOT NULL,
	fragments INTEGER NOT NULL DEFAULT 0,
	duration_ms BIGINT NOT NULL DEFAULT 0,
	created_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_chat_events_created_at ON chat_events(created_at DESC);
CREATE INDEX IF NOT EXISTS idx_chat_events_status ON chat_events(status);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

// SaveChatEvent inserts the event. Redelivered events are ignored.
func (r *ChatEventRepository) SaveChatEvent(ctx context.Context, event domain.ChatEvent) error {
	passageIDs := event.PassageIDs
	if passageIDs == nil {
		passageIDs = []string{}
	}
	idsJSON, err := json.Marshal(passageIDs)
	if err != nil {
		return fmt.Errorf("marshal passage ids: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
INSERT INTO chat_events (
	id, request_id, question, passage_ids, filter_source, no_context, status, fragments, duration_ms, created_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
ON CONFLICT (id) DO NOTHING
`,
		event.ID, event.RequestID, event.Question, idsJSON, string(event.FilterSource), event.NoContext,
		string(event.Status), event.Fragments, event.DurationMS, event.CreatedAt.UTC(),
	)
	if err != nil {
		return domain.WrapError(domain.ErrTemporary, "insert chat event", err)
	}
	return nil
}

// ListRecentChatEvents returns the newest events first.
func (r *ChatEventRepository) ListRecentChatEvents(ctx context.Context, limit int) ([]domain.ChatEvent, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.db.QueryContext(ctx, `
SELECT id, request_id, question, passage_ids, filter_source, no_context, status, fragments, duration_ms, created_at
FROM chat_events
ORDER BY created_at DESC
LIMIT $1
`, limit)
	if err != nil {
		return nil, fmt.Errorf("query chat events: %w", err)
	}
	defer rows.Close()

	events := make([]domain.ChatEvent, 0, limit)
	for rows.Next() {
		var (
			event        domain.ChatEvent
			idsRaw       []byte
			filterSource string
			status       string
		)
		if err := rows.Scan(
			&event.ID, &event.RequestID, &event.Question, &idsRaw, &filterSource, &event.NoContext,
			&status, &event.Fragments, &event.DurationMS, &event.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan chat event: %w", err)
		}
		if err := json.Unmarshal(idsRaw, &event.PassageIDs); err != nil {
			return nil, fmt.Errorf("unmarshal passage ids: %w", err)
		}
		event.FilterSource = domain.FilterSource(filterSource)
		event.Status = domain.ChatStatus(status)
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate chat events: %w", err)
	}
	return events, nil
}
