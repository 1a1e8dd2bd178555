package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/dmkuzmin/chat-assistant/internal/core/domain"
)

// ChatRepository persists chats (messages as JSONB), the collection of
// pinned messages, and attachment records. Deleted chats stay in the
// table with deleted_at set; that column alone decides bin membership.
type ChatRepository struct {
	db *sql.DB
}

func NewChatRepository(db *sql.DB) *ChatRepository {
	return &ChatRepository{db: db}
}

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func (r *ChatRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across api/worker startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026030501)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS chats (
	id TEXT PRIMARY KEY,
	title TEXT NOT NULL,
	messages JSONB NOT NULL DEFAULT '[]'::jsonb,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL,
	deleted_at TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS collection_messages (
	id TEXT PRIMARY KEY,
	chat_id TEXT NOT NULL,
	content TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS attachment_records (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	media_type TEXT NOT NULL,
	source_size BIGINT NOT NULL,
	textual_content TEXT,
	created_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_chats_updated_at ON chats(updated_at DESC);
CREATE INDEX IF NOT EXISTS idx_chats_deleted_at ON chats(deleted_at);
CREATE INDEX IF NOT EXISTS idx_collection_created_at ON collection_messages(created_at DESC);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

func (r *ChatRepository) SaveChat(ctx context.Context, chat *domain.Chat) error {
	messagesJSON, err := json.Marshal(chat.Messages)
	if err != nil {
		return fmt.Errorf("marshal messages: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
INSERT INTO chats (id, title, messages, created_at, updated_at, deleted_at)
VALUES ($1,$2,$3,$4,$5,$6)
ON CONFLICT (id) DO UPDATE
SET title = EXCLUDED.title, messages = EXCLUDED.messages, updated_at = EXCLUDED.updated_at
`, chat.ID, chat.Title, messagesJSON, chat.CreatedAt, chat.UpdatedAt, chat.DeletedAt)
	if err != nil {
		return fmt.Errorf("save chat: %w", err)
	}
	return nil
}

func (r *ChatRepository) GetChat(ctx context.Context, id string) (*domain.Chat, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, title, messages, created_at, updated_at, deleted_at
FROM chats
WHERE id = $1
`, id)

	chat, err := scanChat(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrChatNotFound, "get chat", fmt.Errorf("id %s", id))
		}
		return nil, err
	}
	return chat, nil
}

func (r *ChatRepository) ListChats(ctx context.Context) ([]domain.Chat, error) {
	return r.listChats(ctx, `
SELECT id, title, messages, created_at, updated_at, deleted_at
FROM chats
WHERE deleted_at IS NULL
ORDER BY updated_at DESC
`)
}

func (r *ChatRepository) ListBin(ctx context.Context) ([]domain.Chat, error) {
	return r.listChats(ctx, `
SELECT id, title, messages, created_at, updated_at, deleted_at
FROM chats
WHERE deleted_at IS NOT NULL
ORDER BY deleted_at DESC
`)
}

func (r *ChatRepository) listChats(ctx context.Context, query string) ([]domain.Chat, error) {
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list chats: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Chat, 0)
	for rows.Next() {
		chat, err := scanChat(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *chat)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate chats: %w", err)
	}
	return out, nil
}

func (r *ChatRepository) MoveChatToBin(ctx context.Context, id string) error {
	return r.execOnChat(ctx, "move chat to bin", `
UPDATE chats
SET deleted_at = $2, updated_at = $2
WHERE id = $1 AND deleted_at IS NULL
`, id, time.Now().UTC())
}

func (r *ChatRepository) RestoreChat(ctx context.Context, id string) error {
	return r.execOnChat(ctx, "restore chat", `
UPDATE chats
SET deleted_at = NULL, updated_at = $2
WHERE id = $1 AND deleted_at IS NOT NULL
`, id, time.Now().UTC())
}

func (r *ChatRepository) PurgeChat(ctx context.Context, id string) error {
	return r.execOnChat(ctx, "purge chat", `
DELETE FROM chats
WHERE id = $1 AND deleted_at IS NOT NULL
`, id)
}

func (r *ChatRepository) execOnChat(ctx context.Context, operation, query string, args ...any) error {
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", operation, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows affected: %w", operation, err)
	}
	if affected == 0 {
		return domain.WrapError(domain.ErrChatNotFound, operation, fmt.Errorf("no matching chat"))
	}
	return nil
}

func (r *ChatRepository) AddToCollection(ctx context.Context, msg *domain.SavedMessage) error {
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx, `
INSERT INTO collection_messages (id, chat_id, content, created_at)
VALUES ($1,$2,$3,$4)
ON CONFLICT (id) DO NOTHING
`, msg.ID, msg.ChatID, msg.Content, msg.CreatedAt)
	if err != nil {
		return fmt.Errorf("add to collection: %w", err)
	}
	return nil
}

func (r *ChatRepository) ListCollection(ctx context.Context) ([]domain.SavedMessage, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, chat_id, content, created_at
FROM collection_messages
ORDER BY created_at DESC
`)
	if err != nil {
		return nil, fmt.Errorf("list collection: %w", err)
	}
	defer rows.Close()

	out := make([]domain.SavedMessage, 0)
	for rows.Next() {
		var msg domain.SavedMessage
		if err := rows.Scan(&msg.ID, &msg.ChatID, &msg.Content, &msg.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan collection message: %w", err)
		}
		out = append(out, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate collection: %w", err)
	}
	return out, nil
}

func (r *ChatRepository) RemoveFromCollection(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `
DELETE FROM collection_messages
WHERE id = $1
`, id)
	if err != nil {
		return fmt.Errorf("remove from collection: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("remove from collection rows affected: %w", err)
	}
	if affected == 0 {
		return domain.WrapError(domain.ErrChatNotFound, "remove from collection", fmt.Errorf("no matching message"))
	}
	return nil
}

func (r *ChatRepository) RecordAttachment(ctx context.Context, rec domain.Record) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO attachment_records (id, name, media_type, source_size, textual_content, created_at)
VALUES ($1,$2,$3,$4,$5,$6)
ON CONFLICT (id) DO NOTHING
`, rec.ID, rec.Name, rec.MediaType, rec.SourceSize, rec.TextualContent, rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("record attachment: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanChat(row rowScanner) (*domain.Chat, error) {
	var chat domain.Chat
	var messagesRaw []byte
	var deletedAt sql.NullTime

	if err := row.Scan(&chat.ID, &chat.Title, &messagesRaw, &chat.CreatedAt, &chat.UpdatedAt, &deletedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan chat: %w", err)
	}
	if err := json.Unmarshal(messagesRaw, &chat.Messages); err != nil {
		return nil, fmt.Errorf("unmarshal messages: %w", err)
	}
	if deletedAt.Valid {
		t := deletedAt.Time
		chat.DeletedAt = &t
	}
	return &chat, nil
}
