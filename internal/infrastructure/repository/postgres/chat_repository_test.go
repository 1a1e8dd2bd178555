package postgres

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/dmkuzmin/chat-assistant/internal/core/domain"
)

func newRepoWithMock(t *testing.T) (*ChatRepository, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	return &ChatRepository{db: db}, mock, func() { _ = db.Close() }
}

func TestGetChatReturnsDomainNotFound(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	mock.ExpectQuery("SELECT id, title, messages").
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetChat(context.Background(), "missing")
	if err == nil {
		t.Fatalf("expected error")
	}
	if !domain.IsKind(err, domain.ErrChatNotFound) {
		t.Fatalf("expected ErrChatNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestGetChatUnmarshalsMessagesAndDeletedAt(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	now := time.Now().UTC()
	deleted := now.Add(-time.Hour)
	messages := `[{"id":"m1","role":"user","content":"hi","created_at":"2026-03-01T10:00:00Z"}]`

	mock.ExpectQuery("SELECT id, title, messages").
		WithArgs("c1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "title", "messages", "created_at", "updated_at", "deleted_at"}).
			AddRow("c1", "First chat", []byte(messages), now, now, deleted))

	chat, err := repo.GetChat(context.Background(), "c1")
	if err != nil {
		t.Fatalf("GetChat() error = %v", err)
	}
	if len(chat.Messages) != 1 || chat.Messages[0].Content != "hi" {
		t.Fatalf("expected one message, got %+v", chat.Messages)
	}
	if chat.DeletedAt == nil || !chat.DeletedAt.Equal(deleted) {
		t.Fatalf("expected deleted_at %v, got %v", deleted, chat.DeletedAt)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestMoveChatToBinReturnsNotFoundWhenNoRowsAffected(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	mock.ExpectExec("UPDATE chats").
		WithArgs("missing", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.MoveChatToBin(context.Background(), "missing")
	if !domain.IsKind(err, domain.ErrChatNotFound) {
		t.Fatalf("expected ErrChatNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestPurgeChatDeletesOnlyBinnedChats(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	mock.ExpectExec("DELETE FROM chats").
		WithArgs("c1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.PurgeChat(context.Background(), "c1"); err != nil {
		t.Fatalf("PurgeChat() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestSaveChatUpsertsMessagesJSON(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	now := time.Now().UTC()
	chat := &domain.Chat{
		ID:    "c1",
		Title: "First chat",
		Messages: []domain.ChatMessage{
			{ID: "m1", Role: "user", Content: "hi", CreatedAt: now},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}

	mock.ExpectExec("INSERT INTO chats").
		WithArgs("c1", "First chat", sqlmock.AnyArg(), now, now, nil).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.SaveChat(context.Background(), chat); err != nil {
		t.Fatalf("SaveChat() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestRecordAttachmentIsIdempotent(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	rec := domain.Record{
		ID:             "a1",
		Name:           "notes.pdf",
		MediaType:      "application/pdf",
		SourceSize:     2048,
		TextualContent: "Page 1:\nhello",
		CreatedAt:      time.Now().UTC(),
	}

	mock.ExpectExec("INSERT INTO attachment_records").
		WithArgs(rec.ID, rec.Name, rec.MediaType, rec.SourceSize, rec.TextualContent, rec.CreatedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.RecordAttachment(context.Background(), rec); err != nil {
		t.Fatalf("RecordAttachment() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestRemoveFromCollectionNotFound(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	mock.ExpectExec("DELETE FROM collection_messages").
		WithArgs("missing").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.RemoveFromCollection(context.Background(), "missing")
	if !domain.IsKind(err, domain.ErrChatNotFound) {
		t.Fatalf("expected ErrChatNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
