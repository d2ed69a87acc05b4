package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/kirillkom/agrisense-rag/internal/core/domain"
)

func newRepoWithMock(t *testing.T) (*ChatEventRepository, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	return NewChatEventRepository(db), mock, func() { _ = db.Close() }
}

func TestSaveChatEventInsertsIdempotently(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	created := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	mock.ExpectExec("INSERT INTO chat_events .* ON CONFLICT \\(id\\) DO NOTHING").
		WithArgs("evt-1", "req-1", "ราคาข้าว", []byte(`["c1","c2"]`), "model", false, "ok", 4, int64(120), created).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.SaveChatEvent(context.Background(), domain.ChatEvent{
		ID:           "evt-1",
		RequestID:    "req-1",
		Question:     "ราคาข้าว",
		PassageIDs:   []string{"c1", "c2"},
		FilterSource: domain.FilterSourceModel,
		Status:       domain.ChatStatusOK,
		Fragments:    4,
		DurationMS:   120,
		CreatedAt:    created,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestSaveChatEventNilPassageIDsStoredAsEmptyArray(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	mock.ExpectExec("INSERT INTO chat_events").
		WithArgs("evt-2", "", "q", []byte(`[]`), "fallback", true, "ok", 1, int64(0), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.SaveChatEvent(context.Background(), domain.ChatEvent{
		ID:           "evt-2",
		Question:     "q",
		FilterSource: domain.FilterSourceFallback,
		NoContext:    true,
		Status:       domain.ChatStatusOK,
		Fragments:    1,
		CreatedAt:    time.Now(),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestSaveChatEventWrapsDriverErrorAsTemporary(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	mock.ExpectExec("INSERT INTO chat_events").WillReturnError(errors.New("connection reset"))

	err := repo.SaveChatEvent(context.Background(), domain.ChatEvent{ID: "evt-3", CreatedAt: time.Now()})
	if !domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("expected ErrTemporary, got %v", err)
	}
}

func TestEnsureSchemaTakesAdvisoryLock(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	mock.ExpectBegin()
	mock.ExpectExec("SELECT pg_advisory_xact_lock").WithArgs(schemaLockID).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS chat_events").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	if err := repo.EnsureSchema(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestListRecentChatEvents(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	created := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{
		"id", "request_id", "question", "passage_ids", "filter_source", "no_context", "status", "fragments", "duration_ms", "created_at",
	}).AddRow("evt-1", "req-1", "q", []byte(`["c1"]`), "caller", false, "canceled", 2, int64(50), created)

	mock.ExpectQuery("SELECT id, request_id, question").WithArgs(5).WillReturnRows(rows)

	events, err := repo.ListRecentChatEvents(context.Background(), 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected one event, got %d", len(events))
	}
	got := events[0]
	if got.FilterSource != domain.FilterSourceCaller || got.Status != domain.ChatStatusCanceled {
		t.Fatalf("unexpected event: %+v", got)
	}
	if len(got.PassageIDs) != 1 || got.PassageIDs[0] != "c1" {
		t.Fatalf("unexpected passage ids: %v", got.PassageIDs)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
