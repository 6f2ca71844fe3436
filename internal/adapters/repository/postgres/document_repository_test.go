package postgres

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/ogurasousui/leave-ledger/internal/core/document"
	"github.com/ogurasousui/leave-ledger/internal/core/leave"
	pgxmock "github.com/pashagolub/pgxmock/v4"
)

func TestDocumentRepository_CreateForMissingRequest(t *testing.T) {
	t.Parallel()

	mock := newMockPool(t)
	repo := NewDocumentRepository(mock)
	now := time.Now().UTC()
	content := []byte("%PDF-1.4")

	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO leave_documents`)).
		WithArgs("req-404", "a.pdf", "application/pdf", int64(len(content)), "emp-1", content, now).
		WillReturnError(&pgconn.PgError{Code: foreignKeyViolationCode})

	_, err := repo.Create(context.Background(), &document.Document{
		LeaveRequestID: "req-404",
		FileName:       "a.pdf",
		ContentType:    "application/pdf",
		SizeBytes:      int64(len(content)),
		UploadedBy:     "emp-1",
		Content:        content,
		CreatedAt:      now,
	})
	if !errors.Is(err, leave.ErrRequestNotFound) {
		t.Fatalf("expected ErrRequestNotFound, got %v", err)
	}
}

func TestDocumentRepository_DeleteByRequest(t *testing.T) {
	t.Parallel()

	mock := newMockPool(t)
	repo := NewDocumentRepository(mock)

	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM leave_documents WHERE leave_request_id = $1`)).
		WithArgs("req-1").
		WillReturnResult(pgxmock.NewResult("DELETE", 2))

	n, err := repo.DeleteByRequest(context.Background(), "req-1")
	if err != nil || n != 2 {
		t.Fatalf("expected 2 deleted documents, got %d, %v", n, err)
	}
}
