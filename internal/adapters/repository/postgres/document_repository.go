package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/ogurasousui/leave-ledger/internal/core/document"
	"github.com/ogurasousui/leave-ledger/internal/core/leave"
	pgdb "github.com/ogurasousui/leave-ledger/internal/platform/db/postgres"
)

const documentMetaColumns = `id, leave_request_id, file_name, content_type, size_bytes, uploaded_by, created_at`

// DocumentRepository は PostgreSQL を利用した添付書類永続化の実装です。内容は bytea 列に保存します。
type DocumentRepository struct {
	pool pgdb.Queryer
}

// NewDocumentRepository は DocumentRepository を生成します。
func NewDocumentRepository(pool pgdb.Queryer) *DocumentRepository {
	return &DocumentRepository{pool: pool}
}

// Create は書類を保存し、内容を除いたメタデータを返します。
func (r *DocumentRepository) Create(ctx context.Context, doc *document.Document) (*document.Document, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        INSERT INTO leave_documents (leave_request_id, file_name, content_type, size_bytes, uploaded_by, content, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
        RETURNING `+documentMetaColumns,
		doc.LeaveRequestID,
		doc.FileName,
		doc.ContentType,
		doc.SizeBytes,
		doc.UploadedBy,
		doc.Content,
		doc.CreatedAt,
	)

	created, err := scanDocument(row, false)
	if err != nil {
		return nil, translateDocumentPgError(err)
	}
	return created, nil
}

// FindByID は内容を含めて書類を取得します。
func (r *DocumentRepository) FindByID(ctx context.Context, id string) (*document.Document, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        SELECT `+documentMetaColumns+`, content
          FROM leave_documents
         WHERE id = $1
    `, id)

	found, err := scanDocument(row, true)
	if err != nil {
		return nil, translateDocumentPgError(err)
	}
	return found, nil
}

// ListByRequest は申請に添付された書類のメタデータを登録順に返します。
func (r *DocumentRepository) ListByRequest(ctx context.Context, requestID string) ([]*document.Document, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	rows, err := exec.Query(ctx, `
        SELECT `+documentMetaColumns+`
          FROM leave_documents
         WHERE leave_request_id = $1
         ORDER BY created_at ASC, id ASC
    `, requestID)
	if err != nil {
		if isInvalidID(err) {
			return nil, nil
		}
		return nil, translateDocumentPgError(err)
	}
	defer rows.Close()

	var docs []*document.Document
	for rows.Next() {
		doc, err := scanDocument(rows, false)
		if err != nil {
			return nil, translateDocumentPgError(err)
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, translateDocumentPgError(err)
	}
	return docs, nil
}

// DeleteByRequest は申請に添付された書類をすべて削除し、削除件数を返します。
func (r *DocumentRepository) DeleteByRequest(ctx context.Context, requestID string) (int, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	tag, err := exec.Exec(ctx, `DELETE FROM leave_documents WHERE leave_request_id = $1`, requestID)
	if err != nil {
		if isInvalidID(err) {
			return 0, nil
		}
		return 0, translateDocumentPgError(err)
	}
	return int(tag.RowsAffected()), nil
}

func scanDocument(row pgx.Row, withContent bool) (*document.Document, error) {
	var doc document.Document
	dest := []any{
		&doc.ID,
		&doc.LeaveRequestID,
		&doc.FileName,
		&doc.ContentType,
		&doc.SizeBytes,
		&doc.UploadedBy,
		&doc.CreatedAt,
	}
	if withContent {
		dest = append(dest, &doc.Content)
	}

	if err := row.Scan(dest...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, document.ErrDocumentNotFound
		}
		return nil, err
	}
	return &doc, nil
}

func translateDocumentPgError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) || isInvalidID(err) {
		return document.ErrDocumentNotFound
	}
	if pgErr, ok := pgError(err); ok && pgErr.Code == foreignKeyViolationCode {
		return leave.ErrRequestNotFound
	}
	return err
}
