package document

import (
	"context"
	"log/slog"
	"mime"
	"net/http"
	"path/filepath"
	"strings"
	"time"
)

// Clock は現在時刻を提供します。
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time {
	return time.Now().UTC()
}

// TransactionManager はトランザクション制御の抽象化です。
type TransactionManager interface {
	WithinReadOnly(ctx context.Context, fn func(context.Context) error) error
	WithinReadWrite(ctx context.Context, fn func(context.Context) error) error
}

type noopTransactionManager struct{}

func (noopTransactionManager) WithinReadOnly(ctx context.Context, fn func(context.Context) error) error {
	return fn(ctx)
}

func (noopTransactionManager) WithinReadWrite(ctx context.Context, fn func(context.Context) error) error {
	return fn(ctx)
}

// Service は休暇申請の添付書類を管理します。残高台帳とは独立しています。
type Service struct {
	repo     Repository
	requests RequestReader
	clock    Clock
	tx       TransactionManager
	maxBytes int64
	logger   *slog.Logger
}

// NewService は Service を生成します。maxBytes が 0 以下の場合はサイズ上限を設けません。
func NewService(repo Repository, requests RequestReader, clock Clock, tx TransactionManager, maxBytes int64, logger *slog.Logger) *Service {
	if clock == nil {
		clock = realClock{}
	}
	if tx == nil {
		tx = noopTransactionManager{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, requests: requests, clock: clock, tx: tx, maxBytes: maxBytes, logger: logger}
}

// AttachInput は書類添付時の入力です。
type AttachInput struct {
	RequestID   string
	FileName    string
	ContentType string
	Data        []byte
	UploadedBy  string
}

// Attach は申請に書類を添付します。ContentType が空の場合は拡張子と内容から判定します。
func (s *Service) Attach(ctx context.Context, in AttachInput) (*Document, error) {
	requestID := strings.TrimSpace(in.RequestID)
	if requestID == "" {
		return nil, ErrInvalidRequestID
	}

	name := filepath.Base(strings.TrimSpace(in.FileName))
	if name == "" || name == "." || name == string(filepath.Separator) {
		return nil, ErrInvalidFileName
	}

	if len(in.Data) == 0 {
		return nil, ErrEmptyContent
	}
	if s.maxBytes > 0 && int64(len(in.Data)) > s.maxBytes {
		return nil, ErrTooLarge
	}

	contentType := strings.TrimSpace(in.ContentType)
	if contentType == "" {
		contentType = detectContentType(name, in.Data)
	}

	var created *Document
	if err := s.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		if _, err := s.requests.FindByID(txCtx, requestID); err != nil {
			return err
		}

		content := make([]byte, len(in.Data))
		copy(content, in.Data)

		result, err := s.repo.Create(txCtx, &Document{
			LeaveRequestID: requestID,
			FileName:       name,
			ContentType:    contentType,
			SizeBytes:      int64(len(content)),
			UploadedBy:     strings.TrimSpace(in.UploadedBy),
			CreatedAt:      s.clock.Now(),
			Content:        content,
		})
		if err != nil {
			return err
		}
		created = result
		return nil
	}); err != nil {
		return nil, err
	}

	return created, nil
}

// List は申請に添付された書類のメタデータを返します。
func (s *Service) List(ctx context.Context, requestID string) ([]*Document, error) {
	requestID = strings.TrimSpace(requestID)
	if requestID == "" {
		return nil, ErrInvalidRequestID
	}

	var docs []*Document
	if err := s.tx.WithinReadOnly(ctx, func(txCtx context.Context) error {
		result, err := s.repo.ListByRequest(txCtx, requestID)
		if err != nil {
			return err
		}
		docs = result
		return nil
	}); err != nil {
		return nil, err
	}
	return docs, nil
}

// Get は内容を含めて書類を取得します。
func (s *Service) Get(ctx context.Context, id string) (*Document, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, ErrInvalidID
	}

	var doc *Document
	if err := s.tx.WithinReadOnly(ctx, func(txCtx context.Context) error {
		result, err := s.repo.FindByID(txCtx, id)
		if err != nil {
			return err
		}
		doc = result
		return nil
	}); err != nil {
		return nil, err
	}
	return doc, nil
}

// PurgeRequest は申請に添付された書類をすべて削除します。
func (s *Service) PurgeRequest(ctx context.Context, requestID string) error {
	requestID = strings.TrimSpace(requestID)
	if requestID == "" {
		return ErrInvalidRequestID
	}

	return s.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		n, err := s.repo.DeleteByRequest(txCtx, requestID)
		if err != nil {
			return err
		}
		if n > 0 {
			s.logger.InfoContext(txCtx, "leave documents purged", "request_id", requestID, "count", n)
		}
		return nil
	})
}

func detectContentType(name string, data []byte) string {
	if byExt := mime.TypeByExtension(strings.ToLower(filepath.Ext(name))); byExt != "" {
		return byExt
	}
	return http.DetectContentType(data)
}
