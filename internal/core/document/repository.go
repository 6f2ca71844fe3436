package document

import (
	"context"

	"github.com/ogurasousui/leave-ledger/internal/core/leave"
)

// Repository は添付書類の永続化を行うインターフェースです。
type Repository interface {
	Create(ctx context.Context, doc *Document) (*Document, error)
	// FindByID は内容を含めて書類を取得します。
	FindByID(ctx context.Context, id string) (*Document, error)
	// ListByRequest は内容を含まないメタデータのみを返します。
	ListByRequest(ctx context.Context, requestID string) ([]*Document, error)
	DeleteByRequest(ctx context.Context, requestID string) (int, error)
}

// RequestReader は添付先の申請の存在確認に使用します。
type RequestReader interface {
	FindByID(ctx context.Context, id string) (*leave.Request, error)
}
