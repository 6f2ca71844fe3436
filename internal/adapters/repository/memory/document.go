package memory

import (
	"context"

	"github.com/ogurasousui/leave-ledger/internal/core/document"
	"github.com/ogurasousui/leave-ledger/internal/core/leave"
)

// DocumentRepository は document.Repository のメモリ実装です。
type DocumentRepository struct {
	store *Store
}

// NewDocumentRepository は DocumentRepository を生成します。
func NewDocumentRepository(store *Store) *DocumentRepository {
	return &DocumentRepository{store: store}
}

// Create は書類を登録します。添付先の申請が存在しない場合は leave.ErrRequestNotFound を返します。
func (r *DocumentRepository) Create(ctx context.Context, doc *document.Document) (*document.Document, error) {
	var created *document.Document
	err := r.store.run(ctx, func(st *state) error {
		if _, ok := st.requests[doc.LeaveRequestID]; !ok {
			return leave.ErrRequestNotFound
		}
		clone := cloneDocument(doc, true)
		if clone.ID == "" {
			clone.ID = r.store.newID()
		}
		st.documents[clone.ID] = clone
		st.docOrder = append(st.docOrder, clone.ID)
		created = cloneDocument(clone, false)
		return nil
	})
	return created, err
}

// FindByID は内容を含めて書類を取得します。
func (r *DocumentRepository) FindByID(ctx context.Context, id string) (*document.Document, error) {
	var found *document.Document
	err := r.store.run(ctx, func(st *state) error {
		doc, ok := st.documents[id]
		if !ok {
			return document.ErrDocumentNotFound
		}
		found = cloneDocument(doc, true)
		return nil
	})
	return found, err
}

// ListByRequest は申請の書類メタデータを登録順に返します。
func (r *DocumentRepository) ListByRequest(ctx context.Context, requestID string) ([]*document.Document, error) {
	var result []*document.Document
	err := r.store.run(ctx, func(st *state) error {
		for _, id := range st.docOrder {
			if doc := st.documents[id]; doc.LeaveRequestID == requestID {
				result = append(result, cloneDocument(doc, false))
			}
		}
		return nil
	})
	return result, err
}

// DeleteByRequest は申請の書類をすべて削除し、削除件数を返します。
func (r *DocumentRepository) DeleteByRequest(ctx context.Context, requestID string) (int, error) {
	var n int
	err := r.store.run(ctx, func(st *state) error {
		n = deleteDocuments(st, requestID)
		return nil
	})
	return n, err
}

func deleteDocuments(st *state, requestID string) int {
	n := 0
	kept := st.docOrder[:0]
	for _, id := range st.docOrder {
		if st.documents[id].LeaveRequestID == requestID {
			delete(st.documents, id)
			n++
			continue
		}
		kept = append(kept, id)
	}
	st.docOrder = kept
	return n
}

func cloneDocument(d *document.Document, withContent bool) *document.Document {
	if d == nil {
		return nil
	}
	c := *d
	c.Content = nil
	if withContent && d.Content != nil {
		c.Content = append([]byte(nil), d.Content...)
	}
	return &c
}
