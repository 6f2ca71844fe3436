package memory

import (
	"context"

	"github.com/ogurasousui/leave-ledger/internal/core/leave"
)

// RequestRepository は leave.RequestRepository のメモリ実装です。
type RequestRepository struct {
	store *Store
}

// NewRequestRepository は RequestRepository を生成します。
func NewRequestRepository(store *Store) *RequestRepository {
	return &RequestRepository{store: store}
}

// Create は申請を登録します。
func (r *RequestRepository) Create(ctx context.Context, req *leave.Request) (*leave.Request, error) {
	var created *leave.Request
	err := r.store.run(ctx, func(st *state) error {
		clone := req.Clone()
		if clone.ID == "" {
			clone.ID = r.store.newID()
		}
		st.requests[clone.ID] = clone
		st.reqOrder = append(st.reqOrder, clone.ID)
		created = clone.Clone()
		return nil
	})
	return created, err
}

// Update は申請を更新します。
func (r *RequestRepository) Update(ctx context.Context, req *leave.Request) (*leave.Request, error) {
	var updated *leave.Request
	err := r.store.run(ctx, func(st *state) error {
		if _, ok := st.requests[req.ID]; !ok {
			return leave.ErrRequestNotFound
		}
		st.requests[req.ID] = req.Clone()
		updated = req.Clone()
		return nil
	})
	return updated, err
}

// Delete は申請と添付書類を削除します。
func (r *RequestRepository) Delete(ctx context.Context, id string) error {
	return r.store.run(ctx, func(st *state) error {
		if _, ok := st.requests[id]; !ok {
			return leave.ErrRequestNotFound
		}
		delete(st.requests, id)
		st.reqOrder = removeID(st.reqOrder, id)
		deleteDocuments(st, id)
		return nil
	})
}

// FindByID は ID で申請を取得します。
func (r *RequestRepository) FindByID(ctx context.Context, id string) (*leave.Request, error) {
	var found *leave.Request
	err := r.store.run(ctx, func(st *state) error {
		req, ok := st.requests[id]
		if !ok {
			return leave.ErrRequestNotFound
		}
		found = req.Clone()
		return nil
	})
	return found, err
}

// FindByIDForUpdate は FindByID と同じです。排他はストアのトランザクションで保証されます。
func (r *RequestRepository) FindByIDForUpdate(ctx context.Context, id string) (*leave.Request, error) {
	return r.FindByID(ctx, id)
}

// FindOverlapping は期間が重なる PENDING と APPROVED の申請を返します。
func (r *RequestRepository) FindOverlapping(ctx context.Context, q leave.OverlapQuery) ([]*leave.Request, error) {
	var result []*leave.Request
	err := r.store.run(ctx, func(st *state) error {
		for _, id := range st.reqOrder {
			req := st.requests[id]
			if req.EmployeeID != q.EmployeeID || req.ID == q.ExcludeID || !req.Status.Blocking() {
				continue
			}
			if req.Overlaps(q.StartDate, q.EndDate) {
				result = append(result, req.Clone())
			}
		}
		return nil
	})
	return result, err
}

// List は申請を登録順に返します。
func (r *RequestRepository) List(ctx context.Context, filter leave.ListRequestsFilter) ([]*leave.Request, string, error) {
	var (
		page []*leave.Request
		next string
	)
	err := r.store.run(ctx, func(st *state) error {
		var filtered []*leave.Request
		for _, id := range st.reqOrder {
			req := st.requests[id]
			if filter.EmployeeID != "" && req.EmployeeID != filter.EmployeeID {
				continue
			}
			if filter.Status != nil && req.Status != *filter.Status {
				continue
			}
			if filter.Year != nil && req.Year() != *filter.Year {
				continue
			}
			filtered = append(filtered, req.Clone())
		}
		page, next = paginate(filtered, filter.Limit, filter.Offset)
		return nil
	})
	return page, next, err
}

// LockEmployee は何もしません。トランザクションはストア全体で直列化されています。
func (r *RequestRepository) LockEmployee(context.Context, string) error {
	return nil
}
