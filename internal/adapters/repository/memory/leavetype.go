package memory

import (
	"context"

	"github.com/ogurasousui/leave-ledger/internal/core/leavetype"
)

// LeaveTypeRepository は leavetype.Repository のメモリ実装です。
type LeaveTypeRepository struct {
	store *Store
}

// NewLeaveTypeRepository は LeaveTypeRepository を生成します。
func NewLeaveTypeRepository(store *Store) *LeaveTypeRepository {
	return &LeaveTypeRepository{store: store}
}

// Create は休暇区分を登録します。
func (r *LeaveTypeRepository) Create(ctx context.Context, lt *leavetype.LeaveType) (*leavetype.LeaveType, error) {
	var created *leavetype.LeaveType
	err := r.store.run(ctx, func(st *state) error {
		for _, existing := range st.leaveTypes {
			if existing.Code == lt.Code {
				return leavetype.ErrCodeAlreadyExists
			}
		}
		clone := cloneLeaveType(lt)
		if clone.ID == "" {
			clone.ID = r.store.newID()
		}
		st.leaveTypes[clone.ID] = clone
		st.ltOrder = append(st.ltOrder, clone.ID)
		created = cloneLeaveType(clone)
		return nil
	})
	return created, err
}

// Update は休暇区分を更新します。
func (r *LeaveTypeRepository) Update(ctx context.Context, lt *leavetype.LeaveType) (*leavetype.LeaveType, error) {
	var updated *leavetype.LeaveType
	err := r.store.run(ctx, func(st *state) error {
		if _, ok := st.leaveTypes[lt.ID]; !ok {
			return leavetype.ErrLeaveTypeNotFound
		}
		for _, existing := range st.leaveTypes {
			if existing.ID != lt.ID && existing.Code == lt.Code {
				return leavetype.ErrCodeAlreadyExists
			}
		}
		st.leaveTypes[lt.ID] = cloneLeaveType(lt)
		updated = cloneLeaveType(lt)
		return nil
	})
	return updated, err
}

// Delete は休暇区分を削除します。申請または残高から参照されている場合は ErrLeaveTypeInUse を返します。
func (r *LeaveTypeRepository) Delete(ctx context.Context, id string) error {
	return r.store.run(ctx, func(st *state) error {
		if _, ok := st.leaveTypes[id]; !ok {
			return leavetype.ErrLeaveTypeNotFound
		}
		for _, req := range st.requests {
			if req.LeaveTypeID == id {
				return leavetype.ErrLeaveTypeInUse
			}
		}
		for key := range st.balances {
			if key.LeaveTypeID == id {
				return leavetype.ErrLeaveTypeInUse
			}
		}
		delete(st.leaveTypes, id)
		st.ltOrder = removeID(st.ltOrder, id)
		return nil
	})
}

// FindByID は ID で休暇区分を取得します。
func (r *LeaveTypeRepository) FindByID(ctx context.Context, id string) (*leavetype.LeaveType, error) {
	var found *leavetype.LeaveType
	err := r.store.run(ctx, func(st *state) error {
		lt, ok := st.leaveTypes[id]
		if !ok {
			return leavetype.ErrLeaveTypeNotFound
		}
		found = cloneLeaveType(lt)
		return nil
	})
	return found, err
}

// FindByCode はコードで休暇区分を取得します。
func (r *LeaveTypeRepository) FindByCode(ctx context.Context, code string) (*leavetype.LeaveType, error) {
	var found *leavetype.LeaveType
	err := r.store.run(ctx, func(st *state) error {
		for _, id := range st.ltOrder {
			if lt := st.leaveTypes[id]; lt.Code == code {
				found = cloneLeaveType(lt)
				return nil
			}
		}
		return leavetype.ErrLeaveTypeNotFound
	})
	return found, err
}

// List は休暇区分を登録順に返します。
func (r *LeaveTypeRepository) List(ctx context.Context, filter leavetype.ListLeaveTypesFilter) ([]*leavetype.LeaveType, string, error) {
	var (
		page []*leavetype.LeaveType
		next string
	)
	err := r.store.run(ctx, func(st *state) error {
		var filtered []*leavetype.LeaveType
		for _, id := range st.ltOrder {
			lt := st.leaveTypes[id]
			if filter.Active != nil && lt.Active != *filter.Active {
				continue
			}
			filtered = append(filtered, cloneLeaveType(lt))
		}
		page, next = paginate(filtered, filter.Limit, filter.Offset)
		return nil
	})
	return page, next, err
}

// ListActive は有効な休暇区分をすべて返します。
func (r *LeaveTypeRepository) ListActive(ctx context.Context) ([]*leavetype.LeaveType, error) {
	active := true
	result, _, err := r.List(ctx, leavetype.ListLeaveTypesFilter{Active: &active})
	return result, err
}

func cloneLeaveType(lt *leavetype.LeaveType) *leavetype.LeaveType {
	if lt == nil {
		return nil
	}
	c := *lt
	if lt.MaxCarryForwardDays != nil {
		v := *lt.MaxCarryForwardDays
		c.MaxCarryForwardDays = &v
	}
	if lt.MinimumNoticeDays != nil {
		v := *lt.MinimumNoticeDays
		c.MinimumNoticeDays = &v
	}
	if lt.MaximumConsecutiveDays != nil {
		v := *lt.MaximumConsecutiveDays
		c.MaximumConsecutiveDays = &v
	}
	return &c
}
