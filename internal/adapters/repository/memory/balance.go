package memory

import (
	"context"
	"sort"

	"github.com/ogurasousui/leave-ledger/internal/core/leave"
)

// BalanceRepository は leave.BalanceRepository のメモリ実装です。
type BalanceRepository struct {
	store *Store
}

// NewBalanceRepository は BalanceRepository を生成します。
func NewBalanceRepository(store *Store) *BalanceRepository {
	return &BalanceRepository{store: store}
}

// InsertIfAbsent はキーが未登録の場合のみ残高を作成します。
func (r *BalanceRepository) InsertIfAbsent(ctx context.Context, b *leave.Balance) (bool, error) {
	var inserted bool
	err := r.store.run(ctx, func(st *state) error {
		if _, ok := st.balances[b.Key()]; ok {
			return nil
		}
		clone := b.Clone()
		clone.Version = 1
		st.balances[b.Key()] = clone
		inserted = true
		return nil
	})
	return inserted, err
}

// FindByKey はキーで残高を取得します。
func (r *BalanceRepository) FindByKey(ctx context.Context, key leave.BalanceKey) (*leave.Balance, error) {
	var found *leave.Balance
	err := r.store.run(ctx, func(st *state) error {
		b, ok := st.balances[key]
		if !ok {
			return leave.ErrBalanceNotFound
		}
		found = b.Clone()
		return nil
	})
	return found, err
}

// FindByKeyForUpdate は FindByKey と同じです。
func (r *BalanceRepository) FindByKeyForUpdate(ctx context.Context, key leave.BalanceKey) (*leave.Balance, error) {
	return r.FindByKey(ctx, key)
}

// Save は Version が一致する場合のみ残高を更新します。
func (r *BalanceRepository) Save(ctx context.Context, b *leave.Balance) (*leave.Balance, error) {
	var saved *leave.Balance
	err := r.store.run(ctx, func(st *state) error {
		current, ok := st.balances[b.Key()]
		if !ok {
			return leave.ErrBalanceNotFound
		}
		if current.Version != b.Version {
			return leave.ErrConcurrentModification
		}
		clone := b.Clone()
		clone.Version = current.Version + 1
		clone.CreatedAt = current.CreatedAt
		st.balances[b.Key()] = clone
		saved = clone.Clone()
		return nil
	})
	return saved, err
}

// ListByEmployeeYear は社員の年度別残高を休暇区分 ID 順に返します。
func (r *BalanceRepository) ListByEmployeeYear(ctx context.Context, employeeID string, year int) ([]*leave.Balance, error) {
	var result []*leave.Balance
	err := r.store.run(ctx, func(st *state) error {
		for key, b := range st.balances {
			if key.EmployeeID == employeeID && key.Year == year {
				result = append(result, b.Clone())
			}
		}
		sort.Slice(result, func(i, j int) bool { return result[i].LeaveTypeID < result[j].LeaveTypeID })
		return nil
	})
	return result, err
}
