package memory

import (
	"context"

	"github.com/ogurasousui/leave-ledger/internal/core/employee"
)

// EmployeeRepository は employee.Repository のメモリ実装です。
type EmployeeRepository struct {
	store *Store
}

// NewEmployeeRepository は EmployeeRepository を生成します。
func NewEmployeeRepository(store *Store) *EmployeeRepository {
	return &EmployeeRepository{store: store}
}

// Create は社員を登録します。ID が空の場合は採番します。
func (r *EmployeeRepository) Create(ctx context.Context, emp *employee.Employee) (*employee.Employee, error) {
	var created *employee.Employee
	err := r.store.run(ctx, func(st *state) error {
		for _, existing := range st.employees {
			if existing.EmployeeCode == emp.EmployeeCode {
				return employee.ErrEmployeeCodeAlreadyExists
			}
		}
		clone := cloneEmployee(emp)
		if clone.ID == "" {
			clone.ID = r.store.newID()
		}
		st.employees[clone.ID] = clone
		st.empOrder = append(st.empOrder, clone.ID)
		created = cloneEmployee(clone)
		return nil
	})
	return created, err
}

// FindByID は ID で社員を取得します。
func (r *EmployeeRepository) FindByID(ctx context.Context, id string) (*employee.Employee, error) {
	var found *employee.Employee
	err := r.store.run(ctx, func(st *state) error {
		emp, ok := st.employees[id]
		if !ok {
			return employee.ErrEmployeeNotFound
		}
		found = cloneEmployee(emp)
		return nil
	})
	return found, err
}

// FindByCode は社員コードで社員を取得します。
func (r *EmployeeRepository) FindByCode(ctx context.Context, code string) (*employee.Employee, error) {
	var found *employee.Employee
	err := r.store.run(ctx, func(st *state) error {
		for _, id := range st.empOrder {
			if emp := st.employees[id]; emp.EmployeeCode == code {
				found = cloneEmployee(emp)
				return nil
			}
		}
		return employee.ErrEmployeeNotFound
	})
	return found, err
}

func cloneEmployee(e *employee.Employee) *employee.Employee {
	if e == nil {
		return nil
	}
	c := *e
	if e.ManagerID != nil {
		v := *e.ManagerID
		c.ManagerID = &v
	}
	if e.HiredAt != nil {
		v := *e.HiredAt
		c.HiredAt = &v
	}
	if e.TerminatedAt != nil {
		v := *e.TerminatedAt
		c.TerminatedAt = &v
	}
	return &c
}
