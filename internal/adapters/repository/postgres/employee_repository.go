package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/ogurasousui/leave-ledger/internal/core/employee"
	pgdb "github.com/ogurasousui/leave-ledger/internal/platform/db/postgres"
)

const employeeColumns = `id, employee_code, name, email, manager_id, status, hired_at, terminated_at, created_at, updated_at`

// EmployeeRepository は PostgreSQL を利用した社員永続化の実装です。
type EmployeeRepository struct {
	pool pgdb.Queryer
}

// NewEmployeeRepository は EmployeeRepository を生成します。
func NewEmployeeRepository(pool pgdb.Queryer) *EmployeeRepository {
	return &EmployeeRepository{pool: pool}
}

// Create は社員を新規作成します。
func (r *EmployeeRepository) Create(ctx context.Context, e *employee.Employee) (*employee.Employee, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        INSERT INTO employees (employee_code, name, email, manager_id, status, hired_at, terminated_at, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
        RETURNING `+employeeColumns,
		e.EmployeeCode,
		e.Name,
		e.Email,
		nullableString(e.ManagerID),
		string(e.Status),
		nullableDate(e.HiredAt),
		nullableDate(e.TerminatedAt),
		e.CreatedAt,
		e.UpdatedAt,
	)

	created, err := scanEmployee(row)
	if err != nil {
		return nil, translateEmployeePgError(err)
	}
	return created, nil
}

// FindByID は ID で社員を取得します。
func (r *EmployeeRepository) FindByID(ctx context.Context, id string) (*employee.Employee, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        SELECT `+employeeColumns+`
          FROM employees
         WHERE id = $1
         LIMIT 1
    `, id)

	found, err := scanEmployee(row)
	if err != nil {
		return nil, translateEmployeePgError(err)
	}
	return found, nil
}

// FindByCode は社員コードで検索します。
func (r *EmployeeRepository) FindByCode(ctx context.Context, employeeCode string) (*employee.Employee, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        SELECT `+employeeColumns+`
          FROM employees
         WHERE employee_code = $1
         LIMIT 1
    `, employeeCode)

	found, err := scanEmployee(row)
	if err != nil {
		return nil, translateEmployeePgError(err)
	}
	return found, nil
}

func scanEmployee(row pgx.Row) (*employee.Employee, error) {
	var (
		e            employee.Employee
		managerID    sql.NullString
		status       string
		hiredAt      sql.NullTime
		terminatedAt sql.NullTime
	)

	if err := row.Scan(
		&e.ID,
		&e.EmployeeCode,
		&e.Name,
		&e.Email,
		&managerID,
		&status,
		&hiredAt,
		&terminatedAt,
		&e.CreatedAt,
		&e.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, employee.ErrEmployeeNotFound
		}
		return nil, err
	}

	e.ManagerID = stringPtr(managerID)
	e.Status = employee.Status(status)
	e.HiredAt = datePtr(hiredAt)
	e.TerminatedAt = datePtr(terminatedAt)
	return &e, nil
}

func translateEmployeePgError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) || isInvalidID(err) {
		return employee.ErrEmployeeNotFound
	}

	if pgErr, ok := pgError(err); ok {
		switch pgErr.Code {
		case uniqueViolationCode:
			return employee.ErrEmployeeCodeAlreadyExists
		case foreignKeyViolationCode:
			return employee.ErrEmployeeNotFound
		case checkViolationCode:
			if pgErr.ConstraintName == "employees_status_check" {
				return employee.ErrInvalidStatus
			}
			return employee.ErrInvalidDateRange
		}
	}

	return conflictOr(err)
}
