package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/ogurasousui/leave-ledger/internal/core/leave"
	pgdb "github.com/ogurasousui/leave-ledger/internal/platform/db/postgres"
)

const balanceColumns = `employee_id, leave_type_id, year, allocated_days::text, carry_forward_days::text,
               used_days::text, pending_days::text, remaining_days::text, version, created_at, updated_at`

// BalanceRepository は PostgreSQL を利用した残高台帳の実装です。
// 更新は version 列による条件付き UPDATE で行い、競合時は leave.ErrConcurrentModification を返します。
type BalanceRepository struct {
	pool pgdb.Queryer
}

// NewBalanceRepository は BalanceRepository を生成します。
func NewBalanceRepository(pool pgdb.Queryer) *BalanceRepository {
	return &BalanceRepository{pool: pool}
}

// InsertIfAbsent はキーが未登録の場合のみ残高を作成します。
func (r *BalanceRepository) InsertIfAbsent(ctx context.Context, b *leave.Balance) (bool, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	tag, err := exec.Exec(ctx, `
        INSERT INTO leave_balances (employee_id, leave_type_id, year, allocated_days, carry_forward_days,
                                    used_days, pending_days, remaining_days, version, created_at, updated_at)
        VALUES ($1, $2, $3, $4::numeric, $5::numeric, $6::numeric, $7::numeric, $8::numeric, 1, $9, $10)
        ON CONFLICT (employee_id, leave_type_id, year) DO NOTHING
    `,
		b.EmployeeID,
		b.LeaveTypeID,
		b.Year,
		b.AllocatedDays.String(),
		b.CarryForwardDays.String(),
		b.UsedDays.String(),
		b.PendingDays.String(),
		b.RemainingDays.String(),
		b.CreatedAt,
		b.UpdatedAt,
	)
	if err != nil {
		return false, translateBalancePgError(err)
	}
	return tag.RowsAffected() == 1, nil
}

// FindByKey はキーで残高を取得します。
func (r *BalanceRepository) FindByKey(ctx context.Context, key leave.BalanceKey) (*leave.Balance, error) {
	return r.find(ctx, key, "")
}

// FindByKeyForUpdate は残高行をロックして取得します。トランザクション外では通常の取得と同じです。
func (r *BalanceRepository) FindByKeyForUpdate(ctx context.Context, key leave.BalanceKey) (*leave.Balance, error) {
	return r.find(ctx, key, " FOR UPDATE")
}

func (r *BalanceRepository) find(ctx context.Context, key leave.BalanceKey, lock string) (*leave.Balance, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        SELECT `+balanceColumns+`
          FROM leave_balances
         WHERE employee_id = $1 AND leave_type_id = $2 AND year = $3`+lock,
		key.EmployeeID, key.LeaveTypeID, key.Year)

	found, err := scanBalance(row)
	if err != nil {
		return nil, translateBalancePgError(err)
	}
	return found, nil
}

// Save は version が一致する場合のみ残高を更新し、version を 1 進めます。
func (r *BalanceRepository) Save(ctx context.Context, b *leave.Balance) (*leave.Balance, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        UPDATE leave_balances
           SET allocated_days = $1::numeric,
               carry_forward_days = $2::numeric,
               used_days = $3::numeric,
               pending_days = $4::numeric,
               remaining_days = $5::numeric,
               version = version + 1,
               updated_at = $6
         WHERE employee_id = $7 AND leave_type_id = $8 AND year = $9 AND version = $10
        RETURNING `+balanceColumns,
		b.AllocatedDays.String(),
		b.CarryForwardDays.String(),
		b.UsedDays.String(),
		b.PendingDays.String(),
		b.RemainingDays.String(),
		b.UpdatedAt,
		b.EmployeeID,
		b.LeaveTypeID,
		b.Year,
		b.Version,
	)

	saved, err := scanBalance(row)
	if err == nil {
		return saved, nil
	}
	if !errors.Is(err, leave.ErrBalanceNotFound) {
		return nil, translateBalancePgError(err)
	}

	// 行が存在するなら version 不一致
	if _, findErr := r.FindByKey(ctx, b.Key()); findErr != nil {
		return nil, findErr
	}
	return nil, leave.ErrConcurrentModification
}

// ListByEmployeeYear は社員の year 年の残高を休暇区分 ID 順に返します。
func (r *BalanceRepository) ListByEmployeeYear(ctx context.Context, employeeID string, year int) ([]*leave.Balance, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	rows, err := exec.Query(ctx, `
        SELECT `+balanceColumns+`
          FROM leave_balances
         WHERE employee_id = $1 AND year = $2
         ORDER BY leave_type_id ASC
    `, employeeID, year)
	if err != nil {
		if isInvalidID(err) {
			return nil, nil
		}
		return nil, translateBalancePgError(err)
	}
	defer rows.Close()

	var balances []*leave.Balance
	for rows.Next() {
		b, err := scanBalance(rows)
		if err != nil {
			return nil, translateBalancePgError(err)
		}
		balances = append(balances, b)
	}
	if err := rows.Err(); err != nil {
		return nil, translateBalancePgError(err)
	}
	return balances, nil
}

func scanBalance(row pgx.Row) (*leave.Balance, error) {
	var (
		b         leave.Balance
		allocated string
		carry     string
		used      string
		pending   string
		remaining string
	)

	if err := row.Scan(
		&b.EmployeeID,
		&b.LeaveTypeID,
		&b.Year,
		&allocated,
		&carry,
		&used,
		&pending,
		&remaining,
		&b.Version,
		&b.CreatedAt,
		&b.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, leave.ErrBalanceNotFound
		}
		return nil, err
	}

	var err error
	if b.AllocatedDays, err = parseDecimal("allocated_days", allocated); err != nil {
		return nil, err
	}
	if b.CarryForwardDays, err = parseDecimal("carry_forward_days", carry); err != nil {
		return nil, err
	}
	if b.UsedDays, err = parseDecimal("used_days", used); err != nil {
		return nil, err
	}
	if b.PendingDays, err = parseDecimal("pending_days", pending); err != nil {
		return nil, err
	}
	if b.RemainingDays, err = parseDecimal("remaining_days", remaining); err != nil {
		return nil, err
	}
	return &b, nil
}

func translateBalancePgError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, leave.ErrBalanceNotFound) || errors.Is(err, pgx.ErrNoRows) || isInvalidID(err) {
		return leave.ErrBalanceNotFound
	}

	if pgErr, ok := pgError(err); ok {
		switch pgErr.Code {
		case foreignKeyViolationCode:
			return leave.ErrBalanceNotFound
		case checkViolationCode:
			return leave.ErrInvalidLedgerState
		}
	}

	return conflictOr(err)
}
