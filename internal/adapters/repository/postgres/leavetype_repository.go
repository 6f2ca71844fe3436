package postgres

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/ogurasousui/leave-ledger/internal/core/leavetype"
	pgdb "github.com/ogurasousui/leave-ledger/internal/platform/db/postgres"
)

const leaveTypeColumns = `id, name, code, days_allowed::text, requires_approval, carry_forward,
               max_carry_forward_days::text, minimum_notice_days, maximum_consecutive_days,
               active, created_at, updated_at`

// LeaveTypeRepository は PostgreSQL を利用した休暇区分永続化の実装です。
type LeaveTypeRepository struct {
	pool pgdb.Queryer
}

// NewLeaveTypeRepository は LeaveTypeRepository を生成します。
func NewLeaveTypeRepository(pool pgdb.Queryer) *LeaveTypeRepository {
	return &LeaveTypeRepository{pool: pool}
}

// Create は休暇区分を新規作成します。
func (r *LeaveTypeRepository) Create(ctx context.Context, lt *leavetype.LeaveType) (*leavetype.LeaveType, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        INSERT INTO leave_types (name, code, days_allowed, requires_approval, carry_forward,
                                 max_carry_forward_days, minimum_notice_days, maximum_consecutive_days,
                                 active, created_at, updated_at)
        VALUES ($1, $2, $3::numeric, $4, $5, $6::numeric, $7, $8, $9, $10, $11)
        RETURNING `+leaveTypeColumns,
		lt.Name,
		lt.Code,
		lt.DaysAllowed.String(),
		lt.RequiresApproval,
		lt.CarryForward,
		nullableDecimal(lt.MaxCarryForwardDays),
		nullableInt(lt.MinimumNoticeDays),
		nullableInt(lt.MaximumConsecutiveDays),
		lt.Active,
		lt.CreatedAt,
		lt.UpdatedAt,
	)

	created, err := scanLeaveType(row)
	if err != nil {
		return nil, translateLeaveTypePgError(err)
	}
	return created, nil
}

// Update は休暇区分を更新します。
func (r *LeaveTypeRepository) Update(ctx context.Context, lt *leavetype.LeaveType) (*leavetype.LeaveType, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        UPDATE leave_types
           SET name = $1,
               code = $2,
               days_allowed = $3::numeric,
               requires_approval = $4,
               carry_forward = $5,
               max_carry_forward_days = $6::numeric,
               minimum_notice_days = $7,
               maximum_consecutive_days = $8,
               active = $9,
               updated_at = $10
         WHERE id = $11
        RETURNING `+leaveTypeColumns,
		lt.Name,
		lt.Code,
		lt.DaysAllowed.String(),
		lt.RequiresApproval,
		lt.CarryForward,
		nullableDecimal(lt.MaxCarryForwardDays),
		nullableInt(lt.MinimumNoticeDays),
		nullableInt(lt.MaximumConsecutiveDays),
		lt.Active,
		lt.UpdatedAt,
		lt.ID,
	)

	updated, err := scanLeaveType(row)
	if err != nil {
		return nil, translateLeaveTypePgError(err)
	}
	return updated, nil
}

// Delete は休暇区分を削除します。申請や残高から参照されている場合は ErrLeaveTypeInUse を返します。
func (r *LeaveTypeRepository) Delete(ctx context.Context, id string) error {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	tag, err := exec.Exec(ctx, `DELETE FROM leave_types WHERE id = $1`, id)
	if err != nil {
		return translateLeaveTypePgError(err)
	}
	if tag.RowsAffected() == 0 {
		return leavetype.ErrLeaveTypeNotFound
	}
	return nil
}

// FindByID は ID で休暇区分を取得します。
func (r *LeaveTypeRepository) FindByID(ctx context.Context, id string) (*leavetype.LeaveType, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        SELECT `+leaveTypeColumns+`
          FROM leave_types
         WHERE id = $1
         LIMIT 1
    `, id)

	found, err := scanLeaveType(row)
	if err != nil {
		return nil, translateLeaveTypePgError(err)
	}
	return found, nil
}

// FindByCode はコードで休暇区分を取得します。
func (r *LeaveTypeRepository) FindByCode(ctx context.Context, code string) (*leavetype.LeaveType, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        SELECT `+leaveTypeColumns+`
          FROM leave_types
         WHERE code = $1
         LIMIT 1
    `, code)

	found, err := scanLeaveType(row)
	if err != nil {
		return nil, translateLeaveTypePgError(err)
	}
	return found, nil
}

// List は休暇区分の一覧を取得します。
func (r *LeaveTypeRepository) List(ctx context.Context, filter leavetype.ListLeaveTypesFilter) ([]*leavetype.LeaveType, string, error) {
	if filter.Limit <= 0 {
		return nil, "", leavetype.ErrInvalidPageSize
	}
	if filter.Offset < 0 {
		return nil, "", leavetype.ErrInvalidPageToken
	}

	limitWithBuffer := filter.Limit + 1

	args := make([]any, 0, 3)
	conditions := make([]string, 0, 1)

	if filter.Active != nil {
		placeholder := "$" + strconv.Itoa(len(args)+1)
		conditions = append(conditions, "active = "+placeholder)
		args = append(args, *filter.Active)
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = " WHERE " + strings.Join(conditions, " AND ")
	}

	limitPlaceholder := "$" + strconv.Itoa(len(args)+1)
	args = append(args, limitWithBuffer)
	offsetPlaceholder := "$" + strconv.Itoa(len(args)+1)
	args = append(args, filter.Offset)

	query := `
        SELECT ` + leaveTypeColumns + `
          FROM leave_types` + whereClause + `
         ORDER BY code ASC
         LIMIT ` + limitPlaceholder + `
        OFFSET ` + offsetPlaceholder + `
    `

	exec := pgdb.QueryerFromContext(ctx, r.pool)
	rows, err := exec.Query(ctx, query, args...)
	if err != nil {
		return nil, "", translateLeaveTypePgError(err)
	}
	defer rows.Close()

	types := make([]*leavetype.LeaveType, 0, filter.Limit)
	for rows.Next() {
		lt, err := scanLeaveType(rows)
		if err != nil {
			return nil, "", translateLeaveTypePgError(err)
		}
		types = append(types, lt)
	}
	if err := rows.Err(); err != nil {
		return nil, "", translateLeaveTypePgError(err)
	}

	var nextToken string
	if len(types) == limitWithBuffer {
		types = types[:filter.Limit]
		nextToken = strconv.Itoa(filter.Offset + filter.Limit)
	}

	return types, nextToken, nil
}

// ListActive は有効な休暇区分をすべて取得します。
func (r *LeaveTypeRepository) ListActive(ctx context.Context) ([]*leavetype.LeaveType, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	rows, err := exec.Query(ctx, `
        SELECT `+leaveTypeColumns+`
          FROM leave_types
         WHERE active
         ORDER BY code ASC
    `)
	if err != nil {
		return nil, translateLeaveTypePgError(err)
	}
	defer rows.Close()

	var types []*leavetype.LeaveType
	for rows.Next() {
		lt, err := scanLeaveType(rows)
		if err != nil {
			return nil, translateLeaveTypePgError(err)
		}
		types = append(types, lt)
	}
	if err := rows.Err(); err != nil {
		return nil, translateLeaveTypePgError(err)
	}
	return types, nil
}

func scanLeaveType(row pgx.Row) (*leavetype.LeaveType, error) {
	var (
		lt             leavetype.LeaveType
		daysAllowed    string
		maxCarry       sql.NullString
		minimumNotice  sql.NullInt32
		maxConsecutive sql.NullInt32
	)

	if err := row.Scan(
		&lt.ID,
		&lt.Name,
		&lt.Code,
		&daysAllowed,
		&lt.RequiresApproval,
		&lt.CarryForward,
		&maxCarry,
		&minimumNotice,
		&maxConsecutive,
		&lt.Active,
		&lt.CreatedAt,
		&lt.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, leavetype.ErrLeaveTypeNotFound
		}
		return nil, err
	}

	var err error
	if lt.DaysAllowed, err = parseDecimal("days_allowed", daysAllowed); err != nil {
		return nil, err
	}
	if lt.MaxCarryForwardDays, err = parseNullableDecimal("max_carry_forward_days", maxCarry); err != nil {
		return nil, err
	}
	lt.MinimumNoticeDays = intPtr(minimumNotice)
	lt.MaximumConsecutiveDays = intPtr(maxConsecutive)
	return &lt, nil
}

func translateLeaveTypePgError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) || isInvalidID(err) {
		return leavetype.ErrLeaveTypeNotFound
	}

	if pgErr, ok := pgError(err); ok {
		switch pgErr.Code {
		case uniqueViolationCode:
			return leavetype.ErrCodeAlreadyExists
		case foreignKeyViolationCode:
			return leavetype.ErrLeaveTypeInUse
		case checkViolationCode:
			if pgErr.ConstraintName == "leave_types_days_allowed_check" {
				return leavetype.ErrInvalidDaysAllowed
			}
			return leavetype.ErrInvalidCarryForward
		}
	}

	return conflictOr(err)
}
