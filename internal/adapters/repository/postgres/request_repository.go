package postgres

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/ogurasousui/leave-ledger/internal/core/leave"
	pgdb "github.com/ogurasousui/leave-ledger/internal/platform/db/postgres"
)

const requestColumns = `id, employee_id, leave_type_id, start_date, end_date, total_days::text, half_day, half_day_period,
               status, reason, applied_date, approved_by, approved_at, approval_comments,
               rejected_by, rejected_at, rejection_reason, is_cancelled, cancelled_at, cancelled_by, cancel_reason,
               created_at, updated_at`

// RequestRepository は PostgreSQL を利用した休暇申請永続化の実装です。
type RequestRepository struct {
	pool pgdb.Queryer
}

// NewRequestRepository は RequestRepository を生成します。
func NewRequestRepository(pool pgdb.Queryer) *RequestRepository {
	return &RequestRepository{pool: pool}
}

// Create は申請を新規作成します。
func (r *RequestRepository) Create(ctx context.Context, req *leave.Request) (*leave.Request, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        INSERT INTO leave_requests (employee_id, leave_type_id, start_date, end_date, total_days, half_day, half_day_period,
                                    status, reason, applied_date, approved_by, approved_at, approval_comments,
                                    rejected_by, rejected_at, rejection_reason, is_cancelled, cancelled_at, cancelled_by,
                                    cancel_reason, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5::numeric, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22)
        RETURNING `+requestColumns,
		req.EmployeeID,
		req.LeaveTypeID,
		dateOnly(req.StartDate),
		dateOnly(req.EndDate),
		req.TotalDays.String(),
		req.HalfDay,
		halfDayPeriodArg(req.HalfDayPeriod),
		string(req.Status),
		req.Reason,
		dateOnly(req.AppliedDate),
		nullableString(req.ApprovedBy),
		nullableTimestamp(req.ApprovedAt),
		nullableString(req.ApprovalComments),
		nullableString(req.RejectedBy),
		nullableTimestamp(req.RejectedAt),
		nullableString(req.RejectionReason),
		req.IsCancelled,
		nullableTimestamp(req.CancelledAt),
		nullableString(req.CancelledBy),
		nullableString(req.CancelReason),
		req.CreatedAt,
		req.UpdatedAt,
	)

	created, err := scanRequest(row)
	if err != nil {
		return nil, translateRequestPgError(err)
	}
	return created, nil
}

// Update は申請を更新します。
func (r *RequestRepository) Update(ctx context.Context, req *leave.Request) (*leave.Request, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        UPDATE leave_requests
           SET leave_type_id = $1,
               start_date = $2,
               end_date = $3,
               total_days = $4::numeric,
               half_day = $5,
               half_day_period = $6,
               status = $7,
               reason = $8,
               approved_by = $9,
               approved_at = $10,
               approval_comments = $11,
               rejected_by = $12,
               rejected_at = $13,
               rejection_reason = $14,
               is_cancelled = $15,
               cancelled_at = $16,
               cancelled_by = $17,
               cancel_reason = $18,
               updated_at = $19
         WHERE id = $20
        RETURNING `+requestColumns,
		req.LeaveTypeID,
		dateOnly(req.StartDate),
		dateOnly(req.EndDate),
		req.TotalDays.String(),
		req.HalfDay,
		halfDayPeriodArg(req.HalfDayPeriod),
		string(req.Status),
		req.Reason,
		nullableString(req.ApprovedBy),
		nullableTimestamp(req.ApprovedAt),
		nullableString(req.ApprovalComments),
		nullableString(req.RejectedBy),
		nullableTimestamp(req.RejectedAt),
		nullableString(req.RejectionReason),
		req.IsCancelled,
		nullableTimestamp(req.CancelledAt),
		nullableString(req.CancelledBy),
		nullableString(req.CancelReason),
		req.UpdatedAt,
		req.ID,
	)

	updated, err := scanRequest(row)
	if err != nil {
		return nil, translateRequestPgError(err)
	}
	return updated, nil
}

// Delete は申請を削除します。添付書類は外部キーにより同時に削除されます。
func (r *RequestRepository) Delete(ctx context.Context, id string) error {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	tag, err := exec.Exec(ctx, `DELETE FROM leave_requests WHERE id = $1`, id)
	if err != nil {
		return translateRequestPgError(err)
	}
	if tag.RowsAffected() == 0 {
		return leave.ErrRequestNotFound
	}
	return nil
}

// FindByID は ID で申請を取得します。
func (r *RequestRepository) FindByID(ctx context.Context, id string) (*leave.Request, error) {
	return r.find(ctx, id, "")
}

// FindByIDForUpdate は申請行をロックして取得します。
func (r *RequestRepository) FindByIDForUpdate(ctx context.Context, id string) (*leave.Request, error) {
	return r.find(ctx, id, " FOR UPDATE")
}

func (r *RequestRepository) find(ctx context.Context, id, lock string) (*leave.Request, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        SELECT `+requestColumns+`
          FROM leave_requests
         WHERE id = $1`+lock, id)

	found, err := scanRequest(row)
	if err != nil {
		return nil, translateRequestPgError(err)
	}
	return found, nil
}

// FindOverlapping は PENDING と APPROVED の申請のうち期間が重なるものを開始日順に返します。
func (r *RequestRepository) FindOverlapping(ctx context.Context, q leave.OverlapQuery) ([]*leave.Request, error) {
	args := []any{q.EmployeeID, dateOnly(q.EndDate), dateOnly(q.StartDate)}
	query := `
        SELECT ` + requestColumns + `
          FROM leave_requests
         WHERE employee_id = $1
           AND status IN ('PENDING', 'APPROVED')
           AND start_date <= $2
           AND end_date >= $3`
	if q.ExcludeID != "" {
		args = append(args, q.ExcludeID)
		query += `
           AND id <> $4`
	}
	query += `
         ORDER BY start_date ASC, id ASC
    `

	exec := pgdb.QueryerFromContext(ctx, r.pool)
	rows, err := exec.Query(ctx, query, args...)
	if err != nil {
		if isInvalidID(err) {
			return nil, nil
		}
		return nil, translateRequestPgError(err)
	}
	defer rows.Close()

	var requests []*leave.Request
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, translateRequestPgError(err)
		}
		requests = append(requests, req)
	}
	if err := rows.Err(); err != nil {
		return nil, translateRequestPgError(err)
	}
	return requests, nil
}

// List は申請の一覧を登録順に取得します。
func (r *RequestRepository) List(ctx context.Context, filter leave.ListRequestsFilter) ([]*leave.Request, string, error) {
	if filter.Limit <= 0 {
		return nil, "", leave.ErrInvalidPageSize
	}
	if filter.Offset < 0 {
		return nil, "", leave.ErrInvalidPageToken
	}

	limitWithBuffer := filter.Limit + 1

	args := make([]any, 0, 5)
	conditions := make([]string, 0, 3)

	if filter.EmployeeID != "" {
		placeholder := "$" + strconv.Itoa(len(args)+1)
		conditions = append(conditions, "employee_id = "+placeholder)
		args = append(args, filter.EmployeeID)
	}
	if filter.Status != nil {
		placeholder := "$" + strconv.Itoa(len(args)+1)
		conditions = append(conditions, "status = "+placeholder)
		args = append(args, string(*filter.Status))
	}
	if filter.Year != nil {
		placeholder := "$" + strconv.Itoa(len(args)+1)
		conditions = append(conditions, "EXTRACT(YEAR FROM start_date)::int = "+placeholder)
		args = append(args, *filter.Year)
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
        SELECT ` + requestColumns + `
          FROM leave_requests` + whereClause + `
         ORDER BY created_at ASC, id ASC
         LIMIT ` + limitPlaceholder + `
        OFFSET ` + offsetPlaceholder + `
    `

	exec := pgdb.QueryerFromContext(ctx, r.pool)
	rows, err := exec.Query(ctx, query, args...)
	if err != nil {
		if isInvalidID(err) {
			return []*leave.Request{}, "", nil
		}
		return nil, "", translateRequestPgError(err)
	}
	defer rows.Close()

	requests := make([]*leave.Request, 0, filter.Limit)
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, "", translateRequestPgError(err)
		}
		requests = append(requests, req)
	}
	if err := rows.Err(); err != nil {
		return nil, "", translateRequestPgError(err)
	}

	var nextToken string
	if len(requests) == limitWithBuffer {
		requests = requests[:filter.Limit]
		nextToken = strconv.Itoa(filter.Offset + filter.Limit)
	}

	return requests, nextToken, nil
}

// LockEmployee は社員 ID をキーにトランザクションスコープのアドバイザリロックを取得します。
func (r *RequestRepository) LockEmployee(ctx context.Context, employeeID string) error {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	if _, err := exec.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, employeeID); err != nil {
		return conflictOr(err)
	}
	return nil
}

func scanRequest(row pgx.Row) (*leave.Request, error) {
	var (
		req              leave.Request
		totalDays        string
		halfDayPeriod    sql.NullString
		status           string
		approvedBy       sql.NullString
		approvedAt       sql.NullTime
		approvalComments sql.NullString
		rejectedBy       sql.NullString
		rejectedAt       sql.NullTime
		rejectionReason  sql.NullString
		cancelledAt      sql.NullTime
		cancelledBy      sql.NullString
		cancelReason     sql.NullString
	)

	if err := row.Scan(
		&req.ID,
		&req.EmployeeID,
		&req.LeaveTypeID,
		&req.StartDate,
		&req.EndDate,
		&totalDays,
		&req.HalfDay,
		&halfDayPeriod,
		&status,
		&req.Reason,
		&req.AppliedDate,
		&approvedBy,
		&approvedAt,
		&approvalComments,
		&rejectedBy,
		&rejectedAt,
		&rejectionReason,
		&req.IsCancelled,
		&cancelledAt,
		&cancelledBy,
		&cancelReason,
		&req.CreatedAt,
		&req.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, leave.ErrRequestNotFound
		}
		return nil, err
	}

	var err error
	if req.TotalDays, err = parseDecimal("total_days", totalDays); err != nil {
		return nil, err
	}
	req.Status = leave.Status(status)
	if halfDayPeriod.Valid {
		p := leave.HalfDayPeriod(halfDayPeriod.String)
		req.HalfDayPeriod = &p
	}
	req.StartDate = dateOnly(req.StartDate)
	req.EndDate = dateOnly(req.EndDate)
	req.AppliedDate = dateOnly(req.AppliedDate)
	req.ApprovedBy = stringPtr(approvedBy)
	req.ApprovedAt = timePtr(approvedAt)
	req.ApprovalComments = stringPtr(approvalComments)
	req.RejectedBy = stringPtr(rejectedBy)
	req.RejectedAt = timePtr(rejectedAt)
	req.RejectionReason = stringPtr(rejectionReason)
	req.CancelledAt = timePtr(cancelledAt)
	req.CancelledBy = stringPtr(cancelledBy)
	req.CancelReason = stringPtr(cancelReason)
	return &req, nil
}

func halfDayPeriodArg(p *leave.HalfDayPeriod) any {
	if p == nil {
		return nil
	}
	return string(*p)
}

func translateRequestPgError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) || isInvalidID(err) {
		return leave.ErrRequestNotFound
	}

	if pgErr, ok := pgError(err); ok {
		switch pgErr.Code {
		case foreignKeyViolationCode:
			if pgErr.ConstraintName == "leave_requests_leave_type_id_fkey" {
				return &leave.ValidationError{Field: "leave_type_id", Reason: "leave type does not exist"}
			}
			return &leave.ValidationError{Field: "employee_id", Reason: "employee does not exist"}
		case checkViolationCode:
			return &leave.ValidationError{Field: pgErr.ConstraintName, Reason: "violates " + pgErr.ConstraintName}
		}
	}

	return conflictOr(err)
}
