package leave

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/ogurasousui/leave-ledger/internal/core/employee"
	"github.com/ogurasousui/leave-ledger/internal/core/leavetype"
	"github.com/shopspring/decimal"
)

const (
	defaultListPageSize = 50
	maxListPageSize     = 200
)

// Service は休暇申請のライフサイクルを管理します。
// 残高への反映は必ず Ledger を経由し、検証・台帳更新・申請保存を 1 トランザクションで行います。
// 通知と添付書類の削除はコミット後に実行され、失敗してもロールバックしません。
type Service struct {
	requests       RequestRepository
	ledger         *Ledger
	overlap        *OverlapDetector
	policies       PolicyReader
	employees      EmployeeDirectory
	clock          Clock
	tx             TransactionManager
	metrics        Metrics
	logger         *slog.Logger
	notifier       Notifier
	purger         AttachmentPurger
	systemApprover string
}

// UseCase は休暇申請ユースケースの公開インターフェースです。
type UseCase interface {
	CreateLeaveRequest(ctx context.Context, in CreateRequestInput) (*Request, error)
	UpdateLeaveRequest(ctx context.Context, in UpdateRequestInput) (*Request, error)
	ApproveLeaveRequest(ctx context.Context, in ApproveInput) (*Request, error)
	RejectLeaveRequest(ctx context.Context, in RejectInput) (*Request, error)
	CancelLeaveRequest(ctx context.Context, in CancelInput) (*Request, error)
	DeleteLeaveRequest(ctx context.Context, in DeleteInput) error
	GetLeaveRequest(ctx context.Context, in GetRequestInput) (*Request, error)
	ListLeaveRequests(ctx context.Context, in ListRequestsInput) (*ListRequestsResult, error)
	GetBalance(ctx context.Context, key BalanceKey) (*Balance, error)
	ListBalances(ctx context.Context, employeeID string, year int) ([]*Balance, error)
	InitializeYear(ctx context.Context, employeeID string, year int) ([]*Balance, error)
}

// NewService は Service を生成します。
func NewService(requests RequestRepository, ledger *Ledger, policies PolicyReader, employees EmployeeDirectory, clock Clock, tx TransactionManager, opts ...Option) *Service {
	if clock == nil {
		clock = realClock{}
	}
	if tx == nil {
		tx = noopTransactionManager{}
	}
	o := buildOptions(opts)
	return &Service{
		requests:       requests,
		ledger:         ledger,
		overlap:        NewOverlapDetector(requests),
		policies:       policies,
		employees:      employees,
		clock:          clock,
		tx:             tx,
		metrics:        o.metrics,
		logger:         o.logger,
		notifier:       o.notifier,
		purger:         o.purger,
		systemApprover: o.systemApprover,
	}
}

// CreateRequestInput は申請作成時の入力です。
type CreateRequestInput struct {
	EmployeeID    string
	LeaveTypeID   string
	StartDate     time.Time
	EndDate       time.Time
	HalfDay       bool
	HalfDayPeriod *HalfDayPeriod
	Reason        string
}

// UpdateRequestInput は申請更新時の入力です。nil のフィールドは変更しません。
type UpdateRequestInput struct {
	ID            string
	LeaveTypeID   *string
	StartDate     *time.Time
	EndDate       *time.Time
	HalfDay       *bool
	HalfDayPeriod *HalfDayPeriod
	Reason        *string
}

// ApproveInput は承認時の入力です。
type ApproveInput struct {
	ID         string
	ApproverID string
	Comments   *string
}

// RejectInput は却下時の入力です。
type RejectInput struct {
	ID         string
	RejectorID string
	Reason     string
}

// CancelInput は取消時の入力です。
type CancelInput struct {
	ID          string
	CancelledBy string
	Reason      *string
}

// DeleteInput は削除時の入力です。
type DeleteInput struct {
	ID string
}

// GetRequestInput は取得時の入力です。
type GetRequestInput struct {
	ID string
}

// ListRequestsInput は一覧取得時の入力です。
type ListRequestsInput struct {
	EmployeeID string
	Status     *Status
	Year       *int
	PageSize   int
	PageToken  string
}

// ListRequestsResult は一覧取得結果を表します。
type ListRequestsResult struct {
	Requests      []*Request
	NextPageToken string
}

type draft struct {
	employeeID    string
	leaveTypeID   string
	start         time.Time
	end           time.Time
	halfDay       bool
	halfDayPeriod *HalfDayPeriod
}

// CreateLeaveRequest は申請を PENDING で作成し、申請日数を予約します。
// 承認不要の区分では同一トランザクション内で自動承認します。
func (s *Service) CreateLeaveRequest(ctx context.Context, in CreateRequestInput) (created *Request, err error) {
	started := time.Now()
	defer func() { s.observe(ctx, ActionCreate, started, created, err) }()

	d, err := normalizeDraft(draft{
		employeeID:    in.EmployeeID,
		leaveTypeID:   in.LeaveTypeID,
		start:         in.StartDate,
		end:           in.EndDate,
		halfDay:       in.HalfDay,
		halfDayPeriod: in.HalfDayPeriod,
	})
	if err != nil {
		return nil, err
	}

	var (
		emp          *employee.Employee
		autoApproved bool
	)
	err = s.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		found, err := s.employees.Lookup(txCtx, d.employeeID)
		if err != nil {
			return err
		}
		if !found.IsActive() {
			return invalid("employee_id", "employee is not active")
		}
		emp = found

		now := s.clock.Now()
		policy, total, err := s.validateAgainstPolicy(txCtx, d, "", DateOnly(now))
		if err != nil {
			return err
		}

		req := &Request{
			EmployeeID:    d.employeeID,
			LeaveTypeID:   d.leaveTypeID,
			StartDate:     d.start,
			EndDate:       d.end,
			TotalDays:     total,
			HalfDay:       d.halfDay,
			HalfDayPeriod: d.halfDayPeriod,
			Status:        StatusPending,
			Reason:        strings.TrimSpace(in.Reason),
			AppliedDate:   DateOnly(now),
			CreatedAt:     now,
			UpdatedAt:     now,
		}

		result, err := s.requests.Create(txCtx, req)
		if err != nil {
			return err
		}

		if _, err := s.ledger.Reserve(txCtx, result.BalanceKey(), total); err != nil {
			return err
		}

		if !policy.RequiresApproval {
			if _, err := s.ledger.Commit(txCtx, result.BalanceKey(), total); err != nil {
				return err
			}
			approver := s.systemApprover
			result.Status = StatusApproved
			result.ApprovedBy = &approver
			result.ApprovedAt = &now
			result.UpdatedAt = now
			result, err = s.requests.Update(txCtx, result)
			if err != nil {
				return err
			}
			autoApproved = true
		}

		created = result
		return nil
	})
	if err != nil {
		return nil, err
	}

	if autoApproved {
		s.notifyDecision(ctx, created, s.systemApprover)
	} else {
		s.notifySubmitted(ctx, created, emp)
	}
	return created, nil
}

// UpdateLeaveRequest は PENDING の申請を変更します。
// 旧予約の解放・再検証・新予約を 1 トランザクションで行い、いずれかが失敗した場合は何も変更しません。
func (s *Service) UpdateLeaveRequest(ctx context.Context, in UpdateRequestInput) (updated *Request, err error) {
	started := time.Now()
	defer func() { s.observe(ctx, ActionUpdate, started, updated, err) }()

	if blank(in.ID) {
		return nil, invalid("id", "must not be empty")
	}

	err = s.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		existing, err := s.loadForTransition(txCtx, in.ID, ActionUpdate)
		if err != nil {
			return err
		}

		// 社員ロックは残高行ロックより先に取得します。作成処理と同じ順序です。
		if err := s.requests.LockEmployee(txCtx, existing.EmployeeID); err != nil {
			return err
		}

		if _, err := s.ledger.Release(txCtx, existing.BalanceKey(), existing.TotalDays); err != nil {
			return err
		}

		next := draft{
			employeeID:    existing.EmployeeID,
			leaveTypeID:   existing.LeaveTypeID,
			start:         existing.StartDate,
			end:           existing.EndDate,
			halfDay:       existing.HalfDay,
			halfDayPeriod: existing.HalfDayPeriod,
		}
		if in.LeaveTypeID != nil {
			next.leaveTypeID = *in.LeaveTypeID
		}
		if in.StartDate != nil {
			next.start = *in.StartDate
		}
		if in.EndDate != nil {
			next.end = *in.EndDate
		}
		if in.HalfDay != nil {
			next.halfDay = *in.HalfDay
			if !next.halfDay {
				next.halfDayPeriod = nil
			}
		}
		if in.HalfDayPeriod != nil {
			p := *in.HalfDayPeriod
			next.halfDayPeriod = &p
		}

		d, err := normalizeDraft(next)
		if err != nil {
			return err
		}

		now := s.clock.Now()
		_, total, err := s.validateAgainstPolicy(txCtx, d, existing.ID, DateOnly(now))
		if err != nil {
			return err
		}

		req := existing.Clone()
		req.LeaveTypeID = d.leaveTypeID
		req.StartDate = d.start
		req.EndDate = d.end
		req.HalfDay = d.halfDay
		req.HalfDayPeriod = d.halfDayPeriod
		req.TotalDays = total
		if in.Reason != nil {
			req.Reason = strings.TrimSpace(*in.Reason)
		}
		req.UpdatedAt = now

		if _, err := s.ledger.Reserve(txCtx, req.BalanceKey(), total); err != nil {
			return err
		}

		result, err := s.requests.Update(txCtx, req)
		if err != nil {
			return err
		}
		updated = result
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// ApproveLeaveRequest は PENDING の申請を承認し、予約日数を使用済みに確定します。
func (s *Service) ApproveLeaveRequest(ctx context.Context, in ApproveInput) (approved *Request, err error) {
	started := time.Now()
	defer func() { s.observe(ctx, ActionApprove, started, approved, err) }()

	if blank(in.ID) {
		return nil, invalid("id", "must not be empty")
	}
	approverID := strings.TrimSpace(in.ApproverID)
	if approverID == "" {
		return nil, invalid("approver_id", "must not be empty")
	}

	err = s.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		req, err := s.loadForTransition(txCtx, in.ID, ActionApprove)
		if err != nil {
			return err
		}

		if _, err := s.ledger.Commit(txCtx, req.BalanceKey(), req.TotalDays); err != nil {
			return err
		}

		now := s.clock.Now()
		req.Status = TargetStatus(req.Status, ActionApprove)
		req.ApprovedBy = &approverID
		req.ApprovedAt = &now
		req.ApprovalComments = trimmedOrNil(in.Comments)
		req.UpdatedAt = now

		result, err := s.requests.Update(txCtx, req)
		if err != nil {
			return err
		}
		approved = result
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notifyDecision(ctx, approved, approverID)
	return approved, nil
}

// RejectLeaveRequest は PENDING の申請を却下し、予約日数を解放します。
func (s *Service) RejectLeaveRequest(ctx context.Context, in RejectInput) (rejected *Request, err error) {
	started := time.Now()
	defer func() { s.observe(ctx, ActionReject, started, rejected, err) }()

	if blank(in.ID) {
		return nil, invalid("id", "must not be empty")
	}
	rejectorID := strings.TrimSpace(in.RejectorID)
	if rejectorID == "" {
		return nil, invalid("rejector_id", "must not be empty")
	}
	reason := strings.TrimSpace(in.Reason)
	if reason == "" {
		return nil, invalid("reason", "must not be empty")
	}

	err = s.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		req, err := s.loadForTransition(txCtx, in.ID, ActionReject)
		if err != nil {
			return err
		}

		if _, err := s.ledger.Release(txCtx, req.BalanceKey(), req.TotalDays); err != nil {
			return err
		}

		now := s.clock.Now()
		req.Status = TargetStatus(req.Status, ActionReject)
		req.RejectedBy = &rejectorID
		req.RejectedAt = &now
		req.RejectionReason = &reason
		req.UpdatedAt = now

		result, err := s.requests.Update(txCtx, req)
		if err != nil {
			return err
		}
		rejected = result
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notifyDecision(ctx, rejected, rejectorID)
	return rejected, nil
}

// CancelLeaveRequest は PENDING または APPROVED の申請を取り消します。
// PENDING は予約を解放し、APPROVED は使用済み日数を戻し入れます。
func (s *Service) CancelLeaveRequest(ctx context.Context, in CancelInput) (cancelled *Request, err error) {
	started := time.Now()
	defer func() { s.observe(ctx, ActionCancel, started, cancelled, err) }()

	if blank(in.ID) {
		return nil, invalid("id", "must not be empty")
	}
	cancelledBy := strings.TrimSpace(in.CancelledBy)
	if cancelledBy == "" {
		return nil, invalid("cancelled_by", "must not be empty")
	}

	err = s.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		req, err := s.loadForTransition(txCtx, in.ID, ActionCancel)
		if err != nil {
			return err
		}

		switch req.Status {
		case StatusPending:
			_, err = s.ledger.Release(txCtx, req.BalanceKey(), req.TotalDays)
		case StatusApproved:
			_, err = s.ledger.RestoreUsed(txCtx, req.BalanceKey(), req.TotalDays)
		}
		if err != nil {
			return err
		}

		now := s.clock.Now()
		req.Status = TargetStatus(req.Status, ActionCancel)
		req.IsCancelled = true
		req.CancelledAt = &now
		req.CancelledBy = &cancelledBy
		req.CancelReason = trimmedOrNil(in.Reason)
		req.UpdatedAt = now

		result, err := s.requests.Update(txCtx, req)
		if err != nil {
			return err
		}
		cancelled = result
		return nil
	})
	if err != nil {
		return nil, err
	}
	return cancelled, nil
}

// DeleteLeaveRequest は PENDING の申請の予約を解放して削除します。添付書類はコミット後に削除します。
func (s *Service) DeleteLeaveRequest(ctx context.Context, in DeleteInput) (err error) {
	started := time.Now()
	var deleted *Request
	defer func() { s.observe(ctx, ActionDelete, started, deleted, err) }()

	if blank(in.ID) {
		return invalid("id", "must not be empty")
	}

	err = s.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		req, err := s.loadForTransition(txCtx, in.ID, ActionDelete)
		if err != nil {
			return err
		}

		if _, err := s.ledger.Release(txCtx, req.BalanceKey(), req.TotalDays); err != nil {
			return err
		}

		if err := s.requests.Delete(txCtx, req.ID); err != nil {
			return err
		}
		deleted = req
		return nil
	})
	if err != nil {
		return err
	}

	if s.purger != nil {
		if perr := s.purger.PurgeRequest(context.WithoutCancel(ctx), in.ID); perr != nil {
			s.logger.WarnContext(ctx, "failed to purge leave documents",
				"request_id", in.ID,
				"err", perr,
			)
		}
	}
	return nil
}

// GetLeaveRequest は ID で申請を取得します。
func (s *Service) GetLeaveRequest(ctx context.Context, in GetRequestInput) (*Request, error) {
	if blank(in.ID) {
		return nil, invalid("id", "must not be empty")
	}

	var req *Request
	if err := s.tx.WithinReadOnly(ctx, func(txCtx context.Context) error {
		result, err := s.requests.FindByID(txCtx, strings.TrimSpace(in.ID))
		if err != nil {
			return err
		}
		req = result
		return nil
	}); err != nil {
		return nil, err
	}
	return req, nil
}

// ListLeaveRequests は申請の一覧を取得します。
func (s *Service) ListLeaveRequests(ctx context.Context, in ListRequestsInput) (*ListRequestsResult, error) {
	limit, err := normalizePageSize(in.PageSize)
	if err != nil {
		return nil, err
	}

	offset, err := parsePageToken(in.PageToken)
	if err != nil {
		return nil, err
	}

	if in.Status != nil && !in.Status.IsValid() {
		return nil, invalid("status", "unknown status")
	}

	var (
		requests  []*Request
		nextToken string
	)
	if err := s.tx.WithinReadOnly(ctx, func(txCtx context.Context) error {
		result, token, err := s.requests.List(txCtx, ListRequestsFilter{
			EmployeeID: strings.TrimSpace(in.EmployeeID),
			Status:     in.Status,
			Year:       in.Year,
			Limit:      limit,
			Offset:     offset,
		})
		if err != nil {
			return err
		}
		requests = result
		nextToken = token
		return nil
	}); err != nil {
		return nil, err
	}

	return &ListRequestsResult{Requests: requests, NextPageToken: nextToken}, nil
}

// GetBalance は残高を取得します。
func (s *Service) GetBalance(ctx context.Context, key BalanceKey) (*Balance, error) {
	return s.ledger.GetBalance(ctx, key)
}

// ListBalances は社員の年度別残高一覧を取得します。
func (s *Service) ListBalances(ctx context.Context, employeeID string, year int) ([]*Balance, error) {
	return s.ledger.ListBalances(ctx, employeeID, year)
}

// InitializeYear は社員の年度残高を初期化します。
func (s *Service) InitializeYear(ctx context.Context, employeeID string, year int) ([]*Balance, error) {
	return s.ledger.InitializeYear(ctx, employeeID, year)
}

func (s *Service) loadForTransition(ctx context.Context, id string, action Action) (*Request, error) {
	req, err := s.requests.FindByIDForUpdate(ctx, strings.TrimSpace(id))
	if err != nil {
		return nil, err
	}
	if !CanTransition(req.Status, action) {
		return nil, &InvalidStateTransitionError{RequestID: req.ID, From: req.Status, Action: action}
	}
	return req, nil
}

// validateAgainstPolicy は区分ポリシー・重複・残高を検証し、申請日数を返します。
// 残高が未作成の場合は年度初期化を行います。
func (s *Service) validateAgainstPolicy(ctx context.Context, d draft, excludeID string, today time.Time) (*leavetype.LeaveType, decimal.Decimal, error) {
	policy, err := s.policies.FindByID(ctx, d.leaveTypeID)
	if err != nil {
		return nil, decimal.Zero, err
	}
	if !policy.Active {
		return nil, decimal.Zero, invalid("leave_type_id", "leave type is not active")
	}

	if policy.MinimumNoticeDays != nil {
		earliest := today.AddDate(0, 0, *policy.MinimumNoticeDays)
		if d.start.Before(earliest) {
			return nil, decimal.Zero, &NoticeViolationError{StartDate: d.start, EarliestStart: earliest, NoticeDays: *policy.MinimumNoticeDays}
		}
	}

	if policy.MaximumConsecutiveDays != nil && !d.halfDay {
		if span := InclusiveDays(d.start, d.end); span > *policy.MaximumConsecutiveDays {
			return nil, decimal.Zero, &ConsecutiveDaysExceededError{Requested: span, Maximum: *policy.MaximumConsecutiveDays}
		}
	}

	total := CalculateTotalDays(d.start, d.end, d.halfDay)

	if err := s.requests.LockEmployee(ctx, d.employeeID); err != nil {
		return nil, decimal.Zero, err
	}
	if err := s.overlap.Check(ctx, d.employeeID, d.start, d.end, excludeID); err != nil {
		return nil, decimal.Zero, err
	}

	key := BalanceKey{EmployeeID: d.employeeID, LeaveTypeID: d.leaveTypeID, Year: d.start.Year()}
	if err := s.ensureBalance(ctx, key); err != nil {
		return nil, decimal.Zero, err
	}

	ok, err := s.ledger.HasSufficientBalance(ctx, key, total)
	if err != nil {
		return nil, decimal.Zero, err
	}
	if !ok {
		available := decimal.Zero
		if b, err := s.ledger.GetBalance(ctx, key); err == nil {
			available = b.Available()
		}
		return nil, decimal.Zero, &InsufficientBalanceError{Key: key, Available: available, Requested: total}
	}

	return policy, total, nil
}

func (s *Service) ensureBalance(ctx context.Context, key BalanceKey) error {
	_, err := s.ledger.GetBalance(ctx, key)
	if !errors.Is(err, ErrBalanceNotFound) {
		return err
	}
	_, err = s.ledger.InitializeYear(ctx, key.EmployeeID, key.Year)
	return err
}

func (s *Service) notifySubmitted(ctx context.Context, req *Request, emp *employee.Employee) {
	ctx = context.WithoutCancel(ctx)
	notice := SubmittedNotice{RequestID: req.ID, ApproverID: emp.ApproverID(), EmployeeName: emp.Name}
	if err := s.notifier.LeaveSubmitted(ctx, notice); err != nil {
		s.logger.WarnContext(ctx, "failed to send leave submitted notification",
			"request_id", req.ID,
			"err", err,
		)
	}
}

func (s *Service) notifyDecision(ctx context.Context, req *Request, deciderID string) {
	ctx = context.WithoutCancel(ctx)
	deciderName := deciderID
	if deciderID != s.systemApprover {
		if decider, err := s.employees.Lookup(ctx, deciderID); err == nil && decider.Name != "" {
			deciderName = decider.Name
		}
	}

	notice := DecisionNotice{
		RequestID:   req.ID,
		EmployeeID:  req.EmployeeID,
		DeciderName: deciderName,
		Approved:    req.Status == StatusApproved,
	}
	if err := s.notifier.LeaveDecided(ctx, notice); err != nil {
		s.logger.WarnContext(ctx, "failed to send leave decision notification",
			"request_id", req.ID,
			"err", err,
		)
	}
}

func (s *Service) observe(ctx context.Context, action Action, started time.Time, req *Request, err error) {
	s.metrics.ObserveTransition(string(action), err, time.Since(started))
	if err != nil {
		level := slog.LevelInfo
		if !IsClientError(err) && !IsNotFound(err) {
			level = slog.LevelError
		}
		s.logger.Log(ctx, level, "leave request operation failed",
			"action", string(action),
			"err", err,
		)
		return
	}
	if req != nil {
		s.logger.InfoContext(ctx, "leave request operation succeeded",
			"action", string(action),
			"request_id", req.ID,
			"employee_id", req.EmployeeID,
			"status", string(req.Status),
			"total_days", req.TotalDays.String(),
		)
	}
}

func normalizeDraft(d draft) (draft, error) {
	d.employeeID = strings.TrimSpace(d.employeeID)
	if d.employeeID == "" {
		return d, invalid("employee_id", "must not be empty")
	}
	d.leaveTypeID = strings.TrimSpace(d.leaveTypeID)
	if d.leaveTypeID == "" {
		return d, invalid("leave_type_id", "must not be empty")
	}
	if d.start.IsZero() {
		return d, invalid("start_date", "must be set")
	}
	if d.end.IsZero() {
		return d, invalid("end_date", "must be set")
	}

	d.start = DateOnly(d.start)
	d.end = DateOnly(d.end)
	if d.end.Before(d.start) {
		return d, invalid("end_date", "must not be before start_date")
	}

	if d.halfDay {
		if !d.start.Equal(d.end) {
			return d, invalid("end_date", "half-day request must be a single day")
		}
		if d.halfDayPeriod == nil || !d.halfDayPeriod.IsValid() {
			return d, invalid("half_day_period", "must be MORNING or AFTERNOON")
		}
	} else {
		d.halfDayPeriod = nil
	}
	return d, nil
}

func trimmedOrNil(s *string) *string {
	if s == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*s)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func normalizePageSize(pageSize int) (int, error) {
	if pageSize <= 0 {
		return defaultListPageSize, nil
	}
	if pageSize > maxListPageSize {
		return 0, ErrInvalidPageSize
	}
	return pageSize, nil
}

func parsePageToken(token string) (int, error) {
	if strings.TrimSpace(token) == "" {
		return 0, nil
	}

	offset, err := strconv.Atoi(token)
	if err != nil || offset < 0 {
		return 0, ErrInvalidPageToken
	}

	return offset, nil
}
