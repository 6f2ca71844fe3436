package leave

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ogurasousui/leave-ledger/internal/core/employee"
	"github.com/ogurasousui/leave-ledger/internal/core/leavetype"
	"github.com/shopspring/decimal"
)

var (
	// ErrValidation は入力不備を表します。
	ErrValidation = errors.New("leave: validation failed")
	// ErrNoticeViolation は事前申請日数を満たさない場合に返却されます。
	ErrNoticeViolation = errors.New("leave: minimum notice not met")
	// ErrConsecutiveDaysExceeded は最大連続日数を超える場合に返却されます。
	ErrConsecutiveDaysExceeded = errors.New("leave: maximum consecutive days exceeded")
	// ErrOverlappingRequest は既存の申請と期間が重なる場合に返却されます。
	ErrOverlappingRequest = errors.New("leave: overlapping request")
	// ErrInsufficientBalance は残高不足の場合に返却されます。
	ErrInsufficientBalance = errors.New("leave: insufficient balance")
	// ErrBalanceNotFound は残高レコードが存在しない場合に返却されます。
	ErrBalanceNotFound = errors.New("leave: balance not found")
	// ErrInvalidStateTransition は現在の状態から許可されない操作の場合に返却されます。
	ErrInvalidStateTransition = errors.New("leave: invalid state transition")
	// ErrRequestNotFound は申請が存在しない場合に返却されます。
	ErrRequestNotFound = errors.New("leave: request not found")
	// ErrInvalidLedgerState は確定・解放・戻し入れの対象日数が不足する場合に返却されます。
	ErrInvalidLedgerState = errors.New("leave: invalid ledger state")
	// ErrConcurrentModification は楽観ロックの競合を表します。再試行可能です。
	ErrConcurrentModification = errors.New("leave: concurrent modification detected")
	// ErrInvalidPageSize は一覧取得時のページサイズが不正な場合に返却されます。
	ErrInvalidPageSize = errors.New("leave: invalid page size")
	// ErrInvalidPageToken は一覧取得時のページトークンが不正な場合に返却されます。
	ErrInvalidPageToken = errors.New("leave: invalid page token")
)

// ValidationError は入力項目ごとの検証エラーです。
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("leave: invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

func invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// NoticeViolationError は事前申請日数の不足を表します。
type NoticeViolationError struct {
	StartDate     time.Time
	EarliestStart time.Time
	NoticeDays    int
}

func (e *NoticeViolationError) Error() string {
	return fmt.Sprintf("leave: start date %s requires %d days notice (earliest %s)",
		e.StartDate.Format(time.DateOnly), e.NoticeDays, e.EarliestStart.Format(time.DateOnly))
}

func (e *NoticeViolationError) Unwrap() error {
	return ErrNoticeViolation
}

// ConsecutiveDaysExceededError は連続取得日数の超過を表します。
type ConsecutiveDaysExceededError struct {
	Requested int
	Maximum   int
}

func (e *ConsecutiveDaysExceededError) Error() string {
	return fmt.Sprintf("leave: %d consecutive days requested, maximum is %d", e.Requested, e.Maximum)
}

func (e *ConsecutiveDaysExceededError) Unwrap() error {
	return ErrConsecutiveDaysExceeded
}

// OverlappingRequestError は重複した既存申請の ID を保持します。
type OverlappingRequestError struct {
	ConflictingIDs []string
}

func (e *OverlappingRequestError) Error() string {
	return fmt.Sprintf("leave: overlaps existing request(s) %s", strings.Join(e.ConflictingIDs, ", "))
}

func (e *OverlappingRequestError) Unwrap() error {
	return ErrOverlappingRequest
}

// InsufficientBalanceError は残高不足の詳細です。
type InsufficientBalanceError struct {
	Key       BalanceKey
	Available decimal.Decimal
	Requested decimal.Decimal
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("leave: insufficient balance for %s/%s/%d: available %s, requested %s",
		e.Key.EmployeeID, e.Key.LeaveTypeID, e.Key.Year, e.Available, e.Requested)
}

func (e *InsufficientBalanceError) Unwrap() error {
	return ErrInsufficientBalance
}

// InvalidStateTransitionError は許可されない状態遷移の詳細です。
type InvalidStateTransitionError struct {
	RequestID string
	From      Status
	Action    Action
}

func (e *InvalidStateTransitionError) Error() string {
	return fmt.Sprintf("leave: cannot %s request %s in status %s", e.Action, e.RequestID, e.From)
}

func (e *InvalidStateTransitionError) Unwrap() error {
	return ErrInvalidStateTransition
}

// LedgerStateError は台帳の項目が操作対象の日数に満たないことを表します。
type LedgerStateError struct {
	Key       BalanceKey
	Operation LedgerOperation
	Bucket    string
	Have      decimal.Decimal
	Requested decimal.Decimal
}

func (e *LedgerStateError) Error() string {
	return fmt.Sprintf("leave: cannot %s %s days for %s/%s/%d: %s is %s",
		e.Operation, e.Requested, e.Key.EmployeeID, e.Key.LeaveTypeID, e.Key.Year, e.Bucket, e.Have)
}

func (e *LedgerStateError) Unwrap() error {
	return ErrInvalidLedgerState
}

// IsRetryable は再試行で成功し得るエラーかどうかを返します。
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConcurrentModification)
}

// IsClientError は呼び出し側の入力や業務ルールに起因するエラーかどうかを返します。
func IsClientError(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrNoticeViolation) ||
		errors.Is(err, ErrConsecutiveDaysExceeded) ||
		errors.Is(err, ErrOverlappingRequest) ||
		errors.Is(err, ErrInsufficientBalance) ||
		errors.Is(err, ErrInvalidStateTransition) ||
		errors.Is(err, ErrInvalidPageSize) ||
		errors.Is(err, ErrInvalidPageToken)
}

// IsNotFound は参照先が存在しないエラーかどうかを返します。
func IsNotFound(err error) bool {
	return errors.Is(err, ErrRequestNotFound) ||
		errors.Is(err, ErrBalanceNotFound) ||
		errors.Is(err, employee.ErrEmployeeNotFound) ||
		errors.Is(err, leavetype.ErrLeaveTypeNotFound)
}

// ErrorKind はエラーをメトリクスの result ラベル値へ分類します。
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return "ok"
	case IsRetryable(err):
		return "conflict"
	case IsNotFound(err):
		return "not_found"
	case IsClientError(err):
		return "rejected"
	case errors.Is(err, ErrInvalidLedgerState):
		return "ledger_state"
	default:
		return "error"
	}
}
