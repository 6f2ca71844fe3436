package leave

import (
	"time"

	"github.com/shopspring/decimal"
)

// Status は休暇申請の状態を表します。
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusApproved  Status = "APPROVED"
	StatusRejected  Status = "REJECTED"
	StatusCancelled Status = "CANCELLED"
)

// IsValid は定義済みの状態かどうかを返します。
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected, StatusCancelled:
		return true
	default:
		return false
	}
}

// Blocking は重複判定の対象となる状態かどうかを返します。
func (s Status) Blocking() bool {
	return s == StatusPending || s == StatusApproved
}

// HalfDayPeriod は半休の区分です。
type HalfDayPeriod string

const (
	HalfDayMorning   HalfDayPeriod = "MORNING"
	HalfDayAfternoon HalfDayPeriod = "AFTERNOON"
)

// IsValid は定義済みの区分かどうかを返します。
func (p HalfDayPeriod) IsValid() bool {
	return p == HalfDayMorning || p == HalfDayAfternoon
}

// BalanceKey は残高レコードを一意に識別します。
type BalanceKey struct {
	EmployeeID  string
	LeaveTypeID string
	Year        int
}

// Balance は社員・休暇区分・年度ごとの残高台帳です。
type Balance struct {
	EmployeeID       string
	LeaveTypeID      string
	Year             int
	AllocatedDays    decimal.Decimal
	CarryForwardDays decimal.Decimal
	UsedDays         decimal.Decimal
	PendingDays      decimal.Decimal
	RemainingDays    decimal.Decimal
	Version          int64
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Key は残高のキーを返します。
func (b *Balance) Key() BalanceKey {
	return BalanceKey{EmployeeID: b.EmployeeID, LeaveTypeID: b.LeaveTypeID, Year: b.Year}
}

// Available は付与日数と繰越日数から使用済み・申請中を差し引いた日数を返します。
func (b *Balance) Available() decimal.Decimal {
	return b.AllocatedDays.Add(b.CarryForwardDays).Sub(b.UsedDays).Sub(b.PendingDays)
}

// Consistent は RemainingDays が各項目から計算した値と一致し、使用済み・申請中が負でないかを返します。
func (b *Balance) Consistent() bool {
	return b.RemainingDays.Equal(b.Available()) && !b.UsedDays.IsNegative() && !b.PendingDays.IsNegative()
}

func (b *Balance) recompute() {
	b.RemainingDays = b.Available()
}

// Clone は Balance の複製を返します。
func (b *Balance) Clone() *Balance {
	if b == nil {
		return nil
	}
	c := *b
	return &c
}

// Request は休暇申請です。
type Request struct {
	ID               string
	EmployeeID       string
	LeaveTypeID      string
	StartDate        time.Time
	EndDate          time.Time
	TotalDays        decimal.Decimal
	HalfDay          bool
	HalfDayPeriod    *HalfDayPeriod
	Status           Status
	Reason           string
	AppliedDate      time.Time
	ApprovedBy       *string
	ApprovedAt       *time.Time
	ApprovalComments *string
	RejectedBy       *string
	RejectedAt       *time.Time
	RejectionReason  *string
	IsCancelled      bool
	CancelledAt      *time.Time
	CancelledBy      *string
	CancelReason     *string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Year は残高を計上する年度を返します。
func (r *Request) Year() int {
	return r.StartDate.Year()
}

// BalanceKey は申請が計上される残高のキーを返します。
func (r *Request) BalanceKey() BalanceKey {
	return BalanceKey{EmployeeID: r.EmployeeID, LeaveTypeID: r.LeaveTypeID, Year: r.Year()}
}

// Overlaps は [start, end] と期間が 1 日でも重なるかを返します。境界日は重複とみなします。
func (r *Request) Overlaps(start, end time.Time) bool {
	return !r.StartDate.After(end) && !start.After(r.EndDate)
}

// Clone は Request の深い複製を返します。
func (r *Request) Clone() *Request {
	if r == nil {
		return nil
	}
	c := *r
	if r.HalfDayPeriod != nil {
		p := *r.HalfDayPeriod
		c.HalfDayPeriod = &p
	}
	c.ApprovedBy = cloneString(r.ApprovedBy)
	c.ApprovalComments = cloneString(r.ApprovalComments)
	c.RejectedBy = cloneString(r.RejectedBy)
	c.RejectionReason = cloneString(r.RejectionReason)
	c.CancelledBy = cloneString(r.CancelledBy)
	c.CancelReason = cloneString(r.CancelReason)
	c.ApprovedAt = cloneTime(r.ApprovedAt)
	c.RejectedAt = cloneTime(r.RejectedAt)
	c.CancelledAt = cloneTime(r.CancelledAt)
	return &c
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
