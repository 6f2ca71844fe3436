package leavetype

import (
	"time"

	"github.com/shopspring/decimal"
)

// LeaveType は休暇区分とその年次ポリシーを表すエンティティです。
type LeaveType struct {
	ID                     string
	Name                   string
	Code                   string
	DaysAllowed            decimal.Decimal
	RequiresApproval       bool
	CarryForward           bool
	MaxCarryForwardDays    *decimal.Decimal
	MinimumNoticeDays      *int
	MaximumConsecutiveDays *int
	Active                 bool
	CreatedAt              time.Time
	UpdatedAt              time.Time
}

// CarryForwardCap は繰越上限を適用した繰越日数を返します。remaining が負の場合は 0 です。
func (t *LeaveType) CarryForwardCap(remaining decimal.Decimal) decimal.Decimal {
	if !t.CarryForward || remaining.IsNegative() {
		return decimal.Zero
	}
	if t.MaxCarryForwardDays != nil && remaining.GreaterThan(*t.MaxCarryForwardDays) {
		return *t.MaxCarryForwardDays
	}
	return remaining
}
