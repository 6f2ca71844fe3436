package employee

import "time"

// Status は社員の状態を表します。
type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
)

// Employee は休暇管理が参照する社員エンティティです。
type Employee struct {
	ID           string
	EmployeeCode string
	Name         string
	Email        string
	ManagerID    *string
	Status       Status
	HiredAt      *time.Time
	TerminatedAt *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// IsActive は社員が在籍中かどうかを返します。
func (e *Employee) IsActive() bool {
	return e != nil && e.Status == StatusActive
}

// EmployedDuring は year 年のいずれかの日に在籍していたかを返します。入社日が未設定の場合は在籍とみなします。
func (e *Employee) EmployedDuring(year int) bool {
	if e == nil {
		return false
	}
	if e.HiredAt != nil && e.HiredAt.Year() > year {
		return false
	}
	if e.TerminatedAt != nil && e.TerminatedAt.Year() < year {
		return false
	}
	return true
}

// ApproverID は申請通知の宛先となる承認者 ID を返します。上長が未設定の場合は空文字です。
func (e *Employee) ApproverID() string {
	if e == nil || e.ManagerID == nil {
		return ""
	}
	return *e.ManagerID
}
