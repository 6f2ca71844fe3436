package leavetype

import "context"

// Repository は休暇区分の永続化を行うインターフェースです。
type Repository interface {
	Create(ctx context.Context, leaveType *LeaveType) (*LeaveType, error)
	Update(ctx context.Context, leaveType *LeaveType) (*LeaveType, error)
	Delete(ctx context.Context, id string) error
	FindByID(ctx context.Context, id string) (*LeaveType, error)
	FindByCode(ctx context.Context, code string) (*LeaveType, error)
	List(ctx context.Context, filter ListLeaveTypesFilter) ([]*LeaveType, string, error)
	ListActive(ctx context.Context) ([]*LeaveType, error)
}

// ListLeaveTypesFilter は一覧取得時の検索条件を表します。
type ListLeaveTypesFilter struct {
	Limit  int
	Offset int
	Active *bool
}
