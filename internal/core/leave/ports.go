package leave

import (
	"context"
	"fmt"
	"time"

	"github.com/ogurasousui/leave-ledger/internal/core/employee"
	"github.com/ogurasousui/leave-ledger/internal/core/leavetype"
)

// Clock は現在時刻を提供します。
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time {
	return time.Now().UTC()
}

// TransactionManager はトランザクション制御の抽象化です。
type TransactionManager interface {
	WithinReadOnly(ctx context.Context, fn func(context.Context) error) error
	WithinReadWrite(ctx context.Context, fn func(context.Context) error) error
}

type noopTransactionManager struct{}

func (noopTransactionManager) WithinReadOnly(ctx context.Context, fn func(context.Context) error) error {
	if fn == nil {
		return nil
	}
	return fn(ctx)
}

func (noopTransactionManager) WithinReadWrite(ctx context.Context, fn func(context.Context) error) error {
	if fn == nil {
		return nil
	}
	return fn(ctx)
}

// PolicyReader は休暇区分ポリシーの参照口です。
type PolicyReader interface {
	FindByID(ctx context.Context, id string) (*leavetype.LeaveType, error)
	ListActive(ctx context.Context) ([]*leavetype.LeaveType, error)
}

// EmployeeDirectory は社員情報の参照口です。
type EmployeeDirectory interface {
	Lookup(ctx context.Context, id string) (*employee.Employee, error)
}

// SubmittedNotice は申請受付の通知内容です。
type SubmittedNotice struct {
	RequestID    string
	ApproverID   string
	EmployeeName string
}

// DecisionNotice は承認・却下の通知内容です。
type DecisionNotice struct {
	RequestID   string
	EmployeeID  string
	DeciderName string
	Approved    bool
}

// Notifier はコミット後に呼び出される通知口です。失敗はワークフローに影響しません。
type Notifier interface {
	LeaveSubmitted(ctx context.Context, n SubmittedNotice) error
	LeaveDecided(ctx context.Context, n DecisionNotice) error
}

// AttachmentPurger は申請削除後に添付書類を削除します。
type AttachmentPurger interface {
	PurgeRequest(ctx context.Context, requestID string) error
}

// Metrics は台帳とワークフローの計測口です。
type Metrics interface {
	ObserveLedger(operation string, err error)
	ObserveTransition(action string, err error, elapsed time.Duration)
}

type noopMetrics struct{}

func (noopMetrics) ObserveLedger(string, error) {}

func (noopMetrics) ObserveTransition(string, error, time.Duration) {}

type noopNotifier struct{}

func (noopNotifier) LeaveSubmitted(context.Context, SubmittedNotice) error {
	return nil
}

func (noopNotifier) LeaveDecided(context.Context, DecisionNotice) error {
	return nil
}

// Message は通知の件名と本文を返します。
func (n SubmittedNotice) Message() (title, body string) {
	return "Leave request submitted",
		fmt.Sprintf("%s submitted leave request %s for your approval.", n.EmployeeName, n.RequestID)
}

// Message は通知の件名と本文を返します。
func (n DecisionNotice) Message() (title, body string) {
	if n.Approved {
		return "Leave request approved", fmt.Sprintf("Leave request %s was approved by %s.", n.RequestID, n.DeciderName)
	}
	return "Leave request rejected", fmt.Sprintf("Leave request %s was rejected by %s.", n.RequestID, n.DeciderName)
}
