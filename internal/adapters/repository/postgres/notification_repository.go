package postgres

import (
	"context"
	"time"

	"github.com/ogurasousui/leave-ledger/internal/core/leave"
	pgdb "github.com/ogurasousui/leave-ledger/internal/platform/db/postgres"
)

const (
	notificationLeaveSubmitted = "leave_submitted"
	notificationLeaveDecided   = "leave_decided"
)

// NotificationRepository は leave.Notifier の PostgreSQL 実装です。
// 通知は leave_notifications テーブルに保存され、配信は別プロセスが担います。
type NotificationRepository struct {
	pool pgdb.Queryer
	now  func() time.Time
}

// NewNotificationRepository は NotificationRepository を生成します。
func NewNotificationRepository(pool pgdb.Queryer) *NotificationRepository {
	return &NotificationRepository{pool: pool, now: func() time.Time { return time.Now().UTC() }}
}

// LeaveSubmitted は承認者宛の申請受付通知を保存します。承認者が未設定の場合は何もしません。
func (r *NotificationRepository) LeaveSubmitted(ctx context.Context, n leave.SubmittedNotice) error {
	if n.ApproverID == "" {
		return nil
	}
	title, body := n.Message()
	return r.insert(ctx, n.ApproverID, notificationLeaveSubmitted, n.RequestID, title, body)
}

// LeaveDecided は申請者宛の承認・却下通知を保存します。
func (r *NotificationRepository) LeaveDecided(ctx context.Context, n leave.DecisionNotice) error {
	title, body := n.Message()
	return r.insert(ctx, n.EmployeeID, notificationLeaveDecided, n.RequestID, title, body)
}

func (r *NotificationRepository) insert(ctx context.Context, recipientID, kind, requestID, title, body string) error {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	_, err := exec.Exec(ctx, `
        INSERT INTO leave_notifications (recipient_id, type, request_id, title, body, created_at)
        VALUES ($1, $2, $3, $4, $5, $6)
    `, recipientID, kind, requestID, title, body, r.now())
	return err
}
