package memory

import (
	"context"
	"time"

	"github.com/ogurasousui/leave-ledger/internal/core/leave"
)

// Notification は送信待ちの通知です。
type Notification struct {
	RecipientID string
	Type        string
	RequestID   string
	Title       string
	Body        string
	CreatedAt   time.Time
}

const (
	NotificationLeaveSubmitted = "leave_submitted"
	NotificationLeaveDecided   = "leave_decided"
)

// Outbox は leave.Notifier のメモリ実装です。通知はストア内に蓄積されます。
type Outbox struct {
	store *Store
	now   func() time.Time
}

// NewOutbox は Outbox を生成します。
func NewOutbox(store *Store) *Outbox {
	return &Outbox{store: store, now: func() time.Time { return time.Now().UTC() }}
}

// LeaveSubmitted は承認者宛の申請受付通知を蓄積します。承認者が未設定の場合は何もしません。
func (o *Outbox) LeaveSubmitted(ctx context.Context, n leave.SubmittedNotice) error {
	if n.ApproverID == "" {
		return nil
	}
	title, body := n.Message()
	return o.append(ctx, Notification{
		RecipientID: n.ApproverID,
		Type:        NotificationLeaveSubmitted,
		RequestID:   n.RequestID,
		Title:       title,
		Body:        body,
	})
}

// LeaveDecided は申請者宛の承認・却下通知を蓄積します。
func (o *Outbox) LeaveDecided(ctx context.Context, n leave.DecisionNotice) error {
	title, body := n.Message()
	return o.append(ctx, Notification{
		RecipientID: n.EmployeeID,
		Type:        NotificationLeaveDecided,
		RequestID:   n.RequestID,
		Title:       title,
		Body:        body,
	})
}

// Notifications は蓄積された通知の複製を返します。
func (o *Outbox) Notifications(ctx context.Context) []Notification {
	var result []Notification
	_ = o.store.run(ctx, func(st *state) error {
		result = append([]Notification(nil), st.outbox...)
		return nil
	})
	return result
}

func (o *Outbox) append(ctx context.Context, n Notification) error {
	n.CreatedAt = o.now()
	return o.store.run(ctx, func(st *state) error {
		st.outbox = append(st.outbox, n)
		return nil
	})
}
