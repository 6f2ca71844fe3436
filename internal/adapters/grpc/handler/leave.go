package handler

import (
	"context"
	"strings"

	"github.com/ogurasousui/leave-ledger/internal/core/document"
	"github.com/ogurasousui/leave-ledger/internal/core/leave"
	"google.golang.org/protobuf/types/known/structpb"
)

// DocumentUseCase は添付書類ユースケースのうちハンドラーが利用する操作です。
type DocumentUseCase interface {
	Attach(ctx context.Context, in document.AttachInput) (*document.Document, error)
	List(ctx context.Context, requestID string) ([]*document.Document, error)
	Get(ctx context.Context, id string) (*document.Document, error)
}

// LeaveGrpcHandler は LeaveService の gRPC 実装です。
type LeaveGrpcHandler struct {
	svc  leave.UseCase
	docs DocumentUseCase
}

// NewLeaveGrpcHandler は LeaveGrpcHandler を生成します。
func NewLeaveGrpcHandler(svc leave.UseCase, docs DocumentUseCase) *LeaveGrpcHandler {
	return &LeaveGrpcHandler{svc: svc, docs: docs}
}

// CreateLeaveRequest は休暇申請を作成します。
func (h *LeaveGrpcHandler) CreateLeaveRequest(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	f, err := requestFields(req)
	if err != nil {
		return nil, err
	}

	in := leave.CreateRequestInput{}
	if in.EmployeeID, err = f.text("employee_id"); err != nil {
		return nil, err
	}
	if in.LeaveTypeID, err = f.text("leave_type_id"); err != nil {
		return nil, err
	}
	if in.StartDate, err = f.date("start_date"); err != nil {
		return nil, err
	}
	if in.EndDate, err = f.date("end_date"); err != nil {
		return nil, err
	}
	if in.HalfDay, err = f.flag("half_day"); err != nil {
		return nil, err
	}
	if in.HalfDayPeriod, err = halfDayPeriodField(f); err != nil {
		return nil, err
	}
	if in.Reason, err = f.text("reason"); err != nil {
		return nil, err
	}

	created, err := h.svc.CreateLeaveRequest(ctx, in)
	if err != nil {
		return nil, toStatusError(err)
	}
	return newStruct(map[string]any{"leave_request": leaveRequestValue(created)})
}

// UpdateLeaveRequest は PENDING の申請を更新します。指定されなかった項目は変更しません。
func (h *LeaveGrpcHandler) UpdateLeaveRequest(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	f, err := requestFields(req)
	if err != nil {
		return nil, err
	}

	in := leave.UpdateRequestInput{}
	if in.ID, err = f.text("id"); err != nil {
		return nil, err
	}
	if in.LeaveTypeID, err = f.optionalString("leave_type_id"); err != nil {
		return nil, err
	}
	if in.StartDate, err = f.optionalDate("start_date"); err != nil {
		return nil, err
	}
	if in.EndDate, err = f.optionalDate("end_date"); err != nil {
		return nil, err
	}
	if in.HalfDay, err = f.optionalBool("half_day"); err != nil {
		return nil, err
	}
	if in.HalfDayPeriod, err = halfDayPeriodField(f); err != nil {
		return nil, err
	}
	if in.Reason, err = f.optionalString("reason"); err != nil {
		return nil, err
	}

	updated, err := h.svc.UpdateLeaveRequest(ctx, in)
	if err != nil {
		return nil, toStatusError(err)
	}
	return newStruct(map[string]any{"leave_request": leaveRequestValue(updated)})
}

// ApproveLeaveRequest は申請を承認します。
func (h *LeaveGrpcHandler) ApproveLeaveRequest(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	f, err := requestFields(req)
	if err != nil {
		return nil, err
	}

	in := leave.ApproveInput{}
	if in.ID, err = f.text("id"); err != nil {
		return nil, err
	}
	if in.ApproverID, err = f.text("approver_id"); err != nil {
		return nil, err
	}
	if in.Comments, err = f.optionalString("comments"); err != nil {
		return nil, err
	}

	approved, err := h.svc.ApproveLeaveRequest(ctx, in)
	if err != nil {
		return nil, toStatusError(err)
	}
	return newStruct(map[string]any{"leave_request": leaveRequestValue(approved)})
}

// RejectLeaveRequest は申請を却下します。
func (h *LeaveGrpcHandler) RejectLeaveRequest(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	f, err := requestFields(req)
	if err != nil {
		return nil, err
	}

	in := leave.RejectInput{}
	if in.ID, err = f.text("id"); err != nil {
		return nil, err
	}
	if in.RejectorID, err = f.text("rejector_id"); err != nil {
		return nil, err
	}
	if in.Reason, err = f.text("reason"); err != nil {
		return nil, err
	}

	rejected, err := h.svc.RejectLeaveRequest(ctx, in)
	if err != nil {
		return nil, toStatusError(err)
	}
	return newStruct(map[string]any{"leave_request": leaveRequestValue(rejected)})
}

// CancelLeaveRequest は申請を取り消します。
func (h *LeaveGrpcHandler) CancelLeaveRequest(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	f, err := requestFields(req)
	if err != nil {
		return nil, err
	}

	in := leave.CancelInput{}
	if in.ID, err = f.text("id"); err != nil {
		return nil, err
	}
	if in.CancelledBy, err = f.text("cancelled_by"); err != nil {
		return nil, err
	}
	if in.Reason, err = f.optionalString("reason"); err != nil {
		return nil, err
	}

	cancelled, err := h.svc.CancelLeaveRequest(ctx, in)
	if err != nil {
		return nil, toStatusError(err)
	}
	return newStruct(map[string]any{"leave_request": leaveRequestValue(cancelled)})
}

// DeleteLeaveRequest は PENDING の申請を削除します。
func (h *LeaveGrpcHandler) DeleteLeaveRequest(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	f, err := requestFields(req)
	if err != nil {
		return nil, err
	}

	id, err := f.text("id")
	if err != nil {
		return nil, err
	}
	if err := h.svc.DeleteLeaveRequest(ctx, leave.DeleteInput{ID: id}); err != nil {
		return nil, toStatusError(err)
	}
	return newStruct(map[string]any{})
}

// GetLeaveRequest は申請を取得します。
func (h *LeaveGrpcHandler) GetLeaveRequest(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	f, err := requestFields(req)
	if err != nil {
		return nil, err
	}

	id, err := f.text("id")
	if err != nil {
		return nil, err
	}
	found, err := h.svc.GetLeaveRequest(ctx, leave.GetRequestInput{ID: id})
	if err != nil {
		return nil, toStatusError(err)
	}
	return newStruct(map[string]any{"leave_request": leaveRequestValue(found)})
}

// ListLeaveRequests は申請の一覧を取得します。
func (h *LeaveGrpcHandler) ListLeaveRequests(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	f, err := requestFields(req)
	if err != nil {
		return nil, err
	}

	in := leave.ListRequestsInput{}
	if in.EmployeeID, err = f.text("employee_id"); err != nil {
		return nil, err
	}
	statusValue, err := f.optionalString("status")
	if err != nil {
		return nil, err
	}
	if statusValue != nil && strings.TrimSpace(*statusValue) != "" {
		st := leave.Status(strings.ToUpper(strings.TrimSpace(*statusValue)))
		in.Status = &st
	}
	if in.Year, err = f.optionalInt("year"); err != nil {
		return nil, err
	}
	if in.PageSize, err = f.integer("page_size"); err != nil {
		return nil, err
	}
	if in.PageToken, err = f.text("page_token"); err != nil {
		return nil, err
	}

	result, err := h.svc.ListLeaveRequests(ctx, in)
	if err != nil {
		return nil, toStatusError(err)
	}

	items := make([]any, 0, len(result.Requests))
	for _, r := range result.Requests {
		items = append(items, leaveRequestValue(r))
	}
	return newStruct(map[string]any{
		"leave_requests":  items,
		"next_page_token": result.NextPageToken,
	})
}

// GetBalance は社員・休暇区分・年度の残高を取得します。
func (h *LeaveGrpcHandler) GetBalance(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	f, err := requestFields(req)
	if err != nil {
		return nil, err
	}

	key := leave.BalanceKey{}
	if key.EmployeeID, err = f.text("employee_id"); err != nil {
		return nil, err
	}
	if key.LeaveTypeID, err = f.text("leave_type_id"); err != nil {
		return nil, err
	}
	if key.Year, err = f.integer("year"); err != nil {
		return nil, err
	}

	balance, err := h.svc.GetBalance(ctx, key)
	if err != nil {
		return nil, toStatusError(err)
	}
	return newStruct(map[string]any{"balance": balanceValue(balance)})
}

// ListBalances は社員の年度残高一覧を取得します。
func (h *LeaveGrpcHandler) ListBalances(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	employeeID, year, err := employeeYearFields(req)
	if err != nil {
		return nil, err
	}

	balances, err := h.svc.ListBalances(ctx, employeeID, year)
	if err != nil {
		return nil, toStatusError(err)
	}
	return newStruct(map[string]any{"balances": balanceValues(balances)})
}

// InitializeYear は社員の年度残高を初期化します。既存の残高は変更しません。
func (h *LeaveGrpcHandler) InitializeYear(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	employeeID, year, err := employeeYearFields(req)
	if err != nil {
		return nil, err
	}

	balances, err := h.svc.InitializeYear(ctx, employeeID, year)
	if err != nil {
		return nil, toStatusError(err)
	}
	return newStruct(map[string]any{"balances": balanceValues(balances)})
}

// AttachDocument は申請に書類を添付します。content は base64 で受け取ります。
func (h *LeaveGrpcHandler) AttachDocument(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	f, err := requestFields(req)
	if err != nil {
		return nil, err
	}

	in := document.AttachInput{}
	if in.RequestID, err = f.text("leave_request_id"); err != nil {
		return nil, err
	}
	if in.FileName, err = f.text("file_name"); err != nil {
		return nil, err
	}
	if in.ContentType, err = f.text("content_type"); err != nil {
		return nil, err
	}
	if in.Data, err = f.encodedBytes("content"); err != nil {
		return nil, err
	}
	if in.UploadedBy, err = f.text("uploaded_by"); err != nil {
		return nil, err
	}

	created, err := h.docs.Attach(ctx, in)
	if err != nil {
		return nil, toStatusError(err)
	}
	return newStruct(map[string]any{"document": documentValue(created)})
}

// ListDocuments は申請に添付された書類のメタデータを取得します。
func (h *LeaveGrpcHandler) ListDocuments(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	f, err := requestFields(req)
	if err != nil {
		return nil, err
	}

	requestID, err := f.text("leave_request_id")
	if err != nil {
		return nil, err
	}
	docs, err := h.docs.List(ctx, requestID)
	if err != nil {
		return nil, toStatusError(err)
	}

	items := make([]any, 0, len(docs))
	for _, d := range docs {
		items = append(items, documentValue(d))
	}
	return newStruct(map[string]any{"documents": items})
}

// GetDocument は書類を内容付きで取得します。
func (h *LeaveGrpcHandler) GetDocument(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	f, err := requestFields(req)
	if err != nil {
		return nil, err
	}

	id, err := f.text("id")
	if err != nil {
		return nil, err
	}
	doc, err := h.docs.Get(ctx, id)
	if err != nil {
		return nil, toStatusError(err)
	}

	value := documentValue(doc)
	value["content"] = doc.Content
	return newStruct(map[string]any{"document": value})
}

func halfDayPeriodField(f fields) (*leave.HalfDayPeriod, error) {
	raw, err := f.optionalString("half_day_period")
	if err != nil || raw == nil {
		return nil, err
	}
	trimmed := strings.TrimSpace(*raw)
	if trimmed == "" {
		return nil, nil
	}
	period := leave.HalfDayPeriod(strings.ToUpper(trimmed))
	return &period, nil
}

func employeeYearFields(req *structpb.Struct) (string, int, error) {
	f, err := requestFields(req)
	if err != nil {
		return "", 0, err
	}
	employeeID, err := f.text("employee_id")
	if err != nil {
		return "", 0, err
	}
	year, err := f.integer("year")
	if err != nil {
		return "", 0, err
	}
	return employeeID, year, nil
}

func leaveRequestValue(r *leave.Request) map[string]any {
	if r == nil {
		return nil
	}
	var period any
	if r.HalfDayPeriod != nil {
		period = string(*r.HalfDayPeriod)
	}
	return map[string]any{
		"id":                r.ID,
		"employee_id":       r.EmployeeID,
		"leave_type_id":     r.LeaveTypeID,
		"start_date":        formatDate(r.StartDate),
		"end_date":          formatDate(r.EndDate),
		"total_days":        r.TotalDays.String(),
		"half_day":          r.HalfDay,
		"half_day_period":   period,
		"status":            string(r.Status),
		"reason":            r.Reason,
		"applied_date":      formatDate(r.AppliedDate),
		"approved_by":       optionalStringValue(r.ApprovedBy),
		"approved_at":       optionalTimestampValue(r.ApprovedAt),
		"approval_comments": optionalStringValue(r.ApprovalComments),
		"rejected_by":       optionalStringValue(r.RejectedBy),
		"rejected_at":       optionalTimestampValue(r.RejectedAt),
		"rejection_reason":  optionalStringValue(r.RejectionReason),
		"is_cancelled":      r.IsCancelled,
		"cancelled_at":      optionalTimestampValue(r.CancelledAt),
		"cancelled_by":      optionalStringValue(r.CancelledBy),
		"cancel_reason":     optionalStringValue(r.CancelReason),
		"created_at":        formatTimestamp(r.CreatedAt),
		"updated_at":        formatTimestamp(r.UpdatedAt),
	}
}

func balanceValue(b *leave.Balance) map[string]any {
	if b == nil {
		return nil
	}
	return map[string]any{
		"employee_id":        b.EmployeeID,
		"leave_type_id":      b.LeaveTypeID,
		"year":               b.Year,
		"allocated_days":     b.AllocatedDays.String(),
		"carry_forward_days": b.CarryForwardDays.String(),
		"used_days":          b.UsedDays.String(),
		"pending_days":       b.PendingDays.String(),
		"remaining_days":     b.RemainingDays.String(),
		"updated_at":         formatTimestamp(b.UpdatedAt),
	}
}

func balanceValues(balances []*leave.Balance) []any {
	items := make([]any, 0, len(balances))
	for _, b := range balances {
		items = append(items, balanceValue(b))
	}
	return items
}

func documentValue(d *document.Document) map[string]any {
	if d == nil {
		return nil
	}
	return map[string]any{
		"id":               d.ID,
		"leave_request_id": d.LeaveRequestID,
		"file_name":        d.FileName,
		"content_type":     d.ContentType,
		"size_bytes":       d.SizeBytes,
		"uploaded_by":      d.UploadedBy,
		"created_at":       formatTimestamp(d.CreatedAt),
	}
}
