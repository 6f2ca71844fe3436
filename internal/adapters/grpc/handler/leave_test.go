package handler

import (
	"context"
	"encoding/base64"
	"testing"
	"time"

	"github.com/ogurasousui/leave-ledger/internal/core/document"
	"github.com/ogurasousui/leave-ledger/internal/core/leave"
	"github.com/shopspring/decimal"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

type stubLeaveUseCase struct {
	createInput leave.CreateRequestInput
	updateInput leave.UpdateRequestInput
	approveIn   leave.ApproveInput
	rejectIn    leave.RejectInput
	cancelIn    leave.CancelInput
	deleteIn    leave.DeleteInput
	listInput   leave.ListRequestsInput
	balanceKey  leave.BalanceKey

	out       *leave.Request
	listOut   *leave.ListRequestsResult
	balance   *leave.Balance
	balances  []*leave.Balance
	err       error
	initEmpID string
	initYear  int
}

func (s *stubLeaveUseCase) CreateLeaveRequest(ctx context.Context, in leave.CreateRequestInput) (*leave.Request, error) {
	s.createInput = in
	return s.out, s.err
}

func (s *stubLeaveUseCase) UpdateLeaveRequest(ctx context.Context, in leave.UpdateRequestInput) (*leave.Request, error) {
	s.updateInput = in
	return s.out, s.err
}

func (s *stubLeaveUseCase) ApproveLeaveRequest(ctx context.Context, in leave.ApproveInput) (*leave.Request, error) {
	s.approveIn = in
	return s.out, s.err
}

func (s *stubLeaveUseCase) RejectLeaveRequest(ctx context.Context, in leave.RejectInput) (*leave.Request, error) {
	s.rejectIn = in
	return s.out, s.err
}

func (s *stubLeaveUseCase) CancelLeaveRequest(ctx context.Context, in leave.CancelInput) (*leave.Request, error) {
	s.cancelIn = in
	return s.out, s.err
}

func (s *stubLeaveUseCase) DeleteLeaveRequest(ctx context.Context, in leave.DeleteInput) error {
	s.deleteIn = in
	return s.err
}

func (s *stubLeaveUseCase) GetLeaveRequest(ctx context.Context, in leave.GetRequestInput) (*leave.Request, error) {
	return s.out, s.err
}

func (s *stubLeaveUseCase) ListLeaveRequests(ctx context.Context, in leave.ListRequestsInput) (*leave.ListRequestsResult, error) {
	s.listInput = in
	return s.listOut, s.err
}

func (s *stubLeaveUseCase) GetBalance(ctx context.Context, key leave.BalanceKey) (*leave.Balance, error) {
	s.balanceKey = key
	return s.balance, s.err
}

func (s *stubLeaveUseCase) ListBalances(ctx context.Context, employeeID string, year int) ([]*leave.Balance, error) {
	return s.balances, s.err
}

func (s *stubLeaveUseCase) InitializeYear(ctx context.Context, employeeID string, year int) ([]*leave.Balance, error) {
	s.initEmpID = employeeID
	s.initYear = year
	return s.balances, s.err
}

type stubDocuments struct {
	attachInput document.AttachInput
	doc         *document.Document
	docs        []*document.Document
	err         error
}

func (s *stubDocuments) Attach(ctx context.Context, in document.AttachInput) (*document.Document, error) {
	s.attachInput = in
	return s.doc, s.err
}

func (s *stubDocuments) List(ctx context.Context, requestID string) ([]*document.Document, error) {
	return s.docs, s.err
}

func (s *stubDocuments) Get(ctx context.Context, id string) (*document.Document, error) {
	return s.doc, s.err
}

func sampleRequest() *leave.Request {
	now := time.Date(2025, 1, 10, 9, 0, 0, 0, time.UTC)
	period := leave.HalfDayAfternoon
	return &leave.Request{
		ID:            "req-1",
		EmployeeID:    "emp-1",
		LeaveTypeID:   "lt-1",
		StartDate:     time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC),
		EndDate:       time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC),
		TotalDays:     decimal.RequireFromString("0.5"),
		HalfDay:       true,
		HalfDayPeriod: &period,
		Status:        leave.StatusPending,
		Reason:        "dentist",
		AppliedDate:   time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

func TestLeaveGrpcHandler_CreateLeaveRequest_Success(t *testing.T) {
	t.Parallel()

	stub := &stubLeaveUseCase{out: sampleRequest()}
	handler := NewLeaveGrpcHandler(stub, &stubDocuments{})

	resp, err := handler.CreateLeaveRequest(context.Background(), mustStruct(t, map[string]any{
		"employee_id":     "emp-1",
		"leave_type_id":   "lt-1",
		"start_date":      "2025-06-02",
		"end_date":        "2025-06-02",
		"half_day":        true,
		"half_day_period": "afternoon",
		"reason":          "dentist",
	}))
	if err != nil {
		t.Fatalf("CreateLeaveRequest returned error: %v", err)
	}

	in := stub.createInput
	if in.EmployeeID != "emp-1" || in.LeaveTypeID != "lt-1" || !in.HalfDay {
		t.Fatalf("unexpected input %+v", in)
	}
	if in.HalfDayPeriod == nil || *in.HalfDayPeriod != leave.HalfDayAfternoon {
		t.Fatalf("expected half day period upper-cased, got %+v", in.HalfDayPeriod)
	}
	if !in.StartDate.Equal(time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected start date %v", in.StartDate)
	}

	got := resp.GetFields()["leave_request"].GetStructValue().GetFields()
	if got["total_days"].GetStringValue() != "0.5" {
		t.Fatalf("expected total_days '0.5', got %v", got["total_days"])
	}
	if got["status"].GetStringValue() != "PENDING" || got["half_day_period"].GetStringValue() != "AFTERNOON" {
		t.Fatalf("unexpected response %v", got)
	}
	if _, isNull := got["approved_by"].GetKind().(*structpb.Value_NullValue); !isNull {
		t.Fatalf("expected approved_by null, got %v", got["approved_by"])
	}
}

func TestLeaveGrpcHandler_CreateLeaveRequest_FieldErrors(t *testing.T) {
	t.Parallel()

	stub := &stubLeaveUseCase{}
	handler := NewLeaveGrpcHandler(stub, &stubDocuments{})

	cases := []map[string]any{
		{"employee_id": "emp-1", "end_date": "2025-06-02"},
		{"employee_id": "emp-1", "start_date": "2025/06/02", "end_date": "2025-06-02"},
		{"employee_id": 1, "start_date": "2025-06-02", "end_date": "2025-06-02"},
		{"employee_id": "emp-1", "start_date": "2025-06-02", "end_date": "2025-06-02", "half_day": "yes"},
	}
	for i, tc := range cases {
		_, err := handler.CreateLeaveRequest(context.Background(), mustStruct(t, tc))
		if st, _ := status.FromError(err); st.Code() != codes.InvalidArgument {
			t.Fatalf("case %d: expected invalid argument, got %v", i, st.Code())
		}
	}
}

func TestLeaveGrpcHandler_ErrorMapping(t *testing.T) {
	t.Parallel()

	cases := []struct {
		err  error
		want codes.Code
	}{
		{&leave.InsufficientBalanceError{Requested: decimal.NewFromInt(3), Available: decimal.NewFromInt(1)}, codes.FailedPrecondition},
		{&leave.OverlappingRequestError{ConflictingIDs: []string{"req-9"}}, codes.FailedPrecondition},
		{&leave.ValidationError{Field: "reason", Reason: "required"}, codes.InvalidArgument},
		{leave.ErrRequestNotFound, codes.NotFound},
		{leave.ErrConcurrentModification, codes.Aborted},
	}
	for _, tc := range cases {
		stub := &stubLeaveUseCase{err: tc.err}
		handler := NewLeaveGrpcHandler(stub, &stubDocuments{})
		_, err := handler.ApproveLeaveRequest(context.Background(), mustStruct(t, map[string]any{"id": "req-1", "approver_id": "mgr-1"}))
		if st, _ := status.FromError(err); st.Code() != tc.want {
			t.Fatalf("%v: expected %v, got %v", tc.err, tc.want, st.Code())
		}
	}
}

func TestLeaveGrpcHandler_UpdateLeaveRequest_OnlyProvidedFields(t *testing.T) {
	t.Parallel()

	stub := &stubLeaveUseCase{out: sampleRequest()}
	handler := NewLeaveGrpcHandler(stub, &stubDocuments{})

	_, err := handler.UpdateLeaveRequest(context.Background(), mustStruct(t, map[string]any{
		"id":       "req-1",
		"end_date": "2025-06-04",
		"half_day": false,
	}))
	if err != nil {
		t.Fatalf("UpdateLeaveRequest returned error: %v", err)
	}

	in := stub.updateInput
	if in.ID != "req-1" || in.StartDate != nil || in.LeaveTypeID != nil || in.Reason != nil {
		t.Fatalf("expected untouched fields to stay nil, got %+v", in)
	}
	if in.EndDate == nil || in.EndDate.Day() != 4 {
		t.Fatalf("expected end date set, got %+v", in.EndDate)
	}
	if in.HalfDay == nil || *in.HalfDay {
		t.Fatalf("expected half_day=false, got %+v", in.HalfDay)
	}
}

func TestLeaveGrpcHandler_RejectCancelDelete_PassThrough(t *testing.T) {
	t.Parallel()

	stub := &stubLeaveUseCase{out: sampleRequest()}
	handler := NewLeaveGrpcHandler(stub, &stubDocuments{})
	ctx := context.Background()

	if _, err := handler.RejectLeaveRequest(ctx, mustStruct(t, map[string]any{"id": "req-1", "rejector_id": "mgr-1", "reason": "peak season"})); err != nil {
		t.Fatalf("RejectLeaveRequest returned error: %v", err)
	}
	if stub.rejectIn.Reason != "peak season" || stub.rejectIn.RejectorID != "mgr-1" {
		t.Fatalf("unexpected reject input %+v", stub.rejectIn)
	}

	if _, err := handler.CancelLeaveRequest(ctx, mustStruct(t, map[string]any{"id": "req-1", "cancelled_by": "emp-1"})); err != nil {
		t.Fatalf("CancelLeaveRequest returned error: %v", err)
	}
	if stub.cancelIn.CancelledBy != "emp-1" || stub.cancelIn.Reason != nil {
		t.Fatalf("unexpected cancel input %+v", stub.cancelIn)
	}

	resp, err := handler.DeleteLeaveRequest(ctx, mustStruct(t, map[string]any{"id": "req-1"}))
	if err != nil {
		t.Fatalf("DeleteLeaveRequest returned error: %v", err)
	}
	if stub.deleteIn.ID != "req-1" || len(resp.GetFields()) != 0 {
		t.Fatalf("unexpected delete result %+v / %v", stub.deleteIn, resp)
	}
}

func TestLeaveGrpcHandler_ListLeaveRequests(t *testing.T) {
	t.Parallel()

	stub := &stubLeaveUseCase{listOut: &leave.ListRequestsResult{
		Requests:      []*leave.Request{sampleRequest()},
		NextPageToken: "10",
	}}
	handler := NewLeaveGrpcHandler(stub, &stubDocuments{})

	resp, err := handler.ListLeaveRequests(context.Background(), mustStruct(t, map[string]any{
		"employee_id": "emp-1",
		"status":      "approved",
		"year":        2025,
		"page_size":   10,
	}))
	if err != nil {
		t.Fatalf("ListLeaveRequests returned error: %v", err)
	}

	in := stub.listInput
	if in.Status == nil || *in.Status != leave.StatusApproved {
		t.Fatalf("expected status filter APPROVED, got %+v", in.Status)
	}
	if in.Year == nil || *in.Year != 2025 || in.PageSize != 10 {
		t.Fatalf("unexpected list input %+v", in)
	}
	if resp.GetFields()["next_page_token"].GetStringValue() != "10" {
		t.Fatalf("expected next page token, got %v", resp.GetFields()["next_page_token"])
	}
	if n := len(resp.GetFields()["leave_requests"].GetListValue().GetValues()); n != 1 {
		t.Fatalf("expected 1 request, got %d", n)
	}

	_, err = handler.ListLeaveRequests(context.Background(), mustStruct(t, map[string]any{"page_size": 2.5}))
	if st, _ := status.FromError(err); st.Code() != codes.InvalidArgument {
		t.Fatalf("expected fractional page size to be rejected, got %v", st.Code())
	}
}

func TestLeaveGrpcHandler_Balances(t *testing.T) {
	t.Parallel()

	balance := &leave.Balance{
		EmployeeID:       "emp-1",
		LeaveTypeID:      "lt-1",
		Year:             2025,
		AllocatedDays:    decimal.NewFromInt(25),
		CarryForwardDays: decimal.NewFromInt(5),
		UsedDays:         decimal.RequireFromString("2.5"),
		PendingDays:      decimal.NewFromInt(1),
		RemainingDays:    decimal.RequireFromString("26.5"),
	}
	stub := &stubLeaveUseCase{balance: balance, balances: []*leave.Balance{balance}}
	handler := NewLeaveGrpcHandler(stub, &stubDocuments{})

	resp, err := handler.GetBalance(context.Background(), mustStruct(t, map[string]any{
		"employee_id":   "emp-1",
		"leave_type_id": "lt-1",
		"year":          "2025",
	}))
	if err != nil {
		t.Fatalf("GetBalance returned error: %v", err)
	}
	if stub.balanceKey != (leave.BalanceKey{EmployeeID: "emp-1", LeaveTypeID: "lt-1", Year: 2025}) {
		t.Fatalf("unexpected key %+v", stub.balanceKey)
	}
	got := resp.GetFields()["balance"].GetStructValue().GetFields()
	if got["remaining_days"].GetStringValue() != "26.5" || got["used_days"].GetStringValue() != "2.5" {
		t.Fatalf("unexpected balance %v", got)
	}

	resp, err = handler.InitializeYear(context.Background(), mustStruct(t, map[string]any{"employee_id": "emp-1", "year": 2026}))
	if err != nil {
		t.Fatalf("InitializeYear returned error: %v", err)
	}
	if stub.initEmpID != "emp-1" || stub.initYear != 2026 {
		t.Fatalf("unexpected initialize args %s/%d", stub.initEmpID, stub.initYear)
	}
	if n := len(resp.GetFields()["balances"].GetListValue().GetValues()); n != 1 {
		t.Fatalf("expected 1 balance, got %d", n)
	}
}

func TestLeaveGrpcHandler_Documents(t *testing.T) {
	t.Parallel()

	now := time.Now().UTC()
	content := []byte("%PDF-1.4 medical certificate")
	docs := &stubDocuments{doc: &document.Document{
		ID:             "doc-1",
		LeaveRequestID: "req-1",
		FileName:       "cert.pdf",
		ContentType:    "application/pdf",
		SizeBytes:      int64(len(content)),
		UploadedBy:     "emp-1",
		CreatedAt:      now,
		Content:        content,
	}}
	handler := NewLeaveGrpcHandler(&stubLeaveUseCase{}, docs)

	_, err := handler.AttachDocument(context.Background(), mustStruct(t, map[string]any{
		"leave_request_id": "req-1",
		"file_name":        "cert.pdf",
		"content":          base64.StdEncoding.EncodeToString(content),
		"uploaded_by":      "emp-1",
	}))
	if err != nil {
		t.Fatalf("AttachDocument returned error: %v", err)
	}
	if string(docs.attachInput.Data) != string(content) {
		t.Fatalf("expected decoded content, got %q", docs.attachInput.Data)
	}

	resp, err := handler.GetDocument(context.Background(), mustStruct(t, map[string]any{"id": "doc-1"}))
	if err != nil {
		t.Fatalf("GetDocument returned error: %v", err)
	}
	encoded := resp.GetFields()["document"].GetStructValue().GetFields()["content"].GetStringValue()
	if encoded != base64.StdEncoding.EncodeToString(content) {
		t.Fatalf("expected base64 content, got %q", encoded)
	}

	_, err = handler.AttachDocument(context.Background(), mustStruct(t, map[string]any{
		"leave_request_id": "req-1",
		"file_name":        "cert.pdf",
		"content":          "not base64!",
	}))
	if st, _ := status.FromError(err); st.Code() != codes.InvalidArgument {
		t.Fatalf("expected invalid argument for bad base64, got %v", st.Code())
	}

	docs.err = document.ErrTooLarge
	_, err = handler.AttachDocument(context.Background(), mustStruct(t, map[string]any{
		"leave_request_id": "req-1",
		"file_name":        "cert.pdf",
		"content":          base64.StdEncoding.EncodeToString(content),
	}))
	if st, _ := status.FromError(err); st.Code() != codes.InvalidArgument {
		t.Fatalf("expected invalid argument for oversized document, got %v", st.Code())
	}
}
