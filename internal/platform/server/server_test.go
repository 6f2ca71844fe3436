package server

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ogurasousui/leave-ledger/internal/adapters/grpc/handler"
	"github.com/ogurasousui/leave-ledger/internal/core/leavetype"
	"github.com/ogurasousui/leave-ledger/internal/platform/metrics"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"
)

type stubLeaveTypes struct {
	panicOnList bool
}

func (s *stubLeaveTypes) CreateLeaveType(context.Context, leavetype.CreateLeaveTypeInput) (*leavetype.LeaveType, error) {
	return nil, leavetype.ErrCodeAlreadyExists
}

func (s *stubLeaveTypes) GetLeaveType(_ context.Context, in leavetype.GetLeaveTypeInput) (*leavetype.LeaveType, error) {
	if in.ID != "lt-1" {
		return nil, leavetype.ErrLeaveTypeNotFound
	}
	return &leavetype.LeaveType{ID: "lt-1", Code: "annual", Name: "Annual Leave", DaysAllowed: decimal.NewFromInt(25), Active: true}, nil
}

func (s *stubLeaveTypes) ListLeaveTypes(context.Context, leavetype.ListLeaveTypesInput) (*leavetype.ListLeaveTypesResult, error) {
	if s.panicOnList {
		panic("boom")
	}
	return &leavetype.ListLeaveTypesResult{}, nil
}

func (s *stubLeaveTypes) UpdateLeaveType(context.Context, leavetype.UpdateLeaveTypeInput) (*leavetype.LeaveType, error) {
	return nil, nil
}

func (s *stubLeaveTypes) DeleteLeaveType(context.Context, leavetype.DeleteLeaveTypeInput) error {
	return nil
}

func startBufServer(t *testing.T, recorder *metrics.Recorder, stub *stubLeaveTypes) *grpc.ClientConn {
	t.Helper()

	lis := bufconn.Listen(1 << 20)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	srv := New("bufnet", Services{LeaveType: handler.NewLeaveTypeGrpcHandler(stub)}, logger, recorder)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, lis) }()

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("failed to dial bufconn: %v", err)
	}

	t.Cleanup(func() {
		_ = conn.Close()
		cancel()
		if err := <-done; err != nil {
			t.Errorf("server stopped with error: %v", err)
		}
	})
	return conn
}

func TestServer_InvokesStructService(t *testing.T) {
	t.Parallel()

	recorder := metrics.New(nil)
	conn := startBufServer(t, recorder, &stubLeaveTypes{})

	in, _ := structpb.NewStruct(map[string]any{"id": "lt-1"})
	out := new(structpb.Struct)
	var header metadata.MD
	ctx := metadata.AppendToOutgoingContext(context.Background(), RequestIDHeader, "req-abc")

	if err := conn.Invoke(ctx, "/leave.v1.LeaveTypeService/GetLeaveType", in, out, grpc.Header(&header)); err != nil {
		t.Fatalf("Invoke returned error: %v", err)
	}

	lt := out.GetFields()["leave_type"].GetStructValue().GetFields()
	if lt["code"].GetStringValue() != "annual" || lt["days_allowed"].GetStringValue() != "25" {
		t.Fatalf("unexpected response %v", out)
	}
	if got := header.Get(RequestIDHeader); len(got) != 1 || got[0] != "req-abc" {
		t.Fatalf("expected request id echoed, got %v", got)
	}

	count, err := testutil.GatherAndCount(recorder.Registry(), "grpc_requests_total")
	if err != nil || count != 1 {
		t.Fatalf("expected 1 grpc_requests_total series, got %d (%v)", count, err)
	}
}

func TestServer_MapsDomainErrorsAndRecordsCode(t *testing.T) {
	t.Parallel()

	recorder := metrics.New(nil)
	conn := startBufServer(t, recorder, &stubLeaveTypes{})

	in, _ := structpb.NewStruct(map[string]any{"id": "missing"})
	err := conn.Invoke(context.Background(), "/leave.v1.LeaveTypeService/GetLeaveType", in, new(structpb.Struct))
	if status.Code(err) != codes.NotFound {
		t.Fatalf("expected NotFound, got %v", err)
	}

	expected := `
# HELP grpc_requests_total gRPC requests handled, labeled by method and status code
# TYPE grpc_requests_total counter
grpc_requests_total{code="NotFound",method="/leave.v1.LeaveTypeService/GetLeaveType"} 1
`
	if err := testutil.GatherAndCompare(recorder.Registry(), strings.NewReader(expected), "grpc_requests_total"); err != nil {
		t.Fatalf("unexpected metrics: %v", err)
	}
}

func TestServer_RecoversPanics(t *testing.T) {
	t.Parallel()

	conn := startBufServer(t, metrics.New(nil), &stubLeaveTypes{panicOnList: true})

	in, _ := structpb.NewStruct(map[string]any{})
	err := conn.Invoke(context.Background(), "/leave.v1.LeaveTypeService/ListLeaveTypes", in, new(structpb.Struct))
	if status.Code(err) != codes.Internal {
		t.Fatalf("expected Internal after panic, got %v", err)
	}
}

func TestServer_HealthService(t *testing.T) {
	t.Parallel()

	conn := startBufServer(t, nil, &stubLeaveTypes{})
	client := healthpb.NewHealthClient(conn)

	resp, err := client.Check(context.Background(), &healthpb.HealthCheckRequest{Service: handler.LeaveTypeServiceDesc.ServiceName})
	if err != nil {
		t.Fatalf("health check returned error: %v", err)
	}
	if resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		t.Fatalf("expected SERVING, got %v", resp.GetStatus())
	}

	_, err = client.Check(context.Background(), &healthpb.HealthCheckRequest{Service: handler.LeaveServiceDesc.ServiceName})
	if status.Code(err) != codes.NotFound {
		t.Fatalf("expected unregistered service to be unknown, got %v", err)
	}
}

func TestOpsRouter(t *testing.T) {
	t.Parallel()

	recorder := metrics.New(nil)
	recorder.ObserveLedger("reserve", nil)

	ready := true
	router := NewOpsRouter(recorder, func(context.Context) error {
		if !ready {
			return errors.New("database unreachable")
		}
		return nil
	})

	cases := []struct {
		path string
		code int
		body string
	}{
		{"/healthz", http.StatusOK, "ok"},
		{"/readyz", http.StatusOK, "ready"},
		{"/metrics", http.StatusOK, "leave_ledger_operations_total"},
	}
	for _, tc := range cases {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, tc.path, nil))
		if w.Code != tc.code || !strings.Contains(w.Body.String(), tc.body) {
			t.Fatalf("%s: expected %d containing %q, got %d %q", tc.path, tc.code, tc.body, w.Code, w.Body.String())
		}
	}

	ready = false
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if w.Code != http.StatusServiceUnavailable || !strings.Contains(w.Body.String(), "database unreachable") {
		t.Fatalf("expected 503, got %d %q", w.Code, w.Body.String())
	}
}

func TestOpsServer_StopsOnCancel(t *testing.T) {
	t.Parallel()

	ops := NewOpsServer("127.0.0.1:0", NewOpsRouter(nil, nil), time.Second, slog.New(slog.NewTextHandler(io.Discard, nil)))
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- ops.Run(ctx) }()

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("ops server did not stop")
	}
}
