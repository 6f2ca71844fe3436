package memory

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ogurasousui/leave-ledger/internal/core/document"
	"github.com/ogurasousui/leave-ledger/internal/core/employee"
	"github.com/ogurasousui/leave-ledger/internal/core/leave"
	"github.com/ogurasousui/leave-ledger/internal/core/leavetype"
	"github.com/shopspring/decimal"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestStore_WithinReadWrite_RollsBackOnError(t *testing.T) {
	t.Parallel()

	store := NewStore()
	requests := NewRequestRepository(store)
	boom := errors.New("boom")

	err := store.WithinReadWrite(context.Background(), func(ctx context.Context) error {
		if _, err := requests.Create(ctx, &leave.Request{EmployeeID: "emp-1", Status: leave.StatusPending}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	page, _, err := requests.List(context.Background(), leave.ListRequestsFilter{})
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if len(page) != 0 {
		t.Fatalf("expected rollback to discard request, got %d", len(page))
	}
}

func TestStore_WithinReadWrite_RollsBackOnPanic(t *testing.T) {
	t.Parallel()

	store := NewStore()
	requests := NewRequestRepository(store)

	func() {
		defer func() {
			if r := recover(); r != "boom" {
				t.Fatalf("expected panic to propagate, got %v", r)
			}
		}()
		_ = store.WithinReadWrite(context.Background(), func(ctx context.Context) error {
			if _, err := requests.Create(ctx, &leave.Request{EmployeeID: "emp-1", Status: leave.StatusPending}); err != nil {
				return err
			}
			panic("boom")
		})
	}()

	page, _, err := requests.List(context.Background(), leave.ListRequestsFilter{})
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if len(page) != 0 {
		t.Fatalf("expected rollback to discard request, got %d", len(page))
	}
}

func TestStore_NestedTransactionJoinsOuter(t *testing.T) {
	t.Parallel()

	store := NewStore()
	requests := NewRequestRepository(store)

	err := store.WithinReadWrite(context.Background(), func(ctx context.Context) error {
		return store.WithinReadOnly(ctx, func(inner context.Context) error {
			_, err := requests.Create(inner, &leave.Request{ID: "req-1", EmployeeID: "emp-1"})
			return err
		})
	})
	if err != nil {
		t.Fatalf("nested transaction returned error: %v", err)
	}
	if _, err := requests.FindByID(context.Background(), "req-1"); err != nil {
		t.Fatalf("expected request to be committed, got %v", err)
	}
}

func TestBalanceRepository_SaveDetectsStaleVersion(t *testing.T) {
	t.Parallel()

	store := NewStore()
	balances := NewBalanceRepository(store)
	ctx := context.Background()
	key := leave.BalanceKey{EmployeeID: "emp-1", LeaveTypeID: "lt-1", Year: 2025}

	inserted, err := balances.InsertIfAbsent(ctx, &leave.Balance{EmployeeID: key.EmployeeID, LeaveTypeID: key.LeaveTypeID, Year: key.Year, AllocatedDays: decimal.NewFromInt(10)})
	if err != nil || !inserted {
		t.Fatalf("InsertIfAbsent = %v, %v", inserted, err)
	}
	again, err := balances.InsertIfAbsent(ctx, &leave.Balance{EmployeeID: key.EmployeeID, LeaveTypeID: key.LeaveTypeID, Year: key.Year, AllocatedDays: decimal.NewFromInt(99)})
	if err != nil || again {
		t.Fatalf("expected second insert to be ignored, got %v, %v", again, err)
	}

	first, _ := balances.FindByKey(ctx, key)
	second, _ := balances.FindByKey(ctx, key)

	first.PendingDays = decimal.NewFromInt(1)
	saved, err := balances.Save(ctx, first)
	if err != nil {
		t.Fatalf("Save returned error: %v", err)
	}
	if saved.Version != first.Version+1 {
		t.Fatalf("expected version to advance, got %d", saved.Version)
	}
	if !saved.AllocatedDays.Equal(decimal.NewFromInt(10)) {
		t.Fatalf("expected original allocation, got %s", saved.AllocatedDays)
	}

	second.PendingDays = decimal.NewFromInt(2)
	if _, err := balances.Save(ctx, second); !errors.Is(err, leave.ErrConcurrentModification) {
		t.Fatalf("expected ErrConcurrentModification, got %v", err)
	}
}

func TestRequestRepository_FindOverlapping(t *testing.T) {
	t.Parallel()

	store := NewStore()
	requests := NewRequestRepository(store)
	ctx := context.Background()

	fixtures := []*leave.Request{
		{ID: "pending", EmployeeID: "emp-1", StartDate: date(2025, 6, 1), EndDate: date(2025, 6, 5), Status: leave.StatusPending},
		{ID: "rejected", EmployeeID: "emp-1", StartDate: date(2025, 6, 4), EndDate: date(2025, 6, 4), Status: leave.StatusRejected},
		{ID: "other", EmployeeID: "emp-2", StartDate: date(2025, 6, 4), EndDate: date(2025, 6, 4), Status: leave.StatusApproved},
		{ID: "approved", EmployeeID: "emp-1", StartDate: date(2025, 6, 10), EndDate: date(2025, 6, 12), Status: leave.StatusApproved},
	}
	for _, f := range fixtures {
		if _, err := requests.Create(ctx, f); err != nil {
			t.Fatalf("Create returned error: %v", err)
		}
	}

	found, err := requests.FindOverlapping(ctx, leave.OverlapQuery{EmployeeID: "emp-1", StartDate: date(2025, 6, 5), EndDate: date(2025, 6, 10)})
	if err != nil {
		t.Fatalf("FindOverlapping returned error: %v", err)
	}
	if len(found) != 2 || found[0].ID != "pending" || found[1].ID != "approved" {
		t.Fatalf("unexpected overlaps: %+v", found)
	}

	found, _ = requests.FindOverlapping(ctx, leave.OverlapQuery{EmployeeID: "emp-1", StartDate: date(2025, 6, 1), EndDate: date(2025, 6, 1), ExcludeID: "pending"})
	if len(found) != 0 {
		t.Fatalf("expected excluded request to be skipped, got %+v", found)
	}
}

func TestRequestRepository_DeleteCascadesDocuments(t *testing.T) {
	t.Parallel()

	store := NewStore()
	requests := NewRequestRepository(store)
	docs := NewDocumentRepository(store)
	ctx := context.Background()

	if _, err := docs.Create(ctx, &document.Document{LeaveRequestID: "missing"}); !errors.Is(err, leave.ErrRequestNotFound) {
		t.Fatalf("expected ErrRequestNotFound for orphan document, got %v", err)
	}

	req, _ := requests.Create(ctx, &leave.Request{EmployeeID: "emp-1", Status: leave.StatusPending})
	doc, err := docs.Create(ctx, &document.Document{LeaveRequestID: req.ID, FileName: "a.pdf", Content: []byte("x")})
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if doc.Content != nil {
		t.Fatal("expected Create to return metadata only")
	}

	if err := requests.Delete(ctx, req.ID); err != nil {
		t.Fatalf("Delete returned error: %v", err)
	}
	if _, err := docs.FindByID(ctx, doc.ID); !errors.Is(err, document.ErrDocumentNotFound) {
		t.Fatalf("expected document to be removed with request, got %v", err)
	}
}

func TestLeaveTypeRepository_DeleteInUse(t *testing.T) {
	t.Parallel()

	store := NewStore()
	types := NewLeaveTypeRepository(store)
	balances := NewBalanceRepository(store)
	ctx := context.Background()

	lt, err := types.Create(ctx, &leavetype.LeaveType{Code: "annual", Name: "Annual", Active: true})
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if _, err := balances.InsertIfAbsent(ctx, &leave.Balance{EmployeeID: "emp-1", LeaveTypeID: lt.ID, Year: 2025}); err != nil {
		t.Fatalf("InsertIfAbsent returned error: %v", err)
	}

	if err := types.Delete(ctx, lt.ID); !errors.Is(err, leavetype.ErrLeaveTypeInUse) {
		t.Fatalf("expected ErrLeaveTypeInUse, got %v", err)
	}
}

func TestOutbox_RecordsNotifications(t *testing.T) {
	t.Parallel()

	store := NewStore()
	outbox := NewOutbox(store)
	ctx := context.Background()

	if err := outbox.LeaveSubmitted(ctx, leave.SubmittedNotice{RequestID: "req-1", EmployeeName: "Hanako"}); err != nil {
		t.Fatalf("LeaveSubmitted returned error: %v", err)
	}
	if err := outbox.LeaveSubmitted(ctx, leave.SubmittedNotice{RequestID: "req-1", ApproverID: "mgr-1", EmployeeName: "Hanako"}); err != nil {
		t.Fatalf("LeaveSubmitted returned error: %v", err)
	}
	if err := outbox.LeaveDecided(ctx, leave.DecisionNotice{RequestID: "req-1", EmployeeID: "emp-1", DeciderName: "Taro", Approved: true}); err != nil {
		t.Fatalf("LeaveDecided returned error: %v", err)
	}

	got := outbox.Notifications(ctx)
	if len(got) != 2 {
		t.Fatalf("expected 2 notifications (no approver skipped), got %d", len(got))
	}
	if got[0].RecipientID != "mgr-1" || got[0].Type != NotificationLeaveSubmitted {
		t.Fatalf("unexpected first notification: %+v", got[0])
	}
	if got[1].RecipientID != "emp-1" || got[1].Title != "Leave request approved" {
		t.Fatalf("unexpected decision notification: %+v", got[1])
	}
}

func TestSeed_Apply(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "seed.yaml")
	content := `employees:
  - code: mgr-1
    name: Taro Manager
    email: taro@example.com
    hired_at: "2020-04-01"
  - code: emp-1
    name: Hanako Staff
    manager_code: mgr-1
    hired_at: "2024-10-01"
leave_types:
  - code: annual
    name: Annual Leave
    days_allowed: "25"
    requires_approval: true
    carry_forward: true
    max_carry_forward_days: "5"
    minimum_notice_days: 3
  - code: sick
    name: Sick Leave
    days_allowed: "10.5"
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write seed: %v", err)
	}

	seed, err := LoadSeedFile(path)
	if err != nil {
		t.Fatalf("LoadSeedFile returned error: %v", err)
	}

	store := NewStore()
	empRepo := NewEmployeeRepository(store)
	typeRepo := NewLeaveTypeRepository(store)
	directory := employee.NewDirectory(empRepo, nil)
	types := leavetype.NewService(typeRepo, nil, store)

	if err := seed.Apply(context.Background(), directory, types); err != nil {
		t.Fatalf("Apply returned error: %v", err)
	}

	mgr, err := empRepo.FindByCode(context.Background(), "mgr-1")
	if err != nil {
		t.Fatalf("manager not seeded: %v", err)
	}
	staff, err := empRepo.FindByCode(context.Background(), "emp-1")
	if err != nil {
		t.Fatalf("employee not seeded: %v", err)
	}
	if staff.ApproverID() != mgr.ID {
		t.Fatalf("expected manager reference %s, got %q", mgr.ID, staff.ApproverID())
	}

	annual, err := typeRepo.FindByCode(context.Background(), "annual")
	if err != nil {
		t.Fatalf("leave type not seeded: %v", err)
	}
	if annual.MaxCarryForwardDays == nil || !annual.MaxCarryForwardDays.Equal(decimal.NewFromInt(5)) {
		t.Fatalf("unexpected carry forward cap: %v", annual.MaxCarryForwardDays)
	}
	sick, _ := typeRepo.FindByCode(context.Background(), "sick")
	if !sick.DaysAllowed.Equal(decimal.RequireFromString("10.5")) {
		t.Fatalf("unexpected sick allowance: %s", sick.DaysAllowed)
	}

	broken := &Seed{Employees: []SeedEmployee{{Code: "x", Name: "X", ManagerCode: "nobody"}}}
	if err := broken.Apply(context.Background(), directory, types); err == nil {
		t.Fatal("expected unknown manager_code to fail")
	}
}
