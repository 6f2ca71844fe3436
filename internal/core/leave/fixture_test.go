package leave_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ogurasousui/leave-ledger/internal/adapters/repository/memory"
	"github.com/ogurasousui/leave-ledger/internal/core/employee"
	"github.com/ogurasousui/leave-ledger/internal/core/leave"
	"github.com/ogurasousui/leave-ledger/internal/core/leavetype"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

type stubClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *stubClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

type recordingMetrics struct {
	mu          sync.Mutex
	ledger      map[string]int
	transitions map[string]int
}

func newRecordingMetrics() *recordingMetrics {
	return &recordingMetrics{ledger: map[string]int{}, transitions: map[string]int{}}
}

func (m *recordingMetrics) ObserveLedger(op string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ledger[op+"/"+leave.ErrorKind(err)]++
}

func (m *recordingMetrics) ObserveTransition(action string, err error, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transitions[action+"/"+leave.ErrorKind(err)]++
}

type failingNotifier struct{}

func (failingNotifier) LeaveSubmitted(context.Context, leave.SubmittedNotice) error {
	return errors.New("smtp unavailable")
}

func (failingNotifier) LeaveDecided(context.Context, leave.DecisionNotice) error {
	return errors.New("smtp unavailable")
}

type purgeRecorder struct {
	mu  sync.Mutex
	ids []string
}

func (p *purgeRecorder) PurgeRequest(_ context.Context, id string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ids = append(p.ids, id)
	return nil
}

type fixture struct {
	t         *testing.T
	ctx       context.Context
	store     *memory.Store
	clock     *stubClock
	requests  *memory.RequestRepository
	balances  *memory.BalanceRepository
	types     *memory.LeaveTypeRepository
	outbox    *memory.Outbox
	metrics   *recordingMetrics
	purger    *purgeRecorder
	ledger    *leave.Ledger
	svc       *leave.Service
	directory *employee.Directory
	manager   *employee.Employee
	staff     *employee.Employee
	annual    *leavetype.LeaveType
}

type fixtureOption func(*fixtureConfig)

type fixtureConfig struct {
	notifier leave.Notifier
}

func withNotifier(n leave.Notifier) fixtureOption {
	return func(c *fixtureConfig) { c.notifier = n }
}

// newFixture は 2025-01-10 を今日とし、上長と部下、年次休暇 (25 日, 承認必須, 繰越上限 5 日) を用意します。
func newFixture(t *testing.T, opts ...fixtureOption) *fixture {
	t.Helper()

	store := memory.NewStore()
	clock := &stubClock{now: time.Date(2025, 1, 10, 9, 0, 0, 0, time.UTC)}
	f := &fixture{
		t:        t,
		ctx:      context.Background(),
		store:    store,
		clock:    clock,
		requests: memory.NewRequestRepository(store),
		balances: memory.NewBalanceRepository(store),
		types:    memory.NewLeaveTypeRepository(store),
		outbox:   memory.NewOutbox(store),
		metrics:  newRecordingMetrics(),
		purger:   &purgeRecorder{},
	}

	cfg := fixtureConfig{notifier: f.outbox}
	for _, opt := range opts {
		opt(&cfg)
	}

	f.directory = employee.NewDirectory(memory.NewEmployeeRepository(store), clock)
	f.ledger = leave.NewLedger(f.balances, f.types, f.directory, clock, store, leave.WithMetrics(f.metrics))
	f.svc = leave.NewService(f.requests, f.ledger, f.types, f.directory, clock, store,
		leave.WithMetrics(f.metrics),
		leave.WithNotifier(cfg.notifier),
		leave.WithAttachmentPurger(f.purger),
	)

	hired := time.Date(2020, 4, 1, 0, 0, 0, 0, time.UTC)
	var err error
	f.manager, err = f.directory.Register(f.ctx, employee.RegisterInput{EmployeeCode: "mgr-1", Name: "Taro Manager", HiredAt: &hired})
	require.NoError(t, err)
	f.staff, err = f.directory.Register(f.ctx, employee.RegisterInput{EmployeeCode: "emp-1", Name: "Hanako Staff", ManagerID: &f.manager.ID, HiredAt: &hired})
	require.NoError(t, err)

	f.annual = f.leaveType(leavetype.LeaveType{
		Code:                "annual",
		Name:                "Annual Leave",
		DaysAllowed:         decimal.NewFromInt(25),
		RequiresApproval:    true,
		CarryForward:        true,
		MaxCarryForwardDays: decPtr("5"),
	})
	return f
}

func (f *fixture) leaveType(lt leavetype.LeaveType) *leavetype.LeaveType {
	f.t.Helper()
	lt.Active = true
	created, err := f.types.Create(f.ctx, &lt)
	require.NoError(f.t, err)
	return created
}

// seedBalance は残高行を直接作成します。RemainingDays は各項目から計算されます。
func (f *fixture) seedBalance(employeeID, leaveTypeID string, year int, allocated, carry, used, pending string) leave.BalanceKey {
	f.t.Helper()
	b := &leave.Balance{
		EmployeeID:       employeeID,
		LeaveTypeID:      leaveTypeID,
		Year:             year,
		AllocatedDays:    decimal.RequireFromString(allocated),
		CarryForwardDays: decimal.RequireFromString(carry),
		UsedDays:         decimal.RequireFromString(used),
		PendingDays:      decimal.RequireFromString(pending),
	}
	b.RemainingDays = b.Available()
	inserted, err := f.balances.InsertIfAbsent(f.ctx, b)
	require.NoError(f.t, err)
	require.True(f.t, inserted)
	return b.Key()
}

func (f *fixture) balance(key leave.BalanceKey) *leave.Balance {
	f.t.Helper()
	b, err := f.ledger.GetBalance(f.ctx, key)
	require.NoError(f.t, err)
	require.True(f.t, b.Consistent(), "balance invariant broken: %+v", b)
	return b
}

func (f *fixture) create(start, end time.Time) (*leave.Request, error) {
	return f.svc.CreateLeaveRequest(f.ctx, leave.CreateRequestInput{
		EmployeeID:  f.staff.ID,
		LeaveTypeID: f.annual.ID,
		StartDate:   start,
		EndDate:     end,
		Reason:      "holiday",
	})
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func intPtr(v int) *int {
	return &v
}

func requireDays(t *testing.T, want string, got decimal.Decimal, msgAndArgs ...any) {
	t.Helper()
	require.Truef(t, dec(want).Equal(got), "want %s days, got %s %v", want, got, msgAndArgs)
}
