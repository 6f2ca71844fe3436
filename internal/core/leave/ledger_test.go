package leave_test

import (
	"testing"
	"time"

	"github.com/ogurasousui/leave-ledger/internal/core/employee"
	"github.com/ogurasousui/leave-ledger/internal/core/leave"
	"github.com/ogurasousui/leave-ledger/internal/core/leavetype"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLedger_InitializeYear_CarryForwardCapped(t *testing.T) {
	// GIVEN: 2024 remaining=8, carry forward enabled with cap 5
	// WHEN: 2025 is initialised
	// THEN: allocated=25, carryForward=5, remaining=30
	t.Parallel()

	f := newFixture(t)
	f.seedBalance(f.staff.ID, f.annual.ID, 2024, "25", "0", "17", "0")

	balances, err := f.ledger.InitializeYear(f.ctx, f.staff.ID, 2025)
	require.NoError(t, err)
	require.Len(t, balances, 1)

	b := f.balance(leave.BalanceKey{EmployeeID: f.staff.ID, LeaveTypeID: f.annual.ID, Year: 2025})
	requireDays(t, "25", b.AllocatedDays)
	requireDays(t, "5", b.CarryForwardDays)
	requireDays(t, "0", b.UsedDays)
	requireDays(t, "0", b.PendingDays)
	requireDays(t, "30", b.RemainingDays)
}

func TestLedger_InitializeYear_CarryForwardRules(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	uncapped := f.leaveType(leavetype.LeaveType{Code: "comp", Name: "Compensatory", DaysAllowed: decimal.NewFromInt(5), CarryForward: true})
	noCarry := f.leaveType(leavetype.LeaveType{Code: "sick", Name: "Sick", DaysAllowed: decimal.NewFromInt(10)})
	f.seedBalance(f.staff.ID, uncapped.ID, 2024, "5", "2", "0", "0")
	f.seedBalance(f.staff.ID, noCarry.ID, 2024, "10", "0", "1", "0")

	balances, err := f.ledger.InitializeYear(f.ctx, f.staff.ID, 2025)
	require.NoError(t, err)
	require.Len(t, balances, 3)

	byType := make(map[string]*leave.Balance, len(balances))
	for _, b := range balances {
		require.True(t, b.Consistent())
		byType[b.LeaveTypeID] = b
	}

	requireDays(t, "0", byType[f.annual.ID].CarryForwardDays, "missing previous year carries nothing")
	requireDays(t, "7", byType[uncapped.ID].CarryForwardDays, "no cap carries the full remainder")
	requireDays(t, "0", byType[noCarry.ID].CarryForwardDays, "carry forward disabled")
}

func TestLedger_InitializeYear_NoCarryWhenNotEmployedPreviousYear(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	hired := time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC)
	newcomer, err := f.directory.Register(f.ctx, employee.RegisterInput{EmployeeCode: "emp-2", Name: "New Hire", HiredAt: &hired})
	require.NoError(t, err)
	f.seedBalance(newcomer.ID, f.annual.ID, 2024, "25", "0", "0", "0")

	_, err = f.ledger.InitializeYear(f.ctx, newcomer.ID, 2025)
	require.NoError(t, err)

	b := f.balance(leave.BalanceKey{EmployeeID: newcomer.ID, LeaveTypeID: f.annual.ID, Year: 2025})
	requireDays(t, "0", b.CarryForwardDays)
	requireDays(t, "25", b.RemainingDays)
}

func TestLedger_InitializeYear_Idempotent(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	key := leave.BalanceKey{EmployeeID: f.staff.ID, LeaveTypeID: f.annual.ID, Year: 2025}

	_, err := f.ledger.InitializeYear(f.ctx, f.staff.ID, 2025)
	require.NoError(t, err)
	_, err = f.ledger.Reserve(f.ctx, key, dec("3"))
	require.NoError(t, err)

	again, err := f.ledger.InitializeYear(f.ctx, f.staff.ID, 2025)
	require.NoError(t, err)
	require.Len(t, again, 1)

	b := f.balance(key)
	requireDays(t, "3", b.PendingDays, "existing balance must not be reset")
	requireDays(t, "22", b.RemainingDays)
}

func TestLedger_RoundTripLaws(t *testing.T) {
	// Reserve then Release, and Commit then RestoreUsed, restore used/pending/remaining exactly.
	t.Parallel()

	f := newFixture(t)
	key := f.seedBalance(f.staff.ID, f.annual.ID, 2025, "25", "2.5", "4", "1.5")
	before := f.balance(key)

	_, err := f.ledger.Reserve(f.ctx, key, dec("3.5"))
	require.NoError(t, err)
	_, err = f.ledger.Release(f.ctx, key, dec("3.5"))
	require.NoError(t, err)
	assertSameAmounts(t, before, f.balance(key))

	_, err = f.ledger.Reserve(f.ctx, key, dec("2"))
	require.NoError(t, err)
	_, err = f.ledger.Commit(f.ctx, key, dec("2"))
	require.NoError(t, err)
	committed := f.balance(key)
	requireDays(t, "6", committed.UsedDays)
	requireDays(t, "1.5", committed.PendingDays)

	_, err = f.ledger.RestoreUsed(f.ctx, key, dec("2"))
	require.NoError(t, err)
	assertSameAmounts(t, before, f.balance(key))
}

func TestLedger_ReserveBoundary(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	key := f.seedBalance(f.staff.ID, f.annual.ID, 2025, "10", "0", "0", "0")

	_, err := f.ledger.Reserve(f.ctx, key, dec("10.5"))
	var insufficient *leave.InsufficientBalanceError
	require.ErrorAs(t, err, &insufficient)
	assert.Equal(t, key, insufficient.Key)

	ok, err := f.ledger.HasSufficientBalance(f.ctx, key, dec("10"))
	require.NoError(t, err)
	assert.True(t, ok)

	b, err := f.ledger.Reserve(f.ctx, key, dec("10"))
	require.NoError(t, err, "reserving exactly the remaining days succeeds")
	requireDays(t, "0", b.RemainingDays)

	ok, err = f.ledger.HasSufficientBalance(f.ctx, key, dec("0.5"))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLedger_StrictLedgerState(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	key := f.seedBalance(f.staff.ID, f.annual.ID, 2025, "25", "0", "1", "2")

	_, err := f.ledger.Commit(f.ctx, key, dec("3"))
	var state *leave.LedgerStateError
	require.ErrorAs(t, err, &state)
	assert.Equal(t, leave.LedgerCommit, state.Operation)
	assert.Equal(t, "pending", state.Bucket)

	_, err = f.ledger.Release(f.ctx, key, dec("2.5"))
	require.ErrorIs(t, err, leave.ErrInvalidLedgerState)

	_, err = f.ledger.RestoreUsed(f.ctx, key, dec("1.5"))
	require.ErrorAs(t, err, &state)
	assert.Equal(t, "used", state.Bucket)

	b := f.balance(key)
	requireDays(t, "1", b.UsedDays)
	requireDays(t, "2", b.PendingDays)
	assert.Equal(t, 2, f.metrics.ledger["commit/ledger_state"]+f.metrics.ledger["release/ledger_state"])
}

func TestLedger_RejectsNonPositiveDaysAndMissingBalance(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	key := f.seedBalance(f.staff.ID, f.annual.ID, 2025, "25", "0", "0", "0")

	for _, days := range []string{"0", "-1"} {
		_, err := f.ledger.Reserve(f.ctx, key, dec(days))
		assert.ErrorIsf(t, err, leave.ErrValidation, "days=%s", days)
	}

	missing := leave.BalanceKey{EmployeeID: f.staff.ID, LeaveTypeID: f.annual.ID, Year: 2030}
	_, err := f.ledger.Reserve(f.ctx, missing, dec("1"))
	require.ErrorIs(t, err, leave.ErrBalanceNotFound)
	assert.True(t, leave.IsNotFound(err))

	ok, err := f.ledger.HasSufficientBalance(f.ctx, missing, dec("1"))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLedger_ListBalances(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.seedBalance(f.staff.ID, f.annual.ID, 2025, "25", "0", "0", "0")
	f.seedBalance(f.staff.ID, f.annual.ID, 2024, "25", "0", "0", "0")
	f.seedBalance(f.manager.ID, f.annual.ID, 2025, "25", "0", "0", "0")

	balances, err := f.svc.ListBalances(f.ctx, f.staff.ID, 2025)
	require.NoError(t, err)
	require.Len(t, balances, 1)
	assert.Equal(t, 2025, balances[0].Year)

	_, err = f.svc.ListBalances(f.ctx, " ", 2025)
	require.ErrorIs(t, err, leave.ErrValidation)
}

func assertSameAmounts(t *testing.T, want, got *leave.Balance) {
	t.Helper()
	requireDays(t, want.AllocatedDays.String(), got.AllocatedDays, "allocated")
	requireDays(t, want.CarryForwardDays.String(), got.CarryForwardDays, "carry forward")
	requireDays(t, want.UsedDays.String(), got.UsedDays, "used")
	requireDays(t, want.PendingDays.String(), got.PendingDays, "pending")
	requireDays(t, want.RemainingDays.String(), got.RemainingDays, "remaining")
}
