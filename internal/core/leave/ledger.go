package leave

import (
	"context"
	"errors"
	"log/slog"

	"github.com/ogurasousui/leave-ledger/internal/core/employee"
	"github.com/shopspring/decimal"
)

// Ledger は残高台帳に対する唯一の更新窓口です。
// 各操作はキー単位の読み取り・計算・条件付き保存を 1 トランザクションで行います。
type Ledger struct {
	balances  BalanceRepository
	policies  PolicyReader
	employees EmployeeDirectory
	clock     Clock
	tx        TransactionManager
	metrics   Metrics
	logger    *slog.Logger
}

// NewLedger は Ledger を生成します。
func NewLedger(balances BalanceRepository, policies PolicyReader, employees EmployeeDirectory, clock Clock, tx TransactionManager, opts ...Option) *Ledger {
	if clock == nil {
		clock = realClock{}
	}
	if tx == nil {
		tx = noopTransactionManager{}
	}
	o := buildOptions(opts)
	return &Ledger{
		balances:  balances,
		policies:  policies,
		employees: employees,
		clock:     clock,
		tx:        tx,
		metrics:   o.metrics,
		logger:    o.logger,
	}
}

// InitializeYear は有効な全休暇区分について year 年の残高を未作成の場合のみ作成し、その年の残高一覧を返します。
// 前年に在籍しており繰越可能な区分は、前年残日数を上限付きで繰り越します。
func (l *Ledger) InitializeYear(ctx context.Context, employeeID string, year int) ([]*Balance, error) {
	if blank(employeeID) {
		return nil, invalid("employee_id", "must not be empty")
	}
	if year <= 0 {
		return nil, invalid("year", "must be positive")
	}

	var balances []*Balance
	err := l.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		emp, err := l.lookupEmployee(txCtx, employeeID)
		if err != nil {
			return err
		}

		policies, err := l.policies.ListActive(txCtx)
		if err != nil {
			return err
		}

		now := l.clock.Now()
		for _, policy := range policies {
			carry := decimal.Zero
			if policy.CarryForward && emp.EmployedDuring(year-1) {
				prev, err := l.balances.FindByKey(txCtx, BalanceKey{EmployeeID: employeeID, LeaveTypeID: policy.ID, Year: year - 1})
				switch {
				case errors.Is(err, ErrBalanceNotFound):
				case err != nil:
					return err
				default:
					carry = policy.CarryForwardCap(prev.RemainingDays)
				}
			}

			b := &Balance{
				EmployeeID:       employeeID,
				LeaveTypeID:      policy.ID,
				Year:             year,
				AllocatedDays:    policy.DaysAllowed,
				CarryForwardDays: carry,
				UsedDays:         decimal.Zero,
				PendingDays:      decimal.Zero,
				CreatedAt:        now,
				UpdatedAt:        now,
			}
			b.recompute()

			inserted, err := l.balances.InsertIfAbsent(txCtx, b)
			if err != nil {
				return err
			}
			if inserted {
				l.logger.DebugContext(txCtx, "leave balance initialized",
					"employee_id", employeeID,
					"leave_type_id", policy.ID,
					"year", year,
					"carry_forward_days", carry.String(),
				)
			}
		}

		result, err := l.balances.ListByEmployeeYear(txCtx, employeeID, year)
		if err != nil {
			return err
		}
		balances = result
		return nil
	})
	l.metrics.ObserveLedger(string(LedgerInitializeYear), err)
	if err != nil {
		return nil, err
	}
	return balances, nil
}

// HasSufficientBalance は残日数が days 以上かどうかを返します。残高が未作成の場合は false です。
func (l *Ledger) HasSufficientBalance(ctx context.Context, key BalanceKey, days decimal.Decimal) (bool, error) {
	var ok bool
	err := l.tx.WithinReadOnly(ctx, func(txCtx context.Context) error {
		b, err := l.balances.FindByKey(txCtx, key)
		if errors.Is(err, ErrBalanceNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		ok = b.Available().GreaterThanOrEqual(days)
		return nil
	})
	if err != nil {
		return false, err
	}
	return ok, nil
}

// Reserve は days を申請中日数に加算します。残日数が負になる場合は InsufficientBalanceError を返します。
func (l *Ledger) Reserve(ctx context.Context, key BalanceKey, days decimal.Decimal) (*Balance, error) {
	return l.mutate(ctx, LedgerReserve, key, days, func(b *Balance) error {
		if available := b.Available(); available.LessThan(days) {
			return &InsufficientBalanceError{Key: key, Available: available, Requested: days}
		}
		b.PendingDays = b.PendingDays.Add(days)
		return nil
	})
}

// Commit は days を申請中日数から使用済み日数へ移します。
func (l *Ledger) Commit(ctx context.Context, key BalanceKey, days decimal.Decimal) (*Balance, error) {
	return l.mutate(ctx, LedgerCommit, key, days, func(b *Balance) error {
		if b.PendingDays.LessThan(days) {
			return &LedgerStateError{Key: key, Operation: LedgerCommit, Bucket: "pending", Have: b.PendingDays, Requested: days}
		}
		b.PendingDays = b.PendingDays.Sub(days)
		b.UsedDays = b.UsedDays.Add(days)
		return nil
	})
}

// Release は days を申請中日数から差し戻します。
func (l *Ledger) Release(ctx context.Context, key BalanceKey, days decimal.Decimal) (*Balance, error) {
	return l.mutate(ctx, LedgerRelease, key, days, func(b *Balance) error {
		if b.PendingDays.LessThan(days) {
			return &LedgerStateError{Key: key, Operation: LedgerRelease, Bucket: "pending", Have: b.PendingDays, Requested: days}
		}
		b.PendingDays = b.PendingDays.Sub(days)
		return nil
	})
}

// RestoreUsed は承認済み申請の取消時に days を使用済み日数から戻し入れます。
func (l *Ledger) RestoreUsed(ctx context.Context, key BalanceKey, days decimal.Decimal) (*Balance, error) {
	return l.mutate(ctx, LedgerRestoreUsed, key, days, func(b *Balance) error {
		if b.UsedDays.LessThan(days) {
			return &LedgerStateError{Key: key, Operation: LedgerRestoreUsed, Bucket: "used", Have: b.UsedDays, Requested: days}
		}
		b.UsedDays = b.UsedDays.Sub(days)
		return nil
	})
}

// GetBalance はキーで残高を取得します。
func (l *Ledger) GetBalance(ctx context.Context, key BalanceKey) (*Balance, error) {
	var balance *Balance
	if err := l.tx.WithinReadOnly(ctx, func(txCtx context.Context) error {
		b, err := l.balances.FindByKey(txCtx, key)
		if err != nil {
			return err
		}
		balance = b
		return nil
	}); err != nil {
		return nil, err
	}
	return balance, nil
}

// ListBalances は社員の year 年の残高一覧を返します。
func (l *Ledger) ListBalances(ctx context.Context, employeeID string, year int) ([]*Balance, error) {
	if blank(employeeID) {
		return nil, invalid("employee_id", "must not be empty")
	}

	var balances []*Balance
	if err := l.tx.WithinReadOnly(ctx, func(txCtx context.Context) error {
		result, err := l.balances.ListByEmployeeYear(txCtx, employeeID, year)
		if err != nil {
			return err
		}
		balances = result
		return nil
	}); err != nil {
		return nil, err
	}
	return balances, nil
}

func (l *Ledger) mutate(ctx context.Context, op LedgerOperation, key BalanceKey, days decimal.Decimal, apply func(*Balance) error) (*Balance, error) {
	if !days.IsPositive() {
		err := invalid("days", "must be positive")
		l.metrics.ObserveLedger(string(op), err)
		return nil, err
	}

	var saved *Balance
	err := l.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		b, err := l.balances.FindByKeyForUpdate(txCtx, key)
		if err != nil {
			return err
		}

		if err := apply(b); err != nil {
			return err
		}
		b.recompute()
		b.UpdatedAt = l.clock.Now()

		result, err := l.balances.Save(txCtx, b)
		if err != nil {
			return err
		}
		saved = result
		return nil
	})
	l.metrics.ObserveLedger(string(op), err)
	if err != nil {
		return nil, err
	}
	return saved, nil
}

func (l *Ledger) lookupEmployee(ctx context.Context, employeeID string) (*employee.Employee, error) {
	if l.employees == nil {
		return &employee.Employee{ID: employeeID, Status: employee.StatusActive}, nil
	}
	return l.employees.Lookup(ctx, employeeID)
}
