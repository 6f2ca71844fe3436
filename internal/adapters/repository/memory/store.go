package memory

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/google/uuid"
	"github.com/ogurasousui/leave-ledger/internal/core/document"
	"github.com/ogurasousui/leave-ledger/internal/core/employee"
	"github.com/ogurasousui/leave-ledger/internal/core/leave"
	"github.com/ogurasousui/leave-ledger/internal/core/leavetype"
)

type txContextKey struct{}

// Store はプロセス内メモリに全集約を保持するストアです。開発とテスト用途です。
// トランザクションはストア全体のロックで直列化され、読み書きトランザクションは失敗時にスナップショットへ戻します。
type Store struct {
	mu    sync.Mutex
	state *state
	newID func() string
}

type state struct {
	employees  map[string]*employee.Employee
	empOrder   []string
	leaveTypes map[string]*leavetype.LeaveType
	ltOrder    []string
	requests   map[string]*leave.Request
	reqOrder   []string
	balances   map[leave.BalanceKey]*leave.Balance
	documents  map[string]*document.Document
	docOrder   []string
	outbox     []Notification
}

// NewStore は空の Store を生成します。
func NewStore() *Store {
	return &Store{state: newState(), newID: uuid.NewString}
}

func newState() *state {
	return &state{
		employees:  make(map[string]*employee.Employee),
		leaveTypes: make(map[string]*leavetype.LeaveType),
		requests:   make(map[string]*leave.Request),
		balances:   make(map[leave.BalanceKey]*leave.Balance),
		documents:  make(map[string]*document.Document),
	}
}

func (st *state) clone() *state {
	c := newState()
	for id, e := range st.employees {
		c.employees[id] = cloneEmployee(e)
	}
	for id, lt := range st.leaveTypes {
		c.leaveTypes[id] = cloneLeaveType(lt)
	}
	for id, r := range st.requests {
		c.requests[id] = r.Clone()
	}
	for k, b := range st.balances {
		c.balances[k] = b.Clone()
	}
	for id, d := range st.documents {
		c.documents[id] = cloneDocument(d, true)
	}
	c.empOrder = append([]string(nil), st.empOrder...)
	c.ltOrder = append([]string(nil), st.ltOrder...)
	c.reqOrder = append([]string(nil), st.reqOrder...)
	c.docOrder = append([]string(nil), st.docOrder...)
	c.outbox = append([]Notification(nil), st.outbox...)
	return c
}

// WithinReadOnly は読み取り専用トランザクションを開始し、fn を実行します。
func (s *Store) WithinReadOnly(ctx context.Context, fn func(context.Context) error) error {
	return s.within(ctx, false, fn)
}

// WithinReadWrite は読み書きトランザクションを開始し、fn を実行します。fn がエラーを返した場合は変更を破棄します。
func (s *Store) WithinReadWrite(ctx context.Context, fn func(context.Context) error) error {
	return s.within(ctx, true, fn)
}

func (s *Store) within(ctx context.Context, write bool, fn func(context.Context) error) error {
	if fn == nil {
		return fmt.Errorf("memory: transaction function is required")
	}
	if s.inTx(ctx) {
		return fn(ctx)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var snapshot *state
	if write {
		snapshot = s.state.clone()
		defer func() {
			if r := recover(); r != nil {
				s.state = snapshot
				panic(r)
			}
		}()
	}

	err := fn(context.WithValue(ctx, txContextKey{}, s))
	if err != nil && write {
		s.state = snapshot
	}
	return err
}

func (s *Store) inTx(ctx context.Context) bool {
	if ctx == nil {
		return false
	}
	owner, ok := ctx.Value(txContextKey{}).(*Store)
	return ok && owner == s
}

// run はトランザクション内であればそのまま、外であればロックを取得して fn を実行します。
func (s *Store) run(ctx context.Context, fn func(st *state) error) error {
	if s.inTx(ctx) {
		return fn(s.state)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.state)
}

func removeID(order []string, id string) []string {
	for i, existing := range order {
		if existing == id {
			return append(order[:i], order[i+1:]...)
		}
	}
	return order
}

func paginate[T any](items []T, limit, offset int) ([]T, string) {
	if offset > len(items) {
		return []T{}, ""
	}
	end := offset + limit
	if limit <= 0 || end > len(items) {
		end = len(items)
	}
	var next string
	if end < len(items) {
		next = strconv.Itoa(end)
	}
	return items[offset:end], next
}
