package leave

import (
	"context"
	"time"
)

// RequestRepository は休暇申請の永続化を行うインターフェースです。
type RequestRepository interface {
	Create(ctx context.Context, req *Request) (*Request, error)
	Update(ctx context.Context, req *Request) (*Request, error)
	Delete(ctx context.Context, id string) error
	FindByID(ctx context.Context, id string) (*Request, error)
	// FindByIDForUpdate は申請を取得し、トランザクション終了まで他の更新をブロックします。
	FindByIDForUpdate(ctx context.Context, id string) (*Request, error)
	// FindOverlapping は PENDING と APPROVED の申請のうち期間が重なるものを返します。
	FindOverlapping(ctx context.Context, q OverlapQuery) ([]*Request, error)
	List(ctx context.Context, filter ListRequestsFilter) ([]*Request, string, error)
	// LockEmployee は社員単位の排他をトランザクション終了まで取得します。
	LockEmployee(ctx context.Context, employeeID string) error
}

// OverlapQuery は重複検索の条件です。ExcludeID が空でなければその申請を除外します。
type OverlapQuery struct {
	EmployeeID string
	StartDate  time.Time
	EndDate    time.Time
	ExcludeID  string
}

// ListRequestsFilter は一覧取得時の検索条件を表します。
type ListRequestsFilter struct {
	EmployeeID string
	Status     *Status
	Year       *int
	Limit      int
	Offset     int
}

// BalanceRepository は残高台帳の永続化を行うインターフェースです。
type BalanceRepository interface {
	// InsertIfAbsent はキーが未登録の場合のみ残高を作成し、作成したかどうかを返します。
	InsertIfAbsent(ctx context.Context, balance *Balance) (bool, error)
	FindByKey(ctx context.Context, key BalanceKey) (*Balance, error)
	FindByKeyForUpdate(ctx context.Context, key BalanceKey) (*Balance, error)
	// Save は balance.Version が保存済みの値と一致する場合のみ更新し、Version を 1 進めた結果を返します。
	// 一致しない場合は ErrConcurrentModification を返します。
	Save(ctx context.Context, balance *Balance) (*Balance, error)
	ListByEmployeeYear(ctx context.Context, employeeID string, year int) ([]*Balance, error)
}
