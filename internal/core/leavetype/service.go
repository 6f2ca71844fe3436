package leavetype

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Clock は現在時刻を提供します。
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time {
	return time.Now().UTC()
}

// TransactionManager はトランザクション制御の抽象化です。
type TransactionManager interface {
	WithinReadOnly(ctx context.Context, fn func(context.Context) error) error
	WithinReadWrite(ctx context.Context, fn func(context.Context) error) error
}

type noopTransactionManager struct{}

func (noopTransactionManager) WithinReadOnly(ctx context.Context, fn func(context.Context) error) error {
	if fn == nil {
		return nil
	}
	return fn(ctx)
}

func (noopTransactionManager) WithinReadWrite(ctx context.Context, fn func(context.Context) error) error {
	if fn == nil {
		return nil
	}
	return fn(ctx)
}

const (
	defaultListPageSize = 50
	maxListPageSize     = 200
)

var (
	codePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]*$`)
	halfDay     = decimal.NewFromFloat(0.5)
)

// Service は休暇区分の管理ユースケースをまとめます。
type Service struct {
	repo  Repository
	clock Clock
	tx    TransactionManager
}

// UseCase は休暇区分ユースケースの公開インターフェースです。
type UseCase interface {
	CreateLeaveType(ctx context.Context, in CreateLeaveTypeInput) (*LeaveType, error)
	GetLeaveType(ctx context.Context, in GetLeaveTypeInput) (*LeaveType, error)
	ListLeaveTypes(ctx context.Context, in ListLeaveTypesInput) (*ListLeaveTypesResult, error)
	UpdateLeaveType(ctx context.Context, in UpdateLeaveTypeInput) (*LeaveType, error)
	DeleteLeaveType(ctx context.Context, in DeleteLeaveTypeInput) error
}

// NewService は Service を生成します。
func NewService(repo Repository, clock Clock, tx TransactionManager) *Service {
	if clock == nil {
		clock = realClock{}
	}
	if tx == nil {
		tx = noopTransactionManager{}
	}
	return &Service{repo: repo, clock: clock, tx: tx}
}

// CreateLeaveTypeInput は休暇区分作成時の入力です。
type CreateLeaveTypeInput struct {
	Name                   string
	Code                   string
	DaysAllowed            decimal.Decimal
	RequiresApproval       bool
	CarryForward           bool
	MaxCarryForwardDays    *decimal.Decimal
	MinimumNoticeDays      *int
	MaximumConsecutiveDays *int
}

// UpdateLeaveTypeInput は休暇区分更新時の入力です。nil のフィールドは変更しません。
type UpdateLeaveTypeInput struct {
	ID                        string
	Name                      *string
	Code                      *string
	DaysAllowed               *decimal.Decimal
	RequiresApproval          *bool
	CarryForward              *bool
	MaxCarryForwardDays       *decimal.Decimal
	MaxCarryForwardDaysSet    bool
	MinimumNoticeDays         *int
	MinimumNoticeDaysSet      bool
	MaximumConsecutiveDays    *int
	MaximumConsecutiveDaysSet bool
	Active                    *bool
}

// DeleteLeaveTypeInput は休暇区分削除時の入力です。
type DeleteLeaveTypeInput struct {
	ID string
}

// GetLeaveTypeInput は休暇区分取得時の入力です。
type GetLeaveTypeInput struct {
	ID string
}

// ListLeaveTypesInput は一覧取得時の入力です。
type ListLeaveTypesInput struct {
	PageSize  int
	PageToken string
	Active    *bool
}

// ListLeaveTypesResult は一覧取得結果を表します。
type ListLeaveTypesResult struct {
	LeaveTypes    []*LeaveType
	NextPageToken string
}

// CreateLeaveType は新しい休暇区分を作成します。
func (s *Service) CreateLeaveType(ctx context.Context, in CreateLeaveTypeInput) (*LeaveType, error) {
	name, err := normalizeName(in.Name)
	if err != nil {
		return nil, err
	}

	code, err := normalizeCode(in.Code)
	if err != nil {
		return nil, err
	}

	lt := &LeaveType{
		Name:                   name,
		Code:                   code,
		DaysAllowed:            in.DaysAllowed,
		RequiresApproval:       in.RequiresApproval,
		CarryForward:           in.CarryForward,
		MaxCarryForwardDays:    cloneDecimal(in.MaxCarryForwardDays),
		MinimumNoticeDays:      cloneInt(in.MinimumNoticeDays),
		MaximumConsecutiveDays: cloneInt(in.MaximumConsecutiveDays),
		Active:                 true,
	}
	if err := validatePolicy(lt); err != nil {
		return nil, err
	}

	var created *LeaveType
	if err := s.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		if err := s.ensureCodeNotExists(txCtx, code); err != nil {
			return err
		}

		now := s.clock.Now()
		lt.CreatedAt = now
		lt.UpdatedAt = now

		result, err := s.repo.Create(txCtx, lt)
		if err != nil {
			return err
		}

		created = result
		return nil
	}); err != nil {
		return nil, err
	}

	return created, nil
}

// UpdateLeaveType は休暇区分を更新します。
func (s *Service) UpdateLeaveType(ctx context.Context, in UpdateLeaveTypeInput) (*LeaveType, error) {
	if strings.TrimSpace(in.ID) == "" {
		return nil, fmt.Errorf("id: %w", ErrInvalidID)
	}

	var updated *LeaveType
	if err := s.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		existing, err := s.repo.FindByID(txCtx, in.ID)
		if err != nil {
			return err
		}

		if in.Name != nil {
			name, err := normalizeName(*in.Name)
			if err != nil {
				return err
			}
			existing.Name = name
		}

		if in.Code != nil {
			code, err := normalizeCode(*in.Code)
			if err != nil {
				return err
			}
			if code != existing.Code {
				if err := s.ensureCodeNotExists(txCtx, code); err != nil {
					return err
				}
				existing.Code = code
			}
		}

		if in.DaysAllowed != nil {
			existing.DaysAllowed = *in.DaysAllowed
		}
		if in.RequiresApproval != nil {
			existing.RequiresApproval = *in.RequiresApproval
		}
		if in.CarryForward != nil {
			existing.CarryForward = *in.CarryForward
		}
		if in.MaxCarryForwardDaysSet {
			existing.MaxCarryForwardDays = cloneDecimal(in.MaxCarryForwardDays)
		}
		if in.MinimumNoticeDaysSet {
			existing.MinimumNoticeDays = cloneInt(in.MinimumNoticeDays)
		}
		if in.MaximumConsecutiveDaysSet {
			existing.MaximumConsecutiveDays = cloneInt(in.MaximumConsecutiveDays)
		}
		if in.Active != nil {
			existing.Active = *in.Active
		}

		if err := validatePolicy(existing); err != nil {
			return err
		}

		existing.UpdatedAt = s.clock.Now()

		result, err := s.repo.Update(txCtx, existing)
		if err != nil {
			return err
		}

		updated = result
		return nil
	}); err != nil {
		return nil, err
	}

	return updated, nil
}

// DeleteLeaveType は休暇区分を削除します。参照中の場合は ErrLeaveTypeInUse を返します。
func (s *Service) DeleteLeaveType(ctx context.Context, in DeleteLeaveTypeInput) error {
	if strings.TrimSpace(in.ID) == "" {
		return fmt.Errorf("id: %w", ErrInvalidID)
	}

	return s.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		return s.repo.Delete(txCtx, in.ID)
	})
}

// GetLeaveType は ID で休暇区分を取得します。
func (s *Service) GetLeaveType(ctx context.Context, in GetLeaveTypeInput) (*LeaveType, error) {
	if strings.TrimSpace(in.ID) == "" {
		return nil, fmt.Errorf("id: %w", ErrInvalidID)
	}

	var lt *LeaveType
	if err := s.tx.WithinReadOnly(ctx, func(txCtx context.Context) error {
		result, err := s.repo.FindByID(txCtx, in.ID)
		if err != nil {
			return err
		}
		lt = result
		return nil
	}); err != nil {
		return nil, err
	}

	return lt, nil
}

// ListLeaveTypes は休暇区分の一覧を取得します。
func (s *Service) ListLeaveTypes(ctx context.Context, in ListLeaveTypesInput) (*ListLeaveTypesResult, error) {
	limit, err := normalizePageSize(in.PageSize)
	if err != nil {
		return nil, err
	}

	offset, err := parsePageToken(in.PageToken)
	if err != nil {
		return nil, err
	}

	var (
		leaveTypes []*LeaveType
		nextToken  string
	)

	if err := s.tx.WithinReadOnly(ctx, func(txCtx context.Context) error {
		result, token, err := s.repo.List(txCtx, ListLeaveTypesFilter{
			Limit:  limit,
			Offset: offset,
			Active: in.Active,
		})
		if err != nil {
			return err
		}
		leaveTypes = result
		nextToken = token
		return nil
	}); err != nil {
		return nil, err
	}

	return &ListLeaveTypesResult{
		LeaveTypes:    leaveTypes,
		NextPageToken: nextToken,
	}, nil
}

func (s *Service) ensureCodeNotExists(ctx context.Context, code string) error {
	lt, err := s.repo.FindByCode(ctx, code)
	if err != nil && !errors.Is(err, ErrLeaveTypeNotFound) {
		return err
	}
	if lt != nil {
		return ErrCodeAlreadyExists
	}
	return nil
}

func validatePolicy(lt *LeaveType) error {
	if lt.DaysAllowed.IsNegative() || !isHalfDayMultiple(lt.DaysAllowed) {
		return ErrInvalidDaysAllowed
	}
	if lt.MaxCarryForwardDays != nil {
		if lt.MaxCarryForwardDays.IsNegative() || !isHalfDayMultiple(*lt.MaxCarryForwardDays) {
			return ErrInvalidCarryForward
		}
	}
	if lt.MinimumNoticeDays != nil && *lt.MinimumNoticeDays < 0 {
		return ErrInvalidNoticeDays
	}
	if lt.MaximumConsecutiveDays != nil && *lt.MaximumConsecutiveDays <= 0 {
		return ErrInvalidConsecutiveDays
	}
	return nil
}

func isHalfDayMultiple(d decimal.Decimal) bool {
	return d.Mod(halfDay).IsZero()
}

func normalizeName(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", ErrInvalidName
	}
	return trimmed, nil
}

func normalizeCode(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", ErrInvalidCode
	}

	lower := strings.ToLower(trimmed)
	if !codePattern.MatchString(lower) {
		return "", ErrInvalidCode
	}

	return lower, nil
}

func cloneDecimal(d *decimal.Decimal) *decimal.Decimal {
	if d == nil {
		return nil
	}
	clone := *d
	return &clone
}

func cloneInt(v *int) *int {
	if v == nil {
		return nil
	}
	clone := *v
	return &clone
}

func normalizePageSize(pageSize int) (int, error) {
	if pageSize <= 0 {
		return defaultListPageSize, nil
	}
	if pageSize > maxListPageSize {
		return 0, ErrInvalidPageSize
	}
	return pageSize, nil
}

func parsePageToken(token string) (int, error) {
	if strings.TrimSpace(token) == "" {
		return 0, nil
	}

	offset, err := strconv.Atoi(token)
	if err != nil || offset < 0 {
		return 0, ErrInvalidPageToken
	}

	return offset, nil
}
