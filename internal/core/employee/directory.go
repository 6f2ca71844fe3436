package employee

import (
	"context"
	"errors"
	"net/mail"
	"regexp"
	"strings"
	"time"
)

// Clock は現在時刻を提供します。
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time {
	return time.Now().UTC()
}

var employeeCodePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]*$`)

// Directory は休暇ワークフローから参照される社員台帳です。
type Directory struct {
	repo  Repository
	clock Clock
}

// NewDirectory は Directory を生成します。
func NewDirectory(repo Repository, clock Clock) *Directory {
	if clock == nil {
		clock = realClock{}
	}
	return &Directory{repo: repo, clock: clock}
}

// RegisterInput は社員登録時の入力です。
type RegisterInput struct {
	EmployeeCode string
	Name         string
	Email        string
	ManagerID    *string
	Status       *Status
	HiredAt      *time.Time
	TerminatedAt *time.Time
}

// Lookup は ID で社員を取得します。
func (d *Directory) Lookup(ctx context.Context, id string) (*Employee, error) {
	trimmed := strings.TrimSpace(id)
	if trimmed == "" {
		return nil, ErrInvalidID
	}
	return d.repo.FindByID(ctx, trimmed)
}

// Register は社員を登録します。初期データ投入と統合テストから利用されます。
func (d *Directory) Register(ctx context.Context, in RegisterInput) (*Employee, error) {
	code, err := normalizeEmployeeCode(in.EmployeeCode)
	if err != nil {
		return nil, err
	}

	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, ErrInvalidName
	}

	email := strings.TrimSpace(in.Email)
	if email != "" {
		if _, err := mail.ParseAddress(email); err != nil {
			return nil, ErrInvalidEmail
		}
	}

	status := StatusActive
	if in.Status != nil {
		if !isValidStatus(*in.Status) {
			return nil, ErrInvalidStatus
		}
		status = *in.Status
	}

	hiredAt := normalizeDate(in.HiredAt)
	terminatedAt := normalizeDate(in.TerminatedAt)
	if err := validateEmploymentPeriod(hiredAt, terminatedAt); err != nil {
		return nil, err
	}

	var managerID *string
	if in.ManagerID != nil {
		if trimmed := strings.TrimSpace(*in.ManagerID); trimmed != "" {
			managerID = &trimmed
		}
	}

	existing, err := d.repo.FindByCode(ctx, code)
	if err != nil && !errors.Is(err, ErrEmployeeNotFound) {
		return nil, err
	}
	if existing != nil {
		return nil, ErrEmployeeCodeAlreadyExists
	}

	now := d.clock.Now()
	return d.repo.Create(ctx, &Employee{
		EmployeeCode: code,
		Name:         name,
		Email:        email,
		ManagerID:    managerID,
		Status:       status,
		HiredAt:      hiredAt,
		TerminatedAt: terminatedAt,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
}

func normalizeEmployeeCode(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", ErrInvalidEmployeeCode
	}

	lower := strings.ToLower(trimmed)
	if !employeeCodePattern.MatchString(lower) {
		return "", ErrInvalidEmployeeCode
	}
	return lower, nil
}

func normalizeDate(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}

	normalized := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return &normalized
}

func validateEmploymentPeriod(hiredAt, terminatedAt *time.Time) error {
	if hiredAt == nil || terminatedAt == nil {
		return nil
	}
	if terminatedAt.Before(*hiredAt) {
		return ErrInvalidDateRange
	}
	return nil
}

func isValidStatus(status Status) bool {
	switch status {
	case StatusActive, StatusInactive:
		return true
	default:
		return false
	}
}
