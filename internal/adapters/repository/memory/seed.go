package memory

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/ogurasousui/leave-ledger/internal/core/employee"
	"github.com/ogurasousui/leave-ledger/internal/core/leavetype"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Seed は memory ドライバ起動時に投入する初期データです。
type Seed struct {
	Employees  []SeedEmployee  `yaml:"employees"`
	LeaveTypes []SeedLeaveType `yaml:"leave_types"`
}

// SeedEmployee は初期社員データです。ManagerCode は先に定義された社員のコードを参照します。
type SeedEmployee struct {
	Code        string `yaml:"code"`
	Name        string `yaml:"name"`
	Email       string `yaml:"email"`
	ManagerCode string `yaml:"manager_code"`
	HiredAt     string `yaml:"hired_at"`
}

// SeedLeaveType は初期休暇区分データです。日数は小数を文字列で指定します。
type SeedLeaveType struct {
	Code                   string `yaml:"code"`
	Name                   string `yaml:"name"`
	DaysAllowed            string `yaml:"days_allowed"`
	RequiresApproval       bool   `yaml:"requires_approval"`
	CarryForward           bool   `yaml:"carry_forward"`
	MaxCarryForwardDays    string `yaml:"max_carry_forward_days"`
	MinimumNoticeDays      *int   `yaml:"minimum_notice_days"`
	MaximumConsecutiveDays *int   `yaml:"maximum_consecutive_days"`
}

// LoadSeedFile は YAML ファイルから Seed を読み込みます。
func LoadSeedFile(path string) (*Seed, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("memory: read seed %s: %w", path, err)
	}

	var seed Seed
	if err := yaml.Unmarshal(b, &seed); err != nil {
		return nil, fmt.Errorf("memory: parse seed: %w", err)
	}
	return &seed, nil
}

// Apply は社員台帳と休暇区分サービスを通じて初期データを登録します。
func (s *Seed) Apply(ctx context.Context, directory *employee.Directory, leaveTypes leavetype.UseCase) error {
	ids := make(map[string]string, len(s.Employees))
	for i, e := range s.Employees {
		in := employee.RegisterInput{
			EmployeeCode: e.Code,
			Name:         e.Name,
			Email:        e.Email,
		}
		if e.ManagerCode != "" {
			managerID, ok := ids[e.ManagerCode]
			if !ok {
				return fmt.Errorf("memory: seed employees[%d]: unknown manager_code %q", i, e.ManagerCode)
			}
			in.ManagerID = &managerID
		}
		if e.HiredAt != "" {
			hired, err := time.Parse(time.DateOnly, e.HiredAt)
			if err != nil {
				return fmt.Errorf("memory: seed employees[%d].hired_at: %w", i, err)
			}
			in.HiredAt = &hired
		}

		created, err := directory.Register(ctx, in)
		if err != nil {
			return fmt.Errorf("memory: seed employees[%d]: %w", i, err)
		}
		ids[created.EmployeeCode] = created.ID
		ids[e.Code] = created.ID
	}

	for i, lt := range s.LeaveTypes {
		days, err := decimal.NewFromString(lt.DaysAllowed)
		if err != nil {
			return fmt.Errorf("memory: seed leave_types[%d].days_allowed: %w", i, err)
		}

		in := leavetype.CreateLeaveTypeInput{
			Name:                   lt.Name,
			Code:                   lt.Code,
			DaysAllowed:            days,
			RequiresApproval:       lt.RequiresApproval,
			CarryForward:           lt.CarryForward,
			MinimumNoticeDays:      lt.MinimumNoticeDays,
			MaximumConsecutiveDays: lt.MaximumConsecutiveDays,
		}
		if lt.MaxCarryForwardDays != "" {
			capDays, err := decimal.NewFromString(lt.MaxCarryForwardDays)
			if err != nil {
				return fmt.Errorf("memory: seed leave_types[%d].max_carry_forward_days: %w", i, err)
			}
			in.MaxCarryForwardDays = &capDays
		}

		if _, err := leaveTypes.CreateLeaveType(ctx, in); err != nil {
			return fmt.Errorf("memory: seed leave_types[%d]: %w", i, err)
		}
	}
	return nil
}
