package handler

import (
	"context"
	"strings"

	"github.com/ogurasousui/leave-ledger/internal/core/employee"
	"google.golang.org/protobuf/types/known/structpb"
)

// EmployeeDirectory は社員台帳のうちハンドラーが利用する操作です。
type EmployeeDirectory interface {
	Register(ctx context.Context, in employee.RegisterInput) (*employee.Employee, error)
	Lookup(ctx context.Context, id string) (*employee.Employee, error)
}

// EmployeeGrpcHandler は EmployeeService の gRPC 実装です。
type EmployeeGrpcHandler struct {
	directory EmployeeDirectory
}

// NewEmployeeGrpcHandler は EmployeeGrpcHandler を生成します。
func NewEmployeeGrpcHandler(directory EmployeeDirectory) *EmployeeGrpcHandler {
	return &EmployeeGrpcHandler{directory: directory}
}

// RegisterEmployee は社員を登録します。
func (h *EmployeeGrpcHandler) RegisterEmployee(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	f, err := requestFields(req)
	if err != nil {
		return nil, err
	}

	in := employee.RegisterInput{}
	if in.EmployeeCode, err = f.text("employee_code"); err != nil {
		return nil, err
	}
	if in.Name, err = f.text("name"); err != nil {
		return nil, err
	}
	if in.Email, err = f.text("email"); err != nil {
		return nil, err
	}
	if in.ManagerID, err = f.optionalString("manager_id"); err != nil {
		return nil, err
	}
	statusValue, err := f.optionalString("status")
	if err != nil {
		return nil, err
	}
	if statusValue != nil && strings.TrimSpace(*statusValue) != "" {
		st := employee.Status(strings.ToLower(strings.TrimSpace(*statusValue)))
		in.Status = &st
	}
	if in.HiredAt, err = f.optionalDate("hired_at"); err != nil {
		return nil, err
	}
	if in.TerminatedAt, err = f.optionalDate("terminated_at"); err != nil {
		return nil, err
	}

	created, err := h.directory.Register(ctx, in)
	if err != nil {
		return nil, toStatusError(err)
	}
	return newStruct(map[string]any{"employee": employeeValue(created)})
}

// GetEmployee は社員を取得します。
func (h *EmployeeGrpcHandler) GetEmployee(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	f, err := requestFields(req)
	if err != nil {
		return nil, err
	}

	id, err := f.text("id")
	if err != nil {
		return nil, err
	}
	found, err := h.directory.Lookup(ctx, id)
	if err != nil {
		return nil, toStatusError(err)
	}
	return newStruct(map[string]any{"employee": employeeValue(found)})
}

func employeeValue(e *employee.Employee) map[string]any {
	if e == nil {
		return nil
	}
	return map[string]any{
		"id":            e.ID,
		"employee_code": e.EmployeeCode,
		"name":          e.Name,
		"email":         e.Email,
		"manager_id":    optionalStringValue(e.ManagerID),
		"status":        string(e.Status),
		"hired_at":      optionalDateValue(e.HiredAt),
		"terminated_at": optionalDateValue(e.TerminatedAt),
		"created_at":    formatTimestamp(e.CreatedAt),
		"updated_at":    formatTimestamp(e.UpdatedAt),
	}
}
