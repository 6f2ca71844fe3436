package handler

import (
	"context"

	"github.com/ogurasousui/leave-ledger/internal/core/leavetype"
	"google.golang.org/protobuf/types/known/structpb"
)

// LeaveTypeGrpcHandler は LeaveTypeService の gRPC 実装です。
type LeaveTypeGrpcHandler struct {
	svc leavetype.UseCase
}

// NewLeaveTypeGrpcHandler は LeaveTypeGrpcHandler を生成します。
func NewLeaveTypeGrpcHandler(svc leavetype.UseCase) *LeaveTypeGrpcHandler {
	return &LeaveTypeGrpcHandler{svc: svc}
}

// CreateLeaveType は休暇区分を作成します。
func (h *LeaveTypeGrpcHandler) CreateLeaveType(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	f, err := requestFields(req)
	if err != nil {
		return nil, err
	}

	in := leavetype.CreateLeaveTypeInput{}
	if in.Name, err = f.text("name"); err != nil {
		return nil, err
	}
	if in.Code, err = f.text("code"); err != nil {
		return nil, err
	}
	days, err := f.optionalDecimal("days_allowed")
	if err != nil {
		return nil, err
	}
	if days == nil {
		return nil, invalidField("days_allowed", "is required")
	}
	in.DaysAllowed = *days
	if in.RequiresApproval, err = f.flag("requires_approval"); err != nil {
		return nil, err
	}
	if in.CarryForward, err = f.flag("carry_forward"); err != nil {
		return nil, err
	}
	if in.MaxCarryForwardDays, err = f.optionalDecimal("max_carry_forward_days"); err != nil {
		return nil, err
	}
	if in.MinimumNoticeDays, err = f.optionalInt("minimum_notice_days"); err != nil {
		return nil, err
	}
	if in.MaximumConsecutiveDays, err = f.optionalInt("maximum_consecutive_days"); err != nil {
		return nil, err
	}

	created, err := h.svc.CreateLeaveType(ctx, in)
	if err != nil {
		return nil, toStatusError(err)
	}
	return newStruct(map[string]any{"leave_type": leaveTypeValue(created)})
}

// GetLeaveType は休暇区分を取得します。
func (h *LeaveTypeGrpcHandler) GetLeaveType(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	f, err := requestFields(req)
	if err != nil {
		return nil, err
	}

	id, err := f.text("id")
	if err != nil {
		return nil, err
	}
	found, err := h.svc.GetLeaveType(ctx, leavetype.GetLeaveTypeInput{ID: id})
	if err != nil {
		return nil, toStatusError(err)
	}
	return newStruct(map[string]any{"leave_type": leaveTypeValue(found)})
}

// ListLeaveTypes は休暇区分の一覧を取得します。
func (h *LeaveTypeGrpcHandler) ListLeaveTypes(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	f, err := requestFields(req)
	if err != nil {
		return nil, err
	}

	in := leavetype.ListLeaveTypesInput{}
	if in.PageSize, err = f.integer("page_size"); err != nil {
		return nil, err
	}
	if in.PageToken, err = f.text("page_token"); err != nil {
		return nil, err
	}
	if in.Active, err = f.optionalBool("active"); err != nil {
		return nil, err
	}

	result, err := h.svc.ListLeaveTypes(ctx, in)
	if err != nil {
		return nil, toStatusError(err)
	}

	items := make([]any, 0, len(result.LeaveTypes))
	for _, lt := range result.LeaveTypes {
		items = append(items, leaveTypeValue(lt))
	}
	return newStruct(map[string]any{
		"leave_types":     items,
		"next_page_token": result.NextPageToken,
	})
}

// UpdateLeaveType は休暇区分を更新します。上限項目に null を指定すると上限なしになります。
func (h *LeaveTypeGrpcHandler) UpdateLeaveType(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	f, err := requestFields(req)
	if err != nil {
		return nil, err
	}

	in := leavetype.UpdateLeaveTypeInput{}
	if in.ID, err = f.text("id"); err != nil {
		return nil, err
	}
	if in.Name, err = f.optionalString("name"); err != nil {
		return nil, err
	}
	if in.Code, err = f.optionalString("code"); err != nil {
		return nil, err
	}
	if in.DaysAllowed, err = f.optionalDecimal("days_allowed"); err != nil {
		return nil, err
	}
	if in.RequiresApproval, err = f.optionalBool("requires_approval"); err != nil {
		return nil, err
	}
	if in.CarryForward, err = f.optionalBool("carry_forward"); err != nil {
		return nil, err
	}
	if in.Active, err = f.optionalBool("active"); err != nil {
		return nil, err
	}

	in.MaxCarryForwardDaysSet = f.present("max_carry_forward_days")
	if in.MaxCarryForwardDays, err = f.optionalDecimal("max_carry_forward_days"); err != nil {
		return nil, err
	}
	in.MinimumNoticeDaysSet = f.present("minimum_notice_days")
	if in.MinimumNoticeDays, err = f.optionalInt("minimum_notice_days"); err != nil {
		return nil, err
	}
	in.MaximumConsecutiveDaysSet = f.present("maximum_consecutive_days")
	if in.MaximumConsecutiveDays, err = f.optionalInt("maximum_consecutive_days"); err != nil {
		return nil, err
	}

	updated, err := h.svc.UpdateLeaveType(ctx, in)
	if err != nil {
		return nil, toStatusError(err)
	}
	return newStruct(map[string]any{"leave_type": leaveTypeValue(updated)})
}

// DeleteLeaveType は休暇区分を削除します。
func (h *LeaveTypeGrpcHandler) DeleteLeaveType(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	f, err := requestFields(req)
	if err != nil {
		return nil, err
	}

	id, err := f.text("id")
	if err != nil {
		return nil, err
	}
	if err := h.svc.DeleteLeaveType(ctx, leavetype.DeleteLeaveTypeInput{ID: id}); err != nil {
		return nil, toStatusError(err)
	}
	return newStruct(map[string]any{})
}

func leaveTypeValue(lt *leavetype.LeaveType) map[string]any {
	if lt == nil {
		return nil
	}
	return map[string]any{
		"id":                       lt.ID,
		"name":                     lt.Name,
		"code":                     lt.Code,
		"days_allowed":             lt.DaysAllowed.String(),
		"requires_approval":        lt.RequiresApproval,
		"carry_forward":            lt.CarryForward,
		"max_carry_forward_days":   optionalDecimalValue(lt.MaxCarryForwardDays),
		"minimum_notice_days":      optionalIntValue(lt.MinimumNoticeDays),
		"maximum_consecutive_days": optionalIntValue(lt.MaximumConsecutiveDays),
		"active":                   lt.Active,
		"created_at":               formatTimestamp(lt.CreatedAt),
		"updated_at":               formatTimestamp(lt.UpdatedAt),
	}
}
