package handler

import (
	"errors"

	"github.com/ogurasousui/leave-ledger/internal/core/document"
	"github.com/ogurasousui/leave-ledger/internal/core/employee"
	"github.com/ogurasousui/leave-ledger/internal/core/leave"
	"github.com/ogurasousui/leave-ledger/internal/core/leavetype"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func toStatusError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, leave.ErrValidation),
		errors.Is(err, leave.ErrNoticeViolation),
		errors.Is(err, leave.ErrConsecutiveDaysExceeded),
		errors.Is(err, leave.ErrInvalidPageSize),
		errors.Is(err, leave.ErrInvalidPageToken),
		errors.Is(err, leavetype.ErrInvalidName),
		errors.Is(err, leavetype.ErrInvalidCode),
		errors.Is(err, leavetype.ErrInvalidDaysAllowed),
		errors.Is(err, leavetype.ErrInvalidCarryForward),
		errors.Is(err, leavetype.ErrInvalidNoticeDays),
		errors.Is(err, leavetype.ErrInvalidConsecutiveDays),
		errors.Is(err, leavetype.ErrInvalidID),
		errors.Is(err, leavetype.ErrInvalidPageSize),
		errors.Is(err, leavetype.ErrInvalidPageToken),
		errors.Is(err, employee.ErrInvalidID),
		errors.Is(err, employee.ErrInvalidEmployeeCode),
		errors.Is(err, employee.ErrInvalidName),
		errors.Is(err, employee.ErrInvalidEmail),
		errors.Is(err, employee.ErrInvalidStatus),
		errors.Is(err, employee.ErrInvalidDateRange),
		errors.Is(err, document.ErrInvalidID),
		errors.Is(err, document.ErrInvalidRequestID),
		errors.Is(err, document.ErrInvalidFileName),
		errors.Is(err, document.ErrEmptyContent),
		errors.Is(err, document.ErrTooLarge):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, leave.ErrOverlappingRequest),
		errors.Is(err, leave.ErrInsufficientBalance),
		errors.Is(err, leave.ErrInvalidStateTransition),
		errors.Is(err, leavetype.ErrLeaveTypeInUse):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, leavetype.ErrCodeAlreadyExists), errors.Is(err, employee.ErrEmployeeCodeAlreadyExists):
		return status.Error(codes.AlreadyExists, err.Error())
	case leave.IsNotFound(err), errors.Is(err, document.ErrDocumentNotFound):
		return status.Error(codes.NotFound, err.Error())
	case leave.IsRetryable(err):
		return status.Error(codes.Aborted, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}
