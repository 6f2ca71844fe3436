package leavetype

import "errors"

var (
	// ErrLeaveTypeNotFound は休暇区分が存在しない場合に返却されます。
	ErrLeaveTypeNotFound = errors.New("leave type not found")
	// ErrCodeAlreadyExists はコード重複時に返却されます。
	ErrCodeAlreadyExists = errors.New("leave type code already exists")
	// ErrLeaveTypeInUse は申請や残高から参照されている休暇区分を削除しようとした場合に返却されます。
	ErrLeaveTypeInUse = errors.New("leave type is in use")
	// ErrInvalidName は名称が不正な場合に返却されます。
	ErrInvalidName = errors.New("invalid leave type name")
	// ErrInvalidCode はコードが不正な場合に返却されます。
	ErrInvalidCode = errors.New("invalid leave type code")
	// ErrInvalidDaysAllowed は年間付与日数が不正な場合に返却されます。
	ErrInvalidDaysAllowed = errors.New("invalid days allowed")
	// ErrInvalidCarryForward は繰越上限が不正な場合に返却されます。
	ErrInvalidCarryForward = errors.New("invalid carry forward cap")
	// ErrInvalidNoticeDays は事前申請日数が不正な場合に返却されます。
	ErrInvalidNoticeDays = errors.New("invalid minimum notice days")
	// ErrInvalidConsecutiveDays は最大連続日数が不正な場合に返却されます。
	ErrInvalidConsecutiveDays = errors.New("invalid maximum consecutive days")
	// ErrInvalidID は ID が不正な場合に返却されます。
	ErrInvalidID = errors.New("invalid leave type id")
	// ErrInvalidPageSize は一覧取得時のページサイズが不正な場合に返却されます。
	ErrInvalidPageSize = errors.New("invalid page size")
	// ErrInvalidPageToken は一覧取得時のページトークンが不正な場合に返却されます。
	ErrInvalidPageToken = errors.New("invalid page token")
)
