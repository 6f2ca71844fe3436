package leave

// Action はワークフロー操作の種別です。メトリクスとログのラベルに使用します。
type Action string

const (
	ActionCreate  Action = "create"
	ActionUpdate  Action = "update"
	ActionApprove Action = "approve"
	ActionReject  Action = "reject"
	ActionCancel  Action = "cancel"
	ActionDelete  Action = "delete"
)

// LedgerOperation は台帳操作の種別です。
type LedgerOperation string

const (
	LedgerInitializeYear LedgerOperation = "initialize_year"
	LedgerReserve        LedgerOperation = "reserve"
	LedgerCommit         LedgerOperation = "commit"
	LedgerRelease        LedgerOperation = "release"
	LedgerRestoreUsed    LedgerOperation = "restore_used"
)

// transitions は操作ごとに許可される遷移元の状態です。作成は遷移元を持ちません。
var transitions = map[Action]map[Status]bool{
	ActionUpdate:  {StatusPending: true},
	ActionApprove: {StatusPending: true},
	ActionReject:  {StatusPending: true},
	ActionCancel:  {StatusPending: true, StatusApproved: true},
	ActionDelete:  {StatusPending: true},
}

// CanTransition は from の状態の申請に action を適用できるかを返します。
func CanTransition(from Status, action Action) bool {
	return transitions[action][from]
}

// TargetStatus は action 適用後の状態を返します。状態を変えない操作では from をそのまま返します。
func TargetStatus(from Status, action Action) Status {
	switch action {
	case ActionCreate:
		return StatusPending
	case ActionApprove:
		return StatusApproved
	case ActionReject:
		return StatusRejected
	case ActionCancel:
		return StatusCancelled
	default:
		return from
	}
}
