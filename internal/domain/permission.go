package domain

// Entity names a kind of record for permission checks and audit entries
type Entity string

const (
	EntityCollection  Entity = "Collection"
	EntityTransaction Entity = "Transaction"
	EntityExpense     Entity = "Expense"
	EntityWallet      Entity = "Wallet"
	EntityAutoPay     Entity = "AutoPay"
)

// Action is a capability an actor may hold on an entity
type Action string

const (
	ActionApprove     Action = "approve"
	ActionReject      Action = "reject"
	ActionFlag        Action = "flag"
	ActionResubmit    Action = "resubmit"
	ActionRestore     Action = "restore"
	ActionDelete      Action = "delete"
	ActionCancel      Action = "cancel"
	ActionSelfApprove Action = "self_approve"
	ActionOverride    Action = "override"
	ActionView        Action = "view"
	ActionManage      Action = "manage"
)
