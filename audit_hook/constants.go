package audithook

// Action constants for audit events.
const (
	// Issuance actions
	ActionGenesisCreated = "genesis.created"
	ActionMintCompleted  = "mint.completed"
	ActionBatchMinted    = "batch_mint.completed"
	ActionCapExceeded    = "cap.exceeded"

	// Movement actions
	ActionTransferCompleted = "transfer.completed"
	ActionBurnCompleted     = "burn.completed"
	ActionApprovalSet       = "approval.set"
	ActionApprovalCleared   = "approval.cleared"

	// Administration actions
	ActionRoleGranted    = "role.granted"
	ActionRoleRevoked    = "role.revoked"
	ActionLedgerPaused   = "ledger.paused"
	ActionLedgerUnpaused = "ledger.unpaused"

	// Failure actions
	ActionOperationRejected = "operation.rejected"
)

// Resource constants for audit events.
const (
	ResourceLedger    = "ledger"
	ResourceAccount   = "account"
	ResourceAllowance = "allowance"
	ResourceRole      = "role"
)

// Category constants for audit events.
const (
	CategoryIssuance = "issuance"
	CategoryMovement = "movement"
	CategoryAdmin    = "administration"
	CategoryAccess   = "access"
)

// Severity levels for audit events.
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityError    = "error"
	SeverityCritical = "critical"
)

// Outcome values for audit events.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomePartial = "partial"
)
