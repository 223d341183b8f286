package types

const ContextUserKey = "user"

// Permission codes wired into the route table. Seeded on first boot.
const (
	PermAlertRead       = "alert:read"
	PermAlertWrite      = "alert:write"
	PermIncidentRead    = "incident:read"
	PermIncidentWrite   = "incident:write"
	PermIncidentAssign  = "incident:assign"
	PermProblemRead     = "problem:read"
	PermProblemWrite    = "problem:write"
	PermApprovalRead    = "approval:read"
	PermApprovalAdmin   = "approval:admin"
	PermPostmortemRead  = "postmortem:read"
	PermPostmortemWrite = "postmortem:write"
	PermUserRead        = "user:read"
	PermUserWrite       = "user:write"
	PermSystemAdmin     = "system:admin"
)
