package core

import (
	"github.com/example/cooltech/internal/models"
)

// Action names an operation subject to authorization.
type Action string

const (
	ActionReadCredentials  Action = "credentials:read"
	ActionCreateCredential Action = "credentials:create"
	ActionUpdateCredential Action = "credentials:update"
	ActionDeleteCredential Action = "credentials:delete"
	ActionListUsers        Action = "users:list"
	ActionManageMembership Action = "users:membership"
	ActionChangeRole       Action = "users:role"
	ActionViewOrgChart     Action = "org:chart"
)

// Decision is the outcome of an authorization check.
type Decision int

const (
	// Deny is the zero value so an unset Result never grants access.
	Deny Decision = iota
	Allow
)

func (d Decision) String() string {
	if d == Allow {
		return "allow"
	}
	return "deny"
}

// DenyReason describes why an authorization check was denied.
type DenyReason int

const (
	ReasonNone DenyReason = iota
	ReasonNotMember
	ReasonRoleTooLow
	ReasonAdminOnly
	ReasonUnknownAction
)

func (r DenyReason) String() string {
	switch r {
	case ReasonNone:
		return "none"
	case ReasonNotMember:
		return "not a member of the division or its OU"
	case ReasonRoleTooLow:
		return "role does not permit this action"
	case ReasonAdminOnly:
		return "admin role required"
	case ReasonUnknownAction:
		return "unknown action"
	default:
		return "unknown"
	}
}

// Result describes the outcome of an authorization check.
type Result struct {
	Decision Decision
	// Reason is only meaningful when Decision is Deny.
	Reason DenyReason
}

// Allowed reports whether the decision is Allow.
func (r Result) Allowed() bool { return r.Decision == Allow }

func allow() Result                 { return Result{Decision: Allow} }
func deny(reason DenyReason) Result { return Result{Decision: Deny, Reason: reason} }

// DivisionScope is what the read rule looks at: the target division and
// every division of the OU that owns it. OUDivisions is nil for a division
// no OU owns.
type DivisionScope struct {
	Division    *models.Division
	OUDivisions []*models.Division
}

// Policy decides which principal may perform which action.
type Policy struct {
	// StrictCredentialWrites gates credential create and delete by the read
	// rule, and delete also by role.
	StrictCredentialWrites bool
}

// Evaluate returns the decision for principal performing action. scope is
// only consulted by the credential actions that depend on membership and may
// be nil otherwise.
func (p Policy) Evaluate(principal Principal, action Action, scope *DivisionScope) Result {
	switch action {
	case ActionReadCredentials:
		return canRead(principal, scope)

	case ActionCreateCredential:
		if p.StrictCredentialWrites {
			return canRead(principal, scope)
		}
		return allow()

	case ActionUpdateCredential:
		if principal.Role == models.RoleNormal {
			return deny(ReasonRoleTooLow)
		}
		return allow()

	case ActionDeleteCredential:
		if !p.StrictCredentialWrites {
			return allow()
		}
		if principal.Role == models.RoleNormal {
			return deny(ReasonRoleTooLow)
		}
		return canRead(principal, scope)

	case ActionListUsers, ActionManageMembership, ActionChangeRole, ActionViewOrgChart:
		if principal.IsAdmin() {
			return allow()
		}
		return deny(ReasonAdminOnly)
	}
	return deny(ReasonUnknownAction)
}

// canRead is the credential read rule: admins always, otherwise members of
// the division or of any division under the same OU.
func canRead(principal Principal, scope *DivisionScope) Result {
	if principal.IsAdmin() {
		return allow()
	}
	if scope == nil || scope.Division == nil {
		return deny(ReasonNotMember)
	}
	if scope.Division.HasEmployee(principal.UserID) {
		return allow()
	}
	for _, sibling := range scope.OUDivisions {
		if sibling.HasEmployee(principal.UserID) {
			return allow()
		}
	}
	return deny(ReasonNotMember)
}

// needsOUScope reports whether Evaluate could consult scope.OUDivisions for
// this principal. Callers use it to skip loading the OU.
func (p Policy) needsOUScope(principal Principal, action Action, division *models.Division) bool {
	if principal.IsAdmin() || division.HasEmployee(principal.UserID) {
		return false
	}
	switch action {
	case ActionReadCredentials:
		return true
	case ActionCreateCredential, ActionDeleteCredential:
		return p.StrictCredentialWrites
	}
	return false
}
