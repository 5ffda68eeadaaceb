package models

import "github.com/google/uuid"

// Permission tokens carried in the auth token. The service only checks for
// their presence; granting them is the identity layer's problem.
const (
	PermissionSessionCreate   = "session:create"
	PermissionSessionManage   = "session:manage"
	PermissionSessionRegister = "session:register"
	PermissionCreditRead      = "credit:read"
	PermissionCreditAdjust    = "credit:adjust"
	PermissionPayoutCreate    = "payout:create"
)

// Actor is the already-authenticated caller of a service operation.
type Actor struct {
	ID          uuid.UUID
	Permissions []string
}

func (a Actor) HasPermission(permission string) bool {
	for _, granted := range a.Permissions {
		if granted == permission {
			return true
		}
	}
	return false
}
