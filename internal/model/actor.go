package model

type Role string

const (
	RoleEngineer   Role = "engineer"
	RoleManager    Role = "manager"
	RoleAdmin      Role = "admin"
	RoleSuperadmin Role = "superadmin"
)

var roleRank = map[Role]int{
	RoleEngineer:   1,
	RoleManager:    2,
	RoleAdmin:      3,
	RoleSuperadmin: 4,
}

func ValidRole(r Role) bool {
	_, ok := roleRank[r]
	return ok
}

// AtLeast reports whether r sits at or above min in the role hierarchy
// (engineer < manager < admin < superadmin). Unknown roles rank below all.
func (r Role) AtLeast(min Role) bool {
	return roleRank[r] >= roleRank[min]
}

// Actor is the authenticated caller identity supplied by the upstream
// session layer. The lifecycle trusts it for role and ownership guards.
type Actor struct {
	ID   uint64 `json:"id"`
	Role Role   `json:"role"`
}

// IsManagerial reports whether the actor may bypass ownership guards.
func (a Actor) IsManagerial() bool {
	return a.Role.AtLeast(RoleManager)
}
