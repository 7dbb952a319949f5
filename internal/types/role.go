package types

import "fmt"

// Role is the closed set of account roles. Authorization decisions go through
// the capability table below instead of comparing role strings at call sites.
type Role string

const (
	RoleLawyer Role = "lawyer"
	RoleClient Role = "client"
	RoleBasic  Role = "basic"
)

// Capabilities describes what a role is allowed to do, evaluated once per action.
type Capabilities struct {
	CanCreateTemplates   bool
	CanPublish           bool
	CanInstantiate       bool
	CanComplete          bool
	CanFormalize         bool
	CanManagePermissions bool
	CanManageTags        bool
}

var roleCapabilities = map[Role]Capabilities{
	RoleLawyer: {
		CanCreateTemplates:   true,
		CanPublish:           true,
		CanFormalize:         true,
		CanManagePermissions: true,
		CanManageTags:        true,
	},
	RoleClient: {
		CanInstantiate: true,
		CanComplete:    true,
		CanFormalize:   true,
	},
	RoleBasic: {},
}

// ParseRole validates a role string against the closed set.
func ParseRole(s string) (Role, error) {
	r := Role(s)
	if !r.Valid() {
		return "", fmt.Errorf("unknown role: %q", s)
	}
	return r, nil
}

// Valid reports whether the role belongs to the closed set.
func (r Role) Valid() bool {
	_, ok := roleCapabilities[r]
	return ok
}

// Capabilities returns the capability set for the role. Unknown roles get the
// empty set.
func (r Role) Capabilities() Capabilities {
	return roleCapabilities[r]
}

// GrantableRoles are the roles a lawyer can grant document access to.
// Lawyers manage documents, they are not granted access through role grants.
func GrantableRoles() []Role {
	return []Role{RoleClient, RoleBasic}
}
