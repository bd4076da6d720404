// Package ability holds the static role-to-rule policy of the storefront and the
// engine that answers whether a role may perform an action on a subject.
//
// The policy is built once at startup (BuildRegistry) and is read-only from then
// on, so an Engine may be shared by any number of request goroutines without
// locking.
package ability

// Role is the coarse principal classification carried in access tokens.
type Role string

// Known roles.
const (
	RoleAdmin  Role = "admin"
	RoleEditor Role = "editor"
	RoleUser   Role = "user"
)

// Roles enumerates every role a Registry must cover.
var Roles = []Role{RoleAdmin, RoleEditor, RoleUser}

// Valid reports whether r is one of the enumerated roles.
func (r Role) Valid() bool {
	for _, known := range Roles {
		if r == known {
			return true
		}
	}
	return false
}

// Action is the verb of a permission. ActionManage is a wildcard over all verbs.
type Action string

// Known actions.
const (
	ActionManage Action = "manage"
	ActionCreate Action = "create"
	ActionRead   Action = "read"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// Valid reports whether a is one of the enumerated actions.
func (a Action) Valid() bool {
	switch a {
	case ActionManage, ActionCreate, ActionRead, ActionUpdate, ActionDelete:
		return true
	}
	return false
}
