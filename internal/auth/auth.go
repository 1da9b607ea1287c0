// Package auth maps caller roles to permission sets. Authorization checks
// go through Can so adding a role never touches handler code.
package auth

// Permission names one guarded capability of the API.
type Permission string

const (
	PermWalletManage Permission = "wallet:manage"
	PermPaymentUse   Permission = "payment:use"
	PermRatesUpdate  Permission = "rates:update"
)

// Role is the caller role asserted by the upstream gateway.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

var rolePermissions = map[Role]map[Permission]struct{}{
	RoleUser: {
		PermWalletManage: {},
		PermPaymentUse:   {},
	},
	RoleAdmin: {
		PermWalletManage: {},
		PermPaymentUse:   {},
		PermRatesUpdate:  {},
	},
}

// Can reports whether the role holds the permission. Unknown roles hold
// nothing.
func Can(role Role, perm Permission) bool {
	perms, ok := rolePermissions[role]
	if !ok {
		return false
	}
	_, ok = perms[perm]
	return ok
}
