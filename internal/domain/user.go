package domain

// ──────────────────────────────────────────────────────────────────────────────
// UserRole
// ──────────────────────────────────────────────────────────────────────────────

// UserRole controls access levels in the back-office. Identity itself is
// issued by the account system; the ledger only consumes the role claim.
type UserRole string

const (
	RoleUser     UserRole = "user"     // standard player
	RoleAdmin    UserRole = "admin"    // full back-office access
	RoleFinance  UserRole = "finance"  // ledger inspection, manual settlement
	RoleOps      UserRole = "ops"      // operations: settlement sweeps, rollover
	RoleReadOnly UserRole = "readonly" // read-only back-office access
)

// CanAccessBackoffice returns true for all non-standard roles.
func (r UserRole) CanAccessBackoffice() bool {
	return r != RoleUser && r != ""
}

// IsAdmin returns true only for the full admin role.
func (r UserRole) IsAdmin() bool {
	return r == RoleAdmin
}
