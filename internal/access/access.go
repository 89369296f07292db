package access

// Role is the dashboard view a caller is entitled to.
type Role string

const (
	RoleExecutive      Role = "executive"
	RolePrincipal      Role = "principal"
	RoleDepartmentHead Role = "department_head"
	RoleDenied         Role = "denied"
)

// Grant is the resolved authorization for one request. It is immutable
// once resolved and is never carried across requests.
type Grant struct {
	Identity    string   `json:"identity"`
	Role        Role     `json:"role"`
	Divisions   []string `json:"divisions,omitempty"`
	Departments []string `json:"departments,omitempty"`
}

func (g Grant) Denied() bool {
	return g.Role == RoleDenied
}

// Unrestricted reports whether the grant may see every division.
func (g Grant) Unrestricted() bool {
	return g.Role == RoleExecutive
}

// ScopedDivisions is the division filter to apply to composed payloads:
// nil for executives (no restriction), the granted set otherwise.
func (g Grant) ScopedDivisions() []string {
	if g.Unrestricted() {
		return nil
	}
	return g.Divisions
}

// ScopedDepartments is the department filter for ledger entries: non-nil
// only for department heads, whose view narrows further than their
// division to the departments they actually run.
func (g Grant) ScopedDepartments() []string {
	if g.Role != RoleDepartmentHead {
		return nil
	}
	return g.Departments
}

// DeniedGrant is the universal default entry: every identity that cannot
// be positively resolved maps here. Resolution is total by construction.
func DeniedGrant(identity string) Grant {
	return Grant{
		Identity: identity,
		Role:     RoleDenied,
	}
}

// DirectoryEntry is one row of the user directory.
type DirectoryEntry struct {
	Email       string   `json:"email"`
	Name        string   `json:"name"`
	Role        Role     `json:"role"`
	Divisions   []string `json:"divisions"`
	Departments []string `json:"departments"`
	Active      bool     `json:"active"`
}
