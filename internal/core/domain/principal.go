package domain

// Role is the kind of account an authenticated principal acts as.
type Role string

const (
	RoleCompany  Role = "company"
	RoleMerchant Role = "merchant"
	RoleEmployee Role = "employee"
	RoleAdmin    Role = "admin"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleCompany, RoleMerchant, RoleEmployee, RoleAdmin:
		return true
	}
	return false
}

// Principal is the caller identity resolved by the identity collaborator.
type Principal struct {
	AccountID int64
	Role      Role
}

// DirectoryEntry maps an employee to the contact data used for OTP delivery.
type DirectoryEntry struct {
	AccountID  int64  `json:"account_id"`
	NationalID string `json:"national_id"`
	Mobile     string `json:"mobile"`
	CompanyID  int64  `json:"company_id"`
}
