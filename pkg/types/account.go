package types

// Role is the role carried by an authenticated account.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleOwner    Role = "owner"
	RoleCustomer Role = "customer"
)

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleOwner, RoleCustomer:
		return true
	}
	return false
}

// Account is the authenticated principal attached to a request.
type Account struct {
	ID   string `json:"id"`
	Role Role   `json:"role"`
}

func (a *Account) IsAdmin() bool { return a != nil && a.Role == RoleAdmin }

func (a *Account) IsOwner() bool { return a != nil && a.Role == RoleOwner }
