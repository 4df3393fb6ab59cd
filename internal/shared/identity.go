package shared

// Role enumerates the roles issued by the external identity provider.
type Role string

const (
	// RoleAdmin has every capability including manual invoice overrides.
	RoleAdmin Role = "admin"
	// RoleUser is a procurement actor.
	RoleUser Role = "user"
	// RoleSupplier is an external vendor actor scoped to its own orders.
	RoleSupplier Role = "supplier"
)

// Identity describes the actor behind a request. It is supplied by the
// session layer and passed explicitly into every engine operation.
type Identity struct {
	UserID     int64
	Role       Role
	SupplierID int64
}

// IsSupplier reports whether the actor acts on behalf of a vendor.
func (id Identity) IsSupplier() bool {
	return id.Role == RoleSupplier
}
