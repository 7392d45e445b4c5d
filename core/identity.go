package core

// Identity is the authenticated staff member making a request.
// It is issued by the identity layer; this service only reads it.
type Identity struct {
	UserID   string
	TenantID string
	Name     string
	Role     string
}

func (id Identity) IsZero() bool { return id.UserID == "" }
