package auth

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// UserRole is the account's role
type UserRole string

const (
	// RoleRegular is the default role assigned when an account is activated
	RoleRegular UserRole = "regular"
	// RoleAdmin marks accounts allowed through the admin gate
	RoleAdmin UserRole = "admin"
)

// Account is the account model. Rows exist only for activated registrations;
// a pending signup lives entirely inside its activation token.
type Account struct {
	bun.BaseModel     `bun:"table:accounts,alias:acc"`
	ID                uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Role              UserRole   `bun:"user_role,notnull" json:"user_role,omitempty"`
	Name              string     `bun:"name,notnull" json:"name,omitempty"`
	Username          string     `bun:"username,notnull,unique" json:"username,omitempty"`
	Email             string     `bun:"email,notnull,unique" json:"email,omitempty"`
	PasswordHash      string     `bun:"password_hash,notnull" json:"-"`
	ResetPasswordLink string     `bun:"reset_password_link" json:"-"`
	CreatedAt         *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt         *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// PublicAccount is the projection returned by login and the gated profile
// endpoints. Credential material never leaves the model.
type PublicAccount struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// Public maps the account to its serializable projection.
func (a *Account) Public() PublicAccount {
	return PublicAccount{
		ID:    a.ID.String(),
		Name:  a.Name,
		Email: a.Email,
		Role:  string(a.Role),
	}
}

// NewUsername derives a username from the email's local part plus a short
// random suffix so near-identical emails do not collide on the unique index.
func NewUsername(email string) string {
	local := email
	if at := strings.Index(email, "@"); at > 0 {
		local = email[:at]
	}
	suffix := strings.Split(uuid.NewString(), "-")[0]
	return local + "-" + suffix
}
