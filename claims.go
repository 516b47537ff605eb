package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ActivationClaims carry a pending registration across the emailed
// activation link. No account row exists until these verify; the password
// travels in cleartext inside the signed token and is hashed at redemption.
type ActivationClaims struct {
	jwt.RegisteredClaims
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// ResetClaims prove a password reset was requested. The signed token is also
// mirrored into the account's reset_password_link column, which is how the
// finalize step finds the account and enforces single use.
type ResetClaims struct {
	jwt.RegisteredClaims
	Name string `json:"name"`
}

// SessionClaims identify a signed-in account. The payload is the account id
// only; role checks resolve a fresh account record on every gated request.
type SessionClaims struct {
	jwt.RegisteredClaims
	UID string `json:"uid,omitempty"`
}

// Verify interface compliance
var (
	_ jwt.Claims = (*ActivationClaims)(nil)
	_ jwt.Claims = (*ResetClaims)(nil)
	_ jwt.Claims = (*SessionClaims)(nil)
)

// UserID returns the account identifier, falling back to the subject claim
// for tokens minted without the uid extension.
func (c *SessionClaims) UserID() string {
	if c.UID != "" {
		return c.UID
	}
	return c.RegisteredClaims.Subject
}

// UserUUID parses the account identifier into a uuid.
func (c *SessionClaims) UserUUID() (uuid.UUID, error) {
	return uuid.Parse(c.UserID())
}

// Expires returns the expiration time
func (c *SessionClaims) Expires() time.Time {
	if c.RegisteredClaims.ExpiresAt != nil {
		return c.RegisteredClaims.ExpiresAt.Time
	}
	return time.Time{}
}
