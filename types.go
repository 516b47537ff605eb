package auth

import (
	"context"
	"fmt"
)

type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// TokenService mints and verifies the three token kinds used across the
// account lifecycle. Each kind is bound to its own signing secret; a token
// minted for one kind never verifies as another.
type TokenService interface {
	SignedActivationToken(name, email, password string) (string, error)
	VerifyActivationToken(token string) (*ActivationClaims, error)
	SignedResetToken(name string) (string, error)
	VerifyResetToken(token string) (*ResetClaims, error)
	SignedSessionToken(accountID string) (string, error)
	VerifySessionToken(token string) (*SessionClaims, error)
}

// Mailer delivers one rendered notification. Implementations must honor the
// context; callers treat a delivery failure as terminal for the request that
// triggered it.
type Mailer interface {
	Send(ctx context.Context, template, to string, vars map[string]any) error
}

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] AUTH "+newline(format), args...)
}

func (d defLogger) Warn(format string, args ...any) {
	fmt.Printf("[WRN] AUTH "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] AUTH "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] AUTH "+newline(format), args...)
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}
