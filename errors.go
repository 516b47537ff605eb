package auth

import (
	"net/http"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

// Text codes attached to structured errors so API clients can branch on a
// stable identifier instead of matching human-readable messages.
const (
	TextCodeDuplicateEmail    = "DUPLICATE_EMAIL"
	TextCodeUserNotFound      = "USER_NOT_FOUND"
	TextCodeResetNotFound     = "RESET_NOT_FOUND"
	TextCodeInvalidCreds      = "INVALID_CREDENTIALS"
	TextCodeActivationExpired = "ACTIVATION_EXPIRED"
	TextCodeTokenExpired      = "TOKEN_EXPIRED"
	TextCodeTokenMalformed    = "TOKEN_MALFORMED"
	TextCodeEmailDelivery     = "EMAIL_DELIVERY"
	TextCodeEmptyPassword     = "EMPTY_PASSWORD"
	TextCodeSessionNotFound   = "SESSION_NOT_FOUND"
	TextCodeAdminOnly         = "ADMIN_ONLY"
)

// ErrDuplicateEmail reports a registration or activation against an email
// that already has an account. The 400 status is part of the API contract
// and does not follow the configured auth failure status.
var ErrDuplicateEmail = goerrors.New("Email is taken", goerrors.CategoryConflict).
	WithTextCode(TextCodeDuplicateEmail).
	WithCode(goerrors.CodeBadRequest)

// ErrMismatchedHashAndPassword is returned when a password does not match
// the stored hash. Login collapses every compare failure into this error so
// callers cannot distinguish a bad password from a corrupt hash.
var ErrMismatchedHashAndPassword = goerrors.New("Email and password do not match", goerrors.CategoryAuth).
	WithTextCode(TextCodeInvalidCreds)

// ErrNoEmptyString rejects empty passwords before they reach bcrypt.
var ErrNoEmptyString = goerrors.New("password must not be empty", goerrors.CategoryValidation).
	WithTextCode(TextCodeEmptyPassword).
	WithCode(http.StatusUnprocessableEntity)

// ErrTokenExpired is the structured form of jwt's expiration failure. The
// message keeps the legacy "token is expired" text so IsTokenExpiredError
// matches both forms.
var ErrTokenExpired = goerrors.New("token is expired", goerrors.CategoryAuth).
	WithTextCode(TextCodeTokenExpired)

// ErrTokenMalformed covers every verification failure that is not an
// expiration: bad signature, wrong signing method, garbage input.
var ErrTokenMalformed = goerrors.New("token is malformed", goerrors.CategoryAuth).
	WithTextCode(TextCodeTokenMalformed)

// ErrUnableToFindSession is returned when a request carries no usable
// bearer token.
var ErrUnableToFindSession = goerrors.New("missing or malformed JWT", goerrors.CategoryAuth).
	WithTextCode(TextCodeSessionNotFound).
	WithCode(goerrors.CodeUnauthorized)

// IsTokenExpiredError will check for expired tokens
func IsTokenExpiredError(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "token is expired")
}

// IsMalformedError will check for error message
func IsMalformedError(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "token is malformed") ||
		strings.Contains(err.Error(), "missing or malformed JWT")
}

// IsUniqueViolation reports whether err is a unique constraint failure from
// sqlite or postgres. The store relies on this to turn the insert race on
// the email column into ErrDuplicateEmail.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "duplicate key value violates unique constraint") ||
		strings.Contains(msg, "SQLSTATE=23505") ||
		strings.Contains(msg, "constraint failed: UNIQUE")
}
