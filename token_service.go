package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	goerrors "github.com/goliatone/go-errors"
)

// TokenSecrets holds the signing keys for the three token kinds. They must
// be independent: leaking the activation secret must not let anyone forge a
// session token.
type TokenSecrets struct {
	Activation []byte
	Reset      []byte
	Session    []byte
}

// TokenTTLs holds the lifetime for each token kind.
type TokenTTLs struct {
	Activation time.Duration
	Reset      time.Duration
	Session    time.Duration
}

// SecretKind names the signing key a token was minted with.
type SecretKind string

const (
	// SecretActivation signs the emailed account activation tokens
	SecretActivation SecretKind = "activation"
	// SecretReset signs the emailed password reset tokens
	SecretReset SecretKind = "reset"
	// SecretSession signs the login session tokens
	SecretSession SecretKind = "session"
)

// TokenServiceImpl implements the TokenService interface
type TokenServiceImpl struct {
	secrets  TokenSecrets
	ttls     TokenTTLs
	issuer   string
	audience jwt.ClaimStrings
	logger   Logger
}

// NewTokenService creates a new TokenService instance
func NewTokenService(secrets TokenSecrets, ttls TokenTTLs, issuer string, audience jwt.ClaimStrings, logger Logger) TokenService {
	if logger == nil {
		logger = defLogger{}
	}
	return &TokenServiceImpl{
		secrets:  secrets,
		ttls:     ttls,
		issuer:   issuer,
		audience: audience,
		logger:   logger,
	}
}

// SignedActivationToken mints the token a registration email carries. The
// pending name, email, and password live only inside this token until it is
// redeemed.
func (ts *TokenServiceImpl) SignedActivationToken(name, email, password string) (string, error) {
	claims := &ActivationClaims{
		RegisteredClaims: ts.registeredClaims(email, SecretActivation),
		Name:             name,
		Email:            email,
		Password:         password,
	}
	return ts.sign(claims, SecretActivation)
}

// VerifyActivationToken validates an activation token and returns the
// pending registration it carries.
func (ts *TokenServiceImpl) VerifyActivationToken(token string) (*ActivationClaims, error) {
	claims := &ActivationClaims{}
	if err := ts.parse(token, claims, SecretActivation); err != nil {
		return nil, err
	}
	return claims, nil
}

// SignedResetToken mints the token a password reset email carries.
func (ts *TokenServiceImpl) SignedResetToken(name string) (string, error) {
	claims := &ResetClaims{
		RegisteredClaims: ts.registeredClaims("", SecretReset),
		Name:             name,
	}
	return ts.sign(claims, SecretReset)
}

// VerifyResetToken validates a reset token. Possession alone is not enough
// to change a password; the token must still match an account's stored
// reset_password_link.
func (ts *TokenServiceImpl) VerifyResetToken(token string) (*ResetClaims, error) {
	claims := &ResetClaims{}
	if err := ts.parse(token, claims, SecretReset); err != nil {
		return nil, err
	}
	return claims, nil
}

// SignedSessionToken mints the bearer token returned by login.
func (ts *TokenServiceImpl) SignedSessionToken(accountID string) (string, error) {
	claims := &SessionClaims{
		RegisteredClaims: ts.registeredClaims(accountID, SecretSession),
		UID:              accountID,
	}
	return ts.sign(claims, SecretSession)
}

// VerifySessionToken validates a session token and returns its claims.
func (ts *TokenServiceImpl) VerifySessionToken(token string) (*SessionClaims, error) {
	claims := &SessionClaims{}
	if err := ts.parse(token, claims, SecretSession); err != nil {
		return nil, err
	}
	return claims, nil
}

func (ts *TokenServiceImpl) registeredClaims(subject string, kind SecretKind) jwt.RegisteredClaims {
	now := time.Now()
	return jwt.RegisteredClaims{
		Issuer:    ts.issuer,
		Subject:   subject,
		Audience:  ts.audience,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ts.ttlFor(kind))),
	}
}

func (ts *TokenServiceImpl) sign(claims jwt.Claims, kind SecretKind) (string, error) {
	secret := ts.secretFor(kind)
	if len(secret) == 0 {
		return "", goerrors.New(
			fmt.Sprintf("no signing secret configured for %s tokens", kind),
			goerrors.CategoryInternal,
		)
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signedString, err := token.SignedString(secret)
	if err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to sign JWT")
	}

	return signedString, nil
}

func (ts *TokenServiceImpl) parse(tokenString string, claims jwt.Claims, kind SecretKind) error {
	parserOptions := make([]jwt.ParserOption, 0, 2)
	if ts.issuer != "" {
		parserOptions = append(parserOptions, jwt.WithIssuer(ts.issuer))
	}
	if len(ts.audience) > 0 {
		parserOptions = append(parserOptions, jwt.WithAudience(ts.audience...))
	}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			ts.logger.Error("TokenService parse encountered unexpected signing method: %v", t.Header["alg"])
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return ts.secretFor(kind), nil
	}, parserOptions...)

	if err != nil {
		if goerrors.Is(err, jwt.ErrTokenExpired) {
			return ErrTokenExpired
		}
		return goerrors.Wrap(err, ErrTokenMalformed.Category, ErrTokenMalformed.Message).WithTextCode(ErrTokenMalformed.TextCode)
	}

	if !token.Valid {
		return ErrTokenMalformed
	}

	return nil
}

func (ts *TokenServiceImpl) secretFor(kind SecretKind) []byte {
	switch kind {
	case SecretActivation:
		return ts.secrets.Activation
	case SecretReset:
		return ts.secrets.Reset
	default:
		return ts.secrets.Session
	}
}

func (ts *TokenServiceImpl) ttlFor(kind SecretKind) time.Duration {
	switch kind {
	case SecretActivation:
		return ts.ttls.Activation
	case SecretReset:
		return ts.ttls.Reset
	default:
		return ts.ttls.Session
	}
}
