package auth

import (
	"context"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
)

// Auther verifies credentials and issues session tokens.
type Auther struct {
	repo   RepositoryManager
	tokens TokenService
	logger Logger
}

// NewAuthenticator returns a new Auther
func NewAuthenticator(repo RepositoryManager, tokens TokenService) *Auther {
	return &Auther{
		repo:   repo,
		tokens: tokens,
		logger: defLogger{},
	}
}

// WithLogger overrides the logger used by the authenticator.
func (s *Auther) WithLogger(logger Logger) *Auther {
	if logger != nil {
		s.logger = logger
	}
	return s
}

// Login verifies the email and password pair and returns a signed session
// token plus the matched account. The password check happens before any
// token is minted; a mismatch never reaches issuance.
func (s *Auther) Login(ctx context.Context, email, password string) (string, *Account, error) {
	account, err := s.repo.Accounts().GetByEmail(ctx, email)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return "", nil, goerrors.New("User with that email does not exist. Please signup", goerrors.CategoryNotFound).
				WithTextCode(TextCodeUserNotFound)
		}
		return "", nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve account")
	}

	if err := ComparePasswordAndHash(password, account.PasswordHash); err != nil {
		s.logger.Debug("login rejected for %s: password and hash mismatch", email)
		return "", nil, ErrMismatchedHashAndPassword
	}

	token, err := s.tokens.SignedSessionToken(account.ID.String())
	if err != nil {
		return "", nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to sign session token")
	}

	return token, account, nil
}
