package auth

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"
)

type ActivateMessage struct {
	Token      string `json:"token"`
	OnResponse func(account *Account)
}

func (e ActivateMessage) Type() string { return "account.activate" }

// ActivateHandler redeems an activation token and creates the account it
// carries. The pre-insert email check closes most of the window where two
// tokens for the same address race each other; the unique email index
// settles the rest.
type ActivateHandler struct {
	repo   RepositoryManager
	tokens TokenService
	logger Logger
}

// NewActivateHandler creates a handler with sane defaults.
func NewActivateHandler(repo RepositoryManager, tokens TokenService) *ActivateHandler {
	return &ActivateHandler{
		repo:   repo,
		tokens: tokens,
		logger: defLogger{},
	}
}

// WithLogger overrides the logger used by the handler.
func (h *ActivateHandler) WithLogger(logger Logger) *ActivateHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

func (h *ActivateHandler) Execute(ctx context.Context, event ActivateMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during account activation",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *ActivateHandler) execute(ctx context.Context, event ActivateMessage) error {
	account := &Account{}

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	claims, err := h.tokens.VerifyActivationToken(event.Token)
	if err != nil {
		h.logger.Warn("activation token rejected: %v", err)
		// pinned status: activation rejections do not follow the
		// configurable auth failure code
		return goerrors.New("Expired link. Signup again", goerrors.CategoryAuth).
			WithTextCode(TextCodeActivationExpired).
			WithCode(goerrors.CodeUnauthorized)
	}

	err = h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := h.repo.Accounts().GetByEmailTx(ctx, tx, claims.Email); err == nil {
			return ErrDuplicateEmail
		} else if !repository.IsRecordNotFound(err) {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to check for existing account")
		}

		hash, err := HashPassword(claims.Password)
		if err != nil {
			var richErr *goerrors.Error
			if goerrors.As(err, &richErr) {
				return goerrors.Wrap(richErr, goerrors.CategoryValidation, "invalid password provided")
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash password")
		}

		account.Name = claims.Name
		account.Email = claims.Email
		account.Username = NewUsername(claims.Email)
		account.PasswordHash = hash

		if account, err = h.repo.Accounts().CreateAccountTx(ctx, tx, account); err != nil {
			var richErr *goerrors.Error
			if goerrors.As(err, &richErr) && richErr.TextCode == TextCodeDuplicateEmail {
				return err
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "Error saving user in database. Try signup again")
		}

		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "account activation transaction failed")
	}

	if event.OnResponse != nil {
		event.OnResponse(account)
	}

	return nil
}
