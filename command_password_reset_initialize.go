package auth

import (
	"context"
	"fmt"
	"net/http"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
)

type InitializePasswordResetMessage struct {
	Email      string `json:"email"`
	OnResponse func(resp *InitializePasswordResetResponse)
}

func (e InitializePasswordResetMessage) Type() string { return "account.password_reset" }

type InitializePasswordResetResponse struct {
	Account *Account
	Token   string
	Success bool
}

// InitializePasswordResetHandler starts a password reset: it mints a reset
// token, stores it on the account, and emails the link. Storing before
// sending means a failed delivery still leaves a redeemable link, and each
// new request overwrites whatever link came before it.
type InitializePasswordResetHandler struct {
	repo   RepositoryManager
	tokens TokenService
	mailer Mailer
	appURL string
	logger Logger
}

// NewInitializePasswordResetHandler creates a handler with sane defaults.
func NewInitializePasswordResetHandler(repo RepositoryManager, tokens TokenService, mailer Mailer, appURL string) *InitializePasswordResetHandler {
	return &InitializePasswordResetHandler{
		repo:   repo,
		tokens: tokens,
		mailer: mailer,
		appURL: appURL,
		logger: defLogger{},
	}
}

// WithLogger overrides the logger used by the handler.
func (h *InitializePasswordResetHandler) WithLogger(logger Logger) *InitializePasswordResetHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

func (h *InitializePasswordResetHandler) Execute(ctx context.Context, event InitializePasswordResetMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during password reset initialization",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *InitializePasswordResetHandler) execute(ctx context.Context, event InitializePasswordResetMessage) error {
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	account, err := h.repo.Accounts().GetByEmail(ctx, event.Email)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return goerrors.New("User with that email does not exist", goerrors.CategoryNotFound).
				WithTextCode(TextCodeUserNotFound)
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve account for password reset")
	}

	token, err := h.tokens.SignedResetToken(account.Name)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to sign reset token")
	}

	if _, err = h.repo.Accounts().StoreResetToken(ctx, account.ID, token); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "Database connection error on user password forgot request")
	}
	account.ResetPasswordLink = token

	vars := map[string]any{
		"name":      account.Name,
		"reset_url": fmt.Sprintf("%s/auth/password/reset/%s", h.appURL, token),
		"app_url":   h.appURL,
	}

	if err := h.mailer.Send(ctx, MailPasswordReset, event.Email, vars); err != nil {
		h.logger.Error("password reset email delivery failed for %s: %v", event.Email, err)
		return goerrors.Wrap(
			err,
			goerrors.CategoryOperation,
			fmt.Sprintf("We could not send the password reset email to %s. Please try again", event.Email),
		).
			WithTextCode(TextCodeEmailDelivery).
			WithCode(http.StatusUnprocessableEntity)
	}

	if event.OnResponse != nil {
		event.OnResponse(&InitializePasswordResetResponse{
			Account: account,
			Token:   token,
			Success: true,
		})
	}

	return nil
}
