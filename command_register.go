package auth

import (
	"context"
	"fmt"
	"net/http"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
)

type RegisterMessage struct {
	Name       string `json:"name"`
	Email      string `json:"email"`
	Password   string `json:"password"`
	OnResponse func(resp *RegisterResponse)
}

func (e RegisterMessage) Type() string { return "account.register" }

type RegisterResponse struct {
	Email   string
	Token   string
	Success bool
}

// RegisterHandler starts a registration. It creates no rows: the pending
// name, email, and password are sealed inside a signed activation token and
// emailed to the applicant. Until that token is redeemed the registration
// exists only in the recipient's inbox.
type RegisterHandler struct {
	repo   RepositoryManager
	tokens TokenService
	mailer Mailer
	appURL string
	logger Logger
}

// NewRegisterHandler creates a handler with sane defaults.
func NewRegisterHandler(repo RepositoryManager, tokens TokenService, mailer Mailer, appURL string) *RegisterHandler {
	return &RegisterHandler{
		repo:   repo,
		tokens: tokens,
		mailer: mailer,
		appURL: appURL,
		logger: defLogger{},
	}
}

// WithLogger overrides the logger used by the handler.
func (h *RegisterHandler) WithLogger(logger Logger) *RegisterHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

func (h *RegisterHandler) Execute(ctx context.Context, event RegisterMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during registration",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *RegisterHandler) execute(ctx context.Context, event RegisterMessage) error {
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	if _, err := h.repo.Accounts().GetByEmail(ctx, event.Email); err == nil {
		return ErrDuplicateEmail
	} else if !repository.IsRecordNotFound(err) {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to check for existing account")
	}

	token, err := h.tokens.SignedActivationToken(event.Name, event.Email, event.Password)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to sign activation token")
	}

	vars := map[string]any{
		"name":           event.Name,
		"activation_url": fmt.Sprintf("%s/auth/activate/%s", h.appURL, token),
		"app_url":        h.appURL,
	}

	if err := h.mailer.Send(ctx, MailActivation, event.Email, vars); err != nil {
		h.logger.Error("activation email delivery failed for %s: %v", event.Email, err)
		return goerrors.Wrap(
			err,
			goerrors.CategoryOperation,
			fmt.Sprintf("We could not send the verification email to %s. Please try again", event.Email),
		).
			WithTextCode(TextCodeEmailDelivery).
			WithCode(http.StatusUnprocessableEntity)
	}

	if event.OnResponse != nil {
		event.OnResponse(&RegisterResponse{
			Email:   event.Email,
			Token:   token,
			Success: true,
		})
	}

	return nil
}
