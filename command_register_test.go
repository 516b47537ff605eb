package auth_test

import (
	"context"
	"errors"
	"net/http"
	"testing"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/maria-triagni/mern-01-user-authentication"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterHandler(t *testing.T) {
	ctx := context.Background()

	t.Run("emails an activation link without creating a row", func(t *testing.T) {
		repo := newTestRepo(t)
		tokens := newTestTokens()
		mailer := &capturingMailer{}

		var resp *auth.RegisterResponse
		handler := auth.NewRegisterHandler(repo, tokens, mailer, "http://localhost:3000").WithLogger(MockLogger{})

		err := handler.Execute(ctx, auth.RegisterMessage{
			Name:     "Jane Doe",
			Email:    "jane@example.com",
			Password: "secret123",
			OnResponse: func(r *auth.RegisterResponse) {
				resp = r
			},
		})
		require.NoError(t, err)
		require.NotNil(t, resp)
		assert.True(t, resp.Success)
		assert.Equal(t, "jane@example.com", resp.Email)

		// The pending registration travels inside the token
		claims, err := tokens.VerifyActivationToken(resp.Token)
		require.NoError(t, err)
		assert.Equal(t, "Jane Doe", claims.Name)
		assert.Equal(t, "jane@example.com", claims.Email)
		assert.Equal(t, "secret123", claims.Password)

		mail, ok := mailer.Last()
		require.True(t, ok)
		assert.Equal(t, auth.MailActivation, mail.Template)
		assert.Equal(t, "jane@example.com", mail.To)
		assert.Contains(t, mail.Vars["activation_url"], resp.Token)

		// No account row exists until the token is redeemed
		_, err = repo.Accounts().GetByEmail(ctx, "jane@example.com")
		require.Error(t, err)
		assert.True(t, repository.IsRecordNotFound(err))
	})

	t.Run("rejects an email that is already registered", func(t *testing.T) {
		repo := newTestRepo(t)
		seedAccount(t, repo, "Jane Doe", "jane@example.com", "secret123")
		mailer := &capturingMailer{}

		handler := auth.NewRegisterHandler(repo, newTestTokens(), mailer, "http://localhost:3000").WithLogger(MockLogger{})
		err := handler.Execute(ctx, auth.RegisterMessage{
			Name:     "Jane Clone",
			Email:    "jane@example.com",
			Password: "secret123",
		})

		require.Error(t, err)
		assert.ErrorIs(t, err, auth.ErrDuplicateEmail)
		assert.Empty(t, mailer.Sent())
	})

	t.Run("fails when the email can not be delivered", func(t *testing.T) {
		repo := newTestRepo(t)
		mailer := &capturingMailer{fail: errors.New("smtp down")}

		handler := auth.NewRegisterHandler(repo, newTestTokens(), mailer, "http://localhost:3000").WithLogger(MockLogger{})
		err := handler.Execute(ctx, auth.RegisterMessage{
			Name:     "Jane Doe",
			Email:    "jane@example.com",
			Password: "secret123",
		})

		require.Error(t, err)

		var richErr *goerrors.Error
		require.True(t, goerrors.As(err, &richErr))
		assert.Equal(t, auth.TextCodeEmailDelivery, richErr.TextCode)
		assert.Equal(t, http.StatusUnprocessableEntity, richErr.Code)
		assert.Contains(t, richErr.Message, "We could not send the verification email to jane@example.com")

		// Still no account row
		_, err = repo.Accounts().GetByEmail(ctx, "jane@example.com")
		require.Error(t, err)
		assert.True(t, repository.IsRecordNotFound(err))
	})

	t.Run("propagates a cancelled context", func(t *testing.T) {
		repo := newTestRepo(t)
		cancelled, cancel := context.WithCancel(ctx)
		cancel()

		handler := auth.NewRegisterHandler(repo, newTestTokens(), &capturingMailer{}, "http://localhost:3000").WithLogger(MockLogger{})
		err := handler.Execute(cancelled, auth.RegisterMessage{
			Name:     "Jane Doe",
			Email:    "jane@example.com",
			Password: "secret123",
		})

		assert.Error(t, err)
	})
}
