package auth_test

import (
	"context"
	"testing"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/maria-triagni/mern-01-user-authentication"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFinalizePasswordResetHandler(t *testing.T) {
	ctx := context.Background()

	t.Run("consumes the link and swaps the credential", func(t *testing.T) {
		repo := newTestRepo(t)
		tokens := newTestTokens()

		seeded := seedAccount(t, repo, "Jane Doe", "jane@example.com", "old-password")

		token, err := tokens.SignedResetToken(seeded.Name)
		require.NoError(t, err)
		_, err = repo.Accounts().StoreResetToken(ctx, seeded.ID, token)
		require.NoError(t, err)

		var resp *auth.Account
		handler := auth.NewFinalizePasswordResetHandler(repo, tokens).WithLogger(MockLogger{})
		err = handler.Execute(ctx, auth.FinalizePasswordResetMessage{
			ResetPasswordLink: token,
			NewPassword:       "new-password",
			OnResponse: func(account *auth.Account) {
				resp = account
			},
		})
		require.NoError(t, err)
		require.NotNil(t, resp)
		assert.Empty(t, resp.ResetPasswordLink)

		account, err := repo.Accounts().GetByEmail(ctx, "jane@example.com")
		require.NoError(t, err)
		assert.Empty(t, account.ResetPasswordLink)
		assert.NoError(t, auth.ComparePasswordAndHash("new-password", account.PasswordHash))
		assert.Error(t, auth.ComparePasswordAndHash("old-password", account.PasswordHash))
	})

	t.Run("a consumed link can not be replayed", func(t *testing.T) {
		repo := newTestRepo(t)
		tokens := newTestTokens()

		seeded := seedAccount(t, repo, "Jane Doe", "jane@example.com", "old-password")

		token, err := tokens.SignedResetToken(seeded.Name)
		require.NoError(t, err)
		_, err = repo.Accounts().StoreResetToken(ctx, seeded.ID, token)
		require.NoError(t, err)

		handler := auth.NewFinalizePasswordResetHandler(repo, tokens).WithLogger(MockLogger{})
		require.NoError(t, handler.Execute(ctx, auth.FinalizePasswordResetMessage{
			ResetPasswordLink: token,
			NewPassword:       "new-password",
		}))

		err = handler.Execute(ctx, auth.FinalizePasswordResetMessage{
			ResetPasswordLink: token,
			NewPassword:       "stolen-password",
		})
		require.Error(t, err)

		var richErr *goerrors.Error
		require.True(t, goerrors.As(err, &richErr))
		assert.Equal(t, auth.TextCodeResetNotFound, richErr.TextCode)
		assert.Equal(t, "Something went wrong. Try later", richErr.Message)

		// the replay changed nothing
		account, err := repo.Accounts().GetByEmail(ctx, "jane@example.com")
		require.NoError(t, err)
		assert.NoError(t, auth.ComparePasswordAndHash("new-password", account.PasswordHash))
	})

	t.Run("a replaced link no longer works", func(t *testing.T) {
		repo := newTestRepo(t)
		tokens := newTestTokens()

		seeded := seedAccount(t, repo, "Jane Doe", "jane@example.com", "old-password")

		stale, err := tokens.SignedResetToken(seeded.Name)
		require.NoError(t, err)
		_, err = repo.Accounts().StoreResetToken(ctx, seeded.ID, stale)
		require.NoError(t, err)

		// mint the replacement with a different TTL so the payloads
		// differ even inside the same second
		replacement, err := auth.NewTokenService(testSecrets(), auth.TokenTTLs{
			Activation: time.Minute * 15,
			Reset:      time.Hour * 2,
			Session:    time.Hour * 24,
		}, "auth-test", nil, MockLogger{}).SignedResetToken(seeded.Name)
		require.NoError(t, err)
		require.NotEqual(t, stale, replacement)
		_, err = repo.Accounts().StoreResetToken(ctx, seeded.ID, replacement)
		require.NoError(t, err)

		handler := auth.NewFinalizePasswordResetHandler(repo, tokens).WithLogger(MockLogger{})
		err = handler.Execute(ctx, auth.FinalizePasswordResetMessage{
			ResetPasswordLink: stale,
			NewPassword:       "new-password",
		})
		require.Error(t, err)

		var richErr *goerrors.Error
		require.True(t, goerrors.As(err, &richErr))
		assert.Equal(t, auth.TextCodeResetNotFound, richErr.TextCode)
	})

	t.Run("rejects an expired link", func(t *testing.T) {
		repo := newTestRepo(t)
		tokens := newTestTokens()

		seeded := seedAccount(t, repo, "Jane Doe", "jane@example.com", "old-password")

		expired := auth.NewTokenService(testSecrets(), auth.TokenTTLs{
			Activation: time.Minute * 15,
			Reset:      -time.Hour,
			Session:    time.Hour * 24,
		}, "auth-test", nil, MockLogger{})

		token, err := expired.SignedResetToken(seeded.Name)
		require.NoError(t, err)
		_, err = repo.Accounts().StoreResetToken(ctx, seeded.ID, token)
		require.NoError(t, err)

		handler := auth.NewFinalizePasswordResetHandler(repo, tokens).WithLogger(MockLogger{})
		err = handler.Execute(ctx, auth.FinalizePasswordResetMessage{
			ResetPasswordLink: token,
			NewPassword:       "new-password",
		})
		require.Error(t, err)

		var richErr *goerrors.Error
		require.True(t, goerrors.As(err, &richErr))
		assert.Equal(t, auth.TextCodeTokenExpired, richErr.TextCode)
		assert.Equal(t, "Expired link. Try again", richErr.Message)

		// password untouched
		account, err := repo.Accounts().GetByEmail(ctx, "jane@example.com")
		require.NoError(t, err)
		assert.NoError(t, auth.ComparePasswordAndHash("old-password", account.PasswordHash))
	})

	t.Run("rejects a token that was never stored", func(t *testing.T) {
		repo := newTestRepo(t)
		tokens := newTestTokens()

		seedAccount(t, repo, "Jane Doe", "jane@example.com", "old-password")

		token, err := tokens.SignedResetToken("Jane Doe")
		require.NoError(t, err)

		handler := auth.NewFinalizePasswordResetHandler(repo, tokens).WithLogger(MockLogger{})
		err = handler.Execute(ctx, auth.FinalizePasswordResetMessage{
			ResetPasswordLink: token,
			NewPassword:       "new-password",
		})
		require.Error(t, err)

		var richErr *goerrors.Error
		require.True(t, goerrors.As(err, &richErr))
		assert.Equal(t, auth.TextCodeResetNotFound, richErr.TextCode)
	})
}
