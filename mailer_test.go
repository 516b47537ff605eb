package auth_test

import (
	"context"
	"testing"

	"github.com/maria-triagni/mern-01-user-authentication"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMailRenderer(t *testing.T) {
	renderer, err := auth.NewMailRenderer()
	require.NoError(t, err)
	require.NotNil(t, renderer)

	t.Run("renders the activation template", func(t *testing.T) {
		subject, body, err := renderer.Render(auth.MailActivation, map[string]any{
			"name":           "Jane Doe",
			"activation_url": "http://localhost:3000/auth/activate/tok-123",
			"app_url":        "http://localhost:3000",
		})
		require.NoError(t, err)
		assert.Equal(t, "Account activation link", subject)
		assert.Contains(t, body, "Hi Jane Doe,")
		assert.Contains(t, body, "http://localhost:3000/auth/activate/tok-123")
		assert.Contains(t, body, "activate your account")
	})

	t.Run("renders the password reset template", func(t *testing.T) {
		subject, body, err := renderer.Render(auth.MailPasswordReset, map[string]any{
			"name":      "Jane Doe",
			"reset_url": "http://localhost:3000/auth/password/reset/tok-456",
			"app_url":   "http://localhost:3000",
		})
		require.NoError(t, err)
		assert.Equal(t, "Password reset link", subject)
		assert.Contains(t, body, "http://localhost:3000/auth/password/reset/tok-456")
		assert.Contains(t, body, "reset your password")
	})

	t.Run("rejects an unknown template", func(t *testing.T) {
		_, _, err := renderer.Render("newsletter", map[string]any{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown mail template")
	})
}

func TestNewSESMailer(t *testing.T) {
	renderer, err := auth.NewMailRenderer()
	require.NoError(t, err)

	t.Run("requires a sender address", func(t *testing.T) {
		_, err := auth.NewSESMailer(context.Background(), renderer, auth.SESMailerOptions{
			Region: "us-east-1",
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "EMAIL_FROM")
	})
}

func TestLogMailer(t *testing.T) {
	renderer, err := auth.NewMailRenderer()
	require.NoError(t, err)

	mailer := auth.NewLogMailer(renderer, MockLogger{})

	t.Run("delivers to the log", func(t *testing.T) {
		err := mailer.Send(context.Background(), auth.MailActivation, "jane@example.com", map[string]any{
			"name":           "Jane Doe",
			"activation_url": "http://localhost:3000/auth/activate/tok-123",
			"app_url":        "http://localhost:3000",
		})
		assert.NoError(t, err)
	})

	t.Run("propagates render failures", func(t *testing.T) {
		err := mailer.Send(context.Background(), "newsletter", "jane@example.com", map[string]any{})
		assert.Error(t, err)
	})

	t.Run("honors a cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		err := mailer.Send(ctx, auth.MailActivation, "jane@example.com", map[string]any{
			"name": "Jane Doe",
		})
		assert.Error(t, err)
	})
}
