package auth

import (
	"bytes"
	"context"
	"io/fs"
	"net/http"

	"github.com/gofiber/template/django/v3"
	goerrors "github.com/goliatone/go-errors"
)

// Notification template names. Each maps to an embedded HTML body and a
// subject line.
const (
	MailActivation    = "activation"
	MailPasswordReset = "password_reset"
)

var mailSubjects = map[string]string{
	MailActivation:    "Account activation link",
	MailPasswordReset: "Password reset link",
}

// MailRenderer renders the embedded django templates that back every
// outgoing notification.
type MailRenderer struct {
	engine *django.Engine
}

// NewMailRenderer loads the embedded templates. Loading happens once; a
// template error is a startup failure, not a per-request one.
func NewMailRenderer() (*MailRenderer, error) {
	sub, err := fs.Sub(templatesFS, "data/templates")
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to open embedded templates")
	}

	engine := django.NewFileSystem(http.FS(sub), ".html")
	if err := engine.Load(); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load mail templates")
	}

	return &MailRenderer{engine: engine}, nil
}

// Render produces the subject and HTML body for a named template.
func (r *MailRenderer) Render(template string, vars map[string]any) (string, string, error) {
	subject, ok := mailSubjects[template]
	if !ok {
		return "", "", goerrors.New("unknown mail template", goerrors.CategoryBadInput).
			WithMetadata(map[string]any{
				"template": template,
			})
	}

	var buf bytes.Buffer
	if err := r.engine.Render(&buf, template, vars); err != nil {
		return "", "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to render mail template").
			WithMetadata(map[string]any{
				"template": template,
			})
	}

	return subject, buf.String(), nil
}

// LogMailer writes rendered notifications to the logger instead of
// delivering them. It backs local development, where the activation and
// reset links are lifted straight from the process output.
type LogMailer struct {
	renderer *MailRenderer
	logger   Logger
}

func NewLogMailer(renderer *MailRenderer, logger Logger) *LogMailer {
	if logger == nil {
		logger = defLogger{}
	}
	return &LogMailer{
		renderer: renderer,
		logger:   logger,
	}
}

func (m *LogMailer) Send(ctx context.Context, template, to string, vars map[string]any) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(ctx.Err(), goerrors.CategoryOperation, "context cancelled during email delivery")
	default:
	}

	subject, body, err := m.renderer.Render(template, vars)
	if err != nil {
		return err
	}

	m.logger.Info("====== EMAIL NOTIFICATION ======")
	m.logger.Info("to: %s", to)
	m.logger.Info("subject: %s", subject)
	m.logger.Debug("%s", body)
	m.logger.Info("================================")

	return nil
}

var (
	_ Mailer = (*LogMailer)(nil)
	_ Mailer = (*SESMailer)(nil)
)
