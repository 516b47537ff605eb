package auth

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
	goerrors "github.com/goliatone/go-errors"
)

// SESMailer delivers notifications through AWS SESv2.
type SESMailer struct {
	client   *sesv2.Client
	renderer *MailRenderer
	from     string
	logger   Logger
}

// SESMailerOptions configures the SES client. Static credentials are
// optional; when absent the default AWS credential chain applies.
type SESMailerOptions struct {
	Region    string
	From      string
	AccessKey string
	SecretKey string
	Logger    Logger
}

func NewSESMailer(ctx context.Context, renderer *MailRenderer, opts SESMailerOptions) (*SESMailer, error) {
	if opts.Logger == nil {
		opts.Logger = defLogger{}
	}

	if opts.From == "" {
		return nil, goerrors.New("SES mailer requires a sender address, set EMAIL_FROM", goerrors.CategoryValidation)
	}

	loadOptions := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(opts.Region),
	}

	if opts.AccessKey != "" && opts.SecretKey != "" {
		loadOptions = append(loadOptions, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(
				opts.AccessKey,
				opts.SecretKey,
				"",
			)))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOptions...)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load AWS configuration")
	}

	return &SESMailer{
		client:   sesv2.NewFromConfig(cfg),
		renderer: renderer,
		from:     opts.From,
		logger:   opts.Logger,
	}, nil
}

func (m *SESMailer) Send(ctx context.Context, template, to string, vars map[string]any) error {
	subject, body, err := m.renderer.Render(template, vars)
	if err != nil {
		return err
	}

	_, err = m.client.SendEmail(ctx, &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(m.from),
		Destination: &types.Destination{
			ToAddresses: []string{to},
		},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{
					Data:    aws.String(subject),
					Charset: aws.String("UTF-8"),
				},
				Body: &types.Body{
					Html: &types.Content{
						Data:    aws.String(body),
						Charset: aws.String("UTF-8"),
					},
				},
			},
		},
	})

	if err != nil {
		m.logger.Error("SES delivery failed for template %s: %v", template, err)
		return goerrors.Wrap(err, goerrors.CategoryOperation, "email delivery failed").
			WithTextCode(TextCodeEmailDelivery)
	}

	return nil
}
