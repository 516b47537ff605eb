package auth

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

// Config holds the environment driven service settings.
type Config struct {
	ServerAddress string
	AppURL        string
	DatabaseURL   string

	ActivationSecret string
	ResetSecret      string
	SessionSecret    string

	ActivationTokenTTL time.Duration
	ResetTokenTTL      time.Duration
	SessionTokenTTL    time.Duration

	TokenIssuer string

	AuthErrStatus int

	EmailFrom    string
	AWSRegion    string
	AWSAccessKey string
	AWSSecretKey string
	// MailerDriver picks the delivery backend: "ses" or "log".
	MailerDriver string

	Debug bool
}

// LoadConfig reads the configuration from the environment. The three token
// secrets are required and have no defaults; every other setting falls back
// to a development friendly value.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		ServerAddress:      getenv("SERVER_ADDRESS", ":8000"),
		AppURL:             strings.TrimRight(getenv("APP_URL", "http://localhost:3000"), "/"),
		DatabaseURL:        getenv("DATABASE_URL", "file:auth.db?cache=shared"),
		ActivationSecret:   os.Getenv("JWT_ACCOUNT_ACTIVATION"),
		ResetSecret:        os.Getenv("JWT_RESET_PASSWORD"),
		SessionSecret:      os.Getenv("JWT_SECRET"),
		ActivationTokenTTL: getdur("ACTIVATION_TOKEN_TTL", 15*time.Minute),
		ResetTokenTTL:      getdur("RESET_TOKEN_TTL", time.Hour),
		SessionTokenTTL:    getdur("SESSION_TOKEN_TTL", 7*24*time.Hour),
		TokenIssuer:        getenv("TOKEN_ISSUER", "mern-01-user-authentication"),
		AuthErrStatus:      getint("AUTH_ERROR_STATUS", 400),
		EmailFrom:          os.Getenv("EMAIL_FROM"),
		AWSRegion:          getenv("AWS_REGION", "us-east-1"),
		AWSAccessKey:       os.Getenv("AWS_ACCESS_KEY_ID"),
		AWSSecretKey:       os.Getenv("AWS_SECRET_ACCESS_KEY"),
		MailerDriver:       getenv("MAILER_DRIVER", "log"),
		Debug:              getbool("DEBUG", false),
	}

	missing := []string{}
	if cfg.ActivationSecret == "" {
		missing = append(missing, "JWT_ACCOUNT_ACTIVATION")
	}
	if cfg.ResetSecret == "" {
		missing = append(missing, "JWT_RESET_PASSWORD")
	}
	if cfg.SessionSecret == "" {
		missing = append(missing, "JWT_SECRET")
	}
	if cfg.MailerDriver == "ses" && cfg.EmailFrom == "" {
		missing = append(missing, "EMAIL_FROM")
	}

	if len(missing) > 0 {
		return nil, goerrors.New(
			fmt.Sprintf("missing required environment variables: %s", strings.Join(missing, ", ")),
			goerrors.CategoryValidation,
		)
	}

	return cfg, nil
}

// TokenSecrets returns the signing keys grouped per token kind.
func (c *Config) TokenSecrets() TokenSecrets {
	return TokenSecrets{
		Activation: []byte(c.ActivationSecret),
		Reset:      []byte(c.ResetSecret),
		Session:    []byte(c.SessionSecret),
	}
}

// TokenTTLs returns the token lifetimes grouped per token kind.
func (c *Config) TokenTTLs() TokenTTLs {
	return TokenTTLs{
		Activation: c.ActivationTokenTTL,
		Reset:      c.ResetTokenTTL,
		Session:    c.SessionTokenTTL,
	}
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getdur(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}

func getint(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func getbool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}
