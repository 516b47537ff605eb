package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/joho/godotenv"
	"github.com/maria-triagni/mern-01-user-authentication"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/driver/sqliteshim"
	"go.uber.org/zap"
)

func main() {
	// .env is optional; deployments configure through the environment.
	_ = godotenv.Load()

	cfg, err := auth.LoadConfig()
	if err != nil {
		log.Fatal(fmt.Errorf("error loading config: %w", err))
	}

	zl, err := newZapLogger(cfg.Debug)
	if err != nil {
		log.Fatal(fmt.Errorf("error initializing logger: %w", err))
	}
	defer zl.Sync()

	logger := &zapLogger{sugar: zl.Sugar()}

	ctx := context.Background()

	db, err := openDatabase(cfg.DatabaseURL)
	if err != nil {
		zl.Fatal("error initializing DB connection", zap.Error(err))
	}

	if err := auth.CreateSchema(ctx, db); err != nil {
		zl.Fatal("error creating schema", zap.Error(err))
	}

	repo := auth.NewRepositoryManager(db)
	if err := repo.Validate(); err != nil {
		zl.Fatal("error validating repositories", zap.Error(err))
	}

	tokens := auth.NewTokenService(cfg.TokenSecrets(), cfg.TokenTTLs(), cfg.TokenIssuer, nil, logger)

	mailer, err := buildMailer(ctx, cfg, logger)
	if err != nil {
		zl.Fatal("error initializing mailer", zap.Error(err))
	}

	app := fiber.New(fiber.Config{
		AppName: "mern-01-user-authentication",
	})

	api := app.Group("/api")

	auth.RegisterAuthRoutes(api,
		auth.WithControllerRepo(repo),
		auth.WithControllerTokens(tokens),
		auth.WithControllerMailer(mailer),
		auth.WithControllerAppURL(cfg.AppURL),
		auth.WithControllerAuthErrStatus(cfg.AuthErrStatus),
		auth.WithControllerLogger(logger),
		auth.WithControllerDebug(cfg.Debug),
	)

	gate := auth.GateConfig{
		Tokens: tokens,
		Repo:   repo,
		Logger: logger,
	}

	api.Get("/user/profile", auth.RequireSignIn(gate), auth.RequireAccount(gate), profileShow())
	api.Get("/admin/users", auth.RequireSignIn(gate), auth.RequireAdmin(gate), adminUsersIndex(repo))

	go func() {
		if err := app.Listen(cfg.ServerAddress); err != nil {
			zl.Fatal("shutting down the server", zap.Error(err))
		}
	}()

	WaitExitSignal()

	if err := app.Shutdown(); err != nil {
		zl.Error("error shutting down the server", zap.Error(err))
	}
}

// profileShow returns the signed in account. RequireAccount already resolved
// it from the session claims.
func profileShow() fiber.Handler {
	return func(c *fiber.Ctx) error {
		account, ok := auth.AccountFromFiber(c)
		if !ok {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "User not found",
			})
		}

		return c.JSON(fiber.Map{
			"user": account.Public(),
		})
	}
}

// adminUsersIndex lists every account, newest first. RequireAdmin gates it.
func adminUsersIndex(repo auth.RepositoryManager) fiber.Handler {
	return func(c *fiber.Ctx) error {
		accounts, err := repo.Accounts().ListAccounts(c.UserContext())
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Something went wrong. Try later",
			})
		}

		users := make([]auth.PublicAccount, 0, len(accounts))
		for _, account := range accounts {
			users = append(users, account.Public())
		}

		return c.JSON(fiber.Map{
			"users": users,
		})
	}
}

func newZapLogger(debugMode bool) (l *zap.Logger, err error) {
	if debugMode {
		l, err = zap.NewDevelopment()
	} else {
		l, err = zap.NewProduction()
	}
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	return l, nil
}

// zapLogger adapts the zap sugared logger to the printf contract the auth
// package logs through.
type zapLogger struct {
	sugar *zap.SugaredLogger
}

func (l *zapLogger) Debug(format string, args ...any) { l.sugar.Debugf(format, args...) }
func (l *zapLogger) Info(format string, args ...any)  { l.sugar.Infof(format, args...) }
func (l *zapLogger) Warn(format string, args ...any)  { l.sugar.Warnf(format, args...) }
func (l *zapLogger) Error(format string, args ...any) { l.sugar.Errorf(format, args...) }

// openDatabase picks the driver from the DSN: postgres URLs go through
// pgdriver, everything else is treated as a SQLite path.
func openDatabase(dsn string) (*bun.DB, error) {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
		return bun.NewDB(sqldb, pgdialect.New()), nil
	}

	sqldb, err := sql.Open(sqliteshim.ShimName, dsn)
	if err != nil {
		return nil, err
	}

	return bun.NewDB(sqldb, sqlitedialect.New()), nil
}

func buildMailer(ctx context.Context, cfg *auth.Config, logger auth.Logger) (auth.Mailer, error) {
	renderer, err := auth.NewMailRenderer()
	if err != nil {
		return nil, err
	}

	if cfg.MailerDriver == "ses" {
		return auth.NewSESMailer(ctx, renderer, auth.SESMailerOptions{
			Region:    cfg.AWSRegion,
			From:      cfg.EmailFrom,
			AccessKey: cfg.AWSAccessKey,
			SecretKey: cfg.AWSSecretKey,
			Logger:    logger,
		})
	}

	return auth.NewLogMailer(renderer, logger), nil
}

func WaitExitSignal() os.Signal {
	ch := make(chan os.Signal, 3)
	signal.Notify(ch,
		syscall.SIGINT,
		syscall.SIGQUIT,
		syscall.SIGTERM,
	)
	return <-ch
}
