package auth_test

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/maria-triagni/mern-01-user-authentication"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

// MockLogger implements auth.Logger and swallows everything.
type MockLogger struct{}

func (MockLogger) Debug(format string, args ...any) {}
func (MockLogger) Info(format string, args ...any)  {}
func (MockLogger) Warn(format string, args ...any)  {}
func (MockLogger) Error(format string, args ...any) {}

// sentMail captures one delivery request made through the mailer.
type sentMail struct {
	Template string
	To       string
	Vars     map[string]any
}

// capturingMailer records deliveries instead of sending them. Setting fail
// makes every Send return that error.
type capturingMailer struct {
	mu   sync.Mutex
	sent []sentMail
	fail error
}

func (m *capturingMailer) Send(ctx context.Context, template, to string, vars map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.fail != nil {
		return m.fail
	}

	m.sent = append(m.sent, sentMail{Template: template, To: to, Vars: vars})
	return nil
}

func (m *capturingMailer) Sent() []sentMail {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]sentMail, len(m.sent))
	copy(out, m.sent)
	return out
}

func (m *capturingMailer) Last() (sentMail, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.sent) == 0 {
		return sentMail{}, false
	}
	return m.sent[len(m.sent)-1], true
}

var _ auth.Mailer = (*capturingMailer)(nil)

// newTestDB opens a uniquely named in-memory SQLite database so tests never
// share state, and creates the accounts schema on it.
func newTestDB(t *testing.T) *bun.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.New().String())
	sqldb, err := sql.Open(sqliteshim.ShimName, dsn)
	require.NoError(t, err)

	db := bun.NewDB(sqldb, sqlitedialect.New())
	require.NoError(t, auth.CreateSchema(context.Background(), db))

	t.Cleanup(func() {
		db.Close()
	})

	return db
}

func newTestRepo(t *testing.T) auth.RepositoryManager {
	t.Helper()
	return auth.NewRepositoryManager(newTestDB(t))
}

func testSecrets() auth.TokenSecrets {
	return auth.TokenSecrets{
		Activation: []byte("activation-test-secret"),
		Reset:      []byte("reset-test-secret"),
		Session:    []byte("session-test-secret"),
	}
}

func testTTLs() auth.TokenTTLs {
	return auth.TokenTTLs{
		Activation: 15 * time.Minute,
		Reset:      time.Hour,
		Session:    7 * 24 * time.Hour,
	}
}

func newTestTokens() auth.TokenService {
	return auth.NewTokenService(testSecrets(), testTTLs(), "auth-test", nil, MockLogger{})
}

// seedAccount inserts an already activated account holding a real hash of
// the given password.
func seedAccount(t *testing.T, repo auth.RepositoryManager, name, email, password string) *auth.Account {
	t.Helper()

	hash, err := auth.HashPassword(password)
	require.NoError(t, err)

	account, err := repo.Accounts().CreateAccount(context.Background(), &auth.Account{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
	})
	require.NoError(t, err)

	return account
}

// seedAdmin is seedAccount with the admin role.
func seedAdmin(t *testing.T, repo auth.RepositoryManager, name, email, password string) *auth.Account {
	t.Helper()

	hash, err := auth.HashPassword(password)
	require.NoError(t, err)

	account, err := repo.Accounts().CreateAccount(context.Background(), &auth.Account{
		Name:         name,
		Email:        email,
		Role:         auth.RoleAdmin,
		PasswordHash: hash,
	})
	require.NoError(t, err)

	return account
}
