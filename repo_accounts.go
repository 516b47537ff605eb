package auth

import (
	"context"
	"strings"

	"github.com/goliatone/go-repository-bun"
	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// ResetAccountPasswordSQL swaps the credential and clears the pending reset
// link in a single statement, so a consumed reset token can never be
// replayed no matter how requests interleave.
var ResetAccountPasswordSQL = `UPDATE "accounts" AS "acc"
SET
	"password_hash" = ?,
	"reset_password_link" = '',
	"updated_at" = CURRENT_TIMESTAMP
WHERE
	(
	"acc"."id" = ?
) RETURNING *;`

type Accounts interface {
	repository.Repository[*Account]

	GetByEmail(ctx context.Context, email string) (*Account, error)
	GetByEmailTx(ctx context.Context, tx bun.IDB, email string) (*Account, error)

	GetByResetToken(ctx context.Context, token string) (*Account, error)
	GetByResetTokenTx(ctx context.Context, tx bun.IDB, token string) (*Account, error)

	CreateAccount(ctx context.Context, record *Account) (*Account, error)
	CreateAccountTx(ctx context.Context, tx bun.IDB, record *Account) (*Account, error)

	StoreResetToken(ctx context.Context, id uuid.UUID, token string) (*Account, error)
	StoreResetTokenTx(ctx context.Context, tx bun.IDB, id uuid.UUID, token string) (*Account, error)

	ResetPassword(ctx context.Context, id uuid.UUID, passwordHash string) error
	ResetPasswordTx(ctx context.Context, tx bun.IDB, id uuid.UUID, passwordHash string) error

	ListAccounts(ctx context.Context) ([]*Account, error)
}

type accounts struct {
	repository.Repository[*Account]
	db *bun.DB
}

var (
	_ Accounts                        = (*accounts)(nil)
	_ repository.Repository[*Account] = (*accounts)(nil)
)

func NewAccountsRepository(db *bun.DB) Accounts {
	repo := repository.NewRepository[*Account](db, repository.ModelHandlers[*Account]{
		NewRecord: func() *Account { return &Account{} },
		GetID: func(a *Account) uuid.UUID {
			if a == nil {
				return uuid.Nil
			}
			return a.ID
		},
		SetID: func(a *Account, id uuid.UUID) {
			if a != nil {
				a.ID = id
			}
		},
		GetIdentifier: func() string {
			return "email"
		},
	})

	return &accounts{
		Repository: repo,
		db:         db,
	}
}

func (a *accounts) GetByEmail(ctx context.Context, email string) (*Account, error) {
	return a.GetByEmailTx(ctx, a.db, email)
}

func (a *accounts) GetByEmailTx(ctx context.Context, tx bun.IDB, email string) (*Account, error) {
	record := &Account{}
	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias.email = ?", email).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{
					"email": email,
				})
		}
		return nil, err
	}

	return record, nil
}

func (a *accounts) GetByResetToken(ctx context.Context, token string) (*Account, error) {
	return a.GetByResetTokenTx(ctx, a.db, token)
}

// GetByResetTokenTx finds the account whose stored reset link matches the
// token. A blank token never matches: rows without a pending reset hold an
// empty string in that column.
func (a *accounts) GetByResetTokenTx(ctx context.Context, tx bun.IDB, token string) (*Account, error) {
	if strings.TrimSpace(token) == "" {
		return nil, repository.NewRecordNotFound().
			WithMetadata(map[string]any{
				"reason": "empty reset token",
			})
	}

	record := &Account{}
	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias.reset_password_link = ?", token).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{
					"reset_password_link": token,
				})
		}
		return nil, err
	}

	return record, nil
}

func (a *accounts) CreateAccount(ctx context.Context, record *Account) (*Account, error) {
	return a.CreateAccountTx(ctx, a.db, record)
}

// CreateAccountTx inserts the account, relying on the unique email index to
// arbitrate concurrent activations. Losers of that race get
// ErrDuplicateEmail.
func (a *accounts) CreateAccountTx(ctx context.Context, tx bun.IDB, record *Account) (*Account, error) {
	prepareAccountDefaults(record)

	created, err := a.Repository.CreateTx(ctx, tx, record)
	if err != nil {
		if IsUniqueViolation(err) {
			return nil, ErrDuplicateEmail
		}
		return nil, err
	}

	return created, nil
}

func (a *accounts) StoreResetToken(ctx context.Context, id uuid.UUID, token string) (*Account, error) {
	return a.StoreResetTokenTx(ctx, a.db, id, token)
}

// StoreResetTokenTx persists the freshly minted reset token on the account.
// Each call overwrites the previous link, which is what invalidates earlier
// reset emails.
func (a *accounts) StoreResetTokenTx(ctx context.Context, tx bun.IDB, id uuid.UUID, token string) (*Account, error) {
	record := &Account{}
	record.ID = id
	record.ResetPasswordLink = token

	updated, err := a.Repository.UpdateTx(ctx, tx, record, repository.UpdateByID(id.String()))
	if err != nil {
		return nil, err
	}

	return updated, nil
}

func (a *accounts) ResetPassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	return a.ResetPasswordTx(ctx, a.db, id, passwordHash)
}

// ResetPasswordTx finalizes a reset through raw SQL.
// NOTE: Updating using the ORM fails due to a bug, it wont clear the
// reset_password_link field back to its zero value.
func (a *accounts) ResetPasswordTx(ctx context.Context, tx bun.IDB, id uuid.UUID, passwordHash string) error {
	res, err := a.Repository.RawTx(ctx, tx, ResetAccountPasswordSQL, passwordHash, id.String())
	if err != nil {
		return err
	}

	if res == nil || len(res) == 0 {
		return repository.NewRecordNotFound().
			WithMetadata(map[string]any{
				"id": id.String(),
			})
	}

	return nil
}

// ListAccounts returns every account, newest first. Backs the admin listing
// endpoint.
func (a *accounts) ListAccounts(ctx context.Context) ([]*Account, error) {
	records := []*Account{}
	err := a.db.NewSelect().
		Model(&records).
		Order("created_at DESC").
		Scan(ctx)

	if err != nil {
		return nil, err
	}

	return records, nil
}

func prepareAccountDefaults(record *Account) {
	if record == nil {
		return
	}

	if record.Role == "" {
		record.Role = RoleRegular
	}

	if record.Username == "" {
		record.Username = NewUsername(record.Email)
	}

	if record.ID == uuid.Nil {
		if id, err := hashid.NewUUID(record.Email); err == nil {
			record.ID = id
		} else {
			record.ID = uuid.New()
		}
	}
}
