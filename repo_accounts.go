package auth

import (
	"context"
	"database/sql"
	"errors"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
)

// ResetAccountPasswordSQL replaces the stored digest without touching
// confirmation state. Recovery is orthogonal to confirmation.
var ResetAccountPasswordSQL = `UPDATE "accounts" AS "acc"
SET
	"password_hash" = ?,
	"modified_at" = CURRENT_TIMESTAMP
WHERE
	"acc"."id" = ?;`

// Accounts is the persistence surface the lifecycle and session gateway
// consume. Email lookups are case-sensitive exact matches; uniqueness is
// ultimately enforced by the storage-layer constraints.
type Accounts interface {
	GetByID(ctx context.Context, id int64) (*Account, error)
	GetByIDTx(ctx context.Context, tx bun.IDB, id int64) (*Account, error)
	GetByEmail(ctx context.Context, email string) (*Account, error)
	GetByEmailTx(ctx context.Context, tx bun.IDB, email string) (*Account, error)

	Create(ctx context.Context, record *Account) (*Account, error)
	CreateTx(ctx context.Context, tx bun.IDB, record *Account) (*Account, error)
	Update(ctx context.Context, record *Account) (*Account, error)
	UpdateTx(ctx context.Context, tx bun.IDB, record *Account) (*Account, error)

	MarkConfirmed(ctx context.Context, record *Account, at time.Time) (*Account, error)
	MarkConfirmedTx(ctx context.Context, tx bun.IDB, record *Account, at time.Time) (*Account, error)

	ResetPassword(ctx context.Context, id int64, passwordHash string) error
	ResetPasswordTx(ctx context.Context, tx bun.IDB, id int64, passwordHash string) error
}

type accounts struct {
	db *bun.DB
}

var _ Accounts = (*accounts)(nil)

func NewAccountsRepository(db *bun.DB) Accounts {
	return &accounts{db: db}
}

func (a *accounts) GetByID(ctx context.Context, id int64) (*Account, error) {
	return a.GetByIDTx(ctx, a.db, id)
}

func (a *accounts) GetByIDTx(ctx context.Context, tx bun.IDB, id int64) (*Account, error) {
	record := &Account{}
	err := tx.NewSelect().
		Model(record).
		Relation("Identity").
		Where("?TableAlias.id = ?", id).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, NewRecordNotFound("account").
				WithMetadata(map[string]any{"id": id})
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load account")
	}

	return record, nil
}

func (a *accounts) GetByEmail(ctx context.Context, email string) (*Account, error) {
	return a.GetByEmailTx(ctx, a.db, email)
}

func (a *accounts) GetByEmailTx(ctx context.Context, tx bun.IDB, email string) (*Account, error) {
	record := &Account{}
	err := tx.NewSelect().
		Model(record).
		Relation("Identity").
		Where("?TableAlias.email = ?", email).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, NewRecordNotFound("account").
				WithMetadata(map[string]any{"email": email})
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load account")
	}

	return record, nil
}

func (a *accounts) Create(ctx context.Context, record *Account) (*Account, error) {
	return a.CreateTx(ctx, a.db, record)
}

func (a *accounts) CreateTx(ctx context.Context, tx bun.IDB, record *Account) (*Account, error) {
	prepareAccountDefaults(record)

	if _, err := tx.NewInsert().Model(record).Exec(ctx); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryConflict, "could not create account")
	}

	return record, nil
}

func (a *accounts) Update(ctx context.Context, record *Account) (*Account, error) {
	return a.UpdateTx(ctx, a.db, record)
}

func (a *accounts) UpdateTx(ctx context.Context, tx bun.IDB, record *Account) (*Account, error) {
	res, err := tx.NewUpdate().
		Model(record).
		WherePK().
		Exec(ctx)

	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "could not update account")
	}

	if rows, err := res.RowsAffected(); err == nil && rows == 0 {
		return nil, NewRecordNotFound("account").
			WithMetadata(map[string]any{"id": record.ID})
	}

	return record, nil
}

func (a *accounts) MarkConfirmed(ctx context.Context, record *Account, at time.Time) (*Account, error) {
	return a.MarkConfirmedTx(ctx, a.db, record, at)
}

// MarkConfirmedTx persists the confirmed state transition. The model-level
// MarkConfirmed guards the confirmed_at invariants.
func (a *accounts) MarkConfirmedTx(ctx context.Context, tx bun.IDB, record *Account, at time.Time) (*Account, error) {
	if err := record.MarkConfirmed(at); err != nil {
		return nil, err
	}

	_, err := tx.NewUpdate().
		Model(record).
		Column("confirmed", "confirmed_at").
		WherePK().
		Exec(ctx)

	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "could not persist account confirmation")
	}

	return record, nil
}

func (a *accounts) ResetPassword(ctx context.Context, id int64, passwordHash string) error {
	return a.ResetPasswordTx(ctx, a.db, id, passwordHash)
}

func (a *accounts) ResetPasswordTx(ctx context.Context, tx bun.IDB, id int64, passwordHash string) error {
	res, err := tx.NewRaw(ResetAccountPasswordSQL, passwordHash, id).Exec(ctx)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "could not reset account password")
	}

	if rows, err := res.RowsAffected(); err == nil && rows == 0 {
		return NewRecordNotFound("account").
			WithMetadata(map[string]any{"id": id})
	}

	return nil
}

func prepareAccountDefaults(record *Account) {
	if record == nil {
		return
	}

	record.EnsureUsername()

	if record.RegisteredAt.IsZero() {
		record.RegisteredAt = time.Now()
	}
}
