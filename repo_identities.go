package auth

import (
	"context"
	"database/sql"
	"errors"

	goerrors "github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
)

// Identities persists the human-facing profiles. Identities are created
// inside the registration transaction and are otherwise read-only here.
type Identities interface {
	GetByEmail(ctx context.Context, email string) (*Identity, error)
	CreateTx(ctx context.Context, tx bun.IDB, record *Identity) (*Identity, error)
}

type identities struct {
	db *bun.DB
}

var _ Identities = (*identities)(nil)

func NewIdentitiesRepository(db *bun.DB) Identities {
	return &identities{db: db}
}

func (r *identities) GetByEmail(ctx context.Context, email string) (*Identity, error) {
	record := &Identity{}
	err := r.db.NewSelect().
		Model(record).
		Where("?TableAlias.email = ?", email).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, NewRecordNotFound("identity").
				WithMetadata(map[string]any{"email": email})
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load identity")
	}

	return record, nil
}

func (r *identities) CreateTx(ctx context.Context, tx bun.IDB, record *Identity) (*Identity, error) {
	if _, err := tx.NewInsert().Model(record).Exec(ctx); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryConflict, "could not create identity")
	}
	return record, nil
}
