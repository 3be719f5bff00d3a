package auth

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
)

// CreateSchema creates the identity and account tables if they do not
// already exist.
func CreateSchema(ctx context.Context, db *bun.DB) error {
	models := []any{
		(*Identity)(nil),
		(*Account)(nil),
	}

	for _, model := range models {
		_, err := db.NewCreateTable().
			Model(model).
			IfNotExists().
			Exec(ctx)
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryOperation, "failed to create schema").
				WithMetadata(map[string]any{"model": model})
		}
	}

	return nil
}

// SeedAdmin ensures an administrator account exists for the configured
// credentials. It is idempotent: an existing account with the email is
// left untouched. Empty email disables seeding.
func SeedAdmin(ctx context.Context, repo RepositoryManager, email, password string, logger Logger) error {
	if logger == nil {
		logger = defLogger{}
	}

	if email == "" {
		logger.Debug("admin bootstrap disabled")
		return nil
	}

	_, err := repo.Accounts().GetByEmail(ctx, email)
	if err == nil {
		logger.Debug("admin account %s already present", email)
		return nil
	}
	if !IsRecordNotFound(err) {
		return err
	}

	hash, err := HashPassword(password)
	if err != nil {
		return err
	}

	now := time.Now()

	err = repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		identity := &Identity{
			FirstName:     "PiCloud",
			LastName:      "Admin",
			Email:         email,
			AcceptedTerms: true,
		}
		if _, err := repo.Identities().CreateTx(ctx, tx, identity); err != nil {
			return err
		}

		account := &Account{
			IdentityID:   identity.ID,
			Email:        email,
			PasswordHash: hash,
			Admin:        true,
			RegisteredAt: now,
			Confirmed:    true,
			ConfirmedAt:  &now,
		}
		account.EnsureUsername()

		_, err := repo.Accounts().CreateTx(ctx, tx, account)
		return err
	})
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryOperation, "failed to seed admin account")
	}

	logger.Info("seeded admin account %s", email)
	return nil
}
