package auth

import (
	"context"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	goerrors "github.com/goliatone/go-errors"
)

type FinalizePasswordResetMessage struct {
	Token           string `json:"token" form:"token"`
	Password        string `json:"password" form:"password"`
	ConfirmPassword string `json:"confirm_password" form:"confirm_password"`
}

func (e FinalizePasswordResetMessage) Type() string { return "account.password_reset_finalize" }

func (e FinalizePasswordResetMessage) Validate() error {
	return validation.ValidateStruct(&e,
		validation.Field(&e.Token, validation.Required),
		validation.Field(&e.Password, validation.Required, validation.Length(10, 100)),
		validation.Field(
			&e.ConfirmPassword,
			validation.Required,
			validation.By(ValidateStringEquals(e.Password, "passwords do not match")),
		),
	)
}

// FinalizePasswordResetHandler verifies a recovery token and replaces the
// account's password digest. Invalid or expired tokens mutate nothing.
type FinalizePasswordResetHandler struct {
	repo           RepositoryManager
	codec          *Codec
	recoveryMaxAge time.Duration
	logger         Logger
}

func NewFinalizePasswordResetHandler(repo RepositoryManager, codec *Codec, recoveryMaxAge time.Duration) *FinalizePasswordResetHandler {
	return &FinalizePasswordResetHandler{
		repo:           repo,
		codec:          codec,
		recoveryMaxAge: recoveryMaxAge,
		logger:         defLogger{},
	}
}

func (h *FinalizePasswordResetHandler) WithLogger(logger Logger) *FinalizePasswordResetHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

func (h *FinalizePasswordResetHandler) Execute(ctx context.Context, event FinalizePasswordResetMessage) (ResetOutcome, error) {
	select {
	case <-ctx.Done():
		return "", goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during password reset finalization",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *FinalizePasswordResetHandler) execute(ctx context.Context, event FinalizePasswordResetMessage) (ResetOutcome, error) {
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	if err := event.Validate(); err != nil {
		return "", err
	}

	subject, err := h.codec.Verify(event.Token, SaltPasswordRecover, h.recoveryMaxAge)
	if err != nil {
		h.logger.Debug("recovery token rejected: %v", err)
		return OutcomeInvalidOrExpiredReset, nil
	}

	account, err := h.repo.Accounts().GetByEmail(ctx, subject)
	if err != nil {
		if IsRecordNotFound(err) {
			// A valid token for an unknown email; treat like any other
			// invalid token rather than leaking account state.
			return OutcomeInvalidOrExpiredReset, nil
		}
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve account for password reset")
	}

	hash, err := HashPassword(event.Password)
	if err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash new password")
	}

	if err := h.repo.Accounts().ResetPassword(ctx, account.ID, hash); err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to update account password")
	}

	return OutcomeReset, nil
}
