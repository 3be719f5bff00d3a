package auth

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

// ConfirmOutcome describes the result of an email confirmation attempt.
type ConfirmOutcome string

const (
	OutcomeConfirmed        ConfirmOutcome = "confirmed"
	OutcomeAlreadyConfirmed ConfirmOutcome = "already_confirmed"
	OutcomeInvalidOrExpired ConfirmOutcome = "invalid_or_expired"
)

// ConfirmAccountMessage binds a confirmation token to the account of the
// session that presented it.
type ConfirmAccountMessage struct {
	Token   string
	Account *Account
}

func (e ConfirmAccountMessage) Type() string { return "account.confirm" }

// ConfirmAccountHandler verifies a confirmation token against the
// currently authenticated account. The decoded subject must match the
// session account's email: a token issued for one account can never
// confirm another session.
type ConfirmAccountHandler struct {
	repo          RepositoryManager
	codec         *Codec
	confirmMaxAge time.Duration
	logger        Logger
}

func NewConfirmAccountHandler(repo RepositoryManager, codec *Codec, confirmMaxAge time.Duration) *ConfirmAccountHandler {
	return &ConfirmAccountHandler{
		repo:          repo,
		codec:         codec,
		confirmMaxAge: confirmMaxAge,
		logger:        defLogger{},
	}
}

func (h *ConfirmAccountHandler) WithLogger(logger Logger) *ConfirmAccountHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

func (h *ConfirmAccountHandler) Execute(ctx context.Context, event ConfirmAccountMessage) (ConfirmOutcome, error) {
	select {
	case <-ctx.Done():
		return "", goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during account confirmation",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *ConfirmAccountHandler) execute(ctx context.Context, event ConfirmAccountMessage) (ConfirmOutcome, error) {
	if event.Account == nil {
		return "", goerrors.New("confirmation requires an authenticated account", goerrors.CategoryAuth).
			WithCode(goerrors.CodeUnauthorized)
	}

	// Idempotent short-circuit: no verification, no writes.
	if event.Account.Confirmed {
		return OutcomeAlreadyConfirmed, nil
	}

	subject, err := h.codec.Verify(event.Token, SaltAccountConfirm, h.confirmMaxAge)
	if err != nil {
		h.logger.Debug("confirmation token rejected for account %d: %v", event.Account.ID, err)
		return OutcomeInvalidOrExpired, nil
	}

	if subject != event.Account.Email {
		h.logger.Warn("confirmation token subject does not match session account %d", event.Account.ID)
		return OutcomeInvalidOrExpired, nil
	}

	if _, err := h.repo.Accounts().MarkConfirmed(ctx, event.Account, time.Now()); err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to persist account confirmation")
	}

	return OutcomeConfirmed, nil
}
