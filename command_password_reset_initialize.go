package auth

import (
	"context"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	goerrors "github.com/goliatone/go-errors"
)

// ResetOutcome describes the result of a password recovery step.
type ResetOutcome string

const (
	OutcomeResetSent             ResetOutcome = "sent"
	OutcomeNoSuchAccount         ResetOutcome = "no_such_account"
	OutcomeReset                 ResetOutcome = "reset"
	OutcomeInvalidOrExpiredReset ResetOutcome = "invalid_or_expired"
)

type InitializePasswordResetMessage struct {
	Email string `json:"email" form:"email"`
}

func (e InitializePasswordResetMessage) Type() string { return "account.password_reset" }

func (e InitializePasswordResetMessage) Validate() error {
	return validation.ValidateStruct(&e,
		validation.Field(&e.Email, validation.Required, is.Email),
	)
}

// InitializePasswordResetHandler issues a recovery token for an existing
// account and mails the recovery URL. The token is stateless; nothing is
// persisted. The caller learns whether the account existed, but the HTTP
// layer responds identically either way so outsiders cannot probe for
// registered addresses.
type InitializePasswordResetHandler struct {
	repo           RepositoryManager
	codec          *Codec
	mailer         Mailer
	baseURL        string
	recoveryMaxAge time.Duration
	logger         Logger
}

func NewInitializePasswordResetHandler(repo RepositoryManager, codec *Codec, mailer Mailer, baseURL string, recoveryMaxAge time.Duration) *InitializePasswordResetHandler {
	return &InitializePasswordResetHandler{
		repo:           repo,
		codec:          codec,
		mailer:         mailer,
		baseURL:        baseURL,
		recoveryMaxAge: recoveryMaxAge,
		logger:         defLogger{},
	}
}

func (h *InitializePasswordResetHandler) WithLogger(logger Logger) *InitializePasswordResetHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

func (h *InitializePasswordResetHandler) Execute(ctx context.Context, event InitializePasswordResetMessage) (ResetOutcome, error) {
	select {
	case <-ctx.Done():
		return "", goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during password reset initialization",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *InitializePasswordResetHandler) execute(ctx context.Context, event InitializePasswordResetMessage) (ResetOutcome, error) {
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	if err := event.Validate(); err != nil {
		return "", err
	}

	account, err := h.repo.Accounts().GetByEmail(ctx, event.Email)
	if err != nil {
		if IsRecordNotFound(err) {
			return OutcomeNoSuchAccount, nil
		}
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve account for password reset")
	}

	token, err := h.codec.Issue(account.Email, SaltPasswordRecover)
	if err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to issue recovery token")
	}

	name := account.Username
	if account.Identity != nil {
		name = account.Identity.FullName()
	}

	email, err := RecoveryEmail(name, RecoverURL(h.baseURL, token), h.recoveryMaxAge)
	if err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to render recovery email")
	}

	if err := h.mailer.Send(ctx, account.Email, email.Subject, email.Body); err != nil {
		// Best-effort: the recovery outcome stands, delivery problems go
		// to the operational log.
		h.logger.Error("password reset: failed to send recovery email to %s: %v", account.Email, err)
	}

	return OutcomeResetSent, nil
}
