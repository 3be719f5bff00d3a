package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	goerrors "github.com/goliatone/go-errors"
	"github.com/nyaruka/phonenumbers"
	"github.com/uptrace/bun"
)

// RegisterUserMessage carries the registration form fields.
type RegisterUserMessage struct {
	FirstName       string `json:"first_name" form:"first_name"`
	LastName        string `json:"last_name" form:"last_name"`
	Email           string `json:"email" form:"email"`
	Phone           string `json:"phone_number" form:"phone_number"`
	Password        string `json:"password" form:"password"`
	ConfirmPassword string `json:"confirm_password" form:"confirm_password"`
	AcceptTerms     bool   `json:"accept_terms" form:"accept_terms"`
}

func (e RegisterUserMessage) Type() string { return "account.register" }

// Validate returns field-level errors so the caller can redisplay input.
func (e RegisterUserMessage) Validate() error {
	return validation.ValidateStruct(&e,
		validation.Field(&e.FirstName, validation.Required, validation.Length(1, 200)),
		validation.Field(&e.LastName, validation.Required, validation.Length(1, 200)),
		validation.Field(&e.Email, validation.Required, validation.Length(6, 100), is.Email),
		validation.Field(&e.Phone, validation.By(ValidateOptionalPhone)),
		validation.Field(&e.Password, validation.Required, validation.Length(10, 100)),
		validation.Field(
			&e.ConfirmPassword,
			validation.Required,
			validation.By(ValidateStringEquals(e.Password, "passwords do not match")),
		),
		validation.Field(&e.AcceptTerms, validation.Required.Error("terms of service must be accepted")),
	)
}

// ValidateStringEquals checks a string field against an expected value.
func ValidateStringEquals(expected, message string) validation.RuleFunc {
	return func(value any) error {
		s, _ := value.(string)
		if s != expected {
			return errors.New(message)
		}
		return nil
	}
}

// ValidateOptionalPhone accepts an empty phone; anything else must parse as
// a valid number.
func ValidateOptionalPhone(value any) error {
	s, _ := value.(string)
	if strings.TrimSpace(s) == "" {
		return nil
	}

	parsed, err := phonenumbers.Parse(s, "US")
	if err != nil || !phonenumbers.IsValidNumber(parsed) {
		return errors.New("must be a valid phone number")
	}

	return nil
}

// RegisterUserHandler creates the Identity and Account in one transaction,
// then issues the confirmation token and routes it through the mailer.
// Email delivery is best-effort: a failed send is logged, never rolled
// back into the registration result.
type RegisterUserHandler struct {
	repo          RepositoryManager
	codec         *Codec
	mailer        Mailer
	baseURL       string
	confirmMaxAge time.Duration
	logger        Logger
}

func NewRegisterUserHandler(repo RepositoryManager, codec *Codec, mailer Mailer, baseURL string, confirmMaxAge time.Duration) *RegisterUserHandler {
	return &RegisterUserHandler{
		repo:          repo,
		codec:         codec,
		mailer:        mailer,
		baseURL:       baseURL,
		confirmMaxAge: confirmMaxAge,
		logger:        defLogger{},
	}
}

func (h *RegisterUserHandler) WithLogger(logger Logger) *RegisterUserHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

func (h *RegisterUserHandler) Execute(ctx context.Context, event RegisterUserMessage) (*Account, error) {
	select {
	case <-ctx.Done():
		return nil, goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during user registration",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *RegisterUserHandler) execute(ctx context.Context, event RegisterUserMessage) (*Account, error) {
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	if err := event.Validate(); err != nil {
		return nil, err
	}

	// Application-level duplicate check; the unique constraint on email
	// remains the authoritative defense against the check/insert race.
	if _, err := h.repo.Accounts().GetByEmail(ctx, event.Email); err == nil {
		return nil, FieldError("email", "email address is already registered")
	} else if !IsRecordNotFound(err) {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to check for existing account")
	}

	account := &Account{}

	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		identity, err := h.repo.Identities().CreateTx(ctx, tx, &Identity{
			FirstName:     event.FirstName,
			LastName:      event.LastName,
			Email:         event.Email,
			Phone:         event.Phone,
			AcceptedTerms: event.AcceptTerms,
		})
		if err != nil {
			return err
		}

		hash, err := HashPassword(event.Password)
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash password")
		}

		account.IdentityID = identity.ID
		account.Identity = identity
		account.Email = event.Email
		account.PasswordHash = hash
		account.RegisteredAt = time.Now()
		account.Confirmed = false

		if account, err = h.repo.Accounts().CreateTx(ctx, tx, account); err != nil {
			return err
		}

		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return nil, richErr
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "user registration transaction failed")
	}

	h.sendConfirmation(ctx, account)

	return account, nil
}

// sendConfirmation issues the confirmation token and mails the confirm
// URL. Failures surface in the log only.
func (h *RegisterUserHandler) sendConfirmation(ctx context.Context, account *Account) {
	token, err := h.codec.Issue(account.Email, SaltAccountConfirm)
	if err != nil {
		h.logger.Error("registration: failed to issue confirmation token: %v", err)
		return
	}

	email, err := ConfirmationEmail(account.Identity.FullName(), ConfirmURL(h.baseURL, token), h.confirmMaxAge)
	if err != nil {
		h.logger.Error("registration: failed to render confirmation email: %v", err)
		return
	}

	if err := h.mailer.Send(ctx, account.Email, email.Subject, email.Body); err != nil {
		h.logger.Error("registration: failed to send confirmation email to %s: %v", account.Email, err)
	}
}
