package auth

import (
	"time"

	"github.com/gofiber/fiber/v2"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
)

const (
	localsAccountKey = "auth_account"
	localsSessionKey = "auth_session"
)

// recoveryResponse is the single reply for recovery initialization. The
// same body goes back whether the email matched an account or not, so
// the endpoint cannot be used to probe which addresses are registered.
var recoveryResponse = fiber.Map{
	"status":  "ok",
	"message": "if the address is registered, a recovery email is on its way",
}

// Controller mounts the account lifecycle routes on a fiber app.
type Controller struct {
	auther     Authenticator
	register   *RegisterUserHandler
	confirm    *ConfirmAccountHandler
	resetInit  *InitializePasswordResetHandler
	resetFinal *FinalizePasswordResetHandler

	cookieName         string
	cookieSecure       bool
	sessionTTL         time.Duration
	extendedSessionTTL time.Duration
	logger             Logger
}

type ControllerConfig struct {
	Authenticator      Authenticator
	Register           *RegisterUserHandler
	Confirm            *ConfirmAccountHandler
	ResetInitialize    *InitializePasswordResetHandler
	ResetFinalize      *FinalizePasswordResetHandler
	CookieName         string
	CookieSecure       bool
	SessionTTL         time.Duration
	ExtendedSessionTTL time.Duration
	Logger             Logger
}

func NewController(cfg ControllerConfig) *Controller {
	c := &Controller{
		auther:             cfg.Authenticator,
		register:           cfg.Register,
		confirm:            cfg.Confirm,
		resetInit:          cfg.ResetInitialize,
		resetFinal:         cfg.ResetFinalize,
		cookieName:         cfg.CookieName,
		cookieSecure:       cfg.CookieSecure,
		sessionTTL:         cfg.SessionTTL,
		extendedSessionTTL: cfg.ExtendedSessionTTL,
		logger:             cfg.Logger,
	}

	if c.cookieName == "" {
		c.cookieName = "picloud_session"
	}
	if c.logger == nil {
		c.logger = defLogger{}
	}

	return c
}

// RegisterRoutes mounts the lifecycle endpoints.
func (c *Controller) RegisterRoutes(app *fiber.App) {
	app.Post("/register", c.Register)
	app.Post("/login", c.Login)
	app.Post("/logout", c.RequireSession, c.Logout)
	app.Get("/confirm/:token", c.RequireSession, c.Confirm)
	app.Post("/recover-password", c.RecoverInitialize)
	app.Post("/recover-password/:token", c.RecoverFinalize)
	app.Get("/me", c.RequireSession, c.Me)
}

// RequireSession resolves the session cookie to an account and stashes
// both in fiber locals. Requests without a live session get 401.
func (c *Controller) RequireSession(ctx *fiber.Ctx) error {
	raw := ctx.Cookies(c.cookieName)
	if raw == "" {
		return c.unauthorized(ctx, "authentication required")
	}

	session, err := c.auther.SessionFromToken(raw)
	if err != nil {
		c.logger.Debug("session rejected: %v", err)
		c.clearSessionCookie(ctx)
		return c.unauthorized(ctx, "session is invalid or expired")
	}

	account, err := c.auther.CurrentAccount(ctx.UserContext(), session)
	if err != nil {
		c.logger.Debug("session account lookup failed: %v", err)
		c.clearSessionCookie(ctx)
		return c.unauthorized(ctx, "session is invalid or expired")
	}

	ctx.Locals(localsSessionKey, session)
	ctx.Locals(localsAccountKey, account)
	ctx.SetUserContext(WithContext(WithSessionContext(ctx.UserContext(), session), account))

	return ctx.Next()
}

// RequireConfirmed rejects accounts that have not completed email
// confirmation. Mount after RequireSession.
func (c *Controller) RequireConfirmed(ctx *fiber.Ctx) error {
	account := AccountFromLocals(ctx)
	if account == nil {
		return c.unauthorized(ctx, "authentication required")
	}
	if !account.Confirmed {
		return ctx.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"status":  "error",
			"message": "account is not confirmed",
		})
	}
	return ctx.Next()
}

// AccountFromLocals returns the account stashed by RequireSession.
func AccountFromLocals(ctx *fiber.Ctx) *Account {
	account, _ := ctx.Locals(localsAccountKey).(*Account)
	return account
}

// SessionFromLocals returns the session stashed by RequireSession.
func SessionFromLocals(ctx *fiber.Ctx) Session {
	session, _ := ctx.Locals(localsSessionKey).(Session)
	return session
}

// Register creates a new account and logs it in right away. The account
// starts unconfirmed; confirmation arrives over email.
func (c *Controller) Register(ctx *fiber.Ctx) error {
	msg := &RegisterUserMessage{}
	if err := ctx.BodyParser(msg); err != nil {
		return c.badRequest(ctx, "could not parse registration payload")
	}

	if _, err := c.register.Execute(ctx.UserContext(), *msg); err != nil {
		return c.renderError(ctx, err)
	}

	token, err := c.auther.Login(ctx.UserContext(), msg.Email, msg.Password, false)
	if err != nil {
		// Registration succeeded, the auto-login is a convenience.
		c.logger.Error("auto login after registration failed: %v", err)
		return ctx.Status(fiber.StatusCreated).JSON(fiber.Map{
			"status":  "ok",
			"message": "account created, please log in",
		})
	}

	c.setSessionCookie(ctx, token, c.sessionTTL)

	return ctx.Status(fiber.StatusCreated).JSON(fiber.Map{
		"status":  "ok",
		"message": "account created, a confirmation email is on its way",
	})
}

type loginPayload struct {
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
	Remember bool   `json:"remember" form:"remember"`
}

func (c *Controller) Login(ctx *fiber.Ctx) error {
	payload := &loginPayload{}
	if err := ctx.BodyParser(payload); err != nil {
		return c.badRequest(ctx, "could not parse login payload")
	}

	token, err := c.auther.Login(ctx.UserContext(), payload.Email, payload.Password, payload.Remember)
	if err != nil {
		return c.renderError(ctx, err)
	}

	ttl := c.sessionTTL
	if payload.Remember && c.extendedSessionTTL > ttl {
		ttl = c.extendedSessionTTL
	}
	c.setSessionCookie(ctx, token, ttl)

	return ctx.JSON(fiber.Map{"status": "ok"})
}

func (c *Controller) Logout(ctx *fiber.Ctx) error {
	if err := c.auther.Logout(ctx.UserContext(), SessionFromLocals(ctx)); err != nil {
		c.logger.Error("logout failed: %v", err)
	}
	c.clearSessionCookie(ctx)
	return ctx.JSON(fiber.Map{"status": "ok"})
}

func (c *Controller) Confirm(ctx *fiber.Ctx) error {
	msg := ConfirmAccountMessage{
		Token:   ctx.Params("token"),
		Account: AccountFromLocals(ctx),
	}

	outcome, err := c.confirm.Execute(ctx.UserContext(), msg)
	if err != nil {
		return c.renderError(ctx, err)
	}

	switch outcome {
	case OutcomeConfirmed:
		return ctx.JSON(fiber.Map{"status": "ok", "message": "account confirmed"})
	case OutcomeAlreadyConfirmed:
		return ctx.JSON(fiber.Map{"status": "ok", "message": "account was already confirmed"})
	default:
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"status":  "error",
			"message": "the confirmation link is invalid or has expired",
		})
	}
}

func (c *Controller) RecoverInitialize(ctx *fiber.Ctx) error {
	msg := &InitializePasswordResetMessage{}
	if err := ctx.BodyParser(msg); err != nil {
		return c.badRequest(ctx, "could not parse recovery payload")
	}

	// Identical reply for sent and no-such-account; real failures
	// (validation, storage) still surface as errors.
	if _, err := c.resetInit.Execute(ctx.UserContext(), *msg); err != nil {
		return c.renderError(ctx, err)
	}

	return ctx.JSON(recoveryResponse)
}

func (c *Controller) RecoverFinalize(ctx *fiber.Ctx) error {
	msg := &FinalizePasswordResetMessage{}
	if err := ctx.BodyParser(msg); err != nil {
		return c.badRequest(ctx, "could not parse recovery payload")
	}
	msg.Token = ctx.Params("token")

	outcome, err := c.resetFinal.Execute(ctx.UserContext(), *msg)
	if err != nil {
		return c.renderError(ctx, err)
	}

	if outcome != OutcomeReset {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"status":  "error",
			"message": "the recovery link is invalid or has expired",
		})
	}

	return ctx.JSON(fiber.Map{"status": "ok", "message": "password updated, please log in"})
}

func (c *Controller) Me(ctx *fiber.Ctx) error {
	account := AccountFromLocals(ctx)
	return ctx.JSON(fiber.Map{
		"id":        account.ID,
		"username":  account.Username,
		"email":     account.Email,
		"confirmed": account.Confirmed,
		"admin":     account.Admin,
	})
}

func (c *Controller) setSessionCookie(ctx *fiber.Ctx, token string, ttl time.Duration) {
	ctx.Cookie(&fiber.Cookie{
		Name:     c.cookieName,
		Value:    token,
		Path:     "/",
		Expires:  time.Now().Add(ttl),
		HTTPOnly: true,
		Secure:   c.cookieSecure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

func (c *Controller) clearSessionCookie(ctx *fiber.Ctx) {
	ctx.Cookie(&fiber.Cookie{
		Name:     c.cookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Now().Add(-time.Hour),
		HTTPOnly: true,
		Secure:   c.cookieSecure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

func (c *Controller) unauthorized(ctx *fiber.Ctx, message string) error {
	return ctx.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
		"status":  "error",
		"message": message,
	})
}

func (c *Controller) badRequest(ctx *fiber.Ctx, message string) error {
	return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"status":  "error",
		"message": message,
	})
}

// renderError maps domain errors to HTTP replies.
func (c *Controller) renderError(ctx *fiber.Ctx, err error) error {
	if fields, ok := AsValidationErrors(err); ok {
		c.logger.Debug("request rejected, field errors: %s", print.MaybePrettyJSON(fields))
		return ctx.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"status": "error",
			"fields": fields,
		})
	}

	var rich *goerrors.Error
	if goerrors.As(err, &rich) {
		switch rich.Category {
		case goerrors.CategoryAuth:
			return c.unauthorized(ctx, rich.Message)
		case goerrors.CategoryBadInput, goerrors.CategoryValidation:
			return c.badRequest(ctx, rich.Message)
		case goerrors.CategoryConflict:
			return ctx.Status(fiber.StatusConflict).JSON(fiber.Map{
				"status":  "error",
				"message": rich.Message,
			})
		}

		c.logger.Error(
			"request failed: %s category=%s details=%s",
			rich.Message,
			rich.Category,
			print.MaybePrettyJSON(rich.Metadata),
		)
	} else {
		c.logger.Error("request failed: %v", err)
	}

	return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"status":  "error",
		"message": "internal error",
	})
}
