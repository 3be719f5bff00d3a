package auth

import (
	"context"
	"fmt"
	"time"
)

type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// Session holds attributes that are part of an auth session
type Session interface {
	GetAccountID() string
	GetTokenID() string
	GetIssuedAt() *time.Time
	GetExpiration() *time.Time
	GetData() map[string]any
}

// Authenticator is the session gateway: it authenticates login attempts,
// establishes and destroys sessions, and resolves the active account.
type Authenticator interface {
	Login(ctx context.Context, identifier, password string, remember bool) (string, error)
	Logout(ctx context.Context, session Session) error
	SessionFromToken(raw string) (Session, error)
	CurrentAccount(ctx context.Context, session Session) (*Account, error)
}

// Mailer is the outbound email capability the lifecycle handlers consume.
// Sending is best-effort; a failed send never rolls back account state.
type Mailer interface {
	Send(ctx context.Context, to, subject, htmlBody string) error
}

// SessionStore records live sessions so logout can actually revoke a
// signed token before its expiry.
type SessionStore interface {
	Put(ctx context.Context, tokenID, accountID string, ttl time.Duration) error
	Alive(ctx context.Context, tokenID string) (bool, error)
	Delete(ctx context.Context, tokenID string) error
}

// TokenService signs and validates session tokens. It is distinct from the
// Codec, which handles purpose-salted confirmation/recovery tokens.
type TokenService interface {
	Generate(account *Account, remember bool) (string, *SessionClaims, error)
	Validate(raw string) (*SessionClaims, error)
}

// PasswordAuthenticator authenticates passwords
type PasswordAuthenticator interface {
	HashPassword(password string) (string, error)
	ComparePasswordAndHash(password, hash string) error
}

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] AUTH "+newline(format), args...)
}

func (d defLogger) Warn(format string, args ...any) {
	fmt.Printf("[WRN] AUTH "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] AUTH "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] AUTH "+newline(format), args...)
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}
