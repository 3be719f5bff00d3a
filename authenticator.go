package auth

import (
	"context"
	"time"
)

var _ Authenticator = (*Auther)(nil)

// Auther is the session gateway. It authenticates login attempts against
// the credential store, establishes and destroys sessions, and resolves
// the active session back to an Account. It does not gate on confirmation:
// an unconfirmed account may log in, and routes that need a confirmed
// account check Account.Confirmed themselves.
type Auther struct {
	repo     RepositoryManager
	tokens   TokenService
	sessions SessionStore
	logger   Logger
}

// NewAuthenticator returns a new Auther.
func NewAuthenticator(repo RepositoryManager, tokens TokenService, sessions SessionStore) *Auther {
	return &Auther{
		repo:     repo,
		tokens:   tokens,
		sessions: sessions,
		logger:   defLogger{},
	}
}

func (s *Auther) WithLogger(logger Logger) *Auther {
	if logger != nil {
		s.logger = logger
	}
	return s
}

// Login authenticates the identifier/password pair and establishes a
// session. Every failure surfaces as ErrInvalidCredentials; the caller
// never learns whether the account was missing or the password wrong.
func (s *Auther) Login(ctx context.Context, identifier, password string, remember bool) (string, error) {
	account, err := s.repo.Accounts().GetByEmail(ctx, identifier)
	if err != nil {
		if IsRecordNotFound(err) {
			// Burn comparable time so a missing account is not
			// distinguishable from a wrong password by latency.
			ComparePasswordAndHash(password, RandomPasswordHash())
			return "", ErrInvalidCredentials
		}
		s.logger.Error("login account lookup failed: %v", err)
		return "", err
	}

	if !account.VerifyPassword(password) {
		s.logger.Debug("login password mismatch for account %d", account.ID)
		return "", ErrInvalidCredentials
	}

	token, claims, err := s.tokens.Generate(account, remember)
	if err != nil {
		s.logger.Error("login failed to sign session token: %v", err)
		return "", err
	}

	ttl := time.Until(claims.ExpiresAt.Time)
	if err := s.sessions.Put(ctx, claims.ID, account.Identifier(), ttl); err != nil {
		s.logger.Error("login failed to record session: %v", err)
		return "", err
	}

	return token, nil
}

// Logout destroys the session. It is idempotent: logging out an absent or
// already-destroyed session is a no-op.
func (s *Auther) Logout(ctx context.Context, session Session) error {
	if session == nil || session.GetTokenID() == "" {
		return nil
	}
	return s.sessions.Delete(ctx, session.GetTokenID())
}

// SessionFromToken validates a raw session token, checks that the session
// has not been revoked, and returns the session object.
func (s *Auther) SessionFromToken(raw string) (Session, error) {
	claims, err := s.tokens.Validate(raw)
	if err != nil {
		s.logger.Debug("session token validation failed: %v", err)
		return nil, err
	}

	alive, err := s.sessions.Alive(context.Background(), claims.ID)
	if err != nil {
		s.logger.Error("session liveness check failed: %v", err)
		return nil, err
	}
	if !alive {
		return nil, ErrUnableToFindSession
	}

	return sessionFromClaims(claims)
}

// CurrentAccount resolves the active session to an Account.
func (s *Auther) CurrentAccount(ctx context.Context, session Session) (*Account, error) {
	if session == nil {
		return nil, ErrUnableToFindSession
	}

	so, ok := session.(*SessionObject)
	if !ok {
		return nil, ErrUnableToDecodeSession
	}

	id, err := so.AccountNumericID()
	if err != nil {
		return nil, ErrUnableToDecodeSession
	}

	account, err := s.repo.Accounts().GetByID(ctx, id)
	if err != nil {
		if IsRecordNotFound(err) {
			return nil, ErrIdentityNotFound
		}
		return nil, err
	}

	return account, nil
}
