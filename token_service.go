package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// SessionClaims is the claim set carried by session tokens.
type SessionClaims struct {
	jwt.RegisteredClaims
	AccountID string `json:"uid,omitempty"`
	Email     string `json:"email,omitempty"`
	Admin     bool   `json:"admin,omitempty"`
}

// TokenServiceImpl implements the TokenService interface
type TokenServiceImpl struct {
	signingKey  []byte
	ttl         time.Duration
	extendedTTL time.Duration
	issuer      string
	logger      Logger
}

// NewTokenService creates a new TokenService instance. Remember-me logins
// get extendedTTL; everything else gets ttl.
func NewTokenService(signingKey []byte, ttl, extendedTTL time.Duration, issuer string, logger Logger) (TokenService, error) {
	if len(signingKey) == 0 {
		return nil, ErrMissingSecret
	}
	if logger == nil {
		logger = defLogger{}
	}
	if extendedTTL < ttl {
		extendedTTL = ttl
	}
	return &TokenServiceImpl{
		signingKey:  signingKey,
		ttl:         ttl,
		extendedTTL: extendedTTL,
		issuer:      issuer,
		logger:      logger,
	}, nil
}

// Generate signs a session token for the account. The returned claims give
// the caller access to the token id and expiry for session bookkeeping.
func (ts *TokenServiceImpl) Generate(account *Account, remember bool) (string, *SessionClaims, error) {
	if account == nil || !account.IsActive() {
		return "", nil, goerrors.New("cannot issue a session for an unpersisted account", goerrors.CategoryBadInput)
	}

	now := time.Now()
	ttl := ts.ttl
	if remember {
		ttl = ts.extendedTTL
	}

	claims := &SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    ts.issuer,
			Subject:   account.Identifier(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		AccountID: account.Identifier(),
		Email:     account.Email,
		Admin:     account.Admin,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signed, err := token.SignedString(ts.signingKey)
	if err != nil {
		return "", nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to sign session token")
	}

	return signed, claims, nil
}

// Validate parses and validates a session token string.
func (ts *TokenServiceImpl) Validate(raw string) (*SessionClaims, error) {
	parserOptions := make([]jwt.ParserOption, 0, 1)
	if ts.issuer != "" {
		parserOptions = append(parserOptions, jwt.WithIssuer(ts.issuer))
	}

	token, err := jwt.ParseWithClaims(raw, &SessionClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			ts.logger.Error("token service validate encountered unexpected signing method: %v", t.Header["alg"])
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return ts.signingKey, nil
	}, parserOptions...)

	if err != nil {
		if goerrors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, goerrors.Wrap(err, ErrTokenMalformed.Category, ErrTokenMalformed.Message).WithTextCode(ErrTokenMalformed.TextCode)
	}

	if claims, ok := token.Claims.(*SessionClaims); ok && token.Valid {
		return claims, nil
	}

	ts.logger.Error("token service validate could not decode or validate claims")
	return nil, ErrUnableToDecodeSession
}
