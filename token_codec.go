package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	goerrors "github.com/goliatone/go-errors"
)

// Purpose salts. Mixing the salt into the signing key means a token issued
// for one purpose never validates for another.
const (
	SaltAccountConfirm  = "account-confirm"
	SaltPasswordRecover = "password-recover"
)

// Codec issues and verifies purpose-salted, URL-safe signed tokens with an
// embedded issuance time. It is stateless: validity is computed at
// verification time and nothing is ever persisted.
type Codec struct {
	secret []byte
	logger Logger
}

// NewCodec creates a Codec. An empty secret is a configuration error and
// must fail startup, not surface later at token time.
func NewCodec(secret string) (*Codec, error) {
	if secret == "" {
		return nil, ErrMissingSecret
	}
	return &Codec{
		secret: []byte(secret),
		logger: defLogger{},
	}, nil
}

func (c *Codec) WithLogger(logger Logger) *Codec {
	if logger != nil {
		c.logger = logger
	}
	return c
}

// signingKey derives the per-purpose key from the process secret.
func (c *Codec) signingKey(purposeSalt string) []byte {
	mac := hmac.New(sha256.New, c.secret)
	mac.Write([]byte(purposeSalt))
	return mac.Sum(nil)
}

// Issue serializes (subject, issued_at=now), signs it with the key derived
// from purposeSalt, and returns an opaque URL-safe string.
func (c *Codec) Issue(subject, purposeSalt string) (string, error) {
	if subject == "" {
		return "", goerrors.New("token subject must not be empty", goerrors.CategoryBadInput)
	}

	claims := jwt.RegisteredClaims{
		Subject:  subject,
		IssuedAt: jwt.NewNumericDate(time.Now()),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signed, err := token.SignedString(c.signingKey(purposeSalt))
	if err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to sign token")
	}

	return signed, nil
}

// Verify checks the signature against purposeSalt and then the age of the
// token against maxAge. It returns the embedded subject on success,
// ErrTokenExpired when the signature matches but the token is older than
// maxAge, and ErrTokenMalformed for everything else. Tampering with any
// byte yields ErrTokenMalformed, never a panic and never a false positive.
func (c *Codec) Verify(raw, purposeSalt string, maxAge time.Duration) (string, error) {
	token, err := jwt.ParseWithClaims(raw, &jwt.RegisteredClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			c.logger.Warn("codec verify encountered unexpected signing method: %v", t.Header["alg"])
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return c.signingKey(purposeSalt), nil
	})

	if err != nil || !token.Valid {
		return "", ErrTokenMalformed
	}

	claims, ok := token.Claims.(*jwt.RegisteredClaims)
	if !ok || claims.Subject == "" || claims.IssuedAt == nil {
		return "", ErrTokenMalformed
	}

	if time.Since(claims.IssuedAt.Time) > maxAge {
		return "", ErrTokenExpired
	}

	return claims.Subject, nil
}
