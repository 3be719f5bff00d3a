package auth

import (
	"errors"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	goerrors "github.com/goliatone/go-errors"
)

// ErrNoEmptyString is returned when a required string input is empty
var ErrNoEmptyString = errors.New("value should not be an empty string")

// ErrMismatchedHashAndPassword is the generic mismatch error from the
// credential store; callers must not surface which check failed
var ErrMismatchedHashAndPassword = errors.New("password does not match")

// ErrIdentityNotFound is the error we return for non found identities
var ErrIdentityNotFound = errors.New("identity not found")

// ErrUnableToFindSession is the error when our request has no session
var ErrUnableToFindSession = errors.New("unable to find session")

// ErrUnableToDecodeSession unable to decode the session token
var ErrUnableToDecodeSession = errors.New("unable to decode session")

// ErrAlreadyConfirmed signals an idempotent confirm short-circuit
var ErrAlreadyConfirmed = errors.New("account already confirmed")

// ErrMissingSecret is a startup failure: a codec or token service was
// constructed without a configured signing secret.
var ErrMissingSecret = goerrors.New(
	"signing secret is not configured",
	goerrors.CategoryInternal,
).WithTextCode("MISSING_SECRET")

// ErrInvalidCredentials is surfaced for every login failure; it never
// distinguishes a missing account from a wrong password.
var ErrInvalidCredentials = goerrors.New(
	"invalid email or password",
	goerrors.CategoryAuth,
).WithTextCode("INVALID_CREDENTIALS").WithCode(goerrors.CodeUnauthorized)

// ErrTokenExpired is returned when a token signature checks out but the
// token is older than its allowed window.
var ErrTokenExpired = goerrors.New(
	"token is expired",
	goerrors.CategoryAuth,
).WithTextCode("TOKEN_EXPIRED").WithCode(goerrors.CodeUnauthorized)

// ErrTokenMalformed covers tampered, truncated, or otherwise undecodable
// tokens. Callers get no distinction between tampered and expired beyond
// these two values.
var ErrTokenMalformed = goerrors.New(
	"token is malformed",
	goerrors.CategoryAuth,
).WithTextCode("TOKEN_MALFORMED").WithCode(goerrors.CodeUnauthorized)

// NewRecordNotFound builds the repository not-found error.
func NewRecordNotFound(kind string) *goerrors.Error {
	return goerrors.New(kind+" not found", goerrors.CategoryNotFound).
		WithCode(goerrors.CodeNotFound)
}

// IsRecordNotFound reports whether err is a repository not-found error.
func IsRecordNotFound(err error) bool {
	return goerrors.IsNotFound(err)
}

// FieldError builds a single field-level validation error, the shape the
// HTTP layer redisplays next to form inputs.
func FieldError(field, message string) validation.Errors {
	return validation.Errors{field: errors.New(message)}
}

// AsValidationErrors unwraps field-level validation errors when present.
func AsValidationErrors(err error) (validation.Errors, bool) {
	var ve validation.Errors
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}

// IsTokenExpiredError will check for expired tokens
func IsTokenExpiredError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrTokenExpired) {
		return true
	}
	return strings.Contains(err.Error(), "token is expired")
}

// IsMalformedError will check for error message
func IsMalformedError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrTokenMalformed) {
		return true
	}
	return strings.Contains(err.Error(), "token is malformed")
}
