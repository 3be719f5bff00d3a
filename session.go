package auth

import (
	"fmt"
	"strconv"
	"time"
)

var _ Session = &SessionObject{}

// SessionObject associates a request with one account identifier. It is
// transient: created on login, destroyed on logout or revocation.
type SessionObject struct {
	AccountID      string         `json:"account_id,omitempty"`
	TokenID        string         `json:"token_id,omitempty"`
	Issuer         string         `json:"issuer,omitempty"`
	IssuedAt       *time.Time     `json:"issued_at,omitempty"`
	ExpirationDate *time.Time     `json:"expiration_date,omitempty"`
	Data           map[string]any `json:"data,omitempty"`
}

func (s *SessionObject) GetAccountID() string {
	return s.AccountID
}

// AccountNumericID parses the account identifier back into its numeric form.
func (s *SessionObject) AccountNumericID() (int64, error) {
	return strconv.ParseInt(s.AccountID, 10, 64)
}

func (s *SessionObject) GetTokenID() string {
	return s.TokenID
}

func (s *SessionObject) GetIssuedAt() *time.Time {
	return s.IssuedAt
}

func (s *SessionObject) GetExpiration() *time.Time {
	return s.ExpirationDate
}

func (s *SessionObject) GetData() map[string]any {
	return s.Data
}

func (s SessionObject) String() string {
	issuedAt := "<nil>"
	if s.IssuedAt != nil {
		issuedAt = s.IssuedAt.Format(time.RFC1123)
	}
	return fmt.Sprintf(
		"account=%s jti=%s iss=%s iat=%s",
		s.AccountID,
		s.TokenID,
		s.Issuer,
		issuedAt,
	)
}

// sessionFromClaims creates a SessionObject from validated session claims.
func sessionFromClaims(claims *SessionClaims) (*SessionObject, error) {
	if claims == nil {
		return nil, ErrUnableToDecodeSession
	}

	data := map[string]any{
		"email": claims.Email,
	}
	if claims.Admin {
		data["admin"] = true
	}

	session := &SessionObject{
		AccountID: claims.AccountID,
		TokenID:   claims.ID,
		Issuer:    claims.Issuer,
		Data:      data,
	}

	if claims.IssuedAt != nil {
		session.IssuedAt = &claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		session.ExpirationDate = &claims.ExpiresAt.Time
	}

	return session, nil
}
