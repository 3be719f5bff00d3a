package auth

import (
	"strconv"
	"strings"
	"time"

	"github.com/uptrace/bun"
)

// Timestamps carries the bookkeeping columns shared by every persisted
// entity. It is embedded as a value, not inherited.
type Timestamps struct {
	CreatedAt  *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	ModifiedAt *time.Time `bun:"modified_at,nullzero,default:current_timestamp" json:"modified_at,omitempty"`
}

// Identity is the human-facing profile. It is created once at registration
// and is immutable afterwards outside of administrative edits.
type Identity struct {
	bun.BaseModel `bun:"table:identities,alias:idn"`
	ID            int64  `bun:"id,pk,autoincrement" json:"id,omitempty"`
	FirstName     string `bun:"first_name,notnull" json:"first_name,omitempty"`
	LastName      string `bun:"last_name,notnull" json:"last_name,omitempty"`
	Email         string `bun:"email,notnull,unique" json:"email,omitempty"`
	Phone         string `bun:"phone_number" json:"phone_number,omitempty"`
	AcceptedTerms bool   `bun:"accepted_terms,notnull" json:"accepted_terms,omitempty"`
	Timestamps
}

// FullName joins the identity name parts.
func (i *Identity) FullName() string {
	return strings.TrimSpace(i.FirstName + " " + i.LastName)
}

// Account is the credential-bearing record tied one-to-one to an Identity.
// The username defaults to the identity email when none is supplied.
type Account struct {
	bun.BaseModel `bun:"table:accounts,alias:acc"`
	ID            int64      `bun:"id,pk,autoincrement" json:"id,omitempty"`
	IdentityID    int64      `bun:"identity_id,notnull,unique" json:"identity_id,omitempty"`
	Identity      *Identity  `bun:"rel:belongs-to,join:identity_id=id" json:"identity,omitempty"`
	Username      string     `bun:"username,notnull,unique" json:"username,omitempty"`
	Email         string     `bun:"email,notnull,unique" json:"email,omitempty"`
	PasswordHash  string     `bun:"password_hash,notnull" json:"-"`
	Admin         bool       `bun:"is_admin" json:"is_admin,omitempty"`
	RegisteredAt  time.Time  `bun:"registered_at,notnull" json:"registered_at,omitempty"`
	Confirmed     bool       `bun:"confirmed" json:"confirmed,omitempty"`
	ConfirmedAt   *time.Time `bun:"confirmed_at,nullzero" json:"confirmed_at,omitempty"`

	// Federated login placeholders. Recorded for forward compatibility,
	// never exercised by this module.
	Provider   string `bun:"provider" json:"provider,omitempty"`
	ProviderID string `bun:"provider_id" json:"provider_id,omitempty"`

	Timestamps
}

var _ Principal = (*Account)(nil)

// Password always panics. The cleartext password is write-only: it is
// hashed on the way in via SetPassword and only the digest is stored.
// Reading it back is a programming error, not a recoverable condition.
func (a *Account) Password() string {
	panic("auth: account password is not a readable attribute")
}

// SetPassword hashes plaintext and stores the digest.
func (a *Account) SetPassword(plaintext string) error {
	hash, err := HashPassword(plaintext)
	if err != nil {
		return err
	}
	a.PasswordHash = hash
	return nil
}

// VerifyPassword reports whether plaintext produced the stored digest.
// Malformed digests verify as false, they do not error.
func (a *Account) VerifyPassword(plaintext string) bool {
	return ComparePasswordAndHash(plaintext, a.PasswordHash) == nil
}

// Identifier returns the stable session-principal identifier.
func (a *Account) Identifier() string {
	return strconv.FormatInt(a.ID, 10)
}

// IsActive reports whether the account may authenticate. Accounts are never
// deleted in this design, so only unpersisted records are inactive.
func (a *Account) IsActive() bool {
	return a.ID != 0
}

// IsAuthenticated reports whether the account represents a real principal
// as opposed to an anonymous session.
func (a *Account) IsAuthenticated() bool {
	return a.ID != 0
}

// MarkConfirmed flips the account into the confirmed state.
// Invariant: ConfirmedAt is set iff Confirmed, and never precedes
// RegisteredAt.
func (a *Account) MarkConfirmed(now time.Time) error {
	if a.Confirmed {
		return ErrAlreadyConfirmed
	}
	if now.Before(a.RegisteredAt) {
		now = a.RegisteredAt
	}
	a.Confirmed = true
	a.ConfirmedAt = &now
	return nil
}

// EnsureUsername defaults the username to the account email.
func (a *Account) EnsureUsername() {
	if a.Username == "" {
		a.Username = a.Email
	}
}

// Principal is the capability surface the session gateway consumes.
// Account satisfies it; the gateway never depends on the concrete model.
type Principal interface {
	Identifier() string
	IsActive() bool
	IsAuthenticated() bool
}
