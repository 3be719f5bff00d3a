package auth_test

import (
	"context"
	"testing"
	"time"

	auth "github.com/picloud/go-auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAuther(t *testing.T, repo auth.RepositoryManager) *auth.Auther {
	t.Helper()

	tokens, err := auth.NewTokenService([]byte(testSecret), time.Hour, 24*time.Hour, "picloud.test", nil)
	require.NoError(t, err)

	sessions, _ := newTestSessionStore(t)

	return auth.NewAuthenticator(repo, tokens, sessions)
}

func TestLoginSuccess(t *testing.T) {
	repo := newTestRepo(t)
	codec := newTestCodec(t)
	auther := newTestAuther(t, repo)
	ctx := context.Background()

	account := registerAccount(t, repo, codec, &recordingMailer{}, "grace@example.com", "securePassword123!")

	token, err := auther.Login(ctx, "grace@example.com", "securePassword123!", false)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	session, err := auther.SessionFromToken(token)
	require.NoError(t, err)
	assert.Equal(t, account.Identifier(), session.GetAccountID())

	current, err := auther.CurrentAccount(ctx, session)
	require.NoError(t, err)
	assert.Equal(t, account.ID, current.ID)
	assert.Equal(t, "grace@example.com", current.Email)
}

func TestLoginAllowsUnconfirmedAccounts(t *testing.T) {
	repo := newTestRepo(t)
	codec := newTestCodec(t)
	auther := newTestAuther(t, repo)

	account := registerAccount(t, repo, codec, &recordingMailer{}, "grace@example.com", "securePassword123!")
	require.False(t, account.Confirmed)

	_, err := auther.Login(context.Background(), "grace@example.com", "securePassword123!", false)
	assert.NoError(t, err, "confirmation gates routes, not login")
}

func TestLoginFailuresAreUniform(t *testing.T) {
	repo := newTestRepo(t)
	codec := newTestCodec(t)
	auther := newTestAuther(t, repo)
	ctx := context.Background()

	registerAccount(t, repo, codec, &recordingMailer{}, "grace@example.com", "securePassword123!")

	// Wrong password and unknown account are indistinguishable.
	_, err := auther.Login(ctx, "grace@example.com", "wrongPassword456?", false)
	assert.ErrorIs(t, err, auth.ErrInvalidCredentials)

	_, err = auther.Login(ctx, "nobody@example.com", "securePassword123!", false)
	assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
}

func TestLogoutRevokesSession(t *testing.T) {
	repo := newTestRepo(t)
	codec := newTestCodec(t)
	auther := newTestAuther(t, repo)
	ctx := context.Background()

	registerAccount(t, repo, codec, &recordingMailer{}, "grace@example.com", "securePassword123!")

	token, err := auther.Login(ctx, "grace@example.com", "securePassword123!", false)
	require.NoError(t, err)

	session, err := auther.SessionFromToken(token)
	require.NoError(t, err)

	require.NoError(t, auther.Logout(ctx, session))

	// The token still carries a valid signature but the session is gone.
	_, err = auther.SessionFromToken(token)
	assert.ErrorIs(t, err, auth.ErrUnableToFindSession)

	// Logout is idempotent.
	assert.NoError(t, auther.Logout(ctx, session))
	assert.NoError(t, auther.Logout(ctx, nil))
}

func TestRememberMeExtendsSession(t *testing.T) {
	repo := newTestRepo(t)
	codec := newTestCodec(t)
	auther := newTestAuther(t, repo)
	ctx := context.Background()

	registerAccount(t, repo, codec, &recordingMailer{}, "grace@example.com", "securePassword123!")

	short, err := auther.Login(ctx, "grace@example.com", "securePassword123!", false)
	require.NoError(t, err)
	long, err := auther.Login(ctx, "grace@example.com", "securePassword123!", true)
	require.NoError(t, err)

	shortSession, err := auther.SessionFromToken(short)
	require.NoError(t, err)
	longSession, err := auther.SessionFromToken(long)
	require.NoError(t, err)

	require.NotNil(t, shortSession.GetExpiration())
	require.NotNil(t, longSession.GetExpiration())
	assert.True(t, longSession.GetExpiration().After(*shortSession.GetExpiration()))
}

func TestSessionFromTokenRejectsGarbage(t *testing.T) {
	repo := newTestRepo(t)
	auther := newTestAuther(t, repo)

	_, err := auther.SessionFromToken("")
	assert.Error(t, err)

	_, err = auther.SessionFromToken("not.a.token")
	assert.Error(t, err)
}

func TestCurrentAccountUnknownSession(t *testing.T) {
	repo := newTestRepo(t)
	auther := newTestAuther(t, repo)
	ctx := context.Background()

	_, err := auther.CurrentAccount(ctx, nil)
	assert.ErrorIs(t, err, auth.ErrUnableToFindSession)

	_, err = auther.CurrentAccount(ctx, &auth.SessionObject{AccountID: "999999"})
	assert.ErrorIs(t, err, auth.ErrIdentityNotFound)

	_, err = auther.CurrentAccount(ctx, &auth.SessionObject{AccountID: "not-numeric"})
	assert.ErrorIs(t, err, auth.ErrUnableToDecodeSession)
}
