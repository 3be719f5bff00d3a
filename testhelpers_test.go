package auth_test

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"testing"
	"time"

	auth "github.com/picloud/go-auth"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

const testSecret = "test-signing-secret"

// newTestRepo opens a per-test in-memory database with the schema applied.
func newTestRepo(t *testing.T) auth.RepositoryManager {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	sqldb, err := sql.Open(sqliteshim.ShimName, dsn)
	require.NoError(t, err)

	// cache=shared needs a pinned connection or the memory db vanishes
	// between pool checkouts.
	sqldb.SetMaxOpenConns(1)

	db := bun.NewDB(sqldb, sqlitedialect.New())
	t.Cleanup(func() { db.Close() })

	require.NoError(t, auth.CreateSchema(context.Background(), db))

	return auth.NewRepositoryManager(db)
}

func newTestCodec(t *testing.T) *auth.Codec {
	t.Helper()
	codec, err := auth.NewCodec(testSecret)
	require.NoError(t, err)
	return codec
}

// recordingMailer captures outbound email instead of delivering it.
type recordingMailer struct {
	mu   sync.Mutex
	sent []sentEmail
	err  error
}

type sentEmail struct {
	To      string
	Subject string
	Body    string
}

func (m *recordingMailer) Send(ctx context.Context, to, subject, htmlBody string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, sentEmail{To: to, Subject: subject, Body: htmlBody})
	return nil
}

func (m *recordingMailer) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

func (m *recordingMailer) last(t *testing.T) sentEmail {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	require.NotEmpty(t, m.sent)
	return m.sent[len(m.sent)-1]
}

// registerAccount runs the registration flow and returns the stored account.
func registerAccount(t *testing.T, repo auth.RepositoryManager, codec *auth.Codec, mailer auth.Mailer, email, password string) *auth.Account {
	t.Helper()

	handler := auth.NewRegisterUserHandler(repo, codec, mailer, "https://picloud.test", 2*time.Hour)

	account, err := handler.Execute(context.Background(), auth.RegisterUserMessage{
		FirstName:       "Grace",
		LastName:        "Hopper",
		Email:           email,
		Password:        password,
		ConfirmPassword: password,
		AcceptTerms:     true,
	})
	require.NoError(t, err)
	require.NotNil(t, account)

	return account
}
