package auth_test

import (
	"context"
	"testing"
	"time"

	auth "github.com/picloud/go-auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterUserMessageValidate(t *testing.T) {
	valid := auth.RegisterUserMessage{
		FirstName:       "Grace",
		LastName:        "Hopper",
		Email:           "grace@example.com",
		Password:        "securePassword123!",
		ConfirmPassword: "securePassword123!",
		AcceptTerms:     true,
	}

	tests := []struct {
		name    string
		mutate  func(m *auth.RegisterUserMessage)
		wantErr string
	}{
		{
			name:   "valid message",
			mutate: func(m *auth.RegisterUserMessage) {},
		},
		{
			name:   "valid with phone",
			mutate: func(m *auth.RegisterUserMessage) { m.Phone = "+1 415 555 2671" },
		},
		{
			name:    "missing first name",
			mutate:  func(m *auth.RegisterUserMessage) { m.FirstName = "" },
			wantErr: "first_name",
		},
		{
			name:    "bad email",
			mutate:  func(m *auth.RegisterUserMessage) { m.Email = "not-an-email" },
			wantErr: "email",
		},
		{
			name:    "short password",
			mutate:  func(m *auth.RegisterUserMessage) { m.Password = "short"; m.ConfirmPassword = "short" },
			wantErr: "password",
		},
		{
			name:    "password mismatch",
			mutate:  func(m *auth.RegisterUserMessage) { m.ConfirmPassword = "differentPassword123!" },
			wantErr: "confirm_password",
		},
		{
			name:    "terms not accepted",
			mutate:  func(m *auth.RegisterUserMessage) { m.AcceptTerms = false },
			wantErr: "accept_terms",
		},
		{
			name:    "bad phone",
			mutate:  func(m *auth.RegisterUserMessage) { m.Phone = "12" },
			wantErr: "phone_number",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := valid
			tt.mutate(&msg)

			err := msg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}

			require.Error(t, err)
			fields, ok := auth.AsValidationErrors(err)
			require.True(t, ok, "expected field-level validation errors, got: %v", err)
			assert.Contains(t, fields, tt.wantErr)
		})
	}
}

func TestRegisterUserCreatesUnconfirmedAccount(t *testing.T) {
	repo := newTestRepo(t)
	codec := newTestCodec(t)
	mailer := &recordingMailer{}

	account := registerAccount(t, repo, codec, mailer, "grace@example.com", "securePassword123!")

	assert.NotZero(t, account.ID)
	assert.False(t, account.Confirmed)
	assert.Nil(t, account.ConfirmedAt)
	assert.False(t, account.RegisteredAt.IsZero())
	assert.Equal(t, "grace@example.com", account.Username)
	assert.True(t, account.VerifyPassword("securePassword123!"))

	stored, err := repo.Accounts().GetByEmail(context.Background(), "grace@example.com")
	require.NoError(t, err)
	assert.Equal(t, account.ID, stored.ID)
	require.NotNil(t, stored.Identity)
	assert.Equal(t, "Grace Hopper", stored.Identity.FullName())
}

func TestRegisterUserSendsConfirmationEmail(t *testing.T) {
	repo := newTestRepo(t)
	codec := newTestCodec(t)
	mailer := &recordingMailer{}

	registerAccount(t, repo, codec, mailer, "grace@example.com", "securePassword123!")

	require.Equal(t, 1, mailer.count())
	email := mailer.last(t)
	assert.Equal(t, "grace@example.com", email.To)
	assert.Contains(t, email.Body, "https://picloud.test/confirm/")
}

func TestRegisterUserEmailFailureDoesNotFailRegistration(t *testing.T) {
	repo := newTestRepo(t)
	codec := newTestCodec(t)
	mailer := &recordingMailer{err: assert.AnError}

	account := registerAccount(t, repo, codec, mailer, "grace@example.com", "securePassword123!")
	assert.NotZero(t, account.ID)

	_, err := repo.Accounts().GetByEmail(context.Background(), "grace@example.com")
	assert.NoError(t, err)
}

func TestRegisterUserDuplicateEmail(t *testing.T) {
	repo := newTestRepo(t)
	codec := newTestCodec(t)
	mailer := &recordingMailer{}

	registerAccount(t, repo, codec, mailer, "grace@example.com", "securePassword123!")

	handler := auth.NewRegisterUserHandler(repo, codec, mailer, "https://picloud.test", 2*time.Hour)
	_, err := handler.Execute(context.Background(), auth.RegisterUserMessage{
		FirstName:       "Grace",
		LastName:        "Hopper",
		Email:           "grace@example.com",
		Password:        "anotherPassword123!",
		ConfirmPassword: "anotherPassword123!",
		AcceptTerms:     true,
	})
	require.Error(t, err)

	fields, ok := auth.AsValidationErrors(err)
	require.True(t, ok)
	assert.Contains(t, fields, "email")

	// No second confirmation email, the original account is untouched.
	assert.Equal(t, 1, mailer.count())
	stored, err := repo.Accounts().GetByEmail(context.Background(), "grace@example.com")
	require.NoError(t, err)
	assert.True(t, stored.VerifyPassword("securePassword123!"))
}

func TestRegisterUserInvalidMessageWritesNothing(t *testing.T) {
	repo := newTestRepo(t)
	codec := newTestCodec(t)
	mailer := &recordingMailer{}

	handler := auth.NewRegisterUserHandler(repo, codec, mailer, "https://picloud.test", 2*time.Hour)
	_, err := handler.Execute(context.Background(), auth.RegisterUserMessage{
		Email: "grace@example.com",
	})
	require.Error(t, err)

	_, err = repo.Accounts().GetByEmail(context.Background(), "grace@example.com")
	assert.True(t, auth.IsRecordNotFound(err))
	assert.Zero(t, mailer.count())
}
