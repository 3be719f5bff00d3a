package auth

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"gopkg.in/gomail.v2"
)

// ConfirmURL builds the confirmation link embedded in the email.
func ConfirmURL(base, token string) string {
	return strings.TrimRight(base, "/") + "/confirm/" + token
}

// RecoverURL builds the password recovery link embedded in the email.
func RecoverURL(base, token string) string {
	return strings.TrimRight(base, "/") + "/recover-password/" + token
}

// Email is a rendered outbound message.
type Email struct {
	Subject string
	Body    string
}

var emailTemplates = template.Must(template.New("emails").Parse(`
{{define "confirmation"}}<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; color: #1f2937;">
  <div style="max-width: 520px; margin: 0 auto; padding: 16px;">
    <h2>Welcome to PiCloud{{if .Name}}, {{.Name}}{{end}}!</h2>
    <p>Please confirm your email address by clicking the link below.</p>
    <p style="margin: 24px 0;">
      <a href="{{.Link}}" style="padding: 12px 20px; background: #22c55e; color: #fff; text-decoration: none; border-radius: 8px; font-weight: bold;">Confirm my account</a>
    </p>
    <p style="font-size: 12px; color: #6b7280;">The link expires in {{.Window}}. If you did not create this account you can ignore this message.</p>
  </div>
</body>
</html>{{end}}

{{define "recovery"}}<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; color: #1f2937;">
  <div style="max-width: 520px; margin: 0 auto; padding: 16px;">
    <h2>Password recovery</h2>
    <p>{{if .Name}}{{.Name}}, a{{else}}A{{end}} password reset was requested for your PiCloud account.</p>
    <p style="margin: 24px 0;">
      <a href="{{.Link}}" style="padding: 12px 20px; background: #0f172a; color: #fff; text-decoration: none; border-radius: 8px; font-weight: bold;">Choose a new password</a>
    </p>
    <p style="font-size: 12px; color: #6b7280;">The link expires in {{.Window}}. If you did not request this, your password is unchanged.</p>
  </div>
</body>
</html>{{end}}
`))

type emailData struct {
	Name   string
	Link   string
	Window string
}

func renderEmail(name, link string, window time.Duration, tmpl, subject string) (Email, error) {
	var buf bytes.Buffer
	err := emailTemplates.ExecuteTemplate(&buf, tmpl, emailData{
		Name:   name,
		Link:   link,
		Window: window.String(),
	})
	if err != nil {
		return Email{}, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to render email template")
	}
	return Email{Subject: subject, Body: buf.String()}, nil
}

// ConfirmationEmail renders the account confirmation message.
func ConfirmationEmail(name, link string, window time.Duration) (Email, error) {
	return renderEmail(name, link, window, "confirmation", "Confirm your PiCloud account")
}

// RecoveryEmail renders the password recovery message.
func RecoveryEmail(name, link string, window time.Duration) (Email, error) {
	return renderEmail(name, link, window, "recovery", "Recover your PiCloud password")
}

// SMTPMailer delivers email over SMTP.
type SMTPMailer struct {
	host     string
	port     int
	username string
	password string
	from     string
	logger   Logger
}

var _ Mailer = (*SMTPMailer)(nil)

func NewSMTPMailer(host string, port int, username, password, from string) *SMTPMailer {
	return &SMTPMailer{
		host:     host,
		port:     port,
		username: username,
		password: password,
		from:     from,
		logger:   defLogger{},
	}
}

func (m *SMTPMailer) WithLogger(logger Logger) *SMTPMailer {
	if logger != nil {
		m.logger = logger
	}
	return m
}

// Send delivers one HTML message. An unconfigured mailer logs and skips
// rather than failing the calling flow.
func (m *SMTPMailer) Send(ctx context.Context, to, subject, htmlBody string) error {
	if m.host == "" || m.from == "" {
		m.logger.Warn("smtp mailer not configured, skipping email to %s", to)
		return nil
	}
	if strings.TrimSpace(to) == "" {
		return goerrors.New("email recipient must not be empty", goerrors.CategoryBadInput)
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/html", htmlBody)

	dialer := gomail.NewDialer(m.host, m.port, m.username, m.password)

	if err := dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("send email: %w", err)
	}

	m.logger.Info("email sent to %s: %s", to, subject)
	return nil
}
