package service

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
)

// Mailer delivers the two out-of-band notifications the auth flows produce.
// Implementations receive the token plaintext exactly once; it is never
// persisted anywhere.
type Mailer interface {
	SendVerificationEmail(ctx context.Context, email, name, token string) error
	SendPasswordResetEmail(ctx context.Context, email, name, token string) error
}

// LogMailer writes the links that a real provider would email, to the log.
// It is the development default; production wires a provider-backed Mailer.
type LogMailer struct {
	Logger  *slog.Logger
	BaseURL string
}

func (m *LogMailer) SendVerificationEmail(_ context.Context, email, name, token string) error {
	m.Logger.Info("verification email",
		slog.String("to", email),
		slog.String("name", name),
		slog.String("link", m.link("/v1/auth/verify-email", token)),
	)
	return nil
}

func (m *LogMailer) SendPasswordResetEmail(_ context.Context, email, name, token string) error {
	m.Logger.Info("password reset email",
		slog.String("to", email),
		slog.String("name", name),
		slog.String("link", m.link("/reset-password", token)),
	)
	return nil
}

func (m *LogMailer) link(path, token string) string {
	return fmt.Sprintf("%s%s?token=%s", m.BaseURL, path, url.QueryEscape(token))
}
