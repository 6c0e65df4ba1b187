// Package notify delivers outbound account messages: email verification
// codes and password reset codes. The Notifier is constructed at startup
// and injected into the auth service; nothing here is a hidden global.
//
// Delivery is best-effort from the caller's perspective. The auth service
// logs a failed send and carries on; it never fails a registration or a
// reset request because the mail gateway hiccuped.
package notify

import (
	"context"
	"log/slog"
)

// Notifier is the outbound side channel.
type Notifier interface {
	SendVerificationCode(ctx context.Context, email, code string) error
	SendPasswordResetCode(ctx context.Context, email, code string) error
}

// LogNotifier writes would-be deliveries to the structured log. It is the
// default in development and in deployments without a mail gateway.
type LogNotifier struct {
	log *slog.Logger
}

// NewLogNotifier wraps the given logger.
func NewLogNotifier(log *slog.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

func (n *LogNotifier) SendVerificationCode(_ context.Context, email, code string) error {
	n.log.Info("verification code issued", "email", email, "code", code)
	return nil
}

func (n *LogNotifier) SendPasswordResetCode(_ context.Context, email, code string) error {
	n.log.Info("password reset code issued", "email", email, "code", code)
	return nil
}
