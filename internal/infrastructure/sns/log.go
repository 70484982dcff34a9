package sns

import (
	"context"
	"log/slog"
)

// LogSender writes codes to the log instead of sending them. Development only.
type LogSender struct{}

func (LogSender) SendCode(_ context.Context, phone, code string) error {
	slog.Info("dynamic code issued", "phone_number", phone, "code", code)
	return nil
}
