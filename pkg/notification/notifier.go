package notification

import (
	"context"
	"log/slog"
)

// Kind is the severity of a notice shown to the user.
type Kind string

const (
	KindInfo  Kind = "info"
	KindError Kind = "error"
)

// NotificationSystem identifies a delivery channel.
type NotificationSystem string

const (
	FlashSystem NotificationSystem = "flash"
	LogSystem   NotificationSystem = "log"
)

// Notice is one message for the user.
type Notice struct {
	Kind Kind   `json:"kind"`
	Text string `json:"text"`
}

type Notifier interface {
	Notify(ctx context.Context, sessionID string, kind Kind, text string) error
}

// LogNotifier writes notices to the structured log.
type LogNotifier struct{}

func (LogNotifier) Notify(ctx context.Context, sessionID string, kind Kind, text string) error {
	level := slog.LevelInfo
	if kind == KindError {
		level = slog.LevelWarn
	}
	slog.Log(ctx, level, "User notice", "kind", kind, "text", text)
	return nil
}
