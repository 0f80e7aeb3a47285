package notification

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"
)

// NotificationManager fans notices out to the registered notifiers.
type NotificationManager struct {
	mu        sync.RWMutex
	notifiers map[NotificationSystem]Notifier
}

// NewNotificationManager creates and returns a new NotificationManager.
func NewNotificationManager() *NotificationManager {
	return &NotificationManager{
		notifiers: make(map[NotificationSystem]Notifier),
	}
}

// RegisterNotifier registers a notifier for a specific system, replacing any earlier one.
func (nm *NotificationManager) RegisterNotifier(system NotificationSystem, notifier Notifier) {
	nm.mu.Lock()
	defer nm.mu.Unlock()
	nm.notifiers[system] = notifier
}

// Notify delivers to every notifier. Failures are logged and joined; one failing
// channel does not stop the others.
func (nm *NotificationManager) Notify(ctx context.Context, sessionID string, kind Kind, text string) error {
	nm.mu.RLock()
	systems := make([]NotificationSystem, 0, len(nm.notifiers))
	for system := range nm.notifiers {
		systems = append(systems, system)
	}
	notifiers := make(map[NotificationSystem]Notifier, len(nm.notifiers))
	for k, v := range nm.notifiers {
		notifiers[k] = v
	}
	nm.mu.RUnlock()

	sort.Slice(systems, func(i, j int) bool { return systems[i] < systems[j] })

	var errs []error
	for _, system := range systems {
		if err := notifiers[system].Notify(ctx, sessionID, kind, text); err != nil {
			slog.Error("Failed to deliver notice", "system", system, "error", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
