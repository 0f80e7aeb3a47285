// Package notification delivers short user-facing notices about the account linking flow.
//
// Notices are scoped to a browser session. The FlashNotifier keeps them in the session so the
// next page can show them; the LogNotifier records them with slog. A NotificationManager fans a
// notice out to every registered notifier.
//
//	manager := notification.NewNotificationManager()
//	manager.RegisterNotifier(notification.FlashSystem, notification.NewFlashNotifier(sessions))
//	manager.RegisterNotifier(notification.LogSystem, notification.LogNotifier{})
//
//	_ = manager.Notify(ctx, sessionID, notification.KindInfo, "Your Imgur account is now linked.")
//
// Notice text is generic. Provider error payloads must never be passed through.
package notification
