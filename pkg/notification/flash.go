package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/tendant/social-post-imgur/pkg/session"
)

const flashKey = "flash_notices"

// FlashNotifier queues notices in the browser session until Drain is called.
type FlashNotifier struct {
	sessions session.Store
	// mu serialises read-modify-write of the queue within this process.
	mu sync.Mutex
}

func NewFlashNotifier(sessions session.Store) *FlashNotifier {
	return &FlashNotifier{sessions: sessions}
}

func (f *FlashNotifier) Notify(ctx context.Context, sessionID string, kind Kind, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	notices, err := f.load(ctx, sessionID)
	if err != nil {
		return err
	}
	notices = append(notices, Notice{Kind: kind, Text: text})

	raw, err := json.Marshal(notices)
	if err != nil {
		return fmt.Errorf("failed to encode notices: %w", err)
	}
	if err := f.sessions.Set(ctx, sessionID, flashKey, string(raw), 0); err != nil {
		return fmt.Errorf("failed to store notices: %w", err)
	}
	return nil
}

// Drain returns the queued notices of the session and clears them
func (f *FlashNotifier) Drain(ctx context.Context, sessionID string) ([]Notice, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	notices, err := f.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if len(notices) == 0 {
		return []Notice{}, nil
	}
	if err := f.sessions.Delete(ctx, sessionID, flashKey); err != nil {
		return nil, fmt.Errorf("failed to clear notices: %w", err)
	}
	return notices, nil
}

func (f *FlashNotifier) load(ctx context.Context, sessionID string) ([]Notice, error) {
	raw, ok, err := f.sessions.Get(ctx, sessionID, flashKey)
	if err != nil {
		return nil, fmt.Errorf("failed to read notices: %w", err)
	}
	if !ok || raw == "" {
		return nil, nil
	}
	var notices []Notice
	if err := json.Unmarshal([]byte(raw), &notices); err != nil {
		return nil, fmt.Errorf("failed to decode notices: %w", err)
	}
	return notices, nil
}
