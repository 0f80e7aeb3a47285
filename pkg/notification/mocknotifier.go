package notification

import (
	"context"
	"sync"
)

type MockNotifier struct {
	mu            sync.Mutex
	SentNotices   []Notice
	SentSessionID []string
	Err           error
}

func (m *MockNotifier) Notify(ctx context.Context, sessionID string, kind Kind, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.SentNotices = append(m.SentNotices, Notice{Kind: kind, Text: text})
	m.SentSessionID = append(m.SentSessionID, sessionID)
	return nil
}

// Last returns the most recent notice, zero value when none
func (m *MockNotifier) Last() Notice {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.SentNotices) == 0 {
		return Notice{}
	}
	return m.SentNotices[len(m.SentNotices)-1]
}
