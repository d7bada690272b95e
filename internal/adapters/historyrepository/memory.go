package historyrepository

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Amund211/lana/internal/domain"
	"github.com/google/uuid"
)

type Memory struct {
	nowFunc func() time.Time

	mu       sync.Mutex
	sessions map[string][]domain.ChatMessage
}

func NewMemory(nowFunc func() time.Time) *Memory {
	return &Memory{
		nowFunc:  nowFunc,
		sessions: make(map[string][]domain.ChatMessage),
	}
}

func (m *Memory) Append(ctx context.Context, sessionID string, role domain.ChatRole, content string) (domain.ChatMessage, error) {
	if sessionID == "" {
		return domain.ChatMessage{}, errors.New("sessionID is empty")
	}
	if !role.IsValid() {
		return domain.ChatMessage{}, fmt.Errorf("invalid role %q", role)
	}

	message := domain.ChatMessage{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		Role:      role,
		Content:   content,
		CreatedAt: m.nowFunc().Truncate(time.Millisecond).UTC(),
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[sessionID] = append(m.sessions[sessionID], message)

	return message, nil
}

func (m *Memory) List(ctx context.Context, sessionID string, limit int) ([]domain.ChatMessage, error) {
	if limit <= 0 || limit > MaxListLimit {
		limit = MaxListLimit
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	messages := m.sessions[sessionID]
	start := max(len(messages)-limit, 0)

	result := make([]domain.ChatMessage, len(messages)-start)
	copy(result, messages[start:])
	return result, nil
}
