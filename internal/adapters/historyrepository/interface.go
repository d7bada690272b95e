package historyrepository

import (
	"context"

	"github.com/Amund211/lana/internal/domain"
)

// Most messages returned by a single List call
const MaxListLimit = 200

type HistoryRepository interface {
	Append(ctx context.Context, sessionID string, role domain.ChatRole, content string) (domain.ChatMessage, error)
	// List returns the latest limit messages of the session, oldest first
	List(ctx context.Context, sessionID string, limit int) ([]domain.ChatMessage, error)
}
