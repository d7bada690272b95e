package app

import (
	"context"
	"fmt"

	"github.com/Amund211/lana/internal/adapters/cache"
	"github.com/Amund211/lana/internal/adapters/historyrepository"
	"github.com/Amund211/lana/internal/domain"
	"github.com/Amund211/lana/internal/fingerprint"
	"github.com/Amund211/lana/internal/reporting"
)

type GetChatHistory func(ctx context.Context, userID string, sessionID string, limit int) ([]domain.ChatMessage, error)

type AppendChatMessage func(ctx context.Context, userID string, sessionID string, role domain.ChatRole, content string) (domain.ChatMessage, error)

func historyKey(sessionID string) string {
	return fingerprint.Text("history", sessionID)
}

func authorizeSession(ctx context.Context, userID string, sessionID string) error {
	if domain.SessionBelongsToUser(userID, sessionID) {
		return nil
	}
	ctx = reporting.SetUserIDInContext(ctx, userID)
	reporting.Report(ctx, fmt.Errorf("%w: session does not belong to user", domain.ErrForbidden), map[string]string{
		"sessionID": sessionID,
	})
	return fmt.Errorf("%w: session %s does not belong to user", domain.ErrForbidden, sessionID)
}

// BuildGetChatHistory returns the latest messages of a session, oldest first.
//
// The full window of MaxListLimit messages is cached per session, smaller limits are served from it.
func BuildGetChatHistory(store *cache.Store, repo historyrepository.HistoryRepository) GetChatHistory {
	return func(ctx context.Context, userID string, sessionID string, limit int) ([]domain.ChatMessage, error) {
		if err := authorizeSession(ctx, userID, sessionID); err != nil {
			return nil, err
		}
		if limit <= 0 || limit > historyrepository.MaxListLimit {
			limit = historyrepository.MaxListLimit
		}

		key := historyKey(sessionID)
		messages, ok := cache.GetJSON[[]domain.ChatMessage](ctx, store, cache.NamespaceHistory, key)
		if !ok {
			var err error
			messages, err = repo.List(ctx, sessionID, historyrepository.MaxListLimit)
			if err != nil {
				// NOTE: HistoryRepository implementations handle their own error reporting
				return nil, fmt.Errorf("failed to list chat history: %w", err)
			}
			cache.SetJSON(ctx, store, cache.NamespaceHistory, key, messages, 0)
		}

		if len(messages) > limit {
			messages = messages[len(messages)-limit:]
		}
		return messages, nil
	}
}

func BuildAppendChatMessage(store *cache.Store, repo historyrepository.HistoryRepository) AppendChatMessage {
	return func(ctx context.Context, userID string, sessionID string, role domain.ChatRole, content string) (domain.ChatMessage, error) {
		if err := authorizeSession(ctx, userID, sessionID); err != nil {
			return domain.ChatMessage{}, err
		}

		message, err := repo.Append(ctx, sessionID, role, content)
		if err != nil {
			// NOTE: HistoryRepository implementations handle their own error reporting
			return domain.ChatMessage{}, fmt.Errorf("failed to append chat message: %w", err)
		}

		store.Delete(ctx, cache.NamespaceHistory, historyKey(sessionID))

		return message, nil
	}
}
