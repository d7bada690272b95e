package app_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/Amund211/lana/internal/adapters/historyrepository"
	"github.com/Amund211/lana/internal/app"
	"github.com/Amund211/lana/internal/domain"
	"github.com/stretchr/testify/require"
)

func TestChatHistory(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, time.May, 1, 12, 0, 0, 0, time.UTC)
	nowFunc := func() time.Time { return now }

	t.Run("append invalidates the cached history", func(t *testing.T) {
		t.Parallel()

		store := newStore(t)
		repo := historyrepository.NewMemory(nowFunc)
		getHistory := app.BuildGetChatHistory(store, repo)
		appendMessage := app.BuildAppendChatMessage(store, repo)

		messages, err := getHistory(t.Context(), "user-1", "user-1:chat", 50)
		require.NoError(t, err)
		require.Empty(t, messages)

		for i := range 3 {
			_, err := appendMessage(t.Context(), "user-1", "user-1:chat", domain.ChatRoleUser, fmt.Sprintf("message %d", i))
			require.NoError(t, err)
		}

		messages, err = getHistory(t.Context(), "user-1", "user-1:chat", 2)
		require.NoError(t, err)
		require.Len(t, messages, 2)
		require.Equal(t, "message 1", messages[0].Content)
		require.Equal(t, "message 2", messages[1].Content)

		messages, err = getHistory(t.Context(), "user-1", "user-1:chat", 0)
		require.NoError(t, err)
		require.Len(t, messages, 3)

		// Served from the cache
		hits := store.Stats().Hits
		_, err = getHistory(t.Context(), "user-1", "user-1:chat", 10)
		require.NoError(t, err)
		require.Equal(t, hits+1, store.Stats().Hits)
	})

	t.Run("guests use their own id as session", func(t *testing.T) {
		t.Parallel()

		store := newStore(t)
		repo := historyrepository.NewMemory(nowFunc)

		message, err := app.BuildAppendChatMessage(store, repo)(t.Context(), "guest-abc", "guest-abc", domain.ChatRoleAssistant, "Hi!")
		require.NoError(t, err)
		require.Equal(t, domain.ChatRoleAssistant, message.Role)
		require.Equal(t, now, message.CreatedAt)
	})

	t.Run("foreign sessions are forbidden", func(t *testing.T) {
		t.Parallel()

		store := newStore(t)
		repo := historyrepository.NewMemory(nowFunc)

		_, err := app.BuildGetChatHistory(store, repo)(t.Context(), "user-1", "user-2:chat", 10)
		require.ErrorIs(t, err, domain.ErrForbidden)

		_, err = app.BuildAppendChatMessage(store, repo)(t.Context(), "guest-abc", "guest-def", domain.ChatRoleUser, "hi")
		require.ErrorIs(t, err, domain.ErrForbidden)
	})
}
