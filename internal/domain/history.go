package domain

import (
	"strings"
	"time"
)

type ChatRole string

const (
	ChatRoleUser      ChatRole = "user"
	ChatRoleAssistant ChatRole = "assistant"
)

func (r ChatRole) IsValid() bool {
	return r == ChatRoleUser || r == ChatRoleAssistant
}

type ChatMessage struct {
	ID        string
	SessionID string
	Role      ChatRole
	Content   string
	CreatedAt time.Time
}

// Guest users have ids starting with this prefix and may only use their own id as session id
const GuestUserPrefix = "guest-"

// SessionBelongsToUser reports whether the user may read and write the given chat session.
//
// Registered users namespace their sessions as "<user id>:<anything>".
func SessionBelongsToUser(userID, sessionID string) bool {
	if userID == "" || sessionID == "" {
		return false
	}
	if strings.HasPrefix(userID, GuestUserPrefix) {
		return sessionID == userID
	}
	return strings.HasPrefix(sessionID, userID+":")
}
