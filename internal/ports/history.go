package ports

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/Amund211/lana/internal/app"
	"github.com/Amund211/lana/internal/domain"
	"github.com/Amund211/lana/internal/logging"
	"github.com/Amund211/lana/internal/validation"
)

type chatMessageResponse struct {
	ID        string `json:"id"`
	SessionID string `json:"sid"`
	Role      string `json:"role"`
	Content   string `json:"content"`
	CreatedAt string `json:"created_at"`
}

func chatMessageToResponse(message domain.ChatMessage) chatMessageResponse {
	return chatMessageResponse{
		ID:        message.ID,
		SessionID: message.SessionID,
		Role:      string(message.Role),
		Content:   message.Content,
		CreatedAt: message.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
}

type appendChatMessageRequest struct {
	SessionID string `json:"sid"`
	Role      string `json:"role"`
	Content   string `json:"content"`
}

func parseHistoryLimit(raw string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 0 {
		return 0, &validation.Error{Fields: []validation.FieldError{{Field: "limit", Message: "Limit must be a non-negative integer"}}}
	}
	return limit, nil
}

func writeHistoryError(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()
	if errors.Is(err, domain.ErrForbidden) || errors.Is(err, domain.ErrUnauthorized) {
		writeAuthError(w, r, err)
		return
	}

	statusCode := http.StatusInternalServerError
	logging.FromContext(ctx).ErrorContext(ctx, "Error handling chat history", "statusCode", statusCode, "error", err)
	writeJSON(w, r, statusCode, errorResponse{Error: "Internal Server Error", Message: "Failed to access chat history"})
}

// MakeHistoryHandler serves GET (list) and POST (append) for a chat session
func MakeHistoryHandler(
	authenticate Authenticator,
	getChatHistory app.GetChatHistory,
	appendChatMessage app.AppendChatMessage,
	middleware func(http.HandlerFunc) http.HandlerFunc,
) http.HandlerFunc {
	list := func(w http.ResponseWriter, r *http.Request, userID string) {
		query := r.URL.Query()
		sessionID, sidErr := validation.SessionID(query.Get("sid"))
		limit, limitErr := parseHistoryLimit(query.Get("limit"))
		if err := validation.Join(sidErr, limitErr); err != nil {
			writeValidationError(w, r, err)
			return
		}

		ctx := logging.AddMetaToContext(r.Context(), slog.String("sid", sessionID))
		r = r.WithContext(ctx)

		messages, err := getChatHistory(ctx, userID, sessionID, limit)
		if err != nil {
			writeHistoryError(w, r, err)
			return
		}

		response := make([]chatMessageResponse, 0, len(messages))
		for _, message := range messages {
			response = append(response, chatMessageToResponse(message))
		}
		writeJSON(w, r, http.StatusOK, response)
	}

	appendMessage := func(w http.ResponseWriter, r *http.Request, userID string) {
		var request appendChatMessageRequest
		if err := decodeBody(w, r, &request); err != nil {
			writeInvalidBody(w, r, err)
			return
		}

		sessionID, sidErr := validation.SessionID(request.SessionID)
		role, roleErr := validation.ChatRole(request.Role)
		content, contentErr := validation.ChatContent(request.Content)
		if err := validation.Join(sidErr, roleErr, contentErr); err != nil {
			writeValidationError(w, r, err)
			return
		}

		ctx := logging.AddMetaToContext(r.Context(), slog.String("sid", sessionID))
		r = r.WithContext(ctx)

		message, err := appendChatMessage(ctx, userID, sessionID, role, content)
		if err != nil {
			writeHistoryError(w, r, err)
			return
		}

		writeJSON(w, r, http.StatusCreated, chatMessageToResponse(message))
	}

	handler := func(w http.ResponseWriter, r *http.Request) {
		userID, err := authenticate(r)
		if err != nil {
			logging.FromContext(r.Context()).InfoContext(r.Context(), "Rejected history request", "error", err.Error())
			writeAuthError(w, r, err)
			return
		}

		r = r.WithContext(logging.AddMetaToContext(r.Context(), slog.String("userID", userID)))

		switch r.Method {
		case http.MethodGet:
			list(w, r, userID)
		case http.MethodPost:
			appendMessage(w, r, userID)
		default:
			w.Header().Set("Allow", "GET, POST, OPTIONS")
			writeJSON(w, r, http.StatusMethodNotAllowed, errorResponse{Error: "Method Not Allowed", Message: "Use GET or POST"})
		}
	}

	return middleware(handler)
}
