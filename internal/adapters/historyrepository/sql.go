package historyrepository

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/Amund211/lana/internal/domain"
	"github.com/Amund211/lana/internal/reporting"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

type SQL struct {
	db      *sqlx.DB
	prefix  string
	tracer  trace.Tracer
	nowFunc func() time.Time
}

func NewPostgres(db *sqlx.DB, schema string, nowFunc func() time.Time) *SQL {
	return &SQL{
		db:      db,
		prefix:  pq.QuoteIdentifier(schema) + ".",
		tracer:  otel.Tracer("lana/historyrepository/postgres"),
		nowFunc: nowFunc,
	}
}

func NewSQLite(db *sqlx.DB, nowFunc func() time.Time) *SQL {
	return &SQL{
		db:      db,
		prefix:  "",
		tracer:  otel.Tracer("lana/historyrepository/sqlite"),
		nowFunc: nowFunc,
	}
}

func (s *SQL) query(format string) string {
	return s.db.Rebind(fmt.Sprintf(format, s.prefix))
}

type dbChatMessage struct {
	ID          string `db:"id"`
	SessionID   string `db:"session_id"`
	Role        string `db:"role"`
	Content     string `db:"content"`
	CreatedAtMS int64  `db:"created_at_ms"`
}

func (m dbChatMessage) toDomain() domain.ChatMessage {
	return domain.ChatMessage{
		ID:        m.ID,
		SessionID: m.SessionID,
		Role:      domain.ChatRole(m.Role),
		Content:   m.Content,
		CreatedAt: time.UnixMilli(m.CreatedAtMS).UTC(),
	}
}

func (s *SQL) Append(ctx context.Context, sessionID string, role domain.ChatRole, content string) (domain.ChatMessage, error) {
	ctx, span := s.tracer.Start(ctx, "SQL.Append")
	defer span.End()

	if sessionID == "" {
		err := errors.New("sessionID is empty")
		reporting.Report(ctx, err)
		return domain.ChatMessage{}, err
	}
	if !role.IsValid() {
		err := fmt.Errorf("invalid role %q", role)
		reporting.Report(ctx, err)
		return domain.ChatMessage{}, err
	}

	// Version 7 ids sort by creation time, so they break ties between messages created in the same millisecond
	id, err := uuid.NewV7()
	if err != nil {
		err := fmt.Errorf("failed to generate message id: %w", err)
		reporting.Report(ctx, err)
		return domain.ChatMessage{}, err
	}

	message := dbChatMessage{
		ID:          id.String(),
		SessionID:   sessionID,
		Role:        string(role),
		Content:     content,
		CreatedAtMS: s.nowFunc().UnixMilli(),
	}

	_, err = s.db.ExecContext(
		ctx,
		s.query(`INSERT INTO %[1]schat_messages
		(id, session_id, role, content, created_at_ms)
		VALUES (?, ?, ?, ?, ?)`),
		message.ID,
		message.SessionID,
		message.Role,
		message.Content,
		message.CreatedAtMS,
	)
	if err != nil {
		err := fmt.Errorf("failed to insert chat message: %w", err)
		reporting.Report(ctx, err, map[string]string{
			"sessionID": sessionID,
		})
		return domain.ChatMessage{}, err
	}

	return message.toDomain(), nil
}

func (s *SQL) List(ctx context.Context, sessionID string, limit int) ([]domain.ChatMessage, error) {
	ctx, span := s.tracer.Start(ctx, "SQL.List")
	defer span.End()

	if limit <= 0 || limit > MaxListLimit {
		limit = MaxListLimit
	}

	var messages []dbChatMessage
	err := s.db.SelectContext(
		ctx,
		&messages,
		s.query(`SELECT id, session_id, role, content, created_at_ms
		FROM %[1]schat_messages
		WHERE session_id = ?
		ORDER BY created_at_ms DESC, id DESC
		LIMIT ?`),
		sessionID,
		limit,
	)
	if err != nil {
		err := fmt.Errorf("failed to select chat messages: %w", err)
		reporting.Report(ctx, err, map[string]string{
			"sessionID": sessionID,
		})
		return nil, err
	}

	result := make([]domain.ChatMessage, 0, len(messages))
	for _, message := range slices.Backward(messages) {
		result = append(result, message.toDomain())
	}
	return result, nil
}
