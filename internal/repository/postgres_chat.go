package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"elderaid/internal/domain"
)

// PostgresChatRepository 对话记录 Repository（PostgreSQL）
// tagged union 拆成 kind + media_uri/media_type + action 三组可空列，读出后按 kind 校验
type PostgresChatRepository struct {
	db *sql.DB
}

// NewPostgresChatRepository 创建对话 Repository
func NewPostgresChatRepository(db *sql.DB) *PostgresChatRepository {
	return &PostgresChatRepository{db: db}
}

var _ ChatRepository = (*PostgresChatRepository)(nil)

// ListChatMessages 取最近 limit 条后按时间正序返回（LIMIT NULL 即不限制）
func (r *PostgresChatRepository) ListChatMessages(ctx context.Context, s domain.Session, limit int) ([]domain.ChatMessage, error) {
	var lim any
	if limit > 0 {
		lim = limit
	}
	query := `
		SELECT message_id, kind, text, sender, sent_at, media_uri, media_type, action
		FROM (
			SELECT
				message_id::text AS message_id,
				kind,
				text,
				sender,
				sent_at,
				media_uri,
				media_type,
				action
			FROM chat_messages
			WHERE user_id = $1
			ORDER BY sent_at DESC
			LIMIT $2
		) recent
		ORDER BY sent_at ASC
	`
	rows, err := r.db.QueryContext(ctx, query, s.ElderID, lim)
	if err != nil {
		return nil, fmt.Errorf("failed to list chat messages: %w", err)
	}
	defer rows.Close()

	out := []domain.ChatMessage{}
	for rows.Next() {
		var (
			m                   domain.ChatMessage
			sentAt              time.Time
			mediaURI, mediaType sql.NullString
			action              sql.NullString
		)
		if err := rows.Scan(&m.ID, &m.Kind, &m.Text, &m.Sender, &sentAt, &mediaURI, &mediaType, &action); err != nil {
			return nil, fmt.Errorf("failed to scan chat message: %w", err)
		}
		m.Timestamp = sentAt.UnixMilli()
		if mediaURI.Valid {
			m.Media = &domain.MediaAttachment{URI: mediaURI.String, Type: domain.MediaType(mediaType.String)}
		}
		m.Action = domain.ChatAction(action.String)
		if err := m.Validate(); err != nil {
			return nil, domain.AsSchemaError("chatMessage", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate chat messages: %w", err)
	}
	return out, nil
}

// AddChatMessage 追加消息
func (r *PostgresChatRepository) AddChatMessage(ctx context.Context, s domain.Session, m domain.ChatMessage) error {
	var mediaURI, mediaType any
	if m.Media != nil {
		mediaURI, mediaType = m.Media.URI, string(m.Media.Type)
	}
	query := `
		INSERT INTO chat_messages (
			message_id, user_id, kind, text, sender, sent_at, media_uri, media_type, action
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := r.db.ExecContext(ctx, query,
		m.ID, s.ElderID, string(m.Kind), m.Text, string(m.Sender), time.UnixMilli(m.Timestamp).UTC(),
		mediaURI, mediaType, nullString(string(m.Action)),
	)
	if err != nil {
		return fmt.Errorf("failed to add chat message: %w", err)
	}
	return nil
}
