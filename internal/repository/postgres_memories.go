package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"elderaid/internal/domain"

	"github.com/lib/pq"
)

// PostgresMemoriesRepository 回忆相册 Repository（PostgreSQL，tags 为 text[]）
type PostgresMemoriesRepository struct {
	db *sql.DB
}

// NewPostgresMemoriesRepository 创建相册 Repository
func NewPostgresMemoriesRepository(db *sql.DB) *PostgresMemoriesRepository {
	return &PostgresMemoriesRepository{db: db}
}

var _ MemoriesRepository = (*PostgresMemoriesRepository)(nil)

func (r *PostgresMemoriesRepository) ListMemories(ctx context.Context, s domain.Session) ([]domain.Memory, error) {
	query := `
		SELECT
			memory_id::text,
			image_uri,
			caption,
			taken_at,
			tags
		FROM memories
		WHERE user_id = $1
		ORDER BY taken_at ASC
	`
	rows, err := r.db.QueryContext(ctx, query, s.ElderID)
	if err != nil {
		return nil, fmt.Errorf("failed to list memories: %w", err)
	}
	defer rows.Close()

	out := []domain.Memory{}
	for rows.Next() {
		var (
			m       domain.Memory
			takenAt time.Time
			tags    []string
		)
		if err := rows.Scan(&m.ID, &m.ImageURI, &m.Caption, &takenAt, pq.Array(&tags)); err != nil {
			return nil, fmt.Errorf("failed to scan memory: %w", err)
		}
		m.Timestamp = takenAt.UnixMilli()
		if len(tags) > 0 {
			m.Tags = tags
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate memories: %w", err)
	}
	return out, nil
}

func (r *PostgresMemoriesRepository) AddMemory(ctx context.Context, s domain.Session, m domain.Memory) error {
	tags := m.Tags
	if tags == nil {
		tags = []string{}
	}
	query := `
		INSERT INTO memories (memory_id, user_id, image_uri, caption, taken_at, tags)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := r.db.ExecContext(ctx, query, m.ID, s.ElderID, m.ImageURI, m.Caption, time.UnixMilli(m.Timestamp).UTC(), pq.Array(tags))
	if err != nil {
		return fmt.Errorf("failed to add memory: %w", err)
	}
	return nil
}

func (r *PostgresMemoriesRepository) DeleteMemory(ctx context.Context, s domain.Session, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM memories WHERE user_id = $1 AND memory_id = $2`, s.ElderID, id)
	if err != nil {
		return fmt.Errorf("failed to delete memory: %w", err)
	}
	return requireAffected(res, "memory", id)
}
