package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"elderaid/internal/domain"
)

// PostgresStatusRepository 状态快照 Repository（PostgreSQL）
// 快照整体存为 JSONB（与 KV 版本同一份带 schemaVersion 的文档），last_seen 单独成列便于查询
type PostgresStatusRepository struct {
	db *sql.DB
}

// NewPostgresStatusRepository 创建状态 Repository
func NewPostgresStatusRepository(db *sql.DB) *PostgresStatusRepository {
	return &PostgresStatusRepository{db: db}
}

var _ StatusRepository = (*PostgresStatusRepository)(nil)

// GetStatus 没有快照时返回 (nil, nil)
func (r *PostgresStatusRepository) GetStatus(ctx context.Context, s domain.Session) (*domain.ElderStatus, error) {
	var snapshot []byte
	err := r.db.QueryRowContext(ctx, `SELECT snapshot FROM elder_status WHERE user_id = $1`, s.ElderID).Scan(&snapshot)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get status: %w", err)
	}
	st, err := domain.DecodeElderStatus(snapshot)
	if err != nil {
		return nil, err
	}
	return &st, nil
}

// SaveStatus upsert 快照
func (r *PostgresStatusRepository) SaveStatus(ctx context.Context, s domain.Session, st domain.ElderStatus) error {
	snapshot, err := domain.EncodeElderStatus(st)
	if err != nil {
		return fmt.Errorf("failed to encode status: %w", err)
	}
	query := `
		INSERT INTO elder_status (user_id, last_seen, snapshot, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (user_id) DO UPDATE SET
			last_seen = EXCLUDED.last_seen,
			snapshot = EXCLUDED.snapshot,
			updated_at = NOW()
	`
	if _, err := r.db.ExecContext(ctx, query, s.ElderID, time.UnixMilli(st.LastSeen).UTC(), snapshot); err != nil {
		return fmt.Errorf("failed to save status: %w", err)
	}
	return nil
}

// ListElderIDs 所有已有快照的老人
func (r *PostgresStatusRepository) ListElderIDs(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT user_id::text FROM elder_status ORDER BY user_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list elders: %w", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan elder id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// NewPostgresRepositories 按 PostgreSQL 组装全部 Repository
func NewPostgresRepositories(db *sql.DB) Repositories {
	return Repositories{
		Medications: NewPostgresMedicationsRepository(db),
		Contacts:    NewPostgresContactsRepository(db),
		Memories:    NewPostgresMemoriesRepository(db),
		Chat:        NewPostgresChatRepository(db),
		Status:      NewPostgresStatusRepository(db),
		Preferences: NewPostgresPreferencesRepository(db),
	}
}
