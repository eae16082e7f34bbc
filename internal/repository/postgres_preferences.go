package repository

import (
	"context"
	"database/sql"
	"fmt"

	"elderaid/internal/domain"
)

// PostgresPreferencesRepository 老人端设置（PostgreSQL，JSONB 文档）
type PostgresPreferencesRepository struct {
	db *sql.DB
}

// NewPostgresPreferencesRepository 创建设置 Repository
func NewPostgresPreferencesRepository(db *sql.DB) *PostgresPreferencesRepository {
	return &PostgresPreferencesRepository{db: db}
}

var _ PreferencesRepository = (*PostgresPreferencesRepository)(nil)

// GetPreferences 没有记录时返回 (nil, nil)
func (r *PostgresPreferencesRepository) GetPreferences(ctx context.Context, s domain.Session) (*domain.Preferences, error) {
	var doc []byte
	err := r.db.QueryRowContext(ctx, `SELECT preferences FROM user_preferences WHERE user_id = $1`, s.ElderID).Scan(&doc)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get preferences: %w", err)
	}
	p, err := domain.DecodePreferences(doc)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *PostgresPreferencesRepository) SavePreferences(ctx context.Context, s domain.Session, p domain.Preferences) error {
	doc, err := domain.EncodePreferences(p)
	if err != nil {
		return fmt.Errorf("failed to encode preferences: %w", err)
	}
	query := `
		INSERT INTO user_preferences (user_id, preferences, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (user_id) DO UPDATE SET
			preferences = EXCLUDED.preferences,
			updated_at = NOW()
	`
	if _, err := r.db.ExecContext(ctx, query, s.ElderID, doc); err != nil {
		return fmt.Errorf("failed to save preferences: %w", err)
	}
	return nil
}
