package repository

import (
	"context"
	"database/sql"
	"fmt"

	"elderaid/internal/domain"
)

// PostgresContactsRepository 紧急联系人 Repository（PostgreSQL）
// position 保存 App 中的排列顺序；uniq_primary_contact 部分唯一索引兜底"最多一个主联系人"
type PostgresContactsRepository struct {
	db *sql.DB
}

// NewPostgresContactsRepository 创建联系人 Repository
func NewPostgresContactsRepository(db *sql.DB) *PostgresContactsRepository {
	return &PostgresContactsRepository{db: db}
}

// 确保实现了接口
var _ ContactsRepository = (*PostgresContactsRepository)(nil)

// ListContacts 按 position 返回联系人
func (r *PostgresContactsRepository) ListContacts(ctx context.Context, s domain.Session) ([]domain.EmergencyContact, error) {
	query := `
		SELECT
			contact_id::text,
			name,
			phone,
			relationship,
			is_primary
		FROM emergency_contacts
		WHERE user_id = $1
		ORDER BY position ASC
	`
	rows, err := r.db.QueryContext(ctx, query, s.ElderID)
	if err != nil {
		return nil, fmt.Errorf("failed to list contacts: %w", err)
	}
	defer rows.Close()

	out := []domain.EmergencyContact{}
	for rows.Next() {
		var c domain.EmergencyContact
		if err := rows.Scan(&c.ID, &c.Name, &c.Phone, &c.Relationship, &c.IsPrimary); err != nil {
			return nil, fmt.Errorf("failed to scan contact: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate contacts: %w", err)
	}
	return out, nil
}

// ReplaceContacts 在一个事务内整体重写联系人集合
func (r *PostgresContactsRepository) ReplaceContacts(ctx context.Context, s domain.Session, contacts []domain.EmergencyContact) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM emergency_contacts WHERE user_id = $1`, s.ElderID); err != nil {
		return fmt.Errorf("failed to clear contacts: %w", err)
	}

	insert := `
		INSERT INTO emergency_contacts (
			contact_id, user_id, name, phone, relationship, is_primary, position
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	for i, c := range contacts {
		if _, err := tx.ExecContext(ctx, insert, c.ID, s.ElderID, c.Name, c.Phone, c.Relationship, c.IsPrimary, i); err != nil {
			return fmt.Errorf("failed to insert contact %s: %w", c.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// DeleteContact 删除联系人
func (r *PostgresContactsRepository) DeleteContact(ctx context.Context, s domain.Session, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM emergency_contacts WHERE user_id = $1 AND contact_id = $2`, s.ElderID, id)
	if err != nil {
		return fmt.Errorf("failed to delete contact: %w", err)
	}
	return requireAffected(res, "emergency contact", id)
}
