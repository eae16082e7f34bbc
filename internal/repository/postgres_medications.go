package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"elderaid/internal/domain"
)

// PostgresMedicationsRepository 药品/服药记录 Repository（PostgreSQL）
// schedule 以 JSONB 存储；start_at/end_at/logged_at 为 timestamptz，对外统一换算为 epoch ms
type PostgresMedicationsRepository struct {
	db *sql.DB
}

// NewPostgresMedicationsRepository 创建药品 Repository
func NewPostgresMedicationsRepository(db *sql.DB) *PostgresMedicationsRepository {
	return &PostgresMedicationsRepository{db: db}
}

// 确保实现了接口
var _ MedicationsRepository = (*PostgresMedicationsRepository)(nil)

const medicationColumns = `
			medication_id::text,
			name,
			dosage,
			schedule,
			image_uri,
			notes,
			start_at,
			end_at,
			is_active`

// ListMedications 按创建顺序返回老人的全部药品
func (r *PostgresMedicationsRepository) ListMedications(ctx context.Context, s domain.Session) ([]domain.Medication, error) {
	query := `
		SELECT ` + medicationColumns + `
		FROM medications
		WHERE user_id = $1
		ORDER BY created_at ASC, medication_id ASC
	`
	rows, err := r.db.QueryContext(ctx, query, s.ElderID)
	if err != nil {
		return nil, fmt.Errorf("failed to list medications: %w", err)
	}
	defer rows.Close()

	out := []domain.Medication{}
	for rows.Next() {
		m, err := scanMedication(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate medications: %w", err)
	}
	return out, nil
}

// GetMedication 根据 medication_id 获取
func (r *PostgresMedicationsRepository) GetMedication(ctx context.Context, s domain.Session, id string) (*domain.Medication, error) {
	query := `
		SELECT ` + medicationColumns + `
		FROM medications
		WHERE user_id = $1 AND medication_id = $2
	`
	m, err := scanMedication(r.db.QueryRowContext(ctx, query, s.ElderID, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.NotFound("medication", id)
		}
		return nil, err
	}
	return &m, nil
}

// SaveMedication 按 (user_id, medication_id) upsert
func (r *PostgresMedicationsRepository) SaveMedication(ctx context.Context, s domain.Session, m domain.Medication) error {
	schedule, err := json.Marshal(nonNilSchedule(m.Schedule))
	if err != nil {
		return fmt.Errorf("failed to encode schedule: %w", err)
	}

	query := `
		INSERT INTO medications (
			medication_id, user_id, name, dosage, schedule,
			image_uri, notes, start_at, end_at, is_active
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (user_id, medication_id) DO UPDATE SET
			name = EXCLUDED.name,
			dosage = EXCLUDED.dosage,
			schedule = EXCLUDED.schedule,
			image_uri = EXCLUDED.image_uri,
			notes = EXCLUDED.notes,
			start_at = EXCLUDED.start_at,
			end_at = EXCLUDED.end_at,
			is_active = EXCLUDED.is_active,
			updated_at = NOW()
	`
	res, err := r.db.ExecContext(ctx, query,
		m.ID, s.ElderID, m.Name, m.Dosage, schedule,
		nullString(m.ImageURI), nullString(m.Notes), nullMillis(m.StartAt), nullMillis(m.EndAt), nullBool(m.IsActive),
	)
	if err != nil {
		return fmt.Errorf("failed to save medication: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("failed to save medication %s: no rows written", m.ID)
	}
	return nil
}

// DeleteMedication 删除药品（服药记录保留，用于历史报表）
func (r *PostgresMedicationsRepository) DeleteMedication(ctx context.Context, s domain.Session, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM medications WHERE user_id = $1 AND medication_id = $2`, s.ElderID, id)
	if err != nil {
		return fmt.Errorf("failed to delete medication: %w", err)
	}
	return requireAffected(res, "medication", id)
}

// ListMedicationLogs 按时间正序返回全部服药记录
func (r *PostgresMedicationsRepository) ListMedicationLogs(ctx context.Context, s domain.Session) ([]domain.MedicationLog, error) {
	query := `
		SELECT
			log_id::text,
			medication_id::text,
			status,
			logged_at,
			scheduled_time
		FROM medication_logs
		WHERE user_id = $1
		ORDER BY logged_at ASC
	`
	rows, err := r.db.QueryContext(ctx, query, s.ElderID)
	if err != nil {
		return nil, fmt.Errorf("failed to list medication logs: %w", err)
	}
	defer rows.Close()

	out := []domain.MedicationLog{}
	for rows.Next() {
		var (
			l        domain.MedicationLog
			loggedAt time.Time
		)
		if err := rows.Scan(&l.ID, &l.MedicationID, &l.Status, &loggedAt, &l.ScheduledTime); err != nil {
			return nil, fmt.Errorf("failed to scan medication log: %w", err)
		}
		if !l.Status.Valid() {
			return nil, &domain.SchemaError{Document: "medicationLog", Field: "status", Reason: fmt.Sprintf("unknown status %q", l.Status)}
		}
		l.Timestamp = loggedAt.UnixMilli()
		out = append(out, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate medication logs: %w", err)
	}
	return out, nil
}

// AddMedicationLog 追加服药记录，reported_by 记录实际操作人
func (r *PostgresMedicationsRepository) AddMedicationLog(ctx context.Context, s domain.Session, l domain.MedicationLog) error {
	query := `
		INSERT INTO medication_logs (
			log_id, user_id, medication_id, status, logged_at, scheduled_time, reported_by
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.db.ExecContext(ctx, query,
		l.ID, s.ElderID, l.MedicationID, string(l.Status), time.UnixMilli(l.Timestamp).UTC(), l.ScheduledTime, s.Actor(),
	)
	if err != nil {
		return fmt.Errorf("failed to add medication log: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMedication(row rowScanner) (domain.Medication, error) {
	var (
		m               domain.Medication
		schedule        []byte
		imageURI, notes sql.NullString
		startAt, endAt  sql.NullTime
		isActive        sql.NullBool
	)
	if err := row.Scan(&m.ID, &m.Name, &m.Dosage, &schedule, &imageURI, &notes, &startAt, &endAt, &isActive); err != nil {
		if err == sql.ErrNoRows {
			return m, err
		}
		return m, fmt.Errorf("failed to scan medication: %w", err)
	}
	if err := json.Unmarshal(schedule, &m.Schedule); err != nil {
		return m, &domain.SchemaError{Document: "medication", Field: "schedule", Reason: err.Error()}
	}
	if m.Schedule == nil {
		m.Schedule = []domain.ScheduleEntry{}
	}
	m.ImageURI = imageURI.String
	m.Notes = notes.String
	m.StartAt = millisPtr(startAt)
	m.EndAt = millisPtr(endAt)
	if isActive.Valid {
		v := isActive.Bool
		m.IsActive = &v
	}
	return m, nil
}

func nonNilSchedule(s []domain.ScheduleEntry) []domain.ScheduleEntry {
	if s == nil {
		return []domain.ScheduleEntry{}
	}
	return s
}
