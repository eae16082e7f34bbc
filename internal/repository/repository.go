package repository

import (
	"context"

	"elderaid/internal/domain"
)

// 两套实现：
//   - KVRepository：对应 App 的本地存储模型，每个集合是一个 JSON 数组（Redis）
//   - Postgres*Repository：多用户远端存储，显式 user_id 外键
// 所有方法都通过 domain.Session 确定数据归属（Session.ElderID）。

// MedicationsRepository 药品与服药记录
type MedicationsRepository interface {
	ListMedications(ctx context.Context, s domain.Session) ([]domain.Medication, error)
	// GetMedication 不存在时返回 NotFoundError
	GetMedication(ctx context.Context, s domain.Session, id string) (*domain.Medication, error)
	// SaveMedication 按 ID upsert
	SaveMedication(ctx context.Context, s domain.Session, m domain.Medication) error
	DeleteMedication(ctx context.Context, s domain.Session, id string) error

	ListMedicationLogs(ctx context.Context, s domain.Session) ([]domain.MedicationLog, error)
	// AddMedicationLog 只追加
	AddMedicationLog(ctx context.Context, s domain.Session, log domain.MedicationLog) error
}

// ContactsRepository 紧急联系人
type ContactsRepository interface {
	ListContacts(ctx context.Context, s domain.Session) ([]domain.EmergencyContact, error)
	// ReplaceContacts 整体重写集合（主联系人唯一性由调用方保证）
	ReplaceContacts(ctx context.Context, s domain.Session, contacts []domain.EmergencyContact) error
	DeleteContact(ctx context.Context, s domain.Session, id string) error
}

// MemoriesRepository 回忆相册
type MemoriesRepository interface {
	ListMemories(ctx context.Context, s domain.Session) ([]domain.Memory, error)
	AddMemory(ctx context.Context, s domain.Session, m domain.Memory) error
	DeleteMemory(ctx context.Context, s domain.Session, id string) error
}

// ChatRepository 对话记录
type ChatRepository interface {
	// ListChatMessages 最近 limit 条，按时间正序；limit<=0 返回全部
	ListChatMessages(ctx context.Context, s domain.Session, limit int) ([]domain.ChatMessage, error)
	AddChatMessage(ctx context.Context, s domain.Session, m domain.ChatMessage) error
}

// StatusRepository 状态快照
type StatusRepository interface {
	// GetStatus 尚无快照时返回 (nil, nil)
	GetStatus(ctx context.Context, s domain.Session) (*domain.ElderStatus, error)
	SaveStatus(ctx context.Context, s domain.Session, st domain.ElderStatus) error
	// ListElderIDs 已有状态快照的老人
	ListElderIDs(ctx context.Context) ([]string, error)
}

// PreferencesRepository 老人端设置
type PreferencesRepository interface {
	// GetPreferences 从未保存过时返回 (nil, nil)
	GetPreferences(ctx context.Context, s domain.Session) (*domain.Preferences, error)
	SavePreferences(ctx context.Context, s domain.Session, p domain.Preferences) error
}

// Repositories 汇总，便于在 main 中按存储后端整体切换
type Repositories struct {
	Medications MedicationsRepository
	Contacts    ContactsRepository
	Memories    MemoriesRepository
	Chat        ChatRepository
	Status      StatusRepository
	Preferences PreferencesRepository
}
