package repository

import (
	"context"
	"errors"
	"fmt"

	"elderaid/internal/domain"
	"elderaid/internal/store"
)

// KVRepository 基于 KV 的存储：每个集合整存整取（read-modify-write）
// 与 App 本地存储行为一致；跨进程并发写同一集合时后写覆盖先写。
type KVRepository struct {
	kv store.KV
}

// NewKVRepository 创建 KV 存储
func NewKVRepository(kv store.KV) *KVRepository {
	return &KVRepository{kv: kv}
}

// Repositories 以同一个 KVRepository 填充全部接口
func (r *KVRepository) Repositories() Repositories {
	return Repositories{Medications: r, Contacts: r, Memories: r, Chat: r, Status: r, Preferences: r}
}

var (
	_ MedicationsRepository = (*KVRepository)(nil)
	_ ContactsRepository    = (*KVRepository)(nil)
	_ MemoriesRepository    = (*KVRepository)(nil)
	_ ChatRepository        = (*KVRepository)(nil)
	_ StatusRepository      = (*KVRepository)(nil)
	_ PreferencesRepository = (*KVRepository)(nil)
)

func loadCollection[T any](ctx context.Context, kv store.KV, s domain.Session, collection string, decode func([]byte) (T, error)) ([]T, error) {
	raw, err := kv.Get(ctx, store.ElderKey(s.ElderID, collection))
	if err != nil {
		if errors.Is(err, store.ErrMiss) {
			return []T{}, nil
		}
		return nil, fmt.Errorf("failed to load %s: %w", collection, err)
	}
	return domain.DecodeCollection(collection, []byte(raw), decode)
}

func saveCollection[T any](ctx context.Context, kv store.KV, s domain.Session, collection string, items []T) error {
	raw, err := domain.EncodeCollection(items)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", collection, err)
	}
	if err := kv.Set(ctx, store.ElderKey(s.ElderID, collection), string(raw), 0); err != nil {
		return fmt.Errorf("failed to save %s: %w", collection, err)
	}
	return nil
}

// ========== Medications ==========

func (r *KVRepository) ListMedications(ctx context.Context, s domain.Session) ([]domain.Medication, error) {
	return loadCollection(ctx, r.kv, s, store.CollectionMedications, domain.DecodeMedication)
}

func (r *KVRepository) GetMedication(ctx context.Context, s domain.Session, id string) (*domain.Medication, error) {
	meds, err := r.ListMedications(ctx, s)
	if err != nil {
		return nil, err
	}
	for i := range meds {
		if meds[i].ID == id {
			return &meds[i], nil
		}
	}
	return nil, domain.NotFound("medication", id)
}

func (r *KVRepository) SaveMedication(ctx context.Context, s domain.Session, m domain.Medication) error {
	meds, err := r.ListMedications(ctx, s)
	if err != nil {
		return err
	}
	replaced := false
	for i := range meds {
		if meds[i].ID == m.ID {
			meds[i] = m
			replaced = true
			break
		}
	}
	if !replaced {
		meds = append(meds, m)
	}
	return saveCollection(ctx, r.kv, s, store.CollectionMedications, meds)
}

func (r *KVRepository) DeleteMedication(ctx context.Context, s domain.Session, id string) error {
	meds, err := r.ListMedications(ctx, s)
	if err != nil {
		return err
	}
	kept, removed := without(meds, func(m domain.Medication) bool { return m.ID == id })
	if !removed {
		return domain.NotFound("medication", id)
	}
	return saveCollection(ctx, r.kv, s, store.CollectionMedications, kept)
}

func (r *KVRepository) ListMedicationLogs(ctx context.Context, s domain.Session) ([]domain.MedicationLog, error) {
	return loadCollection(ctx, r.kv, s, store.CollectionMedicationLogs, domain.DecodeMedicationLog)
}

func (r *KVRepository) AddMedicationLog(ctx context.Context, s domain.Session, log domain.MedicationLog) error {
	logs, err := r.ListMedicationLogs(ctx, s)
	if err != nil {
		return err
	}
	return saveCollection(ctx, r.kv, s, store.CollectionMedicationLogs, append(logs, log))
}

// ========== Contacts ==========

func (r *KVRepository) ListContacts(ctx context.Context, s domain.Session) ([]domain.EmergencyContact, error) {
	return loadCollection(ctx, r.kv, s, store.CollectionEmergencyContacts, domain.DecodeEmergencyContact)
}

func (r *KVRepository) ReplaceContacts(ctx context.Context, s domain.Session, contacts []domain.EmergencyContact) error {
	return saveCollection(ctx, r.kv, s, store.CollectionEmergencyContacts, contacts)
}

func (r *KVRepository) DeleteContact(ctx context.Context, s domain.Session, id string) error {
	contacts, err := r.ListContacts(ctx, s)
	if err != nil {
		return err
	}
	kept, removed := without(contacts, func(c domain.EmergencyContact) bool { return c.ID == id })
	if !removed {
		return domain.NotFound("emergency contact", id)
	}
	return saveCollection(ctx, r.kv, s, store.CollectionEmergencyContacts, kept)
}

// ========== Memories ==========

func (r *KVRepository) ListMemories(ctx context.Context, s domain.Session) ([]domain.Memory, error) {
	return loadCollection(ctx, r.kv, s, store.CollectionMemories, domain.DecodeMemory)
}

func (r *KVRepository) AddMemory(ctx context.Context, s domain.Session, m domain.Memory) error {
	memories, err := r.ListMemories(ctx, s)
	if err != nil {
		return err
	}
	return saveCollection(ctx, r.kv, s, store.CollectionMemories, append(memories, m))
}

func (r *KVRepository) DeleteMemory(ctx context.Context, s domain.Session, id string) error {
	memories, err := r.ListMemories(ctx, s)
	if err != nil {
		return err
	}
	kept, removed := without(memories, func(m domain.Memory) bool { return m.ID == id })
	if !removed {
		return domain.NotFound("memory", id)
	}
	return saveCollection(ctx, r.kv, s, store.CollectionMemories, kept)
}

// ========== Chat ==========

func (r *KVRepository) ListChatMessages(ctx context.Context, s domain.Session, limit int) ([]domain.ChatMessage, error) {
	msgs, err := loadCollection(ctx, r.kv, s, store.CollectionChatMessages, domain.DecodeChatMessage)
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	return msgs, nil
}

func (r *KVRepository) AddChatMessage(ctx context.Context, s domain.Session, m domain.ChatMessage) error {
	msgs, err := r.ListChatMessages(ctx, s, 0)
	if err != nil {
		return err
	}
	return saveCollection(ctx, r.kv, s, store.CollectionChatMessages, append(msgs, m))
}

// ========== Status ==========

func (r *KVRepository) GetStatus(ctx context.Context, s domain.Session) (*domain.ElderStatus, error) {
	raw, err := r.kv.Get(ctx, store.ElderKey(s.ElderID, store.CollectionStatus))
	if err != nil {
		if errors.Is(err, store.ErrMiss) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load status: %w", err)
	}
	st, err := domain.DecodeElderStatus([]byte(raw))
	if err != nil {
		return nil, err
	}
	return &st, nil
}

func (r *KVRepository) SaveStatus(ctx context.Context, s domain.Session, st domain.ElderStatus) error {
	raw, err := domain.EncodeElderStatus(st)
	if err != nil {
		return fmt.Errorf("failed to encode status: %w", err)
	}
	if err := r.kv.Set(ctx, store.ElderKey(s.ElderID, store.CollectionStatus), string(raw), 0); err != nil {
		return fmt.Errorf("failed to save status: %w", err)
	}
	return nil
}

func (r *KVRepository) ListElderIDs(ctx context.Context) ([]string, error) {
	keys, err := r.kv.ScanKeys(ctx, store.ElderPattern(store.CollectionStatus))
	if err != nil {
		return nil, fmt.Errorf("failed to scan elders: %w", err)
	}
	ids := make([]string, 0, len(keys))
	for _, k := range keys {
		if id, ok := store.ElderIDFromKey(k, store.CollectionStatus); ok {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// ========== Preferences ==========

func (r *KVRepository) GetPreferences(ctx context.Context, s domain.Session) (*domain.Preferences, error) {
	raw, err := r.kv.Get(ctx, store.ElderKey(s.ElderID, store.CollectionPreferences))
	if err != nil {
		if errors.Is(err, store.ErrMiss) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load preferences: %w", err)
	}
	p, err := domain.DecodePreferences([]byte(raw))
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *KVRepository) SavePreferences(ctx context.Context, s domain.Session, p domain.Preferences) error {
	raw, err := domain.EncodePreferences(p)
	if err != nil {
		return fmt.Errorf("failed to encode preferences: %w", err)
	}
	if err := r.kv.Set(ctx, store.ElderKey(s.ElderID, store.CollectionPreferences), string(raw), 0); err != nil {
		return fmt.Errorf("failed to save preferences: %w", err)
	}
	return nil
}

func without[T any](items []T, match func(T) bool) ([]T, bool) {
	kept := make([]T, 0, len(items))
	removed := false
	for _, it := range items {
		if match(it) {
			removed = true
			continue
		}
		kept = append(kept, it)
	}
	return kept, removed
}
