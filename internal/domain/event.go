package domain

// 事件类型（elderaid:events stream）
const (
	EventStatusUpdated      = "status.updated"
	EventMedicationChanged  = "medication.changed"
	EventMedicationLogged   = "medication.logged"
	EventContactChanged     = "contact.changed"
	EventMemoryChanged      = "memory.changed"
	EventChatMessage        = "chat.message"
	EventPreferencesChanged = "preferences.changed"
)

// ElderEvent 老人数据变化事件
type ElderEvent struct {
	EventType string            `json:"event_type"`
	ElderID   string            `json:"elder_id"`
	Timestamp int64             `json:"timestamp"` // epoch ms
	Metadata  map[string]string `json:"metadata,omitempty"`
}
