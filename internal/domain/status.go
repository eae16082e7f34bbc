package domain

// Location 最近位置（坐标 + 反查地址）
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Address   string  `json:"address,omitempty"`
}

// MedicationTaken 最近一次服药
type MedicationTaken struct {
	Name      string `json:"name"`
	Timestamp int64  `json:"timestamp"`
}

// ChatInteraction 最近一次对话
type ChatInteraction struct {
	Message   string `json:"message"`
	Timestamp int64  `json:"timestamp"`
}

// ElderStatus 老人最新状态快照（每个老人一条，整体覆盖更新）
type ElderStatus struct {
	LastSeen            int64            `json:"lastSeen"` // epoch ms
	LastLocation        *Location        `json:"lastLocation,omitempty"`
	LastMedicationTaken *MedicationTaken `json:"lastMedicationTaken,omitempty"`
	LastChatInteraction *ChatInteraction `json:"lastChatInteraction,omitempty"`
}

// StatusPatch 部分更新；nil 字段保持原值，非 nil 字段整体替换（浅合并）
// LastSeen 即使提供也会被忽略，合并时总是写入当前时间
type StatusPatch struct {
	LastSeen            *int64           `json:"lastSeen,omitempty"`
	LastLocation        *Location        `json:"lastLocation,omitempty"`
	LastMedicationTaken *MedicationTaken `json:"lastMedicationTaken,omitempty"`
	LastChatInteraction *ChatInteraction `json:"lastChatInteraction,omitempty"`
}
