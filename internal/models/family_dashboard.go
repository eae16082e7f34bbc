package models

import "elderaid/internal/domain"

// FamilyDashboard 家属看板（聚合后的数据）
// 由 elderaid-dashboard 预计算写入 Redis，API 服务直接返回给 App
type FamilyDashboard struct {
	ElderID string `json:"elder_id"`

	// 状态快照（来自 status 集合）；尚无快照时为空
	Status   *domain.ElderStatus `json:"status,omitempty"`
	LastSeen *Recency            `json:"last_seen,omitempty"`

	LastMedication *RecentActivity `json:"last_medication,omitempty"`
	LastChat       *RecentActivity `json:"last_chat,omitempty"`

	// 最近 24 小时内有记录的药品（每个药品一条）
	RecentMedications []DashboardMedication `json:"recent_medications"`
	// 今日药品及状态 taken / missed / upcoming
	TodaysMedications []DashboardMedication `json:"todays_medications"`

	PrimaryContact  *domain.EmergencyContact `json:"primary_contact,omitempty"`
	// 老人设置的紧急电话（未设置时为默认值）
	EmergencyNumber string                   `json:"emergency_number"`

	GeneratedAt int64 `json:"generated_at"` // epoch ms
}

// Recency 时间点及其相对描述（"5m ago"）
type Recency struct {
	Timestamp int64  `json:"timestamp"`
	Display   string `json:"display"`
}

// RecentActivity 最近一次服药 / 对话
type RecentActivity struct {
	Text      string `json:"text"` // 药名或对话内容
	Timestamp int64  `json:"timestamp"`
	Display   string `json:"display"`
}

// DashboardMedication 药品 + 选中的记录
type DashboardMedication struct {
	MedicationID string                `json:"medication_id"`
	Name         string                `json:"name"`
	Dosage       string                `json:"dosage"`
	State        string                `json:"state"`
	Log          *domain.MedicationLog `json:"log,omitempty"`
	LogRecency   string                `json:"log_recency,omitempty"`
}

// ElderHome 老人首页
type ElderHome struct {
	ElderID           string                     `json:"elder_id"`
	TodaysMedications []domain.MedicationWithLog `json:"todays_medications"`
	PrimaryContact    *domain.EmergencyContact   `json:"primary_contact,omitempty"`
	EmergencyNumber   string                     `json:"emergency_number"`
}
