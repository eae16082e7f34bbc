// Package status 从原始药品/服药记录/状态快照中派生展示用的摘要。
// 所有函数都是纯函数：无 I/O、无锁、无共享状态。
// 调用方如需对共享存储做 read-modify-write，需要自行串行化。
package status

import (
	"fmt"
	"sort"
	"time"

	"elderaid/internal/domain"
)

// DefaultRecentWindow 家属看板"最近服药"的默认窗口
const DefaultRecentWindow = 24 * time.Hour

// StartOfDay now 所在时区的当天零点
func StartOfDay(now time.Time) time.Time {
	y, m, d := now.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, now.Location())
}

// TodaysMedications 为每个药品配对当天（[零点, 零点+24h)）最新的一条记录
// 输出与 meds 一一对应、顺序一致；没有当天记录的药品 Log 为 nil（upcoming）。
// 同一时间戳的多条记录取其中任意一条。
func TodaysMedications(meds []domain.Medication, logs []domain.MedicationLog, now time.Time) []domain.MedicationWithLog {
	out := make([]domain.MedicationWithLog, 0, len(meds))
	if len(meds) == 0 {
		return out
	}

	start := StartOfDay(now).UnixMilli()
	end := start + (24 * time.Hour).Milliseconds()

	latest := make(map[string]int, len(meds))
	for i := range logs {
		ts := logs[i].Timestamp
		if ts < start || ts >= end {
			continue
		}
		j, ok := latest[logs[i].MedicationID]
		if !ok || ts > logs[j].Timestamp {
			latest[logs[i].MedicationID] = i
		}
	}

	for _, med := range meds {
		pair := domain.MedicationWithLog{Medication: med}
		if i, ok := latest[med.ID]; ok {
			log := logs[i]
			pair.Log = &log
		}
		out = append(out, pair)
	}
	return out
}

// RecentMedications 窗口 (now-window, now] 内有记录的药品，每个药品只保留最新的一条
// 按时间倒序遍历，同一药品先出现者胜出；输出顺序跟随 meds。
func RecentMedications(meds []domain.Medication, logs []domain.MedicationLog, window time.Duration, now time.Time) []domain.MedicationWithLog {
	cutoff := now.Add(-window).UnixMilli()

	recent := make([]domain.MedicationLog, 0, len(logs))
	for _, log := range logs {
		if log.Timestamp > cutoff {
			recent = append(recent, log)
		}
	}
	sort.SliceStable(recent, func(i, j int) bool {
		return recent[i].Timestamp > recent[j].Timestamp
	})

	first := make(map[string]domain.MedicationLog, len(recent))
	for _, log := range recent {
		if _, seen := first[log.MedicationID]; !seen {
			first[log.MedicationID] = log
		}
	}

	out := make([]domain.MedicationWithLog, 0, len(first))
	for _, med := range meds {
		log, ok := first[med.ID]
		if !ok {
			continue
		}
		out = append(out, domain.MedicationWithLog{Medication: med, Log: &log})
		// 同一药品在 meds 中重复出现时只输出一次
		delete(first, med.ID)
	}
	return out
}

// FormatRecency 把时间差格式化为 "Just now" / "5m ago" / "3h ago" / "2d ago"
// 未来时间（now 之前的 ts 为负差值）按 "Just now" 处理。
func FormatRecency(ts time.Time, now time.Time) string {
	minutes := int64(now.Sub(ts) / time.Minute)
	switch {
	case minutes < 1:
		return "Just now"
	case minutes < 60:
		return fmt.Sprintf("%dm ago", minutes)
	case minutes < 1440:
		return fmt.Sprintf("%dh ago", minutes/60)
	default:
		return fmt.Sprintf("%dd ago", minutes/1440)
	}
}

// FormatRecencyMillis epoch 毫秒版本
func FormatRecencyMillis(ts int64, now time.Time) string {
	return FormatRecency(time.UnixMilli(ts), now)
}

// MergeStatus 在 previous（可为 nil）之上浅合并 patch，并把 lastSeen 置为 now
// patch 中的嵌套对象整体替换，不做字段级合并；patch.LastSeen 被忽略。
func MergeStatus(previous *domain.ElderStatus, patch domain.StatusPatch, now time.Time) domain.ElderStatus {
	var next domain.ElderStatus
	if previous != nil {
		next = *previous
	}
	if patch.LastLocation != nil {
		loc := *patch.LastLocation
		next.LastLocation = &loc
	}
	if patch.LastMedicationTaken != nil {
		med := *patch.LastMedicationTaken
		next.LastMedicationTaken = &med
	}
	if patch.LastChatInteraction != nil {
		chat := *patch.LastChatInteraction
		next.LastChatInteraction = &chat
	}
	next.LastSeen = now.UnixMilli()
	return next
}

// SetPrimaryContact 返回新集合：targetID 为主联系人，其余全部清除 isPrimary
// 找不到 targetID 时返回 NotFoundError；输入中已有多个主联系人也会被纠正为一个。
func SetPrimaryContact(contacts []domain.EmergencyContact, targetID string) ([]domain.EmergencyContact, error) {
	found := false
	out := make([]domain.EmergencyContact, len(contacts))
	for i, c := range contacts {
		c.IsPrimary = false
		if !found && c.ID == targetID {
			c.IsPrimary = true
			found = true
		}
		out[i] = c
	}
	if !found {
		return nil, domain.NotFound("emergency contact", targetID)
	}
	return out, nil
}

// PrimaryContact 第一个主联系人
func PrimaryContact(contacts []domain.EmergencyContact) (domain.EmergencyContact, bool) {
	for _, c := range contacts {
		if c.IsPrimary {
			return c, true
		}
	}
	return domain.EmergencyContact{}, false
}

// LatestLog 某个药品最新的一条记录（不限日期）
func LatestLog(logs []domain.MedicationLog, medicationID string) (domain.MedicationLog, bool) {
	var (
		best  domain.MedicationLog
		found bool
	)
	for _, log := range logs {
		if log.MedicationID != medicationID {
			continue
		}
		if !found || log.Timestamp > best.Timestamp {
			best = log
			found = true
		}
	}
	return best, found
}

// MedicationState 药品当天状态
type MedicationState string

const (
	StateTaken    MedicationState = "taken"
	StateMissed   MedicationState = "missed"
	StateUpcoming MedicationState = "upcoming"
)

// StateOf 由配对记录推导当天状态；无记录视为 upcoming
func StateOf(pair domain.MedicationWithLog) MedicationState {
	if pair.Log == nil {
		return StateUpcoming
	}
	if pair.Log.Status == domain.LogMissed {
		return StateMissed
	}
	return StateTaken
}
