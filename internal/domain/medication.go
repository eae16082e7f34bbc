package domain

import (
	"fmt"
	"strings"
	"time"
)

// LogStatus 服药记录状态
type LogStatus string

const (
	LogTaken  LogStatus = "taken"
	LogMissed LogStatus = "missed"
)

// Valid 是否为合法状态
func (s LogStatus) Valid() bool {
	return s == LogTaken || s == LogMissed
}

// DayDaily schedule.days 中表示"每天"的取值
const DayDaily = "daily"

// ScheduleEntry 服药时间点：time 为 "HH:MM"，days 为星期名或 "daily"
type ScheduleEntry struct {
	Time string   `json:"time"`
	Days []string `json:"days"`
}

// Medication 药品
// JSON 字段与 ElderAid App 保持一致（camelCase）
type Medication struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Dosage   string          `json:"dosage"`
	Schedule []ScheduleEntry `json:"schedule"`
	ImageURI string          `json:"imageUri,omitempty"`
	Notes    string          `json:"notes,omitempty"`
	StartAt  *int64          `json:"startAt,omitempty"` // epoch ms
	EndAt    *int64          `json:"endAt,omitempty"`   // epoch ms
	IsActive *bool           `json:"isActive,omitempty"`
}

// Active 未设置 isActive 时视为启用
func (m Medication) Active() bool {
	return m.IsActive == nil || *m.IsActive
}

// FirstScheduledTime 第一个时间点，记录服药日志时作为 scheduledTime
func (m Medication) FirstScheduledTime() string {
	if len(m.Schedule) == 0 {
		return ""
	}
	return m.Schedule[0].Time
}

// MedicationLog 服药记录（只追加，不修改）
type MedicationLog struct {
	ID            string    `json:"id"`
	MedicationID  string    `json:"medicationId"`
	Status        LogStatus `json:"status"`
	Timestamp     int64     `json:"timestamp"` // epoch ms
	ScheduledTime string    `json:"scheduledTime"`
}

// MedicationWithLog 药品及其选中的记录（可为空）
type MedicationWithLog struct {
	Medication Medication     `json:"medication"`
	Log        *MedicationLog `json:"log,omitempty"`
}

// Validate 校验药品（保存前）
func (m Medication) Validate() error {
	if strings.TrimSpace(m.Name) == "" {
		return Invalid("name", "required")
	}
	if strings.TrimSpace(m.Dosage) == "" {
		return Invalid("dosage", "required")
	}
	for i, entry := range m.Schedule {
		if _, _, err := ParseTimeOfDay(entry.Time); err != nil {
			return Invalid(fmt.Sprintf("schedule[%d].time", i), err.Error())
		}
		if len(entry.Days) == 0 {
			return Invalid(fmt.Sprintf("schedule[%d].days", i), "required")
		}
		for _, d := range entry.Days {
			if _, _, ok := ParseDay(d); !ok {
				return Invalid(fmt.Sprintf("schedule[%d].days", i), fmt.Sprintf("unknown day %q", d))
			}
		}
	}
	return nil
}

// ParseTimeOfDay 解析 "HH:MM"
func ParseTimeOfDay(s string) (hour, minute int, err error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, 0, fmt.Errorf("expected HH:MM, got %q", s)
	}
	return t.Hour(), t.Minute(), nil
}

var weekdays = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

// ParseDay 解析星期名（大小写不敏感）；daily 返回 isDaily=true
func ParseDay(name string) (day time.Weekday, isDaily bool, ok bool) {
	n := strings.ToLower(strings.TrimSpace(name))
	if n == DayDaily {
		return 0, true, true
	}
	d, ok := weekdays[n]
	return d, false, ok
}
