package domain

import "strings"

// DefaultEmergencyNumber 未设置偏好时的紧急电话
const DefaultEmergencyNumber = "911"

// Preferences 老人端设置
// enableNotifications 控制服药提醒投递，enableLocationTracking 控制位置上报
type Preferences struct {
	EmergencyNumber        string `json:"emergencyNumber"`
	EnableNotifications    bool   `json:"enableNotifications"`
	EnableLocationTracking bool   `json:"enableLocationTracking"`
	EnableVoiceInteraction bool   `json:"enableVoiceInteraction"`
	DarkMode               bool   `json:"darkMode"`
}

// DefaultPreferences 首次使用时的设置
func DefaultPreferences() Preferences {
	return Preferences{
		EmergencyNumber:        DefaultEmergencyNumber,
		EnableNotifications:    true,
		EnableLocationTracking: true,
		EnableVoiceInteraction: true,
	}
}

// Validate 校验设置
func (p Preferences) Validate() error {
	if strings.TrimSpace(p.EmergencyNumber) == "" {
		return Invalid("emergencyNumber", "required")
	}
	return nil
}

// PreferencesPatch 部分更新；nil 字段保持原值
type PreferencesPatch struct {
	EmergencyNumber        *string `json:"emergencyNumber,omitempty"`
	EnableNotifications    *bool   `json:"enableNotifications,omitempty"`
	EnableLocationTracking *bool   `json:"enableLocationTracking,omitempty"`
	EnableVoiceInteraction *bool   `json:"enableVoiceInteraction,omitempty"`
	DarkMode               *bool   `json:"darkMode,omitempty"`
}

// Apply 返回合并 patch 后的新设置
func (p Preferences) Apply(patch PreferencesPatch) Preferences {
	if patch.EmergencyNumber != nil {
		p.EmergencyNumber = strings.TrimSpace(*patch.EmergencyNumber)
	}
	if patch.EnableNotifications != nil {
		p.EnableNotifications = *patch.EnableNotifications
	}
	if patch.EnableLocationTracking != nil {
		p.EnableLocationTracking = *patch.EnableLocationTracking
	}
	if patch.EnableVoiceInteraction != nil {
		p.EnableVoiceInteraction = *patch.EnableVoiceInteraction
	}
	if patch.DarkMode != nil {
		p.DarkMode = *patch.DarkMode
	}
	return p
}
