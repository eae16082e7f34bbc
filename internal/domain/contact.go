package domain

import "strings"

// EmergencyContact 紧急联系人
// 同一老人最多一个 isPrimary=true（主联系人，紧急时首先拨打）
type EmergencyContact struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Phone        string `json:"phone"`
	Relationship string `json:"relationship"`
	IsPrimary    bool   `json:"isPrimary"`
}

// Validate 校验联系人
func (c EmergencyContact) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return Invalid("name", "required")
	}
	if strings.TrimSpace(c.Phone) == "" {
		return Invalid("phone", "required")
	}
	return nil
}
