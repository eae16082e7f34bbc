package domain

import "strings"

// Memory 回忆相册中的一张照片
type Memory struct {
	ID        string   `json:"id"`
	ImageURI  string   `json:"imageUri"`
	Caption   string   `json:"caption"`
	Timestamp int64    `json:"timestamp"` // epoch ms
	Tags      []string `json:"tags,omitempty"`
}

// Validate 校验照片记录
func (m Memory) Validate() error {
	if strings.TrimSpace(m.ImageURI) == "" {
		return Invalid("imageUri", "required")
	}
	return nil
}
