package domain

import "strings"

// Sender 消息发送方
type Sender string

const (
	SenderUser Sender = "user"
	SenderBot  Sender = "bot"
)

// MessageKind 消息类型（tagged union 的标签）
type MessageKind string

const (
	KindText   MessageKind = "text"
	KindMedia  MessageKind = "media"
	KindAction MessageKind = "action"
)

// MediaType 媒体类型
type MediaType string

const (
	MediaImage MediaType = "image"
	MediaAudio MediaType = "audio"
)

// ChatAction 记录消息后 App 需要跳转的页面
type ChatAction string

const (
	ActionEmergency  ChatAction = "emergency"
	ActionMedication ChatAction = "medication"
	ActionMemory     ChatAction = "memory"
)

// Valid 是否为合法 action
func (a ChatAction) Valid() bool {
	return a == ActionEmergency || a == ActionMedication || a == ActionMemory
}

// MediaAttachment 媒体附件
type MediaAttachment struct {
	URI  string    `json:"uri"`
	Type MediaType `json:"type"`
}

// ChatMessage 对话消息
//   - kind=text:   只有 text
//   - kind=media:  text + media
//   - kind=action: text + action
type ChatMessage struct {
	ID        string           `json:"id"`
	Kind      MessageKind      `json:"kind"`
	Text      string           `json:"text"`
	Sender    Sender           `json:"sender"`
	Timestamp int64            `json:"timestamp"` // epoch ms
	Media     *MediaAttachment `json:"media,omitempty"`
	Action    ChatAction       `json:"action,omitempty"`
}

// NewTextMessage 纯文本消息
func NewTextMessage(id string, sender Sender, text string, ts int64) ChatMessage {
	return ChatMessage{ID: id, Kind: KindText, Text: text, Sender: sender, Timestamp: ts}
}

// NewMediaMessage 带媒体的消息
func NewMediaMessage(id string, sender Sender, text string, ts int64, media MediaAttachment) ChatMessage {
	return ChatMessage{ID: id, Kind: KindMedia, Text: text, Sender: sender, Timestamp: ts, Media: &media}
}

// NewActionMessage 带跳转指令的消息
func NewActionMessage(id string, sender Sender, text string, ts int64, action ChatAction) ChatMessage {
	return ChatMessage{ID: id, Kind: KindAction, Text: text, Sender: sender, Timestamp: ts, Action: action}
}

// Validate 校验 tagged union：每种 kind 只允许携带自己的字段
func (m ChatMessage) Validate() error {
	if m.Sender != SenderUser && m.Sender != SenderBot {
		return Invalid("sender", "must be user or bot")
	}
	if strings.TrimSpace(m.Text) == "" {
		return Invalid("text", "required")
	}
	switch m.Kind {
	case KindText:
		if m.Media != nil || m.Action != "" {
			return Invalid("kind", "text message cannot carry media or action")
		}
	case KindMedia:
		if m.Media == nil || m.Media.URI == "" {
			return Invalid("media", "required for media message")
		}
		if m.Media.Type != MediaImage && m.Media.Type != MediaAudio {
			return Invalid("media.type", "must be image or audio")
		}
		if m.Action != "" {
			return Invalid("kind", "media message cannot carry action")
		}
	case KindAction:
		if !m.Action.Valid() {
			return Invalid("action", "must be emergency, medication or memory")
		}
		if m.Media != nil {
			return Invalid("kind", "action message cannot carry media")
		}
	default:
		return Invalid("kind", "must be text, media or action")
	}
	return nil
}
