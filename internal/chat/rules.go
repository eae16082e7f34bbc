package chat

import (
	"context"
	"strings"
	"unicode"

	"elderaid/internal/domain"
)

var (
	emergencyWords  = []string{"help", "emergency", "fell", "fall", "pain", "ambulance", "hurt"}
	medicationWords = []string{"medicine", "medication", "pill", "pills", "tablet", "dose"}
	memoryWords     = []string{"memory", "memories", "photo", "picture", "remember"}
	greetingWords   = []string{"hello", "hi", "hey", "morning", "afternoon", "evening"}
)

// RulesResponder 关键词匹配（大小写不敏感，按整词匹配）
// 优先级：emergency > medication > memory > 问候 > 通用回复
type RulesResponder struct{}

// NewRulesResponder 创建规则回复器
func NewRulesResponder() *RulesResponder {
	return &RulesResponder{}
}

func (RulesResponder) Respond(_ context.Context, utterance string, _ []domain.ChatMessage) (Reply, error) {
	words := tokenize(utterance)
	switch {
	case containsAny(words, emergencyWords):
		return Reply{
			Text:   "I'm here for you. I'm opening the emergency screen so you can call your contact right away.",
			Action: domain.ActionEmergency,
		}, nil
	case containsAny(words, medicationWords):
		return Reply{
			Text:   "Let me show you your medications for today.",
			Action: domain.ActionMedication,
		}, nil
	case containsAny(words, memoryWords):
		return Reply{
			Text:   "Let's look at some of your favourite memories together.",
			Action: domain.ActionMemory,
		}, nil
	case containsAny(words, greetingWords):
		return Reply{Text: "Hello! It's lovely to hear from you. How are you feeling today?"}, nil
	default:
		return Reply{Text: "I'm listening. You can ask me about your medications, your memories, or say \"help\" if you need assistance."}, nil
	}
}

func tokenize(s string) map[string]struct{} {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && r != '\''
	})
	words := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		words[strings.Trim(f, "'")] = struct{}{}
	}
	return words
}

func containsAny(words map[string]struct{}, keywords []string) bool {
	for _, k := range keywords {
		if _, ok := words[k]; ok {
			return true
		}
	}
	return false
}
