// Package chat 对话助手的回复生成。
// 两种实现可按配置切换：关键词规则（RulesResponder）和 OpenAI 兼容接口的大模型（LLMResponder）。
package chat

import (
	"context"

	"elderaid/internal/domain"
)

const (
	// GreetingText 对话记录为空时的开场白
	GreetingText = "Hello! I'm your ElderAid assistant. I can help you with medications, show you memories, or call for help if needed. How can I assist you today?"
	// FallbackText 回复生成失败时返回给老人的提示
	FallbackText = "Oops! I had trouble answering that. Please try again in a few moments."
	// EmptyReplyText 模型返回空内容时的提示
	EmptyReplyText = "I'm sorry, I didn't quite catch that. Could you please repeat?"
)

// Reply 助手回复；Action 非空时 App 跳转到对应页面
type Reply struct {
	Text   string
	Action domain.ChatAction
}

// Responder 根据最新一句话和历史对话生成回复
type Responder interface {
	Respond(ctx context.Context, utterance string, history []domain.ChatMessage) (Reply, error)
}
