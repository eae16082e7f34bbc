package chat

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"elderaid/internal/domain"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// SystemPrompt 大模型的角色设定
const SystemPrompt = "You are ElderAid, a kind and helpful assistant for elderly users. Respond in a warm, clear, and friendly tone. Keep your replies concise and easy to understand."

// LLMConfig OpenAI 兼容接口配置（默认 OpenRouter）
type LLMConfig struct {
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
}

// LLMResponder 调用 chat completion 生成回复；回复不带 action
type LLMResponder struct {
	client *openai.Client
	model  string
	logger *zap.Logger
}

// NewLLMResponder 创建大模型回复器
func NewLLMResponder(cfg LLMConfig, logger *zap.Logger) *LLMResponder {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	clientCfg.HTTPClient = &http.Client{Timeout: timeout}

	return &LLMResponder{
		client: openai.NewClientWithConfig(clientCfg),
		model:  cfg.Model,
		logger: logger,
	}
}

func (r *LLMResponder) Respond(ctx context.Context, utterance string, history []domain.ChatMessage) (Reply, error) {
	resp, err := r.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    r.model,
		Messages: BuildMessages(utterance, history),
	})
	if err != nil {
		return Reply{}, fmt.Errorf("chat completion failed: %w", err)
	}

	content := ""
	if len(resp.Choices) > 0 {
		content = strings.TrimSpace(resp.Choices[0].Message.Content)
	}
	if content == "" {
		r.logger.Warn("LLM returned empty completion", zap.String("model", r.model))
		return Reply{Text: EmptyReplyText}, nil
	}
	return Reply{Text: content}, nil
}

// BuildMessages system prompt + 历史（bot→assistant，user→user）+ 最新一句
func BuildMessages(utterance string, history []domain.ChatMessage) []openai.ChatCompletionMessage {
	msgs := make([]openai.ChatCompletionMessage, 0, len(history)+2)
	msgs = append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: SystemPrompt})
	for _, m := range history {
		role := openai.ChatMessageRoleUser
		if m.Sender == domain.SenderBot {
			role = openai.ChatMessageRoleAssistant
		}
		msgs = append(msgs, openai.ChatCompletionMessage{Role: role, Content: m.Text})
	}
	msgs = append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: utterance})
	return msgs
}
