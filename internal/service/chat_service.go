package service

import (
	"context"
	"strings"
	"time"

	"elderaid/internal/chat"
	"elderaid/internal/domain"
	"elderaid/internal/events"
	"elderaid/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ChatService 对话助手
type ChatService interface {
	// Send 保存老人的消息并返回助手回复；回复生成失败时返回道歉文本而不是错误
	Send(ctx context.Context, s domain.Session, text string) (*domain.ChatMessage, error)
	History(ctx context.Context, s domain.Session, limit int) ([]domain.ChatMessage, error)
	// Greeting 对话记录为空时展示的开场白（不落库）
	Greeting() domain.ChatMessage
}

type chatService struct {
	repo         repository.ChatRepository
	statusRepo   repository.StatusRepository
	responder    chat.Responder
	historyLimit int
	publisher    events.Publisher
	logger       *zap.Logger
	now          func() time.Time
}

// NewChatService 创建对话服务；historyLimit 为传给回复生成器的历史条数
func NewChatService(
	repo repository.ChatRepository,
	statusRepo repository.StatusRepository,
	responder chat.Responder,
	historyLimit int,
	publisher events.Publisher,
	logger *zap.Logger,
) ChatService {
	return &chatService{
		repo:         repo,
		statusRepo:   statusRepo,
		responder:    responder,
		historyLimit: historyLimit,
		publisher:    publisher,
		logger:       logger,
		now:          time.Now,
	}
}

func (svc *chatService) Send(ctx context.Context, s domain.Session, text string) (*domain.ChatMessage, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, domain.Invalid("text", "required")
	}

	history, err := svc.repo.ListChatMessages(ctx, s, svc.historyLimit)
	if err != nil {
		return nil, err
	}

	now := svc.now()
	userMsg := domain.NewTextMessage(uuid.NewString(), domain.SenderUser, text, now.UnixMilli())
	if err := svc.repo.AddChatMessage(ctx, s, userMsg); err != nil {
		return nil, err
	}
	patch := domain.StatusPatch{
		LastChatInteraction: &domain.ChatInteraction{Message: text, Timestamp: userMsg.Timestamp},
	}
	if _, err := mergeAndSaveStatus(ctx, svc.statusRepo, s, patch, now); err != nil {
		return nil, err
	}

	reply, err := svc.responder.Respond(ctx, text, history)
	if err != nil {
		svc.logger.Warn("Chat responder failed, sending fallback reply",
			zap.String("elder_id", s.ElderID),
			zap.Error(err),
		)
		reply = chat.Reply{Text: chat.FallbackText}
	}
	if strings.TrimSpace(reply.Text) == "" {
		reply.Text = chat.EmptyReplyText
	}

	replyAt := svc.now().UnixMilli()
	if replyAt <= userMsg.Timestamp {
		replyAt = userMsg.Timestamp + 1
	}
	var botMsg domain.ChatMessage
	if reply.Action != "" {
		botMsg = domain.NewActionMessage(uuid.NewString(), domain.SenderBot, reply.Text, replyAt, reply.Action)
	} else {
		botMsg = domain.NewTextMessage(uuid.NewString(), domain.SenderBot, reply.Text, replyAt)
	}
	if err := svc.repo.AddChatMessage(ctx, s, botMsg); err != nil {
		return nil, err
	}

	meta := map[string]string{"message_id": botMsg.ID}
	if reply.Action != "" {
		meta["action"] = string(reply.Action)
	}
	publishEvent(ctx, svc.publisher, svc.logger, domain.EventChatMessage, s.ElderID, now, meta)
	return &botMsg, nil
}

func (svc *chatService) History(ctx context.Context, s domain.Session, limit int) ([]domain.ChatMessage, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return svc.repo.ListChatMessages(ctx, s, limit)
}

func (svc *chatService) Greeting() domain.ChatMessage {
	return domain.NewTextMessage("greeting", domain.SenderBot, chat.GreetingText, svc.now().UnixMilli())
}
