package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"elderaid/internal/domain"

	rediscommon "elderaid/common/redis"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// Publisher 老人数据变化事件发布
type Publisher interface {
	Publish(ctx context.Context, evt domain.ElderEvent) error
}

// StreamPublisher 发布到 Redis Streams（data 字段为 JSON）
type StreamPublisher struct {
	client *redis.Client
	stream string
	logger *zap.Logger
}

// NewStreamPublisher 创建事件发布器
func NewStreamPublisher(client *redis.Client, stream string, logger *zap.Logger) *StreamPublisher {
	return &StreamPublisher{client: client, stream: stream, logger: logger}
}

// Publish 发布事件；Timestamp 为空时补当前时间
func (p *StreamPublisher) Publish(ctx context.Context, evt domain.ElderEvent) error {
	if evt.Timestamp == 0 {
		evt.Timestamp = time.Now().UnixMilli()
	}
	id, err := rediscommon.PublishJSONToStream(ctx, p.client, p.stream, evt)
	if err != nil {
		return fmt.Errorf("failed to publish %s: %w", evt.EventType, err)
	}
	p.logger.Debug("Published elder event",
		zap.String("stream", p.stream),
		zap.String("message_id", id),
		zap.String("event_type", evt.EventType),
		zap.String("elder_id", evt.ElderID),
	)
	return nil
}

// NopPublisher 不发布任何事件（未启用 Redis 时使用）
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, domain.ElderEvent) error { return nil }

// ParseEvent 解析 stream 消息
// 优先从 data 字段解析 JSON；否则直接从 Values 中读取 event_type / elder_id
func ParseEvent(msg rediscommon.StreamMessage) (domain.ElderEvent, error) {
	if dataStr, ok := msg.Values["data"].(string); ok {
		var evt domain.ElderEvent
		if err := json.Unmarshal([]byte(dataStr), &evt); err == nil && evt.EventType != "" && evt.ElderID != "" {
			return evt, nil
		}
	}

	var evt domain.ElderEvent
	if v, ok := msg.Values["event_type"].(string); ok {
		evt.EventType = v
	}
	if v, ok := msg.Values["elder_id"].(string); ok {
		evt.ElderID = v
	}
	if evt.EventType == "" || evt.ElderID == "" {
		return domain.ElderEvent{}, fmt.Errorf("invalid event %s: missing event_type or elder_id", msg.ID)
	}
	return evt, nil
}
