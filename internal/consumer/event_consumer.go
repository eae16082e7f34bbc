package consumer

import (
	"context"
	"fmt"
	"time"

	rediscommon "elderaid/common/redis"
	"elderaid/internal/domain"
	"elderaid/internal/events"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// ElderAggregator 重新聚合单个老人的看板（aggregator.DashboardAggregator 实现）
type ElderAggregator interface {
	AggregateElder(ctx context.Context, elderID string) error
}

// EventConsumer 事件消费者
type EventConsumer struct {
	redisClient  *redis.Client
	aggregator   ElderAggregator
	logger       *zap.Logger
	stream       string
	groupName    string
	consumerName string
	batchSize    int64
	block        time.Duration
}

// NewEventConsumer 创建事件消费者
func NewEventConsumer(
	redisClient *redis.Client,
	aggregator ElderAggregator,
	logger *zap.Logger,
	stream string,
	groupName string,
	consumerName string,
	batchSize int64,
) *EventConsumer {
	return &EventConsumer{
		redisClient:  redisClient,
		aggregator:   aggregator,
		logger:       logger,
		stream:       stream,
		groupName:    groupName,
		consumerName: consumerName,
		batchSize:    batchSize,
		block:        5 * time.Second,
	}
}

// Start 启动事件消费者（阻塞直到 ctx 取消）
func (c *EventConsumer) Start(ctx context.Context) error {
	if err := rediscommon.CreateConsumerGroup(ctx, c.redisClient, c.stream, c.groupName); err != nil {
		return fmt.Errorf("failed to create consumer group: %w", err)
	}

	c.logger.Info("Event consumer started",
		zap.String("stream", c.stream),
		zap.String("consumer_group", c.groupName),
		zap.String("consumer_name", c.consumerName),
	)

	// 消费事件（带指数退避）
	backoffDuration := time.Second
	maxBackoff := 30 * time.Second

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
			if err := c.consumeEvents(ctx); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				c.logger.Error("Failed to consume events",
					zap.Error(err),
					zap.Duration("backoff", backoffDuration),
				)

				select {
				case <-ctx.Done():
					return nil
				case <-time.After(backoffDuration):
					backoffDuration *= 2
					if backoffDuration > maxBackoff {
						backoffDuration = maxBackoff
					}
				}
			} else {
				backoffDuration = time.Second
			}
		}
	}
}

// consumeEvents 读取一批消息；处理成功的消息确认，失败的留在 pending 列表
func (c *EventConsumer) consumeEvents(ctx context.Context) error {
	messages, err := rediscommon.ReadFromStream(
		ctx,
		c.redisClient,
		c.stream,
		c.groupName,
		c.consumerName,
		c.batchSize,
		c.block,
	)
	if err != nil {
		return fmt.Errorf("failed to read from stream: %w", err)
	}

	for _, msg := range messages {
		if err := c.processEvent(ctx, msg); err != nil {
			c.logger.Error("Failed to process event",
				zap.String("message_id", msg.ID),
				zap.Error(err),
			)
			continue
		}
		if err := rediscommon.AckMessage(ctx, c.redisClient, c.stream, c.groupName, msg.ID); err != nil {
			c.logger.Warn("Failed to ack message",
				zap.String("message_id", msg.ID),
				zap.Error(err),
			)
		}
	}
	return nil
}

// processEvent 只重新聚合事件涉及的老人
func (c *EventConsumer) processEvent(ctx context.Context, msg rediscommon.StreamMessage) error {
	event, err := events.ParseEvent(msg)
	if err != nil {
		return fmt.Errorf("failed to parse event: %w", err)
	}

	switch event.EventType {
	case domain.EventStatusUpdated,
		domain.EventMedicationChanged,
		domain.EventMedicationLogged,
		domain.EventContactChanged,
		domain.EventChatMessage,
		domain.EventPreferencesChanged:
		c.logger.Debug("Processing elder event",
			zap.String("event_type", event.EventType),
			zap.String("elder_id", event.ElderID),
		)
		return c.aggregator.AggregateElder(ctx, event.ElderID)

	case domain.EventMemoryChanged:
		// 看板不包含相册
		return nil

	default:
		c.logger.Warn("Unknown event type",
			zap.String("event_type", event.EventType),
		)
		return nil
	}
}
