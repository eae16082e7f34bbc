package service

import (
	"context"
	"time"

	"elderaid/internal/domain"
	"elderaid/internal/events"

	"go.uber.org/zap"
)

// publishEvent 发布数据变化事件；失败只记录日志
func publishEvent(ctx context.Context, pub events.Publisher, logger *zap.Logger, eventType, elderID string, now time.Time, metadata map[string]string) {
	if pub == nil {
		return
	}
	evt := domain.ElderEvent{
		EventType: eventType,
		ElderID:   elderID,
		Timestamp: now.UnixMilli(),
		Metadata:  metadata,
	}
	if err := pub.Publish(ctx, evt); err != nil {
		logger.Warn("Failed to publish elder event",
			zap.String("event_type", eventType),
			zap.String("elder_id", elderID),
			zap.Error(err),
		)
	}
}
