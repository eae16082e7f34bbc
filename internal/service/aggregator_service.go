package service

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	rediscommon "elderaid/common/redis"
	"elderaid/internal/aggregator"
	"elderaid/internal/config"
	"elderaid/internal/consumer"
	"elderaid/internal/store"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// AggregatorService 家属看板聚合服务
type AggregatorService struct {
	config        config.DashboardConfig
	logger        *zap.Logger
	db            *sql.DB
	redisClient   *redis.Client
	aggregator    *aggregator.DashboardAggregator
	eventConsumer *consumer.EventConsumer
}

// NewAggregatorService 创建看板聚合服务
func NewAggregatorService(cfg *config.Config, logger *zap.Logger) (*AggregatorService, error) {
	// 初始化 Redis（看板缓存 + 事件流）
	redisClient := rediscommon.NewRedisClient(&cfg.Redis)
	if err := rediscommon.Ping(context.Background(), redisClient); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	repos, db := OpenRepositories(cfg, redisClient, logger)
	dashboards := NewDashboardService(repos, cfg.Dashboard.RecentWindow, logger)
	cache := aggregator.NewCacheManager(store.NewRedisKV(redisClient), cfg.Dashboard.CacheTTL, logger)
	agg := aggregator.NewDashboardAggregator(dashboards, repos.Status, cache, cfg.Reminder.Location(), logger)

	// 创建事件消费者（如果使用事件驱动模式）
	var eventConsumer *consumer.EventConsumer
	if cfg.Dashboard.TriggerMode == "events" {
		eventConsumer = consumer.NewEventConsumer(
			redisClient,
			agg,
			logger,
			cfg.Events.Stream,
			cfg.Dashboard.ConsumerGroup,
			cfg.Dashboard.ConsumerName,
			int64(cfg.Dashboard.BatchSize),
		)
	}

	return &AggregatorService{
		config:        cfg.Dashboard,
		logger:        logger,
		db:            db,
		redisClient:   redisClient,
		aggregator:    agg,
		eventConsumer: eventConsumer,
	}, nil
}

// Start 启动服务（阻塞直到 ctx 取消）
func (s *AggregatorService) Start(ctx context.Context) error {
	s.logger.Info("Starting dashboard aggregator service",
		zap.String("trigger_mode", s.config.TriggerMode),
		zap.Int("interval_seconds", s.config.Interval),
	)

	switch s.config.TriggerMode {
	case "polling":
		return s.startPollingMode(ctx)
	case "events":
		return s.startEventDrivenMode(ctx)
	default:
		return fmt.Errorf("unsupported trigger mode: %s", s.config.TriggerMode)
	}
}

// startPollingMode 定时全量聚合
func (s *AggregatorService) startPollingMode(ctx context.Context) error {
	interval := time.Duration(s.config.Interval) * time.Second
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.logger.Info("Starting polling mode",
		zap.Duration("interval", interval),
	)

	// 首次执行一次全量聚合
	if err := s.aggregator.AggregateAll(ctx); err != nil {
		s.logger.Error("Failed to aggregate dashboards on startup", zap.Error(err))
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := s.aggregator.AggregateAll(ctx); err != nil {
				s.logger.Error("Failed to aggregate dashboards", zap.Error(err))
			}
		}
	}
}

// startEventDrivenMode 事件增量 + 定时全量（缓存 TTL 到期前刷新）
func (s *AggregatorService) startEventDrivenMode(ctx context.Context) error {
	s.logger.Info("Starting event-driven mode")

	if s.eventConsumer == nil {
		return fmt.Errorf("event consumer not initialized")
	}

	go func() {
		if err := s.startPollingMode(ctx); err != nil {
			s.logger.Error("Polling loop stopped", zap.Error(err))
		}
	}()

	return s.eventConsumer.Start(ctx)
}

// Stop 停止服务
func (s *AggregatorService) Stop(ctx context.Context) error {
	s.logger.Info("Stopping dashboard aggregator service")

	if s.redisClient != nil {
		if err := rediscommon.Close(s.redisClient); err != nil {
			s.logger.Error("Error closing redis connection", zap.Error(err))
		}
	}

	if s.db != nil {
		if err := s.db.Close(); err != nil {
			s.logger.Error("Error closing database connection", zap.Error(err))
		}
	}

	s.logger.Info("Dashboard aggregator service stopped")
	return nil
}
