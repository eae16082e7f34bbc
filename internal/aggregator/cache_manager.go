package aggregator

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"elderaid/internal/domain"
	"elderaid/internal/events"
	"elderaid/internal/models"
	"elderaid/internal/store"

	"go.uber.org/zap"
)

// CacheManager 家属看板缓存（elderaid:elder:{id}:dashboard）
type CacheManager struct {
	kv     KVStore
	ttl    time.Duration
	logger *zap.Logger
}

// NewCacheManager 创建缓存管理器
func NewCacheManager(kv KVStore, ttl time.Duration, logger *zap.Logger) *CacheManager {
	return &CacheManager{kv: kv, ttl: ttl, logger: logger}
}

// DashboardKey 看板缓存 key
func DashboardKey(elderID string) string {
	return store.ElderKey(elderID, store.CollectionDashboard)
}

// UpdateDashboardCache 写入看板缓存
func (c *CacheManager) UpdateDashboardCache(ctx context.Context, elderID string, d *models.FamilyDashboard) error {
	key := DashboardKey(elderID)

	jsonData, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("failed to marshal dashboard: %w", err)
	}

	if err := c.kv.Set(ctx, key, string(jsonData), c.ttl); err != nil {
		return fmt.Errorf("failed to set cache: %w", err)
	}

	c.logger.Debug("Updated dashboard cache",
		zap.String("elder_id", elderID),
		zap.String("key", key),
	)
	return nil
}

// GetDashboard 读取看板缓存；不存在时返回 store.ErrMiss
func (c *CacheManager) GetDashboard(ctx context.Context, elderID string) (*models.FamilyDashboard, error) {
	raw, err := c.kv.Get(ctx, DashboardKey(elderID))
	if err != nil {
		return nil, err
	}
	var d models.FamilyDashboard
	if err := json.Unmarshal([]byte(raw), &d); err != nil {
		return nil, fmt.Errorf("failed to unmarshal dashboard cache: %w", err)
	}
	return &d, nil
}

// EvictDashboard 删除看板缓存，下一次读取时实时重建
func (c *CacheManager) EvictDashboard(ctx context.Context, elderID string) error {
	if err := c.kv.Del(ctx, DashboardKey(elderID)); err != nil {
		return fmt.Errorf("failed to evict dashboard cache: %w", err)
	}
	c.logger.Debug("Evicted dashboard cache", zap.String("elder_id", elderID))
	return nil
}

// EvictingPublisher 药品、联系人、设置变化时先删除看板缓存再转发事件
// 否则删除的药品会一直留在缓存里，直到下一轮聚合或 TTL 过期
type EvictingPublisher struct {
	next   events.Publisher
	cache  *CacheManager
	logger *zap.Logger
}

// NewEvictingPublisher 包装事件发布
func NewEvictingPublisher(next events.Publisher, cache *CacheManager, logger *zap.Logger) *EvictingPublisher {
	return &EvictingPublisher{next: next, cache: cache, logger: logger}
}

func (p *EvictingPublisher) Publish(ctx context.Context, evt domain.ElderEvent) error {
	switch evt.EventType {
	case domain.EventMedicationChanged, domain.EventContactChanged, domain.EventPreferencesChanged:
		if err := p.cache.EvictDashboard(ctx, evt.ElderID); err != nil {
			p.logger.Warn("Failed to evict stale dashboard",
				zap.String("elder_id", evt.ElderID),
				zap.String("event_type", evt.EventType),
				zap.Error(err),
			)
		}
	}
	return p.next.Publish(ctx, evt)
}
