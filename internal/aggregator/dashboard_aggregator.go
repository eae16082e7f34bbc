package aggregator

import (
	"context"
	"fmt"
	"time"

	"elderaid/internal/domain"
	"elderaid/internal/models"

	"go.uber.org/zap"
)

// DashboardBuilder 实时计算看板（service.DashboardService 实现）
type DashboardBuilder interface {
	Build(ctx context.Context, s domain.Session, now time.Time) (*models.FamilyDashboard, error)
}

// ElderLister 列出需要聚合的老人
type ElderLister interface {
	ListElderIDs(ctx context.Context) ([]string, error)
}

// DashboardAggregator 计算看板并写入缓存
type DashboardAggregator struct {
	builder DashboardBuilder
	elders  ElderLister
	cache   *CacheManager
	loc     *time.Location
	logger  *zap.Logger
	now     func() time.Time
}

// NewDashboardAggregator 创建聚合器；loc 决定"今天"的边界
func NewDashboardAggregator(builder DashboardBuilder, elders ElderLister, cache *CacheManager, loc *time.Location, logger *zap.Logger) *DashboardAggregator {
	if loc == nil {
		loc = time.Local
	}
	return &DashboardAggregator{
		builder: builder,
		elders:  elders,
		cache:   cache,
		loc:     loc,
		logger:  logger,
		now:     time.Now,
	}
}

// AggregateElder 重新计算单个老人的看板
func (a *DashboardAggregator) AggregateElder(ctx context.Context, elderID string) error {
	s := domain.Session{ElderID: elderID, Role: domain.RoleCaregiver}
	d, err := a.builder.Build(ctx, s, a.now().In(a.loc))
	if err != nil {
		return fmt.Errorf("failed to build dashboard for %s: %w", elderID, err)
	}
	return a.cache.UpdateDashboardCache(ctx, elderID, d)
}

// AggregateAll 聚合所有已有状态快照的老人；单个失败不中断
func (a *DashboardAggregator) AggregateAll(ctx context.Context) error {
	elderIDs, err := a.elders.ListElderIDs(ctx)
	if err != nil {
		return fmt.Errorf("failed to list elders: %w", err)
	}

	a.logger.Debug("Aggregating dashboards",
		zap.Int("elder_count", len(elderIDs)),
	)

	successCount := 0
	errorCount := 0
	for _, id := range elderIDs {
		select {
		case <-ctx.Done():
			return nil
		default:
		}
		if err := a.AggregateElder(ctx, id); err != nil {
			a.logger.Error("Failed to aggregate dashboard",
				zap.String("elder_id", id),
				zap.Error(err),
			)
			errorCount++
			continue
		}
		successCount++
	}

	a.logger.Info("Completed aggregating dashboards",
		zap.Int("success_count", successCount),
		zap.Int("error_count", errorCount),
		zap.Int("total_count", len(elderIDs)),
	)
	return nil
}
