package service

import (
	"context"
	"fmt"
	"time"

	"elderaid/internal/domain"
	"elderaid/internal/events"
	"elderaid/internal/geocode"
	"elderaid/internal/repository"
	"elderaid/internal/status"

	"go.uber.org/zap"
)

// StatusService 老人状态快照
type StatusService interface {
	// Get 尚无快照时返回 nil
	Get(ctx context.Context, s domain.Session) (*domain.ElderStatus, error)
	Update(ctx context.Context, s domain.Session, patch domain.StatusPatch) (*domain.ElderStatus, error)
	// ReportLocation 反查地址失败时仍保存坐标
	ReportLocation(ctx context.Context, s domain.Session, lat, lon float64) (*domain.ElderStatus, error)
	Heartbeat(ctx context.Context, s domain.Session) (*domain.ElderStatus, error)
}

type statusService struct {
	repo      repository.StatusRepository
	prefs     repository.PreferencesRepository
	geocoder  geocode.Geocoder
	publisher events.Publisher
	logger    *zap.Logger
	now       func() time.Time
}

// NewStatusService 创建状态服务；geocoder 可为 nil（不反查地址）
// prefs 为 nil 时不检查 enableLocationTracking
func NewStatusService(repo repository.StatusRepository, prefs repository.PreferencesRepository, geocoder geocode.Geocoder, publisher events.Publisher, logger *zap.Logger) StatusService {
	return &statusService{
		repo:      repo,
		prefs:     prefs,
		geocoder:  geocoder,
		publisher: publisher,
		logger:    logger,
		now:       time.Now,
	}
}

func (svc *statusService) Get(ctx context.Context, s domain.Session) (*domain.ElderStatus, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return svc.repo.GetStatus(ctx, s)
}

func (svc *statusService) Update(ctx context.Context, s domain.Session, patch domain.StatusPatch) (*domain.ElderStatus, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	if patch.LastLocation != nil {
		if err := validateCoordinates(patch.LastLocation.Latitude, patch.LastLocation.Longitude); err != nil {
			return nil, err
		}
		if err := svc.checkLocationTracking(ctx, s); err != nil {
			return nil, err
		}
	}
	return svc.apply(ctx, s, patch)
}

func (svc *statusService) ReportLocation(ctx context.Context, s domain.Session, lat, lon float64) (*domain.ElderStatus, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	if err := validateCoordinates(lat, lon); err != nil {
		return nil, err
	}
	if err := svc.checkLocationTracking(ctx, s); err != nil {
		return nil, err
	}

	loc := &domain.Location{Latitude: lat, Longitude: lon}
	if svc.geocoder != nil {
		addr, err := svc.geocoder.Reverse(ctx, lat, lon)
		if err != nil {
			svc.logger.Warn("Reverse geocoding failed, keeping coordinates only",
				zap.String("elder_id", s.ElderID),
				zap.Error(err),
			)
		} else {
			loc.Address = addr
		}
	}
	return svc.apply(ctx, s, domain.StatusPatch{LastLocation: loc})
}

func (svc *statusService) Heartbeat(ctx context.Context, s domain.Session) (*domain.ElderStatus, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return svc.apply(ctx, s, domain.StatusPatch{})
}

// checkLocationTracking 老人关闭位置追踪后拒绝写入位置
func (svc *statusService) checkLocationTracking(ctx context.Context, s domain.Session) error {
	if svc.prefs == nil {
		return nil
	}
	p, err := loadPreferences(ctx, svc.prefs, s)
	if err != nil {
		return err
	}
	if !p.EnableLocationTracking {
		return domain.Invalid("location", "location tracking is disabled")
	}
	return nil
}

func (svc *statusService) apply(ctx context.Context, s domain.Session, patch domain.StatusPatch) (*domain.ElderStatus, error) {
	now := svc.now()
	st, err := mergeAndSaveStatus(ctx, svc.repo, s, patch, now)
	if err != nil {
		return nil, err
	}
	publishEvent(ctx, svc.publisher, svc.logger, domain.EventStatusUpdated, s.ElderID, now, nil)
	return &st, nil
}

// mergeAndSaveStatus 读取当前快照、浅合并 patch 后整体写回
func mergeAndSaveStatus(ctx context.Context, repo repository.StatusRepository, s domain.Session, patch domain.StatusPatch, now time.Time) (domain.ElderStatus, error) {
	prev, err := repo.GetStatus(ctx, s)
	if err != nil {
		return domain.ElderStatus{}, err
	}
	merged := status.MergeStatus(prev, patch, now)
	if err := repo.SaveStatus(ctx, s, merged); err != nil {
		return domain.ElderStatus{}, err
	}
	return merged, nil
}

func validateCoordinates(lat, lon float64) error {
	if lat < -90 || lat > 90 {
		return domain.Invalid("latitude", fmt.Sprintf("out of range: %v", lat))
	}
	if lon < -180 || lon > 180 {
		return domain.Invalid("longitude", fmt.Sprintf("out of range: %v", lon))
	}
	return nil
}
