package service

import (
	"context"
	"time"

	"elderaid/internal/domain"
	"elderaid/internal/events"
	"elderaid/internal/reminder"
	"elderaid/internal/repository"

	"go.uber.org/zap"
)

// PreferencesService 老人端设置
type PreferencesService interface {
	// Get 从未保存过时返回默认设置
	Get(ctx context.Context, s domain.Session) (*domain.Preferences, error)
	Update(ctx context.Context, s domain.Session, patch domain.PreferencesPatch) (*domain.Preferences, error)
}

type preferencesService struct {
	repo      repository.PreferencesRepository
	publisher events.Publisher
	logger    *zap.Logger
	now       func() time.Time
}

// NewPreferencesService 创建设置服务
func NewPreferencesService(repo repository.PreferencesRepository, publisher events.Publisher, logger *zap.Logger) PreferencesService {
	return &preferencesService{repo: repo, publisher: publisher, logger: logger, now: time.Now}
}

func (svc *preferencesService) Get(ctx context.Context, s domain.Session) (*domain.Preferences, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	p, err := loadPreferences(ctx, svc.repo, s)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (svc *preferencesService) Update(ctx context.Context, s domain.Session, patch domain.PreferencesPatch) (*domain.Preferences, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	prev, err := loadPreferences(ctx, svc.repo, s)
	if err != nil {
		return nil, err
	}
	p := prev.Apply(patch)
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if err := svc.repo.SavePreferences(ctx, s, p); err != nil {
		return nil, err
	}

	svc.logger.Info("Preferences updated",
		zap.String("elder_id", s.ElderID),
		zap.Bool("notifications", p.EnableNotifications),
		zap.Bool("location_tracking", p.EnableLocationTracking),
	)
	publishEvent(ctx, svc.publisher, svc.logger, domain.EventPreferencesChanged, s.ElderID, svc.now(), nil)
	return &p, nil
}

// loadPreferences repo 为 nil 或尚无记录时返回默认设置
func loadPreferences(ctx context.Context, repo repository.PreferencesRepository, s domain.Session) (domain.Preferences, error) {
	if repo == nil {
		return domain.DefaultPreferences(), nil
	}
	p, err := repo.GetPreferences(ctx, s)
	if err != nil {
		return domain.Preferences{}, err
	}
	if p == nil {
		return domain.DefaultPreferences(), nil
	}
	return *p, nil
}

// notificationGate 在提醒触发时检查老人是否开启了通知
// 读取设置失败时照常投递，漏发提醒比多发一次更糟
type notificationGate struct {
	repo   repository.PreferencesRepository
	next   reminder.Notifier
	logger *zap.Logger
}

// NewNotificationGate 包装 Notifier，enableNotifications=false 的老人不再收到提醒
func NewNotificationGate(repo repository.PreferencesRepository, next reminder.Notifier, logger *zap.Logger) reminder.Notifier {
	return &notificationGate{repo: repo, next: next, logger: logger}
}

func (g *notificationGate) Notify(ctx context.Context, r reminder.Reminder) error {
	p, err := loadPreferences(ctx, g.repo, domain.Session{ElderID: r.ElderID, Role: domain.RoleElder})
	if err != nil {
		g.logger.Warn("Failed to load preferences, delivering reminder anyway",
			zap.String("elder_id", r.ElderID),
			zap.Error(err),
		)
		return g.next.Notify(ctx, r)
	}
	if !p.EnableNotifications {
		g.logger.Debug("Notifications disabled, reminder skipped",
			zap.String("elder_id", r.ElderID),
			zap.String("medication_id", r.MedicationID),
		)
		return nil
	}
	return g.next.Notify(ctx, r)
}
