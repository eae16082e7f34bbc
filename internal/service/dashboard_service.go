package service

import (
	"context"
	"time"

	"elderaid/internal/domain"
	"elderaid/internal/models"
	"elderaid/internal/repository"
	"elderaid/internal/status"

	"go.uber.org/zap"
)

// DashboardService 家属看板 / 老人首页
type DashboardService interface {
	// Build 直接从存储实时计算看板
	Build(ctx context.Context, s domain.Session, now time.Time) (*models.FamilyDashboard, error)
	Home(ctx context.Context, s domain.Session, now time.Time) (*models.ElderHome, error)
}

type dashboardService struct {
	repos        repository.Repositories
	recentWindow time.Duration
	logger       *zap.Logger
}

// NewDashboardService 创建看板服务；recentWindow<=0 时使用 24 小时
func NewDashboardService(repos repository.Repositories, recentWindow time.Duration, logger *zap.Logger) DashboardService {
	if recentWindow <= 0 {
		recentWindow = status.DefaultRecentWindow
	}
	return &dashboardService{repos: repos, recentWindow: recentWindow, logger: logger}
}

func (svc *dashboardService) Build(ctx context.Context, s domain.Session, now time.Time) (*models.FamilyDashboard, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}

	st, err := svc.repos.Status.GetStatus(ctx, s)
	if err != nil {
		return nil, err
	}
	meds, err := svc.repos.Medications.ListMedications(ctx, s)
	if err != nil {
		return nil, err
	}
	logs, err := svc.repos.Medications.ListMedicationLogs(ctx, s)
	if err != nil {
		return nil, err
	}
	contacts, err := svc.repos.Contacts.ListContacts(ctx, s)
	if err != nil {
		return nil, err
	}
	prefs, err := loadPreferences(ctx, svc.repos.Preferences, s)
	if err != nil {
		return nil, err
	}

	d := &models.FamilyDashboard{
		ElderID:           s.ElderID,
		Status:            st,
		RecentMedications: toDashboardMedications(status.RecentMedications(meds, logs, svc.recentWindow, now), now),
		TodaysMedications: toDashboardMedications(status.TodaysMedications(meds, logs, now), now),
		EmergencyNumber:   prefs.EmergencyNumber,
		GeneratedAt:       now.UnixMilli(),
	}
	if st != nil {
		d.LastSeen = &models.Recency{Timestamp: st.LastSeen, Display: status.FormatRecencyMillis(st.LastSeen, now)}
		if t := st.LastMedicationTaken; t != nil {
			d.LastMedication = &models.RecentActivity{Text: t.Name, Timestamp: t.Timestamp, Display: status.FormatRecencyMillis(t.Timestamp, now)}
		}
		if c := st.LastChatInteraction; c != nil {
			d.LastChat = &models.RecentActivity{Text: c.Message, Timestamp: c.Timestamp, Display: status.FormatRecencyMillis(c.Timestamp, now)}
		}
	}
	if c, ok := status.PrimaryContact(contacts); ok {
		d.PrimaryContact = &c
	}
	return d, nil
}

func (svc *dashboardService) Home(ctx context.Context, s domain.Session, now time.Time) (*models.ElderHome, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	meds, err := svc.repos.Medications.ListMedications(ctx, s)
	if err != nil {
		return nil, err
	}
	logs, err := svc.repos.Medications.ListMedicationLogs(ctx, s)
	if err != nil {
		return nil, err
	}
	contacts, err := svc.repos.Contacts.ListContacts(ctx, s)
	if err != nil {
		return nil, err
	}
	prefs, err := loadPreferences(ctx, svc.repos.Preferences, s)
	if err != nil {
		return nil, err
	}

	home := &models.ElderHome{
		ElderID:           s.ElderID,
		TodaysMedications: status.TodaysMedications(meds, logs, now),
		EmergencyNumber:   prefs.EmergencyNumber,
	}
	if c, ok := status.PrimaryContact(contacts); ok {
		home.PrimaryContact = &c
	}
	return home, nil
}

func toDashboardMedications(pairs []domain.MedicationWithLog, now time.Time) []models.DashboardMedication {
	out := make([]models.DashboardMedication, 0, len(pairs))
	for _, p := range pairs {
		item := models.DashboardMedication{
			MedicationID: p.Medication.ID,
			Name:         p.Medication.Name,
			Dosage:       p.Medication.Dosage,
			State:        string(status.StateOf(p)),
			Log:          p.Log,
		}
		if p.Log != nil {
			item.LogRecency = status.FormatRecencyMillis(p.Log.Timestamp, now)
		}
		out = append(out, item)
	}
	return out
}
