package service

import (
	"context"
	"time"

	"elderaid/internal/domain"
	"elderaid/internal/events"
	"elderaid/internal/reminder"
	"elderaid/internal/repository"
	"elderaid/internal/status"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ReminderScheduler 药品提醒调度（reminder.Scheduler 实现）
type ReminderScheduler interface {
	ScheduleMedication(elderID string, med domain.Medication) ([]reminder.Handle, error)
	CancelMedication(elderID, medicationID string)
}

// MedicationService 药品服务
type MedicationService interface {
	List(ctx context.Context, s domain.Session) ([]domain.Medication, error)
	// Save 新建（ID 为空时生成）或更新药品，并重新注册提醒
	Save(ctx context.Context, s domain.Session, m domain.Medication) (*domain.Medication, error)
	Delete(ctx context.Context, s domain.Session, id string) error
	// LogIntake 记录一次服药；taken 同时更新状态快照的 lastMedicationTaken
	LogIntake(ctx context.Context, s domain.Session, medicationID string, st domain.LogStatus) (*domain.MedicationLog, error)
	Logs(ctx context.Context, s domain.Session) ([]domain.MedicationLog, error)
	Today(ctx context.Context, s domain.Session, now time.Time) ([]domain.MedicationWithLog, error)
	// Latest 某药品最近一条记录；没有记录时返回 nil
	Latest(ctx context.Context, s domain.Session, medicationID string) (*domain.MedicationLog, error)
}

type medicationService struct {
	repo       repository.MedicationsRepository
	statusRepo repository.StatusRepository
	reminders  ReminderScheduler
	publisher  events.Publisher
	logger     *zap.Logger
	now        func() time.Time
}

// NewMedicationService 创建药品服务；reminders 可为 nil（不调度提醒）
func NewMedicationService(
	repo repository.MedicationsRepository,
	statusRepo repository.StatusRepository,
	reminders ReminderScheduler,
	publisher events.Publisher,
	logger *zap.Logger,
) MedicationService {
	return &medicationService{
		repo:       repo,
		statusRepo: statusRepo,
		reminders:  reminders,
		publisher:  publisher,
		logger:     logger,
		now:        time.Now,
	}
}

func (svc *medicationService) List(ctx context.Context, s domain.Session) ([]domain.Medication, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return svc.repo.ListMedications(ctx, s)
}

func (svc *medicationService) Save(ctx context.Context, s domain.Session, m domain.Medication) (*domain.Medication, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.Schedule == nil {
		m.Schedule = []domain.ScheduleEntry{}
	}

	if err := svc.repo.SaveMedication(ctx, s, m); err != nil {
		return nil, err
	}

	if svc.reminders != nil {
		if _, err := svc.reminders.ScheduleMedication(s.ElderID, m); err != nil {
			svc.logger.Error("Failed to schedule medication reminders",
				zap.String("elder_id", s.ElderID),
				zap.String("medication_id", m.ID),
				zap.Error(err),
			)
		}
	}

	publishEvent(ctx, svc.publisher, svc.logger, domain.EventMedicationChanged, s.ElderID, svc.now(),
		map[string]string{"medication_id": m.ID, "action": "saved"})
	return &m, nil
}

func (svc *medicationService) Delete(ctx context.Context, s domain.Session, id string) error {
	if err := s.Validate(); err != nil {
		return err
	}
	if err := svc.repo.DeleteMedication(ctx, s, id); err != nil {
		return err
	}
	if svc.reminders != nil {
		svc.reminders.CancelMedication(s.ElderID, id)
	}
	publishEvent(ctx, svc.publisher, svc.logger, domain.EventMedicationChanged, s.ElderID, svc.now(),
		map[string]string{"medication_id": id, "action": "deleted"})
	return nil
}

func (svc *medicationService) LogIntake(ctx context.Context, s domain.Session, medicationID string, st domain.LogStatus) (*domain.MedicationLog, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	if !st.Valid() {
		return nil, domain.Invalid("status", "must be taken or missed")
	}
	med, err := svc.repo.GetMedication(ctx, s, medicationID)
	if err != nil {
		return nil, err
	}

	now := svc.now()
	log := domain.MedicationLog{
		ID:            uuid.NewString(),
		MedicationID:  med.ID,
		Status:        st,
		Timestamp:     now.UnixMilli(),
		ScheduledTime: med.FirstScheduledTime(),
	}
	if err := svc.repo.AddMedicationLog(ctx, s, log); err != nil {
		return nil, err
	}

	if st == domain.LogTaken {
		patch := domain.StatusPatch{
			LastMedicationTaken: &domain.MedicationTaken{Name: med.Name, Timestamp: log.Timestamp},
		}
		if _, err := mergeAndSaveStatus(ctx, svc.statusRepo, s, patch, now); err != nil {
			return nil, err
		}
	}

	publishEvent(ctx, svc.publisher, svc.logger, domain.EventMedicationLogged, s.ElderID, now,
		map[string]string{"medication_id": med.ID, "status": string(st)})
	return &log, nil
}

func (svc *medicationService) Logs(ctx context.Context, s domain.Session) ([]domain.MedicationLog, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return svc.repo.ListMedicationLogs(ctx, s)
}

func (svc *medicationService) Today(ctx context.Context, s domain.Session, now time.Time) ([]domain.MedicationWithLog, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	meds, err := svc.repo.ListMedications(ctx, s)
	if err != nil {
		return nil, err
	}
	logs, err := svc.repo.ListMedicationLogs(ctx, s)
	if err != nil {
		return nil, err
	}
	return status.TodaysMedications(meds, logs, now), nil
}

func (svc *medicationService) Latest(ctx context.Context, s domain.Session, medicationID string) (*domain.MedicationLog, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	if _, err := svc.repo.GetMedication(ctx, s, medicationID); err != nil {
		return nil, err
	}
	logs, err := svc.repo.ListMedicationLogs(ctx, s)
	if err != nil {
		return nil, err
	}
	l, ok := status.LatestLog(logs, medicationID)
	if !ok {
		return nil, nil
	}
	return &l, nil
}
