package service

import (
	"context"
	"fmt"

	"elderaid/internal/domain"
	"elderaid/internal/repository"

	"go.uber.org/zap"
)

// RestoreReminders 启动时为已有状态快照的老人重新注册全部药品提醒，返回注册的药品数
// 单个老人失败只记录日志
func RestoreReminders(ctx context.Context, repos repository.Repositories, sched ReminderScheduler, logger *zap.Logger) (int, error) {
	elderIDs, err := repos.Status.ListElderIDs(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list elders: %w", err)
	}

	scheduled := 0
	for _, elderID := range elderIDs {
		s := domain.Session{ElderID: elderID, Role: domain.RoleElder}
		meds, err := repos.Medications.ListMedications(ctx, s)
		if err != nil {
			logger.Warn("Failed to load medications for reminders",
				zap.String("elder_id", elderID),
				zap.Error(err),
			)
			continue
		}
		for _, med := range meds {
			if _, err := sched.ScheduleMedication(elderID, med); err != nil {
				logger.Warn("Failed to schedule medication reminders",
					zap.String("elder_id", elderID),
					zap.String("medication_id", med.ID),
					zap.Error(err),
				)
				continue
			}
			scheduled++
		}
	}

	logger.Info("Restored medication reminders",
		zap.Int("elder_count", len(elderIDs)),
		zap.Int("medication_count", scheduled),
	)
	return scheduled, nil
}
