package reminder

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"elderaid/internal/domain"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Reminder 一个周期性服药提醒
type Reminder struct {
	ElderID        string
	MedicationID   string
	MedicationName string
	Dosage         string
	Time           string   // "HH:MM"
	Days           []string // 星期名或 "daily"
	StartAt        *int64
	EndAt          *int64
}

// Handle 提醒句柄，对调用方不透明
type Handle string

// Notifier 提醒触发时的推送
type Notifier interface {
	Notify(ctx context.Context, r Reminder) error
}

// Scheduler 基于 cron 的提醒调度
type Scheduler struct {
	cron     *cron.Cron
	notifier Notifier
	logger   *zap.Logger
	now      func() time.Time

	mu      sync.Mutex
	seq     int
	entries map[Handle]cron.EntryID
	byMed   map[string][]Handle // elderID/medicationID -> handles
}

// NewScheduler 创建调度器；loc 为 nil 时使用本地时区
func NewScheduler(loc *time.Location, notifier Notifier, logger *zap.Logger) *Scheduler {
	if loc == nil {
		loc = time.Local
	}
	return &Scheduler{
		cron:     cron.New(cron.WithLocation(loc), cron.WithChain(cron.Recover(cron.DefaultLogger))),
		notifier: notifier,
		logger:   logger,
		now:      time.Now,
		entries:  make(map[Handle]cron.EntryID),
		byMed:    make(map[string][]Handle),
	}
}

func (s *Scheduler) Start() { s.cron.Start() }

// Stop 停止调度并等待正在执行的提醒结束
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

// CronSpec "HH:MM" + days 转为 "MM HH * * DOW"；包含 daily 时 DOW 为 *
func CronSpec(timeOfDay string, days []string) (string, error) {
	hour, minute, err := domain.ParseTimeOfDay(timeOfDay)
	if err != nil {
		return "", err
	}
	if len(days) == 0 {
		return "", fmt.Errorf("no days given for %s", timeOfDay)
	}

	set := make(map[int]struct{}, len(days))
	for _, d := range days {
		wd, daily, ok := domain.ParseDay(d)
		if !ok {
			return "", fmt.Errorf("unknown day %q", d)
		}
		if daily {
			return fmt.Sprintf("%d %d * * *", minute, hour), nil
		}
		set[int(wd)] = struct{}{}
	}
	dows := make([]int, 0, len(set))
	for d := range set {
		dows = append(dows, d)
	}
	sort.Ints(dows)
	parts := make([]string, len(dows))
	for i, d := range dows {
		parts[i] = strconv.Itoa(d)
	}
	return fmt.Sprintf("%d %d * * %s", minute, hour, strings.Join(parts, ",")), nil
}

// Schedule 注册一个提醒
func (s *Scheduler) Schedule(r Reminder) (Handle, error) {
	spec, err := CronSpec(r.Time, r.Days)
	if err != nil {
		return "", domain.Invalid("schedule", err.Error())
	}

	id, err := s.cron.AddFunc(spec, func() { s.fire(context.Background(), r) })
	if err != nil {
		return "", fmt.Errorf("failed to add cron entry %q: %w", spec, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	h := Handle(fmt.Sprintf("%s/%s#%d", r.ElderID, r.MedicationID, s.seq))
	s.entries[h] = id
	key := medKey(r.ElderID, r.MedicationID)
	s.byMed[key] = append(s.byMed[key], h)

	s.logger.Debug("Scheduled medication reminder",
		zap.String("handle", string(h)),
		zap.String("elder_id", r.ElderID),
		zap.String("medication_id", r.MedicationID),
		zap.String("spec", spec),
	)
	return h, nil
}

// Cancel 取消一个提醒；未知句柄忽略
func (s *Scheduler) Cancel(h Handle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelLocked(h)
}

func (s *Scheduler) cancelLocked(h Handle) {
	id, ok := s.entries[h]
	if !ok {
		return
	}
	s.cron.Remove(id)
	delete(s.entries, h)
	for key, handles := range s.byMed {
		for i, other := range handles {
			if other == h {
				s.byMed[key] = append(handles[:i], handles[i+1:]...)
				break
			}
		}
		if len(s.byMed[key]) == 0 {
			delete(s.byMed, key)
		}
	}
}

// CancelAll 取消全部提醒
func (s *Scheduler) CancelAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for h, id := range s.entries {
		s.cron.Remove(id)
		delete(s.entries, h)
	}
	s.byMed = make(map[string][]Handle)
}

// ScheduleMedication 取消该药品已有提醒，并为每个 schedule 条目重新注册
// 停用的药品只取消不注册
func (s *Scheduler) ScheduleMedication(elderID string, med domain.Medication) ([]Handle, error) {
	s.CancelMedication(elderID, med.ID)
	if !med.Active() {
		return nil, nil
	}

	handles := make([]Handle, 0, len(med.Schedule))
	for _, entry := range med.Schedule {
		h, err := s.Schedule(Reminder{
			ElderID:        elderID,
			MedicationID:   med.ID,
			MedicationName: med.Name,
			Dosage:         med.Dosage,
			Time:           entry.Time,
			Days:           entry.Days,
			StartAt:        med.StartAt,
			EndAt:          med.EndAt,
		})
		if err != nil {
			s.CancelMedication(elderID, med.ID)
			return nil, err
		}
		handles = append(handles, h)
	}
	return handles, nil
}

// CancelMedication 取消某个药品的全部提醒
func (s *Scheduler) CancelMedication(elderID, medicationID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	handles := append([]Handle(nil), s.byMed[medKey(elderID, medicationID)]...)
	for _, h := range handles {
		s.cancelLocked(h)
	}
}

// Len 当前注册的提醒数量
func (s *Scheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// fire 不在 [startAt, endAt] 内的提醒跳过
func (s *Scheduler) fire(ctx context.Context, r Reminder) {
	now := s.now().UnixMilli()
	if (r.StartAt != nil && now < *r.StartAt) || (r.EndAt != nil && now > *r.EndAt) {
		return
	}
	if err := s.notifier.Notify(ctx, r); err != nil {
		s.logger.Error("Failed to send medication reminder",
			zap.String("elder_id", r.ElderID),
			zap.String("medication_id", r.MedicationID),
			zap.Error(err),
		)
	}
}

func medKey(elderID, medicationID string) string {
	return elderID + "/" + medicationID
}
