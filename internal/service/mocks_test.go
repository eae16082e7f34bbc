package service

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"elderaid/internal/chat"
	"elderaid/internal/domain"
	"elderaid/internal/reminder"
	"elderaid/internal/repository"
	"elderaid/internal/store"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/mock"
)

var (
	elder     = domain.Session{ElderID: "elder-1", Role: domain.RoleElder}
	caregiver = domain.Session{ElderID: "elder-1", ActorID: "daughter-1", Role: domain.RoleCaregiver}
	testLoc   = time.FixedZone("UTC+8", 8*3600)
	testNow   = time.Date(2026, 3, 14, 10, 0, 0, 0, testLoc)
)

func fixedClock() time.Time { return testNow }

// setupRepositories KV 存储（miniredis）
func setupRepositories(t *testing.T) repository.Repositories {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return repository.NewKVRepository(store.NewRedisKV(client)).Repositories()
}

// MockPublisher 是 events.Publisher 的 mock 实现
type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, evt domain.ElderEvent) error {
	args := m.Called(ctx, evt)
	return args.Error(0)
}

func newAcceptingPublisher() *MockPublisher {
	p := &MockPublisher{}
	p.On("Publish", mock.Anything, mock.Anything).Return(nil)
	return p
}

// eventOfType 匹配指定类型和老人的事件
func eventOfType(eventType string) any {
	return mock.MatchedBy(func(e domain.ElderEvent) bool {
		return e.EventType == eventType && e.ElderID == elder.ElderID
	})
}

// MockResponder 是 chat.Responder 的 mock 实现
type MockResponder struct {
	mock.Mock
}

func (m *MockResponder) Respond(ctx context.Context, utterance string, history []domain.ChatMessage) (chat.Reply, error) {
	args := m.Called(ctx, utterance, history)
	return args.Get(0).(chat.Reply), args.Error(1)
}

// MockGeocoder 是 geocode.Geocoder 的 mock 实现
type MockGeocoder struct {
	mock.Mock
}

func (m *MockGeocoder) Reverse(ctx context.Context, lat, lon float64) (string, error) {
	args := m.Called(ctx, lat, lon)
	return args.String(0), args.Error(1)
}

// fakeMediaStore 内存对象存储
type fakeMediaStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	deleted []string
}

func newFakeMediaStore() *fakeMediaStore {
	return &fakeMediaStore{objects: make(map[string][]byte)}
}

func (f *fakeMediaStore) Put(_ context.Context, key string, r io.Reader, _ int64, _ string) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[key] = data
	return "http://minio:9000/photos/" + key, nil
}

func (f *fakeMediaStore) Delete(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, key)
	f.deleted = append(f.deleted, key)
	return nil
}

// fakeScheduler 记录调度调用
type fakeScheduler struct {
	scheduled map[string]domain.Medication
	cancelled []string
}

func newFakeScheduler() *fakeScheduler {
	return &fakeScheduler{scheduled: make(map[string]domain.Medication)}
}

func (f *fakeScheduler) ScheduleMedication(elderID string, med domain.Medication) ([]reminder.Handle, error) {
	f.scheduled[elderID+"/"+med.ID] = med
	handles := make([]reminder.Handle, len(med.Schedule))
	for i := range med.Schedule {
		handles[i] = reminder.Handle(med.ID)
	}
	return handles, nil
}

func (f *fakeScheduler) CancelMedication(elderID, medicationID string) {
	delete(f.scheduled, elderID+"/"+medicationID)
	f.cancelled = append(f.cancelled, elderID+"/"+medicationID)
}
