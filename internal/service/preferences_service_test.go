package service

import (
	"context"
	"errors"
	"testing"

	"elderaid/internal/domain"
	"elderaid/internal/reminder"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// MockNotifier 是 reminder.Notifier 的 mock 实现
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Notify(ctx context.Context, r reminder.Reminder) error {
	args := m.Called(ctx, r)
	return args.Error(0)
}

// failingPreferences 读取总是失败
type failingPreferences struct{}

func (failingPreferences) GetPreferences(context.Context, domain.Session) (*domain.Preferences, error) {
	return nil, errors.New("redis down")
}

func (failingPreferences) SavePreferences(context.Context, domain.Session, domain.Preferences) error {
	return errors.New("redis down")
}

func TestPreferencesService_GetDefaults(t *testing.T) {
	repos := setupRepositories(t)
	svc := NewPreferencesService(repos.Preferences, nil, zap.NewNop())

	p, err := svc.Get(context.Background(), elder)
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultPreferences(), *p)

	_, err = svc.Get(context.Background(), domain.Session{})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestPreferencesService_UpdateMergesAndPublishes(t *testing.T) {
	repos := setupRepositories(t)
	pub := newAcceptingPublisher()
	svc := NewPreferencesService(repos.Preferences, pub, zap.NewNop())
	ctx := context.Background()

	off := false
	number := "112"
	p, err := svc.Update(ctx, caregiver, domain.PreferencesPatch{EnableNotifications: &off, EmergencyNumber: &number})
	require.NoError(t, err)
	assert.False(t, p.EnableNotifications)
	assert.Equal(t, "112", p.EmergencyNumber)

	dark := true
	p, err = svc.Update(ctx, elder, domain.PreferencesPatch{DarkMode: &dark})
	require.NoError(t, err)
	assert.True(t, p.DarkMode)
	assert.False(t, p.EnableNotifications)

	got, err := svc.Get(ctx, elder)
	require.NoError(t, err)
	assert.Equal(t, p, got)

	pub.AssertCalled(t, "Publish", mock.Anything, eventOfType(domain.EventPreferencesChanged))
}

func TestPreferencesService_UpdateRejectsEmptyNumber(t *testing.T) {
	repos := setupRepositories(t)
	pub := newAcceptingPublisher()
	svc := NewPreferencesService(repos.Preferences, pub, zap.NewNop())

	empty := " "
	_, err := svc.Update(context.Background(), elder, domain.PreferencesPatch{EmergencyNumber: &empty})
	require.ErrorIs(t, err, domain.ErrValidation)
	pub.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)

	p, err := svc.Get(context.Background(), elder)
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultEmergencyNumber, p.EmergencyNumber)
}

func TestNotificationGate(t *testing.T) {
	repos := setupRepositories(t)
	ctx := context.Background()
	prefs := NewPreferencesService(repos.Preferences, nil, zap.NewNop())

	next := &MockNotifier{}
	next.On("Notify", mock.Anything, mock.Anything).Return(nil)
	gate := NewNotificationGate(repos.Preferences, next, zap.NewNop())
	r := reminder.Reminder{ElderID: elder.ElderID, MedicationID: "m1", Time: "08:00"}

	// 默认开启
	require.NoError(t, gate.Notify(ctx, r))
	next.AssertNumberOfCalls(t, "Notify", 1)

	off := false
	_, err := prefs.Update(ctx, elder, domain.PreferencesPatch{EnableNotifications: &off})
	require.NoError(t, err)
	require.NoError(t, gate.Notify(ctx, r))
	next.AssertNumberOfCalls(t, "Notify", 1)

	// 其他老人不受影响
	require.NoError(t, gate.Notify(ctx, reminder.Reminder{ElderID: "elder-2", MedicationID: "m2"}))
	next.AssertNumberOfCalls(t, "Notify", 2)
}

func TestNotificationGate_DeliversWhenPreferencesUnavailable(t *testing.T) {
	next := &MockNotifier{}
	next.On("Notify", mock.Anything, mock.Anything).Return(nil).Once()
	gate := NewNotificationGate(failingPreferences{}, next, zap.NewNop())

	require.NoError(t, gate.Notify(context.Background(), reminder.Reminder{ElderID: "elder-1", MedicationID: "m1"}))
	next.AssertExpectations(t)
}
