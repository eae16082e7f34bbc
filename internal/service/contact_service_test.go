package service

import (
	"context"
	"testing"

	"elderaid/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestContactService(t *testing.T) (ContactService, *MockPublisher) {
	repos := setupRepositories(t)
	pub := newAcceptingPublisher()
	return NewContactService(repos.Contacts, pub, zap.NewNop()), pub
}

func countPrimaries(contacts []domain.EmergencyContact) int {
	n := 0
	for _, c := range contacts {
		if c.IsPrimary {
			n++
		}
	}
	return n
}

func TestContactService_SavePrimaryLeavesExactlyOne(t *testing.T) {
	svc, pub := newTestContactService(t)
	ctx := context.Background()

	a, err := svc.Save(ctx, elder, domain.EmergencyContact{Name: "Alice", Phone: "111", Relationship: "Daughter", IsPrimary: true})
	require.NoError(t, err)
	b, err := svc.Save(ctx, elder, domain.EmergencyContact{Name: "Bob", Phone: "222", Relationship: "Son", IsPrimary: true})
	require.NoError(t, err)

	contacts, err := svc.List(ctx, elder)
	require.NoError(t, err)
	require.Len(t, contacts, 2)
	assert.Equal(t, 1, countPrimaries(contacts))

	primary, err := svc.Primary(ctx, elder)
	require.NoError(t, err)
	require.NotNil(t, primary)
	assert.Equal(t, b.ID, primary.ID)

	// 更新已有联系人（不改变主联系人）
	a.Phone = "333"
	a.IsPrimary = false
	_, err = svc.Save(ctx, elder, *a)
	require.NoError(t, err)
	contacts, err = svc.List(ctx, elder)
	require.NoError(t, err)
	require.Len(t, contacts, 2)
	assert.Equal(t, "333", contacts[0].Phone)
	assert.True(t, contacts[1].IsPrimary)

	pub.AssertCalled(t, "Publish", mock.Anything, eventOfType(domain.EventContactChanged))
}

func TestContactService_SetPrimary(t *testing.T) {
	svc, _ := newTestContactService(t)
	ctx := context.Background()

	a, err := svc.Save(ctx, elder, domain.EmergencyContact{Name: "Alice", Phone: "111", IsPrimary: true})
	require.NoError(t, err)
	b, err := svc.Save(ctx, elder, domain.EmergencyContact{Name: "Bob", Phone: "222"})
	require.NoError(t, err)

	updated, err := svc.SetPrimary(ctx, elder, b.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, countPrimaries(updated))
	assert.False(t, updated[0].IsPrimary)
	assert.True(t, updated[1].IsPrimary)

	_, err = svc.SetPrimary(ctx, elder, "zzz")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	contacts, err := svc.List(ctx, elder)
	require.NoError(t, err)
	assert.Equal(t, b.ID, contacts[1].ID)
	assert.True(t, contacts[1].IsPrimary, "failed SetPrimary must not change storage")
	assert.Equal(t, a.ID, contacts[0].ID)
}

func TestContactService_ValidationAndDelete(t *testing.T) {
	svc, _ := newTestContactService(t)
	ctx := context.Background()

	_, err := svc.Save(ctx, elder, domain.EmergencyContact{Name: "No phone"})
	assert.ErrorIs(t, err, domain.ErrValidation)

	primary, err := svc.Primary(ctx, elder)
	require.NoError(t, err)
	assert.Nil(t, primary)

	c, err := svc.Save(ctx, elder, domain.EmergencyContact{Name: "Alice", Phone: "111"})
	require.NoError(t, err)
	require.NoError(t, svc.Delete(ctx, elder, c.ID))
	assert.ErrorIs(t, svc.Delete(ctx, elder, c.ID), domain.ErrNotFound)
}

func TestContactService_FirstContactBecomesPrimary(t *testing.T) {
	svc, _ := newTestContactService(t)
	ctx := context.Background()

	first, err := svc.Save(ctx, elder, domain.EmergencyContact{Name: "Alice", Phone: "111"})
	require.NoError(t, err)
	assert.True(t, first.IsPrimary)

	second, err := svc.Save(ctx, elder, domain.EmergencyContact{Name: "Bob", Phone: "222"})
	require.NoError(t, err)
	assert.False(t, second.IsPrimary)

	primary, err := svc.Primary(ctx, elder)
	require.NoError(t, err)
	require.NotNil(t, primary)
	assert.Equal(t, first.ID, primary.ID)
}
