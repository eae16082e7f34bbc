package status

import (
	"errors"
	"testing"
	"time"

	"elderaid/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var loc = time.FixedZone("UTC+8", 8*3600)

func at(hour, minute int) time.Time {
	return time.Date(2026, 3, 14, hour, minute, 0, 0, loc)
}

func ms(t time.Time) int64 { return t.UnixMilli() }

func med(id string) domain.Medication {
	return domain.Medication{ID: id, Name: "Med " + id, Dosage: "1 tablet"}
}

func logOf(id, medID string, ts time.Time, st domain.LogStatus) domain.MedicationLog {
	return domain.MedicationLog{ID: id, MedicationID: medID, Timestamp: ms(ts), Status: st, ScheduledTime: "08:00"}
}

func TestTodaysMedications_ConcreteScenario(t *testing.T) {
	l := logOf("l1", "m1", at(9, 0), domain.LogTaken)
	out := TodaysMedications([]domain.Medication{med("m1")}, []domain.MedicationLog{l}, at(10, 0))

	require.Len(t, out, 1)
	assert.Equal(t, "m1", out[0].Medication.ID)
	require.NotNil(t, out[0].Log)
	assert.Equal(t, l, *out[0].Log)
}

func TestTodaysMedications_PreservesOrderAndLength(t *testing.T) {
	meds := []domain.Medication{med("c"), med("a"), med("b")}
	logs := []domain.MedicationLog{
		logOf("1", "a", at(7, 0), domain.LogTaken),
		logOf("2", "a", at(8, 0), domain.LogMissed),
		logOf("3", "zzz", at(8, 0), domain.LogTaken),
	}
	out := TodaysMedications(meds, logs, at(12, 0))

	require.Len(t, out, 3)
	assert.Equal(t, []string{"c", "a", "b"}, []string{out[0].Medication.ID, out[1].Medication.ID, out[2].Medication.ID})
	assert.Nil(t, out[0].Log)
	require.NotNil(t, out[1].Log)
	assert.Equal(t, "2", out[1].Log.ID) // 最新一条
	assert.Nil(t, out[2].Log)
}

func TestTodaysMedications_ExcludesYesterdayAndTomorrow(t *testing.T) {
	midnight := StartOfDay(at(10, 0))
	logs := []domain.MedicationLog{
		{ID: "y", MedicationID: "m1", Timestamp: ms(midnight) - 1, Status: domain.LogTaken},
		{ID: "t", MedicationID: "m1", Timestamp: ms(midnight.Add(24 * time.Hour)), Status: domain.LogTaken},
	}
	out := TodaysMedications([]domain.Medication{med("m1")}, logs, at(10, 0))
	require.Len(t, out, 1)
	assert.Nil(t, out[0].Log)

	// 零点本身属于今天
	logs = append(logs, domain.MedicationLog{ID: "m", MedicationID: "m1", Timestamp: ms(midnight), Status: domain.LogTaken})
	out = TodaysMedications([]domain.Medication{med("m1")}, logs, at(10, 0))
	require.NotNil(t, out[0].Log)
	assert.Equal(t, "m", out[0].Log.ID)
}

func TestTodaysMedications_Empty(t *testing.T) {
	assert.Empty(t, TodaysMedications(nil, []domain.MedicationLog{logOf("1", "a", at(1, 0), domain.LogTaken)}, at(2, 0)))
}

func TestRecentMedications_FirstSeenWinsAndMedicationOrder(t *testing.T) {
	now := at(12, 0)
	meds := []domain.Medication{med("a"), med("b"), med("c")}
	logs := []domain.MedicationLog{
		logOf("b-old", "b", now.Add(-3*time.Hour), domain.LogTaken),
		logOf("a-1", "a", now.Add(-2*time.Hour), domain.LogMissed),
		logOf("b-new", "b", now.Add(-1*time.Hour), domain.LogTaken),
		logOf("c-stale", "c", now.Add(-25*time.Hour), domain.LogTaken),
	}

	out := RecentMedications(meds, logs, DefaultRecentWindow, now)
	require.Len(t, out, 2)
	assert.Equal(t, "a", out[0].Medication.ID)
	assert.Equal(t, "a-1", out[0].Log.ID)
	assert.Equal(t, "b", out[1].Medication.ID)
	assert.Equal(t, "b-new", out[1].Log.ID)
}

func TestRecentMedications_WindowBoundaryExclusive(t *testing.T) {
	now := at(12, 0)
	logs := []domain.MedicationLog{logOf("edge", "a", now.Add(-DefaultRecentWindow), domain.LogTaken)}
	assert.Empty(t, RecentMedications([]domain.Medication{med("a")}, logs, DefaultRecentWindow, now))
}

func TestRecentMedications_NoDuplicates(t *testing.T) {
	now := at(12, 0)
	meds := []domain.Medication{med("a"), med("a")}
	logs := []domain.MedicationLog{
		logOf("1", "a", now.Add(-time.Minute), domain.LogTaken),
		logOf("2", "a", now.Add(-2*time.Minute), domain.LogTaken),
	}
	out := RecentMedications(meds, logs, time.Hour, now)
	require.Len(t, out, 1)
	assert.Equal(t, "1", out[0].Log.ID)
}

func TestFormatRecency(t *testing.T) {
	now := at(12, 0)
	cases := []struct {
		elapsed time.Duration
		want    string
	}{
		{0, "Just now"},
		{59 * time.Second, "Just now"},
		{time.Minute, "1m ago"},
		{5 * time.Minute, "5m ago"},
		{59*time.Minute + 59*time.Second, "59m ago"},
		{time.Hour, "1h ago"},
		{23*time.Hour + 59*time.Minute, "23h ago"},
		{24 * time.Hour, "1d ago"},
		{79 * time.Hour, "3d ago"},
		{-10 * time.Minute, "Just now"},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, FormatRecency(now.Add(-c.elapsed), now), c.elapsed.String())
	}
	assert.Equal(t, "5m ago", FormatRecencyMillis(ms(now)-5*60000, now))
}

func TestMergeStatus_AlwaysSetsLastSeen(t *testing.T) {
	now := at(12, 0)

	got := MergeStatus(nil, domain.StatusPatch{}, now)
	assert.Equal(t, ms(now), got.LastSeen)

	prev := &domain.ElderStatus{LastSeen: 1}
	stale := int64(5)
	got = MergeStatus(prev, domain.StatusPatch{LastSeen: &stale}, now)
	assert.Equal(t, ms(now), got.LastSeen)
	assert.Equal(t, int64(1), prev.LastSeen, "previous must not be mutated")
}

func TestMergeStatus_ShallowFieldReplace(t *testing.T) {
	now := at(12, 0)
	prev := &domain.ElderStatus{
		LastSeen:            1,
		LastLocation:        &domain.Location{Latitude: 1, Longitude: 2, Address: "Home"},
		LastMedicationTaken: &domain.MedicationTaken{Name: "Aspirin", Timestamp: 10},
	}

	got := MergeStatus(prev, domain.StatusPatch{
		LastMedicationTaken: &domain.MedicationTaken{Name: "Metformin"},
	}, now)

	// 未提供的字段保留
	assert.Equal(t, prev.LastLocation, got.LastLocation)
	// 嵌套对象整体替换：timestamp 不从旧值继承
	assert.Equal(t, &domain.MedicationTaken{Name: "Metformin"}, got.LastMedicationTaken)
	assert.Nil(t, got.LastChatInteraction)
}

func TestSetPrimaryContact_ConcreteScenario(t *testing.T) {
	in := []domain.EmergencyContact{{ID: "a", IsPrimary: true}, {ID: "b", IsPrimary: false}}
	out, err := SetPrimaryContact(in, "b")
	require.NoError(t, err)
	assert.Equal(t, []domain.EmergencyContact{{ID: "a", IsPrimary: false}, {ID: "b", IsPrimary: true}}, out)
	assert.True(t, in[0].IsPrimary, "input must not be mutated")
}

func TestSetPrimaryContact_FixesMultiplePrimaries(t *testing.T) {
	in := []domain.EmergencyContact{{ID: "a", IsPrimary: true}, {ID: "b", IsPrimary: true}, {ID: "c"}}
	out, err := SetPrimaryContact(in, "c")
	require.NoError(t, err)

	primaries := 0
	for _, c := range out {
		if c.IsPrimary {
			primaries++
			assert.Equal(t, "c", c.ID)
		}
	}
	assert.Equal(t, 1, primaries)
}

func TestSetPrimaryContact_NotFound(t *testing.T) {
	_, err := SetPrimaryContact([]domain.EmergencyContact{{ID: "a"}}, "zzz")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrNotFound))

	_, err = SetPrimaryContact(nil, "a")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestHelpers(t *testing.T) {
	c, ok := PrimaryContact([]domain.EmergencyContact{{ID: "a"}, {ID: "b", IsPrimary: true}})
	require.True(t, ok)
	assert.Equal(t, "b", c.ID)

	_, ok = PrimaryContact(nil)
	assert.False(t, ok)

	logs := []domain.MedicationLog{
		logOf("1", "a", at(8, 0), domain.LogTaken),
		logOf("2", "a", at(9, 0), domain.LogMissed),
		logOf("3", "b", at(10, 0), domain.LogTaken),
	}
	l, ok := LatestLog(logs, "a")
	require.True(t, ok)
	assert.Equal(t, "2", l.ID)

	assert.Equal(t, StateUpcoming, StateOf(domain.MedicationWithLog{}))
	assert.Equal(t, StateMissed, StateOf(domain.MedicationWithLog{Log: &logs[1]}))
	assert.Equal(t, StateTaken, StateOf(domain.MedicationWithLog{Log: &logs[0]}))
}
