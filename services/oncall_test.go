package services

import (
	"testing"
	"time"

	"github.com/soctel/oncall/db"
	"github.com/soctel/oncall/store"
	"github.com/stretchr/testify/assert"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.Open(t.TempDir())
	assert.NoError(t, err)
	return st
}

func TestCurrentOnCall_Precedence(t *testing.T) {
	st := newTestStore(t)
	svc := NewOnCallService(st, nil)

	at := localDate(2025, 1, 8, 14) // a Wednesday

	// Nothing configured.
	assert.Nil(t, svc.CurrentOnCall(at))

	// Primary fallback alone.
	assert.NoError(t, st.SetOnCallConfig(db.OnCallConfig{
		Primary:     "+15550001",
		PrimaryName: "Ops Duty",
	}))
	got := svc.CurrentOnCall(at)
	assert.Equal(t, db.SourcePrimary, got.Source)
	assert.Equal(t, "+15550001", got.Number)
	assert.Equal(t, "Ops Duty", got.Name)

	// Legacy schedule outranks primary.
	assert.NoError(t, st.SetOnCallConfig(db.OnCallConfig{
		Primary: "+15550001",
		Schedule: []db.LegacyScheduleEntry{
			{Day: "wednesday", StartHour: 9, EndHour: 17, Number: "+15550002", Name: "Day Shift"},
		},
	}))
	got = svc.CurrentOnCall(at)
	assert.Equal(t, db.SourceLegacySchedule, got.Source)
	assert.Equal(t, "+15550002", got.Number)

	// Rotation outranks the legacy schedule.
	assert.NoError(t, st.PutRotations([]db.Rotation{testRotation(db.RotationDaily, "alice", "bob")}))
	got = svc.CurrentOnCall(at)
	assert.Equal(t, "daily_rotation", got.Source)
	assert.Equal(t, "alice", got.UserID) // day 2 of [alice bob] wraps back to alice
	assert.Equal(t, "rot-1", got.RotationID)

	// Override outranks everything.
	assert.NoError(t, st.PutOverrides([]db.Override{{
		ID:        "ovr-1",
		UserID:    "dave",
		StartDate: "2025-01-08T00:00",
		EndDate:   "2025-01-08T23:59",
		Reason:    "Covering",
	}}))
	got = svc.CurrentOnCall(at)
	assert.Equal(t, db.SourceOverride, got.Source)
	assert.Equal(t, "dave", got.UserID)
	assert.Equal(t, "Covering", got.Reason)
	assert.Equal(t, "2025-01-08T23:59", got.Until)
}

func TestCurrentOnCall_OverrideBoundsInclusive(t *testing.T) {
	st := newTestStore(t)
	svc := NewOnCallService(st, nil)

	assert.NoError(t, st.PutOverrides([]db.Override{{
		ID:        "ovr-1",
		UserID:    "dave",
		StartDate: "2025-01-08T09:00",
		EndDate:   "2025-01-08T17:00",
	}}))
	assert.NoError(t, st.SetOnCallConfig(db.OnCallConfig{Primary: "+15550001"}))

	// Both bounds are inside the window.
	got := svc.CurrentOnCall(localDate(2025, 1, 8, 9))
	assert.Equal(t, db.SourceOverride, got.Source)
	got = svc.CurrentOnCall(localDate(2025, 1, 8, 17))
	assert.Equal(t, db.SourceOverride, got.Source)

	// One minute past the end the override no longer applies.
	got = svc.CurrentOnCall(time.Date(2025, 1, 8, 17, 1, 0, 0, time.Local))
	assert.Equal(t, db.SourcePrimary, got.Source)
	got = svc.CurrentOnCall(localDate(2025, 1, 8, 8))
	assert.Equal(t, db.SourcePrimary, got.Source)
}

func TestCurrentOnCall_OverlappingOverridesFirstWins(t *testing.T) {
	st := newTestStore(t)
	svc := NewOnCallService(st, nil)

	assert.NoError(t, st.PutOverrides([]db.Override{
		{ID: "ovr-1", UserID: "first", StartDate: "2025-01-08", EndDate: "2025-01-10"},
		{ID: "ovr-2", UserID: "second", StartDate: "2025-01-08", EndDate: "2025-01-10"},
	}))

	got := svc.CurrentOnCall(localDate(2025, 1, 9, 12))
	assert.Equal(t, "first", got.UserID)
}

func TestCurrentOnCall_MalformedOverrideSkipped(t *testing.T) {
	st := newTestStore(t)
	svc := NewOnCallService(st, nil)

	assert.NoError(t, st.PutOverrides([]db.Override{
		{ID: "ovr-bad", UserID: "broken", StartDate: "garbage", EndDate: "2025-01-10"},
		{ID: "ovr-ok", UserID: "good", StartDate: "2025-01-08", EndDate: "2025-01-10"},
	}))

	got := svc.CurrentOnCall(localDate(2025, 1, 9, 12))
	assert.Equal(t, "good", got.UserID)
}

func TestCurrentOnCall_LegacyHourWindow(t *testing.T) {
	st := newTestStore(t)
	svc := NewOnCallService(st, nil)

	assert.NoError(t, st.SetOnCallConfig(db.OnCallConfig{
		Primary: "+15550001",
		Schedule: []db.LegacyScheduleEntry{
			{Day: "Wednesday", StartHour: 9, EndHour: 17, Number: "+15550002"},
		},
	}))

	// Half-open window: hour 17 already falls through to primary.
	got := svc.CurrentOnCall(localDate(2025, 1, 8, 16))
	assert.Equal(t, db.SourceLegacySchedule, got.Source)
	assert.Equal(t, "On-Call", got.Name)
	got = svc.CurrentOnCall(localDate(2025, 1, 8, 17))
	assert.Equal(t, db.SourcePrimary, got.Source)

	// Wrong weekday falls through too.
	got = svc.CurrentOnCall(localDate(2025, 1, 9, 12))
	assert.Equal(t, db.SourcePrimary, got.Source)
}

func TestCurrentOnCall_InactiveRotationSkipped(t *testing.T) {
	st := newTestStore(t)
	svc := NewOnCallService(st, nil)

	inactive := testRotation(db.RotationDaily, "alice")
	inactive.Active = false
	second := testRotation(db.RotationWeekly, "bob")
	second.ID = "rot-2"
	assert.NoError(t, st.PutRotations([]db.Rotation{inactive, second}))

	got := svc.CurrentOnCall(localDate(2025, 1, 8, 12))
	assert.Equal(t, "bob", got.UserID)
	assert.Equal(t, "weekly_rotation", got.Source)
	assert.Equal(t, "rot-2", got.RotationID)
}

func TestCurrentOnCallEnriched(t *testing.T) {
	st := newTestStore(t)
	svc := NewOnCallService(st, nil)

	assert.NoError(t, st.PutUsers([]db.User{{ID: "alice", Name: "Alice", Phone: "+15550003", Active: true}}))
	assert.NoError(t, st.PutRotations([]db.Rotation{testRotation(db.RotationDaily, "alice")}))

	got := svc.CurrentOnCallEnriched(localDate(2025, 1, 8, 12))
	assert.NotNil(t, got.User)
	assert.Equal(t, "+15550003", got.User.Phone)

	// A dangling reference keeps the assignment, just without the detail.
	assert.NoError(t, st.PutUsers([]db.User{}))
	got = svc.CurrentOnCallEnriched(localDate(2025, 1, 8, 12))
	assert.Equal(t, "alice", got.UserID)
	assert.Nil(t, got.User)
}

func TestUpdateLegacyConfig_Validation(t *testing.T) {
	st := newTestStore(t)
	svc := NewOnCallService(st, nil)

	assert.Error(t, svc.UpdateLegacyConfig(db.OnCallConfig{}))
	assert.NoError(t, svc.UpdateLegacyConfig(db.OnCallConfig{Primary: "+15550001"}))
	assert.NoError(t, svc.UpdateLegacyConfig(db.OnCallConfig{Default: "+15550009"}))
}

func TestUpdateDaySchedule(t *testing.T) {
	st := newTestStore(t)
	svc := NewOnCallService(st, nil)

	cfg, err := svc.UpdateDaySchedule("Monday", db.LegacyScheduleEntry{Number: "+15550004"})
	assert.NoError(t, err)
	assert.Len(t, cfg.Schedule, 1)
	assert.Equal(t, "monday", cfg.Schedule[0].Day)
	assert.Equal(t, 24, cfg.Schedule[0].EndHour)

	// Upsert replaces instead of duplicating.
	cfg, err = svc.UpdateDaySchedule("monday", db.LegacyScheduleEntry{Number: "+15550005", StartHour: 8, EndHour: 18})
	assert.NoError(t, err)
	assert.Len(t, cfg.Schedule, 1)
	assert.Equal(t, "+15550005", cfg.Schedule[0].Number)
	assert.Equal(t, 8, cfg.Schedule[0].StartHour)

	_, err = svc.UpdateDaySchedule("monday", db.LegacyScheduleEntry{})
	assert.Error(t, err)
}

func TestResolutionMutationsTakeEffectImmediately(t *testing.T) {
	st := newTestStore(t)
	onCall := NewOnCallService(st, nil)
	rotations := NewRotationService(st, onCall)

	at := localDate(2025, 1, 8, 14)

	_, err := onCall.UpdatePrimary("+15550001", "Duty")
	assert.NoError(t, err)
	assert.Equal(t, "+15550001", onCall.CurrentOnCall(at).Number)

	created, err := rotations.CreateRotation(db.CreateRotationRequest{
		Name:      "Primary",
		Type:      db.RotationDaily,
		Users:     []string{"alice"},
		StartDate: "2025-01-06",
	})
	assert.NoError(t, err)
	assert.Equal(t, "alice", onCall.CurrentOnCall(at).UserID)

	inactive := false
	_, err = rotations.UpdateRotation(created.ID, db.CreateRotationRequest{Active: &inactive})
	assert.NoError(t, err)
	assert.Equal(t, db.SourcePrimary, onCall.CurrentOnCall(at).Source)
}
