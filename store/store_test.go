package store

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/soctel/oncall/db"
	"github.com/stretchr/testify/assert"
)

func TestOpen_EmptyDir(t *testing.T) {
	st, err := Open(t.TempDir())
	assert.NoError(t, err)

	assert.Empty(t, st.ListUsers())
	assert.Empty(t, st.ListRotations())
	assert.Empty(t, st.ListOverrides())
	assert.Empty(t, st.ListWebhooks())
	assert.NotNil(t, st.ManualSchedule())
	assert.Equal(t, db.OnCallConfig{}, st.OnCallConfig())
}

func TestOpen_CreatesDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "data")
	_, err := Open(dir)
	assert.NoError(t, err)

	info, err := os.Stat(dir)
	assert.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestPersistenceRoundTrip(t *testing.T) {
	dir := t.TempDir()

	st, err := Open(dir)
	assert.NoError(t, err)

	assert.NoError(t, st.PutUsers([]db.User{{ID: "u1", Name: "Alice", Phone: "+15550001", Active: true}}))
	assert.NoError(t, st.PutRotations([]db.Rotation{{ID: "r1", Type: db.RotationWeekly, Users: []string{"u1"}, StartDate: "2025-01-06", Active: true}}))
	assert.NoError(t, st.SetOnCallConfig(db.OnCallConfig{Primary: "+15550009"}))
	assert.NoError(t, st.SetManualScheduleDay("2025-02-01", "u1"))
	assert.NoError(t, st.SetSettings(db.Settings{System: &db.SystemSettings{Timezone: "UTC"}}))

	// A fresh store over the same dir sees everything.
	st2, err := Open(dir)
	assert.NoError(t, err)

	users := st2.ListUsers()
	assert.Len(t, users, 1)
	assert.Equal(t, "Alice", users[0].Name)

	rotations := st2.ListRotations()
	assert.Len(t, rotations, 1)
	assert.Equal(t, db.RotationWeekly, rotations[0].Type)

	assert.Equal(t, "+15550009", st2.OnCallConfig().Primary)
	assert.Equal(t, "u1", st2.ManualSchedule()["2025-02-01"])
	assert.Equal(t, "UTC", st2.Settings().System.Timezone)
}

func TestOpen_CorruptFileDegradesToEmpty(t *testing.T) {
	dir := t.TempDir()
	assert.NoError(t, os.WriteFile(filepath.Join(dir, "users.json"), []byte("{not json"), 0o644))

	st, err := Open(dir)
	assert.NoError(t, err)
	assert.Empty(t, st.ListUsers())
}

func TestGetUser(t *testing.T) {
	st, err := Open(t.TempDir())
	assert.NoError(t, err)

	assert.NoError(t, st.PutUsers([]db.User{{ID: "u1", Name: "Alice"}}))

	user, ok := st.GetUser("u1")
	assert.True(t, ok)
	assert.Equal(t, "Alice", user.Name)

	_, ok = st.GetUser("missing")
	assert.False(t, ok)
}

func TestListReturnsCopies(t *testing.T) {
	st, err := Open(t.TempDir())
	assert.NoError(t, err)

	assert.NoError(t, st.PutUsers([]db.User{{ID: "u1", Name: "Alice"}}))

	users := st.ListUsers()
	users[0].Name = "Mallory"

	again := st.ListUsers()
	assert.Equal(t, "Alice", again[0].Name)
}

func TestAuditLogCap(t *testing.T) {
	st, err := Open(t.TempDir())
	assert.NoError(t, err)

	for i := 0; i < 1010; i++ {
		st.AppendAudit(fmt.Sprintf("action_%d", i), "admin", nil)
	}

	entries := st.ListAudit(0)
	assert.Len(t, entries, 1000)
	assert.Equal(t, "action_10", entries[0].Action)
	assert.Equal(t, "action_1009", entries[len(entries)-1].Action)

	limited := st.ListAudit(5)
	assert.Len(t, limited, 5)
	assert.Equal(t, "action_1009", limited[4].Action)
}

func TestCallHistoryCap(t *testing.T) {
	st, err := Open(t.TempDir())
	assert.NoError(t, err)

	for i := 0; i < 505; i++ {
		assert.NoError(t, st.AppendCall(db.CallHistoryEntry{CallerID: fmt.Sprintf("caller-%d", i)}))
	}

	calls := st.ListCalls(0)
	assert.Len(t, calls, 500)
	assert.Equal(t, "caller-5", calls[0].CallerID)
}

func TestManualScheduleDayOps(t *testing.T) {
	st, err := Open(t.TempDir())
	assert.NoError(t, err)

	assert.NoError(t, st.SetManualScheduleDay("2025-02-01", "u1"))
	assert.NoError(t, st.SetManualScheduleDay("2025-02-02", "u2"))
	assert.Len(t, st.ManualSchedule(), 2)

	assert.NoError(t, st.ClearManualScheduleDay("2025-02-01"))
	m := st.ManualSchedule()
	assert.Len(t, m, 1)
	assert.Equal(t, "u2", m["2025-02-02"])
}

func TestGetWebhook(t *testing.T) {
	st, err := Open(t.TempDir())
	assert.NoError(t, err)

	assert.NoError(t, st.PutWebhooks([]db.Webhook{{ID: "wh1", Name: "n", Type: db.WebhookSlack}}))

	wh, ok := st.GetWebhook("wh1")
	assert.True(t, ok)
	assert.Equal(t, db.WebhookSlack, wh.Type)

	_, ok = st.GetWebhook("missing")
	assert.False(t, ok)
}
