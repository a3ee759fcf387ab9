package handlers

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/soctel/oncall/db"
	"github.com/soctel/oncall/services"
	"github.com/soctel/oncall/store"
	"github.com/stretchr/testify/assert"
)

func oncallTestRouter(t *testing.T) (*gin.Engine, *store.Store) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	st, err := store.Open(t.TempDir())
	assert.NoError(t, err)

	onCallService := services.NewOnCallService(st, nil)
	escalationService := services.NewEscalationService(st, onCallService)
	h := NewOnCallHandler(onCallService, escalationService)

	r := gin.New()
	r.GET("/api/oncall", h.GetCurrentOnCall)
	r.GET("/api/oncall/current", h.GetCurrentOnCall)
	r.GET("/api/escalation-chain", h.GetEscalationChain)
	r.GET("/api/config/oncall", h.GetLegacyConfig)
	r.PUT("/api/config/oncall", h.UpdateLegacyConfig)
	r.PUT("/api/config/primary", h.UpdatePrimary)
	return r, st
}

func TestGetCurrentOnCall_NothingConfigured(t *testing.T) {
	r, _ := oncallTestRouter(t)

	w, body := doJSON(r, http.MethodGet, "/api/oncall/current", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "No on-call person configured", body["error"])
}

func TestGetCurrentOnCall_Primary(t *testing.T) {
	r, st := oncallTestRouter(t)

	assert.NoError(t, st.SetOnCallConfig(db.OnCallConfig{Primary: "+15550001", PrimaryName: "Duty"}))

	w, body := doJSON(r, http.MethodGet, "/api/oncall/current", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, body["timestamp"])

	oncall := body["oncall"].(map[string]interface{})
	assert.Equal(t, "primary", oncall["type"])
	assert.Equal(t, "+15550001", oncall["number"])
	assert.Equal(t, "Duty", oncall["name"])
}

func TestGetOnCallAlias_ReturnsResolution(t *testing.T) {
	r, st := oncallTestRouter(t)

	assert.NoError(t, st.SetOnCallConfig(db.OnCallConfig{Primary: "+15550001", PrimaryName: "Duty"}))

	// Old consumers hit /api/oncall and expect the same answer as
	// /api/oncall/current, not the raw config document.
	w, body := doJSON(r, http.MethodGet, "/api/oncall", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	oncall := body["oncall"].(map[string]interface{})
	assert.Equal(t, "primary", oncall["type"])
	assert.Equal(t, "+15550001", oncall["number"])
}

func TestGetCurrentOnCall_RotationWithUser(t *testing.T) {
	r, st := oncallTestRouter(t)

	assert.NoError(t, st.PutUsers([]db.User{{ID: "u1", Name: "Alice", Phone: "+15550002", Active: true}}))
	assert.NoError(t, st.PutRotations([]db.Rotation{{
		ID: "r1", Type: db.RotationWeekly, Users: []string{"u1"}, StartDate: "2025-01-06", Active: true,
	}}))

	w, body := doJSON(r, http.MethodGet, "/api/oncall/current", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	oncall := body["oncall"].(map[string]interface{})
	assert.Equal(t, "weekly_rotation", oncall["type"])
	assert.Equal(t, "u1", oncall["user_id"])

	user := oncall["user"].(map[string]interface{})
	assert.Equal(t, "+15550002", user["phone"])
}

func TestGetEscalationChain(t *testing.T) {
	r, st := oncallTestRouter(t)

	// No on-call configured.
	w, _ := doJSON(r, http.MethodGet, "/api/escalation-chain", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	assert.NoError(t, st.SetOnCallConfig(db.OnCallConfig{Primary: "+15550001"}))
	assert.NoError(t, st.PutUsers([]db.User{{ID: "u2", Name: "Bob", Phone: "+15550003", Active: true}}))
	assert.NoError(t, st.SetEscalationPolicy(db.EscalationPolicy{
		Enabled: true,
		Levels:  []db.EscalationLevel{{Level: 2, UserID: "u2", Timeout: 25}},
	}))

	w, body := doJSON(r, http.MethodGet, "/api/escalation-chain", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, body["escalation_enabled"])

	chain := body["chain"].([]interface{})
	assert.Len(t, chain, 1)
	level := chain[0].(map[string]interface{})
	assert.Equal(t, float64(2), level["level"])
	assert.Equal(t, float64(25), level["timeout"])

	primary := body["primary"].(map[string]interface{})
	assert.Equal(t, "primary", primary["type"])
}

func TestUpdateLegacyConfig(t *testing.T) {
	r, st := oncallTestRouter(t)

	w, _ := doJSON(r, http.MethodPut, "/api/config/oncall", map[string]interface{}{
		"schedule": []interface{}{},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, body := doJSON(r, http.MethodPut, "/api/config/oncall", map[string]interface{}{
		"primary": "+15550001",
	})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "success", body["status"])
	assert.Equal(t, "+15550001", st.OnCallConfig().Primary)
}

func TestUpdatePrimary(t *testing.T) {
	r, st := oncallTestRouter(t)

	w, _ := doJSON(r, http.MethodPut, "/api/config/primary", map[string]interface{}{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = doJSON(r, http.MethodPut, "/api/config/primary", map[string]interface{}{
		"number": "+15550077",
		"name":   "Night Duty",
	})
	assert.Equal(t, http.StatusOK, w.Code)

	cfg := st.OnCallConfig()
	assert.Equal(t, "+15550077", cfg.Primary)
	assert.Equal(t, "Night Duty", cfg.PrimaryName)
}
