package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/soctel/oncall/db"
	"github.com/soctel/oncall/services"
)

// OnCallHandler exposes the resolution query surface consumed by the AGI
// call router, plus the legacy oncall.json management endpoints.
type OnCallHandler struct {
	OnCallService     *services.OnCallService
	EscalationService *services.EscalationService
}

func NewOnCallHandler(onCallService *services.OnCallService, escalationService *services.EscalationService) *OnCallHandler {
	return &OnCallHandler{OnCallService: onCallService, EscalationService: escalationService}
}

// GetCurrentOnCall resolves and enriches the current assignment. This is the
// endpoint the telephony side hits on every inbound ring.
func (h *OnCallHandler) GetCurrentOnCall(c *gin.Context) {
	assignment := h.OnCallService.CurrentOnCallCached(c.Request.Context())
	if assignment == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "No on-call person configured"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"oncall":    assignment,
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

// GetEscalationChain returns the full ordered call-forwarding plan.
func (h *OnCallHandler) GetEscalationChain(c *gin.Context) {
	chain, err := h.EscalationService.BuildChain(time.Now())
	if err != nil {
		if errors.Is(err, services.ErrNoOnCallConfigured) {
			c.JSON(http.StatusNotFound, gin.H{"error": "No on-call person configured"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, chain)
}

// GetLegacyConfig returns the raw oncall.json document.
func (h *OnCallHandler) GetLegacyConfig(c *gin.Context) {
	c.JSON(http.StatusOK, h.OnCallService.Store.OnCallConfig())
}

// UpdateLegacyConfig replaces the oncall.json document.
func (h *OnCallHandler) UpdateLegacyConfig(c *gin.Context) {
	var cfg db.OnCallConfig
	if err := c.ShouldBindJSON(&cfg); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No data provided"})
		return
	}

	if err := h.OnCallService.UpdateLegacyConfig(cfg); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success", "message": "Configuration updated"})
}

// UpdatePrimary sets the final-fallback number.
func (h *OnCallHandler) UpdatePrimary(c *gin.Context) {
	var req struct {
		Number string `json:"number"`
		Name   string `json:"name"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Number == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing number field"})
		return
	}

	cfg, err := h.OnCallService.UpdatePrimary(req.Number, req.Name)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success", "primary": cfg.Primary})
}

// GetLegacySchedule returns only the static weekday schedule.
func (h *OnCallHandler) GetLegacySchedule(c *gin.Context) {
	cfg := h.OnCallService.Store.OnCallConfig()
	schedule := cfg.Schedule
	if schedule == nil {
		schedule = []db.LegacyScheduleEntry{}
	}
	c.JSON(http.StatusOK, gin.H{"schedule": schedule})
}

// UpdateDaySchedule upserts the legacy entry for one weekday.
func (h *OnCallHandler) UpdateDaySchedule(c *gin.Context) {
	var entry db.LegacyScheduleEntry
	if err := c.ShouldBindJSON(&entry); err != nil || entry.Number == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing number field"})
		return
	}

	if _, err := h.OnCallService.UpdateDaySchedule(c.Param("day"), entry); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success", "day": c.Param("day")})
}
