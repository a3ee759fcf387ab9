package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/soctel/oncall/db"
	"github.com/soctel/oncall/services"
)

type OverrideHandler struct {
	OverrideService *services.OverrideService
}

func NewOverrideHandler(overrideService *services.OverrideService) *OverrideHandler {
	return &OverrideHandler{OverrideService: overrideService}
}

// ListOverrides returns every override in stored (tie-break) order.
func (h *OverrideHandler) ListOverrides(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"overrides": h.OverrideService.ListOverrides()})
}

// CreateOverride installs a time-bounded manual exception.
func (h *OverrideHandler) CreateOverride(c *gin.Context) {
	var req db.CreateOverrideRequest
	if err := c.ShouldBindJSON(&req); err != nil ||
		req.UserID == "" || req.StartDate == "" || req.EndDate == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing required fields"})
		return
	}

	override, err := h.OverrideService.CreateOverride(req)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"status": "success", "override": override})
}

func (h *OverrideHandler) DeleteOverride(c *gin.Context) {
	if err := h.OverrideService.DeleteOverride(c.Param("id")); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success"})
}
