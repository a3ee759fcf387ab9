package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/soctel/oncall/db"
	"github.com/soctel/oncall/services"
)

type EscalationHandler struct {
	EscalationService *services.EscalationService
}

func NewEscalationHandler(escalationService *services.EscalationService) *EscalationHandler {
	return &EscalationHandler{EscalationService: escalationService}
}

func (h *EscalationHandler) GetPolicy(c *gin.Context) {
	c.JSON(http.StatusOK, h.EscalationService.Policy())
}

func (h *EscalationHandler) UpdatePolicy(c *gin.Context) {
	var policy db.EscalationPolicy
	if err := c.ShouldBindJSON(&policy); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No data provided"})
		return
	}

	updated, err := h.EscalationService.UpdatePolicy(policy)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success", "policy": updated})
}
