package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/soctel/oncall/db"
	"github.com/soctel/oncall/services"
)

type RotationHandler struct {
	RotationService *services.RotationService
}

func NewRotationHandler(rotationService *services.RotationService) *RotationHandler {
	return &RotationHandler{RotationService: rotationService}
}

// ListRotations returns every rotation in stored (precedence) order.
func (h *RotationHandler) ListRotations(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"rotations": h.RotationService.ListRotations()})
}

// CreateRotation appends a new rotation to the precedence list.
func (h *RotationHandler) CreateRotation(c *gin.Context) {
	var req db.CreateRotationRequest
	if err := c.ShouldBindJSON(&req); err != nil ||
		req.Name == "" || req.Type == "" || len(req.Users) == 0 || req.StartDate == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing required fields"})
		return
	}

	rotation, err := h.RotationService.CreateRotation(req)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"status": "success", "rotation": rotation})
}

func (h *RotationHandler) UpdateRotation(c *gin.Context) {
	var req db.CreateRotationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	rotation, err := h.RotationService.UpdateRotation(c.Param("id"), req)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Rotation not found"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success", "rotation": rotation})
}

func (h *RotationHandler) DeleteRotation(c *gin.Context) {
	if err := h.RotationService.DeleteRotation(c.Param("id")); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success"})
}
