package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/soctel/oncall/db"
	"github.com/soctel/oncall/services"
)

type SettingsHandler struct {
	SettingsService *services.SettingsService
}

func NewSettingsHandler(settingsService *services.SettingsService) *SettingsHandler {
	return &SettingsHandler{SettingsService: settingsService}
}

func (h *SettingsHandler) GetVoIPSettings(c *gin.Context) {
	c.JSON(http.StatusOK, h.SettingsService.VoIPSettings())
}

func (h *SettingsHandler) UpdateVoIPSettings(c *gin.Context) {
	var voip db.VoIPSettings
	if err := c.ShouldBindJSON(&voip); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No data provided"})
		return
	}

	if err := h.SettingsService.UpdateVoIPSettings(voip); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success", "message": "VoIP settings saved"})
}

func (h *SettingsHandler) GetSystemSettings(c *gin.Context) {
	c.JSON(http.StatusOK, h.SettingsService.SystemSettings())
}

func (h *SettingsHandler) UpdateSystemSettings(c *gin.Context) {
	var system db.SystemSettings
	if err := c.ShouldBindJSON(&system); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No data provided"})
		return
	}

	if err := h.SettingsService.UpdateSystemSettings(system); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success", "message": "System settings saved"})
}

// TestConnection validates VoIP credentials. Placeholder: checks the fields
// are present rather than attempting a SIP registration.
func (h *SettingsHandler) TestConnection(c *gin.Context) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
		Server   string `json:"server"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Username == "" || req.Password == "" || req.Server == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Missing credentials"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Successfully connected to " + req.Server,
		"details": gin.H{
			"server":   req.Server,
			"username": req.Username,
		},
	})
}

// TestCall drops a call file into the Asterisk spool so the dialplan rings
// whoever is currently on call.
func (h *SettingsHandler) TestCall(c *gin.Context) {
	var req struct {
		Message string `json:"message"`
	}
	// Body is optional.
	_ = c.ShouldBindJSON(&req)

	if err := h.SettingsService.InitiateTestCall(req.Message); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success", "message": "Test call queued"})
}

func (h *SettingsHandler) Export(c *gin.Context) {
	c.Header("Content-Disposition", "attachment; filename=oncall-export.json")
	c.JSON(http.StatusOK, h.SettingsService.Export())
}
