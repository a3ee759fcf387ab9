package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/soctel/oncall/db"
	"github.com/soctel/oncall/services"
)

type ScheduleHandler struct {
	ScheduleService *services.ScheduleService
}

func NewScheduleHandler(scheduleService *services.ScheduleService) *ScheduleHandler {
	return &ScheduleHandler{ScheduleService: scheduleService}
}

func (h *ScheduleHandler) GetManualSchedule(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"schedule": h.ScheduleService.ManualSchedule()})
}

func (h *ScheduleHandler) ReplaceManualSchedule(c *gin.Context) {
	var schedule db.ManualSchedule
	if err := c.ShouldBindJSON(&schedule); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No data provided"})
		return
	}

	if err := h.ScheduleService.ReplaceManualSchedule(schedule); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success", "days_updated": len(schedule)})
}

func (h *ScheduleHandler) SetDay(c *gin.Context) {
	var req struct {
		Date   string `json:"date"`
		UserID string `json:"user_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Date == "" || req.UserID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing required fields: date, user_id"})
		return
	}

	if err := h.ScheduleService.SetDay(req.Date, req.UserID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success", "date": req.Date})
}

func (h *ScheduleHandler) ClearDay(c *gin.Context) {
	date := c.Param("date")
	if err := h.ScheduleService.ClearDay(date); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "date": date})
}

// ClearAll wipes the whole manual schedule; requires confirm: true in the
// body so a stray request cannot do it.
func (h *ScheduleHandler) ClearAll(c *gin.Context) {
	var req struct {
		Confirm bool `json:"confirm"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || !req.Confirm {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Confirmation required"})
		return
	}

	if err := h.ScheduleService.ClearAll(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success", "message": "Manual schedule cleared"})
}

func (h *ScheduleHandler) Import(c *gin.Context) {
	var req struct {
		Format  string `json:"format"`
		Content string `json:"content"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Content == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing required fields: format, content"})
		return
	}
	if req.Format == "" {
		req.Format = "json"
	}

	imported, err := h.ScheduleService.Import(req.Format, req.Content)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success", "days_imported": imported})
}

// GetCalendar renders the day-by-day preview. Query params: start
// (YYYY-MM-DD, default today) and days (default 30, max 366).
func (h *ScheduleHandler) GetCalendar(c *gin.Context) {
	start := time.Now()
	if raw := c.Query("start"); raw != "" {
		parsed, err := time.ParseInLocation("2006-01-02", raw, time.Local)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid start date: expected YYYY-MM-DD"})
			return
		}
		start = parsed
	}

	days := 30
	if raw := c.Query("days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid days parameter"})
			return
		}
		days = parsed
	}
	if days > 366 {
		days = 366
	}

	c.JSON(http.StatusOK, gin.H{"calendar": h.ScheduleService.Calendar(start, days)})
}
