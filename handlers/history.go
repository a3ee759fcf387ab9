package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/soctel/oncall/db"
	"github.com/soctel/oncall/services"
	"github.com/soctel/oncall/store"
)

// HistoryHandler serves the audit log and the call history the AGI router
// reports into.
type HistoryHandler struct {
	Store              *store.Store
	CallHistoryService *services.CallHistoryService
}

func NewHistoryHandler(st *store.Store, callHistoryService *services.CallHistoryService) *HistoryHandler {
	return &HistoryHandler{Store: st, CallHistoryService: callHistoryService}
}

func limitParam(c *gin.Context, fallback int) (int, bool) {
	raw := c.Query("limit")
	if raw == "" {
		return fallback, true
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil || parsed < 1 {
		return 0, false
	}
	return parsed, true
}

func (h *HistoryHandler) GetAuditLog(c *gin.Context) {
	limit, ok := limitParam(c, 100)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid limit parameter"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"audit_log": h.Store.ListAudit(limit)})
}

func (h *HistoryHandler) GetCallHistory(c *gin.Context) {
	limit, ok := limitParam(c, 50)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid limit parameter"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"calls": h.CallHistoryService.ListCalls(limit)})
}

// RecordCall is the AGI router reporting a forwarded call after it completes.
func (h *HistoryHandler) RecordCall(c *gin.Context) {
	var entry db.CallHistoryEntry
	if err := c.ShouldBindJSON(&entry); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No data provided"})
		return
	}

	recorded, err := h.CallHistoryService.RecordCall(entry)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"status": "success", "call": recorded})
}
