package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/soctel/oncall/db"
	"github.com/soctel/oncall/services"
)

type WebhookHandler struct {
	WebhookService *services.WebhookService
}

func NewWebhookHandler(webhookService *services.WebhookService) *WebhookHandler {
	return &WebhookHandler{WebhookService: webhookService}
}

func (h *WebhookHandler) ListWebhooks(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"webhooks": h.WebhookService.ListWebhooks()})
}

func (h *WebhookHandler) CreateWebhook(c *gin.Context) {
	var req db.CreateWebhookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No data provided"})
		return
	}
	if req.Name == "" || req.URL == "" || req.Type == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing required fields: name, url, type"})
		return
	}

	webhook, err := h.WebhookService.CreateWebhook(req)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"status": "success", "webhook": webhook})
}

func (h *WebhookHandler) UpdateWebhook(c *gin.Context) {
	var req db.CreateWebhookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No data provided"})
		return
	}

	webhook, err := h.WebhookService.UpdateWebhook(c.Param("id"), req)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Webhook not found"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success", "webhook": webhook})
}

func (h *WebhookHandler) DeleteWebhook(c *gin.Context) {
	if err := h.WebhookService.DeleteWebhook(c.Param("id")); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "message": "Webhook deleted"})
}

// TestWebhook fires a webhook_test event at the target's subscriptions; the
// response says the test was dispatched, not that it was delivered.
func (h *WebhookHandler) TestWebhook(c *gin.Context) {
	if err := h.WebhookService.TestWebhook(c.Param("id")); err != nil {
		if errors.Is(err, services.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Webhook not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "message": "Test event dispatched"})
}

func (h *WebhookHandler) GetDeliveryLog(c *gin.Context) {
	limit := 50
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid limit parameter"})
			return
		}
		limit = parsed
	}
	c.JSON(http.StatusOK, gin.H{"deliveries": h.WebhookService.DeliveryLog(limit)})
}
