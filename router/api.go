package router

import (
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"

	"github.com/soctel/oncall/handlers"
	"github.com/soctel/oncall/internal/config"
	"github.com/soctel/oncall/services"
	"github.com/soctel/oncall/store"
)

// NewGinRouter wires every service and handler onto a gin engine. The
// returned dispatcher is handed back so main can drain in-flight webhook
// deliveries on shutdown.
func NewGinRouter(st *store.Store, rdb *redis.Client) (*gin.Engine, *services.WebhookService) {
	r := gin.Default()

	// Add CORS middleware
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	// Initialize services
	webhookService := services.NewWebhookService(st)
	onCallService := services.NewOnCallService(st, rdb)
	escalationService := services.NewEscalationService(st, onCallService)
	userService := services.NewUserService(st, webhookService)
	rotationService := services.NewRotationService(st, onCallService)
	overrideService := services.NewOverrideService(st, webhookService, onCallService)
	scheduleService := services.NewScheduleService(st, webhookService)
	settingsService := services.NewSettingsService(st, config.App.SIPConfPath, config.App.SpoolDir)
	callHistoryService := services.NewCallHistoryService(st)

	// Initialize handlers
	userHandler := handlers.NewUserHandler(userService)
	rotationHandler := handlers.NewRotationHandler(rotationService)
	overrideHandler := handlers.NewOverrideHandler(overrideService)
	onCallHandler := handlers.NewOnCallHandler(onCallService, escalationService)
	escalationHandler := handlers.NewEscalationHandler(escalationService)
	scheduleHandler := handlers.NewScheduleHandler(scheduleService)
	webhookHandler := handlers.NewWebhookHandler(webhookService)
	settingsHandler := handlers.NewSettingsHandler(settingsService)
	historyHandler := handlers.NewHistoryHandler(st, callHistoryService)
	statusHandler := handlers.NewStatusHandler(st)

	r.GET("/health", statusHandler.Health)

	api := r.Group("/api")
	{
		api.GET("/status", statusHandler.GetStatus)

		// Resolution surface used by the AGI call router
		api.GET("/oncall/current", onCallHandler.GetCurrentOnCall)
		api.GET("/escalation-chain", onCallHandler.GetEscalationChain)

		// Backward-compatible alias kept for old telephony consumers
		api.GET("/oncall", onCallHandler.GetCurrentOnCall)

		// Legacy on-call config
		api.GET("/config/oncall", onCallHandler.GetLegacyConfig)
		api.PUT("/config/oncall", onCallHandler.UpdateLegacyConfig)
		api.PUT("/config/primary", onCallHandler.UpdatePrimary)
		api.GET("/config/schedule", onCallHandler.GetLegacySchedule)
		api.PUT("/config/schedule/:day", onCallHandler.UpdateDaySchedule)

		// Users
		api.GET("/users", userHandler.ListUsers)
		api.POST("/users", userHandler.CreateUser)
		api.PUT("/users/:id", userHandler.UpdateUser)
		api.DELETE("/users/:id", userHandler.DeleteUser)

		// Rotations
		api.GET("/rotations", rotationHandler.ListRotations)
		api.POST("/rotations", rotationHandler.CreateRotation)
		api.PUT("/rotations/:id", rotationHandler.UpdateRotation)
		api.DELETE("/rotations/:id", rotationHandler.DeleteRotation)

		// Overrides
		api.GET("/overrides", overrideHandler.ListOverrides)
		api.POST("/overrides", overrideHandler.CreateOverride)
		api.DELETE("/overrides/:id", overrideHandler.DeleteOverride)

		// Escalation policy
		api.GET("/escalation", escalationHandler.GetPolicy)
		api.PUT("/escalation", escalationHandler.UpdatePolicy)

		// Manual schedule and calendar preview
		api.GET("/schedule", scheduleHandler.GetManualSchedule)
		api.PUT("/schedule", scheduleHandler.ReplaceManualSchedule)
		api.POST("/schedule/day", scheduleHandler.SetDay)
		api.DELETE("/schedule/day/:date", scheduleHandler.ClearDay)
		api.POST("/schedule/clear", scheduleHandler.ClearAll)
		api.POST("/schedule/import", scheduleHandler.Import)
		api.GET("/schedule/calendar", scheduleHandler.GetCalendar)

		// Webhooks
		api.GET("/webhooks", webhookHandler.ListWebhooks)
		api.POST("/webhooks", webhookHandler.CreateWebhook)
		api.PUT("/webhooks/:id", webhookHandler.UpdateWebhook)
		api.DELETE("/webhooks/:id", webhookHandler.DeleteWebhook)
		api.POST("/webhooks/:id/test", webhookHandler.TestWebhook)
		api.GET("/webhooks/delivery-log", webhookHandler.GetDeliveryLog)

		// Settings
		api.GET("/settings/voip", settingsHandler.GetVoIPSettings)
		api.PUT("/settings/voip", settingsHandler.UpdateVoIPSettings)
		api.GET("/settings/system", settingsHandler.GetSystemSettings)
		api.PUT("/settings/system", settingsHandler.UpdateSystemSettings)
		api.POST("/settings/test-connection", settingsHandler.TestConnection)
		api.POST("/settings/test-call", settingsHandler.TestCall)
		api.GET("/export", settingsHandler.Export)

		// Audit log and call history
		api.GET("/audit", historyHandler.GetAuditLog)
		api.GET("/call-history", historyHandler.GetCallHistory)
		api.POST("/call-history", historyHandler.RecordCall)
	}

	// Static web UI when configured
	if config.App.WebDir != "" {
		r.Static("/web", config.App.WebDir)
	}

	return r, webhookService
}
