package handlers

import (
	"context"
	"net/http"
	"os/exec"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/soctel/oncall/store"
)

const asteriskProbeTimeout = 5 * time.Second

// StatusHandler serves liveness and the system status view. Asterisk probes
// shell out to the local CLI and are best-effort: a missing binary or a
// timeout just reports false.
type StatusHandler struct {
	Store *store.Store
}

func NewStatusHandler(st *store.Store) *StatusHandler {
	return &StatusHandler{Store: st}
}

func (h *StatusHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

func (h *StatusHandler) GetStatus(c *gin.Context) {
	asteriskUp, sipRegistered := probeAsterisk()

	c.JSON(http.StatusOK, gin.H{
		"asterisk_running": asteriskUp,
		"sip_registered":   sipRegistered,
		"users":            len(h.Store.ListUsers()),
		"rotations":        len(h.Store.ListRotations()),
		"overrides":        len(h.Store.ListOverrides()),
		"webhooks":         len(h.Store.ListWebhooks()),
		"timestamp":        time.Now().Format(time.RFC3339),
	})
}

func probeAsterisk() (running, registered bool) {
	ctx, cancel := context.WithTimeout(context.Background(), asteriskProbeTimeout)
	defer cancel()

	if err := exec.CommandContext(ctx, "asterisk", "-rx", "core show uptime").Run(); err != nil {
		return false, false
	}

	out, err := exec.CommandContext(ctx, "asterisk", "-rx", "sip show registry").Output()
	if err != nil {
		return true, false
	}
	return true, strings.Contains(string(out), "Registered")
}
