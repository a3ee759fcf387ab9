package services

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/soctel/oncall/db"
	"github.com/soctel/oncall/internal/sipconf"
	"github.com/soctel/oncall/store"
)

const passwordMask = "********"

// SettingsService manages VoIP and system settings. Changing VoIP
// credentials also patches the Asterisk SIP config and asks Asterisk to
// reload it, both best-effort.
type SettingsService struct {
	Store       *store.Store
	SIPConfPath string
	SpoolDir    string
}

func NewSettingsService(st *store.Store, sipConfPath, spoolDir string) *SettingsService {
	return &SettingsService{Store: st, SIPConfPath: sipConfPath, SpoolDir: spoolDir}
}

// VoIPSettings returns the provider settings with the password masked.
func (s *SettingsService) VoIPSettings() db.VoIPSettings {
	settings := s.Store.Settings()
	if settings.VoIP == nil {
		return db.VoIPSettings{}
	}
	out := *settings.VoIP
	if out.Password != "" {
		out.Password = passwordMask
	}
	return out
}

// UpdateVoIPSettings saves the credentials and pushes them into sip.conf.
func (s *SettingsService) UpdateVoIPSettings(voip db.VoIPSettings) error {
	if voip.Username == "" || voip.Password == "" || voip.Server == "" {
		return fmt.Errorf("missing required fields: username, password, server")
	}

	settings := s.Store.Settings()
	settings.VoIP = &voip
	if err := s.Store.SetSettings(settings); err != nil {
		return err
	}

	s.Store.AppendAudit("voip_settings_updated", "admin", map[string]interface{}{
		"username": voip.Username,
		"server":   voip.Server,
	})

	if s.SIPConfPath != "" {
		if err := sipconf.Patch(s.SIPConfPath, voip.Username, voip.Password, voip.Server); err != nil {
			log.Printf("[Settings] Failed to patch SIP config: %v", err)
		} else {
			reloadSIP()
		}
	}
	return nil
}

func reloadSIP() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := exec.CommandContext(ctx, "asterisk", "-rx", "sip reload").Run(); err != nil {
		log.Printf("[Settings] SIP reload failed: %v", err)
	}
}

func (s *SettingsService) SystemSettings() db.SystemSettings {
	settings := s.Store.Settings()
	if settings.System == nil {
		return db.SystemSettings{Timezone: "UTC", CallHistoryEnabled: true}
	}
	return *settings.System
}

func (s *SettingsService) UpdateSystemSettings(system db.SystemSettings) error {
	if system.Timezone == "" {
		system.Timezone = "UTC"
	}
	settings := s.Store.Settings()
	settings.System = &system
	if err := s.Store.SetSettings(settings); err != nil {
		return err
	}
	s.Store.AppendAudit("system_settings_updated", "admin", map[string]interface{}{
		"timezone": system.Timezone,
	})
	return nil
}

// InitiateTestCall drops a call file into the Asterisk outgoing spool so the
// dialplan rings the current on-call number.
func (s *SettingsService) InitiateTestCall(message string) error {
	if s.SpoolDir == "" {
		return fmt.Errorf("asterisk spool directory not configured")
	}
	if message == "" {
		message = "This is a test call from your on-call management system."
	}

	content := fmt.Sprintf(`Channel: Local/s@soc-incoming
MaxRetries: 0
RetryTime: 60
WaitTime: 30
Context: soc-incoming
Extension: s
Priority: 1
Set: TEST_CALL=true
Set: TEST_MESSAGE=%s
`, message)

	path := filepath.Join(s.SpoolDir, fmt.Sprintf("test_call_%d.call", time.Now().Unix()))
	if err := os.WriteFile(path, []byte(content), 0o666); err != nil {
		return fmt.Errorf("failed to write call file: %w", err)
	}

	s.Store.AppendAudit("test_call_initiated", "admin", map[string]interface{}{
		"timestamp": time.Now().Format(time.RFC3339),
	})
	return nil
}

// Export bundles the whole configuration for backup; the VoIP password is
// masked in the bundle.
func (s *SettingsService) Export() map[string]interface{} {
	settings := s.Store.Settings()
	if settings.VoIP != nil && settings.VoIP.Password != "" {
		settings.VoIP.Password = passwordMask
	}
	return map[string]interface{}{
		"exported_at":   time.Now().Format(time.RFC3339),
		"users":         s.Store.ListUsers(),
		"rotations":     s.Store.ListRotations(),
		"overrides":     s.Store.ListOverrides(),
		"settings":      settings,
		"oncall_config": s.Store.OnCallConfig(),
	}
}
