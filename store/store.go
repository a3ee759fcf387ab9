package store

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/soctel/oncall/db"
)

// File names under the data dir. They match the legacy layout so an existing
// config directory keeps working unchanged.
const (
	usersFile       = "users.json"
	rotationsFile   = "rotations.json"
	overridesFile   = "overrides.json"
	oncallFile      = "oncall.json"
	policyFile      = "escalation_policy.json"
	webhooksFile    = "webhooks.json"
	deliveryLogFile = "webhook_delivery_log.json"
	manualFile      = "manual_schedule.json"
	settingsFile    = "settings.json"
	auditLogFile    = "audit_log.json"
	callHistoryFile = "call_history.json"
)

// Retention caps, newest entries kept.
const (
	maxDeliveryLogEntries = 500
	maxAuditEntries       = 1000
	maxCallHistoryEntries = 500
)

// Store holds all mutable application state and persists each collection to
// its own JSON file under dir. Reads return copies of an in-memory snapshot
// guarded by an RWMutex, so resolution queries never observe a half-applied
// write; writes persist the whole file, matching the legacy on-disk format.
type Store struct {
	mu  sync.RWMutex
	dir string

	users       []db.User
	rotations   []db.Rotation
	overrides   []db.Override
	oncall      db.OnCallConfig
	policy      db.EscalationPolicy
	webhooks    []db.Webhook
	deliveryLog []db.DeliveryLogEntry
	manual      db.ManualSchedule
	settings    db.Settings
	auditLog    []db.AuditEntry
	callHistory []db.CallHistoryEntry
}

// Open loads every collection from dir, creating the directory if needed.
// Missing or unreadable files degrade to empty collections; a corrupt file is
// logged and treated as empty rather than aborting startup.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data dir %s: %w", dir, err)
	}

	s := &Store{dir: dir, manual: db.ManualSchedule{}}

	loadFile(s.path(usersFile), &s.users)
	loadFile(s.path(rotationsFile), &s.rotations)
	loadFile(s.path(overridesFile), &s.overrides)
	loadFile(s.path(oncallFile), &s.oncall)
	loadFile(s.path(policyFile), &s.policy)
	loadFile(s.path(webhooksFile), &s.webhooks)
	loadFile(s.path(deliveryLogFile), &s.deliveryLog)
	loadFile(s.path(manualFile), &s.manual)
	loadFile(s.path(settingsFile), &s.settings)
	loadFile(s.path(auditLogFile), &s.auditLog)
	loadFile(s.path(callHistoryFile), &s.callHistory)

	if s.manual == nil {
		s.manual = db.ManualSchedule{}
	}

	return s, nil
}

func (s *Store) path(name string) string {
	return filepath.Join(s.dir, name)
}

func loadFile(path string, v interface{}) {
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Printf("[Store] Error reading %s: %v", path, err)
		}
		return
	}
	if err := json.Unmarshal(data, v); err != nil {
		log.Printf("[Store] Error parsing %s: %v", path, err)
	}
}

// saveFile must be called with the write lock held.
func (s *Store) saveFile(name string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", name, err)
	}
	if err := os.WriteFile(s.path(name), data, 0o644); err != nil {
		return fmt.Errorf("failed to save %s: %w", name, err)
	}
	return nil
}

// ===========================
// USERS
// ===========================

func (s *Store) ListUsers() []db.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]db.User, len(s.users))
	copy(out, s.users)
	return out
}

// GetUser looks a user up by ID. The boolean is false when the ID no longer
// resolves; callers must tolerate that (weak references).
func (s *Store) GetUser(id string) (db.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if u.ID == id {
			return u, true
		}
	}
	return db.User{}, false
}

func (s *Store) PutUsers(users []db.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users = users
	return s.saveFile(usersFile, s.users)
}

// ===========================
// ROTATIONS
// ===========================

func (s *Store) ListRotations() []db.Rotation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]db.Rotation, len(s.rotations))
	copy(out, s.rotations)
	return out
}

func (s *Store) PutRotations(rotations []db.Rotation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rotations = rotations
	return s.saveFile(rotationsFile, s.rotations)
}

// ===========================
// OVERRIDES
// ===========================

func (s *Store) ListOverrides() []db.Override {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]db.Override, len(s.overrides))
	copy(out, s.overrides)
	return out
}

func (s *Store) PutOverrides(overrides []db.Override) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.overrides = overrides
	return s.saveFile(overridesFile, s.overrides)
}

// ===========================
// LEGACY ON-CALL CONFIG
// ===========================

func (s *Store) OnCallConfig() db.OnCallConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cfg := s.oncall
	cfg.Schedule = make([]db.LegacyScheduleEntry, len(s.oncall.Schedule))
	copy(cfg.Schedule, s.oncall.Schedule)
	return cfg
}

func (s *Store) SetOnCallConfig(cfg db.OnCallConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.oncall = cfg
	return s.saveFile(oncallFile, s.oncall)
}

// ===========================
// ESCALATION POLICY
// ===========================

func (s *Store) EscalationPolicy() db.EscalationPolicy {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p := s.policy
	p.Levels = make([]db.EscalationLevel, len(s.policy.Levels))
	copy(p.Levels, s.policy.Levels)
	return p
}

func (s *Store) SetEscalationPolicy(p db.EscalationPolicy) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.policy = p
	return s.saveFile(policyFile, s.policy)
}

// ===========================
// WEBHOOKS
// ===========================

func (s *Store) ListWebhooks() []db.Webhook {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]db.Webhook, len(s.webhooks))
	copy(out, s.webhooks)
	return out
}

func (s *Store) GetWebhook(id string) (db.Webhook, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, w := range s.webhooks {
		if w.ID == id {
			return w, true
		}
	}
	return db.Webhook{}, false
}

func (s *Store) PutWebhooks(webhooks []db.Webhook) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.webhooks = webhooks
	return s.saveFile(webhooksFile, s.webhooks)
}

// ===========================
// DELIVERY LOG
// ===========================

// AppendDelivery records one delivery attempt and truncates the log to the
// newest 500 entries. The store lock serializes concurrent appends from
// parallel dispatch goroutines.
func (s *Store) AppendDelivery(entry db.DeliveryLogEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deliveryLog = append(s.deliveryLog, entry)
	if len(s.deliveryLog) > maxDeliveryLogEntries {
		s.deliveryLog = s.deliveryLog[len(s.deliveryLog)-maxDeliveryLogEntries:]
	}
	return s.saveFile(deliveryLogFile, s.deliveryLog)
}

// ListDeliveries returns the newest limit entries, oldest first.
// limit <= 0 returns everything.
func (s *Store) ListDeliveries(limit int) []db.DeliveryLogEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	logEntries := s.deliveryLog
	if limit > 0 && len(logEntries) > limit {
		logEntries = logEntries[len(logEntries)-limit:]
	}
	out := make([]db.DeliveryLogEntry, len(logEntries))
	copy(out, logEntries)
	return out
}

// ===========================
// MANUAL SCHEDULE
// ===========================

func (s *Store) ManualSchedule() db.ManualSchedule {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(db.ManualSchedule, len(s.manual))
	for k, v := range s.manual {
		out[k] = v
	}
	return out
}

func (s *Store) SetManualSchedule(m db.ManualSchedule) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m == nil {
		m = db.ManualSchedule{}
	}
	s.manual = m
	return s.saveFile(manualFile, s.manual)
}

func (s *Store) SetManualScheduleDay(date, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.manual[date] = userID
	return s.saveFile(manualFile, s.manual)
}

func (s *Store) ClearManualScheduleDay(date string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.manual, date)
	return s.saveFile(manualFile, s.manual)
}

// ===========================
// SETTINGS
// ===========================

func (s *Store) Settings() db.Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := s.settings
	if s.settings.VoIP != nil {
		v := *s.settings.VoIP
		out.VoIP = &v
	}
	if s.settings.System != nil {
		sys := *s.settings.System
		out.System = &sys
	}
	return out
}

func (s *Store) SetSettings(settings db.Settings) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings = settings
	return s.saveFile(settingsFile, s.settings)
}

// ===========================
// AUDIT LOG
// ===========================

// AppendAudit records an administrative action, keeping the newest 1000
// entries. Persistence failures are logged, never surfaced: auditing must not
// fail the action it records.
func (s *Store) AppendAudit(action, user string, details map[string]interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.auditLog = append(s.auditLog, db.AuditEntry{
		Timestamp: time.Now().Format(time.RFC3339),
		Action:    action,
		User:      user,
		Details:   details,
	})
	if len(s.auditLog) > maxAuditEntries {
		s.auditLog = s.auditLog[len(s.auditLog)-maxAuditEntries:]
	}
	if err := s.saveFile(auditLogFile, s.auditLog); err != nil {
		log.Printf("[Store] Failed to persist audit log: %v", err)
	}
}

func (s *Store) ListAudit(limit int) []db.AuditEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entries := s.auditLog
	if limit > 0 && len(entries) > limit {
		entries = entries[len(entries)-limit:]
	}
	out := make([]db.AuditEntry, len(entries))
	copy(out, entries)
	return out
}

// ===========================
// CALL HISTORY
// ===========================

func (s *Store) AppendCall(entry db.CallHistoryEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.callHistory = append(s.callHistory, entry)
	if len(s.callHistory) > maxCallHistoryEntries {
		s.callHistory = s.callHistory[len(s.callHistory)-maxCallHistoryEntries:]
	}
	return s.saveFile(callHistoryFile, s.callHistory)
}

func (s *Store) ListCalls(limit int) []db.CallHistoryEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	calls := s.callHistory
	if limit > 0 && len(calls) > limit {
		calls = calls[len(calls)-limit:]
	}
	out := make([]db.CallHistoryEntry, len(calls))
	copy(out, calls)
	return out
}
