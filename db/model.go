package db

import "encoding/json"

// ===========================
// USER MODELS
// ===========================

// User is a person that can be placed on call. Referenced by ID from
// rotations, overrides, escalation levels and the manual schedule; those
// references are weak and may dangle after a user is deleted.
type User struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Phone     string `json:"phone"`
	Email     string `json:"email,omitempty"`
	Timezone  string `json:"timezone,omitempty"`
	Active    bool   `json:"active"`
	CreatedAt string `json:"created_at,omitempty"`
}

type CreateUserRequest struct {
	Name     string `json:"name"`
	Phone    string `json:"phone"`
	Email    string `json:"email"`
	Timezone string `json:"timezone"`
	Active   *bool  `json:"active"`
}

// ===========================
// ROTATION MODELS
// ===========================

// Rotation period kinds.
const (
	RotationDaily   = "daily"
	RotationWeekly  = "weekly"
	RotationMonthly = "monthly"
	RotationYearly  = "yearly"
)

// Rotation is a periodic assignment of on-call duty among an ordered list
// of users. StartDate is the anchor the period arithmetic counts from; it is
// kept as the raw string from the config file and parsed at resolution time
// so a hand-edited bad value degrades to a skip instead of a crash.
type Rotation struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Type      string   `json:"type"` // daily, weekly, monthly, yearly
	Users     []string `json:"users"`
	StartDate string   `json:"start_date"`
	Active    bool     `json:"active"`
	CreatedAt string   `json:"created_at,omitempty"`
}

// UnmarshalJSON defaults a missing "active" key to true: hand-edited legacy
// records rarely carry it, and an absent key means the rotation was never
// deactivated.
func (r *Rotation) UnmarshalJSON(data []byte) error {
	type alias Rotation
	aux := struct {
		Active *bool `json:"active"`
		*alias
	}{alias: (*alias)(r)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	r.Active = aux.Active == nil || *aux.Active
	return nil
}

type CreateRotationRequest struct {
	Name      string   `json:"name"`
	Type      string   `json:"type"`
	Users     []string `json:"users"`
	StartDate string   `json:"start_date"`
	Active    *bool    `json:"active"`
}

// ===========================
// OVERRIDE MODELS
// ===========================

// Override is a time-bounded manual exception that supersedes every other
// assignment source while now is inside [StartDate, EndDate] (inclusive).
type Override struct {
	ID        string `json:"id"`
	UserID    string `json:"user_id"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
	Reason    string `json:"reason,omitempty"`
	CreatedAt string `json:"created_at,omitempty"`
}

type CreateOverrideRequest struct {
	UserID    string `json:"user_id"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
	Reason    string `json:"reason"`
}

// ===========================
// LEGACY ON-CALL CONFIG
// ===========================

// LegacyScheduleEntry is one weekday/hour window of the static schedule that
// predates rotations. Hours are local, half-open [StartHour, EndHour).
// It carries a raw phone number, not a user reference.
type LegacyScheduleEntry struct {
	Day       string `json:"day"`
	StartHour int    `json:"start_hour"`
	EndHour   int    `json:"end_hour"`
	Number    string `json:"number"`
	Name      string `json:"name,omitempty"`
}

// OnCallConfig is the legacy oncall.json document: the static schedule plus
// the final-fallback primary number. The AGI call router also reads this file
// directly when the API is unreachable.
type OnCallConfig struct {
	Primary     string                `json:"primary,omitempty"`
	PrimaryName string                `json:"primary_name,omitempty"`
	Default     string                `json:"default,omitempty"`
	Schedule    []LegacyScheduleEntry `json:"schedule,omitempty"`
}

// ===========================
// RESOLUTION RESULT
// ===========================

// Assignment source tags as they appear on the wire.
const (
	SourceOverride       = "override"
	SourceLegacySchedule = "legacy_schedule"
	SourcePrimary        = "primary"
)

// Assignment is the resolution engine's answer for a single instant: who is
// on call and which precedence source produced the answer. Exactly one of
// UserID / Number is set depending on the source. User is filled in by
// enrichment when the referenced user still exists.
type Assignment struct {
	Source     string `json:"type"`
	UserID     string `json:"user_id,omitempty"`
	Number     string `json:"number,omitempty"`
	Name       string `json:"name,omitempty"`
	Reason     string `json:"reason,omitempty"`
	Until      string `json:"until,omitempty"`
	RotationID string `json:"rotation_id,omitempty"`
	User       *User  `json:"user,omitempty"`
}

// ===========================
// ESCALATION MODELS
// ===========================

// EscalationLevel is one configured step past the primary. Level numbers
// start at 2; level 1 is always the resolved primary.
type EscalationLevel struct {
	Level    int    `json:"level"`
	UserID   string `json:"user_id"`
	Timeout  int    `json:"timeout"`
	Attempts int    `json:"attempts"`
}

type EscalationPolicy struct {
	Enabled bool              `json:"enabled"`
	Levels  []EscalationLevel `json:"levels"`
}

// ChainLevel is one entry of a built escalation chain, enriched with the
// full user record.
type ChainLevel struct {
	Level    int   `json:"level"`
	User     *User `json:"user"`
	Timeout  int   `json:"timeout"`
	Attempts int   `json:"attempts"`
}

// Chain is the complete ordered call-forwarding plan for an instant.
type Chain struct {
	Primary           *Assignment  `json:"primary"`
	EscalationEnabled bool         `json:"escalation_enabled"`
	Levels            []ChainLevel `json:"chain"`
}

// ===========================
// WEBHOOK MODELS
// ===========================

// Webhook target kinds.
const (
	WebhookSlack   = "slack"
	WebhookDiscord = "discord"
	WebhookTeams   = "teams"
	WebhookGeneric = "generic"
)

// Webhook is an externally registered HTTP endpoint notified of
// state-change events it subscribes to.
type Webhook struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	URL       string   `json:"url"`
	Type      string   `json:"type"` // slack, discord, teams, generic
	Events    []string `json:"events"`
	Enabled   bool     `json:"enabled"`
	CreatedAt string   `json:"created_at,omitempty"`
}

// UnmarshalJSON defaults a missing "enabled" key to true, mirroring
// Rotation.Active.
func (w *Webhook) UnmarshalJSON(data []byte) error {
	type alias Webhook
	aux := struct {
		Enabled *bool `json:"enabled"`
		*alias
	}{alias: (*alias)(w)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	w.Enabled = aux.Enabled == nil || *aux.Enabled
	return nil
}

type CreateWebhookRequest struct {
	Name    string   `json:"name"`
	URL     string   `json:"url"`
	Type    string   `json:"type"`
	Events  []string `json:"events"`
	Enabled *bool    `json:"enabled"`
}

// DeliveryLogEntry records one webhook delivery attempt. The log is
// append-only and globally capped at the newest 500 entries.
type DeliveryLogEntry struct {
	WebhookID  string `json:"webhook_id"`
	EventType  string `json:"event_type"`
	Timestamp  string `json:"timestamp"`
	Success    bool   `json:"success"`
	StatusCode int    `json:"status_code,omitempty"`
	Error      string `json:"error,omitempty"`
	URL        string `json:"url"`
}

// ===========================
// MANUAL SCHEDULE / CALENDAR
// ===========================

// ManualSchedule maps a calendar date (YYYY-MM-DD) to a user ID. Consulted
// only by the calendar preview, never by the live resolution engine.
type ManualSchedule map[string]string

// CalendarDay is one day of the calendar preview view.
type CalendarDay struct {
	Date       string `json:"date"`
	UserID     string `json:"user_id,omitempty"`
	OnCallName string `json:"oncall_name"`
	Source     string `json:"source"` // manual, rotation, none
}

// ===========================
// SETTINGS
// ===========================

type VoIPSettings struct {
	Username string `json:"username"`
	Password string `json:"password,omitempty"`
	Server   string `json:"server"`
	DID      string `json:"did,omitempty"`
}

type SystemSettings struct {
	Timezone           string `json:"timezone"`
	CallHistoryEnabled bool   `json:"call_history_enabled"`
	AlertEmail         string `json:"alert_email"`
}

type Settings struct {
	VoIP   *VoIPSettings   `json:"voip,omitempty"`
	System *SystemSettings `json:"system,omitempty"`
}

// ===========================
// AUDIT / CALL HISTORY
// ===========================

// AuditEntry records one administrative action. Capped at the newest 1000.
type AuditEntry struct {
	Timestamp string                 `json:"timestamp"`
	Action    string                 `json:"action"`
	User      string                 `json:"user"`
	Details   map[string]interface{} `json:"details"`
}

// CallHistoryEntry is reported by the AGI call router after a forwarded
// call completes. Capped at the newest 500.
type CallHistoryEntry struct {
	Timestamp   string `json:"timestamp"`
	CallerID    string `json:"caller_id"`
	ForwardedTo string `json:"forwarded_to"`
	Status      string `json:"status"`
	Duration    int    `json:"duration"`
}
