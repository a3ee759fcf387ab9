package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/soctel/oncall/db"
	"github.com/soctel/oncall/store"
)

// OverrideService manages the time-bounded manual exceptions that outrank
// every other assignment source.
type OverrideService struct {
	Store      *store.Store
	Dispatcher *WebhookService
	OnCall     *OnCallService
}

func NewOverrideService(st *store.Store, dispatcher *WebhookService, onCall *OnCallService) *OverrideService {
	return &OverrideService{Store: st, Dispatcher: dispatcher, OnCall: onCall}
}

func (s *OverrideService) ListOverrides() []db.Override {
	return s.Store.ListOverrides()
}

// CreateOverride appends a new override. Stored order is the overlap
// tie-break: the resolution engine takes the first override whose window
// contains the query instant.
func (s *OverrideService) CreateOverride(req db.CreateOverrideRequest) (db.Override, error) {
	start, err := parseFlexibleTime(req.StartDate)
	if err != nil {
		return db.Override{}, fmt.Errorf("invalid start date: %w", err)
	}
	end, err := parseFlexibleTime(req.EndDate)
	if err != nil {
		return db.Override{}, fmt.Errorf("invalid end date: %w", err)
	}
	if end.Before(start) {
		return db.Override{}, fmt.Errorf("override end date must not precede start date")
	}

	reason := req.Reason
	if reason == "" {
		reason = "Manual override"
	}

	override := db.Override{
		ID:        uuid.New().String(),
		UserID:    req.UserID,
		StartDate: req.StartDate,
		EndDate:   req.EndDate,
		Reason:    reason,
		CreatedAt: time.Now().Format(time.RFC3339),
	}

	overrides := append(s.Store.ListOverrides(), override)
	if err := s.Store.PutOverrides(overrides); err != nil {
		return db.Override{}, err
	}

	s.Store.AppendAudit("override_created", "admin", map[string]interface{}{"override": override})
	s.OnCall.InvalidateCache(context.Background())

	// The override may have changed who answers the next call; notify.
	userName, userPhone := "Unknown", "Unknown"
	if user, ok := s.Store.GetUser(override.UserID); ok {
		userName, userPhone = user.Name, user.Phone
	}
	s.Dispatcher.Dispatch("oncall_changed", map[string]interface{}{
		"type":       "override",
		"user_id":    override.UserID,
		"user_name":  userName,
		"user_phone": userPhone,
		"reason":     override.Reason,
		"until":      override.EndDate,
	})

	return override, nil
}

func (s *OverrideService) DeleteOverride(id string) error {
	overrides := s.Store.ListOverrides()
	kept := overrides[:0]
	for _, o := range overrides {
		if o.ID != id {
			kept = append(kept, o)
		}
	}
	if err := s.Store.PutOverrides(kept); err != nil {
		return err
	}
	s.Store.AppendAudit("override_deleted", "admin", map[string]interface{}{"override_id": id})
	s.OnCall.InvalidateCache(context.Background())
	return nil
}
