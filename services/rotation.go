package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/soctel/oncall/db"
	"github.com/soctel/oncall/store"
)

// ErrNotFound is returned by CRUD operations when the referenced record does
// not exist.
var ErrNotFound = errors.New("not found")

// timeLayouts accepted for rotation anchors and override bounds. The files
// are hand-editable, so parsing stays permissive.
var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

func parseFlexibleTime(value string) (time.Time, error) {
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, value, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparsable timestamp %q", value)
}

// daysBetween counts calendar days from a to b, negative when b precedes a.
// Both instants are reduced to their civil date in their own location and the
// dates are differenced in UTC, so a DST transition between them cannot shave
// the count by an hour the way elapsed-duration division would.
func daysBetween(a, b time.Time) int {
	ua := time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, time.UTC)
	ub := time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, time.UTC)
	return int(ub.Sub(ua).Hours() / 24)
}

// floorMod returns n mod m with a result always in [0, m). Go's % truncates
// toward zero, which would produce a negative index for timestamps before a
// rotation anchor.
func floorMod(n, m int) int {
	return ((n % m) + m) % m
}

// floorDiv floors instead of truncating, matching calendar intuition for
// negative day counts (one day before the anchor is week -1, not week 0).
func floorDiv(n, m int) int {
	q := n / m
	if (n%m != 0) && ((n < 0) != (m < 0)) {
		q--
	}
	return q
}

// ResolveRotation computes which member of the rotation is assigned at the
// given instant. Returns ok=false for inactive rotations, empty member lists
// and unparsable anchor dates; those are skipped by the resolution engine,
// never treated as errors.
func ResolveRotation(r db.Rotation, at time.Time) (string, bool) {
	if !r.Active || len(r.Users) == 0 {
		return "", false
	}

	anchor, err := parseFlexibleTime(r.StartDate)
	if err != nil {
		log.Printf("[Rotation] Skipping rotation %s: %v", r.ID, err)
		return "", false
	}

	days := daysBetween(anchor, at)

	var index int
	switch r.Type {
	case db.RotationDaily:
		index = floorMod(days, len(r.Users))
	case db.RotationWeekly:
		index = floorMod(floorDiv(days, 7), len(r.Users))
	case db.RotationMonthly:
		months := (at.Year()*12 + int(at.Month())) - (anchor.Year()*12 + int(anchor.Month()))
		index = floorMod(months, len(r.Users))
	case db.RotationYearly:
		index = floorMod(at.Year()-anchor.Year(), len(r.Users))
	default:
		log.Printf("[Rotation] Skipping rotation %s: unknown type %q", r.ID, r.Type)
		return "", false
	}

	return r.Users[index], true
}

// RotationSourceTag maps a rotation period kind to the assignment source tag
// used on the wire (daily -> daily_rotation, ...).
func RotationSourceTag(rotationType string) string {
	return rotationType + "_rotation"
}

type RotationService struct {
	Store  *store.Store
	OnCall *OnCallService
}

func NewRotationService(st *store.Store, onCall *OnCallService) *RotationService {
	return &RotationService{Store: st, OnCall: onCall}
}

func (s *RotationService) ListRotations() []db.Rotation {
	return s.Store.ListRotations()
}

var validRotationTypes = map[string]bool{
	db.RotationDaily:   true,
	db.RotationWeekly:  true,
	db.RotationMonthly: true,
	db.RotationYearly:  true,
}

// CreateRotation appends a new rotation. Stored order matters: the resolution
// engine consults the first active rotation that matches.
func (s *RotationService) CreateRotation(req db.CreateRotationRequest) (db.Rotation, error) {
	if !validRotationTypes[req.Type] {
		return db.Rotation{}, fmt.Errorf("invalid rotation type %q: must be daily, weekly, monthly or yearly", req.Type)
	}
	if len(req.Users) == 0 {
		return db.Rotation{}, fmt.Errorf("rotation requires at least one user")
	}
	if _, err := parseFlexibleTime(req.StartDate); err != nil {
		return db.Rotation{}, fmt.Errorf("invalid start date: %w", err)
	}

	active := true
	if req.Active != nil {
		active = *req.Active
	}

	rotation := db.Rotation{
		ID:        uuid.New().String(),
		Name:      req.Name,
		Type:      req.Type,
		Users:     req.Users,
		StartDate: req.StartDate,
		Active:    active,
		CreatedAt: time.Now().Format(time.RFC3339),
	}

	rotations := append(s.Store.ListRotations(), rotation)
	if err := s.Store.PutRotations(rotations); err != nil {
		return db.Rotation{}, err
	}

	s.Store.AppendAudit("rotation_created", "admin", map[string]interface{}{"rotation": rotation})
	s.OnCall.InvalidateCache(context.Background())
	return rotation, nil
}

// UpdateRotation merges the non-zero request fields into an existing rotation.
func (s *RotationService) UpdateRotation(id string, req db.CreateRotationRequest) (db.Rotation, error) {
	rotations := s.Store.ListRotations()
	for i := range rotations {
		if rotations[i].ID != id {
			continue
		}
		if req.Name != "" {
			rotations[i].Name = req.Name
		}
		if req.Type != "" {
			if !validRotationTypes[req.Type] {
				return db.Rotation{}, fmt.Errorf("invalid rotation type %q", req.Type)
			}
			rotations[i].Type = req.Type
		}
		if req.Users != nil {
			if len(req.Users) == 0 {
				return db.Rotation{}, fmt.Errorf("rotation requires at least one user")
			}
			rotations[i].Users = req.Users
		}
		if req.StartDate != "" {
			if _, err := parseFlexibleTime(req.StartDate); err != nil {
				return db.Rotation{}, fmt.Errorf("invalid start date: %w", err)
			}
			rotations[i].StartDate = req.StartDate
		}
		if req.Active != nil {
			rotations[i].Active = *req.Active
		}

		if err := s.Store.PutRotations(rotations); err != nil {
			return db.Rotation{}, err
		}
		s.Store.AppendAudit("rotation_updated", "admin", map[string]interface{}{"rotation_id": id})
		s.OnCall.InvalidateCache(context.Background())
		return rotations[i], nil
	}
	return db.Rotation{}, ErrNotFound
}

func (s *RotationService) DeleteRotation(id string) error {
	rotations := s.Store.ListRotations()
	kept := rotations[:0]
	for _, r := range rotations {
		if r.ID != id {
			kept = append(kept, r)
		}
	}
	if err := s.Store.PutRotations(kept); err != nil {
		return err
	}
	s.Store.AppendAudit("rotation_deleted", "admin", map[string]interface{}{"rotation_id": id})
	s.OnCall.InvalidateCache(context.Background())
	return nil
}
