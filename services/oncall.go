package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/soctel/oncall/db"
	"github.com/soctel/oncall/store"
)

// currentOnCallCacheTTL bounds how stale a cached resolution snapshot may be.
// The AGI call router hits the resolution endpoint on every inbound ring, and
// a read may lag a concurrent write by design, so a few seconds is safe.
const (
	currentOnCallCacheKey = "oncall:current"
	currentOnCallCacheTTL = 5 * time.Second
)

// OnCallService is the resolution engine: a pure query over the store that
// applies the precedence policy override -> rotation -> legacy schedule ->
// primary fallback. Redis is optional; when nil the cache layer is skipped.
type OnCallService struct {
	Store *store.Store
	Redis *redis.Client
}

func NewOnCallService(st *store.Store, rdb *redis.Client) *OnCallService {
	return &OnCallService{Store: st, Redis: rdb}
}

// CurrentOnCall resolves who is on call at the given instant. Returns nil
// when nothing is configured. Malformed records (unparsable dates, empty
// member lists) are skipped with a log line, never fatal.
func (s *OnCallService) CurrentOnCall(at time.Time) *db.Assignment {
	// Overrides win outright; first match in stored order breaks overlaps.
	for _, o := range s.Store.ListOverrides() {
		start, err := parseFlexibleTime(o.StartDate)
		if err != nil {
			log.Printf("[OnCall] Skipping override %s: %v", o.ID, err)
			continue
		}
		end, err := parseFlexibleTime(o.EndDate)
		if err != nil {
			log.Printf("[OnCall] Skipping override %s: %v", o.ID, err)
			continue
		}
		// Inclusive on both bounds.
		if !at.Before(start) && !at.After(end) {
			reason := o.Reason
			if reason == "" {
				reason = "Override"
			}
			return &db.Assignment{
				Source: db.SourceOverride,
				UserID: o.UserID,
				Reason: reason,
				Until:  o.EndDate,
			}
		}
	}

	// First active rotation that yields a member; only one rotation is ever
	// consulted per resolution.
	for _, r := range s.Store.ListRotations() {
		userID, ok := ResolveRotation(r, at)
		if !ok {
			continue
		}
		return &db.Assignment{
			Source:     RotationSourceTag(r.Type),
			UserID:     userID,
			RotationID: r.ID,
		}
	}

	cfg := s.Store.OnCallConfig()

	// Legacy static schedule: weekday name plus half-open local hour window.
	day := strings.ToLower(at.Weekday().String())
	hour := at.Hour()
	for _, entry := range cfg.Schedule {
		if strings.ToLower(entry.Day) != day {
			continue
		}
		if entry.StartHour <= hour && hour < entry.EndHour {
			name := entry.Name
			if name == "" {
				name = "On-Call"
			}
			return &db.Assignment{
				Source: db.SourceLegacySchedule,
				Number: entry.Number,
				Name:   name,
			}
		}
	}

	if cfg.Primary != "" {
		name := cfg.PrimaryName
		if name == "" {
			name = "Primary On-Call"
		}
		return &db.Assignment{
			Source: db.SourcePrimary,
			Number: cfg.Primary,
			Name:   name,
		}
	}

	return nil
}

// CurrentOnCallEnriched resolves and attaches the full user record when the
// assignment carries a user ID that still exists. A dangling ID is not an
// error; the assignment is returned without the detail field.
func (s *OnCallService) CurrentOnCallEnriched(at time.Time) *db.Assignment {
	assignment := s.CurrentOnCall(at)
	if assignment == nil {
		return nil
	}
	if assignment.UserID != "" {
		if user, ok := s.Store.GetUser(assignment.UserID); ok {
			assignment.User = &user
		}
	}
	return assignment
}

// CurrentOnCallCached serves the enriched resolution through a short-lived
// Redis snapshot when a client is configured. Cache errors fall through to a
// live resolution.
func (s *OnCallService) CurrentOnCallCached(ctx context.Context) *db.Assignment {
	if s.Redis == nil {
		return s.CurrentOnCallEnriched(time.Now())
	}

	if data, err := s.Redis.Get(ctx, currentOnCallCacheKey).Bytes(); err == nil {
		var cached db.Assignment
		if err := json.Unmarshal(data, &cached); err == nil {
			return &cached
		}
	}

	assignment := s.CurrentOnCallEnriched(time.Now())
	if assignment == nil {
		return nil
	}

	if data, err := json.Marshal(assignment); err == nil {
		if err := s.Redis.Set(ctx, currentOnCallCacheKey, data, currentOnCallCacheTTL).Err(); err != nil {
			log.Printf("[OnCall] Failed to cache resolution snapshot: %v", err)
		}
	}
	return assignment
}

// InvalidateCache drops the cached resolution snapshot. Called after
// mutations that change who is on call so the next ring sees fresh state.
func (s *OnCallService) InvalidateCache(ctx context.Context) {
	if s.Redis == nil {
		return
	}
	if err := s.Redis.Del(ctx, currentOnCallCacheKey).Err(); err != nil {
		log.Printf("[OnCall] Failed to invalidate resolution cache: %v", err)
	}
}

// UpdateLegacyConfig replaces the whole oncall.json document.
func (s *OnCallService) UpdateLegacyConfig(cfg db.OnCallConfig) error {
	if cfg.Primary == "" && cfg.Default == "" {
		return fmt.Errorf("must include primary or default number")
	}
	if err := s.Store.SetOnCallConfig(cfg); err != nil {
		return err
	}
	s.Store.AppendAudit("oncall_config_updated", "admin", map[string]interface{}{"config": cfg})
	s.InvalidateCache(context.Background())
	return nil
}

// UpdatePrimary sets only the final-fallback number.
func (s *OnCallService) UpdatePrimary(number, name string) (db.OnCallConfig, error) {
	cfg := s.Store.OnCallConfig()
	cfg.Primary = number
	if name != "" {
		cfg.PrimaryName = name
	}
	if err := s.Store.SetOnCallConfig(cfg); err != nil {
		return db.OnCallConfig{}, err
	}
	s.Store.AppendAudit("primary_updated", "admin", map[string]interface{}{"number": number})
	s.InvalidateCache(context.Background())
	return cfg, nil
}

// UpdateDaySchedule upserts the legacy schedule entry for a weekday.
func (s *OnCallService) UpdateDaySchedule(day string, entry db.LegacyScheduleEntry) (db.OnCallConfig, error) {
	if entry.Number == "" {
		return db.OnCallConfig{}, fmt.Errorf("missing number field")
	}

	day = strings.ToLower(day)
	cfg := s.Store.OnCallConfig()

	found := false
	for i := range cfg.Schedule {
		if strings.ToLower(cfg.Schedule[i].Day) == day {
			cfg.Schedule[i].Number = entry.Number
			if entry.Name != "" {
				cfg.Schedule[i].Name = entry.Name
			}
			if entry.StartHour != 0 || entry.EndHour != 0 {
				cfg.Schedule[i].StartHour = entry.StartHour
				cfg.Schedule[i].EndHour = entry.EndHour
			}
			found = true
			break
		}
	}
	if !found {
		entry.Day = day
		if entry.EndHour == 0 {
			entry.EndHour = 24
		}
		cfg.Schedule = append(cfg.Schedule, entry)
	}

	if err := s.Store.SetOnCallConfig(cfg); err != nil {
		return db.OnCallConfig{}, err
	}
	s.Store.AppendAudit("day_schedule_updated", "admin", map[string]interface{}{"day": day})
	s.InvalidateCache(context.Background())
	return cfg, nil
}
