package services

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/soctel/oncall/db"
	"github.com/soctel/oncall/store"
)

// ScheduleService owns the manual day-by-day schedule and the calendar
// preview. The manual schedule is a planning tool only: the live resolution
// engine never consults it, the calendar view does. Keeping the two tracks
// separate is deliberate.
type ScheduleService struct {
	Store      *store.Store
	Dispatcher *WebhookService
}

func NewScheduleService(st *store.Store, dispatcher *WebhookService) *ScheduleService {
	return &ScheduleService{Store: st, Dispatcher: dispatcher}
}

func (s *ScheduleService) ManualSchedule() db.ManualSchedule {
	return s.Store.ManualSchedule()
}

// ReplaceManualSchedule swaps in a whole new date->user map.
func (s *ScheduleService) ReplaceManualSchedule(schedule db.ManualSchedule) error {
	if err := s.Store.SetManualSchedule(schedule); err != nil {
		return err
	}
	s.Store.AppendAudit("manual_schedule_updated", "admin", map[string]interface{}{"days_updated": len(schedule)})
	return nil
}

// SetDay assigns a user to a single calendar date and notifies subscribers.
func (s *ScheduleService) SetDay(date, userID string) error {
	if _, err := time.Parse("2006-01-02", date); err != nil {
		return fmt.Errorf("invalid date %q: expected YYYY-MM-DD", date)
	}
	if err := s.Store.SetManualScheduleDay(date, userID); err != nil {
		return err
	}

	userName := "Unknown"
	if user, ok := s.Store.GetUser(userID); ok {
		userName = user.Name
	}
	s.Store.AppendAudit("schedule_day_set", "admin", map[string]interface{}{
		"date": date,
		"user": userName,
	})
	s.Dispatcher.Dispatch("oncall_changed", map[string]interface{}{
		"type":      "manual_schedule",
		"date":      date,
		"user_id":   userID,
		"user_name": userName,
	})
	return nil
}

func (s *ScheduleService) ClearDay(date string) error {
	if err := s.Store.ClearManualScheduleDay(date); err != nil {
		return err
	}
	s.Store.AppendAudit("schedule_day_cleared", "admin", map[string]interface{}{"date": date})
	return nil
}

func (s *ScheduleService) ClearAll() error {
	if err := s.Store.SetManualSchedule(db.ManualSchedule{}); err != nil {
		return err
	}
	s.Store.AppendAudit("manual_schedule_cleared", "admin", map[string]interface{}{})
	return nil
}

// Import merges schedule days from a JSON object ({"2025-01-01": "user-id"})
// or CSV rows (date,user-name-or-id). CSV rows naming unknown users are
// skipped with a log line. Returns the number of days merged.
func (s *ScheduleService) Import(format, content string) (int, error) {
	imported := db.ManualSchedule{}

	switch format {
	case "json":
		if err := json.Unmarshal([]byte(content), &imported); err != nil {
			return 0, fmt.Errorf("invalid JSON schedule: %w", err)
		}
	case "csv":
		users := s.Store.ListUsers()
		reader := csv.NewReader(strings.NewReader(content))
		reader.FieldsPerRecord = -1
		rows, err := reader.ReadAll()
		if err != nil {
			return 0, fmt.Errorf("invalid CSV schedule: %w", err)
		}
		for _, row := range rows {
			if len(row) < 2 {
				continue
			}
			date := strings.TrimSpace(row[0])
			identifier := strings.TrimSpace(row[1])
			if userID, ok := findUser(users, identifier); ok {
				imported[date] = userID
			} else {
				log.Printf("[Schedule] Import: user not found for %s: %s", date, identifier)
			}
		}
	default:
		return 0, fmt.Errorf("unsupported import format %q", format)
	}

	current := s.Store.ManualSchedule()
	for date, userID := range imported {
		current[date] = userID
	}
	if err := s.Store.SetManualSchedule(current); err != nil {
		return 0, err
	}

	s.Store.AppendAudit("schedule_imported", "admin", map[string]interface{}{
		"format":        format,
		"days_imported": len(imported),
	})
	return len(imported), nil
}

func findUser(users []db.User, identifier string) (string, bool) {
	for _, u := range users {
		if u.Name == identifier || u.ID == identifier {
			return u.ID, true
		}
	}
	return "", false
}

// Calendar builds the day-by-day preview starting at start: the manual
// schedule wins for a date, otherwise the first active rotation decides
// through the same calculator the live engine uses.
func (s *ScheduleService) Calendar(start time.Time, days int) []db.CalendarDay {
	manual := s.Store.ManualSchedule()
	rotations := s.Store.ListRotations()

	out := make([]db.CalendarDay, 0, days)
	for i := 0; i < days; i++ {
		date := start.AddDate(0, 0, i)
		dateStr := date.Format("2006-01-02")

		if userID, ok := manual[dateStr]; ok {
			out = append(out, db.CalendarDay{
				Date:       dateStr,
				UserID:     userID,
				OnCallName: s.userName(userID),
				Source:     "manual",
			})
			continue
		}

		assigned := false
		for _, r := range rotations {
			userID, ok := ResolveRotation(r, date)
			if !ok {
				continue
			}
			out = append(out, db.CalendarDay{
				Date:       dateStr,
				UserID:     userID,
				OnCallName: s.userName(userID),
				Source:     "rotation",
			})
			assigned = true
			break
		}
		if !assigned {
			out = append(out, db.CalendarDay{Date: dateStr, Source: "none"})
		}
	}
	return out
}

func (s *ScheduleService) userName(userID string) string {
	if user, ok := s.Store.GetUser(userID); ok {
		return user.Name
	}
	return "Unknown"
}
