package services

import (
	"time"

	"github.com/soctel/oncall/db"
	"github.com/soctel/oncall/store"
)

// CallHistoryService records the calls the AGI router reports after
// forwarding them.
type CallHistoryService struct {
	Store *store.Store
}

func NewCallHistoryService(st *store.Store) *CallHistoryService {
	return &CallHistoryService{Store: st}
}

func (s *CallHistoryService) ListCalls(limit int) []db.CallHistoryEntry {
	return s.Store.ListCalls(limit)
}

func (s *CallHistoryService) RecordCall(entry db.CallHistoryEntry) (db.CallHistoryEntry, error) {
	entry.Timestamp = time.Now().Format(time.RFC3339)
	if entry.CallerID == "" {
		entry.CallerID = "Unknown"
	}
	if entry.ForwardedTo == "" {
		entry.ForwardedTo = "Unknown"
	}
	if entry.Status == "" {
		entry.Status = "completed"
	}
	if err := s.Store.AppendCall(entry); err != nil {
		return db.CallHistoryEntry{}, err
	}
	return entry, nil
}
