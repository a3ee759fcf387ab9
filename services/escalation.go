package services

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/soctel/oncall/db"
	"github.com/soctel/oncall/store"
)

// ErrNoOnCallConfigured is returned when no override, rotation, legacy entry
// or fallback resolves a primary. It is an absence, never fatal.
var ErrNoOnCallConfigured = errors.New("no on-call person configured")

// EscalationService builds the ordered call-forwarding plan from the
// resolution engine's primary plus the configured escalation policy.
type EscalationService struct {
	Store  *store.Store
	OnCall *OnCallService
}

func NewEscalationService(st *store.Store, onCall *OnCallService) *EscalationService {
	return &EscalationService{Store: st, OnCall: onCall}
}

// BuildChain assembles the escalation chain for an instant. Level 1 is
// always the resolved primary. With the policy disabled the chain is the
// primary alone; enabled, levels 2..N follow in configured order, silently
// dropping levels whose user no longer exists, so the chain may be shorter
// than the policy.
func (s *EscalationService) BuildChain(at time.Time) (*db.Chain, error) {
	primary := s.OnCall.CurrentOnCallEnriched(at)
	if primary == nil {
		return nil, ErrNoOnCallConfigured
	}

	policy := s.Store.EscalationPolicy()
	chain := &db.Chain{
		Primary:           primary,
		EscalationEnabled: policy.Enabled,
		Levels:            []db.ChainLevel{},
	}

	if !policy.Enabled {
		return chain, nil
	}

	for _, level := range policy.Levels {
		user, ok := s.Store.GetUser(level.UserID)
		if !ok {
			continue
		}
		timeout := level.Timeout
		if timeout == 0 {
			timeout = 30
		}
		attempts := level.Attempts
		if attempts == 0 {
			attempts = 1
		}
		chain.Levels = append(chain.Levels, db.ChainLevel{
			Level:    level.Level,
			User:     &user,
			Timeout:  timeout,
			Attempts: attempts,
		})
	}

	return chain, nil
}

// Policy returns the stored escalation policy, defaulting to disabled with
// no levels.
func (s *EscalationService) Policy() db.EscalationPolicy {
	p := s.Store.EscalationPolicy()
	if p.Levels == nil {
		p.Levels = []db.EscalationLevel{}
	}
	return p
}

// UpdatePolicy replaces the escalation policy. Level numbers must start at 2
// (level 1 is the resolved primary) and be strictly increasing.
func (s *EscalationService) UpdatePolicy(policy db.EscalationPolicy) (db.EscalationPolicy, error) {
	if err := validateLevels(policy.Levels); err != nil {
		return db.EscalationPolicy{}, err
	}
	if policy.Levels == nil {
		policy.Levels = []db.EscalationLevel{}
	}

	if err := s.Store.SetEscalationPolicy(policy); err != nil {
		return db.EscalationPolicy{}, err
	}

	s.Store.AppendAudit("escalation_policy_updated", "admin", map[string]interface{}{
		"enabled":     policy.Enabled,
		"level_count": len(policy.Levels),
	})
	return policy, nil
}

func validateLevels(levels []db.EscalationLevel) error {
	if !sort.SliceIsSorted(levels, func(i, j int) bool { return levels[i].Level < levels[j].Level }) {
		return fmt.Errorf("escalation levels must be in increasing order")
	}
	seen := map[int]bool{}
	for _, l := range levels {
		if l.Level < 2 {
			return fmt.Errorf("escalation level numbers start at 2, got %d", l.Level)
		}
		if seen[l.Level] {
			return fmt.Errorf("duplicate escalation level %d", l.Level)
		}
		seen[l.Level] = true
		if l.UserID == "" {
			return fmt.Errorf("escalation level %d is missing a user", l.Level)
		}
	}
	return nil
}
