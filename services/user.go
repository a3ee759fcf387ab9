package services

import (
	"time"

	"github.com/google/uuid"
	"github.com/soctel/oncall/db"
	"github.com/soctel/oncall/store"
)

// UserService is the identity store: the user directory every other
// component references by ID.
type UserService struct {
	Store      *store.Store
	Dispatcher *WebhookService
}

func NewUserService(st *store.Store, dispatcher *WebhookService) *UserService {
	return &UserService{Store: st, Dispatcher: dispatcher}
}

func (s *UserService) ListUsers() []db.User {
	return s.Store.ListUsers()
}

func (s *UserService) GetUser(id string) (db.User, bool) {
	return s.Store.GetUser(id)
}

func (s *UserService) CreateUser(req db.CreateUserRequest) (db.User, error) {
	active := true
	if req.Active != nil {
		active = *req.Active
	}
	timezone := req.Timezone
	if timezone == "" {
		timezone = "UTC"
	}

	user := db.User{
		ID:        uuid.New().String(),
		Name:      req.Name,
		Phone:     req.Phone,
		Email:     req.Email,
		Timezone:  timezone,
		Active:    active,
		CreatedAt: time.Now().Format(time.RFC3339),
	}

	users := append(s.Store.ListUsers(), user)
	if err := s.Store.PutUsers(users); err != nil {
		return db.User{}, err
	}

	s.Store.AppendAudit("user_created", "admin", map[string]interface{}{"user": user})
	s.Dispatcher.Dispatch("user_created", map[string]interface{}{
		"user_id": user.ID,
		"name":    user.Name,
		"phone":   user.Phone,
	})

	return user, nil
}

func (s *UserService) UpdateUser(id string, req db.CreateUserRequest) (db.User, error) {
	users := s.Store.ListUsers()
	for i := range users {
		if users[i].ID != id {
			continue
		}
		if req.Name != "" {
			users[i].Name = req.Name
		}
		if req.Phone != "" {
			users[i].Phone = req.Phone
		}
		if req.Email != "" {
			users[i].Email = req.Email
		}
		if req.Timezone != "" {
			users[i].Timezone = req.Timezone
		}
		if req.Active != nil {
			users[i].Active = *req.Active
		}

		if err := s.Store.PutUsers(users); err != nil {
			return db.User{}, err
		}
		s.Store.AppendAudit("user_updated", "admin", map[string]interface{}{"user_id": id})
		return users[i], nil
	}
	return db.User{}, ErrNotFound
}

// DeleteUser removes a user. References from rotations, overrides and the
// escalation policy are left dangling on purpose; resolution tolerates them.
func (s *UserService) DeleteUser(id string) error {
	users := s.Store.ListUsers()
	kept := users[:0]
	for _, u := range users {
		if u.ID != id {
			kept = append(kept, u)
		}
	}
	if err := s.Store.PutUsers(kept); err != nil {
		return err
	}
	s.Store.AppendAudit("user_deleted", "admin", map[string]interface{}{"user_id": id})
	return nil
}
