package registry

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/kasaops/kasa-backend/internal/model/user"
)

var ErrAlreadyRegistered = errors.New("phone number already registered")

// Service is the in-memory user registry. Insertion order is preserved so
// listings and location matches are deterministic.
type Service struct {
	mu      sync.RWMutex
	byPhone map[string]user.User
	order   []string
}

// NewService bootstraps an empty registry.
func NewService() *Service {
	return &Service{
		byPhone: make(map[string]user.User),
	}
}

// Register inserts a new user. The phone key is re-checked under the write
// lock so concurrent wizard commits cannot both win.
func (s *Service) Register(_ context.Context, phone, name, location string) (user.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byPhone[phone]; ok {
		return user.User{}, ErrAlreadyRegistered
	}

	u := user.User{
		Phone:        phone,
		Name:         name,
		Location:     location,
		RegisteredAt: time.Now().UTC(),
	}
	s.byPhone[phone] = u
	s.order = append(s.order, phone)
	return u, nil
}

// FindByPhone looks up a user by phone number.
func (s *Service) FindByPhone(_ context.Context, phone string) (user.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.byPhone[phone]
	return u, ok
}

// FindByLocation returns users whose location matches case-insensitively,
// in registration order.
func (s *Service) FindByLocation(_ context.Context, location string) []user.User {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []user.User
	for _, phone := range s.order {
		u := s.byPhone[phone]
		if strings.EqualFold(u.Location, location) {
			matched = append(matched, u)
		}
	}
	return matched
}

// All returns every user in registration order.
func (s *Service) All(_ context.Context) []user.User {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]user.User, 0, len(s.order))
	for _, phone := range s.order {
		users = append(users, s.byPhone[phone])
	}
	return users
}

// SummarizeByLocation counts users per location. Locations differing only
// in case are folded together under the first-seen spelling.
func (s *Service) SummarizeByLocation(_ context.Context) map[string]int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	summary := make(map[string]int)
	canonical := make(map[string]string)
	for _, phone := range s.order {
		u := s.byPhone[phone]
		key := strings.ToLower(u.Location)
		name, ok := canonical[key]
		if !ok {
			name = u.Location
			canonical[key] = name
		}
		summary[name]++
	}
	return summary
}

// Count returns the number of registered users.
func (s *Service) Count(_ context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}
