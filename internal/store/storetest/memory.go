// Package storetest provides an in-memory store.Store for tests.
package storetest

import (
	"context"
	"sort"
	"sync"
	"time"

	"finder/internal/domain"
	"finder/internal/store"
)

// Memory is a goroutine-safe in-memory store.Store enforcing the same
// uniqueness rules as the database indexes.
type Memory struct {
	mu       sync.Mutex
	nextUser uint
	nextProf uint
	users    map[uint]domain.User
	profiles map[uint]domain.Profile // keyed by user id
}

func NewMemory() *Memory {
	return &Memory{
		users:    make(map[uint]domain.User),
		profiles: make(map[uint]domain.Profile),
	}
}

func (m *Memory) CreateUser(_ context.Context, user *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, u := range m.users {
		if u.Username == user.Username {
			return store.ErrDuplicateUsername
		}
		if u.Email == user.Email {
			return store.ErrDuplicateEmail
		}
	}

	m.nextUser++
	m.nextProf++
	user.ID = m.nextUser
	user.DateCreated = time.Now()
	profile := domain.NewProfile(user.ID)
	profile.ID = m.nextProf

	stored := *user
	stored.Profile = nil
	m.users[user.ID] = stored
	m.profiles[user.ID] = *profile
	user.Profile = profile
	return nil
}

func (m *Memory) UsernameTaken(_ context.Context, username string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Username == username {
			return true, nil
		}
	}
	return false, nil
}

func (m *Memory) EmailTaken(_ context.Context, email string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			return true, nil
		}
	}
	return false, nil
}

func (m *Memory) UserByID(_ context.Context, id uint) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &u, nil
}

func (m *Memory) UserByUsername(_ context.Context, username string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Username == username {
			return &u, nil
		}
	}
	return nil, store.ErrNotFound
}

func (m *Memory) ProfileByUserID(_ context.Context, userID uint) (*domain.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.profiles[userID]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &p, nil
}

func (m *Memory) SaveProfile(_ context.Context, profile *domain.Profile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.profiles[profile.UserID]; !ok {
		return store.ErrNotFound
	}
	m.profiles[profile.UserID] = *profile
	return nil
}

func (m *Memory) ListUsers(_ context.Context, offset, limit int) ([]domain.User, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	all := make([]domain.User, 0, len(m.users))
	for _, u := range m.users {
		p := m.profiles[u.ID]
		u.Profile = &p
		all = append(all, u)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Username < all[j].Username })

	total := int64(len(all))
	if offset >= len(all) {
		return []domain.User{}, total, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], total, nil
}

// Counts returns the number of stored users and profiles
func (m *Memory) Counts() (users, profiles int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.users), len(m.profiles)
}

var _ store.Store = (*Memory)(nil)
