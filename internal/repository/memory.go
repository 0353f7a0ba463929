package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"wardrobe-backend/internal/apperror"
	"wardrobe-backend/internal/models"

	"github.com/google/uuid"
)

// MemoryStore keeps users in process memory. Contents are lost on restart.
type MemoryStore struct {
	mu      sync.RWMutex
	byID    map[string]*models.User
	byEmail map[string]string
}

var _ UserStore = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byID:    make(map[string]*models.User),
		byEmail: make(map[string]string),
	}
}

// FindByEmail retrieves a user by email
func (s *MemoryStore) FindByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byEmail[email]
	if !ok {
		return nil, apperror.NotFound("user", email)
	}
	return s.byID[id].Clone(), nil
}

// FindByID retrieves a user by ID
func (s *MemoryStore) FindByID(_ context.Context, id string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.byID[id]
	if !ok {
		return nil, apperror.NotFound("user", id)
	}
	return u.Clone(), nil
}

// Create creates a new user with a generated ID
func (s *MemoryStore) Create(_ context.Context, email string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.byEmail[email]; taken {
		return nil, apperror.Conflict("user", email)
	}

	u := models.NewUser(uuid.New().String(), email)
	s.insert(u)
	return u.Clone(), nil
}

// Save replaces the stored copy of the user
func (s *MemoryStore) Save(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.byID[user.ID]
	if !ok {
		return apperror.NotFound("user", user.ID)
	}

	if current.Email != user.Email {
		if owner, taken := s.byEmail[user.Email]; taken && owner != user.ID {
			return apperror.Conflict("user", user.Email)
		}
		delete(s.byEmail, current.Email)
	}

	stored := user.Clone()
	stored.UpdatedAt = time.Now()
	s.insert(stored)
	user.UpdatedAt = stored.UpdatedAt
	return nil
}

// EnsureExists returns the user with the given ID, creating it under a
// synthesized email when absent. The check and the insert happen under one
// lock so concurrent callers observe a single user.
func (s *MemoryStore) EnsureExists(_ context.Context, id string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if u, ok := s.byID[id]; ok {
		return u.Clone(), nil
	}

	email := ProvisionedEmail(id)
	if _, taken := s.byEmail[email]; taken {
		return nil, apperror.Conflict("user", email)
	}

	u := models.NewUser(id, email)
	s.insert(u)
	return u.Clone(), nil
}

// List returns every user ordered by creation time
func (s *MemoryStore) List(_ context.Context) ([]*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]*models.User, 0, len(s.byID))
	for _, u := range s.byID {
		users = append(users, u.Clone())
	}
	sort.Slice(users, func(i, j int) bool {
		return users[i].CreatedAt.Before(users[j].CreatedAt)
	})
	return users, nil
}

// Close is a no-op
func (s *MemoryStore) Close() error {
	return nil
}

func (s *MemoryStore) insert(u *models.User) {
	s.byID[u.ID] = u
	s.byEmail[u.Email] = u.ID
}
