package services

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/isdelr/book-review-be/internal/models"
)

// UserServiceProvider defines the interface for user services.
type UserServiceProvider interface {
	UserExists(username string) bool
	AuthenticateUser(username, password string) bool
	CreateUser(username, password string) (models.User, error)
	Login(username, password string) (models.User, error)
	CountUsers() int
}

// UserService is the in-memory user registry. Users are only ever added.
type UserService struct {
	mu    sync.RWMutex
	users []models.User
	now   func() time.Time
}

// NewUserService creates an empty UserService.
func NewUserService() *UserService {
	return &UserService{now: time.Now}
}

// UserExists reports whether a username is registered. Matching is case-sensitive.
func (s *UserService) UserExists(username string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.find(username)
	return ok
}

// AuthenticateUser reports whether both username and password match a registered user.
func (s *UserService) AuthenticateUser(username, password string) bool {
	_, err := s.Login(username, password)
	return err == nil
}

// CreateUser registers a new user.
func (s *UserService) CreateUser(username, password string) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.find(username); ok {
		return models.User{}, fmt.Errorf("register %q: %w", username, ErrUserExists)
	}

	user := models.User{
		ID:        uuid.New().String(),
		Username:  username,
		Password:  password,
		CreatedAt: s.now().UTC(),
	}
	s.users = append(s.users, user)
	return user, nil
}

// Login checks credentials and tells an unknown user apart from a wrong password.
func (s *UserService) Login(username, password string) (models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.find(username)
	if !ok {
		return models.User{}, fmt.Errorf("login %q: %w", username, ErrInvalidUsername)
	}
	if user.Password != password {
		return models.User{}, fmt.Errorf("login %q: %w", username, ErrInvalidPassword)
	}
	return user, nil
}

// CountUsers returns the number of registered users.
func (s *UserService) CountUsers() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.users)
}

// find must be called with mu held.
func (s *UserService) find(username string) (models.User, bool) {
	for _, u := range s.users {
		if u.Username == username {
			return u, true
		}
	}
	return models.User{}, false
}
