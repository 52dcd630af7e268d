package service

import (
	"errors"
	"fmt"
	"time"

	"seabattle/internal/server/storage"

	"github.com/lixenwraith/auth"
)

// ErrInvalidCredentials is returned on any login failure; the caller
// cannot tell a missing user from a wrong password.
var ErrInvalidCredentials = errors.New("invalid credentials")

// User represents a registered player account.
type User struct {
	Nickname  string
	Email     string
	CreatedAt time.Time
}

// RegisterUser creates a new account with a hashed password.
func (s *Service) RegisterUser(nickname, email, password string) (*User, error) {
	if s.store == nil {
		return nil, fmt.Errorf("storage disabled")
	}

	passwordHash, err := auth.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	record := storage.UserRecord{
		Nickname:     nickname,
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now().UTC(),
	}
	if err = s.store.CreateUser(record); err != nil {
		return nil, err
	}

	return &User{
		Nickname:  record.Nickname,
		Email:     record.Email,
		CreatedAt: record.CreatedAt,
	}, nil
}

// Authenticate verifies player credentials.
func (s *Service) Authenticate(nickname, password string) (*User, error) {
	if s.store == nil {
		return nil, fmt.Errorf("storage disabled")
	}

	record, err := s.store.GetUserByNickname(nickname)
	if err != nil {
		// Always hash to prevent timing attacks
		auth.HashPassword(password)
		return nil, ErrInvalidCredentials
	}

	if err := auth.VerifyPassword(password, record.PasswordHash); err != nil {
		return nil, ErrInvalidCredentials
	}

	return &User{
		Nickname:  record.Nickname,
		Email:     record.Email,
		CreatedAt: record.CreatedAt,
	}, nil
}

// UpdateLastLogin records a successful login time for the player.
func (s *Service) UpdateLastLogin(nickname string) error {
	if s.store == nil {
		return fmt.Errorf("storage disabled")
	}
	if err := s.store.UpdateLastLogin(nickname, time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to update last login time for %s: %w", nickname, err)
	}
	return nil
}
