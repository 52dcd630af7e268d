// Package service implements the game rules on top of storage: account
// management, pairing, ship placement and shot resolution. It owns the
// coordination lock under which moves are resolved.
package service

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"seabattle/internal/server/storage"
)

// Service coordinates account management and game state over storage.
type Service struct {
	// mu serializes move resolution and pairing. Shot checking, move
	// persistence and turn updates must be observed atomically by
	// competing players; a single lock is enough for one game slot.
	mu    sync.Mutex
	store *storage.Store
}

// New creates a new service instance backed by the given store.
func New(store *storage.Store) *Service {
	return &Service{store: store}
}

// GetStorageHealth returns the storage component status.
func (s *Service) GetStorageHealth() string {
	if s.store == nil {
		return "disabled"
	}
	if s.store.IsHealthy() {
		return "ok"
	}
	return "degraded"
}

// Shutdown closes the underlying store.
func (s *Service) Shutdown(timeout time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.store == nil {
		return nil
	}
	done := make(chan error, 1)
	go func() { done <- s.store.Close() }()
	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("storage: %w", err)
		}
		return nil
	case <-time.After(timeout):
		return errors.New("storage close timed out")
	}
}
