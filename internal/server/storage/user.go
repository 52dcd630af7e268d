package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ErrUserExists is returned by CreateUser when the nickname or email is
// already taken.
var ErrUserExists = errors.New("user already exists")

// CreateUser creates a user with transaction isolation so two concurrent
// registrations cannot both pass the uniqueness check.
func (s *Store) CreateUser(record UserRecord) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	exists, err := s.userExists(tx, record.Nickname, record.Email)
	if err != nil {
		return err
	}
	if exists {
		return ErrUserExists
	}

	query := `INSERT INTO users (nickname, email, password_hash, created_at) VALUES (?, ?, ?, ?)`
	if _, err = tx.Exec(query, record.Nickname, record.Email, record.PasswordHash, record.CreatedAt); err != nil {
		return err
	}

	return tx.Commit()
}

// userExists verifies nickname/email uniqueness within a transaction
func (s *Store) userExists(tx *sql.Tx, nickname, email string) (bool, error) {
	var count int
	query := `SELECT COUNT(*) FROM users WHERE nickname = ? COLLATE NOCASE OR email = ? COLLATE NOCASE`
	if err := tx.QueryRow(query, nickname, email).Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}

// GetUserByNickname retrieves a user with case-insensitive matching.
func (s *Store) GetUserByNickname(nickname string) (*UserRecord, error) {
	var user UserRecord
	query := `SELECT nickname, email, password_hash, created_at, last_login_at
		FROM users WHERE nickname = ? COLLATE NOCASE`

	err := s.db.QueryRow(query, nickname).Scan(
		&user.Nickname, &user.Email, &user.PasswordHash,
		&user.CreatedAt, &user.LastLoginAt,
	)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// UpdateLastLogin updates the user's last login time.
func (s *Store) UpdateLastLogin(nickname string, loginTime time.Time) error {
	query := `UPDATE users SET last_login_at = ? WHERE nickname = ? COLLATE NOCASE`
	if _, err := s.db.Exec(query, loginTime, nickname); err != nil {
		return fmt.Errorf("failed to update last login for %s: %w", nickname, err)
	}
	return nil
}

// GetAllUsers retrieves all users, newest first.
func (s *Store) GetAllUsers() ([]UserRecord, error) {
	query := `SELECT nickname, email, password_hash, created_at, last_login_at
		FROM users ORDER BY created_at DESC`

	rows, err := s.db.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []UserRecord
	for rows.Next() {
		var user UserRecord
		err := rows.Scan(
			&user.Nickname, &user.Email, &user.PasswordHash,
			&user.CreatedAt, &user.LastLoginAt,
		)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}

	return users, rows.Err()
}

// CountUsers returns the number of registered users.
func (s *Store) CountUsers() (int, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM users`).Scan(&count)
	return count, err
}
