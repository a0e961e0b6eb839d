// Package store persists users and their profiles.
package store

import (
	"context"
	"errors"

	"finder/internal/domain"
)

var (
	ErrNotFound          = errors.New("record not found")
	ErrDuplicateUsername = errors.New("username already taken")
	ErrDuplicateEmail    = errors.New("email already taken")
)

// Store is the credential and profile persistence used by the request layer.
type Store interface {
	// CreateUser inserts the user and an empty profile in one transaction.
	// Unique violations are reported as ErrDuplicateUsername or ErrDuplicateEmail.
	CreateUser(ctx context.Context, user *domain.User) error
	UsernameTaken(ctx context.Context, username string) (bool, error)
	EmailTaken(ctx context.Context, email string) (bool, error)
	UserByID(ctx context.Context, id uint) (*domain.User, error)
	UserByUsername(ctx context.Context, username string) (*domain.User, error)
	// ProfileByUserID returns the profile owned by the user.
	ProfileByUserID(ctx context.Context, userID uint) (*domain.Profile, error)
	// SaveProfile overwrites every editable column, blanks included.
	SaveProfile(ctx context.Context, profile *domain.Profile) error
	// ListUsers returns one page of users ordered by username with profiles loaded.
	ListUsers(ctx context.Context, offset, limit int) ([]domain.User, int64, error)
}
