// Package auth verifies credentials and manages login sessions and API tokens.
package auth

import (
	"context"
	"errors"
	"fmt"

	"finder/internal/domain"
	"finder/internal/store"

	"github.com/sirupsen/logrus"
)

// ErrInvalidCredentials is returned for an unknown username and for a wrong
// password alike, so callers cannot tell which one failed.
var ErrInvalidCredentials = errors.New("invalid username or password")

// SignupInput holds already validated signup fields
type SignupInput struct {
	Username string
	Email    string
	Password string
}

// Authenticator creates accounts and checks credentials
type Authenticator struct {
	store  store.Store
	hasher Hasher
}

func NewAuthenticator(s store.Store, h Hasher) *Authenticator {
	return &Authenticator{store: s, hasher: h}
}

// Signup creates a user together with its empty profile. The uniqueness
// pre-checks give early field errors (both at once when username and email
// are taken); the storage unique indexes remain the real guarantee and
// surface through the same errors.
func (a *Authenticator) Signup(ctx context.Context, in SignupInput) (*domain.User, error) {
	usernameTaken, err := a.store.UsernameTaken(ctx, in.Username)
	if err != nil {
		return nil, fmt.Errorf("check username: %w", err)
	}
	emailTaken, err := a.store.EmailTaken(ctx, in.Email)
	if err != nil {
		return nil, fmt.Errorf("check email: %w", err)
	}
	// Both conflicts are reported together
	var conflicts []error
	if usernameTaken {
		conflicts = append(conflicts, store.ErrDuplicateUsername)
	}
	if emailTaken {
		conflicts = append(conflicts, store.ErrDuplicateEmail)
	}
	if len(conflicts) > 0 {
		return nil, errors.Join(conflicts...)
	}

	hash, err := a.hasher.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &domain.User{Username: in.Username, Email: in.Email, Password: hash}
	if err := a.store.CreateUser(ctx, user); err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"user_id":  user.ID,
		"username": user.Username,
	}).Info("Account created")
	return user, nil
}

// Login returns the user when username and password match
func (a *Authenticator) Login(ctx context.Context, username, password string) (*domain.User, error) {
	user, err := a.store.UserByUsername(ctx, username)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	if !a.hasher.Verify(user.Password, password) {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}
