package store

import (
	"context"
	"errors"
	"fmt"

	"finder/internal/domain"

	"gorm.io/gorm"        // GORM ORM library
	"gorm.io/gorm/clause" // Association control
)

// profileColumns are overwritten on every edit, blank values included.
var profileColumns = []string{
	"full_name", "nick_name", "email", "phone_number", "address",
	"profile_pic", "birth_date", "birth_place", "website",
}

// GormStore implements Store on top of a gorm connection (mysql or postgres)
type GormStore struct {
	db *gorm.DB
}

// NewGormStore wraps an open gorm connection
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) CreateUser(ctx context.Context, user *domain.User) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Insert the credential row only, the profile is created explicitly below
		if err := tx.Omit(clause.Associations).Create(user).Error; err != nil {
			return classifyUnique(err) // Unique index is the authoritative check
		}
		profile := domain.NewProfile(user.ID) // Empty profile with the default avatar
		if err := tx.Create(profile).Error; err != nil {
			return fmt.Errorf("create profile: %w", err)
		}
		user.Profile = profile
		return nil // Commit transaction
	})
}

func (s *GormStore) UsernameTaken(ctx context.Context, username string) (bool, error) {
	return s.exists(ctx, "username = ?", username)
}

func (s *GormStore) EmailTaken(ctx context.Context, email string) (bool, error) {
	return s.exists(ctx, "email = ?", email)
}

func (s *GormStore) exists(ctx context.Context, query string, arg any) (bool, error) {
	var n int64
	if err := s.db.WithContext(ctx).Model(&domain.User{}).Where(query, arg).Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *GormStore) UserByID(ctx context.Context, id uint) (*domain.User, error) {
	var user domain.User
	if err := s.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

func (s *GormStore) UserByUsername(ctx context.Context, username string) (*domain.User, error) {
	var user domain.User
	if err := s.db.WithContext(ctx).Where("username = ?", username).First(&user).Error; err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

func (s *GormStore) ProfileByUserID(ctx context.Context, userID uint) (*domain.Profile, error) {
	var profile domain.Profile
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&profile).Error; err != nil {
		return nil, notFound(err)
	}
	return &profile, nil
}

func (s *GormStore) SaveProfile(ctx context.Context, profile *domain.Profile) error {
	// Select forces zero values (blank fields) to be written as well
	return s.db.WithContext(ctx).Model(profile).Select(profileColumns).Updates(profile).Error
}

func (s *GormStore) ListUsers(ctx context.Context, offset, limit int) ([]domain.User, int64, error) {
	var total int64
	if err := s.db.WithContext(ctx).Model(&domain.User{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var users []domain.User
	err := s.db.WithContext(ctx).
		Preload("Profile").
		Order("username").
		Offset(offset).
		Limit(limit).
		Find(&users).Error
	if err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
