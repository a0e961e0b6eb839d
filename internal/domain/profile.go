package domain

import "time"

// DefaultAvatar is the shared picture every profile starts with. It is never deleted.
const DefaultAvatar = "default.png"

// Profile Model
type Profile struct {
	ID          uint       `gorm:"primaryKey"`                  // Primary key
	FullName    string     `gorm:"size:60"`                     // Full name
	NickName    string     `gorm:"size:60"`                     // Nickname
	Email       string     `gorm:"size:60"`                     // Contact email, may differ from the login email
	PhoneNumber string     `gorm:"size:30"`                     // Phone number
	Address     string     `gorm:"size:60"`                     // Postal address
	ProfilePic  string     `gorm:"size:60;default:default.png"` // Avatar filename in the image store
	BirthDate   *time.Time `gorm:"type:date"`                   // Birth date, nullable
	BirthPlace  string     `gorm:"size:60"`                     // Birth place
	Website     string     `gorm:"size:60"`                     // Personal website
	UserID      uint       `gorm:"uniqueIndex;not null"`        // Foreign key to User
}

// NewProfile returns the empty profile created alongside a user at signup
func NewProfile(userID uint) *Profile {
	return &Profile{UserID: userID, ProfilePic: DefaultAvatar}
}

// HasDefaultAvatar reports whether the profile still uses the shared picture
func (p *Profile) HasDefaultAvatar() bool {
	return p.ProfilePic == "" || p.ProfilePic == DefaultAvatar
}
