package domain

import "time"

// User Model
type User struct {
	ID          uint      `gorm:"primaryKey"`                                    // Primary key
	Username    string    `gorm:"size:15;uniqueIndex;not null"`                  // Unique username
	Email       string    `gorm:"size:60;uniqueIndex;not null"`                  // Unique email
	Password    string    `gorm:"size:120;not null"`                             // bcrypt hash, never plaintext
	DateCreated time.Time `gorm:"autoCreateTime;not null"`                       // Set once on insert
	Profile     *Profile  `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"` // One-to-one relationship with Profile
}

func (u User) String() string {
	return "@" + u.Username
}
