package models

import "time"

// User is a site operator. Operators author posts and, when staff, use the admin API.
type User struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Username  string    `gorm:"size:150;uniqueIndex;not null" json:"username"`
	Email     string    `gorm:"size:254;not null;default:''" json:"email"`
	Password  string    `gorm:"size:255;not null" json:"-"`
	IsStaff   bool      `gorm:"not null;default:false" json:"is_staff"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
