package models

import "time"

// Newsletter is a newsletter subscription. One row per email address.
type Newsletter struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Email        string    `gorm:"size:254;uniqueIndex;not null" json:"email"`
	SubscribedAt time.Time `gorm:"autoCreateTime" json:"subscribed_at"`
	IsActive     bool      `gorm:"not null" json:"is_active"`
}

// Contact is a message sent through the public contact form.
type Contact struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:100;not null" json:"name"`
	Email     string    `gorm:"size:254;not null" json:"email"`
	Subject   string    `gorm:"size:200;not null" json:"subject"`
	Message   string    `gorm:"type:text;not null" json:"message"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
	IsRead    bool      `gorm:"not null;default:false" json:"is_read"`
}
