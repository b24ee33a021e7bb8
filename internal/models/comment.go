package models

import "time"

// DefaultCommentEmail is the column default for comment rows written without an email.
const DefaultCommentEmail = "anonymous@example.com"

// Comment is a visitor comment on a post.
type Comment struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	PostID     uint      `gorm:"not null;index" json:"post_id"`
	Name       string    `gorm:"size:255;not null" json:"name"`
	Email      string    `gorm:"size:254;not null;default:'anonymous@example.com'" json:"email"`
	Content    string    `gorm:"type:text;not null" json:"content"`
	IsApproved bool      `gorm:"not null;index" json:"is_approved"`
	CreatedAt  time.Time `gorm:"index" json:"created_at"`

	// PostTitle is filled by admin listings only.
	PostTitle string `gorm:"->;-:migration" json:"post_title,omitempty"`
}
