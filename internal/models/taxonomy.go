package models

import "time"

// DefaultCategoryColor is used when a category is saved without a color.
const DefaultCategoryColor = "#6366f1"

// Category groups posts by broad subject (e.g. "Shonen", "Seasonal Reviews").
type Category struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"size:100;not null" json:"name"`
	Slug        string    `gorm:"size:255;uniqueIndex;not null" json:"slug"`
	Description string    `gorm:"type:text;not null;default:''" json:"description"`
	Color       string    `gorm:"size:7;not null;default:'#6366f1'" json:"color"`
	CreatedAt   time.Time `json:"created_at"`

	// PostCount is computed at query time (published posts only).
	PostCount int64 `gorm:"->;-:migration" json:"post_count"`
}

func (c *Category) String() string {
	return c.Name
}

// Tag is a free-form label attached to posts.
type Tag struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:50;not null" json:"name"`
	Slug      string    `gorm:"size:255;uniqueIndex;not null" json:"slug"`
	CreatedAt time.Time `json:"created_at"`

	// PostCount is computed at query time (published posts only).
	PostCount int64 `gorm:"->;-:migration" json:"post_count"`
}

func (t *Tag) String() string {
	return t.Name
}
