// Package models contains data structures for the application's domain models.
package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Post status values.
const (
	StatusDraft     = "draft"
	StatusPublished = "published"
)

// Anime type values. An empty AnimeType means "unspecified".
const (
	AnimeTypeTV      = "tv"
	AnimeTypeMovie   = "movie"
	AnimeTypeOVA     = "ova"
	AnimeTypeSpecial = "special"
	AnimeTypeONA     = "ona"
)

// DefaultExcerpt is stored when a post is saved without an excerpt.
const DefaultExcerpt = "No excerpt available"

// AnimeTypeLabels maps anime type codes to their display names.
var AnimeTypeLabels = map[string]string{
	AnimeTypeTV:      "TV Series",
	AnimeTypeMovie:   "Movie",
	AnimeTypeOVA:     "OVA",
	AnimeTypeSpecial: "Special",
	AnimeTypeONA:     "ONA",
}

// Post is an anime review article.
type Post struct {
	ID      uint   `gorm:"primaryKey" json:"id"`
	Title   string `gorm:"size:255;not null" json:"title"`
	Slug    string `gorm:"size:255;uniqueIndex;not null" json:"slug"`
	Content string `gorm:"type:text;not null" json:"content"`
	Excerpt string `gorm:"size:300;not null;default:'No excerpt available'" json:"excerpt"`

	AnimeTitleJP string              `gorm:"size:255;not null;default:''" json:"anime_title_jp"`
	AnimeType    string              `gorm:"size:10;not null;default:''" json:"anime_type"`
	Rating       decimal.NullDecimal `gorm:"type:numeric(3,1)" json:"rating"`
	EpisodeCount *int                `json:"episode_count"`
	ReleaseYear  *int                `json:"release_year"`
	Studio       string              `gorm:"size:100;not null;default:''" json:"studio"`

	// Storage keys of the uploaded images, e.g. "full/<uuid>.jpg".
	FeaturedImage string `gorm:"size:255;not null;default:''" json:"featured_image"`
	Thumbnail     string `gorm:"size:255;not null;default:''" json:"thumbnail"`

	AuthorID   uint      `gorm:"not null;index" json:"author_id"`
	Author     User      `gorm:"foreignKey:AuthorID;constraint:OnDelete:CASCADE" json:"author"`
	CategoryID *uint     `gorm:"index" json:"category_id"`
	Category   *Category `gorm:"foreignKey:CategoryID;constraint:OnDelete:SET NULL" json:"category,omitempty"`
	Tags       []Tag     `gorm:"many2many:post_tags;constraint:OnDelete:CASCADE" json:"tags"`
	Comments   []Comment `gorm:"foreignKey:PostID;constraint:OnDelete:CASCADE" json:"-"`

	Status          string `gorm:"size:10;not null;default:'published';index" json:"status"`
	MetaDescription string `gorm:"size:160;not null;default:''" json:"meta_description"`
	MetaKeywords    string `gorm:"size:255;not null;default:''" json:"meta_keywords"`

	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Views     uint      `gorm:"not null;default:0" json:"views"`
}

// URL returns the canonical public path of the post.
func (p *Post) URL() string {
	return "/" + p.Slug + "/"
}

// IsPublished reports whether the post is visible on the public site.
func (p *Post) IsPublished() bool {
	return p.Status == StatusPublished
}

// AnimeTypeLabel returns the display name of the anime type, or "" when unspecified.
func (p *Post) AnimeTypeLabel() string {
	return AnimeTypeLabels[p.AnimeType]
}

func (p *Post) String() string {
	return p.Title
}
