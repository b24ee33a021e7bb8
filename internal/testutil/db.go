// Package testutil provides shared fixtures for package tests.
package testutil

import (
	"fmt"
	"testing"
	"time"

	"animeverse/internal/database"
	"animeverse/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewTestDB opens an isolated in-memory SQLite database with foreign keys enforced
// and the full schema migrated.
func NewTestDB(t testing.TB) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=on", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	// One connection keeps the in-memory database alive and serialises writers.
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := db.Exec("PRAGMA foreign_keys = ON").Error; err != nil {
		t.Fatalf("enable foreign keys: %v", err)
	}
	if err := db.AutoMigrate(database.PersistentModels()...); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

// CreateOperator inserts a staff operator with password "password123".
func CreateOperator(t testing.TB, db *gorm.DB, username string) *models.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	u := &models.User{Username: username, Email: username + "@example.com", Password: string(hash), IsStaff: true}
	if err := db.Create(u).Error; err != nil {
		t.Fatalf("create operator: %v", err)
	}
	return u
}

// CreateCategory inserts a category with the given name and slug.
func CreateCategory(t testing.TB, db *gorm.DB, name, slug string) *models.Category {
	t.Helper()
	c := &models.Category{Name: name, Slug: slug, Color: models.DefaultCategoryColor}
	if err := db.Create(c).Error; err != nil {
		t.Fatalf("create category: %v", err)
	}
	return c
}

// CreateTag inserts a tag with the given name and slug.
func CreateTag(t testing.TB, db *gorm.DB, name, slug string) *models.Tag {
	t.Helper()
	tag := &models.Tag{Name: name, Slug: slug}
	if err := db.Create(tag).Error; err != nil {
		t.Fatalf("create tag: %v", err)
	}
	return tag
}

// PostOption customises a fixture post before it is inserted.
type PostOption func(*models.Post)

// WithCategory files the post under c.
func WithCategory(c *models.Category) PostOption {
	return func(p *models.Post) { p.CategoryID = &c.ID }
}

// WithTags attaches tags to the post.
func WithTags(tags ...*models.Tag) PostOption {
	return func(p *models.Post) {
		for _, tag := range tags {
			p.Tags = append(p.Tags, *tag)
		}
	}
}

// WithRating sets the post rating, e.g. "8.5".
func WithRating(r string) PostOption {
	return func(p *models.Post) {
		p.Rating = decimal.NewNullDecimal(decimal.RequireFromString(r))
	}
}

// WithViews sets the initial view counter.
func WithViews(v uint) PostOption {
	return func(p *models.Post) { p.Views = v }
}

// WithStatus sets the post status.
func WithStatus(s string) PostOption {
	return func(p *models.Post) { p.Status = s }
}

// WithCreatedAt backdates the post.
func WithCreatedAt(ts time.Time) PostOption {
	return func(p *models.Post) { p.CreatedAt = ts }
}

// WithContent replaces the post body.
func WithContent(content string) PostOption {
	return func(p *models.Post) { p.Content = content }
}

// WithStudio sets the studio.
func WithStudio(studio string) PostOption {
	return func(p *models.Post) { p.Studio = studio }
}

// WithImages sets the featured image and thumbnail storage keys.
func WithImages(featured, thumbnail string) PostOption {
	return func(p *models.Post) {
		p.FeaturedImage = featured
		p.Thumbnail = thumbnail
	}
}

// CreatePost inserts a published post written by author.
func CreatePost(t testing.TB, db *gorm.DB, author *models.User, title, slug string, opts ...PostOption) *models.Post {
	t.Helper()
	p := &models.Post{
		Title:    title,
		Slug:     slug,
		Content:  "A long enough review body about the show, its pacing, its animation and its soundtrack.",
		Excerpt:  models.DefaultExcerpt,
		AuthorID: author.ID,
		Status:   models.StatusPublished,
	}
	for _, opt := range opts {
		opt(p)
	}
	if err := db.Create(p).Error; err != nil {
		t.Fatalf("create post: %v", err)
	}
	return p
}

// CreateComment inserts a comment on post.
func CreateComment(t testing.TB, db *gorm.DB, post *models.Post, name, content string, approved bool, createdAt time.Time) *models.Comment {
	t.Helper()
	c := &models.Comment{
		PostID:     post.ID,
		Name:       name,
		Email:      models.DefaultCommentEmail,
		Content:    content,
		IsApproved: approved,
		CreatedAt:  createdAt,
	}
	if err := db.Create(c).Error; err != nil {
		t.Fatalf("create comment: %v", err)
	}
	return c
}
