package repository

import (
	"context"
	"strings"

	"animeverse/internal/models"
	"animeverse/internal/observability"

	"gorm.io/gorm"
)

// PostFilter narrows a published-post listing. Zero values mean "no filter".
type PostFilter struct {
	CategoryID *uint
	TagID      *uint
	// Query matches title, content, Japanese title, studio and tag names case-insensitively.
	Query string
}

// PostRepository defines the interface for post data operations
type PostRepository interface {
	Create(ctx context.Context, post *models.Post) error
	Update(ctx context.Context, post *models.Post) error
	GetByID(ctx context.Context, id uint) (*models.Post, error)
	GetPublishedBySlug(ctx context.Context, slug string) (*models.Post, error)
	ListPublished(ctx context.Context, filter PostFilter, limit, offset int) ([]models.Post, int64, error)
	Featured(ctx context.Context, limit int) ([]models.Post, error)
	Related(ctx context.Context, post *models.Post, limit int) ([]models.Post, error)
	IncrementViews(ctx context.Context, post *models.Post) error
	SlugsWithBase(ctx context.Context, base string, excludeID uint) ([]string, error)
	Delete(ctx context.Context, id uint) error
}

// FeaturedMinRating is the lowest rating a post can have to be featured.
const FeaturedMinRating = 8.0

// postEditableColumns are written by Update; views and created_at are owned elsewhere.
var postEditableColumns = []string{
	"Title", "Slug", "Content", "Excerpt",
	"AnimeTitleJP", "AnimeType", "Rating", "EpisodeCount", "ReleaseYear", "Studio",
	"FeaturedImage", "Thumbnail",
	"AuthorID", "CategoryID", "Status", "MetaDescription", "MetaKeywords",
	"UpdatedAt",
}

// postRepository implements PostRepository
type postRepository struct {
	db *gorm.DB
}

// NewPostRepository creates a new post repository
func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepository{db: db}
}

func (r *postRepository) Create(ctx context.Context, post *models.Post) error {
	defer observability.TrackQuery("insert", "posts")()
	// Tags must already exist; only the join rows are written.
	return r.db.WithContext(ctx).Omit("Author", "Category", "Tags.*").Create(post).Error
}

func (r *postRepository) Update(ctx context.Context, post *models.Post) error {
	defer observability.TrackQuery("update", "posts")()
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(post).Select(postEditableColumns).Updates(post).Error; err != nil {
			return err
		}
		assoc := tx.Model(post).Association("Tags")
		if len(post.Tags) == 0 {
			return assoc.Clear()
		}
		return assoc.Replace(post.Tags)
	})
}

func (r *postRepository) GetByID(ctx context.Context, id uint) (*models.Post, error) {
	var post models.Post
	if err := r.withDetails(r.db.WithContext(ctx)).First(&post, id).Error; err != nil {
		return nil, notFoundOr(err, "Post", id)
	}
	return &post, nil
}

func (r *postRepository) GetPublishedBySlug(ctx context.Context, slug string) (*models.Post, error) {
	defer observability.TrackQuery("select", "posts")()
	var post models.Post
	err := r.withDetails(readDB(r.db).WithContext(ctx)).
		Where("posts.slug = ? AND posts.status = ?", slug, models.StatusPublished).
		First(&post).Error
	if err != nil {
		return nil, notFoundOr(err, "Post", slug)
	}
	return &post, nil
}

func (r *postRepository) ListPublished(ctx context.Context, filter PostFilter, limit, offset int) ([]models.Post, int64, error) {
	defer observability.TrackQuery("select", "posts")()
	base := r.published(readDB(r.db).WithContext(ctx))

	if filter.CategoryID != nil {
		base = base.Where("posts.category_id = ?", *filter.CategoryID)
	}
	if filter.TagID != nil {
		base = base.Where("posts.id IN (?)",
			r.db.Table("post_tags").Select("post_id").Where("tag_id = ?", *filter.TagID))
	}
	if q := strings.TrimSpace(filter.Query); q != "" {
		base = applySearch(base, r.db, q)
	}

	var total int64
	if err := base.Session(&gorm.Session{}).Model(&models.Post{}).Count(&total).Error; err != nil {
		return nil, 0, models.NewInternalError(err)
	}

	var posts []models.Post
	err := r.withListing(base).
		Order("posts.created_at DESC, posts.id DESC").
		Limit(limit).Offset(offset).
		Find(&posts).Error
	if err != nil {
		return nil, 0, models.NewInternalError(err)
	}
	return posts, total, nil
}

// applySearch ORs a case-insensitive substring match over the text columns and tag names.
func applySearch(q, db *gorm.DB, term string) *gorm.DB {
	pattern := containsPattern(term)
	tagMatches := db.Table("post_tags").
		Select("post_tags.post_id").
		Joins("JOIN tags ON tags.id = post_tags.tag_id").
		Where(`LOWER(tags.name) LIKE ? ESCAPE '\'`, pattern)

	return q.Where(
		db.Where(`LOWER(posts.title) LIKE ? ESCAPE '\'`, pattern).
			Or(`LOWER(posts.content) LIKE ? ESCAPE '\'`, pattern).
			Or(`LOWER(posts.anime_title_jp) LIKE ? ESCAPE '\'`, pattern).
			Or(`LOWER(posts.studio) LIKE ? ESCAPE '\'`, pattern).
			Or("posts.id IN (?)", tagMatches),
	)
}

func (r *postRepository) Featured(ctx context.Context, limit int) ([]models.Post, error) {
	var posts []models.Post
	err := r.withListing(r.published(readDB(r.db).WithContext(ctx))).
		Where("posts.rating >= ?", FeaturedMinRating).
		Order("posts.views DESC, posts.created_at DESC").
		Limit(limit).
		Find(&posts).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return posts, nil
}

func (r *postRepository) Related(ctx context.Context, post *models.Post, limit int) ([]models.Post, error) {
	if post.CategoryID == nil {
		return []models.Post{}, nil
	}
	var posts []models.Post
	err := r.withListing(r.published(readDB(r.db).WithContext(ctx))).
		Where("posts.category_id = ? AND posts.id <> ?", *post.CategoryID, post.ID).
		Order("posts.created_at DESC, posts.id DESC").
		Limit(limit).
		Find(&posts).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return posts, nil
}

// IncrementViews bumps the stored counter in place and refreshes post.Views from the
// primary. The increment happens in SQL so a stale copy of post can never lower it.
func (r *postRepository) IncrementViews(ctx context.Context, post *models.Post) error {
	db := r.db.WithContext(ctx)
	if err := db.Model(&models.Post{ID: post.ID}).UpdateColumn("views", gorm.Expr("views + 1")).Error; err != nil {
		return models.NewInternalError(err)
	}
	var views []uint
	if err := db.Model(&models.Post{}).Where("id = ?", post.ID).Pluck("views", &views).Error; err != nil {
		return models.NewInternalError(err)
	}
	if len(views) == 1 {
		post.Views = views[0]
	}
	observability.PostViews.Inc()
	return nil
}

func (r *postRepository) SlugsWithBase(ctx context.Context, base string, excludeID uint) ([]string, error) {
	return slugsWithBase(ctx, r.db, &models.Post{}, base, excludeID)
}

func (r *postRepository) Delete(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Delete(&models.Post{}, id)
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Post", id)
	}
	return nil
}

func (r *postRepository) published(db *gorm.DB) *gorm.DB {
	return db.Model(&models.Post{}).Where("posts.status = ?", models.StatusPublished)
}

func (r *postRepository) withListing(db *gorm.DB) *gorm.DB {
	return db.Preload("Author").Preload("Category")
}

func (r *postRepository) withDetails(db *gorm.DB) *gorm.DB {
	return db.Preload("Author").Preload("Category").
		Preload("Tags", func(db *gorm.DB) *gorm.DB { return db.Order("tags.name ASC") })
}
