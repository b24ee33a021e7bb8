package repository

import (
	"context"

	"animeverse/internal/models"

	"gorm.io/gorm"
)

// TagRepository defines persistence operations for tags.
type TagRepository interface {
	Create(ctx context.Context, tag *models.Tag) error
	GetBySlug(ctx context.Context, slug string) (*models.Tag, error)
	GetByIDs(ctx context.Context, ids []uint) ([]models.Tag, error)
	List(ctx context.Context) ([]models.Tag, error)
	// WithPostCounts lists tags that have published posts, busiest first.
	WithPostCounts(ctx context.Context, limit int) ([]models.Tag, error)
	SlugsWithBase(ctx context.Context, base string, excludeID uint) ([]string, error)
}

type tagRepository struct {
	db *gorm.DB
}

// NewTagRepository returns a new TagRepository implementation.
func NewTagRepository(db *gorm.DB) TagRepository {
	return &tagRepository{db: db}
}

func (r *tagRepository) Create(ctx context.Context, tag *models.Tag) error {
	return r.db.WithContext(ctx).Create(tag).Error
}

func (r *tagRepository) GetBySlug(ctx context.Context, slug string) (*models.Tag, error) {
	var tag models.Tag
	if err := readDB(r.db).WithContext(ctx).Where("slug = ?", slug).First(&tag).Error; err != nil {
		return nil, notFoundOr(err, "Tag", slug)
	}
	return &tag, nil
}

func (r *tagRepository) GetByIDs(ctx context.Context, ids []uint) ([]models.Tag, error) {
	if len(ids) == 0 {
		return []models.Tag{}, nil
	}
	var tags []models.Tag
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Order("name ASC").Find(&tags).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return tags, nil
}

func (r *tagRepository) List(ctx context.Context) ([]models.Tag, error) {
	var tags []models.Tag
	if err := readDB(r.db).WithContext(ctx).Order("name ASC").Find(&tags).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return tags, nil
}

func (r *tagRepository) WithPostCounts(ctx context.Context, limit int) ([]models.Tag, error) {
	q := readDB(r.db).WithContext(ctx).
		Model(&models.Tag{}).
		Select("tags.*, COUNT(posts.id) AS post_count").
		Joins("JOIN post_tags ON post_tags.tag_id = tags.id").
		Joins("JOIN posts ON posts.id = post_tags.post_id AND posts.status = ?", models.StatusPublished).
		Group("tags.id").
		Having("COUNT(posts.id) > 0").
		Order("post_count DESC, tags.name ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}

	var tags []models.Tag
	if err := q.Find(&tags).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return tags, nil
}

func (r *tagRepository) SlugsWithBase(ctx context.Context, base string, excludeID uint) ([]string, error) {
	return slugsWithBase(ctx, r.db, &models.Tag{}, base, excludeID)
}
