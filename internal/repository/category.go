package repository

import (
	"context"

	"animeverse/internal/models"

	"gorm.io/gorm"
)

// CategoryRepository defines persistence operations for categories.
type CategoryRepository interface {
	Create(ctx context.Context, category *models.Category) error
	GetByID(ctx context.Context, id uint) (*models.Category, error)
	GetBySlug(ctx context.Context, slug string) (*models.Category, error)
	List(ctx context.Context) ([]models.Category, error)
	// WithPostCounts lists categories that have published posts, busiest first.
	WithPostCounts(ctx context.Context, limit int) ([]models.Category, error)
	SlugsWithBase(ctx context.Context, base string, excludeID uint) ([]string, error)
	Delete(ctx context.Context, id uint) error
}

type categoryRepository struct {
	db *gorm.DB
}

// NewCategoryRepository returns a new CategoryRepository implementation.
func NewCategoryRepository(db *gorm.DB) CategoryRepository {
	return &categoryRepository{db: db}
}

func (r *categoryRepository) Create(ctx context.Context, category *models.Category) error {
	return r.db.WithContext(ctx).Create(category).Error
}

func (r *categoryRepository) GetByID(ctx context.Context, id uint) (*models.Category, error) {
	var category models.Category
	if err := readDB(r.db).WithContext(ctx).First(&category, id).Error; err != nil {
		return nil, notFoundOr(err, "Category", id)
	}
	return &category, nil
}

func (r *categoryRepository) GetBySlug(ctx context.Context, slug string) (*models.Category, error) {
	var category models.Category
	if err := readDB(r.db).WithContext(ctx).Where("slug = ?", slug).First(&category).Error; err != nil {
		return nil, notFoundOr(err, "Category", slug)
	}
	return &category, nil
}

func (r *categoryRepository) List(ctx context.Context) ([]models.Category, error) {
	var categories []models.Category
	if err := readDB(r.db).WithContext(ctx).Order("name ASC").Find(&categories).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return categories, nil
}

func (r *categoryRepository) WithPostCounts(ctx context.Context, limit int) ([]models.Category, error) {
	q := readDB(r.db).WithContext(ctx).
		Model(&models.Category{}).
		Select("categories.*, COUNT(posts.id) AS post_count").
		Joins("JOIN posts ON posts.category_id = categories.id AND posts.status = ?", models.StatusPublished).
		Group("categories.id").
		Having("COUNT(posts.id) > 0").
		Order("post_count DESC, categories.name ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}

	var categories []models.Category
	if err := q.Find(&categories).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return categories, nil
}

func (r *categoryRepository) SlugsWithBase(ctx context.Context, base string, excludeID uint) ([]string, error) {
	return slugsWithBase(ctx, r.db, &models.Category{}, base, excludeID)
}

func (r *categoryRepository) Delete(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Delete(&models.Category{}, id)
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Category", id)
	}
	return nil
}
