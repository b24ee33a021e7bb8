package repository

import (
	"context"

	"animeverse/internal/models"

	"gorm.io/gorm"
)

// CommentRepository defines persistence operations for comments.
type CommentRepository interface {
	Create(ctx context.Context, comment *models.Comment) error
	GetByID(ctx context.Context, id uint) (*models.Comment, error)
	// ListApprovedByPost returns the visible comments of a post, newest first.
	ListApprovedByPost(ctx context.Context, postID uint) ([]models.Comment, error)
	SetApproved(ctx context.Context, id uint, approved bool) error
	Delete(ctx context.Context, id uint) error
}

type commentRepository struct {
	db *gorm.DB
}

// NewCommentRepository returns a new CommentRepository implementation.
func NewCommentRepository(db *gorm.DB) CommentRepository {
	return &commentRepository{db: db}
}

func (r *commentRepository) Create(ctx context.Context, comment *models.Comment) error {
	if err := r.db.WithContext(ctx).Create(comment).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *commentRepository) GetByID(ctx context.Context, id uint) (*models.Comment, error) {
	var comment models.Comment
	if err := r.db.WithContext(ctx).First(&comment, id).Error; err != nil {
		return nil, notFoundOr(err, "Comment", id)
	}
	return &comment, nil
}

func (r *commentRepository) ListApprovedByPost(ctx context.Context, postID uint) ([]models.Comment, error) {
	var comments []models.Comment
	err := readDB(r.db).WithContext(ctx).
		Where("post_id = ? AND is_approved = ?", postID, true).
		Order("created_at DESC, id DESC").
		Find(&comments).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return comments, nil
}

func (r *commentRepository) SetApproved(ctx context.Context, id uint, approved bool) error {
	res := r.db.WithContext(ctx).Model(&models.Comment{}).Where("id = ?", id).Update("is_approved", approved)
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Comment", id)
	}
	return nil
}

func (r *commentRepository) Delete(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Delete(&models.Comment{}, id)
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Comment", id)
	}
	return nil
}
