package service

import (
	"context"
	"fmt"

	"animeverse/internal/models"
	"animeverse/internal/notifications"
	"animeverse/internal/observability"
	"animeverse/internal/repository"
	"animeverse/internal/validation"
)

type CommentService struct {
	commentRepo repository.CommentRepository
	postRepo    repository.PostRepository
	notifier    *notifications.Notifier
}

func NewCommentService(
	commentRepo repository.CommentRepository,
	postRepo repository.PostRepository,
	notifier *notifications.Notifier,
) *CommentService {
	return &CommentService{
		commentRepo: commentRepo,
		postRepo:    postRepo,
		notifier:    notifier,
	}
}

// Submit stores a visitor comment on the published post with the given slug.
// Comments are visible immediately; operators can hide them afterwards.
func (s *CommentService) Submit(ctx context.Context, postSlug string, form validation.CommentForm) (*models.Comment, error) {
	post, err := s.postRepo.GetPublishedBySlug(ctx, postSlug)
	if err != nil {
		return nil, err
	}
	if err := validation.Validate(&form); err != nil {
		return nil, err
	}

	comment := &models.Comment{
		PostID:     post.ID,
		Name:       form.Name,
		Email:      form.Email,
		Content:    form.Content,
		IsApproved: true,
	}
	if err := s.commentRepo.Create(ctx, comment); err != nil {
		return nil, err
	}
	observability.CommentsSubmitted.Inc()

	s.notifier.Notify(ctx, notifications.Event{
		Type:    notifications.CommentCreated,
		ID:      comment.ID,
		Summary: fmt.Sprintf("%s on %q", comment.Name, post.Title),
	})
	return comment, nil
}

// SetApproved shows or hides a comment on the public site.
func (s *CommentService) SetApproved(ctx context.Context, id uint, approved bool) (*models.Comment, error) {
	if err := s.commentRepo.SetApproved(ctx, id, approved); err != nil {
		return nil, err
	}
	return s.commentRepo.GetByID(ctx, id)
}

func (s *CommentService) Delete(ctx context.Context, id uint) error {
	return s.commentRepo.Delete(ctx, id)
}
