package service

import (
	"context"

	"animeverse/internal/models"
	"animeverse/internal/notifications"
	"animeverse/internal/observability"
	"animeverse/internal/repository"
	"animeverse/internal/validation"
)

// Newsletter notices shown to the subscriber.
const (
	SubscribedMessage        = "Thank you for subscribing to our newsletter!"
	AlreadySubscribedMessage = "You are already subscribed to our newsletter."
)

// SubscribeResult reports how a newsletter signup was handled.
type SubscribeResult struct {
	Created bool   `json:"created"`
	Message string `json:"message"`
}

type NewsletterService struct {
	repo     repository.NewsletterRepository
	notifier *notifications.Notifier
}

func NewNewsletterService(repo repository.NewsletterRepository, notifier *notifications.Notifier) *NewsletterService {
	return &NewsletterService{repo: repo, notifier: notifier}
}

// Subscribe signs an address up. Repeating it for an active address changes nothing
// and is not an error; an inactive address is switched back on.
func (s *NewsletterService) Subscribe(ctx context.Context, form validation.NewsletterForm) (*SubscribeResult, error) {
	if err := validation.Validate(&form); err != nil {
		observability.NewsletterSignups.WithLabelValues("invalid").Inc()
		return nil, err
	}

	outcome, err := s.repo.Subscribe(ctx, form.Email)
	if err != nil {
		observability.NewsletterSignups.WithLabelValues("error").Inc()
		return nil, err
	}

	switch outcome {
	case repository.AlreadySubscribed:
		observability.NewsletterSignups.WithLabelValues("duplicate").Inc()
		return &SubscribeResult{Created: false, Message: AlreadySubscribedMessage}, nil
	case repository.Reactivated:
		observability.NewsletterSignups.WithLabelValues("reactivated").Inc()
	default:
		observability.NewsletterSignups.WithLabelValues("subscribed").Inc()
	}

	s.notifier.Notify(ctx, notifications.Event{Type: notifications.NewsletterSubscribed, Summary: form.Email})
	return &SubscribeResult{Created: true, Message: SubscribedMessage}, nil
}

func (s *NewsletterService) SetActive(ctx context.Context, id uint, active bool) error {
	return s.repo.SetActive(ctx, id, active)
}

func (s *NewsletterService) ListActive(ctx context.Context) ([]models.Newsletter, error) {
	return s.repo.ListActive(ctx)
}

type ContactService struct {
	repo     repository.ContactRepository
	notifier *notifications.Notifier
}

func NewContactService(repo repository.ContactRepository, notifier *notifications.Notifier) *ContactService {
	return &ContactService{repo: repo, notifier: notifier}
}

// Submit stores a contact message as unread.
func (s *ContactService) Submit(ctx context.Context, form validation.ContactForm) (*models.Contact, error) {
	if err := validation.Validate(&form); err != nil {
		return nil, err
	}
	contact := &models.Contact{
		Name:    form.Name,
		Email:   form.Email,
		Subject: form.Subject,
		Message: form.Message,
	}
	if err := s.repo.Create(ctx, contact); err != nil {
		return nil, err
	}
	observability.ContactMessages.Inc()

	s.notifier.Notify(ctx, notifications.Event{
		Type:    notifications.ContactCreated,
		ID:      contact.ID,
		Summary: contact.Name + ": " + contact.Subject,
	})
	return contact, nil
}

func (s *ContactService) MarkRead(ctx context.Context, id uint, read bool) error {
	return s.repo.MarkRead(ctx, id, read)
}

func (s *ContactService) ListUnread(ctx context.Context, limit int) ([]models.Contact, error) {
	return s.repo.ListUnread(ctx, limit)
}
