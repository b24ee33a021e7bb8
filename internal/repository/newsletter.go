package repository

import (
	"context"

	"animeverse/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SubscribeOutcome describes what Subscribe did with an address.
type SubscribeOutcome int

const (
	// Subscribed means a new subscription row was written.
	Subscribed SubscribeOutcome = iota
	// Reactivated means an inactive subscription was switched back on.
	Reactivated
	// AlreadySubscribed means the address was already active; nothing changed.
	AlreadySubscribed
)

// NewsletterRepository defines persistence operations for newsletter subscriptions.
type NewsletterRepository interface {
	Subscribe(ctx context.Context, email string) (SubscribeOutcome, error)
	SetActive(ctx context.Context, id uint, active bool) error
	ListActive(ctx context.Context) ([]models.Newsletter, error)
}

type newsletterRepository struct {
	db *gorm.DB
}

// NewNewsletterRepository returns a new NewsletterRepository implementation.
func NewNewsletterRepository(db *gorm.DB) NewsletterRepository {
	return &newsletterRepository{db: db}
}

// Subscribe inserts email unless it exists. The insert uses ON CONFLICT DO NOTHING so
// concurrent signups for the same address never fail.
func (r *newsletterRepository) Subscribe(ctx context.Context, email string) (SubscribeOutcome, error) {
	var outcome SubscribeOutcome
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row := models.Newsletter{Email: email, IsActive: true}
		res := tx.Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "email"}}, DoNothing: true}).Create(&row)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 1 {
			outcome = Subscribed
			return nil
		}

		var existing models.Newsletter
		if err := tx.Where("email = ?", email).First(&existing).Error; err != nil {
			return err
		}
		if existing.IsActive {
			outcome = AlreadySubscribed
			return nil
		}
		outcome = Reactivated
		return tx.Model(&existing).Update("is_active", true).Error
	})
	if err != nil {
		return 0, models.NewInternalError(err)
	}
	return outcome, nil
}

func (r *newsletterRepository) SetActive(ctx context.Context, id uint, active bool) error {
	res := r.db.WithContext(ctx).Model(&models.Newsletter{}).Where("id = ?", id).Update("is_active", active)
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Newsletter", id)
	}
	return nil
}

func (r *newsletterRepository) ListActive(ctx context.Context) ([]models.Newsletter, error) {
	var subs []models.Newsletter
	if err := readDB(r.db).WithContext(ctx).Where("is_active = ?", true).Order("subscribed_at DESC").Find(&subs).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return subs, nil
}
