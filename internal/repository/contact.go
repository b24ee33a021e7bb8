package repository

import (
	"context"

	"animeverse/internal/models"

	"gorm.io/gorm"
)

// ContactRepository defines persistence operations for contact messages.
type ContactRepository interface {
	Create(ctx context.Context, contact *models.Contact) error
	MarkRead(ctx context.Context, id uint, read bool) error
	ListUnread(ctx context.Context, limit int) ([]models.Contact, error)
}

type contactRepository struct {
	db *gorm.DB
}

// NewContactRepository returns a new ContactRepository implementation.
func NewContactRepository(db *gorm.DB) ContactRepository {
	return &contactRepository{db: db}
}

func (r *contactRepository) Create(ctx context.Context, contact *models.Contact) error {
	// Public submissions always arrive unread.
	contact.IsRead = false
	if err := r.db.WithContext(ctx).Create(contact).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *contactRepository) MarkRead(ctx context.Context, id uint, read bool) error {
	res := r.db.WithContext(ctx).Model(&models.Contact{}).Where("id = ?", id).Update("is_read", read)
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Contact", id)
	}
	return nil
}

func (r *contactRepository) ListUnread(ctx context.Context, limit int) ([]models.Contact, error) {
	var contacts []models.Contact
	q := readDB(r.db).WithContext(ctx).Where("is_read = ?", false).Order("created_at DESC, id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&contacts).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return contacts, nil
}
