// Package repository provides data access layer implementations for the application.
package repository

import (
	"context"
	"errors"
	"strings"

	"animeverse/internal/database"
	"animeverse/internal/models"

	"gorm.io/gorm"
)

// readDB routes reads to the replica when one is configured.
func readDB(primary *gorm.DB) *gorm.DB {
	if db := database.GetReadDB(); db != nil {
		return db
	}
	return primary
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// containsPattern builds a lowercase LIKE pattern matching s anywhere; use it with
// "ESCAPE '\'" so user-supplied wildcards match literally.
func containsPattern(s string) string {
	return "%" + likeEscaper.Replace(strings.ToLower(s)) + "%"
}

// slugsWithBase lists slugs in table equal to base or of the form base-<suffix>,
// skipping the row with excludeID.
func slugsWithBase(ctx context.Context, db *gorm.DB, model any, base string, excludeID uint) ([]string, error) {
	q := db.WithContext(ctx).Model(model).
		Where("slug = ? OR slug LIKE ? ESCAPE '\\'", base, likeEscaper.Replace(base)+"-%")
	if excludeID != 0 {
		q = q.Where("id <> ?", excludeID)
	}
	var slugs []string
	if err := q.Pluck("slug", &slugs).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return slugs, nil
}

// notFoundOr maps gorm.ErrRecordNotFound to a NOT_FOUND AppError and anything else
// to an internal error.
func notFoundOr(err error, resource string, id any) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.NewNotFoundError(resource, id)
	}
	return models.NewInternalError(err)
}
