package service

import (
	"errors"

	"animeverse/internal/models"
)

func isNotFound(err error) bool {
	var appErr *models.AppError
	return errors.As(err, &appErr) && appErr.Code == models.CodeNotFound
}

// asAppError passes application errors through and wraps anything else as internal.
func asAppError(err error) error {
	var appErr *models.AppError
	if errors.As(err, &appErr) {
		return err
	}
	return models.NewInternalError(err)
}

func errorMessage(err error) string {
	var appErr *models.AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return err.Error()
}
