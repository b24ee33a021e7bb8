package server

import (
	"errors"
	"log/slog"
	"strings"
	"unicode"

	"animeverse/internal/middleware"
	"animeverse/internal/models"
	"animeverse/internal/pagination"

	"github.com/gofiber/fiber/v2"
)

// errResponseWritten is a sentinel indicating the HTTP response was already
// committed by a helper.  Handlers must return nil (not this error) to avoid
// Fiber's ErrorHandler overwriting the response.
var errResponseWritten = errors.New("response already written")

var errInvalidBody = models.NewValidationError("Invalid request body")

// parseID extracts a route parameter by name as a positive uint.
// On failure it writes a 400 JSON response and returns errResponseWritten.
// Callers should check: if err != nil { return nil }
// The error message is derived from the parameter name (e.g. "id" -> "Invalid ID",
// "commentId" -> "Invalid comment ID").
func (s *Server) parseID(c *fiber.Ctx, param string) (uint, error) {
	id, err := c.ParamsInt(param)
	if err != nil || id <= 0 {
		_ = models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid "+humanizeParam(param)))
		return 0, errResponseWritten
	}
	return uint(id), nil
}

// humanizeParam converts a route param name into a human-readable label.
// Examples: "id" -> "ID", "commentId" -> "comment ID".
func humanizeParam(param string) string {
	if param == "id" {
		return "ID"
	}
	if strings.HasSuffix(param, "Id") {
		words := splitCamel(param[:len(param)-2])
		return strings.ToLower(strings.Join(words, " ")) + " ID"
	}
	return param
}

// splitCamel splits a camelCase string into words.
func splitCamel(s string) []string {
	var words []string
	start := 0
	for i, r := range s {
		if i > 0 && unicode.IsUpper(r) {
			words = append(words, s[start:i])
			start = i
		}
	}
	words = append(words, s[start:])
	return words
}

// pageParam reads the "page" query parameter.
func pageParam(c *fiber.Ctx) int {
	return pagination.ParsePage(c.Query("page"))
}

// respondError answers with the status mapped from err. Server-side failures are logged.
func respondError(c *fiber.Ctx, err error) error {
	status := models.StatusFor(err)
	if status >= fiber.StatusInternalServerError {
		middleware.Logger.ErrorContext(c.UserContext(), "handler failed",
			slog.String("method", c.Method()),
			slog.String("path", c.Path()),
			slog.String("error", err.Error()))
	}
	return models.RespondWithError(c, status, err)
}

// fieldErrors returns the validation error carried by err, if any.
func fieldErrors(err error) (*models.AppError, bool) {
	var appErr *models.AppError
	if errors.As(err, &appErr) && appErr.Code == models.CodeValidation {
		return appErr, true
	}
	return nil, false
}

// operatorID returns the authenticated operator, or 0.
func operatorID(c *fiber.Ctx) uint {
	id, _ := c.Locals("operatorID").(uint)
	return id
}
