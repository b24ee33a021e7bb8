package server

import (
	"fmt"
	"strconv"
	"time"

	"animeverse/internal/middleware"
	"animeverse/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const operatorTokenTTL = 12 * time.Hour

// Login handles POST /admin/api/login
func (s *Server) Login(c *fiber.Ctx) error {
	var req struct {
		Username string `json:"username" form:"username"`
		Password string `json:"password" form:"password"`
	}
	if err := c.BodyParser(&req); err != nil {
		return respondError(c, errInvalidBody)
	}

	user, err := s.operatorService.Authenticate(c.UserContext(), req.Username, req.Password)
	if err != nil {
		return respondError(c, err)
	}
	if !user.IsStaff {
		return respondError(c, models.NewForbiddenError("Staff access required"))
	}

	token, expiresAt, err := s.generateToken(user)
	if err != nil {
		return respondError(c, models.NewInternalError(err))
	}

	return c.JSON(fiber.Map{
		"token":      token,
		"expires_at": expiresAt,
		"operator":   user,
	})
}

// generateToken creates an operator JWT carrying the staff flag.
func (s *Server) generateToken(user *models.User) (string, time.Time, error) {
	if s.config.JWTSecret == "" {
		return "", time.Time{}, fmt.Errorf("JWT secret not configured")
	}

	now := time.Now()
	expiresAt := now.Add(operatorTokenTTL)
	claims := jwt.MapClaims{
		"sub":      strconv.FormatUint(uint64(user.ID), 10),
		"username": user.Username,
		"staff":    user.IsStaff,
		"iss":      middleware.TokenIssuer,
		"aud":      middleware.TokenAudience,
		"exp":      expiresAt.Unix(),
		"iat":      now.Unix(),
		"nbf":      now.Unix(),
		"jti":      uuid.NewString(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.config.JWTSecret))
	return signed, expiresAt, err
}
