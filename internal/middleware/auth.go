// Package middleware provides the Fiber middleware shared by the public site and the operator API.
package middleware

import (
	"strconv"
	"strings"

	"animeverse/internal/config"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

const (
	// TokenIssuer is the "iss" claim of operator tokens.
	TokenIssuer = "animeverse-api"
	// TokenAudience is the "aud" claim of operator tokens.
	TokenAudience = "animeverse-admin"
)

var cfg *config.Config

// InitMiddleware initializes authentication middleware with the given config.
func InitMiddleware(c *config.Config) {
	cfg = c
}

// OperatorRequired validates the bearer token of an operator and stores operatorID,
// operatorName and isStaff in Fiber locals.
func OperatorRequired(c *fiber.Ctx) error {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Authorization header required",
		})
	}

	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Invalid authorization header format",
		})
	}

	token, err := jwt.Parse(parts[1], func(token *jwt.Token) (interface{}, error) {
		return []byte(cfg.JWTSecret), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(TokenIssuer),
		jwt.WithAudience(TokenAudience),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !token.Valid {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Invalid or expired token",
		})
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Invalid token claims",
		})
	}

	// Subject carries the operator ID as a decimal string (RFC 7519)
	subStr, err := claims.GetSubject()
	if err != nil || subStr == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Invalid token structure - missing subject",
		})
	}
	operatorID, err := strconv.ParseUint(subStr, 10, 32)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Invalid operator ID in token",
		})
	}

	c.Locals("operatorID", uint(operatorID))
	if username, ok := claims["username"].(string); ok {
		c.Locals("operatorName", username)
	}
	staff, _ := claims["staff"].(bool)
	c.Locals("isStaff", staff)

	return c.Next()
}

// StaffRequired rejects operators whose token does not carry the staff flag.
// It must run after OperatorRequired.
func StaffRequired(c *fiber.Ctx) error {
	if staff, ok := c.Locals("isStaff").(bool); !ok || !staff {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "Staff access required",
		})
	}
	return c.Next()
}
