// middleware/auth.go
package middleware

import (
	"log"
	"os"
	"strings"

	"ad-marketplace-system/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

// Protected parses the 30-day bearer token from the httpOnly cookie or the
// Authorization header and attaches user_id and user_role to the context.
func Protected() fiber.Handler {
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		log.Fatal("JWT_SECRET is not set — service cannot authenticate requests")
	}

	return func(c *fiber.Ctx) error {
		tokenStr := tokenFromRequest(c)
		if tokenStr == "" {
			return utils.FailCode(c, utils.CodeUnauthorized, "missing authentication token")
		}

		claims, err := parseClaims(tokenStr, secret)
		if err != nil {
			return utils.FailCode(c, utils.CodeUnauthorized, "invalid or expired token")
		}

		userID, _ := claims["sub"].(string)
		role, _ := claims["role"].(string)
		if userID == "" {
			return utils.FailCode(c, utils.CodeUnauthorized, "token missing subject")
		}

		c.Locals("user_id", userID)
		c.Locals("user_role", role)
		return c.Next()
	}
}

// OptionalAuth attaches user context when a valid token is present but never
// rejects the request. Public listings use it to widen results for admins.
func OptionalAuth() fiber.Handler {
	secret := os.Getenv("JWT_SECRET")

	return func(c *fiber.Ctx) error {
		tokenStr := tokenFromRequest(c)
		if tokenStr == "" || secret == "" {
			return c.Next()
		}

		claims, err := parseClaims(tokenStr, secret)
		if err != nil {
			return c.Next()
		}
		if userID, _ := claims["sub"].(string); userID != "" {
			role, _ := claims["role"].(string)
			c.Locals("user_id", userID)
			c.Locals("user_role", role)
		}
		return c.Next()
	}
}

func tokenFromRequest(c *fiber.Ctx) string {
	if cookie := c.Cookies("token"); cookie != "" {
		return cookie
	}
	authHeader := c.Get("Authorization")
	if tokenStr := strings.TrimPrefix(authHeader, "Bearer "); tokenStr != authHeader {
		return tokenStr
	}
	return ""
}

func parseClaims(tokenStr, secret string) (jwt.MapClaims, error) {
	claims := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return nil, jwt.ErrTokenUnverifiable
	}
	return claims, nil
}

// AdminOnly must run after Protected.
func AdminOnly() fiber.Handler {
	return func(c *fiber.Ctx) error {
		role, _ := c.Locals("user_role").(string)
		if role != "admin" {
			return utils.FailCode(c, utils.CodeForbidden, "admin access required")
		}
		return c.Next()
	}
}
