package middleware

import (
	"errors"
	"log"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"

	"github.com/nutriware/shopcore/internal/pkg/env"
)

// Locals keys set by AdminAuthMiddleware for downstream handlers.
const (
	LocalsAdminEmail = "admin_email"
)

// AdminAuthMiddleware guards admin routes. It expects a bearer JWT signed
// with JWT_SECRET whose claims mark the caller as admin. SKIP_ADMIN_CHECK=true
// bypasses the check for local development only.
func AdminAuthMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if env.GetEnv("SKIP_ADMIN_CHECK", "false") == "true" {
			c.Locals(LocalsAdminEmail, "dev@local")
			return c.Next()
		}

		claims, err := parseBearerToken(c.Get(fiber.HeaderAuthorization))
		if err != nil {
			log.Printf("admin auth: %v", err)
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Admin access required"})
		}
		if !claimsAreAdmin(claims) {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Admin access required"})
		}

		if email, _ := claims["email"].(string); email != "" {
			c.Locals(LocalsAdminEmail, email)
		} else {
			c.Locals(LocalsAdminEmail, "admin")
		}
		return c.Next()
	}
}

func parseBearerToken(authHeader string) (jwt.MapClaims, error) {
	header := strings.TrimSpace(authHeader)
	if !strings.HasPrefix(header, "Bearer ") {
		return nil, errors.New("missing bearer token")
	}
	tokenString := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	if tokenString == "" {
		return nil, errors.New("empty bearer token")
	}

	secret := env.GetEnv("JWT_SECRET", "")
	if secret == "" {
		return nil, errors.New("JWT_SECRET is not configured")
	}

	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token claims")
	}
	return claims, nil
}

func claimsAreAdmin(claims jwt.MapClaims) bool {
	if isAdmin, ok := claims["is_admin"].(bool); ok && isAdmin {
		return true
	}
	if roles, ok := claims["roles"].([]interface{}); ok {
		for _, r := range roles {
			if role, ok := r.(string); ok && role == "admin" {
				return true
			}
		}
	}
	return false
}
