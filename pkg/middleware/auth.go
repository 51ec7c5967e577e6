package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

// Auth validates the Bearer token and stores the caller's identity in
// request locals.
func Auth(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		auth := c.Get("Authorization")
		if auth == "" || !strings.HasPrefix(auth, "Bearer ") {
			return c.Status(401).JSON(fiber.Map{"error": "Unauthorized"})
		}

		tokenStr := auth[7:]
		token, err := jwt.ParseWithClaims(tokenStr, &jwt.MapClaims{}, func(t *jwt.Token) (interface{}, error) {
			return []byte(secret), nil
		})
		if err != nil || !token.Valid {
			return c.Status(401).JSON(fiber.Map{"error": "Invalid token"})
		}

		claims := token.Claims.(*jwt.MapClaims)
		id, ok := (*claims)["user_id"].(float64)
		if !ok {
			return c.Status(401).JSON(fiber.Map{"error": "Invalid token"})
		}
		uuid, _ := (*claims)["uuid"].(string)
		name, _ := (*claims)["name"].(string)
		email, _ := (*claims)["email"].(string)

		c.Locals("user_id", int(id))
		c.Locals("user_uuid", uuid)
		c.Locals("user_name", name)
		c.Locals("user_email", email)

		return c.Next()
	}
}
