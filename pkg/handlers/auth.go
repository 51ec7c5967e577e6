package handlers

import (
	"log"
	"time"

	"flowroute/pkg/models"
	"flowroute/pkg/repository"
	"flowroute/pkg/services"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

const tokenLifetime = 7 * 24 * time.Hour

type AuthHandler struct {
	users     services.UserService
	jwtSecret string
}

func NewAuth(users services.UserService, jwtSecret string) *AuthHandler {
	return &AuthHandler{users: users, jwtSecret: jwtSecret}
}

func (ah *AuthHandler) Register(c *fiber.Ctx) error {
	var req models.RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid JSON"})
	}

	if req.Name == "" || req.Email == "" || req.Password == "" {
		return c.Status(400).JSON(fiber.Map{"error": "Missing required fields"})
	}

	user, err := ah.users.Register(req.Name, req.Email, req.Password)
	if err == repository.ErrEmailTaken {
		return c.Status(409).JSON(fiber.Map{"error": "User with this email already exists"})
	}
	if err != nil {
		log.Println("[AUTH] register error:", err)
		return c.Status(500).JSON(fiber.Map{"error": "Failed to register user"})
	}

	return c.Status(201).JSON(fiber.Map{
		"message": "User registered successfully",
		"userId":  user.ID,
	})
}

func (ah *AuthHandler) Login(c *fiber.Ctx) error {
	var req models.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid JSON"})
	}

	if req.Email == "" || req.Password == "" {
		return c.Status(400).JSON(fiber.Map{"error": "Email and password are required"})
	}

	user, err := ah.users.Authenticate(req.Email, req.Password)
	if err == services.ErrInvalidCredentials {
		return c.Status(401).JSON(fiber.Map{"error": "Invalid credentials"})
	}
	if err != nil {
		log.Println("[AUTH] login error:", err)
		return c.Status(500).JSON(fiber.Map{"error": "Failed to login"})
	}

	return c.JSON(models.AuthResponse{
		Message: "Login successful",
		Token:   ah.generateToken(user),
		User:    user,
	})
}

func (ah *AuthHandler) Me(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(int)

	user, err := ah.users.GetByID(userID)
	if err == repository.ErrUserNotFound {
		return c.Status(404).JSON(fiber.Map{"error": "User not found"})
	}
	if err != nil {
		log.Println("[AUTH] me error:", err)
		return c.Status(500).JSON(fiber.Map{"error": "Authentication failed"})
	}

	return c.JSON(fiber.Map{"user": user})
}

func (ah *AuthHandler) generateToken(user models.User) string {
	claims := jwt.MapClaims{
		"user_id": user.ID,
		"uuid":    user.UUID,
		"name":    user.Name,
		"email":   user.Email,
		"exp":     time.Now().Add(tokenLifetime).Unix(),
		"iat":     time.Now().Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(ah.jwtSecret))
	if err != nil {
		log.Println("[AUTH] token sign error:", err)
		return ""
	}
	return signed
}
