package handlers

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log"
	"time"

	"flowroute/pkg/mailer"
	"flowroute/pkg/models"
	"flowroute/pkg/repository"
	"flowroute/pkg/services"

	"github.com/gofiber/fiber/v2"
)

const resetTokenLifetime = time.Hour

type PasswordHandler struct {
	users  services.UserService
	tokens repository.ResetTokenRepository
	mail   *mailer.Mailer
	appURL string
}

func NewPassword(users services.UserService, tokens repository.ResetTokenRepository, mail *mailer.Mailer, appURL string) *PasswordHandler {
	return &PasswordHandler{users: users, tokens: tokens, mail: mail, appURL: appURL}
}

// Forgot issues a reset token and mails the link. Unknown emails get
// the same response as known ones so the endpoint cannot be used to
// probe which addresses are registered.
func (ph *PasswordHandler) Forgot(c *fiber.Ctx) error {
	var req models.ForgotPasswordRequest
	if err := c.BodyParser(&req); err != nil || req.Email == "" {
		return c.Status(400).JSON(fiber.Map{"error": "Email is required"})
	}

	if _, err := ph.users.GetByEmail(req.Email); err != nil {
		if err != repository.ErrUserNotFound {
			log.Println("[AUTH] forgot password lookup error:", err)
		}
		return c.JSON(fiber.Map{
			"message": "If your email is registered, you will receive a password reset link",
		})
	}

	token := generateResetToken()
	if err := ph.tokens.Create(req.Email, token, time.Now().Add(resetTokenLifetime)); err != nil {
		log.Println("[AUTH] reset token store error:", err)
		return c.Status(500).JSON(fiber.Map{"error": "Failed to process request"})
	}

	resetURL := fmt.Sprintf("%s/reset-password/%s", ph.appURL, token)
	body := fmt.Sprintf(
		"You requested a password reset for your FlowRoute account.\n\n"+
			"Open the link below to reset your password. It is valid for 1 hour.\n\n%s\n\n"+
			"If you didn't request this, you can safely ignore this email.\n",
		resetURL,
	)
	if err := ph.mail.Send(req.Email, "Reset Your Password", body); err != nil {
		log.Println("[AUTH] reset mail error:", err)
		return c.Status(500).JSON(fiber.Map{"error": "Failed to process request"})
	}

	return c.JSON(fiber.Map{"message": "Password reset link sent to your email"})
}

// VerifyToken handles GET /api/auth/verify-reset-token?token=...
func (ph *PasswordHandler) VerifyToken(c *fiber.Ctx) error {
	token := c.Query("token")
	if token == "" {
		return c.Status(400).JSON(fiber.Map{"error": "Token is required"})
	}

	if _, err := ph.tokens.Get(token); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": tokenErrorMessage(err)})
	}
	return c.JSON(fiber.Map{"valid": true})
}

// Reset consumes the token and sets the new password. Tokens are
// single use: deleted as soon as the password is updated.
func (ph *PasswordHandler) Reset(c *fiber.Ctx) error {
	var req models.ResetPasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid JSON"})
	}
	if req.Token == "" || req.Password == "" {
		return c.Status(400).JSON(fiber.Map{"error": "Token and password are required"})
	}

	rt, err := ph.tokens.Get(req.Token)
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": tokenErrorMessage(err)})
	}

	err = ph.users.ResetPassword(rt.Email, req.Password)
	if err == services.ErrPasswordTooShort {
		return c.Status(400).JSON(fiber.Map{"error": "Password must be at least 6 characters"})
	}
	if err == repository.ErrUserNotFound {
		return c.Status(404).JSON(fiber.Map{"error": "User not found"})
	}
	if err != nil {
		log.Println("[AUTH] reset password error:", err)
		return c.Status(500).JSON(fiber.Map{"error": "Failed to reset password"})
	}

	if err := ph.tokens.Delete(req.Token); err != nil {
		log.Println("[AUTH] reset token delete error:", err)
	}

	body := "Your password for FlowRoute has been successfully reset.\n\n" +
		"If you did not request this change, please contact support immediately.\n"
	if err := ph.mail.Send(rt.Email, "Your Password Has Been Reset", body); err != nil {
		log.Println("[AUTH] confirmation mail error:", err)
	}

	return c.JSON(fiber.Map{"message": "Password has been reset successfully"})
}

func tokenErrorMessage(err error) string {
	if err == repository.ErrTokenExpired {
		return "Token has expired"
	}
	return "Invalid or expired token"
}

func generateResetToken() string {
	b := make([]byte, 32)
	rand.Read(b)
	return hex.EncodeToString(b)
}
