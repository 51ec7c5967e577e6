package handlers

import (
	"log"
	"path/filepath"
	"strings"

	"flowroute/pkg/models"
	"flowroute/pkg/repository"
	"flowroute/pkg/services"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const maxAvatarSize = 5 * 1024 * 1024

type ProfileHandler struct {
	users     services.UserService
	avatarDir string
}

func NewProfile(users services.UserService, avatarDir string) *ProfileHandler {
	return &ProfileHandler{users: users, avatarDir: avatarDir}
}

func (ph *ProfileHandler) Update(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(int)

	var req models.UpdateProfileRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid JSON"})
	}
	if req.Name == "" || req.Email == "" {
		return c.Status(400).JSON(fiber.Map{"error": "Name and email are required"})
	}

	user, err := ph.users.UpdateProfile(userID, req.Name, req.Email)
	if err == repository.ErrEmailTaken {
		return c.Status(409).JSON(fiber.Map{"error": "Email is already taken"})
	}
	if err == repository.ErrUserNotFound {
		return c.Status(404).JSON(fiber.Map{"error": "User not found"})
	}
	if err != nil {
		log.Println("[PROFILE] update error:", err)
		return c.Status(500).JSON(fiber.Map{"error": "Failed to update profile"})
	}

	return c.JSON(fiber.Map{
		"message": "Profile updated successfully",
		"user":    user,
	})
}

func (ph *ProfileHandler) ChangePassword(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(int)

	var req models.ChangePasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid JSON"})
	}
	if req.CurrentPassword == "" || req.NewPassword == "" {
		return c.Status(400).JSON(fiber.Map{"error": "Current password and new password are required"})
	}

	err := ph.users.ChangePassword(userID, req.CurrentPassword, req.NewPassword)
	switch err {
	case nil:
	case services.ErrPasswordTooShort:
		return c.Status(400).JSON(fiber.Map{"error": "Password must be at least 6 characters"})
	case services.ErrInvalidCredentials:
		return c.Status(401).JSON(fiber.Map{"error": "Current password is incorrect"})
	case repository.ErrUserNotFound:
		return c.Status(404).JSON(fiber.Map{"error": "User not found"})
	default:
		log.Println("[PROFILE] password change error:", err)
		return c.Status(500).JSON(fiber.Map{"error": "Failed to update password"})
	}

	return c.JSON(fiber.Map{"message": "Password updated successfully"})
}

// UploadAvatar stores the uploaded image under a fresh uuid filename
// and points the user record at it.
func (ph *ProfileHandler) UploadAvatar(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(int)

	file, err := c.FormFile("avatar")
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "No file uploaded"})
	}

	if !strings.HasPrefix(file.Header.Get("Content-Type"), "image/") {
		return c.Status(400).JSON(fiber.Map{"error": "File must be an image"})
	}
	if file.Size > maxAvatarSize {
		return c.Status(400).JSON(fiber.Map{"error": "File size must be less than 5MB"})
	}

	filename := uuid.NewString() + filepath.Ext(file.Filename)
	if err := c.SaveFile(file, filepath.Join(ph.avatarDir, filename)); err != nil {
		log.Println("[PROFILE] avatar save error:", err)
		return c.Status(500).JSON(fiber.Map{"error": "Failed to upload avatar"})
	}

	avatarPath := "/avatars/" + filename
	if _, err := ph.users.UpdateAvatar(userID, avatarPath); err != nil {
		log.Println("[PROFILE] avatar update error:", err)
		return c.Status(500).JSON(fiber.Map{"error": "Failed to upload avatar"})
	}

	return c.JSON(fiber.Map{
		"message": "Avatar uploaded successfully",
		"avatar":  avatarPath,
	})
}
