package main

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"flowroute/pkg/broker"
	"flowroute/pkg/cache"
	"flowroute/pkg/config"
	"flowroute/pkg/database"
	"flowroute/pkg/handlers"
	"flowroute/pkg/hub"
	"flowroute/pkg/mailer"
	"flowroute/pkg/middleware"
	"flowroute/pkg/repository"
	"flowroute/pkg/server"
	"flowroute/pkg/services"
	"flowroute/pkg/trips"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/golang-jwt/jwt/v5"
)

func main() {
	cfg := config.Load()

	db := database.Connect(cfg.DatabaseURL)
	defer db.Close()

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(3 * time.Minute)
	db.SetConnMaxIdleTime(30 * time.Second)

	database.Migrate(db)

	log.Println("[FLOWROUTE] Connecting to Redis...")
	redis := cache.New(cfg.RedisURL)
	defer redis.Close()
	rtBroker := broker.New(cfg.RedisURL)
	defer rtBroker.Close()
	log.Println("[FLOWROUTE] Redis connected")

	wsHub := hub.New(rtBroker)
	registry := trips.NewRegistry()

	userRepo := repository.NewUserRepository(db)
	tokenRepo := repository.NewResetTokenRepository(db)
	userService := services.NewUserService(userRepo, redis)
	mail := mailer.New(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPFrom, cfg.SMTPUser, cfg.SMTPPassword)

	go cleanExpiredResetTokens(tokenRepo)

	auth := handlers.NewAuth(userService, cfg.JWTSecret)
	password := handlers.NewPassword(userService, tokenRepo, mail, cfg.AppURL)
	profile := handlers.NewProfile(userService, cfg.AvatarDir)
	trip := handlers.NewTrips(registry, wsHub, userService)

	trip.RegisterActions()

	if err := os.MkdirAll(cfg.AvatarDir, 0o755); err != nil {
		log.Fatalf("[FLOWROUTE] avatar dir: %v", err)
	}

	app := server.NewApp(cfg.ServiceName, cfg.CORSOrigins)
	requireAuth := middleware.Auth(cfg.JWTSecret)

	api := app.Group("/api")

	authGroup := api.Group("/auth")
	authGroup.Post("/register", perIPLimit(5), auth.Register)
	authGroup.Post("/login", perIPLimit(10), auth.Login)
	authGroup.Post("/forgot-password", perIPLimit(5), password.Forgot)
	authGroup.Get("/verify-reset-token", password.VerifyToken)
	authGroup.Post("/reset-password", password.Reset)
	authGroup.Get("/me", requireAuth, auth.Me)

	userGroup := api.Group("/user", requireAuth)
	userGroup.Put("/profile", profile.Update)
	userGroup.Put("/password", profile.ChangePassword)
	userGroup.Post("/avatar", profile.UploadAvatar)

	tripGroup := api.Group("/trips")
	tripGroup.Get("/", trip.List)
	tripGroup.Get("/available", requireAuth, trip.Available)
	tripGroup.Get("/:id", trip.Get)
	tripGroup.Post("/", requireAuth, trip.Create)

	app.Get("/realtime/status", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"clients": wsHub.ClientCount(),
			"trips":   registry.Count(),
		})
	})

	app.Static("/avatars", cfg.AvatarDir)

	app.Use("/ws", parseWSToken(cfg.JWTSecret))
	app.Get("/ws", websocket.New(func(c *websocket.Conn) {
		userID, _ := c.Locals("user_id").(int)
		userUUID, _ := c.Locals("user_uuid").(string)
		userName, _ := c.Locals("user_name").(string)
		wsHub.HandleClientConn(c, userID, userUUID, userName)
	}))

	addr := fmt.Sprintf("0.0.0.0:%d", cfg.Port)
	log.Printf("[FLOWROUTE] WebSocket: ws://<host>/ws")
	log.Printf("[FLOWROUTE] Server starting on %s", addr)

	if err := app.Listen(addr); err != nil {
		log.Fatalf("[FLOWROUTE] Failed to start: %v", err)
	}
}

func perIPLimit(max int) fiber.Handler {
	return limiter.New(limiter.Config{
		Max:        max,
		Expiration: 1 * time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
	})
}

// parseWSToken resolves the optional JWT on the upgrade request so the
// hub knows which user a socket belongs to. Anonymous sockets are
// allowed; they still receive broadcasts.
func parseWSToken(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !websocket.IsWebSocketUpgrade(c) {
			return fiber.ErrUpgradeRequired
		}

		tokenStr := c.Query("token")
		if tokenStr == "" {
			authHeader := c.Get("Authorization")
			if strings.HasPrefix(authHeader, "Bearer ") {
				tokenStr = authHeader[7:]
			}
		}

		userID := 0
		userUUID := ""
		userName := ""

		if tokenStr != "" {
			token, err := jwt.ParseWithClaims(tokenStr, &jwt.MapClaims{}, func(t *jwt.Token) (interface{}, error) {
				return []byte(secret), nil
			})
			if err == nil && token.Valid {
				claims := token.Claims.(*jwt.MapClaims)
				if id, ok := (*claims)["user_id"].(float64); ok {
					userID = int(id)
				}
				if uid, ok := (*claims)["uuid"].(string); ok {
					userUUID = uid
				}
				if name, ok := (*claims)["name"].(string); ok {
					userName = name
				}
			}
		}

		c.Locals("user_id", userID)
		c.Locals("user_uuid", userUUID)
		c.Locals("user_name", userName)
		return c.Next()
	}
}

func cleanExpiredResetTokens(tokens repository.ResetTokenRepository) {
	ticker := time.NewTicker(30 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		if n, err := tokens.DeleteExpired(); err == nil && n > 0 {
			log.Printf("[AUTH] purged %d expired reset tokens", n)
		}
	}
}
